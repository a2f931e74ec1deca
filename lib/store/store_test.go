package store

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/fiffu/bountywatch/lib/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestSetDestinationUpserts(t *testing.T) {
	ctx := context.Background()
	s, _ := NewTestStore(t)

	require.NoError(t, s.SetDestination(ctx, "guild-1", "chan-a"))
	ok, err := s.SetPingGroup(ctx, "guild-1", ptr("role-1"))
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.SetDestination(ctx, "guild-1", "chan-b"))

	cfg, err := s.TenantConfig(ctx, "guild-1")
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "chan-b", cfg.DestinationID)
	assert.Equal(t, "role-1", cfg.PingGroupID.String, "upsert must only replace the destination")

	cfgs, err := s.TenantConfigs(ctx)
	require.NoError(t, err)
	assert.Len(t, cfgs, 1)
}

func TestSetPingGroupWithoutConfigIsNoop(t *testing.T) {
	ctx := context.Background()
	s, _ := NewTestStore(t)

	ok, err := s.SetPingGroup(ctx, "guild-unknown", ptr("role-1"))
	require.NoError(t, err)
	assert.False(t, ok)

	cfg, err := s.TenantConfig(ctx, "guild-unknown")
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestSetPingGroupClear(t *testing.T) {
	ctx := context.Background()
	s, _ := NewTestStore(t)

	require.NoError(t, s.SetDestination(ctx, "guild-1", "chan-a"))
	_, err := s.SetPingGroup(ctx, "guild-1", ptr("role-1"))
	require.NoError(t, err)

	ok, err := s.SetPingGroup(ctx, "guild-1", nil)
	require.NoError(t, err)
	assert.True(t, ok)

	cfg, err := s.TenantConfig(ctx, "guild-1")
	require.NoError(t, err)
	assert.False(t, cfg.PingGroupID.Valid)
}

func TestTenantConfigsOrdered(t *testing.T) {
	ctx := context.Background()
	s, _ := NewTestStore(t)

	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, s.SetDestination(ctx, id, "chan-"+id))
	}

	cfgs, err := s.TenantConfigs(ctx)
	require.NoError(t, err)
	require.Len(t, cfgs, 3)
	assert.Equal(t, "a", cfgs[0].TenantID)
	assert.Equal(t, "b", cfgs[1].TenantID)
	assert.Equal(t, "c", cfgs[2].TenantID)
}

func TestAddSubscriptionDuplicate(t *testing.T) {
	ctx := context.Background()
	s, db := NewTestStore(t)

	created, err := s.AddSubscription(ctx, "u1", "g1", "nyc")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.AddSubscription(ctx, "u1", "g1", "  NYC ")
	require.NoError(t, err)
	assert.False(t, created)

	var count int64
	require.NoError(t, db.Model(&models.Subscription{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestRemoveAndListSubscriptions(t *testing.T) {
	ctx := context.Background()
	s, _ := NewTestStore(t)

	_, err := s.AddSubscription(ctx, "u1", "g1", "Remote")
	require.NoError(t, err)
	_, err = s.AddSubscription(ctx, "u1", "g1", "Paris")
	require.NoError(t, err)
	_, err = s.AddSubscription(ctx, "u1", "g2", "Berlin")
	require.NoError(t, err)

	locs, err := s.UserSubscriptions(ctx, "u1", "g1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"remote", "paris"}, locs)

	removed, err := s.RemoveSubscription(ctx, "u1", "g1", "PARIS")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.RemoveSubscription(ctx, "u1", "g1", "paris")
	require.NoError(t, err)
	assert.False(t, removed)

	locs, err = s.UserSubscriptions(ctx, "u1", "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"remote"}, locs)

	locs, err = s.UserSubscriptions(ctx, "u2", "g1")
	require.NoError(t, err)
	assert.Empty(t, locs)

	subs, err := s.TenantSubscriptions(ctx, "g2")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "berlin", subs[0].Location)
}

func TestClaimIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, _ := NewTestStore(t)

	claimed, err := s.Claim(ctx, models.FeedItem{ID: "1", Title: "first", Price: ptr(10.0)})
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = s.Claim(ctx, models.FeedItem{ID: "1", Title: "second", Price: ptr(99.0)})
	require.NoError(t, err)
	assert.False(t, claimed)

	item, err := s.SeenItem(ctx, "1")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "first", item.Title)
	assert.Equal(t, 10.0, item.Price)
	assert.False(t, item.FirstSeenAt.IsZero())
}

func TestClaimConcurrent(t *testing.T) {
	ctx := context.Background()
	s, _ := NewTestStore(t)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.Claim(ctx, models.FeedItem{ID: "race"})
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestSeen(t *testing.T) {
	ctx := context.Background()
	s, _ := NewTestStore(t)

	seen, err := s.Seen(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, seen)

	_, err = s.Claim(ctx, models.FeedItem{ID: "a"})
	require.NoError(t, err)

	seen, err = s.Seen(ctx, []string{"a", "b"})
	require.NoError(t, err)
	assert.True(t, seen["a"])
	assert.False(t, seen["b"])
}

func TestStorageErrorWraps(t *testing.T) {
	ctx := context.Background()
	s, db := NewTestStore(t)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = s.TenantConfigs(ctx)
	require.Error(t, err)

	var storageErr *StorageError
	require.True(t, errors.As(err, &storageErr))
	assert.Equal(t, "list tenant configs", storageErr.Op)
}

func TestRedisLedger(t *testing.T) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		t.Skip("REDIS_URL not set")
	}
	ctx := context.Background()

	l, err := NewRedisLedger(ctx, redisURL)
	require.NoError(t, err)
	defer l.Close()

	id := "test-" + t.Name()
	l.rdb.Del(ctx, redisLedgerPrefix+id)
	defer l.rdb.Del(ctx, redisLedgerPrefix+id)

	claimed, err := l.Claim(ctx, models.FeedItem{ID: id, Title: "first", Price: ptr(5.0)})
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = l.Claim(ctx, models.FeedItem{ID: id, Title: "second"})
	require.NoError(t, err)
	assert.False(t, claimed)

	seen, err := l.Seen(ctx, []string{id, id + "-other"})
	require.NoError(t, err)
	assert.True(t, seen[id])
	assert.False(t, seen[id+"-other"])

	item, err := l.SeenItem(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "first", item.Title)
	assert.Equal(t, 5.0, item.Price)
}
