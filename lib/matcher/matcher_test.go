package matcher

import (
	"context"
	"errors"
	"testing"

	"github.com/fiffu/bountywatch/lib/models"
	"github.com/fiffu/bountywatch/lib/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	subs  models.Subscriptions
	err   error
	calls int
}

func (c *countingSource) TenantSubscriptions(ctx context.Context, tenantID string) (models.Subscriptions, error) {
	c.calls++
	var out models.Subscriptions
	for _, s := range c.subs {
		if s.TenantID == tenantID {
			out = append(out, s)
		}
	}
	return out, c.err
}

func sub(user, tenant, location string) models.Subscription {
	return models.Subscription{UserID: user, TenantID: tenant, Location: models.NormalizeLocation(location)}
}

func TestMatchBidirectional(t *testing.T) {
	src := &countingSource{subs: models.Subscriptions{
		sub("u-remote", "g1", "remote"),
		sub("u-bay", "g1", "san francisco bay area"),
		sub("u-nyc", "g1", "nyc"),
		sub("u-other-tenant", "g2", "remote"),
	}}
	m := New(src)
	ctx := context.Background()

	users, err := m.Match(ctx, "g1", "Fully Remote, US")
	require.NoError(t, err)
	assert.Equal(t, []string{"u-remote"}, users)

	users, err = m.Match(ctx, "g1", "Bay Area")
	require.NoError(t, err)
	assert.Equal(t, []string{"u-bay"}, users)

	users, err = m.Match(ctx, "g1", "New York City")
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestMatchDeduplicatesUsers(t *testing.T) {
	src := &countingSource{subs: models.Subscriptions{
		sub("u1", "g1", "paris"),
		sub("u2", "g1", "france"),
		sub("u1", "g1", "paris, france"),
	}}

	users, err := New(src).Match(context.Background(), "g1", "Paris, France")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, users)
}

func TestMatchEmptyLocationSkipsStorage(t *testing.T) {
	src := &countingSource{subs: models.Subscriptions{sub("u1", "g1", "remote")}}

	users, err := New(src).Match(context.Background(), "g1", "")
	require.NoError(t, err)
	assert.Empty(t, users)
	assert.Equal(t, 0, src.calls)
}

func TestMatchPropagatesStorageError(t *testing.T) {
	boom := errors.New("boom")
	src := &countingSource{err: boom}

	_, err := New(src).Match(context.Background(), "g1", "remote")
	assert.ErrorIs(t, err, boom)
}

func TestMatchAgainstStore(t *testing.T) {
	ctx := context.Background()
	s, _ := store.NewTestStore(t)

	_, err := s.AddSubscription(ctx, "u1", "g1", "  Remote ")
	require.NoError(t, err)

	users, err := New(s).Match(ctx, "g1", "REMOTE (worldwide)")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, users)
}
