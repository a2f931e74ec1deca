package lib

import (
	"context"
	"testing"

	"github.com/fiffu/bountywatch/config"
	"github.com/fiffu/bountywatch/lib/matcher"
	"github.com/fiffu/bountywatch/lib/models"
	"github.com/fiffu/bountywatch/lib/poller"
	"github.com/fiffu/bountywatch/lib/store"
	"github.com/fiffu/bountywatch/senders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type staticFeed models.FeedItems

func (f staticFeed) Fetch(ctx context.Context) (models.FeedItems, error) {
	return models.FeedItems(f), nil
}

type nopNotifier struct{}

func (nopNotifier) SendBounty(ctx context.Context, destinationID, prefix string, n *models.Notification) (string, error) {
	return "", nil
}
func (nopNotifier) MentionUser(userID string) string   { return "@" + userID }
func (nopNotifier) MentionGroup(groupID string) string { return "@" + groupID }

func newTestCommands(t *testing.T, feed poller.Fetcher) (*Commands, *Service, *gorm.DB) {
	st, db := store.NewTestStore(t)
	cfg := &config.Config{}
	cfg.Poller.IntervalSecs = 60

	p := poller.New(cfg, zap.NewNop(), poller.Deps{
		Fetcher:  feed,
		Ledger:   st,
		Tenants:  st,
		Matcher:  matcher.New(st),
		Notifier: nopNotifier{},
		Ready:    senders.NewReadiness(),
	})
	svc := NewService(fxtest.NewLifecycle(t), cfg, zap.NewNop(), st, p)
	return NewCommands(zap.NewNop(), svc), svc, db
}

func closeDB(t *testing.T, db *gorm.DB) {
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
}

func TestConfigure(t *testing.T) {
	ctx := context.Background()
	cmds, svc, _ := newTestCommands(t, staticFeed{})

	ack := cmds.Configure(ctx, "T1", "C1", nil)
	assert.Equal(t, Ack{Outcome: OutcomeOK, Message: "Bounties will be posted to C1"}, ack)

	group := "G1"
	ack = cmds.Configure(ctx, "T1", "C2", &group)
	assert.Equal(t, OutcomeOK, ack.Outcome)
	assert.Equal(t, "Bounties will be posted to C2 with G1 pings", ack.Message)

	// reconfiguring without a group keeps the old one
	cmds.Configure(ctx, "T1", "C3", nil)
	cfg, err := svc.TenantConfig(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, "C3", cfg.DestinationID)
	assert.Equal(t, "G1", cfg.PingGroupID.String)

	assert.Equal(t, OutcomeInvalid, cmds.Configure(ctx, "T1", " ", nil).Outcome)
}

func TestSetPingGroupOnUnconfiguredTenant(t *testing.T) {
	ctx := context.Background()
	_, svc, _ := newTestCommands(t, staticFeed{})

	group := "G1"
	updated, err := svc.SetPingGroup(ctx, "nobody", &group)
	require.NoError(t, err)
	assert.False(t, updated)

	cfg, err := svc.TenantConfig(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestSubscribeLifecycle(t *testing.T) {
	ctx := context.Background()
	cmds, _, _ := newTestCommands(t, staticFeed{})

	ack := cmds.ListSubscriptions(ctx, "T1", "u1")
	assert.Equal(t, OutcomeOK, ack.Outcome)
	assert.Empty(t, ack.Locations)

	ack = cmds.Subscribe(ctx, "T1", "u1", "  NYC ")
	assert.Equal(t, Ack{Outcome: OutcomeOK, Message: "Subscribed to **nyc** bounties!"}, ack)

	ack = cmds.Subscribe(ctx, "T1", "u1", "nyc")
	assert.Equal(t, Ack{Outcome: OutcomeExists, Message: "You're already subscribed to **nyc**."}, ack)

	cmds.Subscribe(ctx, "T1", "u1", "Remote")
	ack = cmds.ListSubscriptions(ctx, "T1", "u1")
	assert.Equal(t, []string{"nyc", "remote"}, ack.Locations)
	assert.Equal(t, "• **nyc**\n• **remote**", ack.Message)

	ack = cmds.Unsubscribe(ctx, "T1", "u1", "NYC")
	assert.Equal(t, Ack{Outcome: OutcomeOK, Message: "Unsubscribed from **nyc**."}, ack)

	ack = cmds.Unsubscribe(ctx, "T1", "u1", "nyc")
	assert.Equal(t, Ack{Outcome: OutcomeNotFound, Message: "No subscription found for **nyc**."}, ack)
}

func TestSubscribeRejectsEmptyLocation(t *testing.T) {
	cmds, _, _ := newTestCommands(t, staticFeed{})
	assert.Equal(t, OutcomeInvalid, cmds.Subscribe(context.Background(), "T1", "u1", "   ").Outcome)
	assert.Equal(t, OutcomeInvalid, cmds.Unsubscribe(context.Background(), "T1", "u1", "").Outcome)
}

func TestStorageFailureAsksToRetry(t *testing.T) {
	ctx := context.Background()
	cmds, _, db := newTestCommands(t, staticFeed{})
	closeDB(t, db)

	retry := Ack{Outcome: OutcomeRetry, Message: RetryMessage}
	assert.Equal(t, retry, cmds.Configure(ctx, "T1", "C1", nil))
	assert.Equal(t, retry, cmds.Subscribe(ctx, "T1", "u1", "nyc"))
	assert.Equal(t, retry, cmds.Unsubscribe(ctx, "T1", "u1", "nyc"))
	assert.Equal(t, retry, cmds.ListSubscriptions(ctx, "T1", "u1"))
}

func TestPoll(t *testing.T) {
	ctx := context.Background()
	cmds, _, _ := newTestCommands(t, staticFeed{{ID: "1", Title: "A"}, {ID: "2", Title: "B"}})

	ack := cmds.Poll(ctx)
	assert.Equal(t, OutcomeOK, ack.Outcome)
	assert.Equal(t, "Announced 2 new bounties.", ack.Message)
	require.NotNil(t, ack.Report)
	assert.Equal(t, 2, ack.Report.Fetched)

	ack = cmds.Poll(ctx)
	assert.Equal(t, "Announced 0 new bounties.", ack.Message)
}
