package poller

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/fiffu/bountywatch/lib/models"
	"github.com/fiffu/bountywatch/lib/render"
	"golang.org/x/sync/errgroup"
)

type Outcome string

const (
	OutcomeSent    Outcome = "sent"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// Result is the outcome of announcing one item to one tenant.
type Result struct {
	TenantID string
	ItemID   string
	Outcome  Outcome
	Err      error
}

// dispatchItem announces item to every tenant and waits for all of them, so a
// tenant never sees items out of feed order. No tenant's failure affects
// another.
func (p *Poller) dispatchItem(ctx context.Context, cycleID string, item models.FeedItem, tenants models.TenantConfigs) []Result {
	notification := render.Bounty(item, p.linkBase)
	results := make([]Result, len(tenants))

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, tenant := range tenants {
		results[i] = Result{TenantID: tenant.TenantID, ItemID: item.ID}
		if tenant.DestinationID == "" {
			results[i].Outcome = OutcomeSkipped
			continue
		}

		i, tenant := i, tenant
		g.Go(func() error {
			log := p.log.Sugar().With("cycle", cycleID, "tenant", tenant.TenantID, "item", item.ID, "destination", tenant.DestinationID)

			prefix := p.prefix(ctx, tenant, item)
			if err := p.send(ctx, tenant.DestinationID, prefix, notification); err != nil {
				log.Errorw("Failed to announce bounty", "err", err)
				results[i].Outcome, results[i].Err = OutcomeFailed, err
				return nil
			}

			log.Debugw("Announced bounty", "prefix", prefix)
			results[i].Outcome = OutcomeSent
			return nil
		})
	}
	g.Wait()

	return results
}

// prefix builds the mention line for a tenant. If the subscriber lookup fails
// only the ping group is mentioned.
func (p *Poller) prefix(ctx context.Context, tenant models.TenantConfig, item models.FeedItem) string {
	users, err := p.Matcher.Match(ctx, tenant.TenantID, item.Location)
	if err != nil {
		p.log.Sugar().Warnw("Failed to match subscribers, pinging group only",
			"tenant", tenant.TenantID, "item", item.ID, "err", err)
		users = nil
	}
	return BuildPrefix(p.Notifier, tenant.PingGroupID, users)
}

func BuildPrefix(n Notifier, group sql.NullString, users []string) string {
	mentions := make([]string, 0, len(users)+1)
	if group.Valid && group.String != "" {
		mentions = append(mentions, n.MentionGroup(group.String))
	}
	for _, user := range users {
		mentions = append(mentions, n.MentionUser(user))
	}
	return strings.Join(mentions, " ")
}

// send delivers with a per-attempt timeout, retrying a bounded number of times.
func (p *Poller) send(ctx context.Context, destinationID, prefix string, n *models.Notification) error {
	var err error
	for attempt := 0; attempt <= p.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(p.retryBackoff * time.Duration(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err = p.limiter.Wait(ctx); err != nil {
			return err
		}

		err = p.sendOne(ctx, destinationID, prefix, n)
		if err == nil {
			return nil
		}
		p.log.Sugar().Debugw("Send attempt failed", "destination", destinationID, "attempt", attempt+1, "err", err)
	}
	return err
}

func (p *Poller) sendOne(ctx context.Context, destinationID, prefix string, n *models.Notification) error {
	if p.sendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.sendTimeout)
		defer cancel()
	}
	_, err := p.Notifier.SendBounty(ctx, destinationID, prefix, n)
	return err
}
