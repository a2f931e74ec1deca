package poller

import (
	"context"
	"time"

	"github.com/fiffu/bountywatch/lib/models"
	"github.com/google/uuid"
)

func (p *Poller) runCycle(ctx context.Context) *CycleReport {
	report := &CycleReport{CycleID: uuid.NewString(), StartedAt: time.Now().UTC()}
	log := p.log.Sugar().With("cycle", report.CycleID)

	defer func() {
		report.Elapsed = time.Since(report.StartedAt)
		report.log(log)
		report.emit(p.Stats)
	}()

	// FETCHING
	items, err := p.Fetcher.Fetch(ctx)
	if err != nil {
		log.Errorw("Failed to fetch feed", "err", err)
		report.Aborted = StageFetch
		return report
	}
	report.Fetched = len(items)

	// FILTERING
	candidates, err := p.filter(ctx, items, report)
	if err != nil {
		log.Errorw("Failed to read seen ledger", "err", err)
		report.Aborted = StageFilter
		return report
	}

	if len(candidates) == 0 {
		return report
	}

	// The tenant snapshot is taken before anything is marked, so a failed
	// load leaves the items unseen for the next cycle.
	tenants, err := p.Tenants.TenantConfigs(ctx)
	if err != nil {
		log.Errorw("Failed to load tenant configs", "err", err)
		report.Aborted = StageDispatch
		return report
	}

	// MARKING
	fresh, err := p.claim(ctx, candidates, report)
	report.New = len(fresh)
	if err != nil {
		log.Errorw("Failed to mark bounties seen", "err", err, "claimed", len(fresh))
		report.Aborted = StageMark
	}

	// DISPATCHING
	// Items claimed before a marking failure are still announced.
	for _, item := range fresh {
		report.Add(p.dispatchItem(ctx, report.CycleID, item, tenants))
	}
	return report
}

// filter drops unusable items and those already in the ledger, keeping feed
// order.
func (p *Poller) filter(ctx context.Context, items models.FeedItems, report *CycleReport) (models.FeedItems, error) {
	usable := make(models.FeedItems, 0, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if item.ID == "" {
			report.Dropped++
			continue
		}
		usable = append(usable, item)
		ids = append(ids, item.ID)
	}
	if len(usable) == 0 {
		return usable, nil
	}

	seen, err := p.Ledger.Seen(ctx, ids)
	if err != nil {
		return nil, err
	}

	unseen := make(models.FeedItems, 0, len(usable))
	for _, item := range usable {
		if seen[item.ID] {
			report.AlreadySeen++
			continue
		}
		unseen = append(unseen, item)
	}
	return unseen, nil
}

// claim marks each item seen before anything is sent. Only items whose ledger
// row was created here are returned, so a concurrent cycle that fetched the
// same item never announces it twice. On error the items claimed so far are
// returned with it.
func (p *Poller) claim(ctx context.Context, items models.FeedItems, report *CycleReport) (models.FeedItems, error) {
	claimed := make(models.FeedItems, 0, len(items))
	for _, item := range items {
		ok, err := p.Ledger.Claim(ctx, item)
		if err != nil {
			return claimed, err
		}
		if !ok {
			report.AlreadySeen++
			continue
		}
		claimed = append(claimed, item)
	}
	return claimed, nil
}
