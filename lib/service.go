package lib

import (
	"context"

	"github.com/fiffu/bountywatch/config"
	"github.com/fiffu/bountywatch/lib/poller"
	"github.com/fiffu/bountywatch/lib/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Service struct {
	cfg   *config.Config
	log   *zap.Logger
	store *store.Store

	poller *poller.Poller
	*configureTenant
	*manageSubscriptions
}

func NewService(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, st *store.Store, p *poller.Poller) *Service {
	return &Service{
		cfg, log, st,
		p,
		&configureTenant{log, st},
		&manageSubscriptions{log, st},
	}
}

// RunCycle polls the feed now instead of waiting for the next tick.
func (svc *Service) RunCycle(ctx context.Context) (*poller.CycleReport, error) {
	report, err := svc.poller.RunNow(ctx)
	if err != nil {
		return nil, err
	}
	svc.log.Sugar().Infow("Manual cycle finished", "cycle", report.CycleID, "new", report.New)
	return report, nil
}
