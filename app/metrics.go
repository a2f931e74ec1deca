package app

import (
	"context"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/fiffu/bountywatch/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewStatsd returns a no-op client unless STATSD_ADDR is set.
func NewStatsd(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (statsd.ClientInterface, error) {
	if cfg.StatsdAddr == "" {
		log.Info("Metrics are disabled since STATSD_ADDR is empty")
		return &statsd.NoOpClient{}, nil
	}

	client, err := statsd.New(cfg.StatsdAddr)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}
