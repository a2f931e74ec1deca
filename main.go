package main

import (
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/fiffu/bountywatch/app"
	"github.com/fiffu/bountywatch/config"
	"github.com/fiffu/bountywatch/lib"
	"github.com/fiffu/bountywatch/lib/feed"
	"github.com/fiffu/bountywatch/lib/matcher"
	"github.com/fiffu/bountywatch/lib/poller"
	"github.com/fiffu/bountywatch/lib/store"
	"github.com/fiffu/bountywatch/senders"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func NewLogger() (*zap.Logger, error) {
	switch os.Getenv("ENVIRONMENT") {
	case "development":
		return zap.NewDevelopment()

	default:
		logCfg := zap.NewProductionConfig()
		logCfg.EncoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			t = t.UTC()
			zapcore.ISO8601TimeEncoder(t, enc)
		}
		return logCfg.Build()
	}
}

func main() {
	log, err := NewLogger()
	if err != nil {
		panic(err)
	}

	fxApp := fx.New(
		fx.Supply(log),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		fx.Provide(config.NewConfig),

		fx.Provide(app.NewDatabase),
		fx.Provide(app.NewStore),
		fx.Provide(app.NewLedger),
		fx.Provide(app.NewTransport),
		fx.Provide(app.NewStatsd),

		fx.Provide(senders.NewReadiness),
		fx.Provide(senders.NewSenderRegistry),
		fx.Provide(senders.NewSender),

		fx.Provide(feed.NewClient),
		fx.Provide(func(st *store.Store) *matcher.Matcher { return matcher.New(st) }),
		fx.Provide(poller.NewPoller),
		fx.Provide(lib.NewService),
		fx.Provide(lib.NewCommands),
		fx.Provide(app.NewAPI),

		fx.Invoke(func(*http.Server, *poller.Poller) {}),
	)

	if err := fxApp.Err(); err != nil {
		var cfgErr *config.ConfigurationError
		if errors.As(err, &cfgErr) {
			log.Sugar().Errorw("Invalid configuration", "field", cfgErr.Field, "err", cfgErr.Err)
		} else {
			log.Sugar().Errorw("Failed to start", "err", err)
		}
		os.Exit(1)
	}
	fxApp.Run()
}
