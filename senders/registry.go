package senders

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/fiffu/bountywatch/config"
	"github.com/fiffu/bountywatch/lib/models"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Sender posts rendered bounties to a destination on one chat platform.
type Sender interface {
	Platform() string
	// Connect verifies the session is live. Nothing may be sent before it
	// returns nil.
	Connect(ctx context.Context) error
	SendBounty(ctx context.Context, destinationID, prefix string, n *models.Notification) (string, error)
	MentionUser(userID string) string
	MentionGroup(groupID string) string
}

type Registry map[string]Sender

// DeliveryError is returned for any failed send: permission problems, unknown
// destinations and transport failures alike.
type DeliveryError struct {
	Platform    string
	Destination string
	Err         error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver to %s %s: %v", e.Platform, e.Destination, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

func NewSenderRegistry(log *zap.Logger, cfg *config.Config, transport http.RoundTripper) Registry {
	base := base{log, cfg, transport}
	return map[string]Sender{
		config.PlatformSlack:    newSlackSender(base),
		config.PlatformTelegram: newTelegramSender(base),
		config.PlatformEmail:    &mailgunSender{base},
	}
}

// NewSender selects the configured platform and connects it when the app
// starts. ready is signalled once the session is live.
func NewSender(lc fx.Lifecycle, log *zap.Logger, cfg *config.Config, registry Registry, ready *Readiness) (Sender, error) {
	sender, ok := registry[cfg.Platform]
	if !ok {
		return nil, fmt.Errorf("unsupported notifier platform: %s", cfg.Platform)
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := sender.Connect(ctx); err != nil {
				return fmt.Errorf("connect %s: %w", sender.Platform(), err)
			}
			log.Sugar().Infow("Notifier connected", "platform", sender.Platform())
			ready.Signal()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Sugar().Infow("Notifier session closed", "platform", sender.Platform())
			return nil
		},
	})
	return sender, nil
}

type base struct {
	log       *zap.Logger
	cfg       *config.Config
	transport http.RoundTripper
}

func (b base) httpClient() *http.Client {
	return &http.Client{Transport: b.transport, Timeout: b.cfg.Poller.SendTimeout}
}

// Readiness is closed once the outbound session is live.
type Readiness struct {
	once sync.Once
	c    chan struct{}
}

func NewReadiness() *Readiness {
	return &Readiness{c: make(chan struct{})}
}

func (r *Readiness) Signal() {
	r.once.Do(func() { close(r.c) })
}

func (r *Readiness) Ready() <-chan struct{} {
	return r.c
}
