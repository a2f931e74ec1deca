// Package poller runs the fetch, dedupe and fanout cycle on a fixed schedule.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/fiffu/bountywatch/config"
	"github.com/fiffu/bountywatch/lib/feed"
	"github.com/fiffu/bountywatch/lib/matcher"
	"github.com/fiffu/bountywatch/lib/models"
	"github.com/fiffu/bountywatch/lib/store"
	"github.com/fiffu/bountywatch/senders"
	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	ErrCycleInProgress = errors.New("a poll cycle is already running")
	ErrStopped         = errors.New("poller is stopped")
)

const defaultRetryBackoff = 500 * time.Millisecond

type Fetcher interface {
	Fetch(ctx context.Context) (models.FeedItems, error)
}

type TenantLister interface {
	TenantConfigs(ctx context.Context) (models.TenantConfigs, error)
}

type Matcher interface {
	Match(ctx context.Context, tenantID, location string) ([]string, error)
}

// Notifier is the slice of senders.Sender the poller needs.
type Notifier interface {
	SendBounty(ctx context.Context, destinationID, prefix string, n *models.Notification) (string, error)
	MentionUser(userID string) string
	MentionGroup(groupID string) string
}

type ReadySignal interface {
	Ready() <-chan struct{}
}

type Deps struct {
	Fetcher  Fetcher
	Ledger   store.Ledger
	Tenants  TenantLister
	Matcher  Matcher
	Notifier Notifier
	Ready    ReadySignal
	Stats    statsd.ClientInterface
}

type Poller struct {
	log *zap.Logger
	Deps

	linkBase     string
	interval     time.Duration
	sendTimeout  time.Duration
	retries      int
	retryBackoff time.Duration
	concurrency  int
	limiter      *rate.Limiter

	cron    *cron.Cron
	lcMu    sync.Mutex
	mu      sync.Mutex
	stopped bool
	quit    chan struct{}
	quitted sync.Once
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewPoller(
	lc fx.Lifecycle,
	cfg *config.Config,
	log *zap.Logger,
	fetcher *feed.Client,
	ledger store.Ledger,
	tenants *store.Store,
	m *matcher.Matcher,
	sender senders.Sender,
	ready *senders.Readiness,
	stats statsd.ClientInterface,
) *Poller {
	p := New(cfg, log, Deps{fetcher, ledger, tenants, m, sender, ready, stats})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return p.Start()
		},
		OnStop: func(ctx context.Context) error {
			log.Sugar().Info("Trying to stop poller")
			return p.Stop(ctx)
		},
	})

	return p
}

func New(cfg *config.Config, log *zap.Logger, deps Deps) *Poller {
	if deps.Stats == nil {
		deps.Stats = &statsd.NoOpClient{}
	}

	concurrency := cfg.Poller.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	limit, burst := rate.Inf, 1
	if cfg.Poller.SendRate > 0 {
		limit = rate.Limit(cfg.Poller.SendRate)
		burst = max(1, int(cfg.Poller.SendRate))
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Poller{
		log:  log,
		Deps: deps,

		linkBase:     cfg.Feed.LinkBase,
		interval:     cfg.PollInterval(),
		sendTimeout:  cfg.Poller.SendTimeout,
		retries:      max(0, cfg.Poller.SendRetries),
		retryBackoff: defaultRetryBackoff,
		concurrency:  concurrency,
		limiter:      rate.NewLimiter(limit, burst),

		quit:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start schedules the cycle. Nothing runs until the notifier is ready; the
// first cycle then runs immediately instead of waiting a full interval.
func (p *Poller) Start() error {
	logger := cronLogger{p.log.Sugar()}
	p.cron = cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	spec := fmt.Sprintf("@every %s", p.interval)
	if _, err := p.cron.AddFunc(spec, p.tick); err != nil {
		return fmt.Errorf("schedule poller: %w", err)
	}

	go func() {
		select {
		case <-p.Ready.Ready():
			p.tick()

			p.lcMu.Lock()
			defer p.lcMu.Unlock()
			select {
			case <-p.quit:
				return
			default:
			}
			p.cron.Start()
			p.log.Sugar().Infow("Poller started", "interval", p.interval.String())
		case <-p.quit:
		}
	}()
	return nil
}

// Stop prevents further cycles and waits for the in-flight one. If ctx
// expires first, the in-flight cycle is cancelled. Stop may be called more
// than once.
func (p *Poller) Stop(ctx context.Context) error {
	p.lcMu.Lock()
	p.quitted.Do(func() { close(p.quit) })
	if p.cron != nil {
		p.cron.Stop()
	}
	p.lcMu.Unlock()

	// Locking here to wait for in-flight cycles to finish
	done := make(chan struct{})
	go func() {
		p.mu.Lock()
		p.stopped = true
		p.mu.Unlock()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		p.log.Sugar().Info("Poller stopped")
		return nil
	case <-ctx.Done():
		p.cancel()
		return ctx.Err()
	}
}

// RunNow runs one cycle immediately, unless one is already running. The cycle
// outlives cancellation of ctx, since claimed items must still be dispatched.
func (p *Poller) RunNow(ctx context.Context) (*CycleReport, error) {
	if !p.mu.TryLock() {
		return nil, ErrCycleInProgress
	}
	defer p.mu.Unlock()

	if p.stopped {
		return nil, ErrStopped
	}
	return p.runCycle(context.WithoutCancel(ctx)), nil
}

func (p *Poller) tick() {
	select {
	case <-p.Ready.Ready():
	default:
		p.log.Sugar().Debug("Notifier not ready, skipping tick")
		return
	}

	if !p.mu.TryLock() {
		p.log.Sugar().Info("Previous cycle still running, skipping tick")
		return
	}
	defer p.mu.Unlock()

	if p.stopped {
		return
	}
	p.runCycle(p.ctx)
}

type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Errorw("cron: "+msg, append(keysAndValues, "err", err)...)
}
