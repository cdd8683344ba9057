package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/preston-bernstein/live-matches/internal/domain/matches"
	"github.com/preston-bernstein/live-matches/internal/logging"
	"github.com/preston-bernstein/live-matches/internal/metrics"
	"github.com/preston-bernstein/live-matches/internal/providers"
	"github.com/preston-bernstein/live-matches/internal/store"
)

const defaultInterval = 7 * time.Second

// readyFailureThreshold is the number of consecutive failures after which a
// poller no longer counts as ready.
const readyFailureThreshold = 3

// Publisher receives a snapshot under the poller's key whenever it differs
// from the previous one.
type Publisher func(key string, snapshot []matches.Match)

// Options configures a Poller. Zero values fall back to defaults.
type Options struct {
	Identity string
	Filters  matches.Filters
	// Key names the snapshot in the cache and when publishing. Defaults to
	// Identity.
	Key      string
	Interval time.Duration
	Cache    *store.SnapshotCache
	Publish  Publisher
	Logger   *slog.Logger
	Metrics  *metrics.Recorder
	Clock    clockwork.Clock
}

// Poller fetches one identity's snapshot under a fixed filter set on an
// interval and publishes it when it changes.
type Poller struct {
	provider providers.MatchProvider
	identity string
	filters  matches.Filters
	key      string
	cache    *store.SnapshotCache
	publish  Publisher
	logger   *slog.Logger
	metrics  *metrics.Recorder
	interval time.Duration
	clock    clockwork.Clock

	ticker   clockwork.Ticker
	done     chan struct{}
	exited   chan struct{}
	stopOnce sync.Once
	startMu  sync.Mutex
	started  bool

	statusMu sync.RWMutex
	status   Status
}

// Status describes the recent health of the poller loop.
type Status struct {
	ConsecutiveFailures int
	LastError           string
	LastAttempt         time.Time
	LastSuccess         time.Time
}

// IsReady reports whether the poller has had a recent success and is not failing repeatedly.
func (s Status) IsReady() bool {
	if s.LastSuccess.IsZero() {
		return false
	}
	return s.ConsecutiveFailures < readyFailureThreshold
}

// Failing reports whether the upstream has failed too many times in a row.
func (s Status) Failing() bool {
	return s.ConsecutiveFailures >= readyFailureThreshold
}

// New constructs a Poller with sane defaults.
func New(provider providers.MatchProvider, opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Key == "" {
		opts.Key = opts.Identity
	}
	return &Poller{
		provider: provider,
		identity: opts.Identity,
		filters:  opts.Filters,
		key:      opts.Key,
		cache:    opts.Cache,
		publish:  opts.Publish,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		interval: opts.Interval,
		clock:    opts.Clock,
		done:     make(chan struct{}),
		exited:   make(chan struct{}),
	}
}

// Start begins polling until the context is cancelled or Stop is called.
func (p *Poller) Start(ctx context.Context) {
	p.startMu.Lock()
	if p.started {
		p.startMu.Unlock()
		return
	}
	p.started = true
	p.startMu.Unlock()

	p.ticker = p.clock.NewTicker(p.interval)

	go func() {
		defer close(p.exited)
		p.logInfo("poller started", slog.Int64(logging.FieldDurationMS, p.interval.Milliseconds()))
		p.fetchOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				p.stopTicker()
				p.logInfo("poller stopped")
				return
			case <-p.done:
				p.stopTicker()
				p.logInfo("poller stopped")
				return
			case <-p.ticker.Chan():
				p.fetchOnce(ctx)
			}
		}
	}()
}

// Stop halts the polling loop and waits for it to exit or ctx to end.
func (p *Poller) Stop(ctx context.Context) error {
	p.stopOnce.Do(func() {
		close(p.done)
	})
	p.startMu.Lock()
	started := p.started
	p.startMu.Unlock()
	if !started {
		return nil
	}
	select {
	case <-p.exited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Poller) fetchOnce(ctx context.Context) {
	start := p.clock.Now()
	p.recordAttempt(start)
	list, err := p.provider.FetchMatches(ctx, p.identity, p.filters)
	elapsed := p.clock.Since(start)
	p.metrics.RecordPollerCycle(elapsed, err)
	if err != nil {
		p.logError("poller fetch failed", err, slog.Int64(logging.FieldDurationMS, elapsed.Milliseconds()))
		p.recordFailure(err, start)
		return
	}

	changed := true
	if p.cache != nil {
		changed = p.cache.Put(p.key, list, start)
	}
	p.recordSuccess(start)
	if changed && p.publish != nil {
		p.publish(p.key, list)
	}
	p.logDebug("poller refreshed matches",
		logging.FieldCount, len(list),
		logging.FieldDurationMS, elapsed.Milliseconds(),
		"changed", changed,
	)
}

func (p *Poller) stopTicker() {
	if p.ticker != nil {
		p.ticker.Stop()
	}
}

func (p *Poller) logInfo(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, append(args, logging.FieldIdentity, p.identity)...)
	}
}

func (p *Poller) logDebug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, append(args, logging.FieldIdentity, p.identity)...)
	}
}

func (p *Poller) logError(msg string, err error, attrs ...any) {
	if p.logger != nil {
		p.logger.Error(msg, append(attrs, logging.FieldIdentity, p.identity, "error", err)...)
	}
}

func (p *Poller) recordAttempt(at time.Time) {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	p.status.LastAttempt = at
}

func (p *Poller) recordSuccess(at time.Time) {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	p.status.ConsecutiveFailures = 0
	p.status.LastError = ""
	p.status.LastSuccess = at
}

func (p *Poller) recordFailure(err error, at time.Time) {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	p.status.ConsecutiveFailures++
	if err != nil {
		p.status.LastError = err.Error()
	}
	p.status.LastAttempt = at
}

// Status returns a snapshot of the poller's recent health.
func (p *Poller) Status() Status {
	p.statusMu.RLock()
	defer p.statusMu.RUnlock()
	return p.status
}

// Identity returns the identity this poller fetches for.
func (p *Poller) Identity() string {
	return p.identity
}
