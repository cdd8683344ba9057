package livesync

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/preston-bernstein/live-matches/internal/domain/matches"
	"github.com/preston-bernstein/live-matches/internal/logging"
	"github.com/preston-bernstein/live-matches/internal/metrics"
	"github.com/preston-bernstein/live-matches/internal/providers"
	"github.com/preston-bernstein/live-matches/internal/push"
)

var (
	// ErrClosed is returned by controls invoked after Close.
	ErrClosed = errors.New("livesync: runner closed")
	// ErrNotStarted is returned by controls invoked before Start.
	ErrNotStarted = errors.New("livesync: runner not started")
)

// Options configures a Runner.
type Options struct {
	Identity string
	Filters  matches.Filters
	Config   Config
	Provider providers.MatchProvider
	// Push is optional; without it the runner relies on polling alone.
	Push PushChannel
	// Observer is called from the runner goroutine after every event with a
	// copy of the state. It must not block.
	Observer func(State)
	Logger   *slog.Logger
	Metrics  *metrics.Recorder
	Clock    clockwork.Clock
}

type event any

type fetchDone struct {
	req  FetchRequest
	list []matches.Match
	err  error
}

type pushSnapshot struct {
	list []matches.Match
}

type pushStateChanged struct {
	state push.State
}

type retryCmd struct{}

type filtersCmd struct {
	filters matches.Filters
}

// Runner drives one Session: it performs the fetches the session asks for,
// feeds push events into it and wakes it at its next deadline. All session
// mutation happens on the runner goroutine.
type Runner struct {
	session  *Session
	provider providers.MatchProvider
	push     PushChannel
	observer func(State)
	logger   *slog.Logger
	metrics  *metrics.Recorder
	clock    clockwork.Clock
	identity string

	events  chan event
	fetchWG sync.WaitGroup

	mu        sync.Mutex
	state     State
	cancel    context.CancelFunc
	done      chan struct{}
	closed    bool
	closeOnce sync.Once
}

// NewRunner builds a runner. Nothing happens until Start.
func NewRunner(opts Options) *Runner {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	s := NewSession(opts.Identity, opts.Filters, opts.Config)
	return &Runner{
		session:  s,
		provider: opts.Provider,
		push:     opts.Push,
		observer: opts.Observer,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		clock:    clock,
		identity: opts.Identity,
		events:   make(chan event),
		state:    s.State(),
	}
}

// Start issues the initial fetch, connects the push channel and begins
// polling. Calling Start twice, or after Close, is a no-op.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	if r.done != nil || r.closed {
		r.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	r.mu.Unlock()

	if r.push != nil {
		r.push.Start(ctx, push.Handlers{
			OnSnapshot: func(list []matches.Match) {
				r.post(ctx, pushSnapshot{list: list})
			},
			OnState: func(state push.State) {
				r.post(ctx, pushStateChanged{state: state})
			},
		})
	}

	go r.loop(ctx)
}

// Retry fetches immediately and resets the retry backoff.
func (r *Runner) Retry() error {
	return r.command(retryCmd{})
}

// SetFilters replaces the filter set and fetches immediately. Results of
// fetches issued under the previous filters are discarded.
func (r *Runner) SetFilters(f matches.Filters) error {
	if err := f.Validate(); err != nil {
		return err
	}
	return r.command(filtersCmd{filters: f})
}

// State returns a copy of the latest published state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.clone()
}

// Close stops the runner and the push channel and waits for in-flight
// fetches to be abandoned. No state changes after Close returns.
func (r *Runner) Close() error {
	var err error
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		cancel, done := r.cancel, r.done
		r.mu.Unlock()
		if cancel != nil {
			cancel()
			<-done
		}
		if r.push != nil {
			err = r.push.Close()
		}
		r.fetchWG.Wait()
		r.session.Close()
		logging.Debug(r.logger, "live sync stopped", logging.FieldIdentity, r.identity)
	})
	return err
}

func (r *Runner) command(ev event) error {
	r.mu.Lock()
	done, closed := r.done, r.closed
	r.mu.Unlock()
	if done == nil {
		if closed {
			return ErrClosed
		}
		return ErrNotStarted
	}
	select {
	case r.events <- ev:
		return nil
	case <-done:
		return ErrClosed
	}
}

func (r *Runner) post(ctx context.Context, ev event) {
	if ctx.Err() != nil {
		return
	}
	select {
	case r.events <- ev:
	case <-ctx.Done():
	}
}

func (r *Runner) loop(ctx context.Context) {
	defer close(r.done)

	if req, ok := r.session.Start(r.clock.Now()); ok {
		r.fetch(ctx, req)
	}
	r.publish()

	for {
		var (
			timer clockwork.Timer
			fire  <-chan time.Time
		)
		if deadline, ok := r.session.NextDeadline(); ok {
			wait := deadline.Sub(r.clock.Now())
			if wait <= 0 {
				r.tick(ctx)
				continue
			}
			timer = r.clock.NewTimer(wait)
			fire = timer.Chan()
		}

		select {
		case <-ctx.Done():
			stopTimer(timer)
			return
		case ev := <-r.events:
			stopTimer(timer)
			r.handle(ctx, ev)
			r.publish()
		case <-fire:
			r.tick(ctx)
		}
	}
}

func (r *Runner) tick(ctx context.Context) {
	for _, req := range r.session.Tick(r.clock.Now()) {
		r.fetch(ctx, req)
	}
	r.publish()
}

func stopTimer(t clockwork.Timer) {
	if t != nil {
		t.Stop()
	}
}

func (r *Runner) handle(ctx context.Context, ev event) {
	now := r.clock.Now()
	switch ev := ev.(type) {
	case fetchDone:
		out := r.session.HandleFetchResult(now, ev.req.Seq, ev.list, ev.err)
		r.report(SourceFetch, ev.req, out, ev.err)
	case pushSnapshot:
		out := r.session.HandlePush(now, ev.list)
		r.report(SourcePush, FetchRequest{}, out, nil)
	case pushStateChanged:
		r.session.HandlePushState(ev.state)
		logging.Debug(r.logger, "push state changed", logging.FieldIdentity, r.identity, logging.FieldPushState, ev.state.String())
	case retryCmd:
		if req, ok := r.session.Retry(now); ok {
			r.fetch(ctx, req)
		}
	case filtersCmd:
		req, ok := r.session.SetFilters(now, ev.filters)
		if !ok {
			return
		}
		if fp, filtered := r.push.(FilteredPushChannel); filtered {
			r.session.AwaitPushResync()
			fp.SetFilters(ev.filters)
		}
		r.fetch(ctx, req)
	}
}

func (r *Runner) report(source Source, req FetchRequest, out Outcome, err error) {
	switch {
	case out.Stale && source == SourcePush:
		logging.Debug(r.logger, "discarding push snapshot for previous filters", logging.FieldIdentity, r.identity)
	case out.Stale:
		logging.Debug(r.logger, "discarding stale fetch result",
			logging.FieldIdentity, r.identity,
			logging.FieldSeq, req.Seq,
			logging.FieldOrigin, string(req.Origin),
		)
	case out.Applied:
		r.metrics.RecordReconcile(string(source), out.Diff.Appeared.Len(), out.Diff.Disappeared.Len())
		if !out.Diff.Empty() {
			logging.Debug(r.logger, "matches reconciled",
				logging.FieldIdentity, r.identity,
				logging.FieldAppeared, out.Diff.Appeared.Len(),
				logging.FieldDisappeared, out.Diff.Disappeared.Len(),
			)
		}
	case out.Retry:
		logging.Info(r.logger, "fetch failed, retry scheduled",
			logging.FieldIdentity, r.identity,
			logging.FieldOrigin, string(req.Origin),
			logging.FieldDelayMS, out.RetryIn.Milliseconds(),
			"error", err,
		)
	case out.Exhausted:
		logging.Warn(r.logger, "fetch failed, retries exhausted",
			logging.FieldIdentity, r.identity,
			"error", err,
		)
	case err != nil:
		logging.Warn(r.logger, "fetch failed",
			logging.FieldIdentity, r.identity,
			logging.FieldOrigin, string(req.Origin),
			"error", err,
		)
	}
}

func (r *Runner) fetch(ctx context.Context, req FetchRequest) {
	r.fetchWG.Add(1)
	go func() {
		defer r.fetchWG.Done()
		start := r.clock.Now()
		list, err := r.provider.FetchMatches(ctx, req.Identity, req.Filters)
		kind := ""
		if err != nil {
			kind = providers.Classify(err).Kind.String()
		}
		r.metrics.RecordFetch(string(req.Origin), kind, r.clock.Since(start))
		r.post(ctx, fetchDone{req: req, list: list, err: err})
	}()
}

func (r *Runner) publish() {
	st := r.session.State()
	r.mu.Lock()
	r.state = st
	r.mu.Unlock()
	if r.observer != nil {
		r.observer(st.clone())
	}
}
