package livesync

import (
	"time"

	"github.com/preston-bernstein/live-matches/internal/domain/matches"
	"github.com/preston-bernstein/live-matches/internal/providers"
	"github.com/preston-bernstein/live-matches/internal/push"
)

const (
	DefaultPollInterval    = 7 * time.Second
	DefaultHighlightWindow = time.Second
	DefaultRetryBase       = time.Second
	DefaultMaxRetries      = 3
)

// Origin says why a fetch was issued.
type Origin string

const (
	OriginInitial Origin = "initial"
	OriginPoll    Origin = "poll"
	OriginRetry   Origin = "retry"
	OriginManual  Origin = "manual"
	OriginFilters Origin = "filters"
)

// Source says where a reconciled snapshot came from.
type Source string

const (
	SourceFetch Source = "fetch"
	SourcePush  Source = "push"
)

// Config tunes a Session. Zero values fall back to the defaults above.
type Config struct {
	PollInterval    time.Duration
	HighlightWindow time.Duration
	RetryBase       time.Duration
	MaxRetries      int
	// SuppressInitialHighlight leaves Appeared empty on the first population.
	SuppressInitialHighlight bool
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.HighlightWindow <= 0 {
		c.HighlightWindow = DefaultHighlightWindow
	}
	if c.RetryBase <= 0 {
		c.RetryBase = DefaultRetryBase
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	return c
}

// FetchRequest asks the caller to perform one fetch and report the result
// back with the same Seq.
type FetchRequest struct {
	Seq      uint64
	Origin   Origin
	Identity string
	Filters  matches.Filters
}

// State is the reconciled view exposed to renderers.
type State struct {
	Identity            string
	Filters             matches.Filters
	Matches             []matches.Match
	Appeared            matches.IDSet
	Disappeared         matches.IDSet
	HighlightExpiry     time.Time
	LastSyncedAt        time.Time
	ConsecutiveFailures int
	Loading             bool
	Err                 *providers.FetchError
	Retry               RetryStatus
	Push                push.State
}

// Highlighted reports whether id is currently marked as appeared.
func (s State) Highlighted(id string) bool {
	return s.Appeared.Has(id)
}

func (s State) clone() State {
	out := s
	out.Matches = matches.Clone(s.Matches)
	out.Appeared = s.Appeared.Clone()
	out.Disappeared = s.Disappeared.Clone()
	return out
}

// Outcome describes what a fetch result or push event did to the session.
type Outcome struct {
	Applied   bool
	Stale     bool
	Diff      Diff
	Retry     bool
	RetryIn   time.Duration
	Exhausted bool
}

// Session is the synchronous sync state machine for one identity. It never
// performs I/O or reads a clock: every method takes the current instant and
// fetches are returned as requests for the caller to run. All mutation goes
// through its methods; once closed it ignores everything.
type Session struct {
	cfg      Config
	identity string
	filters  matches.Filters

	state     State
	populated bool

	retry *RetryScheduler
	poll  *PollScheduler

	seq      uint64
	latest   uint64
	minSeq   uint64
	inFlight map[uint64]Origin
	closed   bool

	pushResync bool
}

// NewSession creates an empty session for identity.
func NewSession(identity string, filters matches.Filters, cfg Config) *Session {
	cfg = cfg.withDefaults()
	return &Session{
		cfg:      cfg,
		identity: identity,
		filters:  filters,
		state: State{
			Identity:    identity,
			Filters:     filters,
			Matches:     []matches.Match{},
			Appeared:    matches.NewIDSet(),
			Disappeared: matches.NewIDSet(),
		},
		retry:    NewRetryScheduler(cfg.RetryBase, cfg.MaxRetries),
		poll:     NewPollScheduler(cfg.PollInterval),
		inFlight: make(map[uint64]Origin),
	}
}

// Start issues the initial fetch and arms polling.
func (s *Session) Start(now time.Time) (FetchRequest, bool) {
	if s.closed {
		return FetchRequest{}, false
	}
	s.poll.Start(now)
	return s.issue(OriginInitial), true
}

// Tick processes every deadline due at now: highlight expiry, the armed
// retry and the poll interval. A poll tick is skipped while any fetch is in
// flight; a due retry waits for the in-flight fetch to resolve.
func (s *Session) Tick(now time.Time) []FetchRequest {
	if s.closed {
		return nil
	}
	s.expireHighlight(now)

	var out []FetchRequest
	if len(s.inFlight) == 0 && s.retry.Fire(now) {
		out = append(out, s.issue(OriginRetry))
	}
	if s.poll.Due(now) && len(s.inFlight) == 0 {
		out = append(out, s.issue(OriginPoll))
	}
	return out
}

// HandleFetchResult applies the result of the fetch identified by seq.
// Results older than the newest already handled fetch are discarded.
func (s *Session) HandleFetchResult(now time.Time, seq uint64, list []matches.Match, err error) Outcome {
	if s.closed {
		return Outcome{Stale: true}
	}
	origin, known := s.inFlight[seq]
	delete(s.inFlight, seq)
	s.state.Loading = len(s.inFlight) > 0
	if !known || seq < s.latest || seq < s.minSeq {
		return Outcome{Stale: true}
	}
	s.latest = seq

	if err != nil {
		return s.fail(now, origin, providers.Classify(err))
	}
	return s.apply(now, list)
}

// HandlePush reconciles a pushed snapshot exactly like a successful fetch.
// Snapshots arriving between AwaitPushResync and the next StateConnected
// belong to the previous filters and are discarded.
func (s *Session) HandlePush(now time.Time, list []matches.Match) Outcome {
	if s.closed || s.pushResync {
		return Outcome{Stale: true}
	}
	return s.apply(now, list)
}

// HandlePushState records the push channel state. It never touches Err.
func (s *Session) HandlePushState(state push.State) {
	if s.closed {
		return
	}
	s.state.Push = state
	if state == push.StateConnected {
		s.pushResync = false
	}
}

// AwaitPushResync marks the push feed as following outdated filters until the
// channel reconnects.
func (s *Session) AwaitPushResync() {
	if s.closed {
		return
	}
	s.pushResync = true
}

// Retry is the manual refresh: it resets the retry scheduler and fetches
// at once, whatever the backoff state.
func (s *Session) Retry(now time.Time) (FetchRequest, bool) {
	if s.closed {
		return FetchRequest{}, false
	}
	s.retry.Reset()
	s.state.ConsecutiveFailures = 0
	return s.issue(OriginManual), true
}

// SetFilters replaces the filter set and fetches at once. Results of fetches
// issued under the old filters are discarded; Matches is kept so the next
// reconciliation highlights what the new filters added or removed.
func (s *Session) SetFilters(now time.Time, f matches.Filters) (FetchRequest, bool) {
	if s.closed {
		return FetchRequest{}, false
	}
	s.filters = f
	s.state.Filters = f
	s.retry.Reset()
	s.poll.Start(now)
	req := s.issue(OriginFilters)
	s.minSeq = req.Seq
	return req, true
}

// Close tears the session down. Every later call is a no-op.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.retry.Reset()
	s.poll.Stop()
	s.inFlight = make(map[uint64]Origin)
	s.state.Loading = false
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	return s.closed
}

// NextDeadline returns the earliest instant at which Tick has work to do.
func (s *Session) NextDeadline() (time.Time, bool) {
	if s.closed {
		return time.Time{}, false
	}
	var next time.Time
	consider := func(t time.Time, ok bool) {
		if ok && (next.IsZero() || t.Before(next)) {
			next = t
		}
	}
	if !s.state.HighlightExpiry.IsZero() {
		consider(s.state.HighlightExpiry, true)
	}
	if len(s.inFlight) == 0 {
		consider(s.retry.Deadline())
	}
	consider(s.poll.Deadline())
	return next, !next.IsZero()
}

// State returns a copy of the current state.
func (s *Session) State() State {
	out := s.state.clone()
	out.Retry = s.retry.Status()
	return out
}

// InFlight returns the number of unresolved fetches.
func (s *Session) InFlight() int {
	return len(s.inFlight)
}

func (s *Session) issue(origin Origin) FetchRequest {
	s.seq++
	s.inFlight[s.seq] = origin
	s.state.Loading = true
	return FetchRequest{Seq: s.seq, Origin: origin, Identity: s.identity, Filters: s.filters}
}

func (s *Session) apply(now time.Time, next []matches.Match) Outcome {
	diff := Reconcile(s.state.Matches, next)
	first := !s.populated
	s.populated = true

	s.state.Matches = matches.Clone(next)
	if s.state.Matches == nil {
		s.state.Matches = []matches.Match{}
	}
	if (first && s.cfg.SuppressInitialHighlight) || diff.Empty() {
		s.state.Appeared = matches.NewIDSet()
		s.state.Disappeared = matches.NewIDSet()
		s.state.HighlightExpiry = time.Time{}
	} else {
		s.state.Appeared = diff.Appeared
		s.state.Disappeared = diff.Disappeared
		s.state.HighlightExpiry = now.Add(s.cfg.HighlightWindow)
	}
	s.state.LastSyncedAt = now
	s.state.ConsecutiveFailures = 0
	s.state.Err = nil
	s.retry.Reset()
	return Outcome{Applied: true, Diff: diff}
}

func (s *Session) fail(now time.Time, origin Origin, fe *providers.FetchError) Outcome {
	s.state.Err = fe
	s.state.ConsecutiveFailures++

	out := Outcome{}
	switch {
	case !fe.Retryable():
		s.retry.Reset()
	case origin == OriginPoll && s.retry.Phase() != RetryIdle:
		// The scheduler already owns this failure streak.
	default:
		d, ok := s.retry.Next(now)
		out.Retry = ok
		out.RetryIn = d
		out.Exhausted = !ok
	}
	return out
}

func (s *Session) expireHighlight(now time.Time) {
	if s.state.HighlightExpiry.IsZero() || now.Before(s.state.HighlightExpiry) {
		return
	}
	s.state.Appeared = matches.NewIDSet()
	s.state.Disappeared = matches.NewIDSet()
	s.state.HighlightExpiry = time.Time{}
}
