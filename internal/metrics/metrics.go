package metrics

import (
	"sync"
	"time"
)

type providerStats struct {
	calls           int
	errors          int
	lastCallLatency time.Duration
}

// Recorder captures lightweight, in-memory metrics and forwards them to
// OpenTelemetry instruments when configured. A nil Recorder is a no-op.
type Recorder struct {
	mu    sync.Mutex
	stats map[string]*providerStats

	pushConnections int
	pushBroadcasts  int
	reconciliations int
	fetchFailures   map[string]int

	otel *otelInstruments
}

func NewRecorder() *Recorder {
	return newRecorder(nil)
}

func newRecorder(otel *otelInstruments) *Recorder {
	return &Recorder{
		stats:         make(map[string]*providerStats),
		fetchFailures: make(map[string]int),
		otel:          otel,
	}
}

// RecordProviderAttempt increments counters for a provider call and stores the last observed latency.
func (r *Recorder) RecordProviderAttempt(provider string, duration time.Duration, err error) {
	if r == nil {
		return
	}
	r.mu.Lock()
	stats := r.ensureStatsLocked(provider)
	stats.calls++
	stats.lastCallLatency = duration
	if err != nil {
		stats.errors++
	}
	r.mu.Unlock()
	if r.otel != nil {
		r.otel.recordProviderAttempt(provider, duration, err)
	}
}

// RecordHTTPRequest tracks basic HTTP metrics.
func (r *Recorder) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if r == nil || r.otel == nil {
		return
	}
	r.otel.recordHTTPRequest(method, path, status, duration)
}

// RecordPollerCycle tracks upstream poller cycles and errors.
func (r *Recorder) RecordPollerCycle(duration time.Duration, err error) {
	if r == nil || r.otel == nil {
		return
	}
	r.otel.recordPoller(duration, err)
}

// RecordPushConnection tracks websocket connections opening (+1) and closing (-1).
func (r *Recorder) RecordPushConnection(delta int) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.pushConnections += delta
	r.mu.Unlock()
	if r.otel != nil {
		r.otel.recordPushConnection(int64(delta))
	}
}

// RecordPushBroadcast counts matchUpdate messages delivered to clients.
func (r *Recorder) RecordPushBroadcast(recipients int) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.pushBroadcasts++
	r.mu.Unlock()
	if r.otel != nil {
		r.otel.recordPushBroadcast(int64(recipients))
	}
}

// RecordFetch tracks a client-side fetch outcome by origin (initial, poll,
// retry, manual, filters) and failure kind.
func (r *Recorder) RecordFetch(origin string, kind string, duration time.Duration) {
	if r == nil {
		return
	}
	if kind != "" {
		r.mu.Lock()
		r.fetchFailures[kind]++
		r.mu.Unlock()
	}
	if r.otel != nil {
		r.otel.recordFetch(origin, kind, duration)
	}
}

// RecordReconcile counts reconciliations and the size of their diffs.
func (r *Recorder) RecordReconcile(source string, appeared, disappeared int) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.reconciliations++
	r.mu.Unlock()
	if r.otel != nil {
		r.otel.recordReconcile(source, int64(appeared), int64(disappeared))
	}
}

// Snapshot returns a copy of the current stats for the provider.
type Snapshot struct {
	Calls           int
	Errors          int
	LastCallLatency time.Duration
}

func (r *Recorder) Snapshot(provider string) Snapshot {
	if r == nil {
		return Snapshot{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stats, ok := r.stats[provider]
	if !ok || stats == nil {
		return Snapshot{}
	}
	return Snapshot{
		Calls:           stats.calls,
		Errors:          stats.errors,
		LastCallLatency: stats.lastCallLatency,
	}
}

// ProviderCalls returns the total attempts recorded for a provider.
func (r *Recorder) ProviderCalls(provider string) int {
	return r.Snapshot(provider).Calls
}

// ProviderErrors returns the total failed attempts recorded for a provider.
func (r *Recorder) ProviderErrors(provider string) int {
	return r.Snapshot(provider).Errors
}

// PushConnections returns the number of open push connections.
func (r *Recorder) PushConnections() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pushConnections
}

// PushBroadcasts returns the number of broadcasts sent.
func (r *Recorder) PushBroadcasts() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pushBroadcasts
}

// Reconciliations returns the number of reconciliations recorded.
func (r *Recorder) Reconciliations() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reconciliations
}

// FetchFailures returns the number of failed fetches of the given kind.
func (r *Recorder) FetchFailures(kind string) int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fetchFailures[kind]
}

func (r *Recorder) ensureStatsLocked(provider string) *providerStats {
	stats, ok := r.stats[provider]
	if !ok {
		stats = &providerStats{}
		r.stats[provider] = stats
	}
	return stats
}
