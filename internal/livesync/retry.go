package livesync

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPhase is the state of the retry scheduler.
type RetryPhase int

const (
	RetryIdle RetryPhase = iota
	RetryPending
	RetryExhausted
)

func (p RetryPhase) String() string {
	switch p {
	case RetryPending:
		return "pending"
	case RetryExhausted:
		return "exhausted"
	default:
		return "idle"
	}
}

// RetryStatus is a read-only view of the scheduler.
type RetryStatus struct {
	Phase   RetryPhase
	Attempt int
	Delay   time.Duration
	// At is the instant the next retry fires. It is zero while no retry is
	// armed, including while a fired retry is still in flight.
	At time.Time
}

// RetryScheduler produces bounded exponential retry deadlines: with a base of
// one second the delays are 2s, 4s and 8s, after which it is exhausted.
type RetryScheduler struct {
	policy  backoff.BackOff
	phase   RetryPhase
	attempt int
	delay   time.Duration
	at      time.Time
}

// NewRetryScheduler builds a scheduler whose n-th delay is 2^n * base for
// n = 1..maxAttempts.
func NewRetryScheduler(base time.Duration, maxAttempts int) *RetryScheduler {
	if base <= 0 {
		base = time.Second
	}
	if maxAttempts < 0 {
		maxAttempts = 0
	}
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 2 * base
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxInterval = base << (maxAttempts + 1)
	exp.MaxElapsedTime = 0
	exp.Reset()
	return &RetryScheduler{
		policy: backoff.WithMaxRetries(exp, uint64(maxAttempts)),
	}
}

// Next records a failure at now and arms the next retry. It returns false
// once the attempt budget is spent; the scheduler is then Exhausted.
func (r *RetryScheduler) Next(now time.Time) (time.Duration, bool) {
	if r.phase == RetryExhausted {
		return 0, false
	}
	d := r.policy.NextBackOff()
	if d == backoff.Stop {
		r.phase = RetryExhausted
		r.delay = 0
		r.at = time.Time{}
		return 0, false
	}
	r.attempt++
	r.phase = RetryPending
	r.delay = d
	r.at = now.Add(d)
	return d, true
}

// Reset returns to Idle with the attempt counter at zero and cancels any
// armed retry.
func (r *RetryScheduler) Reset() {
	r.policy.Reset()
	r.phase = RetryIdle
	r.attempt = 0
	r.delay = 0
	r.at = time.Time{}
}

// Deadline returns the armed retry instant.
func (r *RetryScheduler) Deadline() (time.Time, bool) {
	return r.at, !r.at.IsZero()
}

// Fire disarms the retry when it is due at now and reports whether it was.
// The phase stays Pending until the retried fetch resolves.
func (r *RetryScheduler) Fire(now time.Time) bool {
	if r.at.IsZero() || now.Before(r.at) {
		return false
	}
	r.at = time.Time{}
	return true
}

// Phase returns the current phase.
func (r *RetryScheduler) Phase() RetryPhase {
	return r.phase
}

// Status returns a copy of the scheduler state.
func (r *RetryScheduler) Status() RetryStatus {
	return RetryStatus{Phase: r.phase, Attempt: r.attempt, Delay: r.delay, At: r.at}
}
