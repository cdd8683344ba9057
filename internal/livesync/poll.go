package livesync

import "time"

// PollScheduler fires on a fixed interval while it is running.
type PollScheduler struct {
	interval time.Duration
	next     time.Time
}

// NewPollScheduler builds a stopped scheduler.
func NewPollScheduler(interval time.Duration) *PollScheduler {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &PollScheduler{interval: interval}
}

// Start arms the first tick one interval after now.
func (p *PollScheduler) Start(now time.Time) {
	p.next = now.Add(p.interval)
}

// Stop disarms the scheduler.
func (p *PollScheduler) Stop() {
	p.next = time.Time{}
}

// Due reports whether a tick is due at now. A due tick is consumed and the
// next one armed on the original cadence, skipping any missed ticks.
func (p *PollScheduler) Due(now time.Time) bool {
	if p.next.IsZero() || now.Before(p.next) {
		return false
	}
	for !now.Before(p.next) {
		p.next = p.next.Add(p.interval)
	}
	return true
}

// Deadline returns the next tick instant.
func (p *PollScheduler) Deadline() (time.Time, bool) {
	return p.next, !p.next.IsZero()
}

// Interval returns the configured interval.
func (p *PollScheduler) Interval() time.Duration {
	return p.interval
}
