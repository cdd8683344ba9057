package testutil

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// NowAt returns a clock function fixed at the provided time.
func NowAt(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// MustParseRFC3339 parses an RFC3339 timestamp or panics; intended for tests.
func MustParseRFC3339(v string) time.Time {
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		panic(err)
	}
	return t
}

// FakeClock returns a clockwork fake clock anchored at a fixed instant.
func FakeClock() *clockwork.FakeClock {
	return clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
}
