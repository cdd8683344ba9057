package testutil

import (
	"time"

	"github.com/preston-bernstein/live-matches/internal/domain/matches"
)

var fixtureKickoff = time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC)

// SampleMatch returns a minimal upcoming match fixture with the provided id.
func SampleMatch(id string) matches.Match {
	return matches.Match{
		ID:          id,
		HomeTeam:    "Home " + id,
		AwayTeam:    "Away " + id,
		Status:      matches.StatusUpcoming,
		StartTime:   fixtureKickoff,
		League:      "Test League",
		Competition: "Test Cup",
	}
}

// SampleSnapshot builds a snapshot with one sample match per id, in order.
func SampleSnapshot(ids ...string) []matches.Match {
	out := make([]matches.Match, 0, len(ids))
	for _, id := range ids {
		out = append(out, SampleMatch(id))
	}
	return out
}

// LiveMatch returns a live match fixture with the given score.
func LiveMatch(id string, home, away int) matches.Match {
	m := SampleMatch(id)
	m.Status = matches.StatusLive
	m.HomeScore = matches.Score(home)
	m.AwayScore = matches.Score(away)
	return m
}
