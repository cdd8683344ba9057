package fixture

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/preston-bernstein/live-matches/internal/domain/matches"
	"github.com/preston-bernstein/live-matches/internal/providers"
)

const (
	// DefaultRotation is how often the fixture window slides by one match.
	DefaultRotation = 30 * time.Second
	windowSize      = 6
)

type template struct {
	home, away, league, competition, venue string
}

var roster = []template{
	{"Arsenal", "Chelsea", "Premier League", "League", "Emirates Stadium"},
	{"Barcelona", "Sevilla", "La Liga", "League", "Camp Nou"},
	{"Bayern Munich", "Dortmund", "Bundesliga", "League", "Allianz Arena"},
	{"Inter", "Napoli", "Serie A", "League", "San Siro"},
	{"PSG", "Lyon", "Ligue 1", "League", "Parc des Princes"},
	{"Liverpool", "Everton", "Premier League", "FA Cup", "Anfield"},
	{"Ajax", "PSV", "Eredivisie", "League", "Johan Cruyff Arena"},
	{"Benfica", "Porto", "Primeira Liga", "League", "Estadio da Luz"},
	{"Celtic", "Rangers", "Premiership", "League", "Celtic Park"},
	{"Real Madrid", "Atletico Madrid", "La Liga", "Copa del Rey", "Bernabeu"},
}

// Provider serves a deterministic, slowly rotating set of matches useful for
// local testing. Every rotation one match drops off and another appears, and
// live scores move.
type Provider struct {
	now      func() time.Time
	epoch    time.Time
	rotation time.Duration
}

// New creates a fixture provider on the wall clock.
func New() *Provider {
	return NewWithClock(time.Now, DefaultRotation)
}

// NewWithClock creates a fixture provider whose window is derived from now.
func NewWithClock(now func() time.Time, rotation time.Duration) *Provider {
	if rotation <= 0 {
		rotation = DefaultRotation
	}
	return &Provider{
		now:      now,
		epoch:    now().UTC().Truncate(time.Hour),
		rotation: rotation,
	}
}

// FetchMatches returns the current window filtered by filters.
func (p *Provider) FetchMatches(ctx context.Context, identity string, filters matches.Filters) ([]matches.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, providers.Classify(err)
	}
	if strings.TrimSpace(identity) == "" {
		return nil, providers.Unauthorized("username is required")
	}
	tick := int(p.now().Sub(p.epoch) / p.rotation)
	if tick < 0 {
		tick = 0
	}
	return matches.Apply(Snapshot(tick, p.epoch, p.rotation), filters, nil), nil
}

// Snapshot builds the window for the given tick. Position in the window
// decides the status: the oldest matches are finished, the middle ones live
// and the newest upcoming.
func Snapshot(tick int, epoch time.Time, rotation time.Duration) []matches.Match {
	out := make([]matches.Match, 0, windowSize)
	for pos := 0; pos < windowSize; pos++ {
		seq := tick + pos
		tpl := roster[seq%len(roster)]
		m := matches.Match{
			ID:          "fixture-" + strconv.Itoa(seq),
			HomeTeam:    tpl.home,
			AwayTeam:    tpl.away,
			League:      tpl.league,
			Competition: tpl.competition,
			Venue:       tpl.venue,
			StartTime:   epoch.Add(time.Duration(seq) * rotation),
		}
		switch {
		case pos < 2:
			m.Status = matches.StatusFinished
			m.HomeScore = matches.Score((seq * 3) % 4)
			m.AwayScore = matches.Score((seq * 5) % 3)
		case pos < 4:
			m.Status = matches.StatusLive
			m.HomeScore = matches.Score((seq*3)%4 - (3 - pos))
			m.AwayScore = matches.Score((seq*5)%3 - (3 - pos))
			clampScore(m.HomeScore)
			clampScore(m.AwayScore)
		default:
			m.Status = matches.StatusUpcoming
		}
		out = append(out, m)
	}
	return out
}

func clampScore(v *int) {
	if *v < 0 {
		*v = 0
	}
}
