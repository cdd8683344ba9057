package matches

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Status mirrors the shared contract for match lifecycle states.
type Status string

const (
	StatusUpcoming Status = "upcoming"
	StatusLive     Status = "live"
	StatusFinished Status = "finished"
)

// Valid reports whether s is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusUpcoming, StatusLive, StatusFinished:
		return true
	default:
		return false
	}
}

var (
	// ErrDuplicateID is returned when a snapshot repeats a match ID.
	ErrDuplicateID = errors.New("duplicate match id in snapshot")
	// ErrMissingID is returned when a match has no ID.
	ErrMissingID = errors.New("match id is required")
)

// Match is one sporting fixture. ID is the only identity key; every other
// field may change between snapshots without changing identity.
type Match struct {
	ID          string    `json:"id"`
	HomeTeam    string    `json:"homeTeam"`
	AwayTeam    string    `json:"awayTeam"`
	HomeScore   *int      `json:"homeScore,omitempty"`
	AwayScore   *int      `json:"awayScore,omitempty"`
	Status      Status    `json:"status"`
	StartTime   time.Time `json:"startTime"`
	League      string    `json:"league"`
	Competition string    `json:"competition"`
	Venue       string    `json:"venue,omitempty"`
	Referee     string    `json:"referee,omitempty"`
}

// UnmarshalJSON accepts the legacy matchTime key as an alias for startTime.
func (m *Match) UnmarshalJSON(data []byte) error {
	type plain Match
	aux := struct {
		*plain
		MatchTime *time.Time `json:"matchTime,omitempty"`
	}{plain: (*plain)(m)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if m.StartTime.IsZero() && aux.MatchTime != nil {
		m.StartTime = *aux.MatchTime
	}
	return nil
}

// HasScore reports whether both scores are known.
func (m Match) HasScore() bool {
	return m.HomeScore != nil && m.AwayScore != nil
}

// ScoreLine renders "2 - 1" or "-" when the score is unknown.
func (m Match) ScoreLine() string {
	if !m.HasScore() {
		return "-"
	}
	return fmt.Sprintf("%d - %d", *m.HomeScore, *m.AwayScore)
}

// Score returns a pointer suitable for HomeScore/AwayScore.
func Score(v int) *int {
	return &v
}

// Validate checks the invariants of a single snapshot: every match has an ID,
// IDs are unique and statuses are known.
func Validate(snapshot []Match) error {
	seen := make(map[string]struct{}, len(snapshot))
	for i, m := range snapshot {
		if m.ID == "" {
			return fmt.Errorf("match %d: %w", i, ErrMissingID)
		}
		if _, dup := seen[m.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateID, m.ID)
		}
		seen[m.ID] = struct{}{}
		if !m.Status.Valid() {
			return fmt.Errorf("match %s: unknown status %q", m.ID, m.Status)
		}
	}
	return nil
}

// ListResponse is the object form of a snapshot payload.
type ListResponse struct {
	Matches     []Match   `json:"matches"`
	LastUpdated time.Time `json:"lastUpdated,omitempty"`
}

// NewListResponse builds a ListResponse payload, never with a nil list.
func NewListResponse(list []Match, at time.Time) ListResponse {
	if list == nil {
		list = []Match{}
	}
	return ListResponse{Matches: list, LastUpdated: at}
}

// Clone returns a copy of the snapshot slice. Score pointers are shared; they
// are never mutated in place.
func Clone(snapshot []Match) []Match {
	if snapshot == nil {
		return nil
	}
	out := make([]Match, len(snapshot))
	copy(out, snapshot)
	return out
}

// Equal reports whether two snapshots hold the same matches in the same order.
func Equal(a, b []Match) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].equal(b[i]) {
			return false
		}
	}
	return true
}

func (m Match) equal(o Match) bool {
	return m.ID == o.ID &&
		m.HomeTeam == o.HomeTeam &&
		m.AwayTeam == o.AwayTeam &&
		scoreEqual(m.HomeScore, o.HomeScore) &&
		scoreEqual(m.AwayScore, o.AwayScore) &&
		m.Status == o.Status &&
		m.StartTime.Equal(o.StartTime) &&
		m.League == o.League &&
		m.Competition == o.Competition &&
		m.Venue == o.Venue &&
		m.Referee == o.Referee
}

func scoreEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
