package matches

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// SortKey selects the ordering applied by Apply.
type SortKey string

const (
	SortByTime         SortKey = "time"
	SortByLeague       SortKey = "league"
	SortByAlphabetical SortKey = "alphabetical"
	SortByResult       SortKey = "result"
)

// SortOrder is the direction of a sort.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Query parameter names shared by the proxy and its clients.
const (
	ParamLeague    = "league"
	ParamStatus    = "status"
	ParamSearch    = "search"
	ParamSortBy    = "sortBy"
	ParamSortOrder = "sortOrder"
)

// Filters is a set of optional refinements. The server is expected to honor
// league, status, search and sorting; the rest are applied client side.
type Filters struct {
	League        string
	Competition   string
	Venue         string
	Status        Status
	Search        string
	SortBy        SortKey
	SortOrder     SortOrder
	FavoritesOnly bool
}

// Validate rejects unknown enum values.
func (f Filters) Validate() error {
	if f.Status != "" && !f.Status.Valid() {
		return fmt.Errorf("unknown status filter %q", f.Status)
	}
	switch f.SortBy {
	case "", SortByTime, SortByLeague, SortByAlphabetical, SortByResult:
	default:
		return fmt.Errorf("unknown sort key %q", f.SortBy)
	}
	switch f.SortOrder {
	case "", SortAsc, SortDesc:
	default:
		return fmt.Errorf("unknown sort order %q", f.SortOrder)
	}
	return nil
}

// Query encodes the server-honored subset as URL query values.
func (f Filters) Query() url.Values {
	q := url.Values{}
	setIf(q, ParamLeague, f.League)
	setIf(q, ParamStatus, string(f.Status))
	setIf(q, ParamSearch, f.Search)
	setIf(q, ParamSortBy, string(f.SortBy))
	setIf(q, ParamSortOrder, string(f.SortOrder))
	return q
}

// FiltersFromQuery is the inverse of Query.
func FiltersFromQuery(q url.Values) Filters {
	return Filters{
		League:    q.Get(ParamLeague),
		Status:    Status(q.Get(ParamStatus)),
		Search:    q.Get(ParamSearch),
		SortBy:    SortKey(q.Get(ParamSortBy)),
		SortOrder: SortOrder(q.Get(ParamSortOrder)),
	}
}

func setIf(q url.Values, key, val string) {
	if val != "" {
		q.Set(key, val)
	}
}

// Apply filters and sorts a snapshot for display. The input is not modified.
// isFavorite may be nil when FavoritesOnly is false.
func Apply(snapshot []Match, f Filters, isFavorite func(id string) bool) []Match {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]Match, 0, len(snapshot))
	for _, m := range snapshot {
		if f.League != "" && m.League != f.League {
			continue
		}
		if f.Competition != "" && m.Competition != f.Competition {
			continue
		}
		if f.Venue != "" && m.Venue != f.Venue {
			continue
		}
		if f.Status != "" && m.Status != f.Status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(m.HomeTeam), search) &&
			!strings.Contains(strings.ToLower(m.AwayTeam), search) {
			continue
		}
		if f.FavoritesOnly && (isFavorite == nil || !isFavorite(m.ID)) {
			continue
		}
		out = append(out, m)
	}
	if f.SortBy != "" {
		sortMatches(out, f.SortBy, f.SortOrder == SortDesc)
	}
	return out
}

func sortMatches(list []Match, key SortKey, desc bool) {
	less := func(a, b Match) bool {
		switch key {
		case SortByLeague:
			return a.League < b.League
		case SortByAlphabetical:
			return a.HomeTeam < b.HomeTeam
		case SortByResult:
			return goalTotal(a) < goalTotal(b)
		default:
			return a.StartTime.Before(b.StartTime)
		}
	}
	sort.SliceStable(list, func(i, j int) bool {
		if desc {
			return less(list[j], list[i])
		}
		return less(list[i], list[j])
	})
}

func goalTotal(m Match) int {
	total := 0
	if m.HomeScore != nil {
		total += *m.HomeScore
	}
	if m.AwayScore != nil {
		total += *m.AwayScore
	}
	return total
}

// Leagues returns the sorted unique league names of a snapshot.
func Leagues(snapshot []Match) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, m := range snapshot {
		if m.League == "" {
			continue
		}
		if _, ok := seen[m.League]; ok {
			continue
		}
		seen[m.League] = struct{}{}
		out = append(out, m.League)
	}
	sort.Strings(out)
	return out
}
