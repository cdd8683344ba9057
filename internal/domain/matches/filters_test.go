package matches

import (
	"reflect"
	"testing"
	"time"
)

func sampleMatches() []Match {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return []Match{
		{ID: "1", HomeTeam: "Partizan", AwayTeam: "Zvezda", League: "Superliga", Competition: "League", Status: StatusLive, StartTime: base.Add(2 * time.Hour), HomeScore: Score(1), AwayScore: Score(1)},
		{ID: "2", HomeTeam: "Arsenal", AwayTeam: "Chelsea", League: "Premier League", Competition: "League", Status: StatusUpcoming, StartTime: base.Add(time.Hour), Venue: "Emirates"},
		{ID: "3", HomeTeam: "Inter", AwayTeam: "Milan", League: "Serie A", Competition: "Cup", Status: StatusFinished, StartTime: base, HomeScore: Score(3), AwayScore: Score(2)},
	}
}

func ids(list []Match) []string {
	out := make([]string, 0, len(list))
	for _, m := range list {
		out = append(out, m.ID)
	}
	return out
}

func TestApplyFilters(t *testing.T) {
	all := sampleMatches()
	cases := []struct {
		name string
		f    Filters
		fav  func(string) bool
		want []string
	}{
		{"no filters keeps order", Filters{}, nil, []string{"1", "2", "3"}},
		{"league", Filters{League: "Serie A"}, nil, []string{"3"}},
		{"competition", Filters{Competition: "League"}, nil, []string{"1", "2"}},
		{"venue", Filters{Venue: "Emirates"}, nil, []string{"2"}},
		{"status", Filters{Status: StatusLive}, nil, []string{"1"}},
		{"search home team case-insensitive", Filters{Search: "ARSE"}, nil, []string{"2"}},
		{"search away team", Filters{Search: "milan"}, nil, []string{"3"}},
		{"favorites only", Filters{FavoritesOnly: true}, func(id string) bool { return id == "3" }, []string{"3"}},
		{"favorites only without lookup", Filters{FavoritesOnly: true}, nil, []string{}},
		{"sort by time", Filters{SortBy: SortByTime}, nil, []string{"3", "2", "1"}},
		{"sort by time desc", Filters{SortBy: SortByTime, SortOrder: SortDesc}, nil, []string{"1", "2", "3"}},
		{"sort by league", Filters{SortBy: SortByLeague}, nil, []string{"2", "3", "1"}},
		{"sort alphabetical", Filters{SortBy: SortByAlphabetical}, nil, []string{"2", "3", "1"}},
		{"sort by result desc", Filters{SortBy: SortByResult, SortOrder: SortDesc}, nil, []string{"3", "1", "2"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ids(Apply(all, tc.f, tc.fav))
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
	if !reflect.DeepEqual(ids(all), []string{"1", "2", "3"}) {
		t.Fatal("expected Apply to leave its input untouched")
	}
}

func TestFiltersQueryRoundTrip(t *testing.T) {
	f := Filters{League: "Serie A", Status: StatusLive, Search: "inter", SortBy: SortByTime, SortOrder: SortDesc, Venue: "ignored"}
	q := f.Query()
	if q.Get(ParamLeague) != "Serie A" || q.Get(ParamSortOrder) != "desc" {
		t.Fatalf("unexpected query %v", q)
	}
	if q.Has("venue") {
		t.Fatal("expected venue to stay client side")
	}
	back := FiltersFromQuery(q)
	f.Venue = ""
	if back != f {
		t.Fatalf("expected %+v, got %+v", f, back)
	}
	if len(Filters{}.Query()) != 0 {
		t.Fatal("expected empty filters to encode nothing")
	}
}

func TestFiltersValidate(t *testing.T) {
	if err := (Filters{SortBy: SortByResult, SortOrder: SortAsc, Status: StatusFinished}).Validate(); err != nil {
		t.Fatalf("expected valid filters, got %v", err)
	}
	bad := []Filters{{Status: "paused"}, {SortBy: "venue"}, {SortOrder: "sideways"}}
	for _, f := range bad {
		if err := f.Validate(); err == nil {
			t.Fatalf("expected %+v to be rejected", f)
		}
	}
}

func TestLeagues(t *testing.T) {
	list := append(sampleMatches(), Match{ID: "4", League: "Serie A"}, Match{ID: "5"})
	got := Leagues(list)
	want := []string{"Premier League", "Serie A", "Superliga"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestIDSetOperations(t *testing.T) {
	a := NewIDSet("x", "y", "z")
	b := NewIDSet("y")
	diff := Difference(a, b)
	if !reflect.DeepEqual(diff.Sorted(), []string{"x", "z"}) {
		t.Fatalf("unexpected difference %v", diff.Sorted())
	}
	var nilSet IDSet
	if nilSet.Has("x") || nilSet.Len() != 0 {
		t.Fatal("expected nil set to be empty")
	}
	if nilSet.Clone() == nil {
		t.Fatal("expected clone of nil set to be non-nil")
	}
	if IDsOf(sampleMatches()).Len() != 3 {
		t.Fatal("expected three ids")
	}
}
