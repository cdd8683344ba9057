package fixture

import (
	"context"
	"testing"
	"time"

	"github.com/preston-bernstein/live-matches/internal/domain/matches"
	"github.com/preston-bernstein/live-matches/internal/providers"
)

func TestFetchMatchesReturnsValidWindow(t *testing.T) {
	fixed := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	p := NewWithClock(func() time.Time { return fixed }, time.Minute)

	list, err := p.FetchMatches(context.Background(), "user@example.com", matches.Filters{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(list) != windowSize {
		t.Fatalf("expected %d matches, got %d", windowSize, len(list))
	}
	if err := matches.Validate(list); err != nil {
		t.Fatalf("expected valid snapshot, got %v", err)
	}
	if list[0].ID != "fixture-0" {
		t.Fatalf("unexpected first match %+v", list[0])
	}
}

func TestFetchMatchesRotates(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	p := NewWithClock(func() time.Time { return now }, time.Minute)

	first, _ := p.FetchMatches(context.Background(), "u", matches.Filters{})
	now = now.Add(time.Minute)
	second, _ := p.FetchMatches(context.Background(), "u", matches.Filters{})

	appeared := matches.Difference(matches.IDsOf(second), matches.IDsOf(first))
	disappeared := matches.Difference(matches.IDsOf(first), matches.IDsOf(second))
	if !appeared.Has("fixture-6") || appeared.Len() != 1 {
		t.Fatalf("expected fixture-6 to appear, got %v", appeared.Sorted())
	}
	if !disappeared.Has("fixture-0") || disappeared.Len() != 1 {
		t.Fatalf("expected fixture-0 to disappear, got %v", disappeared.Sorted())
	}
}

func TestFetchMatchesAppliesFilters(t *testing.T) {
	p := NewWithClock(func() time.Time { return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC) }, time.Minute)
	list, err := p.FetchMatches(context.Background(), "u", matches.Filters{Status: matches.StatusLive})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 live matches, got %d", len(list))
	}
	for _, m := range list {
		if m.Status != matches.StatusLive || !m.HasScore() {
			t.Fatalf("expected live match with score, got %+v", m)
		}
	}
}

func TestFetchMatchesRequiresIdentity(t *testing.T) {
	p := New()
	_, err := p.FetchMatches(context.Background(), " ", matches.Filters{})
	fe, ok := providers.AsFetchError(err)
	if !ok || fe.Kind != providers.KindUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestFetchMatchesCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().FetchMatches(ctx, "u", matches.Filters{}); err == nil {
		t.Fatal("expected error on canceled context")
	}
}
