package store

import (
	"testing"
	"time"

	"github.com/preston-bernstein/live-matches/internal/domain/matches"
)

func TestSnapshotCachePutReportsChanges(t *testing.T) {
	c, err := NewSnapshotCache(4)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	snap := []matches.Match{{ID: "a", Status: matches.StatusLive}}

	if !c.Put("u", snap, at) {
		t.Fatal("expected first put to be a change")
	}
	if c.Put("u", []matches.Match{{ID: "a", Status: matches.StatusLive}}, at.Add(time.Second)) {
		t.Fatal("expected identical snapshot not to be a change")
	}
	if !c.Put("u", []matches.Match{{ID: "a", Status: matches.StatusFinished}}, at.Add(2*time.Second)) {
		t.Fatal("expected status change to be reported")
	}

	e, ok := c.Get("u")
	if !ok || len(e.Matches) != 1 || e.Matches[0].Status != matches.StatusFinished {
		t.Fatalf("unexpected entry %+v", e)
	}
	if !e.UpdatedAt.Equal(at.Add(2 * time.Second)) {
		t.Fatalf("unexpected updated at %v", e.UpdatedAt)
	}
}

func TestSnapshotCacheGetReturnsCopy(t *testing.T) {
	c, _ := NewSnapshotCache(1)
	c.Put("u", []matches.Match{{ID: "a"}}, time.Time{})
	e, _ := c.Get("u")
	e.Matches[0].ID = "mutated"
	again, _ := c.Get("u")
	if again.Matches[0].ID != "a" {
		t.Fatalf("expected cached snapshot to be isolated, got %+v", again)
	}
}

func TestSnapshotCacheEvictsAndRemoves(t *testing.T) {
	c, _ := NewSnapshotCache(1)
	c.Put("a", nil, time.Time{})
	c.Put("b", nil, time.Time{})
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected least recently used identity to be evicted")
	}
	e, ok := c.Get("b")
	if !ok || e.Matches == nil {
		t.Fatalf("expected empty non-nil snapshot for b, got %+v", e)
	}
	c.Remove("b")
	if c.Len() != 0 {
		t.Fatalf("expected empty cache, got %d", c.Len())
	}
}

func TestNewSnapshotCacheDefaultsSize(t *testing.T) {
	c, err := NewSnapshotCache(0)
	if err != nil || c == nil {
		t.Fatalf("expected default cache, got %v", err)
	}
}
