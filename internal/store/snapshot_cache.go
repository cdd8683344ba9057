package store

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/preston-bernstein/live-matches/internal/domain/matches"
)

const defaultCacheSize = 256

// Entry is the latest snapshot seen for one identity.
type Entry struct {
	Matches   []matches.Match
	UpdatedAt time.Time
}

// SnapshotCache keeps the most recent snapshot per identity, bounded by an
// LRU so idle identities are eventually dropped.
type SnapshotCache struct {
	mu    sync.Mutex
	cache *lru.Cache[string, Entry]
}

// NewSnapshotCache constructs a cache holding at most size identities.
func NewSnapshotCache(size int) (*SnapshotCache, error) {
	if size <= 0 {
		size = defaultCacheSize
	}
	c, err := lru.New[string, Entry](size)
	if err != nil {
		return nil, err
	}
	return &SnapshotCache{cache: c}, nil
}

// Get returns a copy of the cached snapshot for identity.
func (s *SnapshotCache) Get(identity string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.cache.Get(identity)
	if !ok {
		return Entry{}, false
	}
	e.Matches = matches.Clone(e.Matches)
	return e, true
}

// Put stores snapshot for identity and reports whether it differs from the
// previously cached one. The first snapshot for an identity is a change.
func (s *SnapshotCache) Put(identity string, snapshot []matches.Match, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.cache.Peek(identity)
	changed := !ok || !matches.Equal(prev.Matches, snapshot)
	entry := Entry{Matches: matches.Clone(snapshot), UpdatedAt: at}
	if entry.Matches == nil {
		entry.Matches = []matches.Match{}
	}
	s.cache.Add(identity, entry)
	return changed
}

// Remove drops identity from the cache.
func (s *SnapshotCache) Remove(identity string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Remove(identity)
}

// Len returns the number of cached identities.
func (s *SnapshotCache) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Len()
}
