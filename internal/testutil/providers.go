package testutil

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/preston-bernstein/live-matches/internal/domain/matches"
)

// StubResponse is one scripted provider outcome.
type StubResponse struct {
	Matches []matches.Match
	Err     error
}

// StubProvider replays Responses in order and then repeats the last one.
// It records the identity and filters of the most recent call.
type StubProvider struct {
	Responses []StubResponse
	Calls     atomic.Int32
	Notify    chan struct{}

	mu           sync.Mutex
	lastIdentity string
	lastFilters  matches.Filters
}

// FetchMatches returns the next scripted response.
func (s *StubProvider) FetchMatches(ctx context.Context, identity string, filters matches.Filters) ([]matches.Match, error) {
	_ = ctx
	n := int(s.Calls.Add(1))
	s.mu.Lock()
	s.lastIdentity = identity
	s.lastFilters = filters
	s.mu.Unlock()
	if s.Notify != nil {
		select {
		case s.Notify <- struct{}{}:
		default:
		}
	}
	if len(s.Responses) == 0 {
		return []matches.Match{}, nil
	}
	idx := n - 1
	if idx >= len(s.Responses) {
		idx = len(s.Responses) - 1
	}
	resp := s.Responses[idx]
	return matches.Clone(resp.Matches), resp.Err
}

// LastCall returns the identity and filters of the most recent call.
func (s *StubProvider) LastCall() (string, matches.Filters) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastIdentity, s.lastFilters
}

// GoodProvider returns the provided matches with no error.
type GoodProvider struct {
	Matches []matches.Match
}

func (p GoodProvider) FetchMatches(ctx context.Context, identity string, filters matches.Filters) ([]matches.Match, error) {
	return matches.Clone(p.Matches), nil
}

// ErrProvider always returns the provided error.
type ErrProvider struct {
	Err error
}

func (p ErrProvider) FetchMatches(ctx context.Context, identity string, filters matches.Filters) ([]matches.Match, error) {
	return nil, p.Err
}

// BlockingProvider holds every call until Release is closed or ctx is done.
type BlockingProvider struct {
	Matches []matches.Match
	Release chan struct{}
	Started chan struct{}
}

func (p *BlockingProvider) FetchMatches(ctx context.Context, identity string, filters matches.Filters) ([]matches.Match, error) {
	if p.Started != nil {
		select {
		case p.Started <- struct{}{}:
		default:
		}
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.Release:
		return matches.Clone(p.Matches), nil
	}
}
