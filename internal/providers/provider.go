package providers

import (
	"context"

	"github.com/preston-bernstein/live-matches/internal/domain/matches"
)

//go:generate mockgen -destination=mocks/mock_provider.go -package=mocks . MatchProvider

// MatchProvider fetches the current match snapshot for an identity.
// The result is a full snapshot, never a delta. Filters are refinements the
// source is expected to honor; callers treat the result as authoritative
// either way. Failures should be *FetchError values (or classifiable by
// Classify).
type MatchProvider interface {
	FetchMatches(ctx context.Context, identity string, filters matches.Filters) ([]matches.Match, error)
}

// ProviderFunc adapts a function to MatchProvider.
type ProviderFunc func(ctx context.Context, identity string, filters matches.Filters) ([]matches.Match, error)

func (f ProviderFunc) FetchMatches(ctx context.Context, identity string, filters matches.Filters) ([]matches.Match, error) {
	return f(ctx, identity, filters)
}
