package providers

import (
	"context"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/preston-bernstein/live-matches/internal/domain/matches"
)

// rateLimitedProvider wraps a MatchProvider and bounds the upstream call rate.
type rateLimitedProvider struct {
	next    MatchProvider
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewRateLimitedProvider returns a MatchProvider that waits for a token before
// each call. Calls block until a token is available or ctx is done.
func NewRateLimitedProvider(next MatchProvider, perSecond float64, burst int, logger *slog.Logger) MatchProvider {
	if perSecond <= 0 {
		perSecond = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &rateLimitedProvider{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		logger:  logger,
	}
}

func (p *rateLimitedProvider) FetchMatches(ctx context.Context, identity string, filters matches.Filters) ([]matches.Match, error) {
	if p == nil || p.next == nil {
		if p != nil {
			logWithProvider(ctx, p.logger, slog.LevelWarn, "rate-limited", "provider unavailable")
		}
		return nil, ErrProviderUnavailable
	}
	if err := p.limiter.Wait(ctx); err != nil {
		logWithProvider(ctx, p.logger, slog.LevelWarn, "rate-limited", "rate-limited fetch canceled", "error", err)
		return nil, Classify(err)
	}
	return p.next.FetchMatches(ctx, identity, filters)
}
