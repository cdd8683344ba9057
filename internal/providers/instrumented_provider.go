package providers

import (
	"context"
	"log/slog"
	"time"

	"github.com/preston-bernstein/live-matches/internal/domain/matches"
	"github.com/preston-bernstein/live-matches/internal/logging"
	"github.com/preston-bernstein/live-matches/internal/metrics"
)

// instrumentedProvider records every call to the wrapped provider and
// normalises failures into *FetchError.
type instrumentedProvider struct {
	inner   MatchProvider
	logger  *slog.Logger
	metrics *metrics.Recorder
	name    string
	now     func() time.Time
}

// NewInstrumentedProvider wraps inner with metrics and logging.
func NewInstrumentedProvider(inner MatchProvider, logger *slog.Logger, recorder *metrics.Recorder, name string) MatchProvider {
	if name == "" {
		name = "provider"
	}
	return &instrumentedProvider{
		inner:   inner,
		logger:  logger,
		metrics: recorder,
		name:    name,
		now:     time.Now,
	}
}

func (p *instrumentedProvider) FetchMatches(ctx context.Context, identity string, filters matches.Filters) ([]matches.Match, error) {
	if p.inner == nil {
		return nil, ErrProviderUnavailable
	}
	start := p.now()
	list, err := p.inner.FetchMatches(ctx, identity, filters)
	elapsed := p.now().Sub(start)
	p.metrics.RecordProviderAttempt(p.name, elapsed, err)

	logger := logging.FromContext(ctx, p.logger)
	if err != nil {
		fe := Classify(err)
		logWithProvider(ctx, logger, slog.LevelWarn, p.name, "provider fetch failed",
			logging.FieldErrorKind, fe.Kind.String(),
			logging.FieldDurationMS, elapsed.Milliseconds(),
			"error", fe,
		)
		return nil, fe
	}
	logWithProvider(ctx, logger, slog.LevelDebug, p.name, "provider fetch succeeded",
		logging.FieldCount, len(list),
		logging.FieldDurationMS, elapsed.Milliseconds(),
	)
	return list, nil
}
