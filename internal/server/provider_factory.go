package server

import (
	"log/slog"

	"github.com/preston-bernstein/live-matches/internal/config"
	"github.com/preston-bernstein/live-matches/internal/metrics"
	"github.com/preston-bernstein/live-matches/internal/providers"
)

// providerFactory assembles the provider with shared wrappers (rate limit + instrumentation).
type providerFactory struct {
	logger  *slog.Logger
	metrics *metrics.Recorder
}

func newProviderFactory(logger *slog.Logger, metrics *metrics.Recorder) providerFactory {
	return providerFactory{logger: logger, metrics: metrics}
}

func (f providerFactory) build(cfg config.Config) providers.MatchProvider {
	return f.wrap(cfg, selectProvider(cfg, f.logger))
}

// wrap bounds the upstream call rate across every poller and proxy request,
// then records each attempt under the provider's name.
func (f providerFactory) wrap(cfg config.Config, base providers.MatchProvider) providers.MatchProvider {
	limited := providers.NewRateLimitedProvider(base, cfg.Upstream.RatePerSec, cfg.Upstream.Burst, f.logger)
	return providers.NewInstrumentedProvider(limited, f.logger, f.metrics, normalizeProviderName(cfg.Provider, base))
}
