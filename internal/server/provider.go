package server

import (
	"log/slog"

	"github.com/preston-bernstein/live-matches/internal/config"
	"github.com/preston-bernstein/live-matches/internal/providers"
	"github.com/preston-bernstein/live-matches/internal/providers/fixture"
	"github.com/preston-bernstein/live-matches/internal/providers/upstream"
)

func selectProvider(cfg config.Config, logger *slog.Logger) providers.MatchProvider {
	switch normalizeProviderName(cfg.Provider, nil) {
	case "fixture", "provider":
		return fixture.New()
	case "upstream":
		client, err := upstream.NewClient(upstream.Config{
			URL:      cfg.Upstream.URL,
			Timeout:  cfg.Upstream.Timeout,
			RetryMax: cfg.Upstream.RetryMax,
			Logger:   logger,
		})
		if err != nil {
			if logger != nil {
				logger.Warn("upstream provider misconfigured, falling back to fixture", "error", err)
			}
			return fixture.New()
		}
		return client
	default:
		if logger != nil {
			logger.Warn("unknown provider, falling back to fixture", slog.String("provider", cfg.Provider))
		}
		return fixture.New()
	}
}
