package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/preston-bernstein/live-matches/internal/config"
	"github.com/preston-bernstein/live-matches/internal/metrics"
	"github.com/preston-bernstein/live-matches/internal/providers"
	"github.com/preston-bernstein/live-matches/internal/push"
	"github.com/preston-bernstein/live-matches/internal/store"
)

// pushHub defines the minimal push behavior needed by the server.
type pushHub interface {
	http.Handler
	Ready() bool
	Close(ctx context.Context) error
}

func buildHub(cfg config.Config, provider providers.MatchProvider, logger *slog.Logger, recorder *metrics.Recorder) (*push.Hub, error) {
	cache, err := store.NewSnapshotCache(cfg.Push.CacheSize)
	if err != nil {
		return nil, err
	}
	return push.NewHub(push.HubConfig{
		Provider:     provider,
		Cache:        cache,
		PollInterval: cfg.Push.Interval,
		PingInterval: cfg.Push.PingInterval,
		PongWait:     cfg.Push.PongWait,
		Logger:       logger,
		Metrics:      recorder,
	}), nil
}

// readiness reports the hub's upstream health to /ready.
func readiness(hub pushHub) func() (bool, string) {
	return func() (bool, string) {
		if hub != nil && !hub.Ready() {
			return false, "upstream failing"
		}
		return true, ""
	}
}
