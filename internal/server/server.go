package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/preston-bernstein/live-matches/internal/config"
	httpserver "github.com/preston-bernstein/live-matches/internal/http"
	"github.com/preston-bernstein/live-matches/internal/http/handlers"
	"github.com/preston-bernstein/live-matches/internal/http/middleware"
	"github.com/preston-bernstein/live-matches/internal/logging"
	"github.com/preston-bernstein/live-matches/internal/metrics"
	"github.com/preston-bernstein/live-matches/internal/providers"
)

var metricsSetup = metrics.Setup

type Server struct {
	cfg           config.Config
	logger        *slog.Logger
	metrics       *metrics.Recorder
	provider      providers.MatchProvider
	httpServer    httpServer
	metricsServer httpServer
	hub           pushHub
	metricsStop   func(context.Context) error
}

// New constructs a server with default provider and push wiring.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	return newServerWithMetrics(cfg, logger, nil, nil)
}

func newServerWithProvider(cfg config.Config, logger *slog.Logger, provider providers.MatchProvider) (*Server, error) {
	return newServerWithMetrics(cfg, logger, provider, nil)
}

func newServerWithMetrics(cfg config.Config, logger *slog.Logger, provider providers.MatchProvider, recorder *metrics.Recorder) (*Server, error) {
	recorder, metricsSrv, metricsShutdown := buildMetrics(cfg, logger, recorder)

	factory := newProviderFactory(logger, recorder)
	if provider == nil {
		provider = factory.build(cfg)
	} else {
		provider = factory.wrap(cfg, provider)
	}

	hub, err := buildHub(cfg, provider, logger, recorder)
	if err != nil {
		if metricsShutdown != nil {
			_ = metricsShutdown(context.Background())
		}
		return nil, err
	}
	httpSrv := buildHTTPServer(cfg, logger, provider, recorder, hub)

	return &Server{
		cfg:           cfg,
		logger:        logger,
		metrics:       recorder,
		provider:      provider,
		httpServer:    httpSrv,
		metricsServer: metricsSrv,
		hub:           hub,
		metricsStop:   metricsShutdown,
	}, nil
}

// newServerWithDeps is used for testing to inject custom components.
func newServerWithDeps(cfg config.Config, logger *slog.Logger, httpSrv httpServer, hub pushHub) *Server {
	return &Server{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpSrv,
		hub:        hub,
	}
}

func buildHTTPServer(cfg config.Config, logger *slog.Logger, provider providers.MatchProvider, recorder *metrics.Recorder, hub pushHub) httpServer {
	var ws http.Handler
	if hub != nil {
		ws = hub
	}
	handler := handlers.NewHandler(provider, logger, readiness(hub))
	router := httpserver.NewRouter(handler, ws)
	if logger == nil {
		logger = logging.NewLogger(logging.Config{})
	}
	wrapped := middleware.LoggingMiddleware(logger, recorder, router)

	// No WriteTimeout: websocket connections are long-lived and the hub sets
	// its own per-message write deadlines.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           wrapped,
		ReadHeaderTimeout: readTimeout,
		IdleTimeout:       idleTimeout,
	}

	return netHTTPServer{srv: srv}
}

// Run starts the HTTP server, then waits for context cancellation to shut down gracefully.
func (s *Server) Run(ctx context.Context, stop context.CancelFunc) {
	s.startMetrics()
	s.startServer(stop)

	<-ctx.Done()
	if s.logger != nil {
		s.logger.Info("shutdown signal received")
	}

	s.gracefulShutdown()
}

func (s *Server) startServer(stop context.CancelFunc) {
	if s.logger != nil {
		s.logger.Info("http server starting", slog.String("addr", s.httpServer.Addr()))
	}
	launchServer("http", s.httpServer, s.logger, func(err error) {
		if stop != nil {
			stop()
		}
	})
}

func (s *Server) startMetrics() {
	if s.metricsServer == nil {
		return
	}
	if s.logger != nil {
		s.logger.Info("metrics server starting", slog.String("addr", s.metricsServer.Addr()))
	}
	launchServer("metrics", s.metricsServer, s.logger, nil)
}

func (s *Server) gracefulShutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if s.metricsStop != nil {
		if err := s.metricsStop(shutdownCtx); err != nil && s.logger != nil {
			s.logger.Warn("metrics shutdown failed", "error", err)
		}
	}

	if s.metricsServer != nil {
		if err := s.metricsServer.Shutdown(shutdownCtx); err != nil && s.logger != nil {
			s.logger.Warn("metrics server shutdown failed", "error", err)
		}
	}

	// Hijacked websocket connections are invisible to http.Server.Shutdown,
	// so the hub closes them and stops their pollers first.
	if s.hub != nil {
		if err := s.hub.Close(shutdownCtx); err != nil && s.logger != nil {
			s.logger.Error("failed to close push hub", "error", err)
		}
	}

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil && s.logger != nil {
		s.logger.Error("graceful shutdown failed", "error", err)
	}

	if s.logger != nil {
		s.logger.Info("shutdown complete")
	}
}

func buildMetrics(cfg config.Config, logger *slog.Logger, recorder *metrics.Recorder) (*metrics.Recorder, httpServer, func(context.Context) error) {
	if recorder != nil {
		return recorder, nil, nil
	}

	recCfg := metrics.TelemetryConfig{
		Enabled:      cfg.Metrics.Enabled,
		Port:         cfg.Metrics.Port,
		ServiceName:  cfg.Metrics.ServiceName,
		OtlpEndpoint: cfg.Metrics.OtlpEndpoint,
		OtlpInsecure: cfg.Metrics.OtlpInsecure,
	}

	rec, handler, shutdown, err := metricsSetup(context.Background(), recCfg)
	if err != nil {
		if logger != nil {
			logger.Warn("metrics setup failed, continuing without telemetry", "err", err)
		}
		return metrics.NewRecorder(), nil, nil
	}

	var metricsSrv httpServer
	if handler != nil && recCfg.Enabled {
		metricsSrv = netHTTPServer{
			srv: &http.Server{
				Addr:              ":" + recCfg.Port,
				Handler:           handler,
				ReadHeaderTimeout: readTimeout,
			},
		}
	}

	return rec, metricsSrv, shutdown
}

func launchServer(name string, srv httpServer, logger *slog.Logger, onError func(error)) {
	go func() {
		if logger != nil {
			logger.Info("starting "+name+" server", slog.String("addr", srv.Addr()))
		}
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if logger != nil {
				logger.Warn(name+" server failed", "error", err)
			}
			if onError != nil {
				onError(err)
			}
		}
	}()
}

// Handler exposes the HTTP handler (useful for tests).
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler()
}
