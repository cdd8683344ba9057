package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/preston-bernstein/live-matches/internal/config"
	"github.com/preston-bernstein/live-matches/internal/logging"
	"github.com/preston-bernstein/live-matches/internal/server"
)

const appVersion = "dev"

func main() {
	if os.Getenv("SKIP_SERVER_RUN") == "1" {
		return
	}
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.NewLogger(logging.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: "live-matches",
		Version: appVersion,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}
	srv.Run(ctx, stop)
	return nil
}
