package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/preston-bernstein/live-matches/internal/config"
	"github.com/preston-bernstein/live-matches/internal/logging"
	"github.com/preston-bernstein/live-matches/internal/providers"
	"github.com/preston-bernstein/live-matches/internal/providers/api"
	"github.com/preston-bernstein/live-matches/internal/session"
)

// app holds what every subcommand shares. It is built in PersistentPreRunE
// and released in PersistentPostRunE.
type app struct {
	cfg      config.ViewerConfig
	logger   *slog.Logger
	store    *session.Store
	provider providers.MatchProvider
	manager  *session.Manager
}

// globalFlags override the matching environment values when set.
type globalFlags struct {
	apiURL    string
	sessionDB string
	logLevel  string
}

func newApp(flags globalFlags) (*app, error) {
	cfg, err := config.LoadViewer()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if flags.apiURL != "" {
		cfg.APIURL = flags.apiURL
	}
	if flags.sessionDB != "" {
		cfg.SessionPath = flags.sessionDB
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}

	logger := logging.NewLogger(logging.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: "live-matches-viewer",
		Version: appVersion,
		Output:  os.Stderr,
	})

	client, err := api.NewClient(cfg.APIURL, cfg.FetchTimeout, nil, logger)
	if err != nil {
		return nil, err
	}
	store, err := session.Open(cfg.SessionPath, session.StoreOptions{TTL: cfg.SessionTTL})
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		provider: client,
		manager:  session.NewManager(store, session.NewBus(), client, logger),
	}, nil
}

func (a *app) close() error {
	if a == nil || a.store == nil {
		return nil
	}
	return a.store.Close()
}

// identity returns the logged-in identity, refreshing the session.
func (a *app) identity() (string, error) {
	sess, err := a.manager.Current(true)
	if session.IsNoSession(err) {
		return "", fmt.Errorf("not logged in: run login <username> first")
	}
	if err != nil {
		return "", err
	}
	return sess.Identity, nil
}
