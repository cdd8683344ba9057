package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/preston-bernstein/live-matches/internal/domain/matches"
	"github.com/preston-bernstein/live-matches/internal/livesync"
	"github.com/preston-bernstein/live-matches/internal/metrics"
	"github.com/preston-bernstein/live-matches/internal/push"
	"github.com/preston-bernstein/live-matches/internal/session"
	"github.com/preston-bernstein/live-matches/internal/viewer"
)

// run executes the viewer with args and releases the session store afterwards,
// whether or not the command succeeded.
func run(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	var a *app
	root := newRootCmd(&a)
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	err := root.ExecuteContext(ctx)
	if cerr := a.close(); err == nil {
		err = cerr
	}
	return err
}

func newRootCmd(a **app) *cobra.Command {
	var flags globalFlags
	root := &cobra.Command{
		Use:           "viewer",
		Short:         "Follow live matches from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v, err := newApp(flags)
			*a = v
			return err
		},
	}
	root.PersistentFlags().StringVar(&flags.apiURL, "api-url", "", "base URL of the live-matches server (env LIVE_MATCHES_API_URL)")
	root.PersistentFlags().StringVar(&flags.sessionDB, "session-db", "", "path of the session database (env LIVE_MATCHES_SESSION_DB)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error (env LOG_LEVEL)")

	appFn := func() *app { return *a }
	root.AddCommand(
		newLoginCmd(appFn),
		newLogoutCmd(appFn),
		newWhoamiCmd(appFn),
		newWatchCmd(appFn),
		newFavoritesCmd(appFn),
	)
	return root
}

func newLoginCmd(a func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login <username>",
		Short: "Validate a username against the server and remember it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a().manager.Login(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s until %s\n",
				sess.Identity, sess.ExpiresAt(a().store.TTL()).Local().Format(time.DateTime))
			return nil
		},
	}
}

func newLogoutCmd(a func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the remembered username",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a().manager.Logout(); err != nil {
				return fmt.Errorf("logout: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}

func newWhoamiCmd(a func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the remembered username",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a().manager.Current(false)
			if session.IsNoSession(err) {
				fmt.Fprintln(cmd.OutOrStdout(), "not logged in")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (expires %s)\n",
				sess.Identity, sess.ExpiresAt(a().store.TTL()).Local().Format(time.DateTime))
			return nil
		},
	}
}

type watchFlags struct {
	league, competition, venue string
	status, search             string
	sortBy, sortOrder          string
	favoritesOnly              bool
	noPush                     bool
	suppressHighlight          bool
	pollInterval               time.Duration
}

func (f watchFlags) filters() (matches.Filters, error) {
	filters := matches.Filters{
		League:        f.league,
		Competition:   f.competition,
		Venue:         f.venue,
		Status:        matches.Status(f.status),
		Search:        f.search,
		SortBy:        matches.SortKey(f.sortBy),
		SortOrder:     matches.SortOrder(f.sortOrder),
		FavoritesOnly: f.favoritesOnly,
	}
	return filters, filters.Validate()
}

func newWatchCmd(a func() *app) *cobra.Command {
	var f watchFlags
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the match list live; type r to retry, f <id> to toggle a favorite, q to quit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := a()
			filters, err := f.filters()
			if err != nil {
				return err
			}
			identity, err := v.identity()
			if err != nil {
				return err
			}
			favs, err := v.store.Favorites(identity)
			if err != nil {
				return err
			}

			cfg := v.cfg
			if f.pollInterval > 0 {
				cfg.PollInterval = f.pollInterval
			}

			var channel livesync.PushChannel
			if cfg.PushEnabled && !f.noPush {
				client, err := push.NewClient(push.ClientConfig{
					URL:            pushURL(cfg.APIURL, cfg.PushURL),
					Identity:       identity,
					Filters:        filters,
					MaxReconnects:  cfg.Reconnects,
					ReconnectDelay: cfg.ReconnectDelay,
					PingInterval:   cfg.PingInterval,
					PongWait:       cfg.PongWait,
					Logger:         v.logger,
				})
				if err != nil {
					return err
				}
				channel = client
			}

			return viewer.Watch(cmd.Context(), viewer.WatchOptions{
				Identity: identity,
				Filters:  filters,
				Config: livesync.Config{
					PollInterval:             cfg.PollInterval,
					HighlightWindow:          cfg.HighlightWindow,
					RetryBase:                cfg.RetryBase,
					MaxRetries:               cfg.MaxRetries,
					SuppressInitialHighlight: cfg.SuppressFirstHit || f.suppressHighlight,
				},
				Provider: v.provider,
				Push:     channel,
				Bus:      v.manager.Bus(),
				Renderer: viewer.NewRenderer(cmd.OutOrStdout(), viewer.RenderOptions{Favorites: favs, ClearScreen: true}),
				Input:    cmd.InOrStdin(),
				Toggle: func(id string) (bool, error) {
					return v.store.ToggleFavorite(identity, id)
				},
				Logout:  v.manager.Logout,
				Logger:  v.logger,
				Metrics: metrics.NewRecorder(),
			})
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.league, "league", "", "only this league")
	fl.StringVar(&f.competition, "competition", "", "only this competition")
	fl.StringVar(&f.venue, "venue", "", "only this venue")
	fl.StringVar(&f.status, "status", "", "upcoming, live or finished")
	fl.StringVar(&f.search, "search", "", "case-insensitive team name search")
	fl.StringVar(&f.sortBy, "sort-by", "", "time, league, alphabetical or result")
	fl.StringVar(&f.sortOrder, "sort-order", "", "asc or desc")
	fl.BoolVar(&f.favoritesOnly, "favorites-only", false, "only favorite matches")
	fl.BoolVar(&f.noPush, "no-push", false, "poll only, without the push channel")
	fl.BoolVar(&f.suppressHighlight, "suppress-initial-highlight", false, "do not highlight matches on the first load")
	fl.DurationVar(&f.pollInterval, "poll-interval", 0, "polling interval (env LIVE_MATCHES_POLL_INTERVAL)")
	return cmd
}

// pushURL derives the websocket endpoint from the API URL unless one is configured.
func pushURL(apiURL, configured string) string {
	if configured != "" {
		return configured
	}
	return strings.TrimRight(apiURL, "/") + "/ws"
}

func newFavoritesCmd(a func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "favorites",
		Short: "Manage favorite matches of the logged-in user",
	}
	mutate := func(use, short string, fn func(v *app, identity, id string) (string, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <match-id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				identity, err := a().identity()
				if err != nil {
					return err
				}
				msg, err := fn(a(), identity, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), msg)
				return nil
			},
		}
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List favorite match IDs",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				identity, err := a().identity()
				if err != nil {
					return err
				}
				favs, err := a().store.Favorites(identity)
				if err != nil {
					return err
				}
				for _, id := range favs.Sorted() {
					fmt.Fprintln(cmd.OutOrStdout(), id)
				}
				return nil
			},
		},
		mutate("add", "Mark a match as favorite", func(v *app, identity, id string) (string, error) {
			return "added " + id, v.store.AddFavorite(identity, id)
		}),
		mutate("remove", "Unmark a favorite match", func(v *app, identity, id string) (string, error) {
			return "removed " + id, v.store.RemoveFavorite(identity, id)
		}),
		mutate("toggle", "Flip the favorite mark of a match", func(v *app, identity, id string) (string, error) {
			on, err := v.store.ToggleFavorite(identity, id)
			if on {
				return "added " + id, err
			}
			return "removed " + id, err
		}),
	)
	return cmd
}
