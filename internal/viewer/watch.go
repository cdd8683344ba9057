package viewer

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/preston-bernstein/live-matches/internal/domain/matches"
	"github.com/preston-bernstein/live-matches/internal/livesync"
	"github.com/preston-bernstein/live-matches/internal/logging"
	"github.com/preston-bernstein/live-matches/internal/metrics"
	"github.com/preston-bernstein/live-matches/internal/providers"
	"github.com/preston-bernstein/live-matches/internal/session"
)

// ToggleFunc flips a favorite and reports the new value.
type ToggleFunc func(matchID string) (bool, error)

// WatchOptions configures Watch.
type WatchOptions struct {
	Identity string
	Filters  matches.Filters
	Config   livesync.Config
	Provider providers.MatchProvider
	Push     livesync.PushChannel
	// Bus ends the watch when the identity logs out or another one logs in.
	Bus      *session.Bus
	Renderer *Renderer
	// Input carries line commands: r retries, f <id> toggles a favorite,
	// logout ends the session and q quits.
	Input   io.Reader
	Toggle  ToggleFunc
	Logout  func() error
	Logger  *slog.Logger
	Metrics *metrics.Recorder
	Clock   clockwork.Clock
}

// Watch runs a live view until ctx ends, the session changes, or q is read.
func Watch(ctx context.Context, opts WatchOptions) error {
	if opts.Renderer == nil {
		return errors.New("viewer: renderer is required")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	runner := livesync.NewRunner(livesync.Options{
		Identity: opts.Identity,
		Filters:  opts.Filters,
		Config:   opts.Config,
		Provider: opts.Provider,
		Push:     opts.Push,
		Observer: opts.Renderer.Render,
		Logger:   opts.Logger,
		Metrics:  opts.Metrics,
		Clock:    opts.Clock,
	})

	if opts.Bus != nil {
		unsubscribe := opts.Bus.Subscribe(func(ev session.Event) {
			if ev.Kind == session.EventLogout || ev.Identity != opts.Identity {
				logging.Info(opts.Logger, "session changed, stopping watch", logging.FieldIdentity, opts.Identity, "event", ev.Kind.String())
				cancel()
			}
		})
		defer unsubscribe()
	}

	runner.Start(ctx)

	var cmds <-chan string
	if opts.Input != nil {
		cmds = readCommands(ctx, opts.Input)
	}
	for {
		select {
		case <-ctx.Done():
			return runner.Close()
		case line, ok := <-cmds:
			if !ok {
				cmds = nil
				continue
			}
			if quit := handleCommand(runner, opts, line); quit {
				return runner.Close()
			}
		}
	}
}

func handleCommand(runner *livesync.Runner, opts WatchOptions, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	switch strings.ToLower(fields[0]) {
	case "q", "quit":
		return true
	case "r", "retry":
		if err := runner.Retry(); err != nil {
			logging.Warn(opts.Logger, "manual retry failed", "error", err)
		}
	case "f", "fav":
		if len(fields) < 2 || opts.Toggle == nil {
			return false
		}
		on, err := opts.Toggle(fields[1])
		if err != nil {
			logging.Warn(opts.Logger, "toggle favorite failed", "error", err)
			return false
		}
		opts.Renderer.SetFavorite(fields[1], on)
	case "logout":
		if opts.Logout == nil {
			return true
		}
		if err := opts.Logout(); err != nil {
			logging.Warn(opts.Logger, "logout failed", "error", err)
		}
		// The bus subscription cancels the watch.
	default:
		logging.Debug(opts.Logger, "unknown command", "command", fields[0])
	}
	return false
}

// readCommands scans lines until EOF or ctx ends. The scanning goroutine may
// stay blocked on a terminal read after ctx ends; it exits on the next line.
func readCommands(ctx context.Context, r io.Reader) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case out <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
