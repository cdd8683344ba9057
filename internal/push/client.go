package push

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/preston-bernstein/live-matches/internal/domain/matches"
	"github.com/preston-bernstein/live-matches/internal/logging"
)

const (
	defaultMaxReconnects  = 5
	defaultReconnectDelay = time.Second
	defaultPingInterval   = 25 * time.Second
	defaultPongWait       = 60 * time.Second
	writeWait             = 10 * time.Second
)

// ClientConfig configures a push Client. Filters travel as query parameters
// so the server polls with the same filters as the client's own fetches.
type ClientConfig struct {
	URL            string
	Identity       string
	Filters        matches.Filters
	MaxReconnects  int
	ReconnectDelay time.Duration
	PingInterval   time.Duration
	PongWait       time.Duration
	Dialer         *websocket.Dialer
	Logger         *slog.Logger
	Clock          clockwork.Clock
}

// Client is a reconnecting websocket subscriber. Connection failures are
// never surfaced as errors: after the reconnect budget is spent the client
// settles in StateDisconnected and stays silent.
type Client struct {
	cfg    ClientConfig
	base   *url.URL
	dialer *websocket.Dialer
	logger *slog.Logger
	clock  clockwork.Clock

	mu      sync.Mutex
	state   State
	target  string
	gen     uint64
	conn    *websocket.Conn
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// NewClient validates cfg and builds a client for one identity.
func NewClient(cfg ClientConfig) (*Client, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse push url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return nil, fmt.Errorf("push url %q: unsupported scheme", cfg.URL)
	}
	if err := cfg.Filters.Validate(); err != nil {
		return nil, err
	}

	if cfg.MaxReconnects < 0 {
		cfg.MaxReconnects = 0
	} else if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = defaultMaxReconnects
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = defaultReconnectDelay
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaultPingInterval
	}
	if cfg.PongWait <= cfg.PingInterval {
		cfg.PongWait = defaultPongWait
		if cfg.PongWait <= cfg.PingInterval {
			cfg.PongWait = 2 * cfg.PingInterval
		}
	}
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{HandshakeTimeout: writeWait}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Client{
		cfg:    cfg,
		base:   u,
		target: targetURL(u, cfg.Identity, cfg.Filters),
		dialer: dialer,
		logger: cfg.Logger,
		clock:  clock,
	}, nil
}

func targetURL(base *url.URL, identity string, filters matches.Filters) string {
	u := *base
	q := u.Query()
	for k, v := range filters.Query() {
		q[k] = v
	}
	q.Set(IdentityParam, identity)
	u.RawQuery = q.Encode()
	return u.String()
}

// SetFilters switches the feed to filters. The current connection, if any, is
// dropped and replaced right away; snapshots it still delivers are discarded.
func (c *Client) SetFilters(filters matches.Filters) {
	c.mu.Lock()
	c.target = targetURL(c.base, c.cfg.Identity, filters)
	c.gen++
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

// Start connects in the background. It is a no-op when already started.
func (c *Client) Start(ctx context.Context, h Handlers) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	c.mu.Unlock()

	go func() {
		defer close(c.done)
		c.run(ctx, h)
	}()
}

// Close stops the client and waits for its goroutine to exit. No handler is
// invoked after Close returns.
func (c *Client) Close() error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) run(ctx context.Context, h Handlers) {
	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(c.cfg.ReconnectDelay), uint64(c.cfg.MaxReconnects))
	for {
		c.setState(StateConnecting, h)
		target, gen := c.currentTarget()
		conn, err := c.dial(ctx, target)
		if err == nil {
			if !c.attach(conn, gen) {
				_ = conn.Close()
				continue
			}
			policy.Reset()
			c.setState(StateConnected, h)
			err = c.serve(ctx, conn, gen, h)
			c.detach(conn)
		}
		c.setState(StateDisconnected, h)
		if ctx.Err() != nil {
			return
		}
		if c.generation() != gen {
			// Retargeted: reconnect at once without spending the budget.
			continue
		}
		logging.Debug(c.logger, "push connection lost", logging.FieldIdentity, c.cfg.Identity, "error", err)

		wait := policy.NextBackOff()
		if wait == backoff.Stop {
			logging.Warn(c.logger, "push reconnect attempts exhausted", logging.FieldIdentity, c.cfg.Identity)
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-c.clock.After(wait):
		}
	}
}

func (c *Client) currentTarget() (string, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target, c.gen
}

func (c *Client) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// attach records conn as current unless the filters changed while dialing.
func (c *Client) attach(conn *websocket.Conn, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return false
	}
	c.conn = conn
	return true
}

func (c *Client) detach(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == conn {
		c.conn = nil
	}
}

func (c *Client) dial(ctx context.Context, target string) (*websocket.Conn, error) {
	header := http.Header{}
	header.Set(IdentityParam, c.cfg.Identity)
	conn, resp, err := c.dialer.DialContext(ctx, target, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("push handshake status %d: %w", resp.StatusCode, err)
		}
		return nil, err
	}
	return conn, nil
}

func (c *Client) serve(ctx context.Context, conn *websocket.Conn, gen uint64, h Handlers) error {
	extend := func() {
		_ = conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	}
	extend()
	conn.SetPongHandler(func(string) error {
		extend()
		return nil
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.readPump(conn, gen, h, extend)
	})
	g.Go(func() error {
		return c.pingPump(gctx, conn)
	})
	g.Go(func() error {
		<-gctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		return conn.Close()
	})
	err := g.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (c *Client) readPump(conn *websocket.Conn, gen uint64, h Handlers, extend func()) error {
	for {
		kind, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if kind != websocket.TextMessage {
			continue
		}
		extend()
		msg, err := DecodeMessage(raw)
		if err != nil {
			logging.Warn(c.logger, "push message dropped", logging.FieldIdentity, c.cfg.Identity, "error", err)
			continue
		}
		if msg.Type != TypeMatchUpdate || c.generation() != gen {
			continue
		}
		if h.OnSnapshot != nil {
			h.OnSnapshot(msg.Matches)
		}
	}
}

func (c *Client) pingPump(ctx context.Context, conn *websocket.Conn) error {
	ticker := c.clock.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return err
			}
		}
	}
}

func (c *Client) setState(s State, h Handlers) {
	c.mu.Lock()
	changed := c.state != s
	c.state = s
	c.mu.Unlock()
	if !changed {
		return
	}
	logging.Debug(c.logger, "push state changed", logging.FieldIdentity, c.cfg.Identity, logging.FieldPushState, s.String())
	if h.OnState != nil {
		h.OnState(s)
	}
}
