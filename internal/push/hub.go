package push

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/preston-bernstein/live-matches/internal/domain/matches"
	"github.com/preston-bernstein/live-matches/internal/logging"
	"github.com/preston-bernstein/live-matches/internal/metrics"
	"github.com/preston-bernstein/live-matches/internal/poller"
	"github.com/preston-bernstein/live-matches/internal/providers"
	"github.com/preston-bernstein/live-matches/internal/store"
)

const sendBuffer = 8

var errHubClosed = errors.New("push hub closed")

// HubConfig configures the server side of the push channel.
type HubConfig struct {
	Provider     providers.MatchProvider
	Cache        *store.SnapshotCache
	PollInterval time.Duration
	PingInterval time.Duration
	PongWait     time.Duration
	Logger       *slog.Logger
	Metrics      *metrics.Recorder
	Clock        clockwork.Clock
	CheckOrigin  func(r *http.Request) bool
}

// Hub upgrades /ws requests and fans out snapshots per topic, an identity
// plus the filters the connection asked for. The first subscriber of a topic
// starts its poller; the last one leaving stops it.
type Hub struct {
	cfg      HubConfig
	upgrader websocket.Upgrader
	logger   *slog.Logger
	metrics  *metrics.Recorder
	clock    clockwork.Clock

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
	topics map[string]*topic
}

type topic struct {
	poller *poller.Poller
	conns  map[string]*hubConn
	// sendMu orders the cached snapshot sent to a new connection against
	// broadcasts, so a connection never ends on an older snapshot.
	sendMu sync.Mutex
}

type hubConn struct {
	id       string
	identity string
	filters  matches.Filters
	key      string
	ws       *websocket.Conn
	send     chan []byte
}

// TopicKey names the feed of identity under filters. Only the filters the
// server honors take part, so equivalent filter sets share a poller.
func TopicKey(identity string, filters matches.Filters) string {
	q := filters.Query().Encode()
	if q == "" {
		return identity
	}
	return identity + "?" + q
}

// NewHub builds a hub. Close must be called to stop pollers and connections.
func NewHub(cfg HubConfig) *Hub {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaultPingInterval
	}
	if cfg.PongWait <= cfg.PingInterval {
		cfg.PongWait = 2 * cfg.PingInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	checkOrigin := cfg.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		cfg:      cfg,
		upgrader: websocket.Upgrader{CheckOrigin: checkOrigin},
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		clock:    cfg.Clock,
		ctx:      ctx,
		cancel:   cancel,
		topics:   make(map[string]*topic),
	}
}

// ServeHTTP upgrades the request and serves the connection until it ends.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity := strings.TrimSpace(r.URL.Query().Get(IdentityParam))
	if identity == "" {
		identity = strings.TrimSpace(r.Header.Get(IdentityParam))
	}
	if identity == "" {
		writeJSONError(w, http.StatusUnauthorized, "Username is required")
		return
	}
	filters := matches.FiltersFromQuery(r.URL.Query())
	if err := filters.Validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn(h.logger, "push upgrade failed", logging.FieldIdentity, identity, "error", err)
		return
	}
	c := &hubConn{
		id:       uuid.NewString(),
		identity: identity,
		filters:  filters,
		key:      TopicKey(identity, filters),
		ws:       ws,
		send:     make(chan []byte, sendBuffer),
	}
	if err := h.subscribe(c); err != nil {
		_ = ws.Close()
		return
	}
	defer h.wg.Done()
	defer h.unsubscribe(c)

	h.metrics.RecordPushConnection(1)
	defer h.metrics.RecordPushConnection(-1)
	logging.Info(h.logger, "push client connected", logging.FieldIdentity, identity, logging.FieldConnID, c.id)

	err = h.serveConn(c)
	logging.Info(h.logger, "push client disconnected", logging.FieldIdentity, identity, logging.FieldConnID, c.id, "error", err)
}

func (h *Hub) serveConn(c *hubConn) error {
	g, gctx := errgroup.WithContext(h.ctx)
	g.Go(func() error {
		return h.readPump(c)
	})
	g.Go(func() error {
		return h.writePump(gctx, c)
	})
	err := g.Wait()
	_ = c.ws.Close()
	return err
}

func (h *Hub) readPump(c *hubConn) error {
	extend := func() {
		_ = c.ws.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	}
	extend()
	c.ws.SetPongHandler(func(string) error {
		extend()
		return nil
	})
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return err
		}
		extend()
	}
}

func (h *Hub) writePump(ctx context.Context, c *hubConn) error {
	ticker := h.clock.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(time.Second))
			// Unblocks readPump.
			_ = c.ws.Close()
			return ctx.Err()
		case payload := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				return err
			}
		case <-ticker.Chan():
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return err
			}
		}
	}
}

func (h *Hub) subscribe(c *hubConn) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return errHubClosed
	}
	t, ok := h.topics[c.key]
	if !ok {
		t = &topic{conns: make(map[string]*hubConn)}
		t.poller = poller.New(h.cfg.Provider, poller.Options{
			Identity: c.identity,
			Filters:  c.filters,
			Key:      c.key,
			Interval: h.cfg.PollInterval,
			Cache:    h.cfg.Cache,
			Publish:  h.Broadcast,
			Logger:   h.logger,
			Metrics:  h.metrics,
			Clock:    h.clock,
		})
		h.topics[c.key] = t
	}
	t.conns[c.id] = c
	h.wg.Add(1)
	h.mu.Unlock()

	t.sendMu.Lock()
	if payload, cached := h.cachedSnapshot(c.key); cached {
		h.enqueue(c, payload)
	}
	t.sendMu.Unlock()
	if !ok {
		t.poller.Start(h.ctx)
	}
	return nil
}

func (h *Hub) unsubscribe(c *hubConn) {
	h.mu.Lock()
	t, ok := h.topics[c.key]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(t.conns, c.id)
	last := len(t.conns) == 0
	if last {
		delete(h.topics, c.key)
	}
	h.mu.Unlock()

	if last {
		ctx, cancel := context.WithTimeout(context.Background(), writeWait)
		defer cancel()
		_ = t.poller.Stop(ctx)
	}
}

func (h *Hub) cachedSnapshot(key string) ([]byte, bool) {
	if h.cfg.Cache == nil {
		return nil, false
	}
	entry, ok := h.cfg.Cache.Get(key)
	if !ok {
		return nil, false
	}
	payload, err := EncodeUpdate(entry.Matches)
	if err != nil {
		return nil, false
	}
	return payload, true
}

// Broadcast sends snapshot to every connection subscribed to the topic key
// (see TopicKey).
func (h *Hub) Broadcast(key string, snapshot []matches.Match) {
	payload, err := EncodeUpdate(snapshot)
	if err != nil {
		logging.Error(h.logger, "encode matchUpdate failed", err, "topic", key)
		return
	}
	h.mu.Lock()
	t, ok := h.topics[key]
	h.mu.Unlock()
	if !ok {
		return
	}

	t.sendMu.Lock()
	h.mu.Lock()
	targets := make([]*hubConn, 0, len(t.conns))
	for _, c := range t.conns {
		targets = append(targets, c)
	}
	h.mu.Unlock()
	for _, c := range targets {
		h.enqueue(c, payload)
	}
	t.sendMu.Unlock()

	if len(targets) == 0 {
		return
	}
	h.metrics.RecordPushBroadcast(len(targets))
	logging.Debug(h.logger, "matchUpdate broadcast", "topic", key, logging.FieldCount, len(snapshot), "recipients", len(targets))
}

// enqueue never blocks. When the buffer is full the oldest pending snapshot
// is dropped; every message is a full snapshot so only the newest matters.
func (h *Hub) enqueue(c *hubConn, payload []byte) {
	select {
	case c.send <- payload:
		return
	default:
	}
	select {
	case <-c.send:
	default:
	}
	select {
	case c.send <- payload:
	default:
		logging.Warn(h.logger, "push send buffer full", logging.FieldConnID, c.id)
	}
}

// Connections returns the number of open connections for identity across
// all of its filter sets.
func (h *Hub) Connections(identity string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, t := range h.topics {
		for _, c := range t.conns {
			if c.identity == identity {
				n++
			}
		}
	}
	return n
}

// Topics returns the number of active topics, one per polled identity and
// filter set.
func (h *Hub) Topics() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.topics)
}

// Ready reports false when any active poller has failed repeatedly.
func (h *Hub) Ready() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, t := range h.topics {
		if t.poller.Status().Failing() {
			return false
		}
	}
	return true
}

// Close stops all pollers and connections and waits for them to exit or ctx to end.
func (h *Hub) Close(ctx context.Context) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.mu.Unlock()

	h.cancel()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
