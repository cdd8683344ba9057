package push

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/preston-bernstein/live-matches/internal/domain/matches"
	"github.com/preston-bernstein/live-matches/internal/metrics"
	"github.com/preston-bernstein/live-matches/internal/providers"
	"github.com/preston-bernstein/live-matches/internal/store"
	"github.com/preston-bernstein/live-matches/internal/testutil"
)

type recorder struct {
	mu        sync.Mutex
	states    []State
	snapshots chan []matches.Match
}

func newRecorder() *recorder {
	return &recorder{snapshots: make(chan []matches.Match, 8)}
}

func (r *recorder) handlers() Handlers {
	return Handlers{
		OnSnapshot: func(s []matches.Match) { r.snapshots <- s },
		OnState: func(s State) {
			r.mu.Lock()
			r.states = append(r.states, s)
			r.mu.Unlock()
		},
	}
}

func (r *recorder) stateLog() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}

func (r *recorder) next(t *testing.T) []matches.Match {
	t.Helper()
	select {
	case s := <-r.snapshots:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func newHubServer(t *testing.T, provider providers.MatchProvider, rec *metrics.Recorder) (*Hub, *httptest.Server) {
	t.Helper()
	cache, err := store.NewSnapshotCache(8)
	require.NoError(t, err)
	hub := NewHub(HubConfig{
		Provider:     provider,
		Cache:        cache,
		PollInterval: time.Hour,
		PingInterval: 50 * time.Millisecond,
		PongWait:     time.Second,
		Metrics:      rec,
	})
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		_ = hub.Close(context.Background())
		srv.Close()
	})
	return hub, srv
}

func TestHubRejectsMissingIdentity(t *testing.T) {
	_, srv := newHubServer(t, &testutil.StubProvider{}, nil)
	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestClientReceivesInitialSnapshotAndBroadcasts(t *testing.T) {
	provider := &testutil.StubProvider{Responses: []testutil.StubResponse{{Matches: testutil.SampleSnapshot("a", "b")}}}
	rec := metrics.NewRecorder()
	hub, srv := newHubServer(t, provider, rec)

	client, err := NewClient(ClientConfig{URL: srv.URL, Identity: "fan@example.com", PingInterval: 20 * time.Millisecond, PongWait: time.Second})
	require.NoError(t, err)
	r := newRecorder()
	client.Start(context.Background(), r.handlers())
	defer client.Close()

	first := r.next(t)
	assert.Equal(t, []string{"a", "b"}, matches.IDsOf(first).Sorted())
	assert.Equal(t, StateConnected, client.State())

	hub.Broadcast("fan@example.com", testutil.SampleSnapshot("b", "c"))
	second := r.next(t)
	assert.Equal(t, []string{"b", "c"}, matches.IDsOf(second).Sorted())

	assert.Equal(t, 1, hub.Connections("fan@example.com"))
	assert.GreaterOrEqual(t, rec.PushBroadcasts(), 2)
	assert.True(t, hub.Ready())

	require.NoError(t, client.Close())
	states := r.stateLog()
	require.NotEmpty(t, states)
	assert.Equal(t, StateConnecting, states[0])
	assert.Equal(t, StateDisconnected, states[len(states)-1])
}

func TestHubSharesPollerPerIdentity(t *testing.T) {
	provider := &testutil.StubProvider{Responses: []testutil.StubResponse{{Matches: testutil.SampleSnapshot("a")}}}
	hub, srv := newHubServer(t, provider, nil)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "?username=u"
	c1, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer c1.Close()
	c2, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer c2.Close()

	for _, c := range []*websocket.Conn{c1, c2} {
		_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, raw, err := c.ReadMessage()
		require.NoError(t, err)
		msg, err := DecodeMessage(raw)
		require.NoError(t, err)
		assert.Equal(t, TypeMatchUpdate, msg.Type)
	}
	assert.Equal(t, int32(1), provider.Calls.Load())
	assert.Eventually(t, func() bool { return hub.Connections("u") == 2 }, time.Second, 10*time.Millisecond)

	_ = c1.Close()
	assert.Eventually(t, func() bool { return hub.Connections("u") == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestHubCloseDisconnectsClients(t *testing.T) {
	provider := &testutil.StubProvider{}
	hub, srv := newHubServer(t, provider, nil)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "?username=u"
	c, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer c.Close()
	assert.Eventually(t, func() bool { return hub.Connections("u") == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Close(context.Background()))

	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			break
		}
	}
	assert.Equal(t, 0, hub.Connections("u"))

	// New connections are refused once closed.
	c2, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		_ = c2.SetReadDeadline(time.Now().Add(time.Second))
		_, _, readErr := c2.ReadMessage()
		assert.Error(t, readErr)
		_ = c2.Close()
	}
}

func TestClientGivesUpSilentlyAfterBudget(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	client, err := NewClient(ClientConfig{URL: addr, Identity: "u", MaxReconnects: 2, ReconnectDelay: time.Millisecond})
	require.NoError(t, err)
	r := newRecorder()
	client.Start(context.Background(), r.handlers())

	done := make(chan struct{})
	go func() {
		<-client.done
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("client did not give up")
	}

	connecting := 0
	for _, s := range r.stateLog() {
		if s == StateConnecting {
			connecting++
		}
	}
	assert.Equal(t, 3, connecting, "initial attempt plus two reconnects")
	assert.Equal(t, StateDisconnected, client.State())
	require.NoError(t, client.Close())
}

func TestNewClientValidatesURL(t *testing.T) {
	_, err := NewClient(ClientConfig{URL: "ftp://host"})
	assert.Error(t, err)

	c, err := NewClient(ClientConfig{URL: "https://host/ws", Identity: "a b", PingInterval: time.Second, PongWait: time.Millisecond})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(c.target, "wss://host/ws?"))
	assert.Contains(t, c.target, "username=a+b")
	assert.Greater(t, c.cfg.PongWait, c.cfg.PingInterval)
	assert.Equal(t, defaultMaxReconnects, c.cfg.MaxReconnects)
}

// leagueProvider serves a two-league snapshot and honors the league filter.
func leagueProvider(calls *atomic.Int32) providers.MatchProvider {
	all := testutil.SampleSnapshot("liga-1", "liga-2", "bund-1")
	all[0].League = "La Liga"
	all[1].League = "La Liga"
	all[2].League = "Bundesliga"
	return providers.ProviderFunc(func(ctx context.Context, identity string, f matches.Filters) ([]matches.Match, error) {
		calls.Add(1)
		return matches.Apply(all, f, nil), nil
	})
}

func TestHubPollsPerFilterSet(t *testing.T) {
	var calls atomic.Int32
	hub, srv := newHubServer(t, leagueProvider(&calls), nil)

	filtered, err := NewClient(ClientConfig{URL: srv.URL, Identity: "u", Filters: matches.Filters{League: "La Liga"}})
	require.NoError(t, err)
	fr := newRecorder()
	filtered.Start(context.Background(), fr.handlers())
	defer filtered.Close()

	plain, err := NewClient(ClientConfig{URL: srv.URL, Identity: "u"})
	require.NoError(t, err)
	pr := newRecorder()
	plain.Start(context.Background(), pr.handlers())
	defer plain.Close()

	got := fr.next(t)
	assert.Equal(t, []string{"liga-1", "liga-2"}, matches.IDsOf(got).Sorted())
	for _, m := range got {
		assert.Equal(t, "La Liga", m.League)
	}
	assert.Len(t, pr.next(t), 3)

	assert.Equal(t, 2, hub.Topics())
	assert.Eventually(t, func() bool { return hub.Connections("u") == 2 }, time.Second, 10*time.Millisecond)
	assert.EqualValues(t, 2, calls.Load())

	// A broadcast for the filtered topic never reaches the unfiltered feed.
	key := TopicKey("u", matches.Filters{League: "La Liga"})
	hub.Broadcast(key, testutil.SampleSnapshot("liga-3"))
	assert.Equal(t, []string{"liga-3"}, matches.IDsOf(fr.next(t)).Sorted())
	select {
	case s := <-pr.snapshots:
		t.Fatalf("unfiltered client received %v", matches.IDsOf(s).Sorted())
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubRejectsInvalidFilters(t *testing.T) {
	_, srv := newHubServer(t, &testutil.StubProvider{}, nil)
	resp, err := http.Get(srv.URL + "?username=u&sortBy=bogus")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestClientSetFiltersSwitchesFeed(t *testing.T) {
	var calls atomic.Int32
	_, srv := newHubServer(t, leagueProvider(&calls), nil)

	client, err := NewClient(ClientConfig{URL: srv.URL, Identity: "u", ReconnectDelay: time.Hour})
	require.NoError(t, err)
	r := newRecorder()
	client.Start(context.Background(), r.handlers())
	defer client.Close()
	require.Len(t, r.next(t), 3)

	client.SetFilters(matches.Filters{League: "Bundesliga"})

	got := r.next(t)
	assert.Equal(t, []string{"bund-1"}, matches.IDsOf(got).Sorted())
	assert.Eventually(t, func() bool { return client.State() == StateConnected }, time.Second, 10*time.Millisecond)
}

func TestTopicKey(t *testing.T) {
	assert.Equal(t, "u", TopicKey("u", matches.Filters{}))
	assert.Equal(t, "u", TopicKey("u", matches.Filters{FavoritesOnly: true, Venue: "Camp Nou"}))
	assert.Equal(t, "u?league=La+Liga&status=live",
		TopicKey("u", matches.Filters{Status: matches.StatusLive, League: "La Liga"}))
}

func TestHubNewConnectionEndsOnLatestSnapshot(t *testing.T) {
	cache, err := store.NewSnapshotCache(8)
	require.NoError(t, err)
	idle := providers.ProviderFunc(func(ctx context.Context, identity string, f matches.Filters) ([]matches.Match, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	hub := NewHub(HubConfig{Provider: idle, Cache: cache, PollInterval: time.Hour})

	newConn := func(id string) *hubConn {
		return &hubConn{id: id, identity: "u", key: "u", send: make(chan []byte, sendBuffer)}
	}
	conns := []*hubConn{newConn("anchor")}
	require.NoError(t, hub.subscribe(conns[0]))

	for i := 0; i < 200; i++ {
		cache.Put("u", testutil.SampleSnapshot(fmt.Sprintf("old-%d", i)), time.Now())
		latest := testutil.SampleSnapshot(fmt.Sprintf("new-%d", i))
		c := newConn(fmt.Sprintf("c-%d", i))
		conns = append(conns, c)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			cache.Put("u", latest, time.Now())
			hub.Broadcast("u", latest)
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, hub.subscribe(c))
		}()
		wg.Wait()

		var last []byte
		for len(c.send) > 0 {
			last = <-c.send
		}
		require.NotNil(t, last, "round %d", i)
		msg, err := DecodeMessage(last)
		require.NoError(t, err)
		require.Equal(t, []string{fmt.Sprintf("new-%d", i)}, matches.IDsOf(msg.Matches).Sorted(), "round %d", i)
	}

	for range conns {
		hub.wg.Done()
	}
	require.NoError(t, hub.Close(context.Background()))
}
