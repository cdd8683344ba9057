package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/preston-bernstein/live-matches/internal/http/handlers"
	"github.com/preston-bernstein/live-matches/internal/testutil"
)

func TestRouterRoutesKnownPaths(t *testing.T) {
	h := handlers.NewHandler(testutil.GoodProvider{Matches: testutil.SampleSnapshot("m1")}, nil, nil)
	ws := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	router := NewRouter(h, ws)

	cases := map[string]int{
		"/health":                   http.StatusOK,
		"/ready":                    http.StatusOK,
		"/api/matches?username=bob": http.StatusOK,
		"/matches?username=bob":     http.StatusOK,
		"/api/matches":              http.StatusBadRequest,
		"/ws":                       http.StatusTeapot,
	}

	for path, expected := range cases {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != expected {
			t.Fatalf("route %s expected status %d, got %d", path, expected, rr.Code)
		}
	}
}

func TestRouterUnknownRouteReturns404(t *testing.T) {
	h := handlers.NewHandler(testutil.GoodProvider{}, nil, nil)

	router := NewRouter(h, nil)

	for _, path := range []string{"/does-not-exist", "/ws"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusNotFound {
			t.Fatalf("expected 404 for %s, got %d", path, rr.Code)
		}
	}
}
