package http

import (
	nethttp "net/http"

	"github.com/preston-bernstein/live-matches/internal/http/handlers"
)

// NewRouter registers HTTP routes on a ServeMux. ws serves the push
// endpoint and may be nil when push is disabled.
func NewRouter(handler *handlers.Handler, ws nethttp.Handler) nethttp.Handler {
	mux := nethttp.NewServeMux()
	mux.HandleFunc("/health", handler.Health)
	mux.HandleFunc("/ready", handler.Ready)
	mux.HandleFunc("/api/matches", handler.Matches)
	mux.HandleFunc("/matches", handler.Matches)
	if ws != nil {
		mux.Handle("/ws", ws)
	}
	mux.Handle("/", handler)
	return mux
}
