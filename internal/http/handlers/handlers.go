package handlers

import (
	"log/slog"
	nethttp "net/http"
	"time"

	"github.com/preston-bernstein/live-matches/internal/domain/matches"
	"github.com/preston-bernstein/live-matches/internal/http/requestutil"
	"github.com/preston-bernstein/live-matches/internal/logging"
	"github.com/preston-bernstein/live-matches/internal/providers"
)

const (
	msgIdentityRequired = "Username is required"
	msgUnreachable      = "Unable to connect to the matches API"
	msgTimeout          = "Request timeout - API is taking too long to respond"
	msgUnexpected       = "An unexpected error occurred while fetching matches"
)

type nowFunc func() time.Time

// ReadyFunc reports whether the service can take traffic and, when it
// cannot, why.
type ReadyFunc func() (bool, string)

// Handler serves the matches proxy and the health endpoints.
type Handler struct {
	provider providers.MatchProvider
	logger   *slog.Logger
	now      nowFunc
	readyFn  ReadyFunc
}

// NewHandler constructs a Handler with defaults.
func NewHandler(provider providers.MatchProvider, logger *slog.Logger, readyFn ReadyFunc) *Handler {
	return &Handler{
		provider: provider,
		logger:   logger,
		now:      time.Now,
		readyFn:  readyFn,
	}
}

func (h *Handler) ServeHTTP(w nethttp.ResponseWriter, r *nethttp.Request) {
	switch r.URL.Path {
	case "/health":
		h.Health(w, r)
	case "/ready":
		h.Ready(w, r)
	case "/api/matches", "/matches":
		h.Matches(w, r)
	default:
		writeError(w, r, nethttp.StatusNotFound, "not found", h.logger)
	}
}

// Health reports the service health.
func (h *Handler) Health(w nethttp.ResponseWriter, r *nethttp.Request) {
	if r.Method != nethttp.MethodGet {
		writeError(w, r, nethttp.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}
	if err := r.Context().Err(); err != nil {
		writeError(w, r, nethttp.StatusServiceUnavailable, "shutting down", h.logger)
		return
	}
	writeJSON(w, nethttp.StatusOK, map[string]string{"status": "ok"}, h.logger)
}

// Ready reports readiness for traffic (e.g., for Kubernetes probes).
func (h *Handler) Ready(w nethttp.ResponseWriter, r *nethttp.Request) {
	if r.Method != nethttp.MethodGet {
		writeError(w, r, nethttp.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}
	if h.provider == nil {
		writeError(w, r, nethttp.StatusServiceUnavailable, "provider not configured", h.logger)
		return
	}
	if h.readyFn != nil {
		if ok, reason := h.readyFn(); !ok {
			if reason == "" {
				reason = "not ready"
			}
			writeError(w, r, nethttp.StatusServiceUnavailable, reason, h.logger)
			return
		}
	}
	writeJSON(w, nethttp.StatusOK, map[string]string{"status": "ready"}, h.logger)
}

// Matches proxies the identity's match list from the provider.
func (h *Handler) Matches(w nethttp.ResponseWriter, r *nethttp.Request) {
	if r.Method != nethttp.MethodGet {
		writeError(w, r, nethttp.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}
	identity := requestutil.Identity(r)
	if identity == "" {
		writeError(w, r, nethttp.StatusBadRequest, msgIdentityRequired, h.logger)
		return
	}
	filters := matches.FiltersFromQuery(r.URL.Query())
	if err := filters.Validate(); err != nil {
		writeError(w, r, nethttp.StatusBadRequest, err.Error(), h.logger)
		return
	}
	if h.provider == nil {
		writeError(w, r, nethttp.StatusServiceUnavailable, msgUnreachable, h.logger)
		return
	}

	logger := loggerFromContext(r, h.logger)
	list, err := h.provider.FetchMatches(r.Context(), identity, filters)
	if err != nil {
		status, msg := errorResponse(err)
		logging.Warn(logger, "matches fetch failed",
			logging.FieldIdentity, identity,
			logging.FieldStatusCode, status,
			"error", err,
		)
		writeError(w, r, status, msg, h.logger)
		return
	}

	logging.Info(logger, "served matches", logging.FieldIdentity, identity, logging.FieldCount, len(list))
	writeJSON(w, nethttp.StatusOK, matches.NewListResponse(list, h.now().UTC()), h.logger)
}

// errorResponse maps a fetch failure onto the proxy's HTTP contract.
func errorResponse(err error) (int, string) {
	fe := providers.Classify(err)
	if fe.Status > 0 {
		msg := fe.Message
		if msg == "" {
			msg = nethttp.StatusText(fe.Status)
		}
		return fe.Status, msg
	}
	switch fe.Kind {
	case providers.KindUnreachable:
		return nethttp.StatusServiceUnavailable, msgUnreachable
	case providers.KindTimeout:
		return nethttp.StatusGatewayTimeout, msgTimeout
	case providers.KindUnauthorized:
		return nethttp.StatusUnauthorized, fe.Error()
	default:
		return nethttp.StatusInternalServerError, msgUnexpected
	}
}
