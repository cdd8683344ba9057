package requestutil

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// IdentityParam is the query parameter and header that carry the username.
const IdentityParam = "username"

var requestIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// SanitizeRequestID validates the incoming request ID header and generates a new one when invalid.
func SanitizeRequestID(incoming string) string {
	if incoming != "" && requestIDPattern.MatchString(incoming) {
		return incoming
	}
	return NewRequestID()
}

// NewRequestID generates a random request ID.
func NewRequestID() string {
	return uuid.NewString()
}

// ClientIP extracts the client IP from X-Forwarded-For or RemoteAddr.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	return r.RemoteAddr
}

// Identity returns the username from the query string, falling back to the
// username header.
func Identity(r *http.Request) string {
	if r == nil {
		return ""
	}
	if v := strings.TrimSpace(r.URL.Query().Get(IdentityParam)); v != "" {
		return v
	}
	return strings.TrimSpace(r.Header.Get(IdentityParam))
}
