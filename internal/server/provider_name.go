package server

import (
	"fmt"
	"strings"

	"github.com/preston-bernstein/live-matches/internal/providers"
)

// normalizeProviderName returns a lower-cased provider name, deriving from instance when not explicitly configured.
// Used across server wiring and provider factory to keep naming consistent in metrics/logs.
func normalizeProviderName(raw string, provider providers.MatchProvider) string {
	if name := strings.ToLower(strings.TrimSpace(raw)); name != "" {
		return name
	}
	if provider != nil {
		return strings.ToLower(fmt.Sprintf("%T", provider))
	}
	return "provider"
}
