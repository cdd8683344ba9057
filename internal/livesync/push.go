package livesync

import (
	"context"

	"github.com/preston-bernstein/live-matches/internal/domain/matches"
	"github.com/preston-bernstein/live-matches/internal/push"
)

// PushChannel is an optional server-to-client update source. Snapshots it
// emits go through the same reconciliation path as fetch results. A channel
// that fails to connect only reports state; it never produces an error.
type PushChannel interface {
	Start(ctx context.Context, h push.Handlers)
	Close() error
}

// FilteredPushChannel is a PushChannel whose feed depends on the filter set.
// SetFilters must switch the feed and then report a new StateConnected once
// snapshots follow the new filters.
type FilteredPushChannel interface {
	PushChannel
	SetFilters(f matches.Filters)
}
