package push

import "github.com/preston-bernstein/live-matches/internal/domain/matches"

// State is the connection state of a push channel.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Handlers receive events from a Client. Both callbacks run on the client's
// own goroutine and must not block for long.
type Handlers struct {
	// OnSnapshot is invoked exactly once per matchUpdate received.
	OnSnapshot func(snapshot []matches.Match)
	// OnState is invoked on every state transition.
	OnState func(state State)
}
