package push

import (
	"encoding/json"
	"fmt"

	"github.com/preston-bernstein/live-matches/internal/domain/matches"
)

// TypeMatchUpdate is the only message type carried on the channel. Every
// matchUpdate holds a full snapshot, never a delta.
const TypeMatchUpdate = "matchUpdate"

// IdentityParam names the query parameter and header carrying the identity.
const IdentityParam = "username"

// Message is the JSON envelope exchanged over the websocket.
type Message struct {
	Type    string          `json:"type"`
	Matches []matches.Match `json:"matches"`
}

// EncodeUpdate renders a matchUpdate message for snapshot.
func EncodeUpdate(snapshot []matches.Match) ([]byte, error) {
	if snapshot == nil {
		snapshot = []matches.Match{}
	}
	return json.Marshal(Message{Type: TypeMatchUpdate, Matches: snapshot})
}

// DecodeMessage parses an envelope. matchUpdate payloads are validated.
func DecodeMessage(raw []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Message{}, fmt.Errorf("decode push message: %w", err)
	}
	if msg.Type != TypeMatchUpdate {
		return msg, nil
	}
	if msg.Matches == nil {
		msg.Matches = []matches.Match{}
	}
	if err := matches.Validate(msg.Matches); err != nil {
		return Message{}, fmt.Errorf("invalid matchUpdate: %w", err)
	}
	return msg, nil
}
