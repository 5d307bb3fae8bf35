package core

import (
	"encoding/json"

	"github.com/dkeye/Huddle/internal/domain"
)

// Event names on the wire, inbound and outbound.
const (
	EventJoinRoom        = "join-room"
	EventLeaveRoom       = "leave-room"
	EventSignal          = "signal"
	EventChatMessage     = "chat-message"
	EventPing            = "ping"
	EventPong            = "pong"
	EventConnected       = "connected"
	EventAllParticipants = "all-participants"
	EventNewParticipant  = "new-participant"
	EventParticipantLeft = "participant-left"
	EventError           = "error"
)

// Envelope is the frame layout in both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type outEnvelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Encode wraps payload in an envelope. Raw payloads are embedded as is.
func Encode(event string, payload any) (Frame, error) {
	return json.Marshal(outEnvelope{Type: event, Payload: payload})
}

type ConnectedPayload struct {
	ConnID domain.ConnID `json:"connectionId"`
}

type SignalPayload struct {
	From domain.ConnID   `json:"from"`
	Data json.RawMessage `json:"data"`
}

type LeftPayload struct {
	ConnID domain.ConnID `json:"connectionId"`
	UserID domain.UserID `json:"userId"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}
