package signal

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dkeye/Huddle/internal/app/orch"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
)

var (
	ErrMalformedFrame = errors.New("malformed frame")
	ErrUnknownType    = errors.New("unknown event type")
)

func decodeEnvelope(data []byte) (core.Envelope, error) {
	var env core.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return core.Envelope{}, ErrMalformedFrame
	}
	if env.Type == "" {
		return core.Envelope{}, fmt.Errorf("%w: missing type", ErrMalformedFrame)
	}
	return env, nil
}

func isPing(env core.Envelope) bool {
	return env.Type == core.EventPing
}

// decodeInbound maps a client envelope to an orchestrator event. Missing
// identifiers decode to zero values; the orchestrator ignores those events.
func decodeInbound(env core.Envelope) (orch.Inbound, error) {
	payload := env.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	var ev orch.Inbound
	switch env.Type {
	case core.EventJoinRoom:
		var e orch.JoinRoom
		if err := unmarshalPayload(payload, &e); err != nil {
			return nil, err
		}
		ev = e
	case core.EventLeaveRoom:
		var e orch.LeaveRoom
		if err := unmarshalPayload(payload, &e); err != nil {
			return nil, err
		}
		ev = e
	case core.EventSignal:
		var e orch.Signal
		if err := unmarshalPayload(payload, &e); err != nil {
			return nil, err
		}
		ev = e
	case core.EventChatMessage:
		var head struct {
			RoomID domain.RoomID `json:"roomId"`
		}
		if err := unmarshalPayload(payload, &head); err != nil {
			return nil, err
		}
		ev = orch.Chat{RoomID: head.RoomID, Payload: payload}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
	return ev, nil
}

func unmarshalPayload(payload json.RawMessage, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return nil
}
