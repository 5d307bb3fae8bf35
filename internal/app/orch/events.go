package orch

import (
	"encoding/json"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
)

// Inbound is one event read from a connection. The set of implementations is
// closed: JoinRoom, LeaveRoom, Signal, Chat and Disconnect.
type Inbound interface {
	Kind() string
	inbound()
}

type JoinRoom struct {
	RoomID   domain.RoomID `json:"roomId"`
	UserID   domain.UserID `json:"userId"`
	UserName string        `json:"userName"`
}

type LeaveRoom struct {
	RoomID domain.RoomID `json:"roomId"`
}

// Signal carries an opaque negotiation blob to one connection.
type Signal struct {
	To   domain.ConnID   `json:"toConnectionId"`
	Data json.RawMessage `json:"data"`
}

// Chat is forwarded to the room as received; only RoomID is read.
type Chat struct {
	RoomID  domain.RoomID
	Payload json.RawMessage
}

// Disconnect is synthesized by the gateway when the channel ends.
type Disconnect struct{}

func (JoinRoom) Kind() string   { return core.EventJoinRoom }
func (LeaveRoom) Kind() string  { return core.EventLeaveRoom }
func (Signal) Kind() string     { return core.EventSignal }
func (Chat) Kind() string       { return core.EventChatMessage }
func (Disconnect) Kind() string { return "disconnect" }

func (JoinRoom) inbound()   {}
func (LeaveRoom) inbound()  {}
func (Signal) inbound()     {}
func (Chat) inbound()       {}
func (Disconnect) inbound() {}
