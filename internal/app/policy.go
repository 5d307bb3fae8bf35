package app

import (
	"fmt"

	"github.com/dkeye/Huddle/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickMember
	DropFrame
)

// Policy decides what happens to a target whose send buffer refused a frame.
type Policy interface {
	OnBackPressure(room domain.RoomID, conn domain.ConnID) BackpressureAction
}

// DropPolicy treats a slow peer as absent for that frame only.
type DropPolicy struct{}

func (DropPolicy) OnBackPressure(domain.RoomID, domain.ConnID) BackpressureAction {
	return DropFrame
}

// KickPolicy terminates slow peers.
type KickPolicy struct{}

func (KickPolicy) OnBackPressure(domain.RoomID, domain.ConnID) BackpressureAction {
	return KickMember
}

func PolicyByName(name string) (Policy, error) {
	switch name {
	case "", "drop":
		return DropPolicy{}, nil
	case "kick":
		return KickPolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown backpressure policy %q", name)
	}
}
