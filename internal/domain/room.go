package domain

import "errors"

const MaxRoomIDLen = 64

var ErrRoomIDInvalid = errors.New("invalid room id")

type RoomID string

// Valid reports whether the id can key a room.
func (id RoomID) Valid() bool {
	return id != "" && len(id) <= MaxRoomIDLen
}

func ParseRoomID(s string) (RoomID, error) {
	id := RoomID(s)
	if !id.Valid() {
		return "", ErrRoomIDInvalid
	}
	return id, nil
}
