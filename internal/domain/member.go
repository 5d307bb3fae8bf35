package domain

// ConnID identifies one live signaling channel. A new channel always gets a new ConnID.
type ConnID string

// Member represents a connection's participation in a room.
// No transport or lifecycle logic here.
type Member struct {
	ConnID   ConnID `json:"connectionId"`
	UserID   UserID `json:"userId"`
	UserName string `json:"userName"`
}

// NewMember avoids raw literals in adapters and keeps construction obvious.
func NewMember(conn ConnID, userID UserID, userName string) Member {
	return Member{ConnID: conn, UserID: userID, UserName: userName}
}
