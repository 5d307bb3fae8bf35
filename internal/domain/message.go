package domain

import "time"

// Message is one stored chat line of a room's history.
type Message struct {
	ID         string    `json:"id"`
	RoomID     RoomID    `json:"roomId"`
	SenderID   UserID    `json:"senderId"`
	SenderName string    `json:"senderName"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"createdAt"`
}
