package domain

import "time"

type MessageID string

// Message is the persisted record for one chat message, direct or room-scoped.
// Exactly one of ReceiverID / RoomID is normally set; a message with neither
// is stored but never routed.
type Message struct {
	ID          MessageID `json:"id"`
	SenderID    UserID    `json:"sender_id"`
	ReceiverID  UserID    `json:"receiver_id,omitempty"`
	RoomID      RoomID    `json:"room_id,omitempty"`
	Content     string    `json:"content"`
	MessageType string    `json:"message_type"`
	FileID      string    `json:"file_id,omitempty"`
	FileName    string    `json:"file_name,omitempty"`
	FileSize    int64     `json:"file_size,omitempty"`
	ReplyTo     MessageID `json:"reply_to,omitempty"`
	ReadBy      []UserID  `json:"read_by"`
	Timestamp   time.Time `json:"timestamp"`
	Edited      bool      `json:"edited"`
	Deleted     bool      `json:"deleted"`
}
