package app

import (
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/nexuschat/server/internal/domain"
)

// Inbound event types form a closed set; anything else is dropped.
const (
	EventMessage      = "message"
	EventTyping       = "typing"
	EventRead         = "read"
	EventCallOffer    = "call_offer"
	EventCallAnswer   = "call_answer"
	EventICECandidate = "ice_candidate"
	EventCallEnd      = "call_end"
	EventJoinRoom     = "join_room"
	EventLeaveRoom    = "leave_room"
)

type envelope struct {
	Type string `json:"type"`
}

type messagePayload struct {
	Content     string `json:"content" validate:"required"`
	ReceiverID  string `json:"receiver_id"`
	RoomID      string `json:"room_id"`
	MessageType string `json:"message_type"`
	FileID      string `json:"file_id"`
	FileName    string `json:"file_name"`
	FileSize    int64  `json:"file_size"`
	ReplyTo     string `json:"reply_to"`
}

type typingPayload struct {
	ReceiverID string `json:"receiver_id"`
	RoomID     string `json:"room_id"`
	// nil means typing started; clients only send false explicitly.
	IsTyping *bool `json:"is_typing"`
}

type readPayload struct {
	MessageID string `json:"message_id" validate:"required"`
}

type callOfferPayload struct {
	SDP      string `json:"sdp" validate:"required"`
	CalleeID string `json:"callee_id"`
	RoomID   string `json:"room_id"`
	CallType string `json:"call_type"`
	CallID   string `json:"call_id"`
}

type callAnswerPayload struct {
	CallID string `json:"call_id" validate:"required"`
	SDP    string `json:"sdp" validate:"required"`
}

type iceCandidatePayload struct {
	CallID string `json:"call_id" validate:"required"`
	// Relayed verbatim to the peers; the server never interprets it.
	Candidate *webrtc.ICECandidateInit `json:"candidate" validate:"required"`
}

type callEndPayload struct {
	CallID string `json:"call_id" validate:"required"`
}

type roomPayload struct {
	RoomID string `json:"room_id" validate:"required"`
}

// Outbound events mirror the inbound shapes plus server-added fields.

type MessageEvent struct {
	Type           string           `json:"type"`
	ID             domain.MessageID `json:"id"`
	SenderID       domain.UserID    `json:"sender_id"`
	SenderUsername string           `json:"sender_username"`
	SenderAvatar   string           `json:"sender_avatar,omitempty"`
	ReceiverID     domain.UserID    `json:"receiver_id,omitempty"`
	RoomID         domain.RoomID    `json:"room_id,omitempty"`
	Content        string           `json:"content"`
	MessageType    string           `json:"message_type"`
	FileID         string           `json:"file_id,omitempty"`
	FileName       string           `json:"file_name,omitempty"`
	FileSize       int64            `json:"file_size,omitempty"`
	ReplyTo        string           `json:"reply_to,omitempty"`
	Timestamp      string           `json:"timestamp"`
}

type StatusEvent struct {
	Type      string            `json:"type"`
	UserID    domain.UserID     `json:"user_id"`
	Status    domain.UserStatus `json:"status"`
	Timestamp string            `json:"timestamp"`
}

func NewStatusEvent(uid domain.UserID, status domain.UserStatus, at time.Time) StatusEvent {
	return StatusEvent{Type: "user_status", UserID: uid, Status: status, Timestamp: at.Format(time.RFC3339)}
}

type OnlineUsersEvent struct {
	Type  string          `json:"type"`
	Users []domain.UserID `json:"users"`
}

type TypingEvent struct {
	Type     string        `json:"type"`
	UserID   domain.UserID `json:"user_id"`
	Username string        `json:"username"`
	IsTyping bool          `json:"is_typing"`
}

type ReadReceiptEvent struct {
	Type      string           `json:"type"`
	MessageID domain.MessageID `json:"message_id"`
	ReadBy    domain.UserID    `json:"read_by"`
}

type OfferEvent struct {
	Type       string        `json:"type"`
	CallID     domain.CallID `json:"call_id"`
	CallerID   domain.UserID `json:"caller_id"`
	CallerName string        `json:"caller_name"`
	SDP        string        `json:"sdp"`
	CallType   string        `json:"call_type"`
	Timestamp  string        `json:"timestamp"`
}

func NewOfferEvent(callID domain.CallID, callerID domain.UserID, callerName, sdp, callType string) OfferEvent {
	return OfferEvent{
		Type:       EventCallOffer,
		CallID:     callID,
		CallerID:   callerID,
		CallerName: callerName,
		SDP:        sdp,
		CallType:   callType,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
}

type AnswerEvent struct {
	Type       string        `json:"type"`
	CallID     domain.CallID `json:"call_id"`
	AnswererID domain.UserID `json:"answerer_id"`
	SDP        string        `json:"sdp"`
	Timestamp  string        `json:"timestamp"`
}

func NewAnswerEvent(callID domain.CallID, answererID domain.UserID, sdp string) AnswerEvent {
	return AnswerEvent{
		Type:       EventCallAnswer,
		CallID:     callID,
		AnswererID: answererID,
		SDP:        sdp,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
}

type ICECandidateEvent struct {
	Type      string                   `json:"type"`
	CallID    domain.CallID            `json:"call_id"`
	UserID    domain.UserID            `json:"user_id"`
	Candidate *webrtc.ICECandidateInit `json:"candidate"`
	Timestamp string                   `json:"timestamp"`
}

func NewICECandidateEvent(callID domain.CallID, uid domain.UserID, candidate *webrtc.ICECandidateInit) ICECandidateEvent {
	return ICECandidateEvent{
		Type:      EventICECandidate,
		CallID:    callID,
		UserID:    uid,
		Candidate: candidate,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

type CallEndedEvent struct {
	Type      string        `json:"type"`
	CallID    domain.CallID `json:"call_id"`
	EndedBy   domain.UserID `json:"ended_by"`
	Timestamp string        `json:"timestamp"`
}

func NewCallEndedEvent(callID domain.CallID, endedBy domain.UserID) CallEndedEvent {
	return CallEndedEvent{
		Type:      "call_ended",
		CallID:    callID,
		EndedBy:   endedBy,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
