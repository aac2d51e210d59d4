package domain

import "time"

type CallID string

type CallKind string

const (
	CallAudio CallKind = "audio"
	CallVideo CallKind = "video"
)

// CallStatus is the lifecycle state of a signaling session.
// ringing -> active -> ended; ended is terminal.
type CallStatus string

const (
	CallRinging CallStatus = "ringing"
	CallActive  CallStatus = "active"
	CallEnded   CallStatus = "ended"
)

// Call is a read-only snapshot of one signaling session. The coordinator owns
// the live state; snapshots are what callers get back and may keep freely.
type Call struct {
	ID           CallID     `json:"call_id"`
	CallerID     UserID     `json:"caller_id"`
	CalleeID     UserID     `json:"callee_id,omitempty"`
	RoomID       RoomID     `json:"room_id,omitempty"`
	Kind         CallKind   `json:"call_type"`
	Status       CallStatus `json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      time.Time  `json:"ended_at,omitempty"`
	Participants []UserID   `json:"participants"`
}

// IsDirect reports whether the call is 1:1 rather than room-scoped.
// Direct calls end as soon as fewer than two participants remain.
func (c *Call) IsDirect() bool { return c.RoomID == "" }

func (c *Call) HasParticipant(uid UserID) bool {
	for _, p := range c.Participants {
		if p == uid {
			return true
		}
	}
	return false
}
