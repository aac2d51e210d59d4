package app

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/nexuschat/server/internal/core"
	"github.com/nexuschat/server/internal/domain"
)

// Router is the orchestrating core: it decodes one inbound frame, performs the
// side effect through the persistence collaborators, resolves fan-out targets
// through the registry, room index and call coordinator, and dispatches
// delivery. Delivery is fire-and-forget; a target with no live session simply
// receives nothing.
type Router struct {
	Registry *Registry
	Rooms    *RoomIndex
	Presence *Presence
	Calls    *Calls
	Messages core.MessageStore
	Users    core.UserDirectory

	validate *validator.Validate
}

func NewRouter(registry *Registry, rooms *RoomIndex, presence *Presence, calls *Calls, messages core.MessageStore, users core.UserDirectory) *Router {
	return &Router{
		Registry: registry,
		Rooms:    rooms,
		Presence: presence,
		Calls:    calls,
		Messages: messages,
		Users:    users,
		validate: validator.New(),
	}
}

// HandleConnect registers the session, triggers presence-online on the user's
// first session, and sends the one-time online_users frame to this socket.
func (rt *Router) HandleConnect(s *core.Session) {
	first := rt.Registry.Register(s)
	if first {
		rt.Presence.OnConnect(s.User.ID)
	}

	frame, err := json.Marshal(OnlineUsersEvent{Type: "online_users", Users: rt.Registry.OnlineUsers()})
	if err != nil {
		log.Error().Err(err).Str("module", "app.router").Msg("marshal online_users")
		return
	}
	if err := s.Conn.TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "app.router").Str("user", string(s.User.ID)).Msg("send online_users")
	}
}

// HandleDisconnect is the teardown sequence for a closing socket: unregister
// the session, and when it was the user's last one, purge room subscriptions,
// pull the user out of any active call (notifying the peers), and flip
// presence to offline. Skipping any step here leaks fan-out state. Reports
// whether this was the user's last session.
func (rt *Router) HandleDisconnect(s *core.Session) bool {
	uid := s.User.ID
	last := rt.Registry.Unregister(s)
	if !last {
		return false
	}

	rt.Rooms.PurgeUser(uid)

	if call, ok := rt.Calls.PurgeUser(uid); ok {
		rt.notifyCall(call, uid, NewCallEndedEvent(call.ID, uid))
	}

	rt.Presence.OnDisconnect(uid)
	return true
}

// Handle dispatches one inbound frame by its declared type. Malformed frames
// and unknown types are dropped without a response.
func (rt *Router) Handle(uid domain.UserID, username string, data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "app.router").Str("user", string(uid)).Msg("bad json frame")
		return
	}

	switch env.Type {
	case EventMessage:
		rt.handleMessage(uid, username, data)
	case EventTyping:
		rt.handleTyping(uid, username, data)
	case EventRead:
		rt.handleRead(uid, data)
	case EventCallOffer:
		rt.handleCallOffer(uid, username, data)
	case EventCallAnswer:
		rt.handleCallAnswer(uid, data)
	case EventICECandidate:
		rt.handleICECandidate(uid, data)
	case EventCallEnd:
		rt.handleCallEnd(uid, data)
	case EventJoinRoom:
		if p, ok := decode[roomPayload](rt, uid, data); ok {
			rt.Rooms.Join(domain.RoomID(p.RoomID), uid)
		}
	case EventLeaveRoom:
		if p, ok := decode[roomPayload](rt, uid, data); ok {
			rt.Rooms.Leave(domain.RoomID(p.RoomID), uid)
		}
	default:
		log.Warn().Str("module", "app.router").Str("type", env.Type).Msg("unknown event type")
	}
}

// decode unmarshals and validates a typed payload; failures drop the frame.
func decode[T any](rt *Router, uid domain.UserID, data []byte) (T, bool) {
	var p T
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "app.router").Str("user", string(uid)).Msg("bad payload")
		return p, false
	}
	if err := rt.validate.Struct(&p); err != nil {
		log.Warn().Err(err).Str("module", "app.router").Str("user", string(uid)).Msg("payload missing required fields")
		return p, false
	}
	return p, true
}

func (rt *Router) handleMessage(uid domain.UserID, username string, data []byte) {
	p, ok := decode[messagePayload](rt, uid, data)
	if !ok {
		return
	}

	msgType := p.MessageType
	if msgType == "" {
		msgType = "text"
	}
	msg := &domain.Message{
		ID:          domain.MessageID(uuid.NewString()),
		SenderID:    uid,
		ReceiverID:  domain.UserID(p.ReceiverID),
		RoomID:      domain.RoomID(p.RoomID),
		Content:     p.Content,
		MessageType: msgType,
		FileID:      p.FileID,
		FileName:    p.FileName,
		FileSize:    p.FileSize,
		ReplyTo:     domain.MessageID(p.ReplyTo),
		ReadBy:      []domain.UserID{},
		Timestamp:   time.Now().UTC(),
	}
	if err := rt.Messages.Append(msg); err != nil {
		log.Error().Err(err).Str("module", "app.router").Str("message", string(msg.ID)).Msg("persist message, delivering anyway")
	}

	event := MessageEvent{
		Type:           EventMessage,
		ID:             msg.ID,
		SenderID:       uid,
		SenderUsername: username,
		SenderAvatar:   rt.avatarOf(uid),
		ReceiverID:     msg.ReceiverID,
		RoomID:         msg.RoomID,
		Content:        msg.Content,
		MessageType:    msg.MessageType,
		FileID:         msg.FileID,
		FileName:       msg.FileName,
		FileSize:       msg.FileSize,
		ReplyTo:        p.ReplyTo,
		Timestamp:      msg.Timestamp.Format(time.RFC3339),
	}

	switch {
	case msg.ReceiverID != "":
		// Echo back so the sender's other sessions see their own message.
		rt.Registry.SendTo(msg.ReceiverID, event)
		rt.Registry.SendTo(uid, event)
	case msg.RoomID != "":
		rt.Rooms.Broadcast(msg.RoomID, event, "")
	}
}

func (rt *Router) handleTyping(uid domain.UserID, username string, data []byte) {
	p, ok := decode[typingPayload](rt, uid, data)
	if !ok {
		return
	}
	isTyping := true
	if p.IsTyping != nil {
		isTyping = *p.IsTyping
	}
	event := TypingEvent{Type: EventTyping, UserID: uid, Username: username, IsTyping: isTyping}

	switch {
	case p.ReceiverID != "":
		rt.Registry.SendTo(domain.UserID(p.ReceiverID), event)
	case p.RoomID != "":
		rt.Rooms.Broadcast(domain.RoomID(p.RoomID), event, uid)
	}
}

func (rt *Router) handleRead(uid domain.UserID, data []byte) {
	p, ok := decode[readPayload](rt, uid, data)
	if !ok {
		return
	}
	id := domain.MessageID(p.MessageID)
	if err := rt.Messages.MarkRead(id, uid); err != nil {
		log.Error().Err(err).Str("module", "app.router").Str("message", p.MessageID).Msg("mark read")
	}
	msg, err := rt.Messages.Get(id)
	if err != nil {
		return
	}
	rt.Registry.SendTo(msg.SenderID, ReadReceiptEvent{Type: "read_receipt", MessageID: id, ReadBy: uid})
}

func (rt *Router) handleCallOffer(uid domain.UserID, username string, data []byte) {
	p, ok := decode[callOfferPayload](rt, uid, data)
	if !ok {
		return
	}

	call := rt.Calls.Create(domain.CallID(p.CallID), uid, domain.UserID(p.CalleeID), domain.RoomID(p.RoomID), domain.CallKind(p.CallType))
	event := NewOfferEvent(call.ID, uid, username, p.SDP, string(call.Kind))

	switch {
	case p.CalleeID != "":
		rt.Registry.SendTo(domain.UserID(p.CalleeID), event)
	case p.RoomID != "":
		rt.Rooms.Broadcast(domain.RoomID(p.RoomID), event, uid)
	}
}

func (rt *Router) handleCallAnswer(uid domain.UserID, data []byte) {
	p, ok := decode[callAnswerPayload](rt, uid, data)
	if !ok {
		return
	}

	call, ok := rt.Calls.Join(domain.CallID(p.CallID), uid)
	if !ok {
		// Already ended by the other party; expected, not a fault.
		return
	}
	event := NewAnswerEvent(call.ID, uid, p.SDP)
	if call.CalleeID != "" {
		rt.Registry.SendTo(call.CallerID, event)
		return
	}
	rt.notifyCall(call, uid, event)
}

func (rt *Router) handleICECandidate(uid domain.UserID, data []byte) {
	p, ok := decode[iceCandidatePayload](rt, uid, data)
	if !ok {
		return
	}
	call, ok := rt.Calls.Get(domain.CallID(p.CallID))
	if !ok {
		return
	}
	// Candidates only relay between parties already in the call.
	if !call.HasParticipant(uid) {
		return
	}
	rt.notifyCall(call, uid, NewICECandidateEvent(call.ID, uid, p.Candidate))
}

func (rt *Router) handleCallEnd(uid domain.UserID, data []byte) {
	p, ok := decode[callEndPayload](rt, uid, data)
	if !ok {
		return
	}
	call, ok := rt.Calls.Get(domain.CallID(p.CallID))
	if !ok {
		return
	}
	rt.notifyCall(call, uid, NewCallEndedEvent(call.ID, uid))
	rt.Calls.End(call.ID)
}

// notifyCall fans an event out to every call participant except origin.
func (rt *Router) notifyCall(call *domain.Call, origin domain.UserID, event any) {
	for _, participant := range call.Participants {
		if participant == origin {
			continue
		}
		rt.Registry.SendTo(participant, event)
	}
}

func (rt *Router) avatarOf(uid domain.UserID) string {
	u, err := rt.Users.Get(uid)
	if err != nil {
		return ""
	}
	return u.Avatar
}
