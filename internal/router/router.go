package router

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/Paras-00/Real-time-chat-application/internal/store"
	"github.com/Paras-00/Real-time-chat-application/pkg/state"
	"github.com/google/uuid"
)

// Config tunes routing behavior.
type Config struct {
	// FallbackRoom receives messages that arrive without a room.
	FallbackRoom string
	// HistoryLimit caps the number of messages replayed on join_room.
	HistoryLimit int
}

// EventRouter receives inbound events from connections and fans them out
// with the correct scope: every room member, every member except the
// sender, a single target, or every connection (presence).
type EventRouter struct {
	logger *slog.Logger
	state  state.Manager
	store  store.MessageStore
	config Config

	// per-room ordering locks: a room's messages are persisted and
	// broadcast strictly in arrival order, while other rooms proceed
	// concurrently.
	roomLocks   map[string]*sync.Mutex
	roomLocksMu sync.Mutex

	// serializes presence snapshots so online_users frames never arrive
	// stale-over-fresh.
	presenceMu sync.Mutex
}

func NewEventRouter(logger *slog.Logger, stateManager state.Manager, messageStore store.MessageStore, config Config) *EventRouter {
	if config.FallbackRoom == "" {
		config.FallbackRoom = "general"
	}
	if config.HistoryLimit <= 0 {
		config.HistoryLimit = 50
	}
	return &EventRouter{
		logger:    logger.With(slog.String("component", "event_router")),
		state:     stateManager,
		store:     messageStore,
		config:    config,
		roomLocks: make(map[string]*sync.Mutex),
	}
}

// HandleMessage is the transport's inbound message callback.
func (r *EventRouter) HandleMessage(ctx context.Context, connID uuid.UUID, msg []byte) {
	var frame Frame
	if err := json.Unmarshal(msg, &frame); err != nil {
		r.logger.Warn("Failed to unmarshal client frame", "connID", connID, "error", err)
		return
	}

	event, err := decodeEvent(&frame)
	if err != nil {
		r.logger.Warn("Rejected inbound event", "connID", connID, "error", err)
		return
	}

	conn, ok := r.state.GetConnection(connID)
	if !ok {
		// disconnect raced the dispatch; drop silently.
		r.logger.Debug("Event from unknown connection", "connID", connID)
		return
	}

	switch ev := event.(type) {
	case *UserJoinEvent:
		r.handleUserJoin(conn, ev)
	case *RoomEvent:
		switch frame.Event {
		case EventJoinRoom:
			r.handleJoinRoom(ctx, conn, ev.Room)
		case EventLeaveRoom:
			r.handleLeaveRoom(conn, ev.Room)
		case EventRequestMediaState:
			r.handleRequestMediaState(conn, ev.Room)
		}
	case *MessageEvent:
		r.handleChatMessage(ctx, conn, ev)
	case *TypingEvent:
		r.handleTyping(conn, ev, frame.Payload)
	case *MediaActionEvent:
		r.handleMediaAction(conn, ev, frame.Payload)
	case *SendMediaStateEvent:
		r.handleSendMediaState(conn, ev)
	}
}

// HandleDisconnect is the transport's close callback.
func (r *EventRouter) HandleDisconnect(connID uuid.UUID) {
	hadProfile, err := r.state.DeregisterConnection(connID)
	if err != nil {
		r.logger.Error("Failed to deregister connection", "connID", connID, "error", err)
		return
	}
	if hadProfile {
		r.broadcastPresence()
	}
}

// --- event handlers ---

func (r *EventRouter) handleUserJoin(conn *state.Connection, ev *UserJoinEvent) {
	if err := r.state.SetProfile(conn.ID, ev.UserProfile); err != nil {
		r.logger.Warn("Failed to bind profile", "connID", conn.ID, "error", err)
		return
	}
	r.logger.Info("User joined", "connID", conn.ID, "username", ev.Username)
	r.broadcastPresence()
}

func (r *EventRouter) handleJoinRoom(ctx context.Context, conn *state.Connection, room string) {
	if err := r.state.Join(conn.ID, room); err != nil {
		r.logger.Warn("Failed to join room", "connID", conn.ID, "roomID", room, "error", err)
		return
	}
	r.logger.Debug("Connection joined room", "connID", conn.ID, "roomID", room)

	messages, err := r.store.RecentMessages(ctx, room, r.config.HistoryLimit)
	if err != nil {
		// best-effort: the joiner starts with no history.
		r.logger.Error("Failed to fetch room history", "roomID", room, "error", err)
		return
	}
	if messages == nil {
		messages = []store.Message{}
	}
	r.sendTo(conn, EventInitMessages, messages)
}

func (r *EventRouter) handleLeaveRoom(conn *state.Connection, room string) {
	if err := r.state.Leave(conn.ID, room); err != nil {
		r.logger.Warn("Failed to leave room", "connID", conn.ID, "roomID", room, "error", err)
	}
}

func (r *EventRouter) handleChatMessage(ctx context.Context, conn *state.Connection, ev *MessageEvent) {
	msg := &store.Message{
		Sender:    ev.Sender,
		Content:   ev.Content,
		FileURL:   ev.FileURL,
		FileType:  ev.FileType,
		Timestamp: ev.Timestamp,
		Room:      ev.Room,
	}
	if msg.Room == "" {
		msg.Room = r.config.FallbackRoom
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	// One room's messages persist and broadcast in arrival order; a
	// stalled store call stalls only this room.
	lock := r.roomLock(msg.Room)
	lock.Lock()
	defer lock.Unlock()

	// No broadcast without successful persistence.
	if err := r.store.SaveMessage(ctx, msg); err != nil {
		r.logger.Error("Failed to persist message, dropping", "roomID", msg.Room, "sender", msg.Sender, "error", err)
		return
	}

	frame, err := marshalFrame(EventMessage, msg)
	if err != nil {
		r.logger.Error("Failed to marshal message frame", "error", err)
		return
	}
	r.broadcastRoom(msg.Room, frame)
}

func (r *EventRouter) handleTyping(conn *state.Connection, ev *TypingEvent, payload json.RawMessage) {
	// relayed verbatim; the sender never receives its own typing echo.
	frame, err := marshalFrame(EventTyping, payload)
	if err != nil {
		r.logger.Error("Failed to marshal typing frame", "error", err)
		return
	}
	r.broadcastRoomExcept(ev.Room, conn.ID, frame)
}

// --- fan-out helpers ---

// broadcastPresence sends the current online_users snapshot to every
// connection, including ones that have not announced a profile yet.
func (r *EventRouter) broadcastPresence() {
	r.presenceMu.Lock()
	defer r.presenceMu.Unlock()

	profiles := r.state.ListProfiles()
	frame, err := marshalFrame(EventOnlineUsers, profiles)
	if err != nil {
		r.logger.Error("Failed to marshal presence frame", "error", err)
		return
	}
	for _, conn := range r.state.Connections() {
		conn.Transport.Send(frame)
	}
}

func (r *EventRouter) broadcastRoom(roomID string, frame []byte) {
	for _, member := range r.state.RoomMembers(roomID) {
		member.Transport.Send(frame)
	}
}

func (r *EventRouter) broadcastRoomExcept(roomID string, except uuid.UUID, frame []byte) {
	for _, member := range r.state.RoomMembers(roomID) {
		if member.ID == except {
			continue
		}
		member.Transport.Send(frame)
	}
}

func (r *EventRouter) sendTo(conn *state.Connection, event string, payload any) {
	frame, err := marshalFrame(event, payload)
	if err != nil {
		r.logger.Error("Failed to marshal frame", "event", event, "error", err)
		return
	}
	conn.Transport.Send(frame)
}

func (r *EventRouter) roomLock(roomID string) *sync.Mutex {
	r.roomLocksMu.Lock()
	defer r.roomLocksMu.Unlock()

	lock, ok := r.roomLocks[roomID]
	if !ok {
		lock = &sync.Mutex{}
		r.roomLocks[roomID] = lock
	}
	return lock
}

func marshalFrame(event string, payload any) ([]byte, error) {
	var raw json.RawMessage
	switch p := payload.(type) {
	case json.RawMessage:
		raw = p
	default:
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = encoded
	}
	return json.Marshal(Frame{Event: event, Payload: raw})
}
