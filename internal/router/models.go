package router

import (
	"encoding/json"
	"time"

	"github.com/Paras-00/Real-time-chat-application/pkg/state"
)

// Frame is the wire envelope for every event in both directions.
type Frame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Inbound event names accepted from clients. Anything else is rejected
// at the boundary.
const (
	EventUserJoin          = "user_join"
	EventJoinRoom          = "join_room"
	EventLeaveRoom         = "leave_room"
	EventMessage           = "message"
	EventTyping            = "typing"
	EventMediaAction       = "media_action"
	EventRequestMediaState = "request_media_state"
	EventSendMediaState    = "send_media_state"
)

// Outbound event names.
const (
	EventOnlineUsers     = "online_users"
	EventInitMessages    = "init_messages"
	EventMediaUpdate     = "media_update"
	EventGetCurrentState = "get_current_state"
)

// Media action subtypes. "sync" is only ever produced server-side as a
// targeted relay and is never accepted as a broadcastable media_action.
const (
	MediaActionURL   = "url"
	MediaActionPlay  = "play"
	MediaActionPause = "pause"
	MediaActionSeek  = "seek"
	MediaActionSync  = "sync"
)

// UserJoinEvent announces the client's identity for presence.
type UserJoinEvent struct {
	state.UserProfile
}

// RoomEvent carries a bare room name (join_room, leave_room,
// request_media_state).
type RoomEvent struct {
	Room string
}

// MessageEvent is an inbound chat or file message.
type MessageEvent struct {
	Sender    string    `json:"sender"`
	Content   string    `json:"content,omitempty"`
	FileURL   string    `json:"fileUrl,omitempty"`
	FileType  string    `json:"fileType,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
	Room      string    `json:"room,omitempty"`
}

// TypingEvent signals composing state to the rest of a room.
type TypingEvent struct {
	IsTyping bool   `json:"isTyping"`
	Room     string `json:"room"`
}

// MediaActionEvent is a playback change broadcast to a room.
type MediaActionEvent struct {
	Room    string          `json:"room"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MediaState is the transient watch-party state relayed between peers.
// It is never persisted server-side.
type MediaState struct {
	URL         string  `json:"url"`
	CurrentTime float64 `json:"currentTime"`
	IsPlaying   bool    `json:"isPlaying"`
}

// SendMediaStateEvent is a peer's reply to get_current_state, addressed
// to the original requester.
type SendMediaStateEvent struct {
	To    string     `json:"to"`
	State MediaState `json:"state"`
}
