package router

import (
	"encoding/json"

	"github.com/Paras-00/Real-time-chat-application/pkg/state"
	"github.com/google/uuid"
)

// Media-sync is a two-phase peer relay: a new joiner asks the room for
// the current playback state, the server picks one existing member to
// answer, and that member's reply is relayed back to the joiner alone.
// The server never stores playback state.

type getCurrentStatePayload struct {
	RequesterID string `json:"requesterId"`
}

type mediaUpdatePayload struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// handleMediaAction relays a playback change (url/play/pause/seek) to
// everyone in the room except the sender. Media actions are never
// persisted.
func (r *EventRouter) handleMediaAction(conn *state.Connection, ev *MediaActionEvent, payload json.RawMessage) {
	frame, err := marshalFrame(EventMediaUpdate, payload)
	if err != nil {
		r.logger.Error("Failed to marshal media_update frame", "error", err)
		return
	}
	r.broadcastRoomExcept(ev.Room, conn.ID, frame)
}

// handleRequestMediaState asks one arbitrary other room member (no
// preference order) to report its playback state. With no other member
// present there is nothing to sync to and no request is made.
func (r *EventRouter) handleRequestMediaState(conn *state.Connection, room string) {
	var peer *state.Connection
	for _, member := range r.state.RoomMembers(room) {
		if member.ID != conn.ID {
			peer = member
			break
		}
	}
	if peer == nil {
		r.logger.Debug("No peer available for media state", "roomID", room, "connID", conn.ID)
		return
	}

	r.sendTo(peer, EventGetCurrentState, getCurrentStatePayload{
		RequesterID: conn.ID.String(),
	})
}

// handleSendMediaState relays a peer's playback state to the original
// requester as a targeted media_update of subtype "sync". Sync updates
// are never broadcast. A requester that disconnected in the meantime is
// a silent no-op.
func (r *EventRouter) handleSendMediaState(conn *state.Connection, ev *SendMediaStateEvent) {
	targetID, err := uuid.Parse(ev.To)
	if err != nil {
		r.logger.Warn("send_media_state carried a malformed target id", "to", ev.To, "error", err)
		return
	}
	target, ok := r.state.GetConnection(targetID)
	if !ok {
		r.logger.Debug("Media state target no longer connected", "to", ev.To)
		return
	}

	statePayload, err := json.Marshal(ev.State)
	if err != nil {
		r.logger.Error("Failed to marshal media state", "error", err)
		return
	}
	r.sendTo(target, EventMediaUpdate, mediaUpdatePayload{
		Type:    MediaActionSync,
		Payload: statePayload,
	})
}
