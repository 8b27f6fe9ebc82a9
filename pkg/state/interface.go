package state

import (
	"github.com/google/uuid"
)

type Manager interface {
	// --- Connection Lifecycle ---
	RegisterConnection(peer Peer, ipAddr string) (*Connection, error)
	// DeregisterConnection removes the connection and prunes its room
	// memberships. It reports whether the connection had a bound profile
	// so the caller can decide to re-broadcast presence.
	DeregisterConnection(connID uuid.UUID) (hadProfile bool, err error)
	GetConnection(connID uuid.UUID) (*Connection, bool)
	Connections() []*Connection
	ConnectionCountByIP(ipAddr string) int

	// --- Presence ---
	// binds a profile to a connection. Unknown connections are an error.
	SetProfile(connID uuid.UUID, profile UserProfile) error
	// ListProfiles returns the profile of every connection that has one,
	// in no particular order.
	ListProfiles() []UserProfile

	// --- Room Membership ---
	// adds a connection to a room, creating the room if it doesn't exist.
	// Joining a room twice is a no-op.
	Join(connID uuid.UUID, roomID string) error
	// removes a connection from a room. Leaving a room the connection is
	// not in is a no-op.
	Leave(connID uuid.UUID, roomID string) error
	// RoomMembers returns a snapshot of the room's current members,
	// possibly empty.
	RoomMembers(roomID string) []*Connection
	FindRoom(roomID string) (*Room, bool)
}
