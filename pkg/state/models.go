package state

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Peer is the sending side of a live transport session. The concrete
// implementation lives in pkg/transport; the state layer only ever needs
// to address and write to it.
type Peer interface {
	ID() uuid.UUID
	Send(message []byte)
}

// UserProfile is the identity a client declares once per connection.
// It is never persisted beyond the connection's lifetime.
type UserProfile struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

// representation of a single transport-layer connection.
type Connection struct {
	ID        uuid.UUID
	IPAddress string
	Transport Peer
	Profile   *UserProfile // nil until the client announces itself
	Rooms     map[string]*Room
	CreatedAt time.Time
}

// a named broadcast scope. A room exists while it has members and is
// discarded once the last one leaves.
type Room struct {
	ID      string
	Members map[uuid.UUID]*Connection
}

// DMKey builds the canonical room key for a two-party direct-message
// conversation. The usernames are sorted so both participants compute
// the same key: DMKey(a, b) == DMKey(b, a).
func DMKey(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return "dm_" + strings.Join(pair, "_")
}
