package store

import (
	"context"
	"time"
)

// Message is one persisted chat entry. Messages are append-only and
// immutable once written; history ordering is by Timestamp ascending.
type Message struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content,omitempty"`
	FileURL   string    `json:"fileUrl,omitempty"`
	FileType  string    `json:"fileType,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Room      string    `json:"room"`
}

// MessageStore is the append/query contract the event router depends on.
// SQLiteStore implements this interface.
type MessageStore interface {
	// SaveMessage appends one message. The store assigns Message.ID when
	// it is empty.
	SaveMessage(ctx context.Context, msg *Message) error

	// RecentMessages returns up to limit of the most recently written
	// messages for a room, ordered ascending by timestamp.
	RecentMessages(ctx context.Context, room string, limit int) ([]Message, error)

	Close()
}
