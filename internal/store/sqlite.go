package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"
)

// SQLiteStore persists messages in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the message database.
// If dbPath is empty, defaults to "./data/linksy.db".
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/linksy.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

var _ MessageStore = (*SQLiteStore)(nil)

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		sender TEXT NOT NULL,
		content TEXT DEFAULT '',
		file_url TEXT DEFAULT '',
		file_type TEXT DEFAULT '',
		timestamp DATETIME NOT NULL,
		room TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_messages_room_timestamp ON messages(room, timestamp);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *Message) error {
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, sender, content, file_url, file_type, timestamp, room)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.Sender, msg.Content, msg.FileURL, msg.FileType, msg.Timestamp.UTC(), msg.Room)
	return err
}

func (s *SQLiteStore) RecentMessages(ctx context.Context, room string, limit int) ([]Message, error) {
	// Newest rows first to apply the limit, then reversed so callers see
	// ascending timestamps. ULIDs are monotonic enough to break ties.
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender, content, file_url, file_type, timestamp, room
		FROM messages
		WHERE room = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, room, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Sender, &m.Content, &m.FileURL, &m.FileType, &m.Timestamp, &m.Room); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
