package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_message_store.go -package=mocks kitab/internal/storage MessageStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
)

// timeFormat is the storage format for created_at. Fixed-width nanoseconds
// (unlike RFC3339Nano, which trims trailing zeros) so UTC timestamps sort
// lexicographically and the (session_id, created_at) index preserves
// chronological order.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// MessageStore defines the interface for chat message storage operations.
type MessageStore interface {
	// Insert appends a message. The record's ID and CreatedAt must be set.
	Insert(ctx context.Context, msg *MessageRecord) error
	// ListBySession returns up to limit messages for a session, oldest first.
	ListBySession(ctx context.Context, sessionID string, limit int) ([]*MessageRecord, error)
	// DeleteBySession deletes all messages for a session. Deleting a session
	// with no messages is not an error.
	DeleteBySession(ctx context.Context, sessionID string) error
	// CountUserSince counts role=user messages for a session with a timestamp
	// at or after the given cutoff.
	CountUserSince(ctx context.Context, sessionID string, since time.Time) (int, error)
}

// MessageRepo provides methods for chat message operations.
// It implements the MessageStore interface.
type MessageRepo struct {
	db *sql.DB
}

// NewMessageRepo creates a new MessageRepo.
func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Insert appends a message to the log.
func (r *MessageRepo) Insert(ctx context.Context, msg *MessageRecord) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO messages (id, session_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)",
		msg.ID, msg.SessionID, msg.Role, msg.Content, msg.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// ListBySession returns up to limit messages for a session, oldest first.
// Returns an empty slice for an unknown session (not an error).
func (r *MessageRepo) ListBySession(ctx context.Context, sessionID string, limit int) ([]*MessageRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, session_id, role, content, created_at FROM messages WHERE session_id = ? ORDER BY created_at ASC LIMIT ?",
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var messages []*MessageRecord
	for rows.Next() {
		var msg MessageRecord
		var createdAt string
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.CreatedAt, err = time.Parse(timeFormat, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at timestamp: %w", err)
		}
		messages = append(messages, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return messages, nil
}

// DeleteBySession deletes all messages for a session.
func (r *MessageRepo) DeleteBySession(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM messages WHERE session_id = ?", sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete messages by session: %w", err)
	}
	return nil
}

// CountUserSince counts role=user messages for a session within the trailing
// window starting at since.
func (r *MessageRepo) CountUserSince(ctx context.Context, sessionID string, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM messages WHERE session_id = ? AND role = ? AND created_at >= ?",
		sessionID, RoleUser, since.UTC().Format(timeFormat),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count user messages: %w", err)
	}
	return count, nil
}
