package storage

import "time"

// Message roles stored in the messages table.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// MessageRecord represents one turn of a conversation in the database.
// Records are append-only; they are never updated in place.
type MessageRecord struct {
	ID        string    // UUID
	SessionID string    // Opaque caller-supplied session identifier
	Role      string    // "user" or "assistant"
	Content   string    // Message text
	CreatedAt time.Time // Server-assigned UTC timestamp
}
