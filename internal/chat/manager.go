package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"kitab/internal/contextutil"
	"kitab/internal/storage"
)

// RateLimitReply is stored and returned verbatim when a session exceeds its
// message allowance.
const RateLimitReply = "You have reached the message limit for now. Please leave an email address or another way to get in touch, and the conversation can continue directly."

// Defaults applied when NewManager receives zero values.
const (
	DefaultHistoryLimit = 50
	DefaultRateLimit    = 25
	DefaultRateWindow   = time.Hour
)

// Message is one turn of a conversation as exposed to callers.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Limiter decides whether a session may send another message. Implemented
// by Manager as a pure read over stored history; a stricter backend can be
// substituted without touching callers.
type Limiter interface {
	Allowed(ctx context.Context, sessionID string) (bool, error)
}

// Manager records conversation turns and enforces the per-session sliding
// window rate limit. The limit check and the subsequent record are separate
// operations, so two racing requests can both pass the check; the window is
// a soft cap, not an admission control primitive.
type Manager struct {
	store        storage.MessageStore
	historyLimit int
	rateLimit    int
	rateWindow   time.Duration
	now          func() time.Time
}

// NewManager creates a Manager. Zero or negative limits fall back to the
// package defaults.
func NewManager(store storage.MessageStore, rateLimit int, rateWindow time.Duration, historyLimit int) *Manager {
	if rateLimit <= 0 {
		rateLimit = DefaultRateLimit
	}
	if rateWindow <= 0 {
		rateWindow = DefaultRateWindow
	}
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &Manager{
		store:        store,
		historyLimit: historyLimit,
		rateLimit:    rateLimit,
		rateWindow:   rateWindow,
		now:          time.Now,
	}
}

// Record appends a message to the session's history with a server-assigned
// ID and timestamp.
func (m *Manager) Record(ctx context.Context, sessionID, role, content string) error {
	logger := contextutil.LoggerFromContext(ctx)

	msg := &storage.MessageRecord{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: m.now().UTC(),
	}
	if err := m.store.Insert(ctx, msg); err != nil {
		return fmt.Errorf("failed to record message: %w", err)
	}

	logger.DebugContext(ctx, "recorded message", "session_id", sessionID, "role", role)
	return nil
}

// History returns up to limit messages for a session, oldest first. A
// non-positive limit uses the configured default. Unknown sessions return
// an empty history.
func (m *Manager) History(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = m.historyLimit
	}

	records, err := m.store.ListBySession(ctx, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	messages := make([]Message, len(records))
	for i, record := range records {
		messages[i] = Message{
			Role:      record.Role,
			Content:   record.Content,
			Timestamp: record.CreatedAt,
		}
	}
	return messages, nil
}

// Clear deletes all history for a session. Clearing an unknown session is
// not an error.
func (m *Manager) Clear(ctx context.Context, sessionID string) error {
	if err := m.store.DeleteBySession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// Allowed reports whether the session is under its sliding-window message
// allowance. Only user messages count toward the limit, so rate limit
// replies and other assistant turns never consume allowance.
func (m *Manager) Allowed(ctx context.Context, sessionID string) (bool, error) {
	cutoff := m.now().UTC().Add(-m.rateWindow)
	count, err := m.store.CountUserSince(ctx, sessionID, cutoff)
	if err != nil {
		return false, fmt.Errorf("failed to count recent messages: %w", err)
	}
	return count < m.rateLimit, nil
}
