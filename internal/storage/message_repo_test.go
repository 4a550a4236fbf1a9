package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

func insertMessage(t *testing.T, repo *MessageRepo, id, sessionID, role, content string, at time.Time) {
	t.Helper()
	err := repo.Insert(context.Background(), &MessageRecord{
		ID:        id,
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: at,
	})
	if err != nil {
		t.Fatalf("Insert(%s) error = %v", id, err)
	}
}

func TestMessageRepo_InsertAndList(t *testing.T) {
	repo := NewMessageRepo(newTestDB(t))
	base := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)

	// Insert out of chronological order; listing must sort by timestamp.
	insertMessage(t, repo, "m2", "sess1", RoleAssistant, "second", base.Add(time.Second))
	insertMessage(t, repo, "m1", "sess1", RoleUser, "first", base)
	insertMessage(t, repo, "m3", "sess1", RoleUser, "third", base.Add(2*time.Second))
	insertMessage(t, repo, "other", "sess2", RoleUser, "elsewhere", base)

	messages, err := repo.ListBySession(context.Background(), "sess1", 50)
	if err != nil {
		t.Fatalf("ListBySession() error = %v", err)
	}

	if len(messages) != 3 {
		t.Fatalf("got %d messages, want 3", len(messages))
	}
	for i, want := range []string{"first", "second", "third"} {
		if messages[i].Content != want {
			t.Errorf("message %d content = %q, want %q", i, messages[i].Content, want)
		}
	}
	if !messages[0].CreatedAt.Equal(base) {
		t.Errorf("round-tripped timestamp = %v, want %v", messages[0].CreatedAt, base)
	}
}

func TestMessageRepo_ListBySession_Limit(t *testing.T) {
	repo := NewMessageRepo(newTestDB(t))
	base := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		insertMessage(t, repo, string(rune('a'+i)), "sess1", RoleUser, "msg", base.Add(time.Duration(i)*time.Second))
	}

	messages, err := repo.ListBySession(context.Background(), "sess1", 2)
	if err != nil {
		t.Fatalf("ListBySession() error = %v", err)
	}
	if len(messages) != 2 {
		t.Errorf("got %d messages, want 2", len(messages))
	}
}

func TestMessageRepo_ListBySession_UnknownSession(t *testing.T) {
	repo := NewMessageRepo(newTestDB(t))

	messages, err := repo.ListBySession(context.Background(), "nope", 50)
	if err != nil {
		t.Fatalf("ListBySession() error = %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("got %d messages, want 0", len(messages))
	}
}

func TestMessageRepo_DeleteBySession(t *testing.T) {
	repo := NewMessageRepo(newTestDB(t))
	base := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)

	insertMessage(t, repo, "m1", "sess1", RoleUser, "hi", base)
	insertMessage(t, repo, "m2", "sess2", RoleUser, "keep", base)

	if err := repo.DeleteBySession(context.Background(), "sess1"); err != nil {
		t.Fatalf("DeleteBySession() error = %v", err)
	}
	// Deleting an already-empty session is not an error.
	if err := repo.DeleteBySession(context.Background(), "sess1"); err != nil {
		t.Fatalf("DeleteBySession() repeat error = %v", err)
	}

	gone, err := repo.ListBySession(context.Background(), "sess1", 50)
	if err != nil {
		t.Fatalf("ListBySession() error = %v", err)
	}
	if len(gone) != 0 {
		t.Errorf("sess1 still has %d messages", len(gone))
	}

	kept, err := repo.ListBySession(context.Background(), "sess2", 50)
	if err != nil {
		t.Fatalf("ListBySession() error = %v", err)
	}
	if len(kept) != 1 {
		t.Errorf("sess2 has %d messages, want 1", len(kept))
	}
}

func TestMessageRepo_CountUserSince(t *testing.T) {
	repo := NewMessageRepo(newTestDB(t))
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	cutoff := now.Add(-time.Hour)

	// Inside the window.
	insertMessage(t, repo, "in1", "sess1", RoleUser, "q1", now.Add(-30*time.Minute))
	insertMessage(t, repo, "in2", "sess1", RoleUser, "q2", now.Add(-time.Minute))
	// Exactly at the cutoff counts.
	insertMessage(t, repo, "edge", "sess1", RoleUser, "q3", cutoff)
	// Outside the window.
	insertMessage(t, repo, "old", "sess1", RoleUser, "stale", now.Add(-2*time.Hour))
	// Assistant messages never count.
	insertMessage(t, repo, "bot", "sess1", RoleAssistant, "answer", now.Add(-time.Minute))
	// Other sessions never count.
	insertMessage(t, repo, "other", "sess2", RoleUser, "hi", now.Add(-time.Minute))

	count, err := repo.CountUserSince(context.Background(), "sess1", cutoff)
	if err != nil {
		t.Fatalf("CountUserSince() error = %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}
