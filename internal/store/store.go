package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate key")
	// ErrOwnerMismatch is returned when appending to a session owned by someone else.
	ErrOwnerMismatch = errors.New("session belongs to another user")
)

// Store is the persistence boundary. Implementations are safe for concurrent use;
// the process entry point owns the lifecycle (Open, Ping, Close).
type Store interface {
	// Lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Users
	CreateUser(ctx context.Context, user *User) error
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)
	UpdateUserSettings(ctx context.Context, id string, settings Settings, goals Goals, profile Profile) error

	// Entries
	CreateEntry(ctx context.Context, entry *Entry) error
	GetEntry(ctx context.Context, kind Kind, ownerID, id string) (*Entry, error)
	ListEntries(ctx context.Context, q EntryQuery) ([]Entry, error)
	UpdateEntryPayload(ctx context.Context, kind Kind, ownerID, id string, recordedAt time.Time, payload json.RawMessage) error
	DeleteEntry(ctx context.Context, kind Kind, ownerID, id string) error

	// Chat sessions. GetChatSession returns ErrNotFound for unknown ids;
	// GetLastNChatMessages returns an empty slice instead.
	GetChatSession(ctx context.Context, sessionID string) (*ChatSession, error)
	GetLastNChatMessages(ctx context.Context, sessionID string, n int) ([]ChatMessage, error)
	AppendChatMessages(ctx context.Context, sessionID, ownerID string, msgs ...ChatMessage) (*ChatSession, error)
	ListChatSessions(ctx context.Context, ownerID string) ([]ChatSession, error)
	SetChatSessionActive(ctx context.Context, sessionID, ownerID string, active bool) error
}

// Open connects the configured backend. A failure here is fatal for the caller.
func Open(ctx context.Context, driver, dsn, database string) (Store, error) {
	switch driver {
	case "sqlite", "":
		return NewSQLiteStore(dsn)
	case "mongo":
		return NewMongoStore(ctx, dsn, database)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Record is implemented by every typed entry through its embedded EntryMeta.
type Record interface {
	Meta() *EntryMeta
}

// EncodeEntry serializes a typed record into its persisted form.
func EncodeEntry(kind Kind, rec Record) (*Entry, error) {
	meta := rec.Meta()
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s entry: %w", kind, err)
	}
	return &Entry{
		ID:         meta.ID,
		OwnerID:    meta.UserID,
		Kind:       kind,
		RecordedAt: meta.Date,
		CreatedAt:  meta.CreatedAt,
		Payload:    payload,
	}, nil
}

// DecodeEntry fills rec from the persisted payload.
func DecodeEntry(e Entry, rec Record) error {
	if err := json.Unmarshal(e.Payload, rec); err != nil {
		return fmt.Errorf("failed to unmarshal %s entry %s: %w", e.Kind, e.ID, err)
	}
	return nil
}

// NormalizeTime drops the monotonic reading and sub-millisecond precision so a
// timestamp survives every backend unchanged.
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

func lastN(msgs []ChatMessage, n int) []ChatMessage {
	if n <= 0 {
		return []ChatMessage{}
	}
	if len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	out := make([]ChatMessage, len(msgs))
	copy(out, msgs)
	return out
}
