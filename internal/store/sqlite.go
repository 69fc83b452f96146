package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3" // SQLite driver
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if strings.Contains(dataSourceName, ":memory:") {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS users (
        id TEXT PRIMARY KEY, -- UUID
        email TEXT UNIQUE NOT NULL,
        password_hash TEXT NOT NULL,
        name TEXT NOT NULL DEFAULT '',
        profile_json TEXT NOT NULL DEFAULT '{}',
        connections_json TEXT NOT NULL DEFAULT '{}',
        settings_json TEXT NOT NULL DEFAULT '{}',
        goals_json TEXT NOT NULL DEFAULT '{}',
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS entries (
        id TEXT PRIMARY KEY, -- UUID
        owner_id TEXT NOT NULL,
        kind TEXT NOT NULL,
        recorded_at INTEGER NOT NULL, -- unix millis
        created_at INTEGER NOT NULL,
        payload TEXT NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_entries_owner ON entries (kind, owner_id, recorded_at);

    CREATE TABLE IF NOT EXISTS chat_sessions (
        id TEXT PRIMARY KEY,
        owner_id TEXT NOT NULL,
        is_active BOOLEAN NOT NULL DEFAULT TRUE,
        created_at DATETIME NOT NULL,
        updated_at DATETIME NOT NULL
    );

    CREATE TABLE IF NOT EXISTS chat_messages (
        seq INTEGER PRIMARY KEY AUTOINCREMENT,
        session_id TEXT NOT NULL,
        role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
        content TEXT NOT NULL,
        timestamp DATETIME NOT NULL,
        FOREIGN KEY (session_id) REFERENCES chat_sessions (id)
    );
    CREATE INDEX IF NOT EXISTS idx_chat_messages_session ON chat_messages (session_id, seq);
    `
	_, err := s.db.Exec(schema)
	return err
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// User methods
func (s *SQLiteStore) CreateUser(ctx context.Context, user *User) error {
	profile, connections, settings, goals, err := marshalUserDocs(user)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, name, profile_json, connections_json, settings_json, goals_json, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		user.ID, user.Email, user.PasswordHash, user.Name, profile, connections, settings, goals, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.getUser(ctx, "email", email)
}

func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	return s.getUser(ctx, "id", id)
}

func (s *SQLiteStore) getUser(ctx context.Context, column, value string) (*User, error) {
	var user User
	var profile, connections, settings, goals string
	query := "SELECT id, email, password_hash, name, profile_json, connections_json, settings_json, goals_json, created_at FROM users WHERE " + column + " = ?"
	err := s.db.QueryRowContext(ctx, query, value).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.Name, &profile, &connections, &settings, &goals, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	for _, doc := range []struct {
		raw  string
		into interface{}
	}{
		{profile, &user.Profile},
		{connections, &user.Connections},
		{settings, &user.Settings},
		{goals, &user.Goals},
	} {
		if err := json.Unmarshal([]byte(doc.raw), doc.into); err != nil {
			return nil, fmt.Errorf("failed to unmarshal user %s document: %w", user.ID, err)
		}
	}
	return &user, nil
}

func (s *SQLiteStore) UpdateUserSettings(ctx context.Context, id string, settings Settings, goals Goals, profile Profile) error {
	docs, err := marshalDocs(settings, goals, profile)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, "UPDATE users SET settings_json = ?, goals_json = ?, profile_json = ? WHERE id = ?",
		docs[0], docs[1], docs[2], id)
	if err != nil {
		return fmt.Errorf("failed to update user settings: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func marshalUserDocs(user *User) (profile, connections, settings, goals string, err error) {
	parts, err := marshalDocs(user.Profile, user.Connections, user.Settings, user.Goals)
	if err != nil {
		return "", "", "", "", err
	}
	return parts[0], parts[1], parts[2], parts[3], nil
}

// marshalDocs encodes the nested user documents stored as JSON columns.
func marshalDocs(docs ...interface{}) ([]string, error) {
	parts := make([]string, len(docs))
	for i, v := range docs {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal user document: %w", err)
		}
		parts[i] = string(b)
	}
	return parts, nil
}

// Entry methods
func (s *SQLiteStore) CreateEntry(ctx context.Context, entry *Entry) error {
	stmt, err := s.db.PrepareContext(ctx, "INSERT INTO entries (id, owner_id, kind, recorded_at, created_at, payload) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare entry insert: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, entry.ID, entry.OwnerID, string(entry.Kind),
		entry.RecordedAt.UnixMilli(), entry.CreatedAt.UnixMilli(), string(entry.Payload))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to execute entry insert: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetEntry(ctx context.Context, kind Kind, ownerID, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, owner_id, kind, recorded_at, created_at, payload FROM entries WHERE kind = ? AND owner_id = ? AND id = ?",
		string(kind), ownerID, id)
	entry, err := scanEntry(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	return entry, nil
}

func (s *SQLiteStore) ListEntries(ctx context.Context, q EntryQuery) ([]Entry, error) {
	query := "SELECT id, owner_id, kind, recorded_at, created_at, payload FROM entries WHERE kind = ? AND owner_id = ?"
	args := []interface{}{string(q.Kind), q.OwnerID}
	if !q.Since.IsZero() {
		query += " AND recorded_at >= ?"
		args = append(args, q.Since.UnixMilli())
	}
	query += " ORDER BY recorded_at DESC, created_at DESC"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry row: %w", err)
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) UpdateEntryPayload(ctx context.Context, kind Kind, ownerID, id string, recordedAt time.Time, payload json.RawMessage) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE entries SET payload = ?, recorded_at = ? WHERE kind = ? AND owner_id = ? AND id = ?",
		string(payload), recordedAt.UnixMilli(), string(kind), ownerID, id)
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) DeleteEntry(ctx context.Context, kind Kind, ownerID, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM entries WHERE kind = ? AND owner_id = ? AND id = ?", string(kind), ownerID, id)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var entry Entry
	var kind, payload string
	var recordedAt, createdAt int64
	if err := row.Scan(&entry.ID, &entry.OwnerID, &kind, &recordedAt, &createdAt, &payload); err != nil {
		return nil, err
	}
	entry.Kind = Kind(kind)
	entry.RecordedAt = time.UnixMilli(recordedAt).UTC()
	entry.CreatedAt = time.UnixMilli(createdAt).UTC()
	entry.Payload = json.RawMessage(payload)
	return &entry, nil
}

// Chat session methods
func (s *SQLiteStore) GetChatSession(ctx context.Context, sessionID string) (*ChatSession, error) {
	var session ChatSession
	err := s.db.QueryRowContext(ctx,
		"SELECT id, owner_id, is_active, created_at, updated_at FROM chat_sessions WHERE id = ?", sessionID).
		Scan(&session.SessionID, &session.UserID, &session.IsActive, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get chat session: %w", err)
	}

	messages, err := s.queryMessages(ctx,
		"SELECT role, content, timestamp FROM chat_messages WHERE session_id = ? ORDER BY seq ASC", sessionID)
	if err != nil {
		return nil, err
	}
	session.Messages = messages
	return &session, nil
}

func (s *SQLiteStore) GetLastNChatMessages(ctx context.Context, sessionID string, n int) ([]ChatMessage, error) {
	if n <= 0 {
		return []ChatMessage{}, nil
	}
	query := `
        SELECT role, content, timestamp FROM (
            SELECT seq, role, content, timestamp
            FROM chat_messages
            WHERE session_id = ?
            ORDER BY seq DESC
            LIMIT ?
        ) ORDER BY seq ASC
    `
	return s.queryMessages(ctx, query, sessionID, n)
}

func (s *SQLiteStore) queryMessages(ctx context.Context, query string, args ...interface{}) ([]ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := []ChatMessage{}
	for rows.Next() {
		var msg ChatMessage
		if err := rows.Scan(&msg.Role, &msg.Content, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// AppendChatMessages creates the session when needed and appends msgs in one
// transaction, so concurrent turns on the same session cannot overwrite each other.
// An ended session stays ended.
func (s *SQLiteStore) AppendChatMessages(ctx context.Context, sessionID, ownerID string, msgs ...ChatMessage) (*ChatSession, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin append transaction: %w", err)
	}
	defer tx.Rollback()

	now := NormalizeTime(time.Now())
	res, err := tx.ExecContext(ctx, `
        INSERT INTO chat_sessions (id, owner_id, is_active, created_at, updated_at)
        VALUES (?, ?, TRUE, ?, ?)
        ON CONFLICT (id) DO UPDATE SET updated_at = excluded.updated_at
        WHERE chat_sessions.owner_id = excluded.owner_id`,
		sessionID, ownerID, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert chat session: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, ErrOwnerMismatch
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO chat_messages (session_id, role, content, timestamp) VALUES (?, ?, ?, ?)")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare message insert: %w", err)
	}
	defer stmt.Close()

	for _, msg := range msgs {
		if _, err := stmt.ExecContext(ctx, sessionID, msg.Role, msg.Content, NormalizeTime(msg.Timestamp)); err != nil {
			return nil, fmt.Errorf("failed to execute message insert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit append transaction: %w", err)
	}
	return s.GetChatSession(ctx, sessionID)
}

func (s *SQLiteStore) ListChatSessions(ctx context.Context, ownerID string) ([]ChatSession, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, owner_id, is_active, created_at, updated_at FROM chat_sessions WHERE owner_id = ? ORDER BY updated_at DESC", ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat sessions: %w", err)
	}
	defer rows.Close()

	sessions := []ChatSession{}
	for rows.Next() {
		var session ChatSession
		if err := rows.Scan(&session.SessionID, &session.UserID, &session.IsActive, &session.CreatedAt, &session.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat session row: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func (s *SQLiteStore) SetChatSessionActive(ctx context.Context, sessionID, ownerID string, active bool) error {
	stmt, err := s.db.PrepareContext(ctx, "UPDATE chat_sessions SET is_active = ?, updated_at = ? WHERE id = ? AND owner_id = ?")
	if err != nil {
		return fmt.Errorf("failed to prepare chat session update: %w", err)
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(ctx, active, NormalizeTime(time.Now()), sessionID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to execute chat session update: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
