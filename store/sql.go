package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/oron-mozes/creo-sub000/core"
)

// Supported database/sql driver names.
const (
	// DriverSQLite is the pure Go modernc.org/sqlite driver.
	DriverSQLite = "sqlite"
	// DriverSQLite3 is the cgo github.com/mattn/go-sqlite3 driver.
	DriverSQLite3 = "sqlite3"
)

var _ core.Store = (*SQLStore)(nil)

// SQLStore persists messages and business profiles in SQLite.
type SQLStore struct {
	db     *sql.DB
	driver string
	path   string
}

// Open opens (creating parent directories when needed) the database at path
// with the given driver and applies pending migrations. WAL mode is enabled
// for file databases.
func Open(driver, path string) (*SQLStore, error) {
	switch driver {
	case DriverSQLite, DriverSQLite3:
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}

	memory := path == ":memory:" || strings.HasPrefix(path, "file::memory:")
	if !memory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if memory {
		// Each new connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	s := &SQLStore{db: db, driver: driver, path: path}
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error { return s.db.Close() }

// Driver returns the database/sql driver in use.
func (s *SQLStore) Driver() string { return s.driver }

// Migrate applies all pending schema migrations.
func (s *SQLStore) Migrate() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var current int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Messages},
		{2, migrationV2Profiles},
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}
	return nil
}

const migrationV1Messages = `
CREATE TABLE IF NOT EXISTS messages (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	session_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	role TEXT NOT NULL,
	text TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, seq);
`

const migrationV2Profiles = `
CREATE TABLE IF NOT EXISTS business_profiles (
	user_id TEXT PRIMARY KEY,
	profile TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
`

// AppendMessage implements core.MessageStore. A repeated id is ignored.
func (s *SQLStore) AppendMessage(ctx context.Context, msg core.Message) error {
	if msg.SessionID == "" {
		return core.ErrMissingSessionID
	}
	if msg.ID == "" {
		msg.ID = core.NewID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO messages (id, session_id, user_id, role, text, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.SessionID, msg.UserID, msg.Role, msg.Text, msg.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// Messages implements core.MessageStore, oldest first.
func (s *SQLStore) Messages(ctx context.Context, sessionID string) ([]core.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, user_id, role, text, created_at
		FROM messages WHERE session_id = ? ORDER BY seq
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var out []core.Message
	for rows.Next() {
		var (
			m       core.Message
			created string
		)
		if err := rows.Scan(&m.ID, &m.SessionID, &m.UserID, &m.Role, &m.Text, &created); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if m.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("parse message time: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetBusinessProfile implements core.ProfileStore.
func (s *SQLStore) GetBusinessProfile(ctx context.Context, userID string) (map[string]any, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT profile FROM business_profiles WHERE user_id = ?", userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query business profile: %w", err)
	}

	profile := map[string]any{}
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		return nil, fmt.Errorf("decode business profile: %w", err)
	}
	return profile, nil
}

// SetBusinessProfile implements core.ProfileStore.
func (s *SQLStore) SetBusinessProfile(ctx context.Context, userID string, profile map[string]any) error {
	if userID == "" {
		return core.ErrMissingUserID
	}
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode business profile: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO business_profiles (user_id, profile, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET profile = excluded.profile, updated_at = excluded.updated_at
	`, userID, string(raw), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upsert business profile: %w", err)
	}
	return nil
}

// cloneProfile deep-copies a profile through its JSON form, matching what a
// round trip through the SQL store yields.
func cloneProfile(p map[string]any) (map[string]any, error) {
	if p == nil {
		return nil, nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode business profile: %w", err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode business profile: %w", err)
	}
	return out, nil
}
