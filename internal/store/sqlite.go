package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested report does not exist.
var ErrNotFound = errors.New("not found")

// SQLiteStore caches fetched messages and keeps report history in a local
// SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at the given path and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id           TEXT NOT NULL,
	source       TEXT NOT NULL,
	from_addr    TEXT NOT NULL DEFAULT '',
	to_addrs     TEXT NOT NULL DEFAULT '[]',
	cc_addrs     TEXT NOT NULL DEFAULT '[]',
	bcc_addrs    TEXT NOT NULL DEFAULT '[]',
	date_rfc3339 TEXT NOT NULL DEFAULT '',
	subject      TEXT NOT NULL DEFAULT '',
	body         TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (source, id)
);

CREATE TABLE IF NOT EXISTS reports (
	id                  TEXT PRIMARY KEY,
	source              TEXT NOT NULL,
	recipient           TEXT NOT NULL,
	range_token         TEXT NOT NULL DEFAULT '',
	cutoff_rfc3339      TEXT NOT NULL DEFAULT '',
	generated_at        TEXT NOT NULL,
	emails_found        INTEGER NOT NULL DEFAULT 0,
	emails_with_metrics INTEGER NOT NULL DEFAULT 0,
	session_hours       REAL NOT NULL DEFAULT 0,
	scheduled_hours     REAL NOT NULL DEFAULT 0,
	soft_pledges        REAL NOT NULL DEFAULT 0,
	hard_pledges        REAL NOT NULL DEFAULT 0,
	estimated_pledges   REAL NOT NULL DEFAULT 0,
	number_of_pledges   INTEGER NOT NULL DEFAULT 0,
	number_of_calls     INTEGER NOT NULL DEFAULT 0,
	number_of_pickups   INTEGER NOT NULL DEFAULT 0,
	pickup_rate         REAL NOT NULL DEFAULT 0,
	avg_pledge_amount   REAL NOT NULL DEFAULT 0,
	calls_per_hour      REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS report_rows (
	report_id         TEXT NOT NULL REFERENCES reports(id),
	position          INTEGER NOT NULL,
	message_id        TEXT NOT NULL DEFAULT '',
	date_rfc3339      TEXT NOT NULL DEFAULT '',
	subject           TEXT NOT NULL DEFAULT '',
	present_mask      INTEGER NOT NULL DEFAULT 0,
	session_hours     REAL NOT NULL DEFAULT 0,
	scheduled_hours   REAL NOT NULL DEFAULT 0,
	soft_pledges      REAL NOT NULL DEFAULT 0,
	hard_pledges      REAL NOT NULL DEFAULT 0,
	estimated_pledges REAL NOT NULL DEFAULT 0,
	number_of_pledges INTEGER NOT NULL DEFAULT 0,
	number_of_calls   INTEGER NOT NULL DEFAULT 0,
	number_of_pickups INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (report_id, position)
);

CREATE TABLE IF NOT EXISTS metadata (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL DEFAULT ''
);
`
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetSetting returns a remembered value, or "" when unset.
func (s *SQLiteStore) GetSetting(ctx context.Context, key string) (string, error) {
	var val string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return val, err
}

func (s *SQLiteStore) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func placeholders(n int) string {
	return strings.Join(lo.Times(n, func(int) string { return "?" }), ",")
}
