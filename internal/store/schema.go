// Package store provides the single-writer SQLite store backing rules,
// the session working set, the history ledger, and watch bookkeeping.
package store

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS rules (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	rule_type       TEXT NOT NULL,
	pattern         TEXT NOT NULL,
	exclude_pattern TEXT NOT NULL DEFAULT '',
	target_type     TEXT NOT NULL,
	target_id       TEXT NOT NULL,
	priority        INTEGER NOT NULL DEFAULT 50,
	is_active       INTEGER NOT NULL DEFAULT 1,
	match_count     INTEGER NOT NULL DEFAULT 0,
	notes           TEXT NOT NULL DEFAULT '',
	created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_rules_order
	ON rules(priority DESC, match_count DESC, created_at ASC);
CREATE INDEX IF NOT EXISTS idx_rules_target ON rules(target_type, target_id);

CREATE TABLE IF NOT EXISTS scanned_files (
	id                    TEXT PRIMARY KEY,
	scan_session_id       TEXT NOT NULL,
	path                  TEXT NOT NULL,
	name                  TEXT NOT NULL,
	extension             TEXT NOT NULL DEFAULT '',
	size                  INTEGER NOT NULL DEFAULT 0,
	modified_at           DATETIME,
	file_type             TEXT NOT NULL DEFAULT '',
	suggested_target_type TEXT NOT NULL DEFAULT '',
	suggested_target_id   TEXT NOT NULL DEFAULT '',
	suggested_rule_id     TEXT NOT NULL DEFAULT '',
	confidence            TEXT NOT NULL DEFAULT 'none',
	user_decision         TEXT NOT NULL DEFAULT 'pending',
	user_target           TEXT NOT NULL DEFAULT '',
	watch_activity_id     TEXT NOT NULL DEFAULT '',
	created_at            DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_scanned_session ON scanned_files(scan_session_id);

CREATE TABLE IF NOT EXISTS organized_files (
	id              TEXT PRIMARY KEY,
	filename        TEXT NOT NULL,
	original_path   TEXT NOT NULL,
	current_path    TEXT NOT NULL,
	target_folder   TEXT NOT NULL DEFAULT '',
	matched_rule_id TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL DEFAULT 'moved',
	size            INTEGER NOT NULL DEFAULT 0,
	file_type       TEXT NOT NULL DEFAULT '',
	notes           TEXT NOT NULL DEFAULT '',
	organized_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_organized_original ON organized_files(original_path);
CREATE INDEX IF NOT EXISTS idx_organized_status ON organized_files(status);

CREATE TABLE IF NOT EXISTS watched_folders (
	id                   TEXT PRIMARY KEY,
	path                 TEXT NOT NULL,
	is_active            INTEGER NOT NULL DEFAULT 1,
	auto_organize        INTEGER NOT NULL DEFAULT 0,
	confidence_threshold TEXT NOT NULL DEFAULT 'high',
	include_subdirs      INTEGER NOT NULL DEFAULT 0,
	file_type_filter     TEXT NOT NULL DEFAULT '',
	notify_on_organize   INTEGER NOT NULL DEFAULT 0,
	files_processed      INTEGER NOT NULL DEFAULT 0,
	files_organized      INTEGER NOT NULL DEFAULT 0,
	last_checked_at      DATETIME,
	created_at           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS watch_activity (
	id                TEXT PRIMARY KEY,
	watched_folder_id TEXT NOT NULL,
	filename          TEXT NOT NULL,
	path              TEXT NOT NULL,
	action            TEXT NOT NULL,
	matched_rule_id   TEXT NOT NULL DEFAULT '',
	target_folder     TEXT NOT NULL DEFAULT '',
	error_message     TEXT NOT NULL DEFAULT '',
	created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_activity_folder ON watch_activity(watched_folder_id, created_at DESC);
`

// DB wraps a sql.DB with store-specific operations.
//
// Mutating operations serialize on mu, making the single-writer rule
// explicit; reads go straight to SQLite (WAL permits them while a write
// is in flight).
type DB struct {
	conn *sql.DB
	mu   sync.Mutex
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
