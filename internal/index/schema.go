// Package index provides the SQLite-backed note store: the batch writer,
// identity lookups, the query service, full-wiki syncing and the change watcher.
package index

import (
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const driverName = "sqlite3"

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS notes (
	identity  TEXT UNIQUE PRIMARY KEY,
	timestamp INTEGER,
	title     TEXT,
	file_path TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS headers (
	identity TEXT NOT NULL,
	level    INTEGER NOT NULL,
	text     TEXT
);

CREATE TABLE IF NOT EXISTS tags (
	identity TEXT NOT NULL,
	tag      TEXT
);

CREATE TABLE IF NOT EXISTS links (
	identity TEXT NOT NULL,
	link     TEXT,
	label    TEXT
);

CREATE INDEX IF NOT EXISTS idx_notes_file_path ON notes(file_path);
CREATE INDEX IF NOT EXISTS idx_notes_timestamp ON notes(timestamp);
CREATE INDEX IF NOT EXISTS idx_headers_identity ON headers(identity);
CREATE INDEX IF NOT EXISTS idx_tags_identity ON tags(identity);
CREATE INDEX IF NOT EXISTS idx_links_identity ON links(identity);
`

// factTables lists every relation keyed by identity apart from notes and
// the full-text relation. Removal must fan out across all of them.
var factTables = []string{"headers", "tags", "links"}

// DB wraps a sqlx.DB with index-specific operations.
type DB struct {
	conn *sqlx.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
// Write transactions begin IMMEDIATE so concurrent writers queue on the
// engine's lock instead of failing on upgrade.
func Open(dsn string) (*DB, error) {
	conn, err := sqlx.Open(driverName, dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	if err := initFTS(conn.DB); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// NewFromConn wraps an already-open connection without touching the schema.
func NewFromConn(conn *sql.DB) *DB {
	return &DB{conn: sqlx.NewDb(conn, driverName)}
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
