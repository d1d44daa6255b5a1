package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS projects (
	id                   TEXT PRIMARY KEY,
	name                 TEXT NOT NULL,
	author               TEXT NOT NULL DEFAULT '',
	provider_name        TEXT NOT NULL DEFAULT '',
	provider_api_key     TEXT NOT NULL DEFAULT '',
	provider_base_url    TEXT NOT NULL DEFAULT '',
	provider_model       TEXT NOT NULL DEFAULT '',
	provider_max_tokens  INTEGER NOT NULL DEFAULT 0,
	provider_temperature REAL NOT NULL DEFAULT 0,
	created_at           DATETIME NOT NULL,
	updated_at           DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS docs (
	id          TEXT PRIMARY KEY,
	project_id  TEXT NOT NULL,
	parent_id   TEXT NOT NULL DEFAULT '',
	title       TEXT NOT NULL,
	type        TEXT NOT NULL,
	content     TEXT NOT NULL DEFAULT '',
	summary     TEXT NOT NULL DEFAULT '',
	outline     TEXT NOT NULL DEFAULT '',
	improvement TEXT NOT NULL DEFAULT '',
	notes       TEXT NOT NULL DEFAULT '',
	other       TEXT NOT NULL DEFAULT '',
	synopsis    TEXT NOT NULL DEFAULT '',
	priority    INTEGER NOT NULL DEFAULT 0,
	archived    INTEGER NOT NULL DEFAULT 0,
	history     TEXT NOT NULL DEFAULT '[]',
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_docs_project ON docs(project_id, parent_id, priority);

CREATE TABLE IF NOT EXISTS tasks (
	id           TEXT PRIMARY KEY,
	project_id   TEXT NOT NULL,
	doc_id       TEXT NOT NULL,
	type         TEXT NOT NULL,
	status       TEXT NOT NULL,
	prompt       TEXT NOT NULL DEFAULT '',
	result       TEXT NOT NULL DEFAULT '',
	error        TEXT NOT NULL DEFAULT '',
	related_docs TEXT NOT NULL DEFAULT '[]',
	created_at   DATETIME NOT NULL,
	updated_at   DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id, doc_id);
`

// Store persists projects, docs, and tasks in a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database at dbPath and ensures the
// schema exists. The caller is responsible for calling Close.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1) // prevent SQLITE_BUSY
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

// newID generates a record identifier.
func newID() string { return uuid.NewString() }

// scanner abstracts sql.Row and sql.Rows for the scan helpers.
type scanner interface {
	Scan(dest ...any) error
}
