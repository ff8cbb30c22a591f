package storage

import (
	"context"
	"database/sql"
	"fmt"

	// Database drivers registered for database/sql.
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// OpenConfig holds database bootstrap settings.
type OpenConfig struct {
	Driver          string // sqlite or postgres
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	SQLiteJournal   string
	CreateSchemaNow bool
}

// Open opens a database connection, verifies it, and optionally applies the schema.
func Open(ctx context.Context, cfg OpenConfig) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)

	switch cfg.Driver {
	case "sqlite":
		dsn := cfg.DSN
		if cfg.SQLiteJournal != "" {
			dsn = fmt.Sprintf("%s?_journal_mode=%s", dsn, cfg.SQLiteJournal)
		}
		db, err = sql.Open("sqlite3", dsn)
	case "postgres":
		db, err = sql.Open("postgres", cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if cfg.CreateSchemaNow {
		if err := CreateSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return db, nil
}

// Schema statements are kept portable between sqlite and postgres:
// TEXT ids, TEXT timestamps via driver conversion, JSON stored as TEXT.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		id            TEXT PRIMARY KEY,
		title         TEXT NOT NULL DEFAULT '',
		content_hash  TEXT NOT NULL DEFAULT '',
		chunk_count   INTEGER NOT NULL DEFAULT 0,
		word_count    INTEGER NOT NULL DEFAULT 0,
		metadata      TEXT,
		created_at    TIMESTAMP NOT NULL,
		updated_at    TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS document_chunks (
		id              TEXT PRIMARY KEY,
		document_id     TEXT NOT NULL,
		chunk_index     INTEGER NOT NULL,
		content         TEXT NOT NULL,
		word_count      INTEGER NOT NULL DEFAULT 0,
		character_count INTEGER NOT NULL DEFAULT 0,
		kind            TEXT NOT NULL DEFAULT 'text',
		section_title   TEXT,
		has_embedding   BOOLEAN NOT NULL DEFAULT FALSE,
		embedding       TEXT,
		metadata        TEXT,
		created_at      TIMESTAMP NOT NULL,
		updated_at      TIMESTAMP NOT NULL,
		UNIQUE (document_id, chunk_index)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_document_chunks_document
		ON document_chunks (document_id, chunk_index)`,
}

// CreateSchema applies the schema. Statements are idempotent.
func CreateSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
