package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	contractx "github.com/tanpawarit/civic-chat/agent/contract"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
    container TEXT NOT NULL,
    id TEXT NOT NULL,
    partition_key TEXT NOT NULL DEFAULT '',
    body TEXT NOT NULL,
    updated_at DATETIME NOT NULL DEFAULT (datetime('now')),
    PRIMARY KEY (container, id)
);
CREATE INDEX IF NOT EXISTS idx_documents_partition ON documents(container, partition_key);
`

// SQLite stores documents as JSON text in a local database file.
type SQLite struct {
	db *sql.DB
}

func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if path == ":memory:" {
		// every connection would get its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Put(ctx context.Context, container string, partitionKey string, doc contractx.Document) (string, error) {
	id, body, err := encode(container, doc)
	if err != nil {
		return "", err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO documents (container, id, partition_key, body, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(container, id) DO UPDATE SET
    partition_key = excluded.partition_key,
    body = excluded.body,
    updated_at = excluded.updated_at`,
		container, id, partitionKey, string(body), time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("upsert %s/%s: %w", container, id, err)
	}
	return id, nil
}

func (s *SQLite) Get(ctx context.Context, container string, id string, out any) error {
	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE container = ? AND id = ?`, container, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(container, id)
	}
	if err != nil {
		return fmt.Errorf("select %s/%s: %w", container, id, err)
	}
	return decode(container, id, []byte(body), out)
}

// Count returns how many documents container holds.
func (s *SQLite) Count(ctx context.Context, container string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE container = ?`, container).Scan(&n)
	return n, err
}

func (s *SQLite) Close() error { return s.db.Close() }
