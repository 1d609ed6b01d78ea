// Package sqlite is a single-file object store for local installs.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	domainErrors "github.com/cassiomorais/marketsync/internal/domain/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS objects(
  kind TEXT NOT NULL,
  id TEXT NOT NULL,
  data BLOB NOT NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY(kind, id)
);
CREATE INDEX IF NOT EXISTS idx_objects_kind_created_at ON objects(kind, created_at);
`

// Store keeps objects in one SQLite table.
type Store struct {
	db *sqlx.DB
}

// Open opens (creating if needed) the database at dsn and ensures the schema.
func Open(dsn string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	// SQLite allows one writer; a single connection also keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", dsn, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure sqlite schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Put(ctx context.Context, kind, id string, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO objects(kind, id, data) VALUES(?, ?, ?)
		 ON CONFLICT(kind, id) DO UPDATE SET data = excluded.data, updated_at = CURRENT_TIMESTAMP`,
		kind, id, data,
	)
	if err != nil {
		return fmt.Errorf("upsert %s/%s: %w", kind, id, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, kind, id string) ([]byte, error) {
	var data []byte
	err := s.db.GetContext(ctx, &data, `SELECT data FROM objects WHERE kind = ? AND id = ?`, kind, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainErrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select %s/%s: %w", kind, id, err)
	}
	return data, nil
}

func (s *Store) List(ctx context.Context, kind string) ([][]byte, error) {
	var rows [][]byte
	if err := s.db.SelectContext(ctx, &rows, `SELECT data FROM objects WHERE kind = ? ORDER BY created_at, id`, kind); err != nil {
		return nil, fmt.Errorf("select %s: %w", kind, err)
	}
	return rows, nil
}

func (s *Store) Delete(ctx context.Context, kind, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM objects WHERE kind = ? AND id = ?`, kind, id); err != nil {
		return fmt.Errorf("delete %s/%s: %w", kind, id, err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
