package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/cassiomorais/marketsync/internal/domain/errors"
)

// Store keeps objects as JSONB rows in the objects table.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) db(ctx context.Context) DBTX {
	return connFromCtx(ctx, s.pool)
}

func (s *Store) Put(ctx context.Context, kind, id string, data []byte) error {
	_, err := s.db(ctx).Exec(ctx,
		`INSERT INTO objects (kind, id, data, created_at, updated_at)
		 VALUES ($1, $2, $3, NOW(), NOW())
		 ON CONFLICT (kind, id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`,
		kind, id, data,
	)
	if err != nil {
		return fmt.Errorf("upsert %s/%s: %w", kind, id, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, kind, id string) ([]byte, error) {
	var data []byte
	err := s.db(ctx).QueryRow(ctx,
		`SELECT data FROM objects WHERE kind = $1 AND id = $2`,
		kind, id,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domainErrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select %s/%s: %w", kind, id, err)
	}
	return data, nil
}

func (s *Store) List(ctx context.Context, kind string) ([][]byte, error) {
	rows, err := s.db(ctx).Query(ctx,
		`SELECT data FROM objects WHERE kind = $1 ORDER BY created_at, id`,
		kind,
	)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", kind, err)
	}
	defer rows.Close()

	var out [][]byte
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}
		out = append(out, data)
	}
	return out, rows.Err()
}

func (s *Store) Delete(ctx context.Context, kind, id string) error {
	if _, err := s.db(ctx).Exec(ctx, `DELETE FROM objects WHERE kind = $1 AND id = $2`, kind, id); err != nil {
		return fmt.Errorf("delete %s/%s: %w", kind, id, err)
	}
	return nil
}

// WithTransaction runs fn so that every store call made with its context
// commits or rolls back together.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTransaction(ctx, s.pool, fn)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
