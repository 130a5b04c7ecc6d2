package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store runs compiled queries against the object store.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Fetch runs a row-fetching query with named parameters and returns the raw
// row values. limit > 0 appends paging.
func (s *Store) Fetch(ctx context.Context, query string, params map[string]any, limit, offset int) ([][]any, error) {
	if limit > 0 {
		query = fmt.Sprintf("%s limit %d offset %d", query, limit, offset)
	}
	sql, args, err := RewriteNamed(query, params)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer rows.Close()
	var out [][]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("fetch: %w", err)
		}
		out = append(out, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	return out, nil
}

// Count runs a count query with named parameters.
func (s *Store) Count(ctx context.Context, query string, params map[string]any) (int64, error) {
	sql, args, err := RewriteNamed(query, params)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := s.pool.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}
