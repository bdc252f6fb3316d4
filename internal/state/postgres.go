package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ Store = (*PostgresStore)(nil)

// PostgresStore keeps seen-state in Postgres, for deployments where several
// runners share one durable store instead of committing flat files around.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects with the given DSN and ensures the state tables
// exist.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS last_listing (
		search     TEXT PRIMARY KEY,
		listing_id TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS seen_listings (
		search     TEXT NOT NULL,
		listing_id TEXT NOT NULL,
		PRIMARY KEY (search, listing_id)
	);`
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating state tables: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) ReadLast(ctx context.Context, search string) (string, bool, error) {
	var id string
	err := s.pool.QueryRow(ctx,
		"SELECT listing_id FROM last_listing WHERE search = $1", search).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading last listing for %s: %w", search, err)
	}
	return id, true, nil
}

func (s *PostgresStore) WriteLast(ctx context.Context, search, id string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO last_listing (search, listing_id) VALUES ($1, $2)
		ON CONFLICT (search) DO UPDATE SET listing_id = EXCLUDED.listing_id`,
		search, id)
	if err != nil {
		return fmt.Errorf("writing last listing for %s: %w", search, err)
	}
	return nil
}

func (s *PostgresStore) ReadSeen(ctx context.Context, search string) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT listing_id FROM seen_listings WHERE search = $1", search)
	if err != nil {
		return nil, fmt.Errorf("reading seen listings for %s: %w", search, err)
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning seen listing for %s: %w", search, err)
		}
		seen[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading seen listings for %s: %w", search, err)
	}
	return seen, nil
}

func (s *PostgresStore) AddSeen(ctx context.Context, search string, ids []string) error {
	batch := &pgx.Batch{}
	for _, id := range ids {
		batch.Queue(`
			INSERT INTO seen_listings (search, listing_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, search, id)
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("marking listings seen for %s: %w", search, err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
