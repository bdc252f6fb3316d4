package state

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

var _ Store = (*SQLiteStore)(nil)

// SQLiteStore keeps seen-state in a SQLite database: a single-row-per-search
// table for top mode and a membership table for set mode.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// the state tables exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
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
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating state tables: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) ReadLast(ctx context.Context, search string) (string, bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		"SELECT listing_id FROM last_listing WHERE search = ?", search).Scan(&id)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading last listing for %s: %w", search, err)
	}
	return id, true, nil
}

func (s *SQLiteStore) WriteLast(ctx context.Context, search, id string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO last_listing (search, listing_id) VALUES (?, ?)", search, id)
	if err != nil {
		return fmt.Errorf("writing last listing for %s: %w", search, err)
	}
	return nil
}

func (s *SQLiteStore) ReadSeen(ctx context.Context, search string) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT listing_id FROM seen_listings WHERE search = ?", search)
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

func (s *SQLiteStore) AddSeen(ctx context.Context, search string, ids []string) error {
	for _, id := range ids {
		_, err := s.db.ExecContext(ctx,
			"INSERT OR IGNORE INTO seen_listings (search, listing_id) VALUES (?, ?)", search, id)
		if err != nil {
			return fmt.Errorf("marking listing %s seen for %s: %w", id, search, err)
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
