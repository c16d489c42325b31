// Package storage persists account sessions and scraped market metadata
// in a local SQLite database, plus on-disk inventory snapshots.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/glebarez/go-sqlite"
)

// Store handles persistent storage in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens the SQLite store with WAL mode enabled and creates the
// schema when missing.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=-2000;", // 2MB cache
		"PRAGMA foreign_keys=ON;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	// Accounts are stored as one JSON blob per login name; the session
	// package owns the blob format.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS accounts (
			name TEXT PRIMARY KEY,
			state BLOB NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create accounts table: %w", err)
	}

	// Item name ids never change once assigned, so rows are write-once.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS item_nameids (
			appid INTEGER NOT NULL,
			market_hash_name TEXT NOT NULL,
			nameid INTEGER NOT NULL,
			PRIMARY KEY (appid, market_hash_name)
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create item_nameids table: %w", err)
	}

	return &Store{db: db}, nil
}

// SaveAccount upserts one account's serialized session state.
func (s *Store) SaveAccount(ctx context.Context, name string, state []byte, ts int64) error {
	if name == "" {
		return errors.New("empty account name")
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO accounts (name, state, updated_at) VALUES (?, ?, ?) ON CONFLICT(name) DO UPDATE SET state=excluded.state, updated_at=excluded.updated_at",
		name, state, ts,
	)
	if err != nil {
		return fmt.Errorf("failed to save account %s: %w", name, err)
	}
	return nil
}

// LoadAccount returns one account's state blob, or nil when unknown.
func (s *Store) LoadAccount(ctx context.Context, name string) ([]byte, error) {
	var state []byte
	err := s.db.QueryRowContext(ctx, "SELECT state FROM accounts WHERE name = ?", name).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account %s: %w", name, err)
	}
	return state, nil
}

// LoadAllAccounts returns every stored account state keyed by name.
func (s *Store) LoadAllAccounts(ctx context.Context) (map[string][]byte, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, state FROM accounts ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]byte)
	for rows.Next() {
		var name string
		var state []byte
		if err := rows.Scan(&name, &state); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		out[name] = state
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return out, nil
}

// DeleteAccount removes one stored account.
func (s *Store) DeleteAccount(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM accounts WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("failed to delete account %s: %w", name, err)
	}
	return nil
}

// ItemNameID returns the cached order-book id for an item type, or 0
// when it has not been scraped yet.
func (s *Store) ItemNameID(appID int, hashName string) (int64, error) {
	var nameID int64
	err := s.db.QueryRow(
		"SELECT nameid FROM item_nameids WHERE appid = ? AND market_hash_name = ?",
		appID, hashName,
	).Scan(&nameID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load nameid for %s: %w", hashName, err)
	}
	return nameID, nil
}

// SaveItemNameID caches a scraped order-book id.
func (s *Store) SaveItemNameID(appID int, hashName string, nameID int64) error {
	_, err := s.db.Exec(
		"INSERT INTO item_nameids (appid, market_hash_name, nameid) VALUES (?, ?, ?) ON CONFLICT(appid, market_hash_name) DO UPDATE SET nameid=excluded.nameid",
		appID, hashName, nameID,
	)
	if err != nil {
		return fmt.Errorf("failed to save nameid for %s: %w", hashName, err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
