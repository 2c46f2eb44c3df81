package storage

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

// OpenSQLite opens an existing store file for querying. It fails with
// ErrUnavailable when the file is absent or does not contain the
// expected table set, so callers can fall back to the flat-file
// engine.
func OpenSQLite(path string) (*RelationalStore, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: no store at %s", ErrUnavailable, path)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	store := &RelationalStore{db: db, flavor: flavorSQLite}
	if err := store.verify(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}

	return store, nil
}

// CreateSQLite creates a fresh store file for an import run, removing
// any previous file at path. Importers build at a temporary path and
// rename over the real store only on success.
func CreateSQLite(path string) (*RelationalStore, error) {
	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("removing existing store: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}

	return &RelationalStore{db: db, flavor: flavorSQLite}, nil
}

// verify checks that every table of the schema is present and
// queryable.
func (s *RelationalStore) verify() error {
	for _, table := range Tables {
		if _, err := s.RowCount(table); err != nil {
			return fmt.Errorf("missing table %s", table)
		}
	}
	return nil
}
