package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// OpenPostgres connects to a server-database store using the provided
// connection string. Deployments that prefer a shared database over
// the embedded store file can point the importer and the query
// engine at the same DSN; the on-disk staleness monitor does not
// apply to this backend, which tracks freshness via the imported_at
// metadata row instead.
func OpenPostgres(connStr string) (*RelationalStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening postgres store: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres store: %w", err)
	}

	store := &RelationalStore{db: db, flavor: flavorPostgres}
	if err := store.verify(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}

	return store, nil
}

// CreatePostgres connects for an import run. The schema is dropped
// and recreated by NewWriter, so no prior state is required.
func CreatePostgres(connStr string) (*RelationalStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening postgres store: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres store: %w", err)
	}

	return &RelationalStore{db: db, flavor: flavorPostgres}, nil
}
