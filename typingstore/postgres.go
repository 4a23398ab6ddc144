package typingstore

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// NewPostgres creates a new PostgreSQL-backed typing store from a
// standard connection string. Use this for a cache shared across
// machines; for a local cache, NewSQLite is cheaper.
func NewPostgres(connStr string) (*Store, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(4)

	store := &Store{
		db:      db,
		ownsDB:  true,
		dialect: postgresDialect{},
	}
	if err := store.initSchemaAndStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema for PostgreSQL: %w", err)
	}
	return store, nil
}

// NewPostgresFromDB creates a PostgreSQL-backed typing store from an
// existing database connection. The caller retains ownership of db and
// must close it separately.
func NewPostgresFromDB(db *sql.DB) (*Store, error) {
	store := &Store{
		db:      db,
		ownsDB:  false,
		dialect: postgresDialect{},
	}
	if err := store.initSchemaAndStatements(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema for PostgreSQL: %w", err)
	}
	return store, nil
}
