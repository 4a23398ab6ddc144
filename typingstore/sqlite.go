package typingstore

import (
	"database/sql"
	"fmt"
	"sort"

	_ "modernc.org/sqlite" // SQLite driver
)

// config holds configuration options for the SQLite-backed store.
type config struct {
	pragmas map[string]string
}

// StoreOption is a function that configures a Store.
type StoreOption func(*config)

// WithPragma sets a specific SQLite PRAGMA statement, overriding any
// default value for the given key.
// For example: WithPragma("synchronous", "NORMAL").
func WithPragma(key, value string) StoreOption {
	return func(c *config) {
		if c.pragmas == nil {
			c.pragmas = make(map[string]string)
		}
		c.pragmas[key] = value
	}
}

// defaultConfig returns a new config with default PRAGMA settings for
// performance and concurrency.
func defaultConfig() *config {
	return &config{
		pragmas: map[string]string{
			"journal_mode": "WAL",
			"synchronous":  "OFF",
			"cache_size":   "-64000",
			"temp_store":   "MEMORY",
			"busy_timeout": "5000",
			"foreign_keys": "OFF",
		},
	}
}

// NewSQLite creates a new SQLite-backed typing store. Pass ":memory:"
// for dbPath to create an in-memory database. Optional StoreOption
// functions customise PRAGMA settings.
func NewSQLite(dbPath string, opts ...StoreOption) (*Store, error) {
	// In-memory databases get a unique shared-cache name so concurrent
	// connections within one store see the same data while separate
	// store instances stay separate.
	if dbPath == ":memory:" {
		id := inMemoryDBCounter.Add(1)
		dbPath = fmt.Sprintf("file:typingstore_%d?mode=memory&cache=shared", id)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(4)

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	// Sort keys for deterministic execution order.
	keys := make([]string, 0, len(cfg.pragmas))
	for k := range cfg.pragmas {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		pragmaSQL := fmt.Sprintf("PRAGMA %s=%s", key, cfg.pragmas[key])
		if _, err := db.Exec(pragmaSQL); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragmaSQL, err)
		}
	}

	store := &Store{
		db:      db,
		ownsDB:  true,
		dialect: sqliteDialect{},
	}
	if err := store.initSchemaAndStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}
