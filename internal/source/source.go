// Package source opens the miner databases metrics are read from.
package source

import (
	"context"
	"fmt"

	"github.com/VizGrimoire/GrimoireLib-sub002/core/query"
	"github.com/VizGrimoire/GrimoireLib-sub002/internal/contract"
	"github.com/VizGrimoire/GrimoireLib-sub002/schema"
	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // SQLite driver
)

// DB is a read-only miner database.
type DB struct {
	db      *sqlx.DB
	backend schema.DatabaseBackend
}

var _ contract.SourceDB = &DB{} // Compile-time check

// Open connects to a miner database and verifies the connection.
func Open(ctx context.Context, backend schema.DatabaseBackend, connStr string) (*DB, error) {
	dialect, err := query.NewDialect(backend)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(dialect.DriverName(), connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", backend, err)
	}
	if backend == schema.SQLiteBackend {
		// Limit SQLite to a single open connection to avoid "database is locked" errors
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s database. Check that the server is running and connection parameters are valid: %w", backend, err)
	}
	return &DB{db: db, backend: backend}, nil
}

// NewDB wraps an open connection.
func NewDB(db *sqlx.DB, backend schema.DatabaseBackend) *DB {
	return &DB{db: db, backend: backend}
}

// Backend implements contract.SourceDB.
func (d *DB) Backend() schema.DatabaseBackend {
	return d.backend
}

// SelectContext implements contract.SourceDB.
func (d *DB) SelectContext(ctx context.Context, dest any, q string, args ...any) error {
	return d.db.SelectContext(ctx, dest, q, args...)
}

// GetContext implements contract.SourceDB.
func (d *DB) GetContext(ctx context.Context, dest any, q string, args ...any) error {
	return d.db.GetContext(ctx, dest, q, args...)
}

// Close implements contract.SourceDB.
func (d *DB) Close() error {
	return d.db.Close()
}

// Set holds the open databases of every enabled family.
type Set map[schema.DataSource]contract.SourceDB

// OpenAll opens the database of every family configured in cfg.
// When a cache store is given, reads go through the query cache.
func OpenAll(ctx context.Context, cfg *contract.Config, store contract.CacheStore) (Set, error) {
	set := Set{}
	for _, ds := range cfg.EnabledFamilies() {
		conn, _ := cfg.SourceDB(ds)
		db, err := Open(ctx, cfg.SourceBackend, conn)
		if err != nil {
			set.Close()
			return nil, fmt.Errorf("%s: %w", ds, err)
		}
		set[ds] = NewCached(db, store, string(ds)+"|"+conn, cfg.CacheTTL)
	}
	return set, nil
}

// Get returns the database of a family, or contract.ErrFamilyDisabled.
func (s Set) Get(ds schema.DataSource) (contract.SourceDB, error) {
	db, ok := s[ds]
	if !ok {
		return nil, fmt.Errorf("%w: %s", contract.ErrFamilyDisabled, ds)
	}
	return db, nil
}

// Close closes every database in the set.
func (s Set) Close() {
	for _, db := range s {
		_ = db.Close()
	}
}
