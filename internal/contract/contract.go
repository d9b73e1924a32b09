// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/VizGrimoire/GrimoireLib-sub002/schema"
)

// SourceDB is a read-only connection to one miner database.
// This allows the metric engine to be tested against fixtures and cached readers.
type SourceDB interface {
	// Backend returns the SQL dialect spoken by the database.
	Backend() schema.DatabaseBackend

	// SelectContext runs a query and scans every row into dest, a pointer to a slice.
	SelectContext(ctx context.Context, dest any, query string, args ...any) error

	// GetContext runs a query and scans its single row into dest.
	GetContext(ctx context.Context, dest any, query string, args ...any) error

	// Close closes the underlying connection.
	Close() error
}

// CacheManager defines the interface for managing cache stores.
// This allows the cache layer to be mocked for testing.
type CacheManager interface {
	GetQueryStore() CacheStore
	GetHistoryStore() HistoryStore
}

// CacheStore defines the interface for cache data storage.
// This allows mocking the store for testing.
type CacheStore interface {
	Get(key string) ([]byte, int, int64, error)
	Set(key string, value []byte, version int, timestamp int64) error
	GetStatus() (schema.CacheStatus, error)
	Close() error
}

// HistoryStore defines the interface for tracking report runs and their metric values.
type HistoryStore interface {
	// BeginRun creates a new report run and returns its unique ID
	BeginRun(startTime time.Time, configParams map[string]any) (int64, error)

	// EndRun updates the report run with completion data
	EndRun(runID int64, endTime time.Time, familiesOK, familiesError int) error

	// RecordMetricValues stores aggregate metric values produced by a run
	RecordMetricValues(runID int64, values []schema.MetricValueRecord) error

	// GetStatus returns status information about the history store
	GetStatus() (schema.HistoryStatus, error)

	// Close closes the underlying connection
	Close() error
}
