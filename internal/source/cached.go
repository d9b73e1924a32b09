package source

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync/atomic"
	"time"

	"github.com/VizGrimoire/GrimoireLib-sub002/internal/contract"
	"github.com/VizGrimoire/GrimoireLib-sub002/schema"
	"github.com/cespare/xxhash/v2"
)

// currentCacheVersion defines the version of the cached row encoding.
const currentCacheVersion = 1

// Cached memoizes query results in a cache store, keyed by the database
// scope, the rendered statement and its arguments.
type Cached struct {
	inner contract.SourceDB
	store contract.CacheStore
	scope string
	ttl   time.Duration
	now   func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

var _ contract.SourceDB = &Cached{} // Compile-time check

// NewCached wraps inner with the query cache. The scope identifies the
// database so that equal statements against different databases never
// share entries. A nil store disables caching.
func NewCached(inner contract.SourceDB, store contract.CacheStore, scope string, ttl time.Duration) contract.SourceDB {
	if store == nil {
		return inner
	}
	return &Cached{inner: inner, store: store, scope: scope, ttl: ttl, now: time.Now}
}

// Backend implements contract.SourceDB.
func (c *Cached) Backend() schema.DatabaseBackend {
	return c.inner.Backend()
}

// SelectContext implements contract.SourceDB.
func (c *Cached) SelectContext(ctx context.Context, dest any, q string, args ...any) error {
	return c.read(dest, q, args, func() error {
		return c.inner.SelectContext(ctx, dest, q, args...)
	})
}

// GetContext implements contract.SourceDB.
func (c *Cached) GetContext(ctx context.Context, dest any, q string, args ...any) error {
	return c.read(dest, q, args, func() error {
		return c.inner.GetContext(ctx, dest, q, args...)
	})
}

// Close implements contract.SourceDB. The store belongs to the cache manager.
func (c *Cached) Close() error {
	return c.inner.Close()
}

// Stats returns the number of cache hits and misses so far.
func (c *Cached) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *Cached) read(dest any, q string, args []any, load func() error) error {
	key, err := c.key(q, args)
	if err != nil {
		return load()
	}

	if c.checkCacheHit(key, dest) {
		c.hits.Add(1)
		return nil
	}
	c.misses.Add(1)

	if err := load(); err != nil {
		return err
	}
	if data, err := json.Marshal(dest); err == nil {
		_ = c.store.Set(key, data, currentCacheVersion, c.now().Unix())
	}
	return nil
}

// checkCacheHit decodes a fresh cached entry into dest.
func (c *Cached) checkCacheHit(key string, dest any) bool {
	data, version, ts, err := c.store.Get(key)
	if err != nil || version != currentCacheVersion {
		return false
	}
	if c.now().Sub(time.Unix(ts, 0)) > c.ttl {
		return false
	}
	// Decode into a fresh value so a bad entry never leaves dest half filled.
	target := reflect.ValueOf(dest)
	if target.Kind() != reflect.Pointer || target.IsNil() {
		return false
	}
	fresh := reflect.New(target.Elem().Type())
	if err := json.Unmarshal(data, fresh.Interface()); err != nil {
		return false
	}
	target.Elem().Set(fresh.Elem())
	return true
}

// key hashes the scope, the backend, the statement and its arguments.
func (c *Cached) key(q string, args []any) (string, error) {
	encoded, err := json.Marshal(args)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(c.scope)
	b.WriteByte(0)
	b.WriteString(string(c.inner.Backend()))
	b.WriteByte(0)
	b.WriteString(q)
	b.WriteByte(0)
	b.Write(encoded)
	return fmt.Sprintf("%016x", xxhash.Sum64String(b.String())), nil
}
