package source_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/VizGrimoire/GrimoireLib-sub002/internal/contract"
	"github.com/VizGrimoire/GrimoireLib-sub002/internal/fixture"
	"github.com/VizGrimoire/GrimoireLib-sub002/internal/source"
	"github.com/VizGrimoire/GrimoireLib-sub002/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	value   []byte
	version int
	ts      int64
}

// memStore is a map-backed contract.CacheStore.
type memStore struct {
	entries map[string]entry
	sets    int
}

func newMemStore() *memStore {
	return &memStore{entries: map[string]entry{}}
}

func (m *memStore) Get(key string) ([]byte, int, int64, error) {
	e, ok := m.entries[key]
	if !ok {
		return nil, 0, 0, sql.ErrNoRows
	}
	return e.value, e.version, e.ts, nil
}

func (m *memStore) Set(key string, value []byte, version int, timestamp int64) error {
	m.sets++
	m.entries[key] = entry{value: value, version: version, ts: timestamp}
	return nil
}

func (m *memStore) GetStatus() (schema.CacheStatus, error) {
	return schema.CacheStatus{Backend: "memory", Connected: true, TotalEntries: len(m.entries)}, nil
}

func (m *memStore) Close() error { return nil }

var _ contract.CacheStore = &memStore{}

type repoRow struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

func TestOpenSQLite(t *testing.T) {
	ctx := context.Background()
	db := fixture.Open(t, schema.SCM)
	assert.Equal(t, schema.SQLiteBackend, db.Backend())

	var repos []repoRow
	require.NoError(t, db.SelectContext(ctx, &repos, "SELECT id, name FROM repositories ORDER BY id"))
	assert.Equal(t, []repoRow{{1, "linux"}, {2, "git"}}, repos)

	var count int
	require.NoError(t, db.GetContext(ctx, &count, "SELECT COUNT(*) FROM scmlog WHERE date >= ?", "2013-01-01 00:00:00"))
	assert.Equal(t, 8, count)
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	_, err := source.Open(context.Background(), schema.NoneBackend, "")
	assert.Error(t, err)
}

func TestCachedHitAndMiss(t *testing.T) {
	ctx := context.Background()
	db := fixture.Open(t, schema.SCM)
	store := newMemStore()
	cached := source.NewCached(db, store, "scm|test", contract.DefaultCacheTTL).(*source.Cached)

	var first []repoRow
	require.NoError(t, cached.SelectContext(ctx, &first, "SELECT id, name FROM repositories ORDER BY id"))
	var second []repoRow
	require.NoError(t, cached.SelectContext(ctx, &second, "SELECT id, name FROM repositories ORDER BY id"))

	assert.Equal(t, first, second)
	hits, misses := cached.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
	assert.Equal(t, 1, store.sets)

	// Different arguments are different entries.
	var a, b int
	require.NoError(t, cached.GetContext(ctx, &a, "SELECT COUNT(*) FROM scmlog WHERE repository_id = ?", 1))
	require.NoError(t, cached.GetContext(ctx, &b, "SELECT COUNT(*) FROM scmlog WHERE repository_id = ?", 2))
	assert.Equal(t, 7, a)
	assert.Equal(t, 2, b)
	assert.Len(t, store.entries, 3)
}

func TestCachedServesStoredValues(t *testing.T) {
	ctx := context.Background()
	db := fixture.Open(t, schema.SCM)
	store := newMemStore()
	cached := source.NewCached(db, store, "scm|test", contract.DefaultCacheTTL)

	var count int
	require.NoError(t, cached.GetContext(ctx, &count, "SELECT COUNT(*) FROM repositories"))
	require.Len(t, store.entries, 1)

	// Rewrite the stored value: a hit must not touch the database.
	for k, e := range store.entries {
		e.value = []byte("42")
		store.entries[k] = e
	}
	require.NoError(t, cached.GetContext(ctx, &count, "SELECT COUNT(*) FROM repositories"))
	assert.Equal(t, 42, count)
}

func TestCachedIgnoresStaleAndForeignEntries(t *testing.T) {
	ctx := context.Background()
	db := fixture.Open(t, schema.SCM)

	t.Run("expired", func(t *testing.T) {
		store := newMemStore()
		cached := source.NewCached(db, store, "scm|test", 0).(*source.Cached)
		var count int
		require.NoError(t, cached.GetContext(ctx, &count, "SELECT COUNT(*) FROM repositories"))
		for k, e := range store.entries {
			e.ts -= 10
			store.entries[k] = e
		}
		require.NoError(t, cached.GetContext(ctx, &count, "SELECT COUNT(*) FROM repositories"))
		hits, misses := cached.Stats()
		assert.Equal(t, int64(0), hits)
		assert.Equal(t, int64(2), misses)
	})

	t.Run("old version", func(t *testing.T) {
		store := newMemStore()
		cached := source.NewCached(db, store, "scm|test", contract.DefaultCacheTTL).(*source.Cached)
		var count int
		require.NoError(t, cached.GetContext(ctx, &count, "SELECT COUNT(*) FROM repositories"))
		for k, e := range store.entries {
			e.version = 0
			e.value = []byte("42")
			store.entries[k] = e
		}
		require.NoError(t, cached.GetContext(ctx, &count, "SELECT COUNT(*) FROM repositories"))
		assert.Equal(t, 2, count)
	})

	t.Run("corrupt entry", func(t *testing.T) {
		store := newMemStore()
		cached := source.NewCached(db, store, "scm|test", contract.DefaultCacheTTL)
		var repos []repoRow
		require.NoError(t, cached.SelectContext(ctx, &repos, "SELECT id, name FROM repositories"))
		for k, e := range store.entries {
			e.value = []byte(`[{"id": "oops"`)
			store.entries[k] = e
		}
		repos = nil
		require.NoError(t, cached.SelectContext(ctx, &repos, "SELECT id, name FROM repositories"))
		assert.Len(t, repos, 2)
	})

	t.Run("scopes do not share entries", func(t *testing.T) {
		store := newMemStore()
		one := source.NewCached(db, store, "scm|one", contract.DefaultCacheTTL)
		two := source.NewCached(db, store, "scm|two", contract.DefaultCacheTTL)
		var count int
		require.NoError(t, one.GetContext(ctx, &count, "SELECT COUNT(*) FROM repositories"))
		require.NoError(t, two.GetContext(ctx, &count, "SELECT COUNT(*) FROM repositories"))
		assert.Len(t, store.entries, 2)
	})
}

func TestCachedDoesNotStoreErrors(t *testing.T) {
	db := fixture.Open(t, schema.SCM)
	store := newMemStore()
	cached := source.NewCached(db, store, "scm|test", contract.DefaultCacheTTL)

	var count int
	err := cached.GetContext(context.Background(), &count, "SELECT COUNT(*) FROM no_such_table")
	assert.Error(t, err)
	assert.Empty(t, store.entries)
}

func TestNewCachedWithoutStore(t *testing.T) {
	db := fixture.Open(t, schema.SCM)
	assert.Same(t, contract.SourceDB(db), source.NewCached(db, nil, "scm", contract.DefaultCacheTTL))
}

func TestSetGet(t *testing.T) {
	db := fixture.Open(t, schema.SCM)
	set := source.Set{schema.SCM: db}

	got, err := set.Get(schema.SCM)
	require.NoError(t, err)
	assert.Equal(t, schema.SQLiteBackend, got.Backend())

	_, err = set.Get(schema.ITS)
	assert.True(t, errors.Is(err, contract.ErrFamilyDisabled))
}

func TestOpenAll(t *testing.T) {
	input := &contract.ConfigRawInput{
		Period:        "month",
		Limit:         10,
		Workers:       2,
		Precision:     1,
		Output:        "json",
		Color:         "no",
		SourceBackend: "sqlite",
		SCMDB:         fixture.Path(t, schema.SCM),
		MLSDB:         fixture.Path(t, schema.MLS),
		CacheBackend:  "none",
	}
	cfg := &contract.Config{}
	require.NoError(t, contract.ProcessAndValidate(cfg, input))

	set, err := source.OpenAll(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer set.Close()

	assert.Len(t, set, 2)
	_, err = set.Get(schema.MLS)
	assert.NoError(t, err)
}
