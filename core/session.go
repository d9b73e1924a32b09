package core

import (
	"context"
	"fmt"

	"github.com/VizGrimoire/GrimoireLib-sub002/core/analysis"
	"github.com/VizGrimoire/GrimoireLib-sub002/core/metrics"
	"github.com/VizGrimoire/GrimoireLib-sub002/internal/contract"
	"github.com/VizGrimoire/GrimoireLib-sub002/internal/source"
	"github.com/VizGrimoire/GrimoireLib-sub002/schema"
)

// session holds the databases and engines serving one command.
type session struct {
	cfg      *contract.Config
	sources  source.Set
	engine   *metrics.Engine
	analyzer *analysis.Analyzer
}

// openSession connects to the databases of families, or of every enabled
// family when none is given. Reads go through the query cache of mgr.
func openSession(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager, families ...schema.DataSource) (*session, error) {
	scoped := cfg
	if len(families) > 0 {
		scoped = cfg.Clone()
		scoped.SourceDBs = make(map[schema.DataSource]string, len(families))
		for _, ds := range families {
			conn, err := cfg.SourceDB(ds)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", ds, err)
			}
			scoped.SourceDBs[ds] = conn
		}
	} else if len(cfg.EnabledFamilies()) == 0 {
		return nil, fmt.Errorf("%w: set at least one of --scm-db, --its-db, --mls-db, --scr-db, --irc-db, --mediawiki-db, --qaforums-db", contract.ErrFamilyDisabled)
	}

	var store contract.CacheStore
	if mgr != nil {
		store = mgr.GetQueryStore()
	}
	sources, err := source.OpenAll(ctx, scoped, store)
	if err != nil {
		return nil, err
	}
	engine := metrics.NewEngineFromConfig(cfg, sources)
	return &session{cfg: cfg, sources: sources, engine: engine, analyzer: analysis.New(engine)}, nil
}

// Close closes every database of the session.
func (s *session) Close() {
	s.sources.Close()
}

// withSession runs fn against a session opened for families.
func withSession[T any](ctx context.Context, cfg *contract.Config, mgr contract.CacheManager, fn func(*session) (T, error), families ...schema.DataSource) (T, error) {
	var zero T
	s, err := openSession(ctx, cfg, mgr, families...)
	if err != nil {
		return zero, err
	}
	defer s.Close()
	return fn(s)
}

// logHeader prints what a command is about to compute.
func logHeader(ctx context.Context, cfg *contract.Config, what string) {
	if shouldSuppressHeader(ctx) {
		return
	}
	if !cfg.Filter.IsGlobal() {
		what += " (" + cfg.Filter.String() + ")"
	}
	contract.LogInfo("🔎 %s", what)
	contract.LogInfo("📅 Range: %s → %s", cfg.StartTime.Format(contract.DateTimeFormat), cfg.EndTime.Format(contract.DateTimeFormat))
}

