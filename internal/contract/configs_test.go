package contract

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/VizGrimoire/GrimoireLib-sub002/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validInput returns a raw input carrying the flag defaults.
func validInput() *ConfigRawInput {
	return &ConfigRawInput{
		Period:        "month",
		Limit:         10,
		Workers:       4,
		Precision:     1,
		Output:        "json",
		Color:         "yes",
		SourceBackend: "mysql",
		SCMDB:         "root:secret@tcp(localhost:3306)/cp_cvsanaly",
		CacheBackend:  "sqlite",
	}
}

func TestProcessAndValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*ConfigRawInput)
		expectError bool
	}{
		{name: "valid minimal config", mutate: func(*ConfigRawInput) {}},
		{name: "invalid limit (zero)", mutate: func(in *ConfigRawInput) { in.Limit = 0 }, expectError: true},
		{name: "invalid limit (too large)", mutate: func(in *ConfigRawInput) { in.Limit = 1001 }, expectError: true},
		{name: "invalid workers (negative)", mutate: func(in *ConfigRawInput) { in.Workers = -1 }, expectError: true},
		{name: "invalid precision (too high)", mutate: func(in *ConfigRawInput) { in.Precision = 3 }, expectError: true},
		{name: "invalid output", mutate: func(in *ConfigRawInput) { in.Output = "xml" }, expectError: true},
		{name: "invalid period", mutate: func(in *ConfigRawInput) { in.Period = "quarter" }, expectError: true},
		{name: "invalid filter", mutate: func(in *ConfigRawInput) { in.Filter = "team:core" }, expectError: true},
		{name: "invalid color", mutate: func(in *ConfigRawInput) { in.Color = "maybe" }, expectError: true},
		{name: "start after end", mutate: func(in *ConfigRawInput) { in.Start = "2014-01-01"; in.End = "2013-01-01" }, expectError: true},
		{name: "invalid start", mutate: func(in *ConfigRawInput) { in.Start = "yesterday" }, expectError: true},
		{name: "none source backend", mutate: func(in *ConfigRawInput) { in.SourceBackend = "none" }, expectError: true},
		{name: "bad mysql source", mutate: func(in *ConfigRawInput) { in.ITSDB = "cp_bicho" }, expectError: true},
		{name: "unsafe identities db", mutate: func(in *ConfigRawInput) { in.IdentitiesDB = "ids; DROP TABLE x" }, expectError: true},
		{name: "bad trend days", mutate: func(in *ConfigRawInput) { in.TrendDays = "7,month" }, expectError: true},
		{name: "bad item kind", mutate: func(in *ConfigRawInput) { in.Items = "team" }, expectError: true},
		{name: "negative days", mutate: func(in *ConfigRawInput) { in.Days = -5 }, expectError: true},
		{name: "bad cache ttl", mutate: func(in *ConfigRawInput) { in.CacheTTL = "forever" }, expectError: true},
		{name: "invalid cache backend", mutate: func(in *ConfigRawInput) { in.CacheBackend = "redis" }, expectError: true},
		{name: "postgres cache without dbname", mutate: func(in *ConfigRawInput) {
			in.CacheBackend = "postgresql"
			in.CacheDBConnect = "host=localhost user=postgres"
		}, expectError: true},
		{name: "invalid history backend", mutate: func(in *ConfigRawInput) { in.HistoryBackend = "mongo" }, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			tt.mutate(input)
			cfg := &Config{}
			err := ProcessAndValidate(cfg, input)
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProcessAndValidateDefaults(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, validInput()))

	assert.Equal(t, schema.MonthPeriod, cfg.Period)
	assert.True(t, cfg.Filter.IsGlobal())
	assert.Equal(t, cfg.EndTime.AddDate(-DefaultLookbackYears, 0, 0), cfg.StartTime)
	assert.WithinDuration(t, time.Now(), cfg.EndTime, CacheGranularity)
	assert.Equal(t, cfg.EndTime, cfg.EndTime.Truncate(CacheGranularity))
	assert.Equal(t, schema.DefaultClosedStates, cfg.ClosedStates)
	assert.Equal(t, schema.DefaultTrendDays, cfg.TrendDays)
	assert.Equal(t, DefaultNewcomerDays, cfg.Days)
	assert.Equal(t, DefaultCacheTTL, cfg.CacheTTL)
	assert.Empty(t, cfg.HistoryBackend)
	assert.Equal(t, []schema.DataSource{schema.SCM}, cfg.EnabledFamilies())
}

func TestProcessAndValidateParsesEverything(t *testing.T) {
	input := validInput()
	input.Start = "2012-01-01"
	input.End = "2013-01-01"
	input.Period = "WEEK"
	input.Filter = "company:Red Hat"
	input.MLSDB = "root:secret@tcp(localhost:3306)/cp_mlstats"
	input.IdentitiesDB = "cp_identities"
	input.ClosedStates = "Done, Won't Fix"
	input.TrendDays = "7,90"
	input.Items = "repository,company,repository"
	input.Days = 90
	input.CacheTTL = "2 hours"

	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, input))

	assert.Equal(t, time.Date(2012, time.January, 1, 0, 0, 0, 0, time.UTC), cfg.StartTime)
	assert.Equal(t, time.Date(2013, time.January, 1, 0, 0, 0, 0, time.UTC), cfg.EndTime)
	assert.Equal(t, schema.WeekPeriod, cfg.Period)
	assert.Equal(t, schema.Filter{Kind: schema.CompanyFilter, Value: "Red Hat"}, cfg.Filter)
	assert.Equal(t, "cp_identities", cfg.IdentitiesDB)
	assert.Equal(t, []string{"Done", "Won't Fix"}, cfg.ClosedStates)
	assert.Equal(t, []int{7, 90}, cfg.TrendDays)
	assert.Equal(t, []schema.FilterKind{schema.RepositoryFilter, schema.CompanyFilter}, cfg.ItemKinds)
	assert.Equal(t, 90, cfg.Days)
	assert.Equal(t, 2*time.Hour, cfg.CacheTTL)
	assert.Equal(t, []schema.DataSource{schema.SCM, schema.MLS}, cfg.EnabledFamilies())
}

func TestSourceDB(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, validInput()))

	conn, err := cfg.SourceDB(schema.SCM)
	require.NoError(t, err)
	assert.Contains(t, conn, "cp_cvsanaly")

	_, err = cfg.SourceDB(schema.ITS)
	assert.True(t, errors.Is(err, ErrFamilyDisabled))
	assert.Contains(t, err.Error(), "--its-db")
}

func TestHistoryMustNotShareCacheFile(t *testing.T) {
	shared := filepath.Join(t.TempDir(), "grimoire.db")

	input := validInput()
	input.CacheDBConnect = shared
	input.HistoryBackend = "sqlite"
	input.HistoryDBConnect = shared
	assert.Error(t, ProcessAndValidate(&Config{}, input))

	input = validInput()
	input.HistoryBackend = "sqlite"
	assert.NoError(t, ProcessAndValidate(&Config{}, input), "default paths differ")
}

func TestConfigClone(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, validInput()))

	start := time.Date(2013, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)
	clone := cfg.CloneWithTimeWindow(start, end)
	clone.SourceDBs[schema.ITS] = "other"
	clone.ClosedStates[0] = "Done"

	assert.Empty(t, cfg.SourceDBs[schema.ITS])
	assert.Equal(t, "Closed", cfg.ClosedStates[0])
	assert.Equal(t, schema.TimeWindow{Start: start, End: end}, clone.Window())
}

func TestValidateDatabaseConnectionString(t *testing.T) {
	tests := []struct {
		backend schema.DatabaseBackend
		conn    string
		wantErr bool
	}{
		{schema.SQLiteBackend, "", false},
		{schema.NoneBackend, "", false},
		{schema.MySQLBackend, "root:pw@tcp(localhost:3306)/grimoire", false},
		{schema.MySQLBackend, "", true},
		{schema.MySQLBackend, "root:pw@localhost/grimoire", true},
		{schema.MySQLBackend, "root:pw@tcp(localhost:3306)", true},
		{schema.PostgreSQLBackend, "host=localhost port=5432 dbname=grimoire", false},
		{schema.PostgreSQLBackend, "dbname=grimoire", true},
		{schema.PostgreSQLBackend, "host=localhost", true},
	}
	for _, tt := range tests {
		t.Run(string(tt.backend)+"/"+tt.conn, func(t *testing.T) {
			err := ValidateDatabaseConnectionString(tt.backend, tt.conn)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
