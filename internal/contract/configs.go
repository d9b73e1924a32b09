package contract

import (
	"errors"
	"fmt"
	"maps"
	"regexp"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/VizGrimoire/GrimoireLib-sub002/schema"
)

// Default values for configuration.
const (
	DefaultLookbackYears = 2
	DefaultResultLimit   = 10
	MaxResultLimit       = 1000
	DefaultPrecision     = 1
	DefaultNewcomerDays  = 180
	DefaultCacheTTL      = 24 * time.Hour
)

// CacheGranularity is the alignment of the default window end.
const CacheGranularity = time.Hour

// DefaultWorkers is the default number of concurrent workers to use.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// ErrFamilyDisabled is returned when a family has no database configured.
var ErrFamilyDisabled = errors.New("data source has no database configured")

// identifierRe guards schema names that end up inside SQL text.
var identifierRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Config holds the runtime configuration for grimoire.
// This struct is the "final, validated" config.
type Config struct {
	StartTime   time.Time
	EndTime     time.Time
	Period      schema.Period
	Filter      schema.Filter
	ResultLimit int
	Workers     int
	Precision   int
	Output      schema.OutputMode
	OutputFile  string
	OutputDir   string
	Width       int // Terminal width override (0 = auto-detect)
	UseColors   bool

	SourceBackend schema.DatabaseBackend
	SourceDBs     map[schema.DataSource]string // Please use env vars as these are plaintext
	IdentitiesDB  string

	ClosedStates []string
	TrendDays    []int
	ItemKinds    []schema.FilterKind
	Days         int // Newcomers/gone window

	CacheBackend   schema.DatabaseBackend
	CacheDBConnect string
	CacheTTL       time.Duration

	HistoryBackend   schema.DatabaseBackend
	HistoryDBConnect string
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Fields from rootCmd.PersistentFlags() ---
	Start      string `mapstructure:"start"`
	End        string `mapstructure:"end"`
	Period     string `mapstructure:"period"`
	Filter     string `mapstructure:"filter"`
	Limit      int    `mapstructure:"limit"`
	Workers    int    `mapstructure:"workers"`
	Precision  int    `mapstructure:"precision"`
	Output     string `mapstructure:"output"`
	OutputFile string `mapstructure:"output-file"`
	Width      int    `mapstructure:"width"`
	Color      string `mapstructure:"color"`

	// --- Source databases ---
	SourceBackend string `mapstructure:"source-backend"`
	SCMDB         string `mapstructure:"scm-db"`
	ITSDB         string `mapstructure:"its-db"`
	MLSDB         string `mapstructure:"mls-db"`
	SCRDB         string `mapstructure:"scr-db"`
	IRCDB         string `mapstructure:"irc-db"`
	MediaWikiDB   string `mapstructure:"mediawiki-db"`
	QAForumsDB    string `mapstructure:"qaforums-db"`
	IdentitiesDB  string `mapstructure:"identities-db"`

	// --- Metric tuning ---
	ClosedStates string `mapstructure:"closed-states"`
	TrendDays    string `mapstructure:"trend-days"`
	Items        string `mapstructure:"items"`
	Days         int    `mapstructure:"days"`

	// --- Fields from reportCmd.Flags() ---
	OutputDir string `mapstructure:"output-dir"`

	// --- Storage ---
	CacheBackend     string `mapstructure:"cache-backend"`
	CacheDBConnect   string `mapstructure:"cache-db-connect"`
	CacheTTL         string `mapstructure:"cache-ttl"`
	HistoryBackend   string `mapstructure:"history-backend"`
	HistoryDBConnect string `mapstructure:"history-db-connect"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	clone.SourceDBs = maps.Clone(c.SourceDBs)
	clone.ClosedStates = slices.Clone(c.ClosedStates)
	clone.TrendDays = slices.Clone(c.TrendDays)
	clone.ItemKinds = slices.Clone(c.ItemKinds)
	return &clone
}

// CloneWithTimeWindow creates a copy of the Config and sets the new StartTime and EndTime.
func (c *Config) CloneWithTimeWindow(start time.Time, end time.Time) *Config {
	clone := c.Clone()
	clone.StartTime = start
	clone.EndTime = end
	return clone
}

// Window returns the configured [start, end) window.
func (c *Config) Window() schema.TimeWindow {
	return schema.TimeWindow{Start: c.StartTime, End: c.EndTime}
}

// SourceDB returns the connection string of a family, or ErrFamilyDisabled.
func (c *Config) SourceDB(ds schema.DataSource) (string, error) {
	conn := c.SourceDBs[ds]
	if conn == "" {
		return "", fmt.Errorf("%w: set --%s-db", ErrFamilyDisabled, ds)
	}
	return conn, nil
}

// EnabledFamilies returns the families with a database configured, in report order.
func (c *Config) EnabledFamilies() []schema.DataSource {
	var out []schema.DataSource
	for _, ds := range schema.AllDataSources {
		if c.SourceDBs[ds] != "" {
			out = append(out, ds)
		}
	}
	return out
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processTimeRange(cfg, input); err != nil {
		return err
	}
	if err := processSources(cfg, input); err != nil {
		return err
	}
	if err := processMetricTuning(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	return nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateSimpleInputs processes and validates the output and tuning fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = input.OutputFile
	cfg.OutputDir = input.OutputDir
	cfg.Width = input.Width

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	if input.Limit <= 0 || input.Limit > MaxResultLimit {
		return fmt.Errorf("limit must be greater than 0 and cannot exceed %d (received %d)", MaxResultLimit, input.Limit)
	}
	cfg.ResultLimit = input.Limit

	if input.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0 (received %d)", input.Workers)
	}
	cfg.Workers = input.Workers

	if input.Precision < 1 || input.Precision > 2 {
		return fmt.Errorf("precision must be 1 or 2 (received %d)", input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be json, csv, text, parquet", input.Output)
	}

	cfg.Period = schema.Period(strings.ToLower(input.Period))
	if _, ok := schema.ValidPeriods[cfg.Period]; !ok {
		return fmt.Errorf("invalid period '%s'. must be day, week, month, year", input.Period)
	}

	filter, err := schema.ParseFilter(input.Filter)
	if err != nil {
		return err
	}
	cfg.Filter = filter
	return nil
}

// processTimeRange handles date parsing and time range validation.
// Without --start the window covers the DefaultLookbackYears before the end.
func processTimeRange(cfg *Config, input *ConfigRawInput) error {
	now := time.Now().UTC()
	cfg.EndTime = now.Truncate(CacheGranularity)

	if input.End != "" {
		t, err := ParseDate(input.End, now)
		if err != nil {
			return fmt.Errorf("invalid end date: %w", err)
		}
		cfg.EndTime = t
	}

	cfg.StartTime = cfg.EndTime.AddDate(-DefaultLookbackYears, 0, 0)
	if input.Start != "" {
		t, err := ParseDate(input.Start, now)
		if err != nil {
			return fmt.Errorf("invalid start date: %w", err)
		}
		cfg.StartTime = t
	}

	if !cfg.StartTime.Before(cfg.EndTime) {
		return fmt.Errorf("start time (%s) must be before end time (%s)", cfg.StartTime.Format(DateTimeFormat), cfg.EndTime.Format(DateTimeFormat))
	}
	return nil
}

// processSources validates the source backend and the per-family databases.
func processSources(cfg *Config, input *ConfigRawInput) error {
	cfg.SourceBackend = schema.DatabaseBackend(strings.ToLower(input.SourceBackend))
	switch cfg.SourceBackend {
	case schema.MySQLBackend, schema.PostgreSQLBackend, schema.SQLiteBackend:
	default:
		return fmt.Errorf("invalid source backend '%s'. must be mysql, postgresql, sqlite", input.SourceBackend)
	}

	cfg.SourceDBs = map[schema.DataSource]string{}
	raw := map[schema.DataSource]string{
		schema.SCM:       input.SCMDB,
		schema.ITS:       input.ITSDB,
		schema.MLS:       input.MLSDB,
		schema.SCR:       input.SCRDB,
		schema.IRC:       input.IRCDB,
		schema.MediaWiki: input.MediaWikiDB,
		schema.QAForums:  input.QAForumsDB,
	}
	for _, ds := range schema.AllDataSources {
		conn := strings.TrimSpace(raw[ds])
		if conn == "" {
			continue
		}
		if err := ValidateDatabaseConnectionString(cfg.SourceBackend, conn); err != nil {
			return fmt.Errorf("invalid --%s-db: %w", ds, err)
		}
		cfg.SourceDBs[ds] = conn
	}

	cfg.IdentitiesDB = strings.TrimSpace(input.IdentitiesDB)
	if cfg.IdentitiesDB != "" && !identifierRe.MatchString(cfg.IdentitiesDB) {
		return fmt.Errorf("invalid identities-db '%s'. must contain only letters, digits and '_'", cfg.IdentitiesDB)
	}
	return nil
}

// processMetricTuning handles closed states, trend windows, item kinds and the newcomers window.
func processMetricTuning(cfg *Config, input *ConfigRawInput) error {
	cfg.ClosedStates = SplitList(input.ClosedStates)
	if len(cfg.ClosedStates) == 0 {
		cfg.ClosedStates = slices.Clone(schema.DefaultClosedStates)
	}

	days, err := ParseIntList(input.TrendDays)
	if err != nil {
		return fmt.Errorf("invalid --trend-days: %w", err)
	}
	if len(days) == 0 {
		days = slices.Clone(schema.DefaultTrendDays)
	}
	cfg.TrendDays = days

	cfg.ItemKinds = nil
	for _, k := range SplitList(input.Items) {
		kind := schema.FilterKind(strings.ToLower(k))
		if _, ok := schema.ValidFilterKinds[kind]; !ok {
			return fmt.Errorf("invalid item kind '%s'. must be repository, company, country, domain, people", k)
		}
		if !slices.Contains(cfg.ItemKinds, kind) {
			cfg.ItemKinds = append(cfg.ItemKinds, kind)
		}
	}

	cfg.Days = input.Days
	if cfg.Days == 0 {
		cfg.Days = DefaultNewcomerDays
	}
	if cfg.Days < 0 {
		return fmt.Errorf("days must be greater than 0 (received %d)", input.Days)
	}
	return nil
}

// validateBackendConfigs validates cache and history backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	// --- Cache Backend Validation ---
	cfg.CacheBackend = schema.DatabaseBackend(strings.ToLower(input.CacheBackend))
	if _, ok := schema.ValidDatabaseBackends[cfg.CacheBackend]; !ok {
		return fmt.Errorf("invalid cache backend '%s'. must be sqlite, mysql, postgresql, none", input.CacheBackend)
	}
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return fmt.Errorf("invalid --cache-db-connect: %w", err)
	}

	cfg.CacheTTL = DefaultCacheTTL
	if input.CacheTTL != "" {
		ttl, err := ParseLookbackDuration(input.CacheTTL)
		if err != nil {
			return fmt.Errorf("invalid --cache-ttl: %w", err)
		}
		cfg.CacheTTL = ttl
	}

	// --- History Backend Validation ---
	cfg.HistoryBackend = schema.DatabaseBackend(strings.ToLower(input.HistoryBackend))
	if cfg.HistoryBackend == "" {
		return nil
	}
	if _, ok := schema.ValidDatabaseBackends[cfg.HistoryBackend]; !ok {
		return fmt.Errorf("invalid history backend '%s'. must be sqlite, mysql, postgresql, none", input.HistoryBackend)
	}
	cfg.HistoryDBConnect = input.HistoryDBConnect
	if err := ValidateDatabaseConnectionString(cfg.HistoryBackend, cfg.HistoryDBConnect); err != nil {
		return fmt.Errorf("invalid --history-db-connect: %w", err)
	}

	// For SQLite, resolve to actual file paths to catch default path conflicts
	if cfg.CacheBackend == schema.SQLiteBackend && cfg.HistoryBackend == schema.SQLiteBackend {
		cachePath := cfg.CacheDBConnect
		if cachePath == "" {
			cachePath = GetCacheDBFilePath()
		}
		historyPath := cfg.HistoryDBConnect
		if historyPath == "" {
			historyPath = GetHistoryDBFilePath()
		}
		if cachePath == historyPath {
			return fmt.Errorf("cache and history storage must use different SQLite database files. Both resolve to %q", cachePath)
		}
	}
	return nil
}
