package schema

// Custom string types for type safety.
type (
	// DataSource identifies a family of miner databases (SCM, ITS, ...).
	DataSource string

	// Period represents the bucket size of a time series.
	Period string

	// OutputMode represents the format of the output.
	OutputMode string

	// FilterKind represents the dimension a metric can be filtered on.
	FilterKind string

	// DatabaseBackend represents the database backend for sources, caching and history.
	DatabaseBackend string

	// OnionBand represents a layer of the onion model.
	OnionBand string
)

// All data source families supported.
const (
	SCM       DataSource = "scm"       // CVSAnalY
	ITS       DataSource = "its"       // Bicho
	MLS       DataSource = "mls"       // MLStats
	SCR       DataSource = "scr"       // Bicho on Gerrit
	IRC       DataSource = "irc"       // IRCAnalysis
	MediaWiki DataSource = "mediawiki" // MediaWikiAnalysis
	QAForums  DataSource = "qaforums"  // Sibyl
)

// All periods supported.
const (
	DayPeriod   Period = "day"
	WeekPeriod  Period = "week"
	MonthPeriod Period = "month" // default
	YearPeriod  Period = "year"
)

// All output modes supported.
const (
	JSONOut    OutputMode = "json" // default
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text"
	ParquetOut OutputMode = "parquet"
)

// All filter kinds supported.
const (
	RepositoryFilter FilterKind = "repository"
	CompanyFilter    FilterKind = "company"
	CountryFilter    FilterKind = "country"
	DomainFilter     FilterKind = "domain"
	PeopleFilter     FilterKind = "people"
)

// All database backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default for cache
	MySQLBackend      DatabaseBackend = "mysql"  // default for sources
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// Onion layers, from the most to the least active contributors.
const (
	CoreBand       OnionBand = "core"
	RegularBand    OnionBand = "regular"
	OccasionalBand OnionBand = "occasional"
)

// AllDataSources returns every family in report order.
var AllDataSources = []DataSource{SCM, ITS, MLS, SCR, IRC, MediaWiki, QAForums}

// AllFilterKinds returns every filter kind.
var AllFilterKinds = []FilterKind{RepositoryFilter, CompanyFilter, CountryFilter, DomainFilter, PeopleFilter}

// ValidDataSources lists all valid data source families.
var ValidDataSources = map[DataSource]struct{}{
	SCM:       {},
	ITS:       {},
	MLS:       {},
	SCR:       {},
	IRC:       {},
	MediaWiki: {},
	QAForums:  {},
}

// ValidPeriods lists all valid periods.
var ValidPeriods = map[Period]struct{}{
	DayPeriod:   {},
	WeekPeriod:  {},
	MonthPeriod: {},
	YearPeriod:  {},
}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	JSONOut:    {},
	CSVOut:     {},
	TextOut:    {},
	ParquetOut: {},
}

// ValidFilterKinds lists all valid filter kinds.
var ValidFilterKinds = map[FilterKind]struct{}{
	RepositoryFilter: {},
	CompanyFilter:    {},
	CountryFilter:    {},
	DomainFilter:     {},
	PeopleFilter:     {},
}

// ValidDatabaseBackends lists all valid database backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// DefaultClosedStates are the ITS status values that mark a ticket as closed.
var DefaultClosedStates = []string{"Closed", "Resolved", "Fixed"}

// DefaultTrendDays are the windows used for trend reports.
var DefaultTrendDays = []int{7, 30, 365}
