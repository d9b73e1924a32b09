package query

import (
	"fmt"
	"time"

	"github.com/VizGrimoire/GrimoireLib-sub002/schema"
	"github.com/jmoiron/sqlx"
)

// DateTimeLayout is the layout every dialect renders timestamps with.
const DateTimeLayout = "2006-01-02 15:04:05"

// Dialect renders the backend-specific bits of a query.
type Dialect struct {
	Backend schema.DatabaseBackend
}

// NewDialect returns the dialect for a source backend.
func NewDialect(backend schema.DatabaseBackend) (Dialect, error) {
	switch backend {
	case schema.MySQLBackend, schema.PostgreSQLBackend, schema.SQLiteBackend:
		return Dialect{Backend: backend}, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported source backend: %s. Must be mysql, postgresql, or sqlite", backend)
	}
}

// DriverName returns the database/sql driver registered for the backend.
func (d Dialect) DriverName() string {
	switch d.Backend {
	case schema.PostgreSQLBackend:
		return "pgx"
	case schema.SQLiteBackend:
		return "sqlite"
	default:
		return "mysql"
	}
}

// Rebind converts '?' placeholders to the backend bind style.
func (d Dialect) Rebind(q string) string {
	if d.Backend == schema.PostgreSQLBackend {
		return sqlx.Rebind(sqlx.DOLLAR, q)
	}
	return q
}

// PeriodKey renders an expression yielding the YYYY-MM-DD start of the
// period containing expr.
func (d Dialect) PeriodKey(expr string, p schema.Period) string {
	switch d.Backend {
	case schema.PostgreSQLBackend:
		unit := "month"
		switch p {
		case schema.DayPeriod:
			unit = "day"
		case schema.WeekPeriod:
			unit = "week"
		case schema.YearPeriod:
			unit = "year"
		}
		return fmt.Sprintf("to_char(date_trunc('%s', %s), 'YYYY-MM-DD')", unit, expr)

	case schema.SQLiteBackend:
		switch p {
		case schema.DayPeriod:
			return fmt.Sprintf("strftime('%%Y-%%m-%%d', %s)", expr)
		case schema.WeekPeriod:
			return fmt.Sprintf("date(%s, 'weekday 0', '-6 days')", expr)
		case schema.YearPeriod:
			return fmt.Sprintf("strftime('%%Y-01-01', %s)", expr)
		default:
			return fmt.Sprintf("strftime('%%Y-%%m-01', %s)", expr)
		}

	default: // MySQL
		switch p {
		case schema.DayPeriod:
			return fmt.Sprintf("DATE_FORMAT(%s, '%%Y-%%m-%%d')", expr)
		case schema.WeekPeriod:
			return fmt.Sprintf("DATE_FORMAT(DATE_SUB(%s, INTERVAL WEEKDAY(%s) DAY), '%%Y-%%m-%%d')", expr, expr)
		case schema.YearPeriod:
			return fmt.Sprintf("DATE_FORMAT(%s, '%%Y-01-01')", expr)
		default:
			return fmt.Sprintf("DATE_FORMAT(%s, '%%Y-%%m-01')", expr)
		}
	}
}

// DateString renders expr as a DateTimeLayout string, so timestamps scan
// the same way on every backend.
func (d Dialect) DateString(expr string) string {
	switch d.Backend {
	case schema.PostgreSQLBackend:
		return fmt.Sprintf("to_char(%s, 'YYYY-MM-DD HH24:MI:SS')", expr)
	case schema.SQLiteBackend:
		return fmt.Sprintf("strftime('%%Y-%%m-%%d %%H:%%M:%%S', %s)", expr)
	default:
		return fmt.Sprintf("DATE_FORMAT(%s, '%%Y-%%m-%%d %%H:%%i:%%s')", expr)
	}
}

// TimeArg converts a bound timestamp into what the driver compares
// correctly against the miners' naive DATETIME columns.
func (d Dialect) TimeArg(t time.Time) any {
	if d.Backend == schema.PostgreSQLBackend {
		return t.UTC()
	}
	return t.UTC().Format(DateTimeLayout)
}

// ParseTime parses a timestamp rendered by DateString.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(DateTimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}
