// Package period buckets timestamps into days, weeks, months and years.
//
// Every period is identified by the date of its first day, rendered as
// YYYY-MM-DD. SQL dialects emit the same key for a date column, so rows
// coming back from any backend line up with the slots produced here.
package period

import (
	"fmt"
	"time"

	"github.com/VizGrimoire/GrimoireLib-sub002/schema"
)

// KeyLayout is the layout of period keys.
const KeyLayout = "2006-01-02"

// Truncate returns the start of the period containing t, in UTC.
// Weeks start on Monday.
func Truncate(p schema.Period, t time.Time) time.Time {
	t = t.UTC()
	y, m, d := t.Date()
	switch p {
	case schema.DayPeriod:
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	case schema.WeekPeriod:
		offset := (int(t.Weekday()) + 6) % 7
		return time.Date(y, m, d-offset, 0, 0, 0, 0, time.UTC)
	case schema.YearPeriod:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
	default: // MonthPeriod
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	}
}

// Next returns the start of the period following the one containing t.
func Next(p schema.Period, t time.Time) time.Time {
	s := Truncate(p, t)
	switch p {
	case schema.DayPeriod:
		return s.AddDate(0, 0, 1)
	case schema.WeekPeriod:
		return s.AddDate(0, 0, 7)
	case schema.YearPeriod:
		return s.AddDate(1, 0, 0)
	default:
		return s.AddDate(0, 1, 0)
	}
}

// Starts returns the starts of all periods intersecting [start, end).
func Starts(p schema.Period, start, end time.Time) []time.Time {
	if !start.Before(end) {
		return nil
	}
	var starts []time.Time
	for s := Truncate(p, start); s.Before(end); s = Next(p, s) {
		starts = append(starts, s)
	}
	return starts
}

// Key returns the canonical key of the period containing t.
func Key(p schema.Period, t time.Time) string {
	return Truncate(p, t).Format(KeyLayout)
}

// Complete turns sparse per-period rows into a dense slice aligned with
// Starts(p, start, end). Missing periods are zero; unknown keys are dropped.
func Complete(p schema.Period, start, end time.Time, rows map[string]float64) []float64 {
	starts := Starts(p, start, end)
	values := make([]float64, len(starts))
	for i, s := range starts {
		values[i] = rows[s.Format(KeyLayout)]
	}
	return values
}

// Index returns the slot of t inside Starts(p, start, end), or -1.
func Index(p schema.Period, start, end, t time.Time) int {
	if t.Before(Truncate(p, start)) || !t.Before(end) {
		return -1
	}
	first := Truncate(p, start)
	target := Truncate(p, t)
	switch p {
	case schema.DayPeriod:
		return int(target.Sub(first).Hours() / 24)
	case schema.WeekPeriod:
		return int(target.Sub(first).Hours() / (24 * 7))
	case schema.YearPeriod:
		return target.Year() - first.Year()
	default:
		return (target.Year()-first.Year())*12 + int(target.Month()) - int(first.Month())
	}
}

// Label renders the human label used by the dashboard for a period start.
func Label(p schema.Period, t time.Time) string {
	switch p {
	case schema.DayPeriod:
		return t.Format(KeyLayout)
	case schema.WeekPeriod:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case schema.YearPeriod:
		return t.Format("2006")
	default:
		return t.Format("Jan 2006")
	}
}

// Days returns the approximate length of a period, used for trend windows.
func Days(p schema.Period) int {
	switch p {
	case schema.DayPeriod:
		return 1
	case schema.WeekPeriod:
		return 7
	case schema.YearPeriod:
		return 365
	default:
		return 30
	}
}
