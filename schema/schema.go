// Package schema has models and constants shared by all parts of grimoire.
package schema

import "time"

// Filter restricts a metric to one repository, company, country, domain or person.
// The zero value means the global (unfiltered) view.
type Filter struct {
	Kind  FilterKind `json:"kind,omitempty"`
	Value string     `json:"value,omitempty"`
}

// TimeWindow is a half-open interval [Start, End).
// A zero Start means "since the beginning of the data".
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Aggregate holds metric values computed over a whole time window.
type Aggregate struct {
	Family    DataSource         `json:"family"`
	Filter    Filter             `json:"filter"`
	Window    TimeWindow         `json:"window"`
	Values    map[string]float64 `json:"values"`
	FirstDate *time.Time         `json:"first_date,omitempty"` // First activity inside the window
	LastDate  *time.Time         `json:"last_date,omitempty"`  // Last activity inside the window
}

// Series holds dense, zero-filled metric values per period.
type Series struct {
	Family DataSource           `json:"family"`
	Filter Filter               `json:"filter"`
	Period Period               `json:"period"`
	Window TimeWindow           `json:"window"`
	Dates  []time.Time          `json:"dates"` // Period starts
	Values map[string][]float64 `json:"values"`
}

// Trend compares a metric over the last N days with the N days before.
type Trend struct {
	Metric   string  `json:"metric"`
	Days     int     `json:"days"`
	Current  float64 `json:"current"`
	Previous float64 `json:"previous"`
	Diff     float64 `json:"diff"`
	Percent  float64 `json:"percent"`
}

// TopEntry is one ranked contributor (or item) in a top list.
type TopEntry struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// TopList is a ranked list for one metric over one window.
type TopList struct {
	Family  DataSource `json:"family"`
	Metric  string     `json:"metric"`
	Label   string     `json:"label"` // "", "last month" or "last year"
	Window  TimeWindow `json:"window"`
	Entries []TopEntry `json:"entries"`
}

// Item is a filter value (repository, company, ...) with its activity.
// People items carry the unique identity in ID and its identifier in Name.
type Item struct {
	ID    string  `json:"id,omitempty"`
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// FilterValue is the value selecting this item in a Filter.
func (it Item) FilterValue() string {
	if it.ID != "" {
		return it.ID
	}
	return it.Name
}

// Key names the item in file names, falling back to the ID for unnamed people.
func (it Item) Key() string {
	if it.Name != "" {
		return it.Name
	}
	return it.ID
}

// MetricInfo describes a metric for listing purposes.
type MetricInfo struct {
	Family      DataSource `json:"family"`
	ID          string     `json:"id"`
	Description string     `json:"description"`
	Derived     bool       `json:"derived"`
	Top         bool       `json:"top"`
}
