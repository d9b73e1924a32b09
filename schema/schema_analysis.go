package schema

import "time"

// Contributor is a person with an activity count (commits, messages, ...).
type Contributor struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Activity float64 `json:"activity"`
}

// OnionLayer summarizes one band of the onion model.
type OnionLayer struct {
	Band     OnionBand     `json:"band"`
	Count    int           `json:"count"`
	Activity float64       `json:"activity"`
	Share    float64       `json:"share"` // Percentage of total activity
	Members  []Contributor `json:"members,omitempty"`
}

// OnionResult classifies contributors into core, regular and occasional.
type OnionResult struct {
	Family        DataSource `json:"family"`
	Window        TimeWindow `json:"window"`
	TotalActivity float64    `json:"total_activity"`
	Contributors  int        `json:"contributors"`
	Core          OnionLayer `json:"core"`
	Regular       OnionLayer `json:"regular"`
	Occasional    OnionLayer `json:"occasional"`
}

// OnionSeries holds the band sizes of the onion model per period.
type OnionSeries struct {
	Family     DataSource  `json:"family"`
	Period     Period      `json:"period"`
	Dates      []time.Time `json:"dates"`
	Core       []float64   `json:"core"`
	Regular    []float64   `json:"regular"`
	Occasional []float64   `json:"occasional"`
}

// TerritorialityResult measures files that only one author ever touched.
type TerritorialityResult struct {
	Window           TimeWindow `json:"window"`
	TerritorialFiles int        `json:"territorial_files"`
	TotalFiles       int        `json:"total_files"`
	Percentage       float64    `json:"percentage"`
}

// BacklogResult holds ticket counts per state at the end of each period.
type BacklogResult struct {
	Family  DataSource           `json:"family"`
	Period  Period               `json:"period"`
	Dates   []time.Time          `json:"dates"`
	States  []string             `json:"states"`
	Counts  map[string][]float64 `json:"counts"`
	Pending []float64            `json:"pending"`
	Total   []float64            `json:"total"`
}

// TimeToCloseResult describes how long tickets or reviews stay open, in days.
type TimeToCloseResult struct {
	Family     DataSource  `json:"family"`
	Window     TimeWindow  `json:"window"`
	Count      int         `json:"count"`
	MeanDays   float64     `json:"mean_days"`
	MedianDays float64     `json:"median_days"`
	P25Days    float64     `json:"p25_days"`
	P75Days    float64     `json:"p75_days"`
	P95Days    float64     `json:"p95_days"`
	Period     Period      `json:"period"`
	Dates      []time.Time `json:"dates"`
	Median     []float64   `json:"median"`
}

// ContributorActivity is a person with first and last activity dates.
type ContributorActivity struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	First    time.Time `json:"first"`
	Last     time.Time `json:"last"`
	Activity float64   `json:"activity"`
}

// NewcomersResult lists people who joined or left during the last days of a window.
type NewcomersResult struct {
	Family    DataSource            `json:"family"`
	Days      int                   `json:"days"`
	Newcomers []ContributorActivity `json:"newcomers"`
	Gone      []ContributorActivity `json:"gone"`
}

// AgeBucket counts active people whose seniority falls in [FromDays, ToDays).
type AgeBucket struct {
	FromDays int `json:"from_days"`
	ToDays   int `json:"to_days"`
	Count    int `json:"count"`
}

// DemographicsResult is a seniority histogram of active people.
type DemographicsResult struct {
	Family     DataSource  `json:"family"`
	BucketDays int         `json:"bucket_days"`
	Buckets    []AgeBucket `json:"buckets"`
}
