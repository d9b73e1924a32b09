// Package analysis has the classification and replay analyses built on top
// of family metrics: the onion model, territoriality, backlog replay, time
// to close, newcomers and demographics.
//
// Every analysis is a pure function over plain rows plus an Analyzer method
// that loads those rows from the miner databases.
package analysis

import (
	"errors"
	"fmt"
	"math"

	"github.com/VizGrimoire/GrimoireLib-sub002/core/metrics"
	"github.com/VizGrimoire/GrimoireLib-sub002/schema"
)

// ErrNoTickets is returned when a ticket analysis runs on a family without tickets.
var ErrNoTickets = errors.New("data source has no tickets")

// Analyzer loads analysis inputs through a metrics engine.
type Analyzer struct {
	engine *metrics.Engine
}

// New returns an analyzer over the engine's databases.
func New(engine *metrics.Engine) *Analyzer {
	return &Analyzer{engine: engine}
}

// ticketHandle returns the family handle of a ticket-based family (ITS, SCR).
func (a *Analyzer) ticketHandle(ds schema.DataSource) (metrics.Handle, error) {
	h, err := a.engine.Handle(ds)
	if err != nil {
		return metrics.Handle{}, err
	}
	if h.Family.Tickets == nil {
		return metrics.Handle{}, fmt.Errorf("%w: %s", ErrNoTickets, ds)
	}
	return h, nil
}

// percent returns part/total*100 rounded to two decimals, 0 for an empty total.
func percent(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(part/total*10000) / 100
}
