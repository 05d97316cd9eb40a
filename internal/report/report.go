// Package report renders reconciliation results as CSV, JSON and console
// tables, and writes them to disk.
package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/eddiefleurent/scranton_spreads/internal/orders"
	"github.com/eddiefleurent/scranton_spreads/internal/reconcile"
)

// Document is one rendered reconciliation run.
type Document struct {
	RunID       string              `json:"run_id"`
	GeneratedAt time.Time           `json:"generated_at"`
	Source      string              `json:"source,omitempty"`
	Totals      Totals              `json:"totals"`
	Report      *reconcile.Report   `json:"report"`
	Cost        *orders.CostSummary `json:"cost,omitempty"`
}

// Totals are the report counters summed over every symbol.
type Totals struct {
	Opened    int `json:"opened"`
	Closed    int `json:"closed"`
	Remaining int `json:"remaining"`
}

// NewDocument stamps a report with a fresh run id.
func NewDocument(r *reconcile.Report, source string, now time.Time) *Document {
	if r == nil {
		r = &reconcile.Report{}
	}
	opened, closed, remaining := r.Totals()
	return &Document{
		RunID:       uuid.NewString(),
		GeneratedAt: now.UTC(),
		Source:      source,
		Totals:      Totals{Opened: opened, Closed: closed, Remaining: remaining},
		Report:      r,
	}
}

// WithCost attaches a cost summary.
func (d *Document) WithCost(c orders.CostSummary) *Document {
	d.Cost = &c
	return d
}

// ShortID returns the first eight characters of an id.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
