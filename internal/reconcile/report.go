package reconcile

import "github.com/eddiefleurent/scranton_spreads/internal/models"

// CloseAllocation is the part of a closing order assigned to one opening order.
type CloseAllocation struct {
	Close   models.OrderRecord `json:"close"`
	Matched int                `json:"matched"`
}

// PairedOrder is an opening spread with at least one closing allocation.
type PairedOrder struct {
	Open      models.OrderRecord `json:"open"`
	Closes    []CloseAllocation  `json:"closes"`
	Remaining int                `json:"remaining"`
}

// Closed returns the total quantity matched against the opening order.
func (p PairedOrder) Closed() int {
	total := 0
	for _, c := range p.Closes {
		total += c.Matched
	}
	return total
}

// UnpairedOpen is an opening spread with quantity left unmatched, together
// with single-leg closing orders that may account for part of it.
type UnpairedOpen struct {
	Open            models.OrderRecord   `json:"open"`
	PotentialCloses []models.OrderRecord `json:"potential_closes,omitempty"`
	Remaining       int                  `json:"remaining"`
}

// SymbolReport holds the reconciliation result for one underlying.
type SymbolReport struct {
	Symbol      string               `json:"symbol"`
	Paired      []PairedOrder        `json:"paired"`
	Unpaired    []UnpairedOpen       `json:"unpaired"`
	Openings    []OpeningStatus      `json:"openings"`
	Other       []models.OrderRecord `json:"other,omitempty"`
	TotalOpened int                  `json:"total_opened"`
	TotalClosed int                  `json:"total_closed"`
	Remaining   int                  `json:"remaining"`
}

// Report is the result of one reconciliation pass.
type Report struct {
	Symbols []SymbolReport `json:"symbols"`
}

// Symbol returns the report for one underlying.
func (r *Report) Symbol(symbol string) (SymbolReport, bool) {
	for _, s := range r.Symbols {
		if s.Symbol == symbol {
			return s, true
		}
	}
	return SymbolReport{}, false
}

// Totals sums the per-symbol counters.
func (r *Report) Totals() (opened, closed, remaining int) {
	for _, s := range r.Symbols {
		opened += s.TotalOpened
		closed += s.TotalClosed
		remaining += s.Remaining
	}
	return opened, closed, remaining
}

// Status is the final state of one opening spread.
type Status string

const (
	// StatusClosed means the full processed quantity was matched
	StatusClosed Status = "closed"
	// StatusOpen means some quantity is still unmatched
	StatusOpen Status = "open"
)

// OpeningStatus is one opening spread with its final state. Every opening
// spread of a symbol appears in SymbolReport.Openings exactly once, while a
// partially matched one is listed in both Paired and Unpaired.
type OpeningStatus struct {
	Open      models.OrderRecord `json:"open"`
	Status    Status             `json:"status"`
	Closed    int                `json:"closed"`
	Remaining int                `json:"remaining"`
}
