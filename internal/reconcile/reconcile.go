// Package reconcile pairs opening spread orders with the closing orders that
// offset them and reports the quantity that is still open per underlying.
//
// Matching is a single greedy pass in input order. Closing orders are not
// capacity-tracked across opening orders: a closing order can be allocated to
// every opening order it matches.
package reconcile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/eddiefleurent/scranton_spreads/internal/models"
)

// SignatureMatch selects how strike signatures of an opening and a closing
// spread are compared.
type SignatureMatch string

const (
	// MatchExact compares the signature strings byte for byte
	MatchExact SignatureMatch = "exact"
	// MatchNumeric compares the parsed strike values as multisets
	MatchNumeric SignatureMatch = "numeric"
)

// ParseSignatureMatch converts a config value into a SignatureMatch.
// An empty value selects MatchExact.
func ParseSignatureMatch(s string) (SignatureMatch, error) {
	switch SignatureMatch(strings.ToLower(strings.TrimSpace(s))) {
	case "", MatchExact:
		return MatchExact, nil
	case MatchNumeric:
		return MatchNumeric, nil
	}
	return "", fmt.Errorf("unknown signature match %q (want exact or numeric)", s)
}

type options struct {
	match SignatureMatch
}

// Option customises a reconciliation pass.
type Option func(*options)

// WithSignatureMatch sets the strike signature comparison mode.
func WithSignatureMatch(m SignatureMatch) Option {
	return func(o *options) {
		if m != "" {
			o.match = m
		}
	}
}

// row is a validated record with its parsed strikes.
type row struct {
	rec     models.OrderRecord
	strikes []float64
	index   int
}

// Reconcile runs one reconciliation pass over records, which must already be
// aggregated to one record per order (see models.OrderRecord.Key). The first invalid row
// fails the whole batch with a *models.ValidationError or *models.ParseError.
func Reconcile(records []models.OrderRecord, opts ...Option) (*Report, error) {
	o := options{match: MatchExact}
	for _, opt := range opts {
		opt(&o)
	}

	rows, err := prepare(records)
	if err != nil {
		return nil, err
	}

	var symbols []string
	bySymbol := make(map[string][]row)
	for _, r := range rows {
		if _, seen := bySymbol[r.rec.Symbol]; !seen {
			symbols = append(symbols, r.rec.Symbol)
		}
		bySymbol[r.rec.Symbol] = append(bySymbol[r.rec.Symbol], r)
	}

	report := &Report{Symbols: make([]SymbolReport, 0, len(symbols))}
	for _, symbol := range symbols {
		report.Symbols = append(report.Symbols, o.reconcileSymbol(symbol, bySymbol[symbol]))
	}
	return report, nil
}

func prepare(records []models.OrderRecord) ([]row, error) {
	rows := make([]row, len(records))
	seen := make(map[string]int, len(records))
	for i, rec := range records {
		if err := rec.Validate(i); err != nil {
			return nil, err
		}
		key := rec.Key()
		if first, dup := seen[key]; dup {
			return nil, &models.ValidationError{
				Row:    i,
				Field:  "timestamp",
				Reason: fmt.Sprintf("duplicates row %d", first),
			}
		}
		seen[key] = i

		strikes, err := rec.Strikes()
		if err != nil {
			var pe *models.ParseError
			if errors.As(err, &pe) {
				return nil, &models.ParseError{Row: i, Field: pe.Field, Value: pe.Value, Err: pe.Err}
			}
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		rows[i] = row{rec: rec, strikes: strikes, index: i}
	}
	return rows, nil
}

func (o options) reconcileSymbol(symbol string, rows []row) SymbolReport {
	report := SymbolReport{Symbol: symbol}

	for _, open := range rows {
		if !open.rec.IsOpeningSpread() {
			continue
		}

		remaining := open.rec.QuantityProcessed
		report.TotalOpened += remaining

		var closes []CloseAllocation
		for _, c := range rows {
			if remaining <= 0 {
				break
			}
			if !o.closesSpread(open, c) {
				continue
			}
			matched := min(remaining, c.rec.QuantityProcessed)
			if matched <= 0 {
				continue
			}
			closes = append(closes, CloseAllocation{Close: c.rec, Matched: matched})
			remaining -= matched
		}

		closed := open.rec.QuantityProcessed - remaining
		report.TotalClosed += closed

		if len(closes) > 0 {
			report.Paired = append(report.Paired, PairedOrder{
				Open:      open.rec,
				Closes:    closes,
				Remaining: remaining,
			})
		}

		status := StatusClosed
		if remaining > 0 {
			status = StatusOpen
			report.Unpaired = append(report.Unpaired, UnpairedOpen{
				Open:            open.rec,
				Remaining:       remaining,
				PotentialCloses: potentialCloses(open, rows),
			})
		}
		report.Openings = append(report.Openings, OpeningStatus{
			Open:      open.rec,
			Status:    status,
			Closed:    closed,
			Remaining: remaining,
		})
	}

	for _, r := range rows {
		if !r.rec.IsOpeningSpread() && !r.rec.IsClosingSpread() {
			report.Other = append(report.Other, r.rec)
		}
	}

	report.Remaining = report.TotalOpened - report.TotalClosed
	return report
}

// closesSpread reports whether c is a closing spread for the same expiration
// and strike signature as open.
func (o options) closesSpread(open, c row) bool {
	if c.index == open.index || !c.rec.IsClosingSpread() {
		return false
	}
	if c.rec.ExpirationKey() != open.rec.ExpirationKey() {
		return false
	}
	if o.match == MatchNumeric {
		return models.SameStrikes(open.strikes, c.strikes)
	}
	return c.rec.StrikeSignature == open.rec.StrikeSignature
}

// potentialCloses finds single-leg closing orders on the same expiration
// that share at least one strike with the opening spread.
func potentialCloses(open row, rows []row) []models.OrderRecord {
	var out []models.OrderRecord
	for _, c := range rows {
		if c.index == open.index || !c.rec.IsSingleLegClose() {
			continue
		}
		if c.rec.ExpirationKey() != open.rec.ExpirationKey() {
			continue
		}
		if models.SharesStrike(c.strikes, open.strikes) {
			out = append(out, c.rec)
		}
	}
	return out
}
