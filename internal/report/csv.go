package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/eddiefleurent/scranton_spreads/internal/models"
	"github.com/eddiefleurent/scranton_spreads/internal/reconcile"
)

// Role is the part a record plays in a reconciliation report.
type Role string

const (
	RolePairedOpen     Role = "paired_open"
	RoleClose          Role = "close"
	RoleUnpairedOpen   Role = "unpaired_open"
	RolePotentialClose Role = "potential_close"
	RoleOther          Role = "other"
)

// RowDTO is one CSV report row.
type RowDTO struct {
	Symbol                string `csv:"symbol"`
	Role                  Role   `csv:"role"`
	OrderCreatedAt        string `csv:"order_created_at"`
	OrderID               string `csv:"order_id"`
	ExpirationDate        string `csv:"expiration_date"`
	StrikeSignature       string `csv:"strike_signature"`
	OptionType            string `csv:"option_type"`
	Direction             string `csv:"direction"`
	OpeningStrategy       string `csv:"opening_strategy"`
	ClosingStrategy       string `csv:"closing_strategy"`
	Price                 string `csv:"price"`
	OrderQuantity         int    `csv:"order_quantity"`
	ProcessedQuantity     int    `csv:"processed_quantity"`
	Matched               int    `csv:"matched"`
	Remaining             int    `csv:"remaining"`
	OpenedAt              string `csv:"opened_at"`
	PotentialClosingOrder bool   `csv:"potential_closing_order"`
}

const timestampLayout = "2006-01-02 15:04:05.000"

func newRow(symbol string, role Role, r models.OrderRecord) RowDTO {
	return RowDTO{
		Symbol:            symbol,
		Role:              role,
		OrderCreatedAt:    r.Timestamp.UTC().Format(timestampLayout),
		OrderID:           r.OrderID,
		ExpirationDate:    r.ExpirationKey(),
		StrikeSignature:   r.StrikeSignature,
		OptionType:        r.OptionType,
		Direction:         string(r.Direction),
		OpeningStrategy:   r.OpeningStrategy,
		ClosingStrategy:   r.ClosingStrategy,
		Price:             strconv.FormatFloat(r.Price, 'f', 2, 64),
		OrderQuantity:     r.QuantityRequested,
		ProcessedQuantity: r.QuantityProcessed,
	}
}

func openedAt(t time.Time) string { return t.UTC().Format(timestampLayout) }

// Rows flattens a report. Each paired opening is followed by its closes and
// each unpaired opening by its potential single-leg closes.
func Rows(r *reconcile.Report) []RowDTO {
	var rows []RowDTO
	for _, s := range r.Symbols {
		for _, p := range s.Paired {
			open := newRow(s.Symbol, RolePairedOpen, p.Open)
			open.Matched = p.Closed()
			open.Remaining = p.Remaining
			rows = append(rows, open)
			for _, c := range p.Closes {
				row := newRow(s.Symbol, RoleClose, c.Close)
				row.Matched = c.Matched
				row.OpenedAt = openedAt(p.Open.Timestamp)
				rows = append(rows, row)
			}
		}
		for _, u := range s.Unpaired {
			open := newRow(s.Symbol, RoleUnpairedOpen, u.Open)
			open.Matched = u.Open.QuantityProcessed - u.Remaining
			open.Remaining = u.Remaining
			rows = append(rows, open)
			for _, c := range u.PotentialCloses {
				row := newRow(s.Symbol, RolePotentialClose, c)
				row.OpenedAt = openedAt(u.Open.Timestamp)
				row.PotentialClosingOrder = true
				rows = append(rows, row)
			}
		}
		for _, o := range s.Other {
			rows = append(rows, newRow(s.Symbol, RoleOther, o))
		}
	}
	return rows
}

// WriteCSV writes the flattened report with a header row.
func WriteCSV(w io.Writer, r *reconcile.Report) error {
	rows := Rows(r)
	writer := gocsv.NewSafeCSVWriter(csv.NewWriter(w))
	if err := gocsv.MarshalCSV(&rows, writer); err != nil {
		return fmt.Errorf("writing report csv: %w", err)
	}
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flushing report csv: %w", err)
	}
	return nil
}
