package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/eddiefleurent/scranton_spreads/internal/orders"
	"github.com/eddiefleurent/scranton_spreads/internal/reconcile"
)

// WriteTable prints a per-symbol summary followed by every spread that is
// still open.
func WriteTable(w io.Writer, d *Document) error {
	if _, err := fmt.Fprintf(w, "Reconciliation %s (%s)\n", ShortID(d.RunID), d.GeneratedAt.Format("2006-01-02 15:04")); err != nil {
		return err
	}

	summary := tablewriter.NewWriter(w)
	summary.SetHeader([]string{"Symbol", "Opened", "Closed", "Remaining", "Open spreads", "Other"})
	summary.SetAlignment(tablewriter.ALIGN_RIGHT)
	for _, s := range d.Report.Symbols {
		summary.Append([]string{
			s.Symbol,
			strconv.Itoa(s.TotalOpened),
			strconv.Itoa(s.TotalClosed),
			strconv.Itoa(s.Remaining),
			strconv.Itoa(countOpen(s)),
			strconv.Itoa(len(s.Other)),
		})
	}
	summary.SetFooter([]string{
		"Total",
		strconv.Itoa(d.Totals.Opened),
		strconv.Itoa(d.Totals.Closed),
		strconv.Itoa(d.Totals.Remaining),
		"", "",
	})
	summary.Render()

	open := tablewriter.NewWriter(w)
	open.SetHeader([]string{"Symbol", "Opened at", "Expiration", "Strikes", "Strategy", "Remaining", "Potential closes"})
	rows := 0
	for _, s := range d.Report.Symbols {
		for _, u := range s.Unpaired {
			open.Append([]string{
				s.Symbol,
				openedAt(u.Open.Timestamp),
				u.Open.ExpirationKey(),
				u.Open.StrikeSignature,
				u.Open.OpeningStrategy,
				strconv.Itoa(u.Remaining),
				strconv.Itoa(len(u.PotentialCloses)),
			})
			rows++
		}
	}
	if rows == 0 {
		_, err := fmt.Fprintln(w, "No open spreads.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Open spreads:"); err != nil {
		return err
	}
	open.Render()
	return nil
}

func countOpen(s reconcile.SymbolReport) int {
	n := 0
	for _, o := range s.Openings {
		if o.Status == reconcile.StatusOpen {
			n++
		}
	}
	return n
}

// WriteCostTable prints the cash summary of an order history.
func WriteCostTable(w io.Writer, c orders.CostSummary) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Symbol", "Orders", "Order cost", "Event cash", "Total"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	for _, s := range c.Symbols {
		table.Append([]string{
			s.Symbol,
			strconv.Itoa(s.Orders),
			s.OrderCost.StringFixed(2),
			s.EventCash.StringFixed(2),
			s.Total.StringFixed(2),
		})
	}
	table.SetFooter([]string{"Total", "", c.OrderTotal.StringFixed(2), c.EventTotal.StringFixed(2), c.Total.StringFixed(2)})
	table.Render()
	fmt.Fprintf(w, "Mean order cost: %.2f  Median order cost: %.2f\n", c.MeanOrderCost, c.MedianOrderCost)
}
