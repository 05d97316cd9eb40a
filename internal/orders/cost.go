package orders

import (
	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"

	"github.com/eddiefleurent/scranton_spreads/internal/models"
)

// SymbolCost is the cash result of one underlying.
type SymbolCost struct {
	Symbol    string          `json:"symbol"`
	Orders    int             `json:"orders"`
	OrderCost decimal.Decimal `json:"order_cost"`
	EventCash decimal.Decimal `json:"event_cash"`
	Total     decimal.Decimal `json:"total"`
}

// CostSummary is the net cash of an order history. Positive totals mean
// more premium was received than paid.
type CostSummary struct {
	Symbols         []SymbolCost    `json:"symbols"`
	OrderTotal      decimal.Decimal `json:"order_total"`
	EventTotal      decimal.Decimal `json:"event_total"`
	Total           decimal.Decimal `json:"total"`
	MeanOrderCost   float64         `json:"mean_order_cost"`
	MedianOrderCost float64         `json:"median_order_cost"`
}

// SummarizeCost adds up the cost of every record and the cash of option
// events on the same underlyings. Events for symbols without orders are
// ignored. Symbols keep their first-appearance order.
func SummarizeCost(records []models.OrderRecord, events []models.Event) CostSummary {
	var summary CostSummary
	index := make(map[string]int)
	costs := make([]float64, 0, len(records))

	for _, r := range records {
		i, ok := index[r.Symbol]
		if !ok {
			i = len(summary.Symbols)
			index[r.Symbol] = i
			summary.Symbols = append(summary.Symbols, SymbolCost{Symbol: r.Symbol})
		}
		cost := r.Cost()
		summary.Symbols[i].Orders++
		summary.Symbols[i].OrderCost = summary.Symbols[i].OrderCost.Add(cost)
		summary.OrderTotal = summary.OrderTotal.Add(cost)
		costs = append(costs, cost.InexactFloat64())
	}

	for _, e := range events {
		i, ok := index[e.Symbol]
		if !ok {
			continue
		}
		summary.Symbols[i].EventCash = summary.Symbols[i].EventCash.Add(e.Cash())
		summary.EventTotal = summary.EventTotal.Add(e.Cash())
	}

	for i := range summary.Symbols {
		s := &summary.Symbols[i]
		s.Total = s.OrderCost.Add(s.EventCash)
	}
	summary.Total = summary.OrderTotal.Add(summary.EventTotal)

	if mean, err := stats.Mean(costs); err == nil {
		summary.MeanOrderCost = mean
	}
	if median, err := stats.Median(costs); err == nil {
		summary.MedianOrderCost = median
	}
	return summary
}
