package feed

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/eddiefleurent/scranton_spreads/internal/broker"
	"github.com/eddiefleurent/scranton_spreads/internal/orders"
)

// Export is the on-disk form of an account history. It keeps the Tradier
// response envelopes so a saved file decodes exactly like a live response.
type Export struct {
	Orders  broker.OrdersWrapper  `json:"orders"`
	History broker.HistoryWrapper `json:"history"`
}

// NewExport wraps a fetched history for writing.
func NewExport(h orders.History) Export {
	var e Export
	e.Orders.Order = h.Orders
	e.History.Event = h.Events
	return e
}

// WriteJSON writes an account history as an indented JSON export.
func WriteJSON(w io.Writer, h orders.History) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewExport(h)); err != nil {
		return fmt.Errorf("encoding export: %w", err)
	}
	return nil
}

// LoadJSON reads an export written by WriteJSON, or a raw Tradier orders
// response, and converts it into records and events.
func LoadJSON(r io.Reader) (*Data, error) {
	var e Export
	if err := json.NewDecoder(r).Decode(&e); err != nil {
		return nil, fmt.Errorf("decoding json: %w", err)
	}
	snap, err := orders.Convert(orders.History{Orders: e.Orders.Order, Events: e.History.Event})
	if err != nil {
		return nil, err
	}
	return &Data{Records: snap.Records, Events: snap.Events}, nil
}
