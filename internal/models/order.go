// Package models defines the order data shared by the feed, aggregation and reconciliation layers.
package models

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// sharesPerContract is the standard equity option multiplier.
const sharesPerContract = 100

// DateLayout is the layout used for expiration dates everywhere in the repo.
const DateLayout = "2006-01-02"

// spreadPattern marks a multi-leg strategy by its free-text tag.
var spreadPattern = regexp.MustCompile(`(?i)spread|iron`)

// Direction is the cash direction of an order.
type Direction string

const (
	// DirectionCredit means premium was received
	DirectionCredit Direction = "credit"
	// DirectionDebit means premium was paid
	DirectionDebit Direction = "debit"
)

// OrderLeg is one leg row of an order submission as exported by a broker.
// Legs with the same OrderID form one logical order. Without an OrderID,
// legs sharing a creation timestamp do.
type OrderLeg struct {
	OrderID           string    `json:"order_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	Expiration        time.Time `json:"expiration"`
	Symbol            string    `json:"symbol"`
	OptionType        string    `json:"option_type"`
	Direction         Direction `json:"direction"`
	OrderType         string    `json:"order_type"`
	OpeningStrategy   string    `json:"opening_strategy,omitempty"`
	ClosingStrategy   string    `json:"closing_strategy,omitempty"`
	State             string    `json:"state,omitempty"`
	Strike            float64   `json:"strike"`
	Price             float64   `json:"price"`
	QuantityRequested int       `json:"quantity_requested"`
	QuantityProcessed int       `json:"quantity_processed"`
}

// OrderRecord is one aggregated logical order, keyed by its broker order id
// when known and by its creation timestamp otherwise.
type OrderRecord struct {
	OrderID           string    `json:"order_id,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
	Expiration        time.Time `json:"expiration"`
	Symbol            string    `json:"symbol"`
	StrikeSignature   string    `json:"strike_signature"`
	OptionType        string    `json:"option_type"`
	Direction         Direction `json:"direction"`
	OrderType         string    `json:"order_type,omitempty"`
	OpeningStrategy   string    `json:"opening_strategy,omitempty"`
	ClosingStrategy   string    `json:"closing_strategy,omitempty"`
	Price             float64   `json:"price"`
	QuantityRequested int       `json:"quantity_requested"`
	QuantityProcessed int       `json:"quantity_processed"`
}

// IsSpreadStrategy reports whether a strategy tag names a multi-leg position.
func IsSpreadStrategy(strategy string) bool {
	return strategy != "" && spreadPattern.MatchString(strategy)
}

// IsOpeningSpread returns true when the record opened a spread or iron position.
func (r OrderRecord) IsOpeningSpread() bool {
	return IsSpreadStrategy(r.OpeningStrategy)
}

// IsClosingSpread returns true when the record closed a spread or iron position.
func (r OrderRecord) IsClosingSpread() bool {
	return IsSpreadStrategy(r.ClosingStrategy)
}

// IsSingleLegClose returns true for closing orders that are not tagged as spreads.
func (r OrderRecord) IsSingleLegClose() bool {
	return strings.TrimSpace(r.ClosingStrategy) != "" && !IsSpreadStrategy(r.ClosingStrategy)
}

// Strikes parses the strike signature into individual strike values.
func (r OrderRecord) Strikes() ([]float64, error) {
	return ParseStrikeSignature(r.StrikeSignature)
}

// Cost returns price * processed quantity * 100, negative for debits.
func (r OrderRecord) Cost() decimal.Decimal {
	cost := decimal.NewFromFloat(r.Price).
		Mul(decimal.NewFromInt(int64(r.QuantityProcessed))).
		Mul(decimal.NewFromInt(sharesPerContract))
	if r.Direction == DirectionDebit {
		return cost.Neg()
	}
	return cost
}

// ExpirationKey returns the expiration formatted as YYYY-MM-DD.
func (r OrderRecord) ExpirationKey() string {
	return r.Expiration.Format(DateLayout)
}

// Validate checks the fields the reconciler relies on.
// row is the record's index in its batch and is echoed in the error.
// Key identifies the record within a batch.
func (r OrderRecord) Key() string {
	if r.OrderID != "" {
		return "order:" + r.OrderID
	}
	return "ts:" + strconv.FormatInt(r.Timestamp.UnixNano(), 10)
}

func (r OrderRecord) Validate(row int) error {
	switch {
	case strings.TrimSpace(r.Symbol) == "":
		return &ValidationError{Row: row, Field: "symbol", Reason: "is required"}
	case r.Timestamp.IsZero():
		return &ValidationError{Row: row, Field: "timestamp", Reason: "is required"}
	case r.Expiration.IsZero():
		return &ValidationError{Row: row, Field: "expiration", Reason: "is required"}
	case strings.TrimSpace(r.StrikeSignature) == "":
		return &ValidationError{Row: row, Field: "strike_signature", Reason: "is required"}
	case r.QuantityRequested < 0:
		return &ValidationError{Row: row, Field: "quantity_requested", Reason: "must be >= 0"}
	case r.QuantityProcessed < 0:
		return &ValidationError{Row: row, Field: "quantity_processed", Reason: "must be >= 0"}
	case r.QuantityProcessed > r.QuantityRequested:
		return &ValidationError{Row: row, Field: "quantity_processed", Reason: "exceeds quantity_requested"}
	}
	return nil
}
