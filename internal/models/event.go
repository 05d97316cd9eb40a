package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event is a cash movement on an options position outside of an order fill,
// such as an assignment, exercise or expiration.
type Event struct {
	Date        time.Time       `json:"date"`
	Symbol      string          `json:"symbol"`
	Type        string          `json:"type"`
	Direction   Direction       `json:"direction"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
}

// Cash returns the signed cash effect: credits add, debits subtract.
func (e Event) Cash() decimal.Decimal {
	if e.Direction == DirectionDebit {
		return e.Amount.Neg()
	}
	return e.Amount
}
