package models

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRecord() OrderRecord {
	return OrderRecord{
		Timestamp:         time.Date(2024, 4, 1, 14, 30, 0, 0, time.UTC),
		Expiration:        time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC),
		Symbol:            "AAPL",
		StrikeSignature:   "150.00/145.00",
		Direction:         DirectionCredit,
		OpeningStrategy:   "short_put_spread",
		Price:             1.35,
		QuantityRequested: 10,
		QuantityProcessed: 8,
	}
}

func TestOrderRecord_Cost(t *testing.T) {
	r := validRecord()
	assert.True(t, r.Cost().Equal(decimal.RequireFromString("1080")), "got %s", r.Cost())

	r.Direction = DirectionDebit
	assert.True(t, r.Cost().Equal(decimal.RequireFromString("-1080")), "got %s", r.Cost())

	r.QuantityProcessed = 0
	assert.True(t, r.Cost().IsZero())
}

func TestOrderRecord_Classification(t *testing.T) {
	tests := []struct {
		name        string
		opening     string
		closing     string
		openSpread  bool
		closeSpread bool
		singleClose bool
	}{
		{"short put spread", "short_put_spread", "", true, false, false},
		{"iron condor upper case", "IRON_CONDOR", "", true, false, false},
		{"closing spread", "", "Long Call Spread", false, true, false},
		{"single leg close", "", "long_put", false, false, true},
		{"whitespace close", "", "  ", false, false, false},
		{"single leg open", "short_put", "", false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRecord()
			r.OpeningStrategy = tt.opening
			r.ClosingStrategy = tt.closing
			assert.Equal(t, tt.openSpread, r.IsOpeningSpread())
			assert.Equal(t, tt.closeSpread, r.IsClosingSpread())
			assert.Equal(t, tt.singleClose, r.IsSingleLegClose())
		})
	}
}

func TestOrderRecord_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*OrderRecord)
		field  string
	}{
		{"valid", func(*OrderRecord) {}, ""},
		{"missing symbol", func(r *OrderRecord) { r.Symbol = " " }, "symbol"},
		{"missing timestamp", func(r *OrderRecord) { r.Timestamp = time.Time{} }, "timestamp"},
		{"missing expiration", func(r *OrderRecord) { r.Expiration = time.Time{} }, "expiration"},
		{"missing signature", func(r *OrderRecord) { r.StrikeSignature = "" }, "strike_signature"},
		{"negative requested", func(r *OrderRecord) { r.QuantityRequested = -1 }, "quantity_requested"},
		{"negative processed", func(r *OrderRecord) { r.QuantityProcessed = -2 }, "quantity_processed"},
		{"processed over requested", func(r *OrderRecord) { r.QuantityProcessed = 11 }, "quantity_processed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRecord()
			tt.mutate(&r)
			err := r.Validate(7)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
			assert.Equal(t, 7, ve.Row)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Contains(t, err.Error(), "row 7")
		})
	}
}

func TestParseError_Message(t *testing.T) {
	err := &ParseError{Row: -1, Field: "strike_signature", Value: "x", Err: errors.New("bad")}
	assert.Equal(t, `parsing strike_signature "x": bad`, err.Error())

	err.Row = 3
	assert.Equal(t, `row 3: parsing strike_signature "x": bad`, err.Error())
	assert.ErrorIs(t, err, ErrParse)
}

func TestOrderRecord_Key(t *testing.T) {
	a := validRecord()
	b := validRecord()
	assert.Equal(t, a.Key(), b.Key())

	a.OrderID = "101"
	b.OrderID = "102"
	assert.NotEqual(t, a.Key(), b.Key())
	assert.Equal(t, "order:101", a.Key())
}
