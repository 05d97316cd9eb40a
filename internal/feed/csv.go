// Package feed loads order history exports from disk.
package feed

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/eddiefleurent/scranton_spreads/internal/models"
	"github.com/eddiefleurent/scranton_spreads/internal/orders"
)

// LegRowDTO is one leg row of an order history CSV export. Fields are kept as
// text so parse failures can name the offending row and column.
type LegRowDTO struct {
	OrderCreatedAt    string `csv:"order_created_at"`
	ChainSymbol       string `csv:"chain_symbol"`
	ExpirationDate    string `csv:"expiration_date"`
	StrikePrice       string `csv:"strike_price"`
	OptionType        string `csv:"option_type"`
	Direction         string `csv:"direction"`
	OrderQuantity     string `csv:"order_quantity"`
	OrderType         string `csv:"order_type"`
	OpeningStrategy   string `csv:"opening_strategy"`
	ClosingStrategy   string `csv:"closing_strategy"`
	Price             string `csv:"price"`
	ProcessedQuantity string `csv:"processed_quantity"`
	State             string `csv:"state"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// LoadCSV reads leg rows and aggregates them into order records.
func LoadCSV(r io.Reader) (*Data, error) {
	var rows []LegRowDTO
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}

	legs := make([]models.OrderLeg, 0, len(rows))
	for i, row := range rows {
		leg, err := row.toLeg(i)
		if err != nil {
			return nil, err
		}
		legs = append(legs, leg)
	}

	records, err := orders.Aggregate(legs)
	if err != nil {
		return nil, err
	}
	return &Data{Records: records}, nil
}

func (row LegRowDTO) toLeg(i int) (models.OrderLeg, error) {
	perr := func(field, value string, err error) error {
		return &models.ParseError{Row: i, Field: field, Value: value, Err: err}
	}

	created, err := parseTimestamp(row.OrderCreatedAt)
	if err != nil {
		return models.OrderLeg{}, perr("order_created_at", row.OrderCreatedAt, err)
	}
	expiration, err := time.Parse(models.DateLayout, strings.TrimSpace(row.ExpirationDate))
	if err != nil {
		return models.OrderLeg{}, perr("expiration_date", row.ExpirationDate, err)
	}
	strike, err := strconv.ParseFloat(strings.TrimSpace(row.StrikePrice), 64)
	if err != nil {
		return models.OrderLeg{}, perr("strike_price", row.StrikePrice, err)
	}
	price, err := parseOptionalFloat(row.Price)
	if err != nil {
		return models.OrderLeg{}, perr("price", row.Price, err)
	}
	requested, err := parseQuantity(row.OrderQuantity)
	if err != nil {
		return models.OrderLeg{}, perr("order_quantity", row.OrderQuantity, err)
	}
	processed, err := parseQuantity(row.ProcessedQuantity)
	if err != nil {
		return models.OrderLeg{}, perr("processed_quantity", row.ProcessedQuantity, err)
	}

	var direction models.Direction
	switch strings.ToLower(strings.TrimSpace(row.Direction)) {
	case string(models.DirectionCredit):
		direction = models.DirectionCredit
	case string(models.DirectionDebit):
		direction = models.DirectionDebit
	default:
		return models.OrderLeg{}, perr("direction", row.Direction, fmt.Errorf("want credit or debit"))
	}

	return models.OrderLeg{
		CreatedAt:         created,
		Expiration:        expiration,
		Symbol:            strings.TrimSpace(row.ChainSymbol),
		OptionType:        strings.TrimSpace(row.OptionType),
		Direction:         direction,
		OrderType:         strings.TrimSpace(row.OrderType),
		OpeningStrategy:   strings.TrimSpace(row.OpeningStrategy),
		ClosingStrategy:   strings.TrimSpace(row.ClosingStrategy),
		State:             strings.TrimSpace(row.State),
		Strike:            strike,
		Price:             price,
		QuantityRequested: requested,
		QuantityProcessed: processed,
	}, nil
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var firstErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

func parseOptionalFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

// maxQuantity bounds contract counts so the int conversion is exact.
const maxQuantity = math.MaxInt32

// parseQuantity accepts integral values written as decimals ("10.00000").
func parseQuantity(s string) (int, error) {
	f, err := parseOptionalFloat(s)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("quantity must be a whole number")
	}
	if f < 0 || f > maxQuantity {
		return 0, fmt.Errorf("quantity must be between 0 and %d", maxQuantity)
	}
	return int(f), nil
}
