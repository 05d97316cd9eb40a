package orders

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/eddiefleurent/scranton_spreads/internal/broker"
	"github.com/eddiefleurent/scranton_spreads/internal/models"
)

// positionLeg is one decoded option leg with the side of the position it
// belongs to. A buy_to_close leg belongs to a short position.
type positionLeg struct {
	contract broker.OptionSymbol
	short    bool
	opening  bool
	side     string
	qty      float64
}

// LegsFromTradier converts one Tradier order into leg rows. Orders without
// option legs (equity trades) yield no rows. Bracket orders (oto, oco, otoco)
// are split into their child orders first.
func LegsFromTradier(order broker.Order) ([]models.OrderLeg, error) {
	if isBracket(order.Class) {
		var out []models.OrderLeg
		for _, child := range bracketChildren(order) {
			legs, err := LegsFromTradier(child)
			if err != nil {
				return nil, fmt.Errorf("order %d: %w", child.ID, err)
			}
			out = append(out, legs...)
		}
		return out, nil
	}

	raw := make([]broker.OrderLeg, 0, len(order.Leg))
	raw = append(raw, order.Leg...)
	if len(raw) == 0 && order.OptionSymbol != "" {
		raw = append(raw, broker.OrderLeg{
			Side:         order.Side,
			OptionSymbol: order.OptionSymbol,
			Quantity:     order.Quantity,
			ExecQuantity: order.ExecQuantity,
			Status:       order.Status,
		})
	}

	legs := make([]positionLeg, 0, len(raw))
	for _, l := range raw {
		if l.OptionSymbol == "" {
			continue
		}
		contract, err := broker.ParseOptionSymbol(l.OptionSymbol)
		if err != nil {
			return nil, &models.ParseError{Row: -1, Field: "option_symbol", Value: l.OptionSymbol, Err: err}
		}
		side := strings.ToLower(l.Side)
		legs = append(legs, positionLeg{
			contract: contract,
			short:    side == "sell_to_open" || side == "buy_to_close",
			opening:  strings.HasSuffix(side, "_to_open"),
			side:     side,
			qty:      l.Quantity,
		})
	}
	if len(legs) == 0 {
		return nil, nil
	}

	created, err := time.Parse(time.RFC3339Nano, order.CreateDate)
	if err != nil {
		return nil, &models.ParseError{Row: -1, Field: "create_date", Value: order.CreateDate, Err: err}
	}

	strategy := strategyName(legs)
	var opening, closing string
	switch countOpening(legs) {
	case len(legs):
		opening = strategy
	case 0:
		closing = strategy
	default:
		// Mixed open and close legs are a roll, which neither opens nor closes a spread.
		opening = "roll"
	}

	requested := int(math.Round(order.Quantity))
	if requested == 0 {
		requested = int(math.Round(legs[0].qty))
	}
	processed := int(math.Round(order.ExecQuantity))

	price := order.AvgFillPrice
	if price == 0 {
		price = order.Price
	}

	symbol := strings.ToUpper(strings.TrimSpace(order.Symbol))
	if symbol == "" {
		symbol = legs[0].contract.Underlying
	}

	var orderID string
	if order.ID != 0 {
		orderID = strconv.Itoa(order.ID)
	}

	out := make([]models.OrderLeg, 0, len(legs))
	for _, l := range legs {
		out = append(out, models.OrderLeg{
			OrderID:           orderID,
			CreatedAt:         created,
			Expiration:        l.contract.Expiration,
			Symbol:            symbol,
			OptionType:        string(l.contract.Type),
			Direction:         orderDirection(order, legs),
			OrderType:         order.Type,
			OpeningStrategy:   opening,
			ClosingStrategy:   closing,
			State:             order.Status,
			Strike:            l.contract.Strike,
			Price:             math.Abs(price),
			QuantityRequested: requested,
			QuantityProcessed: processed,
		})
	}
	return out, nil
}

// LegsFromTradierOrders converts a whole order history, wrapping failures
// with the order id.
func LegsFromTradierOrders(orders []broker.Order) ([]models.OrderLeg, error) {
	var out []models.OrderLeg
	for _, o := range orders {
		legs, err := LegsFromTradier(o)
		if err != nil {
			return nil, fmt.Errorf("order %d: %w", o.ID, err)
		}
		out = append(out, legs...)
	}
	return out, nil
}

// RecordsFromTradier converts and aggregates a Tradier order history.
func RecordsFromTradier(orders []broker.Order) ([]models.OrderRecord, error) {
	legs, err := LegsFromTradierOrders(orders)
	if err != nil {
		return nil, err
	}
	return Aggregate(legs)
}

func isBracket(class string) bool {
	switch strings.ToLower(class) {
	case "oto", "oco", "otoco":
		return true
	}
	return false
}

// bracketChildren turns the legs of a bracket order into standalone orders.
// Each child is its own order at Tradier with its own id and fill. Children
// that never executed (resting take-profit or stop legs) are skipped.
func bracketChildren(parent broker.Order) []broker.Order {
	children := make([]broker.Order, 0, len(parent.Leg))
	for _, l := range parent.Leg {
		if l.ExecQuantity <= 0 {
			continue
		}
		child := broker.Order{
			ID:           l.ID,
			Type:         l.Type,
			Symbol:       l.Symbol,
			Side:         l.Side,
			Quantity:     l.Quantity,
			Status:       l.Status,
			Duration:     l.Duration,
			Price:        l.Price,
			AvgFillPrice: l.AvgFillPrice,
			ExecQuantity: l.ExecQuantity,
			CreateDate:   l.CreateDate,
			Class:        l.Class,
			OptionSymbol: l.OptionSymbol,
		}
		if child.Symbol == "" {
			child.Symbol = parent.Symbol
		}
		if child.CreateDate == "" {
			child.CreateDate = parent.CreateDate
		}
		children = append(children, child)
	}
	return children
}

func countOpening(legs []positionLeg) int {
	n := 0
	for _, l := range legs {
		if l.opening {
			n++
		}
	}
	return n
}

// orderDirection uses the order type for multileg orders and the side of the
// single leg otherwise.
func orderDirection(order broker.Order, legs []positionLeg) models.Direction {
	switch strings.ToLower(order.Type) {
	case "credit", "even":
		return models.DirectionCredit
	case "debit":
		return models.DirectionDebit
	}
	if strings.HasPrefix(legs[0].side, "sell") {
		return models.DirectionCredit
	}
	return models.DirectionDebit
}

// strategyName names the position the legs belong to from their shape.
func strategyName(legs []positionLeg) string {
	var puts, calls []positionLeg
	for _, l := range legs {
		if l.contract.Type == broker.OptionTypePut {
			puts = append(puts, l)
		} else {
			calls = append(calls, l)
		}
	}

	prefix := func(short bool) string {
		if short {
			return "short_"
		}
		return "long_"
	}

	switch {
	case len(legs) == 1:
		return prefix(legs[0].short) + string(legs[0].contract.Type)
	case len(legs) == 2 && len(puts) == 2:
		return prefix(creditVertical(puts, true)) + "put_spread"
	case len(legs) == 2 && len(calls) == 2:
		return prefix(creditVertical(calls, false)) + "call_spread"
	case len(legs) == 2:
		name := "strangle"
		if puts[0].contract.Strike == calls[0].contract.Strike {
			name = "straddle"
		}
		return prefix(puts[0].short) + name
	case len(legs) == 4 && len(puts) == 2 && len(calls) == 2:
		shortPut, okPut := shortLeg(puts)
		shortCall, okCall := shortLeg(calls)
		if okPut && okCall && shortPut.contract.Strike == shortCall.contract.Strike {
			return "iron_butterfly"
		}
		return "iron_condor"
	}
	return "custom"
}

// creditVertical reports whether a two-leg vertical is short premium: the
// short leg is the higher strike for puts and the lower strike for calls.
func creditVertical(legs []positionLeg, puts bool) bool {
	short, ok := shortLeg(legs)
	if !ok {
		return legs[0].short
	}
	for _, l := range legs {
		if l.short {
			continue
		}
		if puts {
			return short.contract.Strike > l.contract.Strike
		}
		return short.contract.Strike < l.contract.Strike
	}
	return true
}

func shortLeg(legs []positionLeg) (positionLeg, bool) {
	for _, l := range legs {
		if l.short {
			return l, true
		}
	}
	return positionLeg{}, false
}

// EventsFromTradier keeps the option events of an account history and
// attributes each to an underlying.
func EventsFromTradier(events []broker.HistoryEvent) ([]models.Event, error) {
	var out []models.Event
	for _, e := range events {
		if !strings.EqualFold(e.Type, "option") {
			continue
		}
		date, err := parseEventDate(e.Date)
		if err != nil {
			return nil, &models.ParseError{Row: -1, Field: "date", Value: e.Date, Err: err}
		}

		var eventType, description string
		if e.Option != nil {
			eventType = e.Option.OptionType
			description = e.Option.Description
		}

		direction := models.DirectionCredit
		if e.Amount < 0 {
			direction = models.DirectionDebit
		}
		out = append(out, models.Event{
			Date:        date,
			Symbol:      symbolFromDescription(description),
			Type:        eventType,
			Direction:   direction,
			Amount:      decimal.NewFromFloat(math.Abs(e.Amount)),
			Description: description,
		})
	}
	return out, nil
}

func parseEventDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Parse(models.DateLayout, s)
}

// symbolFromDescription finds the underlying in a free-text event
// description such as "Assigned: AAPL Jun 21 2024 $150.00 Put".
func symbolFromDescription(desc string) string {
	for _, tok := range strings.Fields(desc) {
		tok = strings.TrimFunc(tok, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
		if tok == "" {
			continue
		}
		if opt, err := broker.ParseOptionSymbol(tok); err == nil {
			return opt.Underlying
		}
		if isTicker(tok) {
			return tok
		}
	}
	return ""
}

var notTickers = map[string]bool{"PUT": true, "CALL": true, "OPTION": true}

func isTicker(s string) bool {
	if len(s) > 6 || notTickers[s] {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
