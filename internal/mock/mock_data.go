// Package mock provides an offline broker that generates plausible market data
// and a sample spread history, plus a testify broker mock for unit tests.
package mock

import (
	"context"
	"crypto/rand"
	"fmt"
	"hash/fnv"
	"math"
	"math/big"
	"sync"
	"time"

	"github.com/eddiefleurent/scranton_spreads/internal/broker"
)

// DataProvider is a broker.Broker backed by generated data.
type DataProvider struct {
	mu     sync.Mutex
	prices map[string]float64
	midIV  float64 // Actual IV level for pricing
	now    func() time.Time
}

var _ broker.Broker = (*DataProvider)(nil)

// secureFloat64 generates a cryptographically secure random float64 between 0 and 1
func secureFloat64() float64 {
	n, err := rand.Int(rand.Reader, big.NewInt(1<<53))
	if err != nil {
		// Fallback to a reasonable default if crypto/rand fails
		return 0.5
	}
	return float64(n.Int64()) / (1 << 53)
}

// secureInt63n generates a cryptographically secure random int64 between 0 and n-1
func secureInt63n(n int64) int64 {
	r, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		return n / 2
	}
	return r.Int64()
}

func NewDataProvider() *DataProvider {
	return &DataProvider{
		prices: make(map[string]float64),
		midIV:  12.0 + secureFloat64()*18, // MidIV between 12-30% (actual volatility)
		now:    time.Now,
	}
}

// price returns a drifting spot price. The starting level is derived from the
// ticker so every symbol trades somewhere between 50 and 550.
func (m *DataProvider) price(symbol string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prices[symbol]
	if !ok {
		h := fnv.New32a()
		_, _ = h.Write([]byte(symbol))
		p = 50 + float64(h.Sum32()%500)
	}
	p += (secureFloat64() - 0.5) * 2
	m.prices[symbol] = p
	return p
}

// GetExpirationsCtx returns the next six Friday expirations.
func (m *DataProvider) GetExpirationsCtx(ctx context.Context, _ string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d := m.now().UTC().Truncate(24 * time.Hour)
	for d.Weekday() != time.Friday {
		d = d.AddDate(0, 0, 1)
	}
	dates := make([]string, 0, 6)
	for i := 0; i < 6; i++ {
		dates = append(dates, d.AddDate(0, 0, 7*i).Format("2006-01-02"))
	}
	return dates, nil
}

// GetOptionChainCtx generates a chain of puts and calls around the spot price.
func (m *DataProvider) GetOptionChainCtx(ctx context.Context, symbol, expiration string, withGreeks bool) ([]broker.Option, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	expDate, err := time.Parse("2006-01-02", expiration)
	if err != nil {
		return nil, fmt.Errorf("invalid expiration format: %w", err)
	}
	dte := int(expDate.Sub(m.now()).Hours() / 24)
	if dte < 0 {
		dte = 0 // Clamp to minimum 0 to prevent negative time values
	}

	spot := m.price(symbol)
	var options []broker.Option

	// Generate strikes around current price
	strikeInterval := 5.0
	startStrike := math.Max(strikeInterval, math.Floor(spot/strikeInterval)*strikeInterval-50)
	endStrike := startStrike + 100

	for strike := startStrike; strike <= endStrike; strike += strikeInterval {
		// Calculate approximate delta based on distance from current price
		distance := math.Abs(strike - spot)
		deltaDecay := math.Exp(-distance * 0.02)

		putDelta := -0.5 * deltaDecay
		if strike > spot {
			putDelta = -0.5 * (1 - deltaDecay)
		}
		callDelta := 0.5 * deltaDecay
		if strike < spot {
			callDelta = 0.5 * (1 - deltaDecay)
		}

		// Calculate option prices (simplified Black-Scholes approximation)
		timeValue := math.Max(0, float64(dte)/365.0)
		vol := m.midIV / 100.0
		putPrice := math.Max(0.5, vol*math.Sqrt(timeValue)*spot*0.01*math.Abs(putDelta)*10)
		callPrice := math.Max(0.5, vol*math.Sqrt(timeValue)*spot*0.01*math.Abs(callDelta)*10)

		for _, leg := range []struct {
			kind  string
			code  string
			price float64
			delta float64
		}{
			{"put", "P", putPrice, putDelta},
			{"call", "C", callPrice, callDelta},
		} {
			opt := broker.Option{
				Symbol:         fmt.Sprintf("%s%s%s%08d", symbol, expDate.Format("060102"), leg.code, int(strike*1000)),
				Description:    fmt.Sprintf("%s %s $%.2f %s", symbol, expDate.Format("Jan 02 2006"), strike, leg.kind),
				Strike:         strike,
				OptionType:     leg.kind,
				ExpirationDate: expiration,
				Bid:            leg.price - 0.05,
				Ask:            leg.price + 0.05,
				Last:           leg.price,
				Volume:         1 + secureInt63n(10000),
				OpenInterest:   secureInt63n(50000),
				Underlying:     symbol,
			}
			if withGreeks {
				opt.Greeks = &broker.Greeks{
					Delta: leg.delta,
					MidIV: vol,
					Theta: -0.05 * vol,
					Vega:  0.10 * vol,
				}
			}
			options = append(options, opt)
		}
	}

	return options, nil
}

// GetOrdersCtx returns a small spread history: a put spread opened and
// partially closed, a call spread still open and an iron condor closed in full.
func (m *DataProvider) GetOrdersCtx(ctx context.Context) ([]broker.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := m.now().UTC().Truncate(time.Minute).AddDate(0, 0, -20)
	exp := start.AddDate(0, 0, 45)
	for exp.Weekday() != time.Friday {
		exp = exp.AddDate(0, 0, 1)
	}
	occ := func(symbol, kind string, strike float64) string {
		return fmt.Sprintf("%s%s%s%08d", symbol, exp.Format("060102"), kind, int(strike*1000))
	}
	leg := func(side, symbol string, qty float64) broker.OrderLeg {
		return broker.OrderLeg{Side: side, OptionSymbol: symbol, Quantity: qty, ExecQuantity: qty, Status: "filled"}
	}
	at := func(d time.Duration) string { return start.Add(d).Format(time.RFC3339Nano) }

	return []broker.Order{
		{
			ID: 1001, Type: "credit", Symbol: "SPY", Class: "multileg", Status: "filled",
			Quantity: 4, ExecQuantity: 4, AvgFillPrice: 1.25, CreateDate: at(0),
			Leg: []broker.OrderLeg{leg("sell_to_open", occ("SPY", "P", 500), 4), leg("buy_to_open", occ("SPY", "P", 495), 4)},
		},
		{
			ID: 1002, Type: "credit", Symbol: "QQQ", Class: "multileg", Status: "filled",
			Quantity: 2, ExecQuantity: 2, AvgFillPrice: 0.95, CreateDate: at(time.Hour),
			Leg: []broker.OrderLeg{leg("sell_to_open", occ("QQQ", "C", 460), 2), leg("buy_to_open", occ("QQQ", "C", 465), 2)},
		},
		{
			ID: 1003, Type: "credit", Symbol: "IWM", Class: "multileg", Status: "filled",
			Quantity: 1, ExecQuantity: 1, AvgFillPrice: 1.60, CreateDate: at(2 * time.Hour),
			Leg: []broker.OrderLeg{
				leg("buy_to_open", occ("IWM", "P", 180), 1), leg("sell_to_open", occ("IWM", "P", 185), 1),
				leg("sell_to_open", occ("IWM", "C", 215), 1), leg("buy_to_open", occ("IWM", "C", 220), 1),
			},
		},
		{
			ID: 1004, Type: "debit", Symbol: "SPY", Class: "multileg", Status: "filled",
			Quantity: 2, ExecQuantity: 2, AvgFillPrice: 0.40, CreateDate: at(5 * 24 * time.Hour),
			Leg: []broker.OrderLeg{leg("buy_to_close", occ("SPY", "P", 500), 2), leg("sell_to_close", occ("SPY", "P", 495), 2)},
		},
		{
			ID: 1005, Type: "limit", Symbol: "SPY", Class: "option", Status: "filled", Side: "buy_to_close",
			OptionSymbol: occ("SPY", "P", 500), Quantity: 1, ExecQuantity: 1, AvgFillPrice: 0.30,
			CreateDate: at(6 * 24 * time.Hour),
		},
		{
			ID: 1006, Type: "debit", Symbol: "IWM", Class: "multileg", Status: "filled",
			Quantity: 1, ExecQuantity: 1, AvgFillPrice: 0.35, CreateDate: at(7 * 24 * time.Hour),
			Leg: []broker.OrderLeg{
				leg("sell_to_close", occ("IWM", "P", 180), 1), leg("buy_to_close", occ("IWM", "P", 185), 1),
				leg("buy_to_close", occ("IWM", "C", 215), 1), leg("sell_to_close", occ("IWM", "C", 220), 1),
			},
		},
		{
			ID: 1007, Type: "credit", Symbol: "QQQ", Class: "multileg", Status: "canceled",
			Quantity: 2, CreateDate: at(8 * 24 * time.Hour),
			Leg: []broker.OrderLeg{leg("buy_to_close", occ("QQQ", "C", 460), 0), leg("sell_to_close", occ("QQQ", "C", 465), 0)},
		},
	}, nil
}

// GetHistoryCtx returns no account events.
func (m *DataProvider) GetHistoryCtx(ctx context.Context, _ string) ([]broker.HistoryEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, nil
}
