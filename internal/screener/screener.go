// Package screener finds vertical credit spreads whose short leg has a high
// probability of expiring worthless.
package screener

import (
	"fmt"
	"sort"
	"strings"

	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"

	"github.com/eddiefleurent/scranton_spreads/internal/broker"
	"github.com/eddiefleurent/scranton_spreads/internal/util"
)

// Criteria selects which options can form a spread.
type Criteria struct {
	OptionType    broker.OptionType
	ProfitFloor   float64
	ProfitCeiling float64
	Widths        []float64
}

// DefaultCriteria screens put spreads whose legs expire worthless 65-85% of
// the time.
var DefaultCriteria = Criteria{
	OptionType:    broker.OptionTypePut,
	ProfitFloor:   0.65,
	ProfitCeiling: 0.85,
	Widths:        []float64{2.5, 5, 10},
}

// Validate checks the probability bounds and widths.
func (c Criteria) Validate() error {
	if c.OptionType != broker.OptionTypePut && c.OptionType != broker.OptionTypeCall {
		return fmt.Errorf("option type must be put or call, got %q", c.OptionType)
	}
	if c.ProfitFloor < 0 || c.ProfitCeiling > 1 || c.ProfitFloor > c.ProfitCeiling {
		return fmt.Errorf("profit bounds must satisfy 0 <= floor <= ceiling <= 1, got [%v, %v]", c.ProfitFloor, c.ProfitCeiling)
	}
	if len(c.Widths) == 0 {
		return fmt.Errorf("at least one spread width is required")
	}
	for _, w := range c.Widths {
		if w <= 0 {
			return fmt.Errorf("spread width must be positive, got %v", w)
		}
	}
	return nil
}

// Candidate is an option that passed the filter.
type Candidate struct {
	Option  broker.Option
	PoPBuy  float64
	PoPSell float64
}

// Filter keeps traded options of the configured type whose probability of
// expiring worthless lies within [floor, ceiling]. Options without greeks
// are skipped. Candidates are sorted by strike, highest first.
func Filter(chain []broker.Option, c Criteria) []Candidate {
	var out []Candidate
	for _, o := range chain {
		if !strings.EqualFold(o.OptionType, string(c.OptionType)) || o.Volume <= 0 || o.Greeks == nil {
			continue
		}
		delta := o.Greeks.Delta
		if delta < 0 {
			delta = -delta
		}
		popSell := 1 - delta
		if popSell < c.ProfitFloor || popSell > c.ProfitCeiling {
			continue
		}
		out = append(out, Candidate{Option: o, PoPBuy: delta, PoPSell: popSell})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Option.Strike > out[j].Option.Strike })
	return out
}

// Spread is a vertical credit spread built from two candidates.
type Spread struct {
	Symbol      string
	Expiration  string
	OptionType  broker.OptionType
	ShortStrike float64
	LongStrike  float64
	Width       float64
	Credit      decimal.Decimal
	MaxProfit   decimal.Decimal
	MaxCost     decimal.Decimal
	Bid         float64
	Ask         float64
	Volume      int64
	PoPBuy      float64
	PoPSell     float64
	ImpliedVol  float64
	Delta       float64
	Rho         float64
	Theta       float64
	Vega        float64
}

// Pair combines every higher strike with every lower strike whose distance
// is one of the configured widths. The short leg is the higher strike for
// puts and the lower strike for calls. Candidates must be sorted by strike
// descending, as Filter returns them.
func Pair(candidates []Candidate, c Criteria) []Spread {
	var out []Spread
	for i := range candidates {
		for j := i + 1; j < len(candidates); j++ {
			hi, lo := candidates[i], candidates[j]
			if hi.Option.Strike <= lo.Option.Strike || hi.Option.Underlying != lo.Option.Underlying {
				continue
			}
			width := hi.Option.Strike - lo.Option.Strike
			if !widthAllowed(width, c.Widths) {
				continue
			}
			short, long := hi, lo
			if c.OptionType == broker.OptionTypeCall {
				short, long = lo, hi
			}
			out = append(out, newSpread(short, long, width, c.OptionType))
		}
	}
	return out
}

func widthAllowed(width float64, widths []float64) bool {
	for _, w := range widths {
		if util.NearlyEqual(width, w, 1e-6) {
			return true
		}
	}
	return false
}

func newSpread(short, long Candidate, width float64, optionType broker.OptionType) Spread {
	credit := decimal.NewFromFloat(short.Option.Mark()).Sub(decimal.NewFromFloat(long.Option.Mark())).Round(2)
	hundred := decimal.NewFromInt(100)

	s := Spread{
		Symbol:      short.Option.Underlying,
		Expiration:  short.Option.ExpirationDate,
		OptionType:  optionType,
		ShortStrike: short.Option.Strike,
		LongStrike:  long.Option.Strike,
		Width:       width,
		Credit:      credit,
		MaxProfit:   credit.Mul(hundred),
		MaxCost:     decimal.NewFromFloat(width).Sub(credit).Mul(hundred),
		Bid:         util.Cents(short.Option.Bid - long.Option.Bid),
		Ask:         util.Cents(short.Option.Ask - long.Option.Ask),
		Volume:      short.Option.Volume - long.Option.Volume,
		PoPBuy:      average(short.PoPBuy, long.PoPBuy),
		PoPSell:     average(short.PoPSell, long.PoPSell),
	}
	sg, lg := short.Option.Greeks, long.Option.Greeks
	s.ImpliedVol = average(sg.MidIV, lg.MidIV)
	s.Delta = average(sg.Delta, lg.Delta)
	s.Rho = average(sg.Rho, lg.Rho)
	s.Theta = average(sg.Theta, lg.Theta)
	s.Vega = average(sg.Vega, lg.Vega)
	return s
}

func average(a, b float64) float64 {
	mean, err := stats.Mean(stats.Float64Data{a, b})
	if err != nil {
		return 0
	}
	return util.Cents(mean)
}

// Find filters a chain and pairs the survivors.
func Find(chain []broker.Option, c Criteria) []Spread {
	return Pair(Filter(chain, c), c)
}
