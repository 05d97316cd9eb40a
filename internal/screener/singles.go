package screener

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"github.com/eddiefleurent/scranton_spreads/internal/broker"
	"github.com/eddiefleurent/scranton_spreads/internal/util"
)

// Single is one option that passed the filter, priced for buying it at the
// ask and for selling it at the bid. Unbounded outcomes (a long call's
// profit, a short call's loss) are left invalid.
type Single struct {
	Symbol     string
	Expiration string
	OptionType broker.OptionType
	Strike     float64
	Ask        float64
	Bid        float64
	Volume     int64
	BreakEven  float64
	PoPBuy     float64
	PoPSell    float64
	ImpliedVol float64
	Delta      float64
	Rho        float64
	Theta      float64
	Vega       float64

	MaxCostBuy    decimal.Decimal
	MaxProfitBuy  decimal.NullDecimal
	MaxLossBuy    decimal.Decimal
	MaxCostSell   decimal.Decimal
	MaxProfitSell decimal.Decimal
	MaxLossSell   decimal.NullDecimal
}

// SymbolSingles holds the screened options of one underlying.
type SymbolSingles struct {
	Symbol     string
	Expiration string
	Singles    []Single
}

// FindSingles filters a chain and prices the survivors one by one, highest
// PoP short first.
func FindSingles(chain []broker.Option, c Criteria) []Single {
	candidates := Filter(chain, c)
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].PoPSell > candidates[j].PoPSell })

	out := make([]Single, 0, len(candidates))
	for _, cand := range candidates {
		out = append(out, newSingle(cand, c.OptionType))
	}
	return out
}

func newSingle(c Candidate, optionType broker.OptionType) Single {
	o := c.Option
	hundred := decimal.NewFromInt(100)
	strike := decimal.NewFromFloat(o.Strike)
	ask := decimal.NewFromFloat(o.Ask)
	bid := decimal.NewFromFloat(o.Bid)

	s := Single{
		Symbol:      o.Underlying,
		Expiration:  o.ExpirationDate,
		OptionType:  optionType,
		Strike:      util.Cents(o.Strike),
		Ask:         util.Cents(o.Ask),
		Bid:         util.Cents(o.Bid),
		Volume:      o.Volume,
		PoPBuy:      fourPlaces(c.PoPBuy),
		PoPSell:     fourPlaces(c.PoPSell),
		MaxCostBuy:  ask.Mul(hundred).Round(2),
		MaxCostSell: bid.Mul(hundred).Round(2),
	}
	s.MaxLossBuy = s.MaxCostBuy
	if g := o.Greeks; g != nil {
		s.ImpliedVol = fourPlaces(g.MidIV)
		s.Delta = g.Delta
		s.Rho = g.Rho
		s.Theta = g.Theta
		s.Vega = g.Vega
	}

	if optionType == broker.OptionTypeCall {
		s.BreakEven = util.Cents(o.Strike + o.Ask)
		s.MaxProfitSell = s.MaxCostSell
		return s
	}
	s.BreakEven = util.Cents(o.Strike - o.Ask)
	s.MaxProfitBuy = decimal.NewNullDecimal(strike.Sub(ask).Mul(hundred).Round(2))
	s.MaxProfitSell = strike.Sub(bid).Mul(hundred).Round(2)
	s.MaxLossSell = decimal.NewNullDecimal(strike.Mul(hundred).Round(2))
	return s
}

func fourPlaces(x float64) float64 {
	return util.RoundToTick(x, 0.0001)
}

// SingleRowDTO is one single-option CSV row.
type SingleRowDTO struct {
	Symbol        string  `csv:"symbol"`
	Strike        float64 `csv:"strike"`
	ExpDate       string  `csv:"exp_date"`
	Ask           float64 `csv:"ask"`
	Bid           float64 `csv:"bid"`
	Volume        int64   `csv:"volume"`
	BreakEven     float64 `csv:"break_even"`
	PoPLong       float64 `csv:"pop_long"`
	PoPShort      float64 `csv:"pop_short"`
	ImpliedVol    float64 `csv:"impl_vol"`
	Delta         float64 `csv:"delta"`
	Rho           float64 `csv:"rho"`
	Theta         float64 `csv:"theta"`
	Vega          float64 `csv:"vega"`
	MaxCostBuy    string  `csv:"max_cost_buy"`
	MaxProfitBuy  string  `csv:"max_profit_buy"`
	MaxLossBuy    string  `csv:"max_loss_buy"`
	MaxCostSell   string  `csv:"max_cost_sell"`
	MaxProfitSell string  `csv:"max_profit_sell"`
	MaxLossSell   string  `csv:"max_loss_sell"`
}

func money(d decimal.NullDecimal) string {
	if !d.Valid {
		return "unlimited"
	}
	return d.Decimal.StringFixed(2)
}

// WriteSinglesCSV writes single options with a header row.
func WriteSinglesCSV(w io.Writer, singles []Single) error {
	rows := make([]SingleRowDTO, 0, len(singles))
	for _, s := range singles {
		rows = append(rows, SingleRowDTO{
			Symbol:        s.Symbol,
			Strike:        s.Strike,
			ExpDate:       s.Expiration,
			Ask:           s.Ask,
			Bid:           s.Bid,
			Volume:        s.Volume,
			BreakEven:     s.BreakEven,
			PoPLong:       s.PoPBuy,
			PoPShort:      s.PoPSell,
			ImpliedVol:    s.ImpliedVol,
			Delta:         s.Delta,
			Rho:           s.Rho,
			Theta:         s.Theta,
			Vega:          s.Vega,
			MaxCostBuy:    s.MaxCostBuy.StringFixed(2),
			MaxProfitBuy:  money(s.MaxProfitBuy),
			MaxLossBuy:    s.MaxLossBuy.StringFixed(2),
			MaxCostSell:   s.MaxCostSell.StringFixed(2),
			MaxProfitSell: s.MaxProfitSell.StringFixed(2),
			MaxLossSell:   money(s.MaxLossSell),
		})
	}
	writer := gocsv.NewSafeCSVWriter(csv.NewWriter(w))
	if err := gocsv.MarshalCSV(&rows, writer); err != nil {
		return fmt.Errorf("writing options csv: %w", err)
	}
	return writer.Error()
}

// SinglesFileName builds <SYM>_<type>_option_data.csv.
func SinglesFileName(symbol, optionType string) string {
	return fmt.Sprintf("%s_%s_option_data.csv", symbol, optionType)
}
