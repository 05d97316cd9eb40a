package screener

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
)

// SpreadRowDTO is one screener CSV row.
type SpreadRowDTO struct {
	Symbol     string  `csv:"symbol"`
	Strike     string  `csv:"strike"`
	ExpDate    string  `csv:"exp_date"`
	Credit     string  `csv:"credit"`
	MaxCost    string  `csv:"max_cost"`
	MaxProfit  string  `csv:"max_profit"`
	Width      float64 `csv:"width"`
	Ask        float64 `csv:"ask"`
	Bid        float64 `csv:"bid"`
	Volume     int64   `csv:"volume"`
	PoPBuy     float64 `csv:"pop_buy"`
	PoPSell    float64 `csv:"pop_sell"`
	ImpliedVol float64 `csv:"impl_vol"`
	Delta      float64 `csv:"delta"`
	Rho        float64 `csv:"rho"`
	Theta      float64 `csv:"theta"`
	Vega       float64 `csv:"vega"`
}

// Label renders the legs as "-short / +long".
func (s Spread) Label() string {
	return fmt.Sprintf("-%s / +%s", formatStrike(s.ShortStrike), formatStrike(s.LongStrike))
}

func formatStrike(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func toRow(s Spread) SpreadRowDTO {
	return SpreadRowDTO{
		Symbol:     s.Symbol,
		Strike:     s.Label(),
		ExpDate:    s.Expiration,
		Credit:     s.Credit.StringFixed(2),
		MaxCost:    s.MaxCost.StringFixed(2),
		MaxProfit:  s.MaxProfit.StringFixed(2),
		Width:      s.Width,
		Ask:        s.Ask,
		Bid:        s.Bid,
		Volume:     s.Volume,
		PoPBuy:     s.PoPBuy,
		PoPSell:    s.PoPSell,
		ImpliedVol: s.ImpliedVol,
		Delta:      s.Delta,
		Rho:        s.Rho,
		Theta:      s.Theta,
		Vega:       s.Vega,
	}
}

// WriteCSV writes spreads with a header row.
func WriteCSV(w io.Writer, spreads []Spread) error {
	rows := make([]SpreadRowDTO, 0, len(spreads))
	for _, s := range spreads {
		rows = append(rows, toRow(s))
	}
	writer := gocsv.NewSafeCSVWriter(csv.NewWriter(w))
	if err := gocsv.MarshalCSV(&rows, writer); err != nil {
		return fmt.Errorf("writing spreads csv: %w", err)
	}
	return writer.Error()
}

// FileName builds <SYM1>_<SYM2>_<yyyy_mm_dd>_<type>_credit_spreads.csv.
func FileName(symbols []string, expiration string, optionType string) string {
	return fmt.Sprintf("%s_%s_%s_credit_spreads.csv",
		strings.Join(symbols, "_"), strings.ReplaceAll(expiration, "-", "_"), optionType)
}
