package screener

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	testifymock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/eddiefleurent/scranton_spreads/internal/broker"
	"github.com/eddiefleurent/scranton_spreads/internal/mock"
	"github.com/eddiefleurent/scranton_spreads/internal/retry"
)

func put(strike, delta, bid, ask float64, volume int64) broker.Option {
	return broker.Option{
		Symbol:         "SPY",
		Underlying:     "SPY",
		OptionType:     "put",
		ExpirationDate: "2024-06-21",
		Strike:         strike,
		Bid:            bid,
		Ask:            ask,
		Volume:         volume,
		Greeks:         &broker.Greeks{Delta: delta, MidIV: 0.2, Theta: -0.04, Vega: 0.1},
	}
}

func chain() []broker.Option {
	return []broker.Option{
		put(490, -0.18, 0.50, 0.60, 100),
		put(500, -0.30, 2.00, 2.10, 300),
		put(495, -0.22, 1.20, 1.30, 200),
		put(480, -0.08, 0.20, 0.30, 50),  // PoP 0.92 is above the ceiling
		put(505, -0.40, 3.00, 3.10, 400), // PoP 0.60 is below the floor
		put(485, -0.12, 0.30, 0.40, 0),   // never traded
		{Underlying: "SPY", OptionType: "call", Strike: 500, Volume: 10, Greeks: &broker.Greeks{Delta: 0.3}},
	}
}

func TestFilter(t *testing.T) {
	got := Filter(chain(), DefaultCriteria)

	strikes := make([]float64, 0, len(got))
	for _, c := range got {
		strikes = append(strikes, c.Option.Strike)
	}
	assert.Equal(t, []float64{500, 495, 490}, strikes)
	assert.InDelta(t, 0.70, got[0].PoPSell, 1e-9)
	assert.InDelta(t, 0.30, got[0].PoPBuy, 1e-9)
}

func TestFilter_SkipsOptionsWithoutGreeks(t *testing.T) {
	o := put(500, -0.3, 1, 1.1, 10)
	o.Greeks = nil
	assert.Empty(t, Filter([]broker.Option{o}, DefaultCriteria))
}

func TestFind_PutCreditSpreads(t *testing.T) {
	spreads := Find(chain(), DefaultCriteria)
	require.Len(t, spreads, 3)

	labels := make([]string, 0, len(spreads))
	for _, s := range spreads {
		labels = append(labels, s.Label())
	}
	assert.Equal(t, []string{"-500 / +495", "-500 / +490", "-495 / +490"}, labels)

	s := spreads[0]
	assert.Equal(t, "0.80", s.Credit.StringFixed(2))
	assert.Equal(t, "80.00", s.MaxProfit.StringFixed(2))
	assert.Equal(t, "420.00", s.MaxCost.StringFixed(2))
	assert.Equal(t, 5.0, s.Width)
	assert.Equal(t, int64(100), s.Volume)
	assert.InDelta(t, 0.74, s.PoPSell, 1e-9)
	assert.InDelta(t, -0.26, s.Delta, 1e-9)
	assert.Equal(t, "SPY", s.Symbol)
}

func TestFind_CallCreditSpreadSellsLowerStrike(t *testing.T) {
	call := func(strike, delta, mark float64) broker.Option {
		return broker.Option{
			Underlying: "QQQ", OptionType: "call", Strike: strike, Volume: 5,
			Bid: mark - 0.05, Ask: mark + 0.05, Greeks: &broker.Greeks{Delta: delta},
		}
	}
	c := DefaultCriteria
	c.OptionType = broker.OptionTypeCall

	spreads := Find([]broker.Option{call(460, 0.30, 1.50), call(465, 0.20, 0.70)}, c)
	require.Len(t, spreads, 1)
	assert.Equal(t, 460.0, spreads[0].ShortStrike)
	assert.Equal(t, "0.80", spreads[0].Credit.StringFixed(2))
}

func TestCriteriaValidate(t *testing.T) {
	require.NoError(t, DefaultCriteria.Validate())

	bad := DefaultCriteria
	bad.ProfitFloor = 0.9
	assert.Error(t, bad.Validate())

	bad = DefaultCriteria
	bad.Widths = nil
	assert.Error(t, bad.Validate())

	bad = DefaultCriteria
	bad.OptionType = "future"
	assert.Error(t, bad.Validate())
}

func TestPickExpiration(t *testing.T) {
	now := time.Date(2024, 4, 1, 15, 0, 0, 0, time.UTC)
	dates := []string{"2024-04-19", "2024-04-05", "2024-05-17", "bogus"}

	got, err := PickExpiration(dates, now, 0)
	require.NoError(t, err)
	assert.Equal(t, "2024-04-05", got)

	got, err = PickExpiration(dates, now, 30)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-17", got)

	_, err = PickExpiration(dates, now, 90)
	assert.Error(t, err)
}

func fastRetry() *retry.Client {
	return retry.NewClient(logrus.New(), retry.Config{
		MaxRetries:     1,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
		Timeout:        time.Second,
	})
}

func TestScreener_Run(t *testing.T) {
	b := mock.NewBroker()
	b.On("GetOptionChainCtx", testifymock.Anything, "SPY", "2024-06-21", true).Return(chain(), nil)
	b.On("GetOptionChainCtx", testifymock.Anything, "QQQ", "2024-06-21", true).Return([]broker.Option{}, nil)

	s, err := New(b, fastRetry(), logrus.New(), DefaultCriteria, Options{Expiration: "2024-06-21"})
	require.NoError(t, err)

	spreads, err := s.Run(context.Background(), []string{"spy", " QQQ"})
	require.NoError(t, err)
	assert.Len(t, spreads, 3)
	b.AssertExpectations(t)
	b.AssertNotCalled(t, "GetExpirationsCtx", testifymock.Anything, testifymock.Anything)
}

func TestScreener_RunPicksExpiration(t *testing.T) {
	b := mock.NewBroker()
	b.On("GetExpirationsCtx", testifymock.Anything, "SPY").Return([]string{"2024-04-05", "2024-05-17"}, nil)
	b.On("GetOptionChainCtx", testifymock.Anything, "SPY", "2024-05-17", true).Return(chain(), nil)

	s, err := New(b, fastRetry(), logrus.New(), DefaultCriteria, Options{MinDTE: 30})
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC) }

	spreads, err := s.Run(context.Background(), []string{"SPY"})
	require.NoError(t, err)
	assert.Len(t, spreads, 3)
	b.AssertExpectations(t)
}

func TestScreener_RunFailsOnPermanentError(t *testing.T) {
	b := mock.NewBroker()
	apiErr := &broker.APIError{Status: 401, Body: "unauthorized"}
	b.On("GetOptionChainCtx", testifymock.Anything, "SPY", "2024-06-21", true).Return(nil, apiErr).Once()

	s, err := New(b, fastRetry(), logrus.New(), DefaultCriteria, Options{Expiration: "2024-06-21"})
	require.NoError(t, err)

	_, err = s.Run(context.Background(), []string{"SPY"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "screening SPY")
	assert.True(t, errors.As(err, &apiErr))
	b.AssertNumberOfCalls(t, "GetOptionChainCtx", 1)
}

func TestScreener_WithGeneratedChains(t *testing.T) {
	s, err := New(mock.NewDataProvider(), fastRetry(), logrus.New(), DefaultCriteria, Options{MinDTE: 7})
	require.NoError(t, err)

	spreads, err := s.Run(context.Background(), []string{"SPY", "IWM"})
	require.NoError(t, err)
	for _, sp := range spreads {
		assert.Greater(t, sp.ShortStrike, sp.LongStrike)
		assert.Contains(t, []float64{2.5, 5, 10}, sp.Width)
		assert.True(t, sp.MaxCost.Add(sp.MaxProfit).Equal(decimal.NewFromFloat(sp.Width).Mul(decimal.NewFromInt(100))))
	}
}

func TestNew_RejectsBadInput(t *testing.T) {
	_, err := New(nil, nil, nil, DefaultCriteria, Options{})
	assert.Error(t, err)

	_, err = New(mock.NewBroker(), nil, nil, DefaultCriteria, Options{Expiration: "June"})
	assert.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, Find(chain(), DefaultCriteria)))

	var rows []SpreadRowDTO
	require.NoError(t, gocsv.UnmarshalString(buf.String(), &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, "-500 / +495", rows[0].Strike)
	assert.Equal(t, "0.80", rows[0].Credit)
	assert.True(t, strings.HasPrefix(buf.String(), "symbol,strike,exp_date,credit,max_cost,max_profit,width"))
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "SPY_QQQ_2024_06_21_put_credit_spreads.csv", FileName([]string{"SPY", "QQQ"}, "2024-06-21", "put"))
}

func TestFindSingles_PutsSortedByPoPShort(t *testing.T) {
	singles := FindSingles(chain(), DefaultCriteria)
	require.Len(t, singles, 3)

	assert.Equal(t, []float64{490, 495, 500}, []float64{singles[0].Strike, singles[1].Strike, singles[2].Strike})
	assert.InDelta(t, 0.82, singles[0].PoPSell, 1e-9)
	assert.InDelta(t, 0.18, singles[0].PoPBuy, 1e-9)

	s := singles[2] // 500 put, bid 2.00 ask 2.10
	assert.Equal(t, "SPY", s.Symbol)
	assert.Equal(t, "2024-06-21", s.Expiration)
	assert.InDelta(t, 497.90, s.BreakEven, 1e-9)
	assert.Equal(t, "210.00", s.MaxCostBuy.StringFixed(2))
	assert.Equal(t, "49790.00", s.MaxProfitBuy.Decimal.StringFixed(2))
	assert.True(t, s.MaxProfitBuy.Valid)
	assert.True(t, s.MaxLossBuy.Equal(s.MaxCostBuy))
	assert.Equal(t, "200.00", s.MaxCostSell.StringFixed(2))
	assert.Equal(t, "49800.00", s.MaxProfitSell.StringFixed(2))
	assert.Equal(t, "50000.00", s.MaxLossSell.Decimal.StringFixed(2))
}

func TestFindSingles_CallsHaveUnboundedOutcomes(t *testing.T) {
	call := broker.Option{
		Underlying: "SPY", OptionType: "call", ExpirationDate: "2024-06-21", Strike: 520,
		Bid: 1.00, Ask: 1.10, Volume: 25, Greeks: &broker.Greeks{Delta: 0.25, MidIV: 0.18},
	}
	c := DefaultCriteria
	c.OptionType = broker.OptionTypeCall

	singles := FindSingles([]broker.Option{call}, c)
	require.Len(t, singles, 1)
	s := singles[0]
	assert.InDelta(t, 521.10, s.BreakEven, 1e-9)
	assert.False(t, s.MaxProfitBuy.Valid)
	assert.False(t, s.MaxLossSell.Valid)
	assert.Equal(t, "100.00", s.MaxProfitSell.StringFixed(2))

	var buf bytes.Buffer
	require.NoError(t, WriteSinglesCSV(&buf, singles))
	var rows []SingleRowDTO
	require.NoError(t, gocsv.UnmarshalString(buf.String(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "unlimited", rows[0].MaxProfitBuy)
	assert.Equal(t, "unlimited", rows[0].MaxLossSell)
}

func TestWriteSinglesCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSinglesCSV(&buf, FindSingles(chain(), DefaultCriteria)))

	var rows []SingleRowDTO
	require.NoError(t, gocsv.UnmarshalString(buf.String(), &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, 490.0, rows[0].Strike)
	assert.Equal(t, "60.00", rows[0].MaxCostBuy)
	assert.True(t, strings.HasPrefix(buf.String(), "symbol,strike,exp_date,ask,bid,volume,break_even,pop_long,pop_short"))
	assert.Equal(t, "SPY_put_option_data.csv", SinglesFileName("SPY", "put"))
}

func TestScreener_RunSingles(t *testing.T) {
	b := mock.NewBroker()
	b.On("GetOptionChainCtx", testifymock.Anything, "SPY", "2024-06-21", true).Return(chain(), nil)
	b.On("GetOptionChainCtx", testifymock.Anything, "QQQ", "2024-06-21", true).Return([]broker.Option{}, nil)

	s, err := New(b, fastRetry(), logrus.New(), DefaultCriteria, Options{Expiration: "2024-06-21"})
	require.NoError(t, err)

	results, err := s.RunSingles(context.Background(), []string{"spy", "qqq"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "SPY", results[0].Symbol)
	assert.Equal(t, "2024-06-21", results[0].Expiration)
	assert.Len(t, results[0].Singles, 3)
	assert.Equal(t, "QQQ", results[1].Symbol)
	assert.Empty(t, results[1].Singles)
	b.AssertExpectations(t)
}
