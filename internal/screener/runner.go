package screener

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/eddiefleurent/scranton_spreads/internal/broker"
	"github.com/eddiefleurent/scranton_spreads/internal/models"
	"github.com/eddiefleurent/scranton_spreads/internal/retry"
)

// Options control which expiration is screened and how many symbols are
// fetched at once.
type Options struct {
	// Expiration is screened when set (YYYY-MM-DD). Otherwise the first
	// expiration at least MinDTE days out is used.
	Expiration  string
	MinDTE      int
	Concurrency int
}

// Screener pulls option chains from a broker and screens them.
type Screener struct {
	broker   broker.Broker
	retry    *retry.Client
	logger   logrus.FieldLogger
	criteria Criteria
	opts     Options
	now      func() time.Time
}

// New creates a Screener.
func New(b broker.Broker, r *retry.Client, logger logrus.FieldLogger, c Criteria, opts Options) (*Screener, error) {
	if b == nil {
		return nil, fmt.Errorf("broker is required")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if opts.Expiration != "" {
		if _, err := time.Parse(models.DateLayout, opts.Expiration); err != nil {
			return nil, fmt.Errorf("invalid expiration %q: %w", opts.Expiration, err)
		}
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if r == nil {
		r = retry.NewClient(logger)
	}
	return &Screener{broker: b, retry: r, logger: logger, criteria: c, opts: opts, now: time.Now}, nil
}

// Run screens every symbol concurrently. Results keep the order of symbols.
func (s *Screener) Run(ctx context.Context, symbols []string) ([]Spread, error) {
	results, err := runEach(ctx, s, symbols, Find)
	if err != nil {
		return nil, err
	}
	var out []Spread
	for _, r := range results {
		out = append(out, r.items...)
	}
	return out, nil
}

// RunSingles screens single options for every symbol concurrently.
func (s *Screener) RunSingles(ctx context.Context, symbols []string) ([]SymbolSingles, error) {
	results, err := runEach(ctx, s, symbols, FindSingles)
	if err != nil {
		return nil, err
	}
	out := make([]SymbolSingles, 0, len(results))
	for _, r := range results {
		out = append(out, SymbolSingles{Symbol: r.symbol, Expiration: r.expiration, Singles: r.items})
	}
	return out, nil
}

type symbolResult[T any] struct {
	symbol     string
	expiration string
	items      []T
}

func runEach[T any](ctx context.Context, s *Screener, symbols []string,
	screen func([]broker.Option, Criteria) []T) ([]symbolResult[T], error) {
	results := make([]symbolResult[T], len(symbols))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)

	for i, symbol := range symbols {
		i, symbol := i, symbol
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		g.Go(func() error {
			expiration, chain, err := s.chain(gctx, symbol)
			if err != nil {
				return fmt.Errorf("screening %s: %w", symbol, err)
			}
			items := screen(chain, s.criteria)
			s.logger.WithFields(logrus.Fields{
				"symbol":     symbol,
				"expiration": expiration,
				"options":    len(chain),
				"results":    len(items),
			}).Info("screened option chain")
			results[i] = symbolResult[T]{symbol: symbol, expiration: expiration, items: items}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Screener) chain(ctx context.Context, symbol string) (string, []broker.Option, error) {
	expiration, err := s.expiration(ctx, symbol)
	if err != nil {
		return "", nil, err
	}

	chain, err := retry.Do(ctx, s.retry, "get option chain", func(ctx context.Context) ([]broker.Option, error) {
		return s.broker.GetOptionChainCtx(ctx, symbol, expiration, true)
	})
	if err != nil {
		return "", nil, err
	}
	return expiration, chain, nil
}

func (s *Screener) expiration(ctx context.Context, symbol string) (string, error) {
	if s.opts.Expiration != "" {
		return s.opts.Expiration, nil
	}
	dates, err := retry.Do(ctx, s.retry, "get expirations", func(ctx context.Context) ([]string, error) {
		return s.broker.GetExpirationsCtx(ctx, symbol)
	})
	if err != nil {
		return "", err
	}
	return PickExpiration(dates, s.now(), s.opts.MinDTE)
}

// PickExpiration returns the earliest date at least minDTE days after now.
func PickExpiration(dates []string, now time.Time, minDTE int) (string, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	cutoff := today.AddDate(0, 0, minDTE)

	best := ""
	var bestDate time.Time
	for _, d := range dates {
		t, err := time.Parse(models.DateLayout, d)
		if err != nil {
			continue
		}
		if t.Before(cutoff) {
			continue
		}
		if best == "" || t.Before(bestDate) {
			best, bestDate = d, t
		}
	}
	if best == "" {
		return "", fmt.Errorf("no expiration at least %d days out", minDTE)
	}
	return best, nil
}
