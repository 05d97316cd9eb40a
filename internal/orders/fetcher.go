package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/eddiefleurent/scranton_spreads/internal/broker"
	"github.com/eddiefleurent/scranton_spreads/internal/models"
	"github.com/eddiefleurent/scranton_spreads/internal/retry"
)

// History is the raw account history pulled from the broker.
type History struct {
	Orders []broker.Order
	Events []broker.HistoryEvent
}

// Snapshot is an account history converted for reconciliation.
type Snapshot struct {
	Raw     History
	Records []models.OrderRecord
	Events  []models.Event
}

// Fetcher pulls order history and account events from a broker.
type Fetcher struct {
	broker      broker.Broker
	retry       *retry.Client
	logger      logrus.FieldLogger
	callTimeout time.Duration
}

// DefaultCallTimeout bounds a single broker call.
const DefaultCallTimeout = 30 * time.Second

// NewFetcher creates a Fetcher. A nil retry client gets the default retry
// configuration.
func NewFetcher(b broker.Broker, r *retry.Client, logger logrus.FieldLogger) *Fetcher {
	if b == nil {
		panic("orders.NewFetcher: broker must not be nil")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if r == nil {
		r = retry.NewClient(logger)
	}
	return &Fetcher{
		broker:      b,
		retry:       r,
		logger:      logger,
		callTimeout: DefaultCallTimeout,
	}
}

// Fetch pulls orders and option events concurrently.
func (f *Fetcher) Fetch(ctx context.Context) (*History, error) {
	var h History
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		orders, err := retry.Do(gctx, f.retry, "get orders", func(ctx context.Context) ([]broker.Order, error) {
			callCtx, cancel := context.WithTimeout(ctx, f.callTimeout)
			defer cancel()
			return f.broker.GetOrdersCtx(callCtx)
		})
		if err != nil {
			return fmt.Errorf("fetching orders: %w", err)
		}
		h.Orders = orders
		return nil
	})

	g.Go(func() error {
		events, err := retry.Do(gctx, f.retry, "get history", func(ctx context.Context) ([]broker.HistoryEvent, error) {
			callCtx, cancel := context.WithTimeout(ctx, f.callTimeout)
			defer cancel()
			return f.broker.GetHistoryCtx(callCtx, "option")
		})
		if err != nil {
			return fmt.Errorf("fetching account history: %w", err)
		}
		h.Events = events
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	f.logger.WithFields(logrus.Fields{
		"orders": len(h.Orders),
		"events": len(h.Events),
	}).Info("fetched account history")
	return &h, nil
}

// Snapshot fetches the account history and converts it to order records and
// events.
func (f *Fetcher) Snapshot(ctx context.Context) (*Snapshot, error) {
	h, err := f.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return Convert(*h)
}

// Convert turns a raw history into records and events.
func Convert(h History) (*Snapshot, error) {
	records, err := RecordsFromTradier(h.Orders)
	if err != nil {
		return nil, fmt.Errorf("converting orders: %w", err)
	}
	events, err := EventsFromTradier(h.Events)
	if err != nil {
		return nil, fmt.Errorf("converting events: %w", err)
	}
	return &Snapshot{Raw: h, Records: records, Events: events}, nil
}
