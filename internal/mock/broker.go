package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/eddiefleurent/scranton_spreads/internal/broker"
)

// Broker is a testify mock implementing broker.Broker.
type Broker struct {
	mock.Mock
}

var _ broker.Broker = (*Broker)(nil)

func NewBroker() *Broker {
	return &Broker{}
}

func (m *Broker) GetOrdersCtx(ctx context.Context) ([]broker.Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]broker.Order), args.Error(1)
}

func (m *Broker) GetHistoryCtx(ctx context.Context, eventType string) ([]broker.HistoryEvent, error) {
	args := m.Called(ctx, eventType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]broker.HistoryEvent), args.Error(1)
}

func (m *Broker) GetExpirationsCtx(ctx context.Context, symbol string) ([]string, error) {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *Broker) GetOptionChainCtx(ctx context.Context, symbol, expiration string, withGreeks bool) ([]broker.Option, error) {
	args := m.Called(ctx, symbol, expiration, withGreeks)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]broker.Option), args.Error(1)
}
