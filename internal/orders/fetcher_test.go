package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	testifymock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/eddiefleurent/scranton_spreads/internal/broker"
	"github.com/eddiefleurent/scranton_spreads/internal/mock"
	"github.com/eddiefleurent/scranton_spreads/internal/retry"
)

func fastRetry() *retry.Client {
	logger, _ := test.NewNullLogger()
	return retry.NewClient(logger, retry.Config{
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		Timeout:        time.Second,
	})
}

func TestFetcher_Snapshot(t *testing.T) {
	b := mock.NewBroker()
	b.On("GetOrdersCtx", testifymock.Anything).Return([]broker.Order{
		multileg("credit",
			tleg("sell_to_open", "AAPL240621P00150000"),
			tleg("buy_to_open", "AAPL240621P00145000")),
	}, nil).Once()
	b.On("GetHistoryCtx", testifymock.Anything, "option").Return([]broker.HistoryEvent{
		{Amount: 50, Date: "2024-06-21", Type: "option", Option: &broker.OptionEvent{Description: "AAPL expired"}},
	}, nil).Once()

	logger, hook := test.NewNullLogger()
	f := NewFetcher(b, fastRetry(), logger)

	snap, err := f.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Records, 1)
	require.Len(t, snap.Events, 1)
	assert.Equal(t, "AAPL", snap.Events[0].Symbol)
	assert.Len(t, snap.Raw.Orders, 1)
	assert.Equal(t, "fetched account history", hook.LastEntry().Message)
	b.AssertExpectations(t)
}

func TestFetcher_RetriesTransientErrors(t *testing.T) {
	b := mock.NewBroker()
	b.On("GetOrdersCtx", testifymock.Anything).Return(nil, errors.New("503 service unavailable")).Once()
	b.On("GetOrdersCtx", testifymock.Anything).Return([]broker.Order{}, nil).Once()
	b.On("GetHistoryCtx", testifymock.Anything, "option").Return(nil, nil).Once()

	f := NewFetcher(b, fastRetry(), nil)
	h, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, h.Orders)
	b.AssertNumberOfCalls(t, "GetOrdersCtx", 2)
}

func TestFetcher_PermanentErrorFails(t *testing.T) {
	b := mock.NewBroker()
	b.On("GetOrdersCtx", testifymock.Anything).Return([]broker.Order{}, nil).Maybe()
	b.On("GetHistoryCtx", testifymock.Anything, "option").
		Return(nil, &broker.APIError{Status: 401, Body: "unauthorized"}).Once()

	f := NewFetcher(b, fastRetry(), nil)
	_, err := f.Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetching account history")
	assert.True(t, broker.IsPermanentAPIError(err))
	b.AssertNumberOfCalls(t, "GetHistoryCtx", 1)
}

func TestFetcher_SampleHistoryReconciles(t *testing.T) {
	f := NewFetcher(mock.NewDataProvider(), fastRetry(), nil)

	snap, err := f.Snapshot(context.Background())
	require.NoError(t, err)
	// the canceled QQQ close is dropped
	assert.Len(t, snap.Records, 6)
}

func TestNewFetcher_NilBrokerPanics(t *testing.T) {
	assert.Panics(t, func() { NewFetcher(nil, nil, nil) })
}
