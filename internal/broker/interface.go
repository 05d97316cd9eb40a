package broker

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// Broker defines the read-only brokerage calls the reconciler and screener need
type Broker interface {
	// Account history
	GetOrdersCtx(ctx context.Context) ([]Order, error)
	GetHistoryCtx(ctx context.Context, eventType string) ([]HistoryEvent, error)

	// Market data
	GetExpirationsCtx(ctx context.Context, symbol string) ([]string, error)
	GetOptionChainCtx(ctx context.Context, symbol, expiration string, withGreeks bool) ([]Option, error)
}

// Ensure TradierAPI implements Broker at compile time.
var _ Broker = (*TradierAPI)(nil)

// IsPermanentAPIError checks if an error is a permanent API error that retrying cannot fix
func IsPermanentAPIError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		// Consider 4xx errors as permanent (except 429 Too Many Requests which is retryable)
		return apiErr.Status >= 400 && apiErr.Status < 500 && apiErr.Status != 429
	}
	return false
}

// CircuitBreakerBroker wraps a Broker with circuit breaker functionality
type CircuitBreakerBroker struct {
	broker  Broker
	breaker *gobreaker.CircuitBreaker
}

// Ensure CircuitBreakerBroker implements Broker at compile time.
var _ Broker = (*CircuitBreakerBroker)(nil)

// exec is a generic helper for circuit breaker wrapper methods
func execCircuitBreaker[T any](
	breaker *gobreaker.CircuitBreaker,
	broker Broker,
	fn func(Broker) (T, error),
) (T, error) {
	var zero T
	res, err := breaker.Execute(func() (interface{}, error) { return fn(broker) })
	if err != nil {
		return zero, err
	}
	if res == nil {
		return zero, nil
	}
	v, ok := res.(T)
	if !ok {
		return zero, errors.New("circuit breaker: type assertion failed")
	}
	return v, nil
}

// CircuitBreakerSettings configures circuit breaker behavior
type CircuitBreakerSettings struct {
	MaxRequests  uint32        // Max requests when half-open
	Interval     time.Duration // Reset counts interval
	Timeout      time.Duration // Open circuit duration
	MinRequests  uint32        // Min requests before tripping
	FailureRatio float64       // Failure ratio threshold
}

// DefaultCircuitBreakerSettings trips after 60% failures over at least five requests.
var DefaultCircuitBreakerSettings = CircuitBreakerSettings{
	MaxRequests:  3,
	Interval:     60 * time.Second,
	Timeout:      30 * time.Second,
	MinRequests:  5,
	FailureRatio: 0.6,
}

// NewCircuitBreakerBroker creates a new CircuitBreakerBroker with default settings
func NewCircuitBreakerBroker(broker Broker, logger logrus.FieldLogger) *CircuitBreakerBroker {
	return NewCircuitBreakerBrokerWithSettings(broker, DefaultCircuitBreakerSettings, logger)
}

// NewCircuitBreakerBrokerWithSettings creates a CircuitBreakerBroker with custom settings
func NewCircuitBreakerBrokerWithSettings(
	broker Broker,
	settings CircuitBreakerSettings,
	logger logrus.FieldLogger,
) *CircuitBreakerBroker {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	gbSettings := gobreaker.Settings{
		Name:        "BrokerCircuitBreaker",
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 || counts.Requests < settings.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= settings.FailureRatio
		},
		// Client mistakes should not count toward tripping the breaker.
		IsSuccessful: func(err error) bool {
			return err == nil || IsPermanentAPIError(err)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
		},
	}

	return &CircuitBreakerBroker{
		broker:  broker,
		breaker: gobreaker.NewCircuitBreaker(gbSettings),
	}
}

// State returns the current breaker state.
func (c *CircuitBreakerBroker) State() gobreaker.State {
	return c.breaker.State()
}

// GetOrdersCtx wraps the underlying broker call with circuit breaker
func (c *CircuitBreakerBroker) GetOrdersCtx(ctx context.Context) ([]Order, error) {
	return execCircuitBreaker(c.breaker, c.broker, func(b Broker) ([]Order, error) { return b.GetOrdersCtx(ctx) })
}

// GetHistoryCtx wraps the underlying broker call with circuit breaker
func (c *CircuitBreakerBroker) GetHistoryCtx(ctx context.Context, eventType string) ([]HistoryEvent, error) {
	return execCircuitBreaker(c.breaker, c.broker, func(b Broker) ([]HistoryEvent, error) {
		return b.GetHistoryCtx(ctx, eventType)
	})
}

// GetExpirationsCtx wraps the underlying broker call with circuit breaker
func (c *CircuitBreakerBroker) GetExpirationsCtx(ctx context.Context, symbol string) ([]string, error) {
	return execCircuitBreaker(c.breaker, c.broker, func(b Broker) ([]string, error) {
		return b.GetExpirationsCtx(ctx, symbol)
	})
}

// GetOptionChainCtx wraps the underlying broker call with circuit breaker
func (c *CircuitBreakerBroker) GetOptionChainCtx(ctx context.Context, symbol, expiration string, withGreeks bool) ([]Option, error) {
	return execCircuitBreaker(c.breaker, c.broker, func(b Broker) ([]Option, error) {
		return b.GetOptionChainCtx(ctx, symbol, expiration, withGreeks)
	})
}
