// Package broker provides the Tradier API client used to pull account order
// history, account events and option chains.
package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// APIError represents an API error with status code and response body
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Status, e.Body)
}

// TradierAPI is a thin client over the Tradier REST API.
type TradierAPI struct {
	client    *http.Client
	apiKey    string
	baseURL   string
	accountID string
	sandbox   bool
	timeout   time.Duration
}

// NewTradierAPI creates a new TradierAPI client with default settings.
func NewTradierAPI(apiKey, accountID string, sandbox bool) *TradierAPI {
	return NewTradierAPIWithBaseURL(apiKey, accountID, sandbox, "", nil)
}

// NewTradierAPIWithBaseURL creates a new TradierAPI client with an optional
// custom baseURL and HTTP client.
func NewTradierAPIWithBaseURL(
	apiKey, accountID string,
	sandbox bool,
	baseURL string,
	client *http.Client,
) *TradierAPI {
	if baseURL == "" {
		if sandbox {
			baseURL = "https://sandbox.tradier.com/v1"
		} else {
			baseURL = "https://api.tradier.com/v1"
		}
	}
	baseURL = strings.TrimRight(baseURL, "/")

	defaultTimeout := 10 * time.Second
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}

	return &TradierAPI{
		apiKey:    apiKey,
		baseURL:   baseURL,
		accountID: accountID,
		client:    client,
		sandbox:   sandbox,
		timeout:   defaultTimeout,
	}
}

// WithHTTPClient allows overriding the HTTP client (tests, custom transport).
func (t *TradierAPI) WithHTTPClient(c *http.Client) *TradierAPI {
	if c != nil {
		t.client = c
	}
	return t
}

// WithTimeout sets the HTTP client timeout duration.
func (t *TradierAPI) WithTimeout(timeout time.Duration) *TradierAPI {
	if timeout <= 0 {
		return t
	}
	t.timeout = timeout
	if t.client != nil {
		t.client.Timeout = timeout
	}
	return t
}

// ============ API Response Structures ============

// Handle single-object vs array responses from Tradier
type singleOrArray[T any] []T

func (s *singleOrArray[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '[' {
		return json.Unmarshal(b, (*[]T)(s))
	}
	var one T
	if err := json.Unmarshal(b, &one); err != nil {
		return err
	}
	*s = append(*s, one)
	return nil
}

// isNullPayload reports whether Tradier sent an empty collection, which it
// encodes as either a bare null or the string "null".
func isNullPayload(b []byte) bool {
	trimmed := bytes.TrimSpace(b)
	return bytes.Equal(trimmed, []byte(`null`)) || bytes.Equal(trimmed, []byte(`"null"`))
}

// OptionChainResponse represents the API response for option chain requests.
type OptionChainResponse struct {
	Options struct {
		Option singleOrArray[Option] `json:"option"`
	} `json:"options"`
}

// Option represents an option contract from the Tradier API.
type Option struct {
	Greeks         *Greeks `json:"greeks,omitempty"`
	Symbol         string  `json:"symbol"`
	Description    string  `json:"description"`
	OptionType     string  `json:"option_type"`
	ExpirationDate string  `json:"expiration_date"`
	Underlying     string  `json:"underlying"`
	Bid            float64 `json:"bid"`
	Ask            float64 `json:"ask"`
	Last           float64 `json:"last"`
	BidSize        int     `json:"bid_size"`
	AskSize        int     `json:"ask_size"`
	Volume         int64   `json:"volume"`
	OpenInterest   int64   `json:"open_interest"`
	Strike         float64 `json:"strike"`
}

// Mark returns the bid/ask midpoint, falling back to the last trade when the
// quote is one-sided.
func (o Option) Mark() float64 {
	if o.Bid > 0 && o.Ask > 0 {
		return (o.Bid + o.Ask) / 2
	}
	return o.Last
}

// Greeks contains option Greeks data from the Tradier API.
type Greeks struct {
	UpdatedAt string  `json:"updated_at"`
	Delta     float64 `json:"delta"`
	Gamma     float64 `json:"gamma"`
	Theta     float64 `json:"theta"`
	Vega      float64 `json:"vega"`
	Rho       float64 `json:"rho"`
	Phi       float64 `json:"phi"`
	BidIV     float64 `json:"bid_iv"`
	MidIV     float64 `json:"mid_iv"`
	AskIV     float64 `json:"ask_iv"`
	SmvVol    float64 `json:"smv_vol"`
}

// ExpirationsResponse represents the expirations response from the Tradier API.
type ExpirationsResponse struct {
	Expirations struct {
		Date singleOrArray[string] `json:"date"`
	} `json:"expirations"`
}

// OrdersResponse represents the account orders response from the Tradier API.
type OrdersResponse struct {
	Orders OrdersWrapper `json:"orders"`
}

// OrdersWrapper handles the case where orders can be "null" string or an object
type OrdersWrapper struct {
	Order singleOrArray[Order] `json:"order"`
}

func (ow *OrdersWrapper) UnmarshalJSON(b []byte) error {
	if isNullPayload(b) {
		*ow = OrdersWrapper{}
		return nil
	}
	type normalWrapper OrdersWrapper
	return json.Unmarshal(b, (*normalWrapper)(ow))
}

// Order is one account order. Multileg orders carry their legs in Leg; a
// single-leg option order carries its contract in OptionSymbol.
type Order struct {
	ID                int                     `json:"id"`
	Type              string                  `json:"type"`
	Symbol            string                  `json:"symbol"`
	Side              string                  `json:"side,omitempty"`
	Quantity          float64                 `json:"quantity"`
	Status            string                  `json:"status"`
	Duration          string                  `json:"duration"`
	Price             float64                 `json:"price"`
	AvgFillPrice      float64                 `json:"avg_fill_price"`
	ExecQuantity      float64                 `json:"exec_quantity"`
	LastFillPrice     float64                 `json:"last_fill_price"`
	LastFillQuantity  float64                 `json:"last_fill_quantity"`
	RemainingQuantity float64                 `json:"remaining_quantity"`
	CreateDate        string                  `json:"create_date"`
	TransactionDate   string                  `json:"transaction_date"`
	Class             string                  `json:"class"`
	Strategy          string                  `json:"strategy,omitempty"`
	OptionSymbol      string                  `json:"option_symbol,omitempty"`
	NumLegs           int                     `json:"num_legs,omitempty"`
	Tag               string                  `json:"tag,omitempty"`
	Leg               singleOrArray[OrderLeg] `json:"leg,omitempty"`
}

// OrderLeg is one leg of a multileg order.
type OrderLeg struct {
	ID                int     `json:"id"`
	Type              string  `json:"type"`
	Symbol            string  `json:"symbol"`
	Side              string  `json:"side"`
	Quantity          float64 `json:"quantity"`
	Status            string  `json:"status"`
	Duration          string  `json:"duration"`
	Price             float64 `json:"price"`
	AvgFillPrice      float64 `json:"avg_fill_price"`
	ExecQuantity      float64 `json:"exec_quantity"`
	LastFillPrice     float64 `json:"last_fill_price"`
	LastFillQuantity  float64 `json:"last_fill_quantity"`
	RemainingQuantity float64 `json:"remaining_quantity"`
	CreateDate        string  `json:"create_date"`
	TransactionDate   string  `json:"transaction_date"`
	Class             string  `json:"class"`
	OptionSymbol      string  `json:"option_symbol"`
}

// HistoryResponse represents the account history response from the Tradier API.
type HistoryResponse struct {
	History HistoryWrapper `json:"history"`
}

// HistoryWrapper handles the case where history can be "null" string or an object
type HistoryWrapper struct {
	Event singleOrArray[HistoryEvent] `json:"event"`
}

func (hw *HistoryWrapper) UnmarshalJSON(b []byte) error {
	if isNullPayload(b) {
		*hw = HistoryWrapper{}
		return nil
	}
	type normalWrapper HistoryWrapper
	return json.Unmarshal(b, (*normalWrapper)(hw))
}

// HistoryEvent is one account history entry. Amount is signed: positive
// amounts were credited to the account.
type HistoryEvent struct {
	Amount float64      `json:"amount"`
	Date   string       `json:"date"`
	Type   string       `json:"type"`
	Option *OptionEvent `json:"option,omitempty"`
	Trade  *TradeEvent  `json:"trade,omitempty"`
}

// OptionEvent details an assignment, exercise or expiration.
type OptionEvent struct {
	OptionType  string  `json:"option_type"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
}

// TradeEvent details a fill.
type TradeEvent struct {
	Symbol      string  `json:"symbol"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Price       float64 `json:"price"`
	Commission  float64 `json:"commission"`
	TradeType   string  `json:"trade_type"`
}

// ============ API Methods ============

// GetOrdersCtx retrieves the account order history, including order tags.
func (t *TradierAPI) GetOrdersCtx(ctx context.Context) ([]Order, error) {
	params := url.Values{}
	params.Set("includeTags", "true")
	endpoint := fmt.Sprintf("%s/accounts/%s/orders?%s", t.baseURL, t.accountID, params.Encode())

	var response OrdersResponse
	if err := t.getCtx(ctx, endpoint, &response); err != nil {
		return nil, err
	}
	return []Order(response.Orders.Order), nil
}

// GetHistoryCtx retrieves account history events. An empty eventType returns
// every event type.
func (t *TradierAPI) GetHistoryCtx(ctx context.Context, eventType string) ([]HistoryEvent, error) {
	endpoint := fmt.Sprintf("%s/accounts/%s/history", t.baseURL, t.accountID)
	if eventType != "" {
		params := url.Values{}
		params.Set("type", eventType)
		endpoint += "?" + params.Encode()
	}

	var response HistoryResponse
	if err := t.getCtx(ctx, endpoint, &response); err != nil {
		return nil, err
	}
	return []HistoryEvent(response.History.Event), nil
}

// GetExpirationsCtx retrieves available expiration dates for options on a symbol.
func (t *TradierAPI) GetExpirationsCtx(ctx context.Context, symbol string) ([]string, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("includeAllRoots", "true")
	params.Set("strikes", "false")
	endpoint := t.baseURL + "/markets/options/expirations?" + params.Encode()

	var response ExpirationsResponse
	if err := t.getCtx(ctx, endpoint, &response); err != nil {
		return nil, err
	}
	return []string(response.Expirations.Date), nil
}

// GetOptionChainCtx retrieves the option chain for a symbol and expiration date.
func (t *TradierAPI) GetOptionChainCtx(ctx context.Context, symbol, expiration string, greeks bool) ([]Option, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("expiration", expiration)
	params.Set("greeks", fmt.Sprintf("%t", greeks))
	endpoint := t.baseURL + "/markets/options/chains?" + params.Encode()

	var response OptionChainResponse
	if err := t.getCtx(ctx, endpoint, &response); err != nil {
		return nil, err
	}
	return []Option(response.Options.Option), nil
}

// getCtx issues an authenticated GET and decodes the JSON body into response.
func (t *TradierAPI) getCtx(ctx context.Context, endpoint string, response interface{}) error {
	method := http.MethodGet
	req, err := http.NewRequestWithContext(ctx, method, endpoint, http.NoBody)
	if err != nil {
		return err
	}

	req.Header.Add("Authorization", "Bearer "+t.apiKey)
	req.Header.Add("Accept", "application/json")
	req.Header.Add("User-Agent", "scranton-spreads/1.0 (+tradier)")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.WithError(err).Warn("failed to close response body")
		}
	}()

	remaining := resp.Header.Get("X-Ratelimit-Available")
	if remaining == "" {
		remaining = resp.Header.Get("X-RateLimit-Remaining")
	}
	if remaining != "" && t.sandbox {
		log.WithField("remaining", remaining).Debug("tradier rate limit")
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated &&
		resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusNoContent {
		body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if err != nil {
			return &APIError{Status: resp.StatusCode, Body: fmt.Sprintf("%s %s -> failed to read error body", method, endpoint)}
		}
		ct := resp.Header.Get("Content-Type")
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			return &APIError{Status: resp.StatusCode, Body: fmt.Sprintf("%s %s (%s) -> %s (retry-after: %s)", method, endpoint, ct, string(body), ra)}
		}
		return &APIError{Status: resp.StatusCode, Body: fmt.Sprintf("%s %s (%s) -> %s", method, endpoint, ct, string(body))}
	}

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(response); err != nil && err != io.EOF {
		return fmt.Errorf("decoding %s response: %w", endpoint, err)
	}
	return nil
}
