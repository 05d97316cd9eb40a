package broker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAPIError_Error(t *testing.T) {
	err := &APIError{Status: 429, Body: "too many requests"}
	want := "API error 429: too many requests"
	if got := err.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestNewTradierAPIWithBaseURL_Defaults(t *testing.T) {
	tests := []struct {
		name        string
		sandbox     bool
		baseURL     string
		wantBaseURL string
	}{
		{"sandbox default", true, "", "https://sandbox.tradier.com/v1"},
		{"production default", false, "", "https://api.tradier.com/v1"},
		{"custom trimmed", false, "https://example.test/api/", "https://example.test/api"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := NewTradierAPIWithBaseURL("k", "acc", tt.sandbox, tt.baseURL, nil)
			if api.baseURL != tt.wantBaseURL {
				t.Fatalf("baseURL = %q, want %q", api.baseURL, tt.wantBaseURL)
			}
			if api.client == nil || api.client.Timeout != 10*time.Second {
				t.Fatalf("default client not configured: %+v", api.client)
			}
		})
	}
}

func TestWithTimeout_IgnoresNonPositive(t *testing.T) {
	api := NewTradierAPI("k", "acc", true).WithTimeout(0)
	if api.timeout != 10*time.Second {
		t.Fatalf("timeout = %v, want default", api.timeout)
	}
	api.WithTimeout(3 * time.Second)
	if api.client.Timeout != 3*time.Second {
		t.Fatalf("client timeout = %v, want 3s", api.client.Timeout)
	}
}

func newTestAPIWithServer(handler http.HandlerFunc) (*TradierAPI, *httptest.Server) {
	s := httptest.NewServer(handler)
	api := NewTradierAPIWithBaseURL("test-key", "ACC123", false, s.URL, nil)
	// Use server's client directly to ensure proper transport handling
	api = api.WithHTTPClient(s.Client())
	return api, s
}

func TestGetCtx_Headers(t *testing.T) {
	api, srv := newTestAPIWithServer(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if r.ContentLength > 0 || r.Header.Get("Content-Type") != "" {
			t.Errorf("GET carried a body: length %d, content type %q", r.ContentLength, r.Header.Get("Content-Type"))
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer test-key")
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("Accept = %q, want application/json", got)
		}
		_, _ = w.Write([]byte(`{"orders":"null"}`))
	})
	defer srv.Close()

	if _, err := api.GetOrdersCtx(context.Background()); err != nil {
		t.Fatalf("GetOrdersCtx error: %v", err)
	}
}

func TestGetCtx_Non2xxReturnsAPIError(t *testing.T) {
	api, srv := newTestAPIWithServer(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "5")
		http.Error(w, "slow down", http.StatusTooManyRequests)
	})
	defer srv.Close()

	_, err := api.GetOrdersCtx(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.Status != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", apiErr.Status)
	}
	if IsPermanentAPIError(err) {
		t.Fatalf("429 must not be permanent")
	}
}

func TestGetCtx_EmptyBody(t *testing.T) {
	api, srv := newTestAPIWithServer(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	defer srv.Close()

	orders, err := api.GetOrdersCtx(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders) != 0 {
		t.Fatalf("orders = %d, want 0", len(orders))
	}
}

func TestGetOrdersCtx_ShapesAndTags(t *testing.T) {
	const multileg = `{"orders":{"order":[
	{"id":1,"type":"credit","symbol":"AAPL","status":"filled","class":"multileg","quantity":2,
	 "avg_fill_price":1.35,"exec_quantity":2,"create_date":"2024-04-01T14:30:00.000Z","strategy":"spread",
	 "leg":[
	  {"id":11,"side":"sell_to_open","option_symbol":"AAPL240621P00150000","quantity":2,"exec_quantity":2,"status":"filled","create_date":"2024-04-01T14:30:00.000Z"},
	  {"id":12,"side":"buy_to_open","option_symbol":"AAPL240621P00145000","quantity":2,"exec_quantity":2,"status":"filled","create_date":"2024-04-01T14:30:00.000Z"}
	 ]},
	{"id":2,"type":"limit","symbol":"AAPL","side":"buy_to_close","option_symbol":"AAPL240621P00150000","status":"canceled","class":"option","quantity":1}
	]}}`
	const single = `{"orders":{"order":{"id":3,"type":"market","symbol":"SPY","status":"filled","class":"option",
	"leg":{"id":31,"side":"sell_to_close","option_symbol":"SPY241220C00500000","quantity":1}}}}`

	tests := []struct {
		name     string
		body     string
		wantLen  int
		wantLegs int
	}{
		{"array", multileg, 2, 2},
		{"single object", single, 1, 1},
		{"null string", `{"orders":"null"}`, 0, 0},
		{"null", `{"orders":null}`, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api, srv := newTestAPIWithServer(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/accounts/ACC123/orders" {
					t.Errorf("path = %s", r.URL.Path)
				}
				if got := r.URL.Query().Get("includeTags"); got != "true" {
					t.Errorf("includeTags = %q, want true", got)
				}
				_, _ = w.Write([]byte(tt.body))
			})
			defer srv.Close()

			orders, err := api.GetOrdersCtx(context.Background())
			if err != nil {
				t.Fatalf("GetOrdersCtx error: %v", err)
			}
			if len(orders) != tt.wantLen {
				t.Fatalf("orders = %d, want %d", len(orders), tt.wantLen)
			}
			if tt.wantLen > 0 && len(orders[0].Leg) != tt.wantLegs {
				t.Fatalf("legs = %d, want %d", len(orders[0].Leg), tt.wantLegs)
			}
		})
	}
}

func TestGetHistoryCtx(t *testing.T) {
	api, srv := newTestAPIWithServer(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/accounts/ACC123/history" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("type"); got != "option" {
			t.Errorf("type = %q, want option", got)
		}
		_, _ = w.Write([]byte(`{"history":{"event":{"amount":-45000.0,"date":"2024-06-21T00:00:00Z","type":"option",
		"option":{"option_type":"assignment","description":"AAPL Jun 21 2024 $150.00 Put","quantity":-1}}}}`))
	})
	defer srv.Close()

	events, err := api.GetHistoryCtx(context.Background(), "option")
	if err != nil {
		t.Fatalf("GetHistoryCtx error: %v", err)
	}
	if len(events) != 1 || events[0].Option == nil {
		t.Fatalf("events = %+v, want one option event", events)
	}
	if events[0].Amount != -45000 || events[0].Option.OptionType != "assignment" {
		t.Fatalf("event = %+v", events[0])
	}
}

func TestGetExpirationsCtx(t *testing.T) {
	api, srv := newTestAPIWithServer(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("symbol"); got != "SPY" {
			t.Errorf("symbol = %q, want SPY", got)
		}
		_, _ = w.Write([]byte(`{"expirations":{"date":["2024-06-21","2024-07-19"]}}`))
	})
	defer srv.Close()

	dates, err := api.GetExpirationsCtx(context.Background(), "SPY")
	if err != nil {
		t.Fatalf("GetExpirationsCtx error: %v", err)
	}
	if len(dates) != 2 || dates[0] != "2024-06-21" {
		t.Fatalf("dates = %v", dates)
	}
}

func TestGetOptionChainCtx(t *testing.T) {
	api, srv := newTestAPIWithServer(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("expiration") != "2024-06-21" || q.Get("greeks") != "true" {
			t.Errorf("query = %v", q)
		}
		_, _ = w.Write([]byte(`{"options":{"option":[
		{"symbol":"SPY240621P00500000","option_type":"put","strike":500,"bid":1.0,"ask":1.2,"volume":10,"greeks":{"delta":-0.2}},
		{"symbol":"SPY240621P00495000","option_type":"put","strike":495,"bid":0,"ask":0.8,"last":0.7,"volume":3}
		]}}`))
	})
	defer srv.Close()

	chain, err := api.GetOptionChainCtx(context.Background(), "SPY", "2024-06-21", true)
	if err != nil {
		t.Fatalf("GetOptionChainCtx error: %v", err)
	}
	if len(chain) != 2 {
		t.Fatalf("chain = %d, want 2", len(chain))
	}
	if chain[0].Greeks == nil || chain[0].Greeks.Delta != -0.2 {
		t.Fatalf("greeks = %+v", chain[0].Greeks)
	}
	if got := chain[0].Mark(); got < 1.0999 || got > 1.1001 {
		t.Fatalf("mark = %v, want 1.1", got)
	}
	if got := chain[1].Mark(); got != 0.7 {
		t.Fatalf("one-sided mark = %v, want last 0.7", got)
	}
}

func TestGetOrdersCtx_ContextCancel(t *testing.T) {
	api, srv := newTestAPIWithServer(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		_, _ = w.Write([]byte(`{"orders":"null"}`))
	})
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	if _, err := api.GetOrdersCtx(ctx); err == nil {
		t.Fatalf("expected context error")
	}
}
