// Package main checks a Tradier account against every broker call the
// reconciler and screener depend on.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/eddiefleurent/scranton_spreads/internal/broker"
	"github.com/eddiefleurent/scranton_spreads/internal/orders"
	"github.com/eddiefleurent/scranton_spreads/internal/screener"
)

func main() {
	var sandbox bool
	var symbol string
	flag.BoolVar(&sandbox, "sandbox", true, "Use Tradier sandbox endpoints (default: true)")
	flag.StringVar(&symbol, "symbol", "SPY", "Underlying used for the market data checks")
	flag.Parse()

	fmt.Println("=== Tradier API Check ===")
	fmt.Println()

	apiKey := os.Getenv("TRADIER_API_KEY")
	accountID := os.Getenv("TRADIER_ACCOUNT_ID")
	if apiKey == "" {
		fmt.Println("❌ TRADIER_API_KEY not set")
		fmt.Println("   export TRADIER_API_KEY='your_token_here'")
		fmt.Println("   export TRADIER_ACCOUNT_ID='your_account_id'")
		os.Exit(1)
	}

	client := broker.NewTradierAPI(apiKey, accountID, sandbox)
	mode := "Live"
	if sandbox {
		mode = "Sandbox"
	}
	fmt.Printf("✓ Initialized Tradier client (%s mode)\n", mode)
	fmt.Printf("  API Key: %s\n\n", maskAPIKey(apiKey))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	failed := 0
	step := func(name string, fn func() error) {
		fmt.Println(name)
		fmt.Println(strings.Repeat("=", 41))
		if err := fn(); err != nil {
			failed++
			fmt.Printf("❌ Error: %v\n\n", err)
			return
		}
		fmt.Println()
	}

	var expiration string
	step("Test 1: Expirations for "+symbol, func() error {
		dates, err := client.GetExpirationsCtx(ctx, symbol)
		if err != nil {
			return err
		}
		exp, err := screener.PickExpiration(dates, time.Now(), 30)
		if err != nil {
			return err
		}
		expiration = exp
		fmt.Printf("✓ %d expirations, screening %s\n", len(dates), expiration)
		return nil
	})

	step("Test 2: Option chain and screen", func() error {
		if expiration == "" {
			return fmt.Errorf("skipped, no expiration")
		}
		chain, err := client.GetOptionChainCtx(ctx, symbol, expiration, true)
		if err != nil {
			return err
		}
		spreads := screener.Find(chain, screener.DefaultCriteria)
		fmt.Printf("✓ %d options, %d put credit spreads\n", len(chain), len(spreads))
		for i, s := range spreads {
			if i == 3 {
				break
			}
			fmt.Printf("  %s width %.1f credit %s\n", s.Label(), s.Width, s.Credit.StringFixed(2))
		}
		return nil
	})

	if accountID == "" {
		fmt.Println("⚠️  TRADIER_ACCOUNT_ID not set, skipping account checks")
	} else {
		step("Test 3: Order history", func() error {
			raw, err := client.GetOrdersCtx(ctx)
			if err != nil {
				return err
			}
			records, err := orders.RecordsFromTradier(raw)
			if err != nil {
				return err
			}
			fmt.Printf("✓ %d orders, %d order records\n", len(raw), len(records))
			return nil
		})

		step("Test 4: Option events", func() error {
			raw, err := client.GetHistoryCtx(ctx, "option")
			if err != nil {
				return err
			}
			events, err := orders.EventsFromTradier(raw)
			if err != nil {
				return err
			}
			fmt.Printf("✓ %d option events\n", len(events))
			return nil
		})
	}

	if failed > 0 {
		fmt.Printf("%d check(s) failed\n", failed)
		os.Exit(1)
	}
	fmt.Println("All checks passed")
}

func maskAPIKey(apiKey string) string {
	const minLength = 12 // Minimum length to show partial key
	const showFirst = 4  // Show first 4 characters
	const showLast = 4   // Show last 4 characters

	if len(apiKey) < minLength {
		return "<redacted>"
	}
	return fmt.Sprintf("%s...%s", apiKey[:showFirst], apiKey[len(apiKey)-showLast:])
}
