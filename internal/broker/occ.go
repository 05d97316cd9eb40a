package broker

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// OptionType represents the type of option contract
type OptionType string

const (
	// OptionTypePut represents a put option contract
	OptionTypePut OptionType = "put"
	// OptionTypeCall represents a call option contract
	OptionTypeCall OptionType = "call"
)

// OptionSymbol is a decoded OCC option symbol.
type OptionSymbol struct {
	Underlying string
	Expiration time.Time
	Type       OptionType
	Strike     float64
}

// ParseOptionSymbol decodes an OCC/OSI option symbol,
// e.g. "SPY241220P00450000" -> SPY, 2024-12-20, put, 450.
func ParseOptionSymbol(symbol string) (OptionSymbol, error) {
	s := strings.TrimSpace(symbol)
	// OSI format: UNDERLYING + YYMMDD + P/C + 8-digit strike
	if len(s) < 16 {
		return OptionSymbol{}, fmt.Errorf("option symbol too short: %q", symbol)
	}

	// The fixed-width suffix is always the last 15 characters.
	i := len(s) - 15
	dateStr := s[i : i+6]
	if !isAllDigits(dateStr) {
		return OptionSymbol{}, fmt.Errorf("no 6-digit expiration date (YYMMDD) in symbol: %q", symbol)
	}
	if isAllDigits(s[i-1 : i]) {
		return OptionSymbol{}, fmt.Errorf("expiration is part of a longer digit run in symbol: %q", symbol)
	}

	var optionType OptionType
	switch s[i+6] {
	case 'P', 'p':
		optionType = OptionTypePut
	case 'C', 'c':
		optionType = OptionTypeCall
	default:
		return OptionSymbol{}, fmt.Errorf("invalid option type %q at position %d, expected 'C' or 'P' in symbol: %q",
			s[i+6], i+6, symbol)
	}

	strikeStr := s[i+7:]
	if !isAllDigits(strikeStr) {
		return OptionSymbol{}, fmt.Errorf("invalid strike format, expected 8 digits but got %q in symbol: %q", strikeStr, symbol)
	}
	strikeInt, err := strconv.ParseInt(strikeStr, 10, 64)
	if err != nil {
		return OptionSymbol{}, fmt.Errorf("failed to parse strike %q in symbol %q: %w", strikeStr, symbol, err)
	}

	expiration, err := time.Parse("060102", dateStr)
	if err != nil {
		return OptionSymbol{}, fmt.Errorf("invalid expiration %q in symbol %q: %w", dateStr, symbol, err)
	}

	return OptionSymbol{
		Underlying: strings.TrimSpace(s[:i]),
		Expiration: expiration,
		Type:       optionType,
		Strike:     float64(strikeInt) / 1000.0,
	}, nil
}

// UnderlyingFromSymbol returns the ticker of an option symbol, or the symbol
// itself when it is not an option.
func UnderlyingFromSymbol(symbol string) string {
	if opt, err := ParseOptionSymbol(symbol); err == nil {
		return opt.Underlying
	}
	return strings.TrimSpace(symbol)
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
