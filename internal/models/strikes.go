package models

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// StrikeMatchEpsilon is the tolerance used when comparing parsed strikes numerically.
const StrikeMatchEpsilon = 1e-3

// FormatStrikeSignature renders strikes as the canonical signature:
// sorted by absolute value descending, two decimals, joined with "/".
func FormatStrikeSignature(strikes []float64) string {
	sorted := make([]float64, len(strikes))
	copy(sorted, strikes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return math.Abs(sorted[i]) > math.Abs(sorted[j])
	})

	parts := make([]string, len(sorted))
	for i, s := range sorted {
		parts[i] = strconv.FormatFloat(s, 'f', 2, 64)
	}
	return strings.Join(parts, "/")
}

// ParseStrikeSignature splits a signature such as "150.00/145.00" or
// "-150.00 / +145.00" into its strike values. Leading and trailing
// sign characters are ignored.
func ParseStrikeSignature(sig string) ([]float64, error) {
	if strings.TrimSpace(sig) == "" {
		return nil, &ParseError{Row: -1, Field: "strike_signature", Value: sig, Err: errors.New("empty signature")}
	}

	parts := strings.Split(sig, "/")
	strikes := make([]float64, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.Trim(strings.TrimSpace(part), "+-")
		if trimmed == "" {
			return nil, &ParseError{Row: -1, Field: "strike_signature", Value: sig, Err: errors.New("empty strike")}
		}
		v, err := strconv.ParseFloat(trimmed, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			if err == nil {
				err = fmt.Errorf("strike %q is not finite", trimmed)
			}
			return nil, &ParseError{Row: -1, Field: "strike_signature", Value: sig, Err: err}
		}
		strikes = append(strikes, v)
	}
	return strikes, nil
}

// SameStrikes reports whether two strike lists hold the same values with the
// same multiplicity, ignoring order.
func SameStrikes(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]float64(nil), a...)
	bs := append([]float64(nil), b...)
	sort.Float64s(as)
	sort.Float64s(bs)
	for i := range as {
		if math.Abs(as[i]-bs[i]) > StrikeMatchEpsilon {
			return false
		}
	}
	return true
}

// SharesStrike reports whether any strike in a also appears in b.
func SharesStrike(a, b []float64) bool {
	for _, x := range a {
		for _, y := range b {
			if math.Abs(x-y) <= StrikeMatchEpsilon {
				return true
			}
		}
	}
	return false
}
