// Package core provides price parsing and formatting utilities.
//
// Prices are plain float64 values; the only rounding guarantee is the
// two-decimal display produced by FormatReais.
package core

import (
	"math"
	"strconv"
	"strings"
)

// ParsePrice converts user input to a non-negative price.
//
// It accepts both dot (5.50) and comma (5,50) decimal separators.
// Returns ErrInvalidPrice for empty input, non-numeric text, negative
// values, NaN or infinities.
//
// Examples:
//
//	ParsePrice("5.50") -> 5.5, nil
//	ParsePrice("5,50") -> 5.5, nil
//	ParsePrice("abc")  -> 0, ErrInvalidPrice
func ParsePrice(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidPrice
	}
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, ErrInvalidPrice
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, ErrInvalidPrice
	}
	return v, nil
}

// ParsePriceOrZero is the permissive variant used when re-pricing an
// existing item: anything ParsePrice rejects becomes 0.
func ParsePriceOrZero(s string) float64 {
	v, err := ParsePrice(s)
	if err != nil {
		return 0
	}
	return v
}

// FormatReais formats a value as "R$ 12.00" with two decimals.
func FormatReais(v float64) string {
	return "R$ " + strconv.FormatFloat(v, 'f', 2, 64)
}
