// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from strings
// and converting between minor units (cents) and their decimal representation.
package core

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var maxCents = decimal.NewFromInt(math.MaxInt64)

// ParseDecimalToCents converts a decimal string to cents with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. The result is always positive cents.
// Returns ErrInvalidAmount for invalid formats, negative values, or zero amounts.
//
// Examples:
//
//	ParseDecimalToCents("12.34") -> 1234, nil
//	ParseDecimalToCents("12,34") -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil (rounds up)
//	ParseDecimalToCents("12.344") -> 1234, nil (rounds down)
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return 0, ErrInvalidAmount
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			// Signs, exponents and grouping are all rejected here.
			return 0, ErrInvalidAmount
		}
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	s = strings.TrimSuffix(s, ".")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return DecimalToCents(d)
}

// DecimalToCents rounds a major-unit decimal to the nearest cent (half-up).
// Zero and negative values are rejected.
func DecimalToCents(d decimal.Decimal) (int64, error) {
	cents := d.Shift(2).Round(0)
	if !cents.IsPositive() || cents.GreaterThan(maxCents) {
		return 0, ErrInvalidAmount
	}
	return cents.IntPart(), nil
}

// CentsToDecimalString renders cents as a plain two-decimal string ("12.34").
func CentsToDecimalString(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// FormatCents renders cents for display in the given currency. It is purely
// presentational and never used in arithmetic.
func FormatCents(cents int64, currency string) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	whole := strconv.FormatInt(cents/100, 10)
	frac := strconv.FormatInt(cents%100+100, 10)[1:]

	var s string
	switch strings.ToUpper(currency) {
	case "BRL":
		s = "R$ " + groupThousands(whole, ".") + "," + frac
	case "EUR":
		s = "€" + groupThousands(whole, ".") + "," + frac
	case "USD":
		s = "$" + groupThousands(whole, ",") + "." + frac
	default:
		s = groupThousands(whole, ",") + "." + frac + " " + strings.ToUpper(currency)
	}
	if neg {
		return "-" + s
	}
	return s
}

func groupThousands(digits, sep string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// Major returns the amount in major units for display purposes.
// Note: Use cents for calculations to avoid floating-point precision issues.
func (m Money) Major() float64 {
	return float64(m.Cents) / 100.0
}
