package core

import (
	"errors"
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{".5", 50, true},
		{"1.005", 101, true}, // half-up rounding
		{"1.004", 100, true},
		{" 2.50 ", 250, true},
		{"1234567.89", 123456789, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"0", 0, false},
		{"0.004", 0, false}, // rounds to zero
		{"abc", 0, false},
		{"1e3", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
		{"99999999999999999999", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("%q expected validation error, got %v", tc.in, err)
			}
		}
	}
}

func TestCentsRoundTrip(t *testing.T) {
	for _, in := range []string{"0.01", "0.10", "1.00", "12.34", "999.99", "1000000.50"} {
		cents, err := ParseDecimalToCents(in)
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		if got := CentsToDecimalString(cents); got != in {
			t.Fatalf("round trip %q -> %d -> %q", in, cents, got)
		}
	}
}

func TestFormatCents(t *testing.T) {
	cases := []struct {
		cents    int64
		currency string
		want     string
	}{
		{123456, "BRL", "R$ 1.234,56"},
		{5, "BRL", "R$ 0,05"},
		{123456789, "USD", "$1,234,567.89"},
		{-1050, "EUR", "-€10,50"},
		{100, "GBP", "1.00 GBP"},
	}
	for _, tc := range cases {
		if got := FormatCents(tc.cents, tc.currency); got != tc.want {
			t.Errorf("FormatCents(%d, %s) = %q, want %q", tc.cents, tc.currency, got, tc.want)
		}
	}
}
