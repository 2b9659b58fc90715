// This file implements utilities for parsing and validating request data.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"fincycle/internal/core"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a single JSON object into dst. Unknown fields, trailing
// data and oversized bodies are validation errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return core.Invalid("body", "request body is empty")
		case errors.As(err, &maxErr):
			return core.Invalid("body", fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit))
		default:
			return core.Invalid("body", fmt.Sprintf("malformed JSON: %v", err))
		}
	}
	if dec.More() {
		return core.Invalid("body", "request body must contain a single JSON object")
	}
	return nil
}

// ParseMonth accepts YYYY-MM or YYYY-MM-DD and returns the first day of that
// month.
func ParseMonth(s string) (core.Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01", s); err == nil {
		return core.MonthStart(t), nil
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, core.Invalid("month", fmt.Sprintf("%q is not YYYY-MM or YYYY-MM-DD", s))
	}
	return core.MonthStart(d.Time), nil
}

// parseOptionalDate parses a YYYY-MM-DD field. Empty input yields the zero
// date.
func parseOptionalDate(field, s string) (core.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, core.Invalid(field, fmt.Sprintf("%q is not a YYYY-MM-DD date", s))
	}
	return d, nil
}

func parseRequiredDate(field, s string) (core.Date, error) {
	d, err := parseOptionalDate(field, s)
	if err != nil {
		return core.Date{}, err
	}
	if d.IsZero() {
		return core.Date{}, core.Invalid(field, "date is required")
	}
	return d, nil
}

// parseAmount resolves a money amount given either as a decimal string
// ("12,34") or directly in minor units.
func parseAmount(field, decimal string, minor *int64) (int64, error) {
	switch {
	case strings.TrimSpace(decimal) != "" && minor != nil:
		return 0, core.Invalid(field, "give either amount or amountCents, not both")
	case minor != nil:
		if *minor <= 0 {
			return 0, core.Invalid(field, "must be positive")
		}
		return *minor, nil
	default:
		return core.ParseDecimalToCents(decimal)
	}
}

// bearerToken extracts the token of an "Authorization: Bearer" header.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
