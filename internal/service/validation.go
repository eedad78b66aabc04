package service

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

var (
	emailPattern   = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	integerLiteral = regexp.MustCompile(`^-?[0-9]+$`)
)

// ValidEmail reports whether s looks like local@domain.tld.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// parseAmount accepts a JSON number >= 0. Strings, null and missing values
// are rejected even when they contain digits.
func parseAmount(raw json.RawMessage) (decimal.Decimal, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || !(raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9')) {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(string(raw))
	if err != nil || d.IsNegative() {
		return decimal.Zero, false
	}
	return d, true
}

// parseQuantity accepts a JSON integer literal > 0. 2.0 and "2" are rejected.
func parseQuantity(raw json.RawMessage) (int, bool) {
	raw = bytes.TrimSpace(raw)
	if !integerLiteral.Match(raw) {
		return 0, false
	}
	n, err := strconv.Atoi(string(raw))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// parseDecimalRange parses an inclusive range given as query strings. It
// returns nil bounds when either side is missing, since a half-open range
// is not applied.
func parseDecimalRange(min, max string) (*decimal.Decimal, *decimal.Decimal, bool) {
	if min == "" || max == "" {
		return nil, nil, true
	}
	lo, err := decimal.NewFromString(min)
	if err != nil {
		return nil, nil, false
	}
	hi, err := decimal.NewFromString(max)
	if err != nil {
		return nil, nil, false
	}
	return &lo, &hi, true
}

// parseDateRange accepts YYYY-MM-DD or RFC3339 bounds. A date-only end
// bound covers that whole day.
func parseDateRange(start, end string) (*time.Time, *time.Time, bool) {
	if start == "" || end == "" {
		return nil, nil, true
	}
	from, _, err := parseTimestamp(start)
	if err != nil {
		return nil, nil, false
	}
	to, dateOnly, err := parseTimestamp(end)
	if err != nil {
		return nil, nil, false
	}
	if dateOnly {
		to = to.Add(24*time.Hour - time.Nanosecond)
	}
	return &from, &to, true
}

func parseTimestamp(s string) (time.Time, bool, error) {
	if t, err := time.ParseInLocation("2006-01-02", s, time.UTC); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false, err
	}
	return t.UTC(), false, nil
}
