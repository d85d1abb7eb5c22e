package product

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatPrice renders a source price value as a display string.
//
// Positive numbers become "R$ 12.34". Non-empty strings are trimmed and
// passed through, so formatting is idempotent. Zero, negative, missing and
// unsupported values become PriceOnRequest; they are never shown as currency.
func FormatPrice(v any) string {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return PriceOnRequest
		}
		return s
	}
	f, ok := number(v)
	if !ok || f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return PriceOnRequest
	}
	return fmt.Sprintf("R$ %.2f", f)
}

// FormatDiscount renders a discount value as "15%". Non-positive or missing
// values yield the empty string.
func FormatDiscount(v any) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	f, ok := number(v)
	if !ok || f <= 0 {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64) + "%"
}

// ParsePrice extracts a numeric value from a display price such as
// "R$ 189.90" or "R$ 1.234,56". Sentinels and unparseable strings report false.
func ParsePrice(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return 0, false
	}
	return f, true
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
