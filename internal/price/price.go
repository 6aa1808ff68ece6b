// Package price normalizes heterogeneous menu price notations ("145,-",
// "145,50 Kč", 145) into plain numbers.
package price

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Normalize converts a raw price value into a number. Numeric inputs pass
// through unchanged; nil becomes 0. String inputs are reduced to digits,
// comma and period, the first comma is treated as a Czech decimal separator,
// and the remainder is parsed as a float. Invalid price text is expected on
// real menu pages, so parse failures degrade to 0 instead of erroring.
func Normalize(raw any) float64 {
	switch v := raw.(type) {
	case nil:
		return 0
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		return normalizeString(v)
	default:
		return 0
	}
}

func normalizeString(s string) float64 {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return 0
	}

	// First comma is the decimal separator ("145,50" convention).
	cleaned = strings.Replace(cleaned, ",", ".", 1)

	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return f
}
