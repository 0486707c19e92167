// Package ledger turns loosely shaped gateway payloads into canonical payment
// records and applies the merge, fee-expansion and pagination rules shared by
// every read and write path.
package ledger

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	amountPattern = regexp.MustCompile(`-?[\d.,]+`)
	// leading float prefix, so "1.2.3" reads as 1.2
	floatPrefix   = regexp.MustCompile(`^-?(\d+\.?\d*|\.\d+)`)
)

// ParseAmount extracts a number from an upstream field. It accepts plain
// numbers, formatted strings like "R 1,234.56" and nested objects carrying a
// value, amount or balance field. The second return is false when nothing
// numeric could be found.
func ParseAmount(value any) (float64, bool) {
	switch v := value.(type) {
	case nil:
		return 0, false
	case float64:
		return finite(v)
	case float32:
		return finite(float64(v))
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		return parseAmountString(v.String())
	case map[string]any:
		for _, key := range []string{"value", "amount", "balance"} {
			if nested, ok := v[key]; ok {
				return ParseAmount(nested)
			}
		}
		return 0, false
	case string:
		return parseAmountString(v)
	}
	return parseAmountString(fmt.Sprint(value))
}

func parseAmountString(s string) (float64, bool) {
	match := amountPattern.FindString(s)
	if match == "" {
		return 0, false
	}
	prefix := floatPrefix.FindString(strings.ReplaceAll(match, ",", ""))
	if prefix == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(prefix, 64)
	if err != nil {
		return 0, false
	}
	return finite(f)
}

func finite(f float64) (float64, bool) {
	if math.IsNaN(f) {
		return 0, false
	}
	return f, true
}
