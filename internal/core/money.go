// Package core provides the receivable/payment domain and the balance
// aggregation over it.
//
// This file contains the lenient amount coercion used wherever amounts enter
// the system from loosely typed sources (storage rows, seed files, JSON maps).
package core

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// CoerceAmount converts v to a decimal, treating anything absent or malformed
// as zero.
//
// Examples:
//
//	CoerceAmount(nil)        -> 0
//	CoerceAmount("12.50")    -> 12.5
//	CoerceAmount("abc")      -> 0
//	CoerceAmount(math.NaN()) -> 0
func CoerceAmount(v any) decimal.Decimal {
	switch x := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return x
	case *decimal.Decimal:
		if x == nil {
			return decimal.Zero
		}
		return *x
	case decimal.NullDecimal:
		if !x.Valid {
			return decimal.Zero
		}
		return x.Decimal
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Zero
		}
		return decimal.NewFromFloat(x)
	case float32:
		return CoerceAmount(float64(x))
	case int:
		return decimal.NewFromInt(int64(x))
	case int32:
		return decimal.NewFromInt32(x)
	case int64:
		return decimal.NewFromInt(x)
	case json.Number:
		return coerceString(x.String())
	case string:
		return coerceString(x)
	case []byte:
		return coerceString(string(x))
	default:
		return decimal.Zero
	}
}

func coerceString(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
