// Package core provides the budget domain: month keys, the category tree,
// classification backfill and summary arithmetic.
//
// This file contains amount coercion. Amounts are never rejected: anything
// that is not a finite non-negative number becomes zero.
package core

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// amountPlaces is the number of decimal places amounts are rounded to.
const amountPlaces = 2

// CoerceAmount clamps negative amounts to zero and rounds half-up to cents.
func CoerceAmount(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d.Round(amountPlaces)
}

// ParseAmount converts user input to an amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Empty,
// malformed or negative input yields zero.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,345") -> 12.35
//	ParseAmount("1,234.56") -> 1234.56
//	ParseAmount("1.234,56") -> 1234.56
//	ParseAmount("-3")     -> 0
//	ParseAmount("abc")    -> 0
func ParseAmount(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	// With both separators the last one is the decimal point and the
	// other groups thousands. A lone comma is a decimal comma.
	if dot, comma := strings.LastIndex(s, "."), strings.LastIndex(s, ","); dot >= 0 && comma >= 0 {
		if dot > comma {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.ReplaceAll(s, ".", "")
		}
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return CoerceAmount(d)
}

// AmountFromFloat converts a float, mapping NaN and infinities to zero.
func AmountFromFloat(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return CoerceAmount(decimal.NewFromFloat(f))
}

// NormalizeAmounts returns a copy of t with every amount coerced. Snapshots
// written by older clients may carry negative values.
func NormalizeAmounts(t BudgetTemplate) BudgetTemplate {
	out := CloneTemplate(t)
	for i := range out.Categories {
		subs := out.Categories[i].Subcategories
		for j := range subs {
			subs[j].Amount = CoerceAmount(subs[j].Amount)
		}
	}
	return out
}
