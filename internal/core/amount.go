// Package core provides the ledger domain: transactions, categories, the
// aggregation engine and the mood classifier.
//
// This file contains parsing of user-entered amounts and their display form.
package core

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is appended to formatted amounts.
const DefaultCurrency = "S/"

// ParseAmount converts user input to a positive amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Signs,
// zero, empty input and anything that is not a plain decimal number are
// rejected with ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,5")  -> 12.5, nil
//	ParseAmount("-1")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	if strings.ContainsAny(s, "eE") {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return 0, ErrInvalidAmount
	}
	f, _ := d.Float64()
	if !ValidAmount(f) {
		return 0, ErrInvalidAmount
	}
	return f, nil
}

// FormatAmount renders v with two decimals followed by the currency symbol,
// e.g. "350.00 S/". Negative values keep their sign.
func FormatAmount(v float64, currency string) string {
	if currency == "" {
		currency = DefaultCurrency
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Sprintf("%.2f %s", v, currency)
	}
	return decimal.NewFromFloat(v).StringFixed(2) + " " + currency
}
