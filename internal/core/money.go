// Package core provides amount parsing utilities.
//
// Bank exports write amounts with locale specific separators ("1.234,56" or
// "1,234.56"). ParseAmount normalises them and returns a signed float.
package core

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

// ParseAmount converts a locale formatted amount to a float64.
//
// decimalSep is the decimal separator used by the source ("." or ","); the
// other separator is treated as a thousands separator and dropped. A leading
// sign is allowed.
//
// Examples:
//
//	ParseAmount("12.34", ".")     -> 12.34, nil
//	ParseAmount("-1.234,56", ",") -> -1234.56, nil
//	ParseAmount("1,234.5", ".")   -> 1234.5, nil
func ParseAmount(s string, decimalSep string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	if decimalSep == "" {
		decimalSep = "."
	}
	thousandsSep := ","
	if decimalSep == "," {
		thousandsSep = "."
	}
	s = strings.ReplaceAll(s, thousandsSep, "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	if decimalSep != "." {
		s = strings.ReplaceAll(s, decimalSep, ".")
	}
	s = strings.TrimPrefix(s, "+")
	if strings.Count(s, ".") > 1 {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	f, _ := d.Float64()
	return f, nil
}

// RoundCents rounds to two decimals for display.
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// FormatAmount renders a signed amount with two decimals (e.g. "-12.30").
func FormatAmount(v float64) string {
	return strconv.FormatFloat(RoundCents(v), 'f', 2, 64)
}
