// Package core provides money parsing and handling utilities.
//
// Amounts are decimal values in the currency's major unit. Typed user input
// may use either a dot or a comma as decimal separator; stored values use a dot.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Bounds on parsed amounts.
const (
	maxAmountScale       = 8  // digits after the decimal point
	maxAmountIntegerPart = 12 // digits before it, i.e. below one trillion
)

// ParseAmount converts store text or a JSON number into a non-negative
// decimal. Only a dot is accepted as decimal separator, so a thousands
// separator is rejected rather than misread.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount(" 900 ")  -> 900, nil
//	ParseAmount("1,234")  -> ErrInvalidAmount
//	ParseAmount("-1")     -> ErrInvalidAmount
//	ParseAmount("1e13")   -> ErrInvalidAmount (too large)
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %q is negative", ErrInvalidAmount, s)
	}
	if d.IsZero() {
		// "0e9999999" must not keep its exponent
		return decimal.Zero, nil
	}
	if err := checkAmountBounds(d); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q %s", ErrInvalidAmount, s, err)
	}
	return d, nil
}

// ParseUserAmount is ParseAmount for typed input, where a single comma is
// read as the decimal separator ("12,50").
func ParseUserAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, ".") && strings.Count(s, ",") == 1 {
		s = strings.Replace(s, ",", ".", 1)
	}
	return ParseAmount(s)
}

// checkAmountBounds only looks at the exponent and coefficient length, so
// it stays cheap for inputs like "1e7000000".
func checkAmountBounds(d decimal.Decimal) error {
	exp := int64(d.Exponent())
	if exp < -maxAmountScale {
		return fmt.Errorf("has more than %d decimals", maxAmountScale)
	}
	if int64(d.NumDigits())+exp > maxAmountIntegerPart {
		return fmt.Errorf("exceeds %d integer digits", maxAmountIntegerPart)
	}
	return nil
}

// FormatAmount renders an amount with exactly two decimals.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
