// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package amount parses BRC-20 decimal-string fields into exact fixed-point
// values and performs the decimals-exact comparisons the protocol relies on
// for mint-cap and transfer-available checks.
//
// The parsing rules are ported from the original indexer's
// convert_to_float (brc20_index/utils.rs): count fractional digits from the
// string itself, not from a float's bit pattern, and reject more than one
// decimal point. The original used f64, which cannot make the
// decimals-exact guarantee spec.md requires at the max_supply boundary;
// shopspring/decimal gives that guarantee directly.
package amount

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrMalformed is returned for any input that fails to parse under the
// protocol's decimal rules.
var ErrMalformed = errors.New("malformed inscription amount")

// MaxDecimals is the upper bound on a ticker's "dec" field.
const MaxDecimals = 18

// DefaultDecimals is used when a deploy inscription omits "dec".
const DefaultDecimals = 18

// Amount is a parsed, exact fixed-point BRC-20 quantity.
type Amount struct {
	d decimal.Decimal
}

// Zero is the additive identity.
var Zero = Amount{d: decimal.Zero}

// Parse parses s as a BRC-20 amount scaled to decimals fractional digits.
// It rejects strings with more than one '.', strings whose fractional part
// is longer than decimals digits, and anything decimal.NewFromString itself
// rejects.
func Parse(s string, decimals uint8) (Amount, error) {
	parts := strings.Split(s, ".")
	switch len(parts) {
	case 1:
		// no fractional part, always fine w.r.t. decimals
	case 2:
		if len(parts[1]) > int(decimals) {
			return Amount{}, ErrMalformed
		}
	default:
		return Amount{}, ErrMalformed
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, ErrMalformed
	}
	if d.IsNegative() {
		return Amount{}, ErrMalformed
	}
	return Amount{d: d}, nil
}

// ParseUint parses an unsigned integer string (used for the "dec" field,
// which itself has no decimals).
func ParseUint(s string) (uint8, error) {
	if s == "" {
		return 0, ErrMalformed
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, ErrMalformed
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return 0, ErrMalformed
	}
	v := d.IntPart()
	if v < 0 || v > 255 {
		return 0, ErrMalformed
	}
	return uint8(v), nil
}

func (a Amount) Add(b Amount) Amount { return Amount{d: a.d.Add(b.d)} }
func (a Amount) Sub(b Amount) Amount { return Amount{d: a.d.Sub(b.d)} }

func (a Amount) GreaterThan(b Amount) bool      { return a.d.GreaterThan(b.d) }
func (a Amount) GreaterThanOrEqual(b Amount) bool { return a.d.GreaterThanOrEqual(b.d) }
func (a Amount) LessThan(b Amount) bool         { return a.d.LessThan(b.d) }
func (a Amount) LessThanOrEqual(b Amount) bool  { return a.d.LessThanOrEqual(b.d) }
func (a Amount) Equal(b Amount) bool            { return a.d.Equal(b.d) }
func (a Amount) IsZero() bool                   { return a.d.IsZero() }
func (a Amount) IsPositive() bool               { return a.d.IsPositive() }
func (a Amount) IsNegative() bool               { return a.d.IsNegative() }

func (a Amount) String() string { return a.d.String() }

// Float64 exposes the value for storage layers that round-trip amounts as
// BSON doubles (spec.md §6: "All amounts are stored as fixed-decimal
// reals").
func (a Amount) Float64() float64 {
	f, _ := a.d.Float64()
	return f
}

// FromFloat64 reconstructs an Amount from a stored double. Used only when
// reading documents back out of the store.
func FromFloat64(f float64) Amount {
	return Amount{d: decimal.NewFromFloat(f)}
}
