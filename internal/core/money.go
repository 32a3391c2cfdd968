// Package core holds the expense record model and its validation rules.
//
// Amounts are decimal values with at most two fractional digits. They are
// stored as integer cents and travel over JSON as plain numbers.
package core

import (
	"bytes"
	"errors"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrAmountNotNumber  = errors.New("amount must be a number")
	ErrAmountOutOfRange = errors.New("amount is out of range")
)

// maxExponent bounds the decimal exponent of parsed amounts. Rounding and
// comparison rescale by 10^|exponent|, so it must be checked first.
const maxExponent = 18

var (
	hundred   = decimal.NewFromInt(100)
	maxAmount = decimal.NewFromInt(math.MaxInt64).Div(hundred).Truncate(2)
	minAmount = decimal.NewFromInt(math.MinInt64 + 1).Div(hundred).Truncate(2)
)

// Amount is a decimal monetary value. The zero value is 0.
type Amount struct {
	d decimal.Decimal
}

// ParseAmount parses a decimal string. Both "12.34" and "12,34" are
// accepted. The fractional digit count is preserved so that ValidateAmount
// can reject values like "1.234".
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, ErrInvalidAmount
	}
	return newAmount(d)
}

func newAmount(d decimal.Decimal) (Amount, error) {
	if e := d.Exponent(); e < -maxExponent || e > maxExponent {
		return Amount{}, ErrAmountOutOfRange
	}
	return Amount{d: d}, nil
}

// MustParseAmount is ParseAmount for literals; it panics on error.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

func AmountFromCents(cents int64) Amount {
	return Amount{d: decimal.New(cents, -2)}
}

func (a Amount) Decimal() decimal.Decimal { return a.d }

// Cents returns the amount in integer cents. The amount must have passed
// ValidateAmount.
func (a Amount) Cents() int64 {
	return a.d.Mul(hundred).IntPart()
}

// HasCentPrecision reports whether the amount is a multiple of 0.01.
func (a Amount) HasCentPrecision() bool {
	return a.d.Equal(a.d.Round(2))
}

func (a Amount) Equal(b Amount) bool { return a.d.Equal(b.d) }

func (a Amount) IsZero() bool { return a.d.IsZero() }

// String formats the amount with exactly two decimals.
func (a Amount) String() string {
	return a.d.StringFixed(2)
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.d.StringFixed(2)), nil
}

// UnmarshalJSON accepts JSON numbers only. Quoted values are rejected with
// ErrAmountNotNumber.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] == '"' || bytes.Equal(data, []byte("null")) {
		return ErrAmountNotNumber
	}
	d, err := decimal.NewFromString(string(data))
	if err != nil {
		return ErrAmountNotNumber
	}
	parsed, err := newAmount(d)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func ValidateAmount(a Amount) []ValidationIssue {
	if !a.HasCentPrecision() {
		return []ValidationIssue{{
			Code:    IssueNotMultipleOf,
			Path:    issuePath(FieldAmount),
			Message: "Amount should have at most two decimal places.",
		}}
	}
	if a.d.GreaterThan(maxAmount) || a.d.LessThan(minAmount) {
		return []ValidationIssue{{
			Code:    IssueTooBig,
			Path:    issuePath(FieldAmount),
			Message: "Amount is out of range.",
		}}
	}
	return nil
}
