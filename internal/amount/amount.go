package amount

import (
	"math/big"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNegative is returned for amounts below zero.
	ErrNegative = errors.New("amount must not be negative")

	// ErrPrecision is returned when a human amount has more fractional
	// digits than the token supports.
	ErrPrecision = errors.New("amount has more decimals than the token")
)

// Parse reads a non-negative integer amount in base units.
func Parse(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return nil, errors.Errorf("invalid base-unit amount %q", s)
	}
	if v.Sign() < 0 {
		return nil, ErrNegative
	}
	return v, nil
}

// FromHuman converts a decimal amount such as "0.25" into base units for a
// token with the given number of decimals.
func FromHuman(s string, decimals int32) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid amount %q", s)
	}
	if d.IsNegative() {
		return nil, ErrNegative
	}
	scaled := d.Shift(decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, errors.Wrapf(ErrPrecision, "%s with %d decimals", s, decimals)
	}
	return scaled.BigInt(), nil
}

// ToHuman renders base units as a decimal string without trailing zeros.
func ToHuman(v *big.Int, decimals int32) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v, -decimals).String()
}
