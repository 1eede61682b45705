package rpc

import (
	"bytes"
	"encoding/json"
	"math/big"
	"strconv"

	"github.com/pkg/errors"
)

// Amount is a non-negative base-unit integer. It travels as a decimal string
// and decodes from either a string or a JSON number.
type Amount big.Int

// NewAmount copies v into an Amount. A nil v is zero.
func NewAmount(v *big.Int) *Amount {
	if v == nil {
		return (*Amount)(new(big.Int))
	}
	return (*Amount)(new(big.Int).Set(v))
}

// Int returns a copy of the amount as a big.Int.
func (a *Amount) Int() *big.Int {
	if a == nil {
		return new(big.Int)
	}
	return new(big.Int).Set((*big.Int)(a))
}

// MarshalJSON encodes the amount as a decimal string.
func (a *Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Int().String())
}

// UnmarshalJSON accepts "123" or 123.
func (a *Amount) UnmarshalJSON(b []byte) error {
	s := string(unquote(b))
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return errors.Errorf("invalid amount %q", s)
	}
	if v.Sign() < 0 {
		return errors.Errorf("negative amount %q", s)
	}
	*a = Amount(*v)
	return nil
}

// Uint64 is an unsigned integer that decodes from a string or a number.
type Uint64 uint64

// UnmarshalJSON accepts "7" or 7.
func (u *Uint64) UnmarshalJSON(b []byte) error {
	v, err := strconv.ParseUint(string(unquote(b)), 10, 64)
	if err != nil {
		return errors.Wrap(err, "invalid integer")
	}
	*u = Uint64(v)
	return nil
}

// Decimal is a decimal value kept as its textual form. It decodes from a
// string or a JSON number.
type Decimal string

// UnmarshalJSON accepts "1.5" or 1.5.
func (d *Decimal) UnmarshalJSON(b []byte) error {
	*d = Decimal(unquote(b))
	return nil
}

func unquote(b []byte) []byte {
	b = bytes.TrimSpace(b)
	if len(b) >= 2 && b[0] == '"' && b[len(b)-1] == '"' {
		return b[1 : len(b)-1]
	}
	return b
}
