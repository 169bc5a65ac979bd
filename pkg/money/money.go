// Package money provides the unsigned amount type used across the ledger.
//
// Amounts are whole numbers of the smallest currency unit in the range
// [0, 2^128-1]. Arithmetic is checked and never wraps; floating point is
// deliberately unsupported.
package money

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrOverflow is returned when an operation would exceed 2^128-1.
	ErrOverflow = errors.New("amount overflow")
	// ErrNegative is returned when parsing or arithmetic would produce a
	// value below zero.
	ErrNegative = errors.New("amount cannot be negative")
)

// maxValue is 2^128 - 1, the largest representable amount.
var maxValue = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// Amount is an unsigned 128-bit integer amount. The zero value is zero
// currency units and ready to use. Amounts are immutable; all operations
// return new values.
type Amount struct {
	v *big.Int
}

// Zero returns the zero amount.
func Zero() Amount {
	return Amount{}
}

// Max returns the largest representable amount, 2^128-1.
func Max() Amount {
	return Amount{v: new(big.Int).Set(maxValue)}
}

// FromUint64 converts a native unsigned integer.
func FromUint64(u uint64) Amount {
	return Amount{v: new(big.Int).SetUint64(u)}
}

// Parse reads a base-10 amount. Signs, blanks, and values beyond 2^128-1
// are rejected.
func Parse(s string) (Amount, error) {
	if s == "" {
		return Amount{}, fmt.Errorf("parse amount: empty string")
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Amount{}, fmt.Errorf("parse amount: invalid number %q", s)
	}
	if v.Sign() < 0 {
		return Amount{}, fmt.Errorf("parse amount %q: %w", s, ErrNegative)
	}
	if v.Cmp(maxValue) > 0 {
		return Amount{}, fmt.Errorf("parse amount %q: %w", s, ErrOverflow)
	}
	return Amount{v: v}, nil
}

// MustParse is Parse for static initializers and tests; it panics on error.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Amount) value() *big.Int {
	if a.v == nil {
		return new(big.Int)
	}
	return a.v
}

// Add returns a+b, or ErrOverflow when the sum leaves the 128-bit domain.
func (a Amount) Add(b Amount) (Amount, error) {
	sum := new(big.Int).Add(a.value(), b.value())
	if sum.Cmp(maxValue) > 0 {
		return Amount{}, ErrOverflow
	}
	return Amount{v: sum}, nil
}

// Sub returns a-b, or ErrNegative when b exceeds a.
func (a Amount) Sub(b Amount) (Amount, error) {
	if a.Cmp(b) < 0 {
		return Amount{}, ErrNegative
	}
	return Amount{v: new(big.Int).Sub(a.value(), b.value())}, nil
}

// Cmp returns -1, 0, or 1 ordering a against b.
func (a Amount) Cmp(b Amount) int {
	return a.value().Cmp(b.value())
}

// IsZero reports whether the amount is zero currency units.
func (a Amount) IsZero() bool {
	return a.value().Sign() == 0
}

// String renders the amount in base 10.
func (a Amount) String() string {
	return a.value().String()
}

// MarshalJSON encodes the amount as a JSON string so 128-bit values survive
// clients that parse numbers as float64.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON accepts a base-10 string or bare number literal.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Value implements driver.Valuer; amounts travel to the database as base-10
// text for NUMERIC columns.
func (a Amount) Value() (driver.Value, error) {
	return a.String(), nil
}

// Scan implements sql.Scanner for NUMERIC and text columns.
func (a *Amount) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = Zero()
		return nil
	case string:
		parsed, err := Parse(v)
		if err != nil {
			return fmt.Errorf("scan amount: %w", err)
		}
		*a = parsed
		return nil
	case []byte:
		return a.Scan(string(v))
	case int64:
		if v < 0 {
			return fmt.Errorf("scan amount %d: %w", v, ErrNegative)
		}
		*a = FromUint64(uint64(v))
		return nil
	default:
		return fmt.Errorf("scan amount: unsupported type %T", src)
	}
}
