// Package x18 converts between human-readable decimal quantities and the
// 18-decimal fixed-point integers ("X18") the Nado gateway speaks.
//
// All arithmetic stays in integer or decimal space; float64 never touches a
// price or amount. Division rounds toward negative infinity, matching the
// exchange's documented behavior.
package x18

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// ErrPrecision is returned when a value cannot be represented in 18
// fractional digits without loss and the caller asked for exact conversion.
var ErrPrecision = errors.New("x18: value exceeds 18 fractional digits")

// Scale is the fixed-point scaling factor, 10^18.
var Scale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// ToX18 converts a decimal to its X18 integer representation.
// Values with more than 18 fractional digits are floor-rounded; call sites
// that must reject such input use ToX18Exact instead.
func ToX18(d decimal.Decimal) *big.Int {
	return d.Shift(18).RoundFloor(0).BigInt()
}

// ToX18Exact converts a decimal to X18, failing with ErrPrecision when the
// input carries more than 18 fractional digits.
func ToX18Exact(d decimal.Decimal) (*big.Int, error) {
	shifted := d.Shift(18)
	floored := shifted.RoundFloor(0)
	if !shifted.Equal(floored) {
		return nil, fmt.Errorf("%w: %s", ErrPrecision, d.String())
	}
	return floored.BigInt(), nil
}

// FromX18 converts an X18 integer back to a decimal. The conversion is
// exact; the round trip decimal -> X18 -> decimal is the identity for any
// input with at most 18 fractional digits.
func FromX18(q *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(q, -18)
}

// MulX18 multiplies two X18 quantities, floor-rounding the 10^18 rescale.
func MulX18(a, b *big.Int) *big.Int {
	return floorDiv(new(big.Int).Mul(a, b), Scale)
}

// DivX18 divides two X18 quantities, floor-rounding the result.
// Panics on division by zero, same as big.Int.
func DivX18(a, b *big.Int) *big.Int {
	return floorDiv(new(big.Int).Mul(a, Scale), b)
}

// floorDiv returns x/y rounded toward negative infinity for any sign of y.
func floorDiv(x, y *big.Int) *big.Int {
	q, r := new(big.Int).QuoRem(x, y, new(big.Int))
	if r.Sign() != 0 && (r.Sign() < 0) != (y.Sign() < 0) {
		q.Sub(q, big.NewInt(1))
	}
	return q
}
