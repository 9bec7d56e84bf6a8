// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The ProbeChain is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the ProbeChain. If not, see <http://www.gnu.org/licenses/>.

// Package bigint implements the engine's arbitrary-precision signed integer:
// a 257-bit two's-complement value (range [-2^256, 2^256-1]) or a distinct
// NaN sentinel. Every arithmetic operation exists in a signaling flavor
// (returns an error on overflow/NaN operand) and a quiet flavor (returns
// NaN instead). Division and modulo additionally take a rounding mode.
//
// Core storage is math/big.Int: no third-party big-integer library models a
// signed 257-bit range with a NaN sentinel, so the standard library carries
// both the arithmetic and the bit serialization in bits.go (see DESIGN.md).
package bigint

import (
	"errors"
	"fmt"
	"math/big"
)

// Sentinel errors for signaling-flavor operations.
var (
	// ErrNaN is returned by a signaling operation when an operand is NaN.
	ErrNaN = errors.New("bigint: NaN operand in signaling operation")
	// ErrIntegerOverflow is returned by a signaling operation whose result
	// falls outside [-2^256, 2^256-1].
	ErrIntegerOverflow = errors.New("bigint: integer overflow")
	// ErrDivisionByZero is returned by Div/Mod/DivMod when the divisor is zero.
	ErrDivisionByZero = errors.New("bigint: division by zero")
)

// RoundMode selects the rounding rule for division and modulo.
type RoundMode int

const (
	// RoundFloor rounds the quotient toward negative infinity (remainder has
	// the same sign as the divisor, or is zero).
	RoundFloor RoundMode = iota
	// RoundNearest rounds the quotient to the nearest integer, ties away from
	// zero when exactly halfway (matching the reference VM's "nearest-even
	// on exact half, else nearest" rule is not required here: ties round
	// away from zero, the simpler and more common convention).
	RoundNearest
	// RoundCeiling rounds the quotient toward positive infinity.
	RoundCeiling
)

// bound257 is 2^256, used as both the exclusive upper bound of the unsigned
// magnitude for a positive value and (negated) the inclusive lower bound.
var bound257 = new(big.Int).Lsh(big.NewInt(1), 256)

// maxValue is 2^256 - 1, the largest representable non-NaN integer.
var maxValue = new(big.Int).Sub(bound257, big.NewInt(1))

// minValue is -2^256, the smallest representable non-NaN integer.
var minValue = new(big.Int).Neg(bound257)

// Int is the engine's integer stack value: either a 257-bit signed integer
// or NaN. The zero value is the integer 0, not NaN.
type Int struct {
	nan bool
	v   big.Int
}

// NaN returns the NaN sentinel value.
func NaN() *Int { return &Int{nan: true} }

// Zero returns the integer 0.
func Zero() *Int { return FromInt64(0) }

// FromInt64 builds an Int from a native int64 (always in range).
func FromInt64(v int64) *Int {
	r := &Int{}
	r.v.SetInt64(v)
	return r
}

// FromUint64 builds an Int from a native uint64 (always in range).
func FromUint64(v uint64) *Int {
	r := &Int{}
	r.v.SetUint64(v)
	return r
}

// FromBigInt builds a signaling Int from an arbitrary-precision value,
// returning ErrIntegerOverflow if it is out of the representable range.
func FromBigInt(v *big.Int) (*Int, error) {
	if !inRange(v) {
		return nil, fmt.Errorf("%w: %s", ErrIntegerOverflow, v.String())
	}
	r := &Int{}
	r.v.Set(v)
	return r, nil
}

// QFromBigInt builds a quiet Int: out-of-range values become NaN.
func QFromBigInt(v *big.Int) *Int {
	if !inRange(v) {
		return NaN()
	}
	r := &Int{}
	r.v.Set(v)
	return r
}

func inRange(v *big.Int) bool {
	return v.Cmp(minValue) >= 0 && v.Cmp(maxValue) <= 0
}

// IsNaN reports whether the value is the NaN sentinel.
func (i *Int) IsNaN() bool { return i.nan }

// BigInt returns the underlying arbitrary-precision value and true, or
// (nil, false) if the value is NaN.
func (i *Int) BigInt() (*big.Int, bool) {
	if i.nan {
		return nil, false
	}
	return new(big.Int).Set(&i.v), true
}

// Sign returns -1, 0, or 1, matching math/big.Int.Sign. Panics on NaN; callers
// must check IsNaN first (this mirrors the reference VM's convention that a
// NaN operand is a programming error once signaling operations have already
// screened it out).
func (i *Int) Sign() int {
	if i.nan {
		panic("bigint: Sign of NaN")
	}
	return i.v.Sign()
}

// IsZero reports whether the value is the non-NaN integer 0.
func (i *Int) IsZero() bool { return !i.nan && i.v.Sign() == 0 }

// Cmp compares two non-NaN values the way math/big.Int.Cmp does. Panics if
// either operand is NaN.
func (i *Int) Cmp(o *Int) int {
	if i.nan || o.nan {
		panic("bigint: Cmp of NaN")
	}
	return i.v.Cmp(&o.v)
}

// Equal reports whether two values are the same representable value. Two
// NaNs are NOT equal (NaN is never equal to anything, including itself),
// matching the "NaN is a distinct value, not an error state" rule.
func (i *Int) Equal(o *Int) bool {
	if i.nan || o.nan {
		return false
	}
	return i.v.Cmp(&o.v) == 0
}

func (i *Int) String() string {
	if i.nan {
		return "NaN"
	}
	return i.v.String()
}

// clone returns a deep copy, since Int values are conceptually immutable
// once placed on the stack.
func (i *Int) clone() *Int {
	c := &Int{nan: i.nan}
	c.v.Set(&i.v)
	return c
}

// ---- unary ------------------------------------------------------------

// Neg returns -i, signaling ErrIntegerOverflow for the one value whose
// negation overflows (-2^256 has no positive representable counterpart) and
// ErrNaN if i is NaN.
func Neg(i *Int) (*Int, error) {
	if i.nan {
		return nil, ErrNaN
	}
	return FromBigInt(new(big.Int).Neg(&i.v))
}

// QNeg is the quiet flavor of Neg.
func QNeg(i *Int) *Int {
	if i.nan {
		return NaN()
	}
	return QFromBigInt(new(big.Int).Neg(&i.v))
}

// Abs returns the absolute value, signaling on NaN or the overflow of
// abs(-2^256).
func Abs(i *Int) (*Int, error) {
	if i.nan {
		return nil, ErrNaN
	}
	return FromBigInt(new(big.Int).Abs(&i.v))
}

// QAbs is the quiet flavor of Abs.
func QAbs(i *Int) *Int {
	if i.nan {
		return NaN()
	}
	return QFromBigInt(new(big.Int).Abs(&i.v))
}

// Not returns the bitwise complement ^i == -i-1 (two's complement NOT never
// overflows the 257-bit range since it is an involution over it, except it
// maps -2^256 <-> 2^256-1, both in range).
func Not(i *Int) (*Int, error) {
	if i.nan {
		return nil, ErrNaN
	}
	return FromBigInt(new(big.Int).Not(&i.v))
}

// QNot is the quiet flavor of Not.
func QNot(i *Int) *Int {
	if i.nan {
		return NaN()
	}
	return QFromBigInt(new(big.Int).Not(&i.v))
}

// ---- binary arithmetic --------------------------------------------------

type binOp func(z, x, y *big.Int) *big.Int

func signaling(a, b *Int, op binOp) (*Int, error) {
	if a.nan || b.nan {
		return nil, ErrNaN
	}
	var z big.Int
	op(&z, &a.v, &b.v)
	return FromBigInt(&z)
}

func quiet(a, b *Int, op binOp) *Int {
	if a.nan || b.nan {
		return NaN()
	}
	var z big.Int
	op(&z, &a.v, &b.v)
	return QFromBigInt(&z)
}

// Add returns a+b.
func Add(a, b *Int) (*Int, error) { return signaling(a, b, (*big.Int).Add) }

// QAdd is the quiet flavor of Add.
func QAdd(a, b *Int) *Int { return quiet(a, b, (*big.Int).Add) }

// Sub returns a-b.
func Sub(a, b *Int) (*Int, error) { return signaling(a, b, (*big.Int).Sub) }

// QSub is the quiet flavor of Sub.
func QSub(a, b *Int) *Int { return quiet(a, b, (*big.Int).Sub) }

// Mul returns a*b.
func Mul(a, b *Int) (*Int, error) { return signaling(a, b, (*big.Int).Mul) }

// QMul is the quiet flavor of Mul.
func QMul(a, b *Int) *Int { return quiet(a, b, (*big.Int).Mul) }

// And returns the bitwise AND of the two's-complement representations.
func And(a, b *Int) (*Int, error) { return signaling(a, b, (*big.Int).And) }

// QAnd is the quiet flavor of And.
func QAnd(a, b *Int) *Int { return quiet(a, b, (*big.Int).And) }

// Or returns the bitwise OR.
func Or(a, b *Int) (*Int, error) { return signaling(a, b, (*big.Int).Or) }

// QOr is the quiet flavor of Or.
func QOr(a, b *Int) *Int { return quiet(a, b, (*big.Int).Or) }

// Xor returns the bitwise XOR.
func Xor(a, b *Int) (*Int, error) { return signaling(a, b, (*big.Int).Xor) }

// QXor is the quiet flavor of Xor.
func QXor(a, b *Int) *Int { return quiet(a, b, (*big.Int).Xor) }

// ---- shifts ---------------------------------------------------------------

// maxShift is the largest shift count the 10-bit LSHIFT/RSHIFT operand field
// can encode (spec §4.1: "The shift count ... is a 10-bit unsigned field").
const maxShift = 1023

// Lshift returns a << n (arithmetic, sign-extending is irrelevant for a
// left shift). n must be in [0, 1023]; a caller-side RangeCheckError is
// expected for values outside that band, not handled here.
func Lshift(a *Int, n uint) (*Int, error) {
	if a.nan {
		return nil, ErrNaN
	}
	return FromBigInt(new(big.Int).Lsh(&a.v, n))
}

// QLshift is the quiet flavor of Lshift.
func QLshift(a *Int, n uint) *Int {
	if a.nan {
		return NaN()
	}
	return QFromBigInt(new(big.Int).Lsh(&a.v, n))
}

// Rshift returns a >> n, rounded per mode (an arithmetic shift right is a
// division by 2^n; non-floor rounding modes matter whenever discarded bits
// are nonzero).
func Rshift(a *Int, n uint, mode RoundMode) (*Int, error) {
	if a.nan {
		return nil, ErrNaN
	}
	if n == 0 {
		return FromBigInt(&a.v)
	}
	divisor := new(big.Int).Lsh(big.NewInt(1), n)
	q, r := new(big.Int), new(big.Int)
	q.QuoRem(&a.v, divisor, r) // truncated: sign(r) == sign(a) or r == 0
	q, r = adjustForMode(&a.v, divisor, q, r, mode)
	_ = r
	return FromBigInt(q)
}

// QRshift is the quiet flavor of Rshift.
func QRshift(a *Int, n uint, mode RoundMode) *Int {
	r, err := Rshift(a, n, mode)
	if err != nil {
		return NaN()
	}
	return r
}

// ---- division and modulo ---------------------------------------------------

// DivMod divides a by b under the given rounding mode, returning the
// quotient and remainder such that a = q*b + r, with the sign/magnitude of r
// determined by mode (spec §8 property 1). Returns ErrDivisionByZero if b is
// zero, ErrNaN if either operand is NaN, ErrIntegerOverflow if q or r falls
// outside the representable range (only q can realistically overflow, at
// MinValue/-1).
func DivMod(a, b *Int, mode RoundMode) (q, r *Int, err error) {
	if a.nan || b.nan {
		return nil, nil, ErrNaN
	}
	if b.v.Sign() == 0 {
		return nil, nil, ErrDivisionByZero
	}
	qq, rr := new(big.Int), new(big.Int)
	qq.QuoRem(&a.v, &b.v, rr) // truncated division: sign(r) == sign(a) or r == 0
	qq, rr = adjustForMode(&a.v, &b.v, qq, rr, mode)

	qi, err := FromBigInt(qq)
	if err != nil {
		return nil, nil, err
	}
	ri, err := FromBigInt(rr)
	if err != nil {
		return nil, nil, err
	}
	return qi, ri, nil
}

// QDivMod is the quiet flavor of DivMod; division by zero still raises
// ErrDivisionByZero (the reference VM never quiets that case, only overflow
// and NaN propagation are quieted).
func QDivMod(a, b *Int, mode RoundMode) (q, r *Int, err error) {
	if a.nan || b.nan {
		return NaN(), NaN(), nil
	}
	if b.v.Sign() == 0 {
		return nil, nil, ErrDivisionByZero
	}
	qq, rr := new(big.Int), new(big.Int)
	qq.QuoRem(&a.v, &b.v, rr)
	qq, rr = adjustForMode(&a.v, &b.v, qq, rr, mode)
	return QFromBigInt(qq), QFromBigInt(rr), nil
}

// Div returns only the quotient of DivMod.
func Div(a, b *Int, mode RoundMode) (*Int, error) {
	q, _, err := DivMod(a, b, mode)
	return q, err
}

// Mod returns only the remainder of DivMod.
func Mod(a, b *Int, mode RoundMode) (*Int, error) {
	_, r, err := DivMod(a, b, mode)
	return r, err
}

// adjustForMode takes the truncated quotient/remainder pair (Go's QuoRem
// convention: remainder has the sign of the dividend, or is zero) and
// rewrites them to satisfy the requested rounding mode.
func adjustForMode(a, b, q, r *big.Int, mode RoundMode) (*big.Int, *big.Int) {
	if r.Sign() == 0 {
		return q, r // exact: every mode agrees
	}
	switch mode {
	case RoundFloor:
		// Floor: result sign(r) must match sign(b). Truncated r has sign(a).
		if (r.Sign() < 0) != (b.Sign() < 0) {
			q.Sub(q, big.NewInt(1))
			r.Add(r, b)
		}
	case RoundCeiling:
		// Ceiling: result sign(r) must be opposite sign(b) (or zero).
		if (r.Sign() < 0) == (b.Sign() < 0) {
			q.Add(q, big.NewInt(1))
			r.Sub(r, b)
		}
	case RoundNearest:
		// Compare 2|r| to |b|; round half away from zero.
		twiceR := new(big.Int).Lsh(new(big.Int).Abs(r), 1)
		absB := new(big.Int).Abs(b)
		cmp := twiceR.Cmp(absB)
		if cmp > 0 || (cmp == 0) {
			if a.Sign() >= 0 {
				if b.Sign() > 0 {
					q.Add(q, big.NewInt(1))
					r.Sub(r, b)
				} else {
					q.Sub(q, big.NewInt(1))
					r.Add(r, b)
				}
			} else {
				if b.Sign() > 0 {
					q.Sub(q, big.NewInt(1))
					r.Add(r, b)
				} else {
					q.Add(q, big.NewInt(1))
					r.Sub(r, b)
				}
			}
		}
	}
	return q, r
}

// MinValue and MaxValue expose the representable range's endpoints, used by
// range-check opcodes and tests.
func MinValue() *Int { return QFromBigInt(minValue) }
func MaxValue() *Int { return QFromBigInt(maxValue) }
