// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

// Package stack implements the engine's polymorphic value model and the
// bounded-depth stack values live on: a tagged sum of Integer, Cell, Slice,
// Builder, Continuation, Tuple, and Null (spec §4.3, Design Notes "seven
// variants"). Continuation lives in internal/cont, which imports this
// package; to avoid a cycle, Value holds continuations behind the Cont
// interface rather than a concrete type.
package stack

import (
	"fmt"

	"github.com/cellvm/tvmcore/internal/bigint"
	"github.com/cellvm/tvmcore/internal/cell"
)

// Kind discriminates a Value's active variant.
type Kind uint8

const (
	KindNull Kind = iota
	KindInteger
	KindCell
	KindSlice
	KindBuilder
	KindContinuation
	KindTuple
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInteger:
		return "integer"
	case KindCell:
		return "cell"
	case KindSlice:
		return "slice"
	case KindBuilder:
		return "builder"
	case KindContinuation:
		return "continuation"
	case KindTuple:
		return "tuple"
	default:
		return "unknown"
	}
}

// Cont is the minimal surface internal/stack needs from a continuation
// value, satisfied by *cont.Continuation. Kept as an interface so this
// package does not import internal/cont.
type Cont interface {
	fmt.Stringer
}

// Value is the VM's polymorphic stack cell: exactly one of the fields below
// is meaningful, selected by Kind. The zero Value is Null.
//
// Integer's NaN (bigint.Int.IsNaN()) is a distinct representable value of
// the Integer variant, never conflated with Null and never silently erased
// by a downcast to a native integer type — callers must check IsNaN
// explicitly, the same discipline internal/bigint itself enforces.
type Value struct {
	kind Kind
	i    *bigint.Int
	c    *cell.Cell
	s    *cell.Slice
	b    *cell.Builder
	k    Cont
	t    Tuple
}

// Null is the shared absent/uninitialized value.
func Null() Value { return Value{kind: KindNull} }

// IsNull reports whether v is Null. Implements vmerr.Value.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Integer wraps a bigint.Int as an Integer value.
func Integer(i *bigint.Int) Value { return Value{kind: KindInteger, i: i} }

// CellValue wraps a *cell.Cell as a Cell value.
func CellValue(c *cell.Cell) Value { return Value{kind: KindCell, c: c} }

// SliceValue wraps a *cell.Slice as a Slice value.
func SliceValue(s *cell.Slice) Value { return Value{kind: KindSlice, s: s} }

// BuilderValue wraps a *cell.Builder as a Builder value.
func BuilderValue(b *cell.Builder) Value { return Value{kind: KindBuilder, b: b} }

// ContinuationValue wraps a Cont as a Continuation value.
func ContinuationValue(k Cont) Value { return Value{kind: KindContinuation, k: k} }

// TupleValue wraps a Tuple as a Tuple value.
func TupleValue(t Tuple) Value { return Value{kind: KindTuple, t: t} }

// Kind returns v's active variant.
func (v Value) Kind() Kind { return v.kind }

// AsInteger returns the Integer payload and true, or (nil, false) if v is
// not an Integer.
func (v Value) AsInteger() (*bigint.Int, bool) {
	if v.kind != KindInteger {
		return nil, false
	}
	return v.i, true
}

// AsCell returns the Cell payload and true, or (nil, false) otherwise.
func (v Value) AsCell() (*cell.Cell, bool) {
	if v.kind != KindCell {
		return nil, false
	}
	return v.c, true
}

// AsSlice returns the Slice payload and true, or (nil, false) otherwise.
func (v Value) AsSlice() (*cell.Slice, bool) {
	if v.kind != KindSlice {
		return nil, false
	}
	return v.s, true
}

// AsBuilder returns the Builder payload and true, or (nil, false) otherwise.
func (v Value) AsBuilder() (*cell.Builder, bool) {
	if v.kind != KindBuilder {
		return nil, false
	}
	return v.b, true
}

// AsContinuation returns the Continuation payload and true, or (nil, false)
// otherwise.
func (v Value) AsContinuation() (Cont, bool) {
	if v.kind != KindContinuation {
		return nil, false
	}
	return v.k, true
}

// AsTuple returns the Tuple payload and true, or (nil, false) otherwise.
func (v Value) AsTuple() (Tuple, bool) {
	if v.kind != KindTuple {
		return nil, false
	}
	return v.t, true
}

// IsTrue implements the VM's integer-truthiness rule used by IF/IFNOT and
// friends: any nonzero, non-NaN integer is true, zero is false. Non-integer
// values are a type-check error for the caller to raise.
func (v Value) IsTrue() (bool, bool) {
	i, ok := v.AsInteger()
	if !ok || i.IsNaN() {
		return false, false
	}
	return !i.IsZero(), true
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindInteger:
		return v.i.String()
	case KindCell:
		return "C{" + v.c.HashHex()[:8] + "}"
	case KindSlice:
		return fmt.Sprintf("CS{%d bits, %d refs}", v.s.RemainingBits(), v.s.RemainingRefs())
	case KindBuilder:
		return fmt.Sprintf("BC{%d bits, %d refs}", v.b.BitLen(), v.b.RefsCount())
	case KindContinuation:
		return v.k.String()
	case KindTuple:
		return v.t.String()
	default:
		return "?"
	}
}
