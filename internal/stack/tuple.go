// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package stack

import (
	"errors"
	"strings"
)

// MaxTupleArity is the largest number of elements a Tuple may hold.
const MaxTupleArity = 255

// ErrTupleArity is returned when a tuple operation would produce more than
// MaxTupleArity elements.
var ErrTupleArity = errors.New("stack: tuple arity exceeds 255")

// Tuple is an ordered, semantically-immutable sequence of 0..255 Values;
// nested tuples are allowed. "Semantically immutable" means every mutating
// operation (NewTuple, With, Set) returns a fresh Tuple — the underlying
// slice is never written to in place, though unchanged elements are shared
// with the original the way the reference VM shares structure rather than
// deep-copying.
type Tuple struct {
	elems []Value
}

// EmptyTuple is the zero-arity tuple.
var EmptyTuple = Tuple{}

// NewTuple builds a tuple from elems, copying the elements into a fresh
// backing array (a shallow copy) so later writes to the caller's slice
// cannot alias it.
func NewTuple(elems ...Value) (Tuple, error) {
	if len(elems) > MaxTupleArity {
		return Tuple{}, ErrTupleArity
	}
	cp := make([]Value, len(elems))
	copy(cp, elems)
	return Tuple{elems: cp}, nil
}

// Len returns the tuple's arity.
func (t Tuple) Len() int { return len(t.elems) }

// At returns the i-th element and true, or (Null, false) if i is out of
// range.
func (t Tuple) At(i int) (Value, bool) {
	if i < 0 || i >= len(t.elems) {
		return Null(), false
	}
	return t.elems[i], true
}

// With returns a new tuple with v appended, or ErrTupleArity if that would
// exceed MaxTupleArity.
func (t Tuple) With(v Value) (Tuple, error) {
	if len(t.elems) >= MaxTupleArity {
		return Tuple{}, ErrTupleArity
	}
	next := make([]Value, len(t.elems)+1)
	copy(next, t.elems)
	next[len(t.elems)] = v
	return Tuple{elems: next}, nil
}

// Set returns a new tuple with index i replaced by v, or (Tuple{}, false) if
// i is out of range.
func (t Tuple) Set(i int, v Value) (Tuple, bool) {
	if i < 0 || i >= len(t.elems) {
		return Tuple{}, false
	}
	next := make([]Value, len(t.elems))
	copy(next, t.elems)
	next[i] = v
	return Tuple{elems: next}, true
}

// Elements returns a copy of the tuple's elements, safe for the caller to
// hold onto or mutate without affecting t.
func (t Tuple) Elements() []Value {
	out := make([]Value, len(t.elems))
	copy(out, t.elems)
	return out
}

func (t Tuple) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i, e := range t.elems {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(e.String())
	}
	sb.WriteByte(')')
	return sb.String()
}
