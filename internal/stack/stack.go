// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package stack

import "github.com/cellvm/tvmcore/internal/vmerr"

// DefaultMaxDepth is the engine-wide stack depth ceiling used when an
// Engine does not override it (spec §4.3: "implementation choice; typical
// 256 or higher").
const DefaultMaxDepth = 10000

// Stack is the VM's operand stack: a bounded-depth vector of Values,
// indexed zero-based from the top for every op in spec §4.3. It is not
// safe for concurrent use; an Engine owns exactly one per invocation.
type Stack struct {
	v       []Value // v[len-1] is the top
	maxDepth int
}

// New returns an empty stack with the given depth ceiling (0 selects
// DefaultMaxDepth).
func New(maxDepth int) *Stack {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Stack{maxDepth: maxDepth}
}

// Depth implements DEPTH.
func (s *Stack) Depth() int { return len(s.v) }

func underflow() *vmerr.Exception { return vmerr.New(vmerr.StackUnderflow, Null()) }
func overflow() *vmerr.Exception  { return vmerr.New(vmerr.StackOverflow, Null()) }
func rangeErr() *vmerr.Exception  { return vmerr.New(vmerr.RangeCheckError, Null()) }

// Push appends v to the top, raising StackOverflow past the depth ceiling.
func (s *Stack) Push(v Value) error {
	if len(s.v) >= s.maxDepth {
		return overflow()
	}
	s.v = append(s.v, v)
	return nil
}

// Pop removes and returns the top value, raising StackUnderflow if empty.
func (s *Stack) Pop() (Value, error) {
	if len(s.v) == 0 {
		return Value{}, underflow()
	}
	top := s.v[len(s.v)-1]
	s.v = s.v[:len(s.v)-1]
	return top, nil
}

// Top returns, without removing, the value n from the top (n == 0 is the
// topmost element).
func (s *Stack) Top(n int) (Value, error) {
	if n < 0 {
		return Value{}, rangeErr()
	}
	if n >= len(s.v) {
		return Value{}, underflow()
	}
	return s.v[len(s.v)-1-n], nil
}

// Set overwrites the value n from the top in place.
func (s *Stack) Set(n int, v Value) error {
	if n < 0 {
		return rangeErr()
	}
	if n >= len(s.v) {
		return underflow()
	}
	s.v[len(s.v)-1-n] = v
	return nil
}

// PopN pops the top n values, returning them in bottom-to-top order
// (PopN(2) on [... a b] returns [a, b]). Used by SETCONTARGS/BLESS-style
// operators that hand a fixed-arity argument list to a continuation.
func (s *Stack) PopN(n int) ([]Value, error) {
	if n < 0 {
		return nil, rangeErr()
	}
	if n > len(s.v) {
		return nil, underflow()
	}
	out := make([]Value, n)
	copy(out, s.v[len(s.v)-n:])
	s.v = s.v[:len(s.v)-n]
	return out, nil
}

// PushN appends vs in order (bottom-to-top), the inverse of PopN.
func (s *Stack) PushN(vs []Value) error {
	if len(s.v)+len(vs) > s.maxDepth {
		return overflow()
	}
	s.v = append(s.v, vs...)
	return nil
}

// Xchg swaps the values at depths i and j from the top (XCHG m,n).
func (s *Stack) Xchg(i, j int) error {
	if i < 0 || j < 0 {
		return rangeErr()
	}
	if i >= len(s.v) || j >= len(s.v) {
		return underflow()
	}
	a, b := len(s.v)-1-i, len(s.v)-1-j
	s.v[a], s.v[b] = s.v[b], s.v[a]
	return nil
}

// Dup pushes a copy of the value n from the top (PUSH n).
func (s *Stack) Dup(n int) error {
	v, err := s.Top(n)
	if err != nil {
		return err
	}
	return s.Push(v)
}

// BlkPush pushes n copies of the value currently at depth j from the top
// (BLKPUSH m,n's per-element step; callers loop this or use it directly for
// the single-source bulk-duplicate case).
func (s *Stack) BlkPush(count, j int) error {
	v, err := s.Top(j)
	if err != nil {
		return err
	}
	for k := 0; k < count; k++ {
		if err := s.Push(v); err != nil {
			return err
		}
	}
	return nil
}

// BlkDrop removes the top n values (BLKDROP n).
func (s *Stack) BlkDrop(n int) error {
	_, err := s.PopN(n)
	return err
}

// BlkDrop2 removes n values starting at depth j from the top, closing the
// gap (BLKDROP2 m,n — "drop m values starting j deep").
func (s *Stack) BlkDrop2(count, j int) error {
	if count < 0 || j < 0 {
		return rangeErr()
	}
	if j+count > len(s.v) {
		return underflow()
	}
	end := len(s.v) - j
	start := end - count
	s.v = append(s.v[:start], s.v[end:]...)
	return nil
}

// BlkSwap exchanges the top i values with the i..i+j values beneath them
// (BLKSWAP i,j).
func (s *Stack) BlkSwap(i, j int) error {
	if i < 0 || j < 0 {
		return rangeErr()
	}
	if i+j > len(s.v) {
		return underflow()
	}
	n := len(s.v)
	top := append([]Value{}, s.v[n-i:]...)
	mid := append([]Value{}, s.v[n-i-j:n-i]...)
	copy(s.v[n-i-j:], top)
	copy(s.v[n-j:], mid)
	return nil
}

// Reverse reverses the i values starting at depth j from the top (REVERSE
// i,j).
func (s *Stack) Reverse(i, j int) error {
	if i < 0 || j < 0 {
		return rangeErr()
	}
	if j+i > len(s.v) {
		return underflow()
	}
	end := len(s.v) - j
	start := end - i
	for a, b := start, end-1; a < b; a, b = a+1, b-1 {
		s.v[a], s.v[b] = s.v[b], s.v[a]
	}
	return nil
}

// Roll moves the top value to depth n, shifting the intervening values up
// (ROLL n, n >= 0; n == 0 is a no-op).
func (s *Stack) Roll(n int) error {
	if n < 0 {
		return rangeErr()
	}
	if n >= len(s.v) {
		return underflow()
	}
	if n == 0 {
		return nil
	}
	top := len(s.v) - 1
	v := s.v[top]
	for i := top; i > top-n; i-- {
		s.v[i] = s.v[i-1]
	}
	s.v[top-n] = v
	return nil
}

// RollRev is the inverse of Roll: moves the value at depth n to the top.
func (s *Stack) RollRev(n int) error {
	if n < 0 {
		return rangeErr()
	}
	if n >= len(s.v) {
		return underflow()
	}
	if n == 0 {
		return nil
	}
	top := len(s.v) - 1
	idx := top - n
	v := s.v[idx]
	for i := idx; i < top; i++ {
		s.v[i] = s.v[i+1]
	}
	s.v[top] = v
	return nil
}

// KeepTop discards every value except the top n, closing the gap
// underneath them (ONLYTOPX/ONLYX).
func (s *Stack) KeepTop(n int) error {
	if n < 0 {
		return rangeErr()
	}
	if n > len(s.v) {
		return underflow()
	}
	s.v = append([]Value{}, s.v[len(s.v)-n:]...)
	return nil
}

// Clone returns an independent copy of the stack's contents. The engine's
// TRY/TRYARGS handling does not snapshot the stack through it.
func (s *Stack) Clone() *Stack {
	cp := make([]Value, len(s.v))
	copy(cp, s.v)
	return &Stack{v: cp, maxDepth: s.maxDepth}
}

// Replace discards the stack's contents and installs vs in their place
// (the engine's raise calls Replace(nil) to empty the stack before a non-
// TRYKEEP handler runs).
func (s *Stack) Replace(vs []Value) {
	s.v = append([]Value{}, vs...)
}

// Values returns a copy of the stack contents, bottom-to-top.
func (s *Stack) Values() []Value {
	out := make([]Value, len(s.v))
	copy(out, s.v)
	return out
}
