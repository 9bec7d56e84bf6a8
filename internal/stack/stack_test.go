// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package stack

import (
	"testing"

	"github.com/cellvm/tvmcore/internal/bigint"
	"github.com/cellvm/tvmcore/internal/vmerr"
	"github.com/stretchr/testify/require"
)

func TestPushPopOrder(t *testing.T) {
	s := New(0)
	require.NoError(t, s.Push(Integer(bigint.FromInt64(1))))
	require.NoError(t, s.Push(Integer(bigint.FromInt64(2))))
	top, err := s.Pop()
	require.NoError(t, err)
	v, _ := top.AsInteger()
	require.Equal(t, "2", v.String())
	require.Equal(t, 1, s.Depth())
}

func TestPopUnderflow(t *testing.T) {
	s := New(0)
	_, err := s.Pop()
	num, ok := vmerr.NumberOf(err)
	require.True(t, ok)
	require.Equal(t, vmerr.StackUnderflow, num)
}

func TestPushOverflow(t *testing.T) {
	s := New(1)
	require.NoError(t, s.Push(Null()))
	err := s.Push(Null())
	num, ok := vmerr.NumberOf(err)
	require.True(t, ok)
	require.Equal(t, vmerr.StackOverflow, num)
}

func TestXchg(t *testing.T) {
	s := New(0)
	push3(t, s, 1, 2, 3)
	require.NoError(t, s.Xchg(0, 2))
	vals := intStrings(s)
	require.Equal(t, []string{"3", "2", "1"}, vals)
}

func TestRollAndRollRev(t *testing.T) {
	s := New(0)
	push3(t, s, 1, 2, 3)
	require.NoError(t, s.Roll(2)) // top (3) moves to the bottom
	require.Equal(t, []string{"3", "1", "2"}, intStrings(s))

	s2 := New(0)
	push3(t, s2, 1, 2, 3)
	require.NoError(t, s2.RollRev(2)) // bottom (1) moves to the top
	require.Equal(t, []string{"2", "3", "1"}, intStrings(s2))
}

func TestBlkDrop2(t *testing.T) {
	s := New(0)
	push3(t, s, 1, 2, 3)
	require.NoError(t, s.Push(Integer(bigint.FromInt64(4))))
	// drop 2 values starting 1 deep: removes {2,3}... wait, depth-1 means
	// skip the top value (4) then drop the next 2 (3, 2), leaving [1, 4].
	require.NoError(t, s.BlkDrop2(2, 1))
	require.Equal(t, []string{"1", "4"}, intStrings(s))
}

func TestTupleArityLimit(t *testing.T) {
	elems := make([]Value, MaxTupleArity)
	tup, err := NewTuple(elems...)
	require.NoError(t, err)
	_, err = tup.With(Null())
	require.ErrorIs(t, err, ErrTupleArity)
}

func TestTupleImmutableSet(t *testing.T) {
	tup, err := NewTuple(Integer(bigint.FromInt64(1)), Integer(bigint.FromInt64(2)))
	require.NoError(t, err)
	next, ok := tup.Set(0, Integer(bigint.FromInt64(9)))
	require.True(t, ok)

	orig, _ := tup.At(0)
	v, _ := orig.AsInteger()
	require.Equal(t, "1", v.String())

	updated, _ := next.At(0)
	v2, _ := updated.AsInteger()
	require.Equal(t, "9", v2.String())
}

func push3(t *testing.T, s *Stack, a, b, c int64) {
	t.Helper()
	require.NoError(t, s.Push(Integer(bigint.FromInt64(a))))
	require.NoError(t, s.Push(Integer(bigint.FromInt64(b))))
	require.NoError(t, s.Push(Integer(bigint.FromInt64(c))))
}

func intStrings(s *Stack) []string {
	vals := s.Values()
	out := make([]string, len(vals))
	for i, v := range vals {
		n, _ := v.AsInteger()
		out[i] = n.String()
	}
	return out
}
