// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package cont

import (
	"testing"

	"github.com/cellvm/tvmcore/internal/bigint"
	"github.com/cellvm/tvmcore/internal/stack"
	"github.com/stretchr/testify/require"
)

func TestSaveListWriteOnce(t *testing.T) {
	sl := NewSaveList()
	require.True(t, sl.Put(C0, stack.Integer(bigint.FromInt64(1))))
	require.False(t, sl.Put(C0, stack.Integer(bigint.FromInt64(2))))

	v, ok := sl.Get(C0)
	require.True(t, ok)
	n, _ := v.AsInteger()
	require.Equal(t, "1", n.String())
}

func TestDefaultRegistersQuitAndExceptionQuit(t *testing.T) {
	r := NewRegisters()
	c0 := r.Continuation(C0)
	require.NotNil(t, c0)
	require.Equal(t, Quit, c0.Typ)

	c2 := r.Continuation(C2)
	require.NotNil(t, c2)
	require.Equal(t, ExceptionQuit, c2.Typ)
}

func TestJumpAppliesSaveList(t *testing.T) {
	r := NewRegisters()
	originalC0 := r.Continuation(C0)

	target := &Continuation{Typ: Ordinary, Save: NewSaveList(), NArgs: -1}
	target.Save.Put(C0, stack.ContinuationValue(NewQuit(42)))

	r.Jump(target)
	newC0 := r.Continuation(C0)
	require.Equal(t, 42, newC0.ExitCode)
	require.NotEqual(t, originalC0, newC0)
}

func TestCallInstallsCallerAsC0(t *testing.T) {
	r := NewRegisters()
	caller := &Continuation{Typ: Ordinary, Save: NewSaveList(), NArgs: -1}
	target := &Continuation{Typ: Ordinary, Save: NewSaveList(), NArgs: -1}

	r.Call(caller, target)
	c0 := r.Continuation(C0)
	require.Same(t, caller, c0)
}

func TestWithArgsCapturesStack(t *testing.T) {
	base := &Continuation{Typ: Ordinary, Save: NewSaveList(), NArgs: -1}
	args := []stack.Value{stack.Integer(bigint.FromInt64(7))}
	bound := base.WithArgs(args, 1)
	require.Equal(t, 1, bound.Captured.Depth())
	require.Equal(t, 1, bound.NArgs)
	// base is untouched
	require.Nil(t, base.Captured)
}
