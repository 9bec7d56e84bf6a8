// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package cont

import "github.com/cellvm/tvmcore/internal/stack"

// Registers holds the sixteen control-register slots of a running
// invocation. c0 (next instruction on implicit return), c1 (alternate
// return), c2 (exception handler), c3 (current code dictionary), c4 (global
// data root), c5 (output actions), c6/c7 are reserved/runtime-context in
// spec §4.1's table; c14/c15 are named but implementation-reserved here, and
// the remaining slots exist only so the save-list addressing space covers
// all sixteen.
type Registers struct {
	slots [NumRegisters]stack.Value
	set   [NumRegisters]bool
}

// NewRegisters returns a register file with c0 and c2 defaulted to Quit(0)
// and ExceptionQuit respectively, as spec §4.4 requires ("a default
// c0 = quit(0)"), and c7 defaulted to an empty tuple value (the runtime
// context a real invocation installs before execution begins).
func NewRegisters() *Registers {
	r := &Registers{}
	r.Set(C0, stack.ContinuationValue(NewQuit(0)))
	r.Set(C2, stack.ContinuationValue(NewExceptionQuit()))
	empty, _ := stack.NewTuple()
	r.Set(C7, stack.TupleValue(empty))
	return r
}

// Get returns the current value of register r.
func (r *Registers) Get(reg Register) stack.Value {
	if !r.set[reg] {
		return stack.Null()
	}
	return r.slots[reg]
}

// Set assigns register r unconditionally (used for direct SETCONTCTR-style
// writes, not the save-list overlay path).
func (r *Registers) Set(reg Register, v stack.Value) {
	r.slots[reg] = v
	r.set[reg] = true
}

// Continuation is a convenience accessor returning Get(reg) as a
// *Continuation, or nil if the register does not currently hold one.
func (r *Registers) Continuation(reg Register) *Continuation {
	v := r.Get(reg)
	k, ok := v.AsContinuation()
	if !ok {
		return nil
	}
	c, ok := k.(*Continuation)
	if !ok {
		return nil
	}
	return c
}

// ApplySaveList performs the engine's jump/call register-overlay step
// (spec §4.4 "Save-list"): for each register present in sl, the current
// value is recorded into the returned restoration record (unless the
// caller's own restoration record, restore, already claims that slot —
// the write-once rule extended across a single call frame), and the
// register is overwritten with the save-list's entry.
func (r *Registers) ApplySaveList(sl *SaveList, restore *SaveList) {
	for reg := Register(0); reg < NumRegisters; reg++ {
		v, ok := sl.Get(reg)
		if !ok {
			continue
		}
		if restore != nil {
			restore.Put(reg, r.Get(reg))
		}
		r.Set(reg, v)
	}
}

// Jump transfers control to target: target's save-list is applied over the
// current registers (with no restoration recorded — a jump does not return),
// and target becomes the running continuation. Callers execute target's
// code themselves; Jump only performs the register-overlay half.
func (r *Registers) Jump(target *Continuation) {
	r.ApplySaveList(target.Save, nil)
}

// Call wraps the caller's continuation as the new c0 inside target's
// save-list before the jump, so that when target implicitly returns, the
// save-list-restored c0 resumes the caller (spec §4.4 "Call").
func (r *Registers) Call(caller *Continuation, target *Continuation) {
	sl := target.Save
	if _, occupied := sl.Get(C0); !occupied {
		sl = sl.Clone()
		sl.Put(C0, stack.ContinuationValue(caller))
	}
	r.ApplySaveList(sl, nil)
}
