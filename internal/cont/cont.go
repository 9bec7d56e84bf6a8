// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

// Package cont implements continuations, the save-list overlay mechanism,
// and the sixteen control registers that together drive the engine's
// control-flow primitives (spec §4.4). A Continuation is deliberately not a
// closure over Go's call stack: it is a first-class Value (code, a captured
// stack, a save-list, an arity and a ContinuationType) so that JMPX, CALLX,
// SETCONTARGS, and friends can inspect and rebuild it the way the reference
// VM's opcodes do.
package cont

import (
	"fmt"

	"github.com/cellvm/tvmcore/internal/cell"
	"github.com/cellvm/tvmcore/internal/stack"
)

// Register names the sixteen control registers. Only c0-c7, c14 and c15 are
// given semantics by spec §4.1's register table; the rest are reserved, but
// the save-list mapping still has to address all sixteen slots by number.
type Register int

const (
	C0 Register = iota
	C1
	C2
	C3
	C4
	C5
	C6
	C7
	C8
	C9
	C10
	C11
	C12
	C13
	C14
	C15
)

// NumRegisters is the fixed control-register count.
const NumRegisters = 16

// Type distinguishes the flavors of Continuation the control-flow opcodes
// build and consume.
type Type uint8

const (
	// Ordinary is a ready-to-run continuation: a code slice plus a captured
	// stack and save-list. An empty code slice with the default c0 triggers
	// implicit return (spec §4.4: "ordinary-type continuation with an empty
	// code slice and a default c0 = quit(0) terminates the VM").
	Ordinary Type = iota
	// Again stores its body; every completion of the body re-enters it.
	Again
	// Repeat carries a decrementing counter; reaching zero transfers to c0.
	Repeat
	// Until runs its body, then loops while the top-of-stack integer is zero.
	Until
	// While alternates a condition continuation and a body continuation.
	While
	// PushInt is a zero-argument continuation that, when entered, pushes a
	// fixed integer and falls through to an inner continuation — used by
	// compiled constant-folding paths in the reference assembler; the
	// engine only needs to execute it, never produce it.
	PushInt
	// ExceptionQuit is c2's default value: entering it terminates the VM
	// with exit code = the thrown number and stack [value, number].
	ExceptionQuit
	// Quit is c0's default value: entering it terminates the VM with a
	// fixed exit code.
	Quit
)

func (t Type) String() string {
	switch t {
	case Ordinary:
		return "ordinary"
	case Again:
		return "again"
	case Repeat:
		return "repeat"
	case Until:
		return "until"
	case While:
		return "while"
	case PushInt:
		return "pushint"
	case ExceptionQuit:
		return "exc_quit"
	case Quit:
		return "quit"
	default:
		return "unknown"
	}
}

// SaveList is the target's {register -> Value} overlay applied on jump/call
// (spec §4.4). Entries are write-once per frame: Put on an already-occupied
// slot is a no-op that reports failure so the caller can choose not to
// disturb the existing entry, matching "attempting to put into an already-
// populated save-list slot leaves the old value."
type SaveList struct {
	entries [NumRegisters]*stack.Value
}

// NewSaveList returns an empty save-list.
func NewSaveList() *SaveList { return &SaveList{} }

// Get returns the value saved for r and true, or (zero, false) if unset.
func (sl *SaveList) Get(r Register) (stack.Value, bool) {
	v := sl.entries[r]
	if v == nil {
		return stack.Value{}, false
	}
	return *v, true
}

// Put stores v for r if the slot is empty, returning true on success or
// false if a value is already present (the write-once rule).
func (sl *SaveList) Put(r Register, v stack.Value) bool {
	if sl.entries[r] != nil {
		return false
	}
	cp := v
	sl.entries[r] = &cp
	return true
}

// Clone returns an independent copy of the save-list.
func (sl *SaveList) Clone() *SaveList {
	out := &SaveList{}
	for i, v := range sl.entries {
		if v != nil {
			cp := *v
			out.entries[i] = &cp
		}
	}
	return out
}

// Continuation is the engine's first-class control-flow value.
type Continuation struct {
	Typ      Type
	Code     *cell.Slice // nil for Quit/ExceptionQuit
	Captured *stack.Stack
	Save     *SaveList
	NArgs    int // -1 means "unspecified / any"

	// ExitCode is meaningful only for Quit/ExceptionQuit.
	ExitCode int

	// Body/Cond are used by Again/Repeat/Until/While to hold the nested
	// continuations their looping semantics need. Counter doubles as
	// Repeat's remaining iteration count and as Until/While's 0/1 phase
	// flag (distinguishing "about to run body/cond" from "body/cond just
	// returned, inspect its result").
	Body    *Continuation
	Cond    *Continuation
	Counter int64

	// Brk/SavedC1/HasBrk back the …BRK loop variants: Brk is the break
	// target installed into the live c1 register for the loop's extent
	// (reachable via RETALT from inside the body), SavedC1 is the c1 value
	// to restore once the loop exits normally. A break taken via RETALT
	// instead of the loop's own natural exit bypasses that restore — see
	// DESIGN.md.
	Brk     *Continuation
	SavedC1 stack.Value
	HasBrk  bool
}

// NewAgain builds an Again-type loop continuation over body.
func NewAgain(body *Continuation) *Continuation {
	return &Continuation{Typ: Again, Save: NewSaveList(), NArgs: -1, Body: body}
}

// NewRepeat builds a Repeat-type loop continuation over body, iterating it
// count times (count <= 0 runs the body zero times).
func NewRepeat(body *Continuation, count int64) *Continuation {
	return &Continuation{Typ: Repeat, Save: NewSaveList(), NArgs: -1, Body: body, Counter: count}
}

// NewUntil builds an Until-type loop continuation over body.
func NewUntil(body *Continuation) *Continuation {
	return &Continuation{Typ: Until, Save: NewSaveList(), NArgs: -1, Body: body}
}

// NewWhile builds a While-type loop continuation alternating cond and body.
func NewWhile(cond, body *Continuation) *Continuation {
	return &Continuation{Typ: While, Save: NewSaveList(), NArgs: -1, Cond: cond, Body: body}
}

// NewOrdinary builds a ready-to-run ordinary continuation from a code
// slice, with a fresh empty save-list.
func NewOrdinary(code *cell.Slice) *Continuation {
	return &Continuation{Typ: Ordinary, Code: code, Save: NewSaveList(), NArgs: -1}
}

// NewQuit builds the fixed c0/c2 terminal continuation for the given exit
// code (Quit for c0, use NewExceptionQuit for c2's default).
func NewQuit(exitCode int) *Continuation {
	return &Continuation{Typ: Quit, Save: NewSaveList(), NArgs: -1, ExitCode: exitCode}
}

// NewExceptionQuit builds c2's default value.
func NewExceptionQuit() *Continuation {
	return &Continuation{Typ: ExceptionQuit, Save: NewSaveList(), NArgs: -1}
}

// Exhausted reports whether an ordinary continuation's code has no more
// instructions to decode, triggering implicit return.
func (c *Continuation) Exhausted() bool {
	return c.Typ == Ordinary && c.Code != nil && c.Code.Empty()
}

func (c *Continuation) String() string {
	switch c.Typ {
	case Quit, ExceptionQuit:
		return fmt.Sprintf("Cont{%s exit=%d}", c.Typ, c.ExitCode)
	default:
		return fmt.Sprintf("Cont{%s nargs=%d}", c.Typ, c.NArgs)
	}
}

// WithArgs returns a shallow copy of c carrying a captured argument stack
// and arity, the way SETCONTARGS/BLESS attach a fixed stack to a bare code
// slice before it becomes callable.
func (c *Continuation) WithArgs(args []stack.Value, nargs int) *Continuation {
	cp := *c
	captured := stack.New(0)
	_ = captured.PushN(args)
	cp.Captured = captured
	cp.NArgs = nargs
	return &cp
}
