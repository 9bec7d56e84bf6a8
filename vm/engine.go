// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package vm

import (
	"github.com/davecgh/go-spew/spew"
	"github.com/google/uuid"

	"github.com/cellvm/tvmcore/internal/arena"
	"github.com/cellvm/tvmcore/internal/capability"
	"github.com/cellvm/tvmcore/internal/cell"
	"github.com/cellvm/tvmcore/internal/cont"
	"github.com/cellvm/tvmcore/internal/gas"
	"github.com/cellvm/tvmcore/internal/stack"
	"github.com/cellvm/tvmcore/internal/vmerr"
	"github.com/cellvm/tvmcore/log"
)

// Committed holds the last successfully COMMITted c4/c5 snapshot (spec
// §7: "the committed state reflects the last successful COMMIT, not the
// post-exception state").
type Committed struct {
	C4 stack.Value
	C5 stack.Value
	ok bool
}

// Engine is one invocation of the execution core: its stack, control
// registers, gas meter, capability set, and exotic-cell resolver.
type Engine struct {
	Stack *stack.Stack
	Regs  *cont.Registers
	Gas   *gas.Meter
	Caps  capability.Set

	resolver   *cell.Resolver
	arena      *arena.Arena
	committed  Committed
	halted     bool
	exitCode   int
	tryFrames  []*tryFrame
	callFrames []*callFrame

	correlationID string
	log           log.Logger
}

// Config bundles an Engine's construction-time parameters.
type Config struct {
	MaxStackDepth int
	GasLimitMax   uint64
	GasLimit      uint64
	Caps          capability.Set
	Libraries     cell.LibraryProvider
	LibraryLRU    int
	Logger        log.Logger
	// ArenaSize sizes the mmap-backed scratch allocator new cell builders
	// draw their backing arrays from (0 picks arena's own default; a
	// negative value disables the arena and falls back to plain heap
	// allocation for every builder).
	ArenaSize int
}

// New builds an Engine ready to run code.
func New(code *cell.Slice, cfg Config) (*Engine, error) {
	if cfg.LibraryLRU <= 0 {
		cfg.LibraryLRU = 256
	}
	resolver, err := cell.NewResolver(cfg.Libraries, cfg.Caps, cfg.LibraryLRU)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New("component", "vm")
	}
	var scratch *arena.Arena
	if cfg.ArenaSize >= 0 {
		a, err := arena.New(cfg.ArenaSize)
		if err != nil {
			logger.Warn("scratch arena unavailable, falling back to heap allocation", "err", err)
		} else {
			scratch = a
		}
	}
	e := &Engine{
		Stack:         stack.New(cfg.MaxStackDepth),
		Regs:          cont.NewRegisters(),
		Gas:           gas.NewMeter(cfg.GasLimitMax, cfg.GasLimit),
		Caps:          cfg.Caps,
		resolver:      resolver,
		arena:         scratch,
		correlationID: uuid.NewString(),
		log:           logger,
	}
	e.Regs.Set(cont.C3, stack.ContinuationValue(cont.NewOrdinary(code)))
	e.current().Code = code
	return e, nil
}

// current returns c3, the continuation whose code the dispatcher is
// stepping through (spec §4.1: "c3 | Continuation | dictionary of
// procedures for CALLDICT", reused here as the top-level running code
// slot — the same continuation EXECUTE/JMPX replace in place).
func (e *Engine) current() *cont.Continuation {
	return e.Regs.Continuation(cont.C3)
}

func (e *Engine) setCurrent(c *cont.Continuation) {
	e.Regs.Set(cont.C3, stack.ContinuationValue(c))
}

// ExitCode returns the invocation's exit code once Halted() is true.
func (e *Engine) ExitCode() int { return e.exitCode }

// Halted reports whether the invocation has terminated.
func (e *Engine) Halted() bool { return e.halted }

// CommittedState returns the last successful COMMIT's c4/c5, or
// (Null, Null, false) if COMMIT was never reached.
func (e *Engine) CommittedState() (stack.Value, stack.Value, bool) {
	return e.committed.C4, e.committed.C5, e.committed.ok
}

// GasUsed returns the cumulative gas charged so far.
func (e *Engine) GasUsed() uint64 { return e.Gas.Used() }

// Dump renders the engine's full live state — stack, control registers,
// try/call frames — for interactive debugging. Not called anywhere on the
// execution path itself; cmd/tvmrun's repl is its only caller.
func (e *Engine) Dump() string {
	return spew.Sdump(struct {
		Stack      []stack.Value
		Registers  *cont.Registers
		TryFrames  int
		CallFrames int
		Halted     bool
		ExitCode   int
		GasUsed    uint64
	}{
		Stack:      e.Stack.Values(),
		Registers:  e.Regs,
		TryFrames:  len(e.tryFrames),
		CallFrames: len(e.callFrames),
		Halted:     e.halted,
		ExitCode:   e.exitCode,
		GasUsed:    e.Gas.Used(),
	})
}

// Close releases the engine's scratch arena, if it has one. Callers that
// construct an Engine should defer Close once the invocation has run to
// completion and its result has been read out.
func (e *Engine) Close() error {
	return e.arena.Close()
}

// Run steps the engine until it halts, returning the exit code.
func (e *Engine) Run() (int, error) {
	for !e.halted {
		if err := e.Step(); err != nil {
			return 0, err
		}
	}
	return e.exitCode, nil
}

// halt terminates the invocation with the given exit code.
func (e *Engine) halt(code int) {
	e.halted = true
	e.exitCode = code
}

// Step decodes and executes a single instruction, or processes an implicit
// return / terminal continuation if the current continuation has no more
// code. Step never returns a bare Go error for an in-invocation fault; it
// only returns non-nil for a Go-API-level misuse (Step called after halt).
func (e *Engine) Step() error {
	if e.halted {
		return vmerr.New(vmerr.FatalError, stack.Null())
	}
	cc := e.current()
	switch cc.Typ {
	case cont.Quit:
		e.halt(cc.ExitCode)
		return nil
	case cont.ExceptionQuit:
		// Reaching here means c2's default fired: stack is [value, number].
		n, _ := e.Stack.Top(0)
		code := 0
		if num, ok := n.AsInteger(); ok {
			if bi, ok := num.BigInt(); ok {
				code = int(bi.Int64())
			}
		}
		e.halt(code)
		return nil
	case cont.Again, cont.Repeat, cont.Until, cont.While:
		e.stepLoop(cc)
		return nil
	}
	if cc.Exhausted() {
		e.jumpTo(e.Regs.Continuation(cont.C0))
		return nil
	}
	op, operand, opBytes, derr := decode(cc.Code)
	if derr != nil {
		e.raise(vmerr.InvalidOpcode, stack.Null())
		return nil
	}
	if bit, gated := op.requiredCapability(); gated && !e.Caps.Has(bit) {
		e.raise(vmerr.InvalidOpcode, stack.Null())
		return nil
	}
	if gasErr := e.Gas.ChargeInstruction(opBytes); gasErr != nil {
		e.raiseException(gasErr)
		return nil
	}
	e.execute(op, operand)
	return nil
}

// jumpTo performs a JMP-shaped transfer: the target's save-list overlays
// the registers and becomes the running continuation.
func (e *Engine) jumpTo(target *cont.Continuation) {
	if target == nil {
		e.halt(0)
		return
	}
	e.endTryIfResuming(target)
	e.endCallIfResuming(target)
	e.Regs.Jump(target)
	e.setCurrent(target)
	e.applyCaptured(target)
}

// applyCaptured restores a SETCONTARGS/BLESS-bound continuation's fixed
// argument stack onto the live operand stack the moment it becomes current,
// then clears it so a second entry (a loop re-visiting the same
// continuation object) does not push the same arguments twice.
func (e *Engine) applyCaptured(target *cont.Continuation) {
	if target.Captured == nil {
		return
	}
	args := target.Captured.Values()
	target.Captured = nil
	if err := e.Stack.PushN(args); err != nil {
		e.raiseException(err)
	}
}

// callFrame is the dynamic-extent record callInto installs so a caller's own
// c0 can be restored once the callee implicitly returns to it — without
// this, c0 would stay overwritten with the caller itself past the point the
// call resolves, and a caller that immediately re-exhausts (its own code
// already fully consumed before the call) would jump back to itself forever
// instead of unwinding to whatever its own c0 pointed at.
type callFrame struct {
	prevC0 stack.Value
	resume *cont.Continuation
}

// callInto performs a CALL-shaped transfer: the caller becomes the new c0
// inside target's save-list before the jump.
func (e *Engine) callInto(target *cont.Continuation) {
	caller := e.current()
	e.callFrames = append(e.callFrames, &callFrame{prevC0: e.Regs.Get(cont.C0), resume: caller})
	e.Regs.Call(caller, target)
	e.setCurrent(target)
	e.applyCaptured(target)
}

// endCallIfResuming restores c0 to its pre-call value once execution jumps
// back into the call frame's resume point (mirrors endTryIfResuming for c2).
func (e *Engine) endCallIfResuming(target *cont.Continuation) {
	n := len(e.callFrames)
	if n == 0 {
		return
	}
	frame := e.callFrames[n-1]
	if frame.resume != target {
		return
	}
	e.callFrames = e.callFrames[:n-1]
	e.Regs.Set(cont.C0, frame.prevC0)
}
