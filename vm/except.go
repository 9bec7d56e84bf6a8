// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package vm

import (
	"github.com/cellvm/tvmcore/internal/bigint"
	"github.com/cellvm/tvmcore/internal/cont"
	"github.com/cellvm/tvmcore/internal/stack"
	"github.com/cellvm/tvmcore/internal/vmerr"
)

// tryFrame is the dynamic-extent record TRY/TRYARGS/TRYKEEP installs while
// their body continuation runs: which continuation catches a throw, whether
// the live stack is kept or discarded on catch entry, the c2 value to
// restore once the body's dynamic extent ends (by exception or by normal
// return), and the resume continuation whose re-entry marks that end.
type tryFrame struct {
	handler *cont.Continuation
	keep    bool
	prevC2  stack.Value
	resume  *cont.Continuation
}

// raise is the engine's single exception-delivery path: every internal
// fault and every THROW/THROWIF routes through it. It finds the innermost
// active TRY frame (or, absent one, c2 itself), restores the c2 that frame
// saved if it is a TRY frame (c0 is left as it is), resets the stack to empty unless the
// frame says to keep it (TRYKEEP), pushes [value, number], and transfers
// control into the handler.
func (e *Engine) raise(number vmerr.Number, value stack.Value) {
	var handler *cont.Continuation
	keep := false
	if n := len(e.tryFrames); n > 0 {
		frame := e.tryFrames[n-1]
		e.tryFrames = e.tryFrames[:n-1]
		e.Regs.Set(cont.C2, frame.prevC2)
		handler = frame.handler
		keep = frame.keep
	} else {
		handler = e.Regs.Continuation(cont.C2)
	}
	if !keep {
		e.Stack.Replace(nil)
	}
	_ = e.Stack.Push(value)
	_ = e.Stack.Push(stack.Integer(bigint.FromInt64(int64(number))))
	e.jumpTo(handler)
}

// raiseException adapts a Go error (almost always a *vmerr.Exception
// produced by internal/stack, internal/gas or internal/cell) into a raise
// call; anything that is not an *vmerr.Exception becomes an UnknownError
// with no payload, since it indicates an internal invariant violation
// rather than a modeled VM fault.
func (e *Engine) raiseException(err error) {
	if exc, ok := err.(*vmerr.Exception); ok {
		v, _ := exc.Value.(stack.Value)
		e.raise(exc.Number, v)
		return
	}
	e.raise(vmerr.UnknownError, stack.Null())
}

// execTry implements TRY/TRYKEEP/TRYARGS: pop the catch and body
// continuations, arrange for body to run with catch installed as c2, and
// hand control to body. The engine runs every continuation against the one
// live stack rather than splicing in a per-continuation captured copy, so
// argCount < 0 (plain TRY/TRYKEEP) is a no-op check, while argCount >= 0
// (TRYARGS) only verifies the live stack is at least argCount deep before
// body ever runs — the n-argument isolation TRYARGS promises in a
// captured-stack implementation is, here, just a precondition check.
func (e *Engine) execTry(keep bool, argCount int) {
	catchVal, err := e.Stack.Pop()
	if err != nil {
		e.raiseException(err)
		return
	}
	bodyVal, err := e.Stack.Pop()
	if err != nil {
		e.raiseException(err)
		return
	}
	catchAny, ok := catchVal.AsContinuation()
	if !ok {
		e.raise(vmerr.TypeCheckError, stack.Null())
		return
	}
	bodyAny, ok := bodyVal.AsContinuation()
	if !ok {
		e.raise(vmerr.TypeCheckError, stack.Null())
		return
	}
	catch, ok := catchAny.(*cont.Continuation)
	if !ok {
		e.raise(vmerr.TypeCheckError, stack.Null())
		return
	}
	body, ok := bodyAny.(*cont.Continuation)
	if !ok {
		e.raise(vmerr.TypeCheckError, stack.Null())
		return
	}

	if argCount >= 0 && e.Stack.Depth() < argCount {
		e.raise(vmerr.StackUnderflow, stack.Null())
		return
	}

	frame := &tryFrame{
		handler: catch,
		keep:    keep,
		prevC2:  e.Regs.Get(cont.C2),
		resume:  e.current(),
	}
	e.tryFrames = append(e.tryFrames, frame)
	e.Regs.Set(cont.C2, stack.ContinuationValue(catch))
	e.callInto(body)
}

// endTryIfResuming pops and unwinds the innermost try frame if target is
// its resume point: a normal (non-exception) return out of a TRY body must
// restore c2 exactly as an exception catch would, since the frame's
// dynamic extent has ended either way.
func (e *Engine) endTryIfResuming(target *cont.Continuation) {
	n := len(e.tryFrames)
	if n == 0 {
		return
	}
	frame := e.tryFrames[n-1]
	if frame.resume != target {
		return
	}
	e.tryFrames = e.tryFrames[:n-1]
	e.Regs.Set(cont.C2, frame.prevC2)
}
