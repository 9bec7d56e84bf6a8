// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package vm

import (
	"github.com/cellvm/tvmcore/internal/cont"
	"github.com/cellvm/tvmcore/internal/stack"
	"github.com/cellvm/tvmcore/internal/vmerr"
)

// stepLoop advances a looping continuation (spec §4.4's Again/Repeat/Until/
// While) by one visit. Step() reaches here every time the current
// continuation is one of these four types: once right after the opcode
// that built the loop (AGAIN/REPEAT/UNTIL/WHILE and their END/BRK
// variants), and again every time a loop iteration's body implicitly
// returns — the callInto below installs the loop continuation itself as
// the body's resume point (via callInto's own caller-as-c0 bookkeeping), so
// the body's own exhaustion naturally jumps back here for the next visit.
func (e *Engine) stepLoop(cc *cont.Continuation) {
	switch cc.Typ {
	case cont.Again:
		e.callInto(freshContinuation(cc.Body))

	case cont.Repeat:
		if cc.Counter <= 0 {
			e.exitLoop(cc)
			return
		}
		cc.Counter--
		e.callInto(freshContinuation(cc.Body))

	case cont.Until:
		if cc.Counter == 0 {
			cc.Counter = 1
			e.callInto(freshContinuation(cc.Body))
			return
		}
		done, err := e.popLoopFlag()
		if err != nil {
			e.raiseException(err)
			return
		}
		if done {
			e.exitLoop(cc)
			return
		}
		e.callInto(freshContinuation(cc.Body))

	case cont.While:
		if cc.Counter == 0 {
			cc.Counter = 1
			e.callInto(freshContinuation(cc.Cond))
			return
		}
		truth, err := e.popLoopFlag()
		if err != nil {
			e.raiseException(err)
			return
		}
		if !truth {
			e.exitLoop(cc)
			return
		}
		cc.Counter = 0
		e.callInto(freshContinuation(cc.Body))
	}
}

// freshContinuation returns an independent copy of c whose code (if any) is
// an independent cursor over the same underlying cells — each loop
// iteration needs its own cursor since decode() advances it in place, but
// the loop continuation's own Body/Cond must stay replayable.
func freshContinuation(c *cont.Continuation) *cont.Continuation {
	if c == nil {
		return nil
	}
	cp := *c
	if c.Code != nil {
		cp.Code = c.Code.Clone()
	}
	return &cp
}

// popLoopFlag pops the top-of-stack integer truth value UNTIL/WHILE inspect
// between iterations.
func (e *Engine) popLoopFlag() (bool, error) {
	v, err := e.Stack.Pop()
	if err != nil {
		return false, err
	}
	truth, ok := v.IsTrue()
	if !ok {
		return false, vmerr.New(vmerr.TypeCheckError, stack.Null())
	}
	return truth, nil
}

// exitLoop performs a loop's natural (non-exception, non-RETALT) exit:
// c1 is restored if a …BRK variant armed a break target, then control
// transfers to c0 (spec: "counter reaching 0 transfers to c0", generalized
// to every loop kind's termination condition).
func (e *Engine) exitLoop(cc *cont.Continuation) {
	if cc.HasBrk {
		e.Regs.Set(cont.C1, cc.SavedC1)
	}
	e.jumpTo(e.Regs.Continuation(cont.C0))
}

// armBreak installs brk as loop's break target: the live c1 is saved for
// restoration at the loop's natural exit, and overwritten so a RETALT
// inside the loop body reaches brk. A RETALT taken before the loop exits
// naturally bypasses the restore — an accepted, documented gap (DESIGN.md).
func (e *Engine) armBreak(loop, brk *cont.Continuation) {
	loop.HasBrk = true
	loop.SavedC1 = e.Regs.Get(cont.C1)
	loop.Brk = brk
	e.Regs.Set(cont.C1, stack.ContinuationValue(brk))
}
