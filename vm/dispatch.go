// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package vm

import (
	"errors"

	"github.com/cellvm/tvmcore/internal/bigint"
	"github.com/cellvm/tvmcore/internal/cell"
	"github.com/cellvm/tvmcore/internal/cont"
	"github.com/cellvm/tvmcore/internal/dict"
	"github.com/cellvm/tvmcore/internal/gas"
	"github.com/cellvm/tvmcore/internal/stack"
	"github.com/cellvm/tvmcore/internal/vmerr"
)

// execute dispatches a single decoded instruction. It never returns an
// error: every fault it hits is delivered through e.raise/e.raiseException
// and the dispatcher simply returns afterward, letting the next Step()
// observe the post-exception state (a new current continuation, typically).
func (e *Engine) execute(op Opcode, operand operand) {
	switch op {

	// ---- stack literals and simple stack ops ---------------------------

	case OpPushInt:
		e.push(stack.Integer(bigint.FromInt64(operand.Imm)))
	case OpPushNaN:
		e.push(stack.Integer(bigint.NaN()))
	case OpPushPow2:
		e.execPushPow2(int(operand.Imm))
	case OpPushCont:
		k := cont.NewOrdinary(cell.NewSlice(operand.Refs[0]))
		e.push(stack.ContinuationValue(k))
	case OpPop:
		if _, err := e.Stack.Pop(); err != nil {
			e.raiseException(err)
		}
	case OpDrop2:
		if _, err := e.Stack.PopN(2); err != nil {
			e.raiseException(err)
		}
	case OpDup:
		if err := e.Stack.Dup(0); err != nil {
			e.raiseException(err)
		}
	case OpXchg:
		i, j := int(operand.Imm>>8), int(operand.Imm&0xFF)
		if err := e.Stack.Xchg(i, j); err != nil {
			e.raiseException(err)
		}
	case OpDepth:
		e.push(stack.Integer(bigint.FromInt64(int64(e.Stack.Depth()))))

	// ---- stack bulk/runtime-index ops ---------------------------------------

	case OpBlkPush:
		count, j := int(operand.Imm>>8), int(operand.Imm&0xFF)
		if err := e.Stack.BlkPush(count, j); err != nil {
			e.raiseException(err)
		}
	case OpBlkDrop:
		if err := e.Stack.BlkDrop(int(operand.Imm)); err != nil {
			e.raiseException(err)
		}
	case OpBlkDrop2:
		count, j := int(operand.Imm>>8), int(operand.Imm&0xFF)
		if err := e.Stack.BlkDrop2(count, j); err != nil {
			e.raiseException(err)
		}
	case OpBlkSwap:
		i, j := int(operand.Imm>>8), int(operand.Imm&0xFF)
		if err := e.Stack.BlkSwap(i, j); err != nil {
			e.raiseException(err)
		}
	case OpReverse:
		i, j := int(operand.Imm>>8), int(operand.Imm&0xFF)
		if err := e.Stack.Reverse(i, j); err != nil {
			e.raiseException(err)
		}
	case OpRoll:
		if err := e.Stack.Roll(int(operand.Imm)); err != nil {
			e.raiseException(err)
		}
	case OpRollRev:
		if err := e.Stack.RollRev(int(operand.Imm)); err != nil {
			e.raiseException(err)
		}
	case OpOnlyTopX:
		if err := e.Stack.KeepTop(int(operand.Imm)); err != nil {
			e.raiseException(err)
		}
	case OpPick:
		if err := e.Stack.Dup(int(operand.Imm)); err != nil {
			e.raiseException(err)
		}
	case OpXchg3:
		i, j, k := int(operand.Imm>>16)&0xFF, int(operand.Imm>>8)&0xFF, int(operand.Imm&0xFF)
		e.execXchg3(i, j, k)
	case OpPush3:
		i, j, k := int(operand.Imm>>16)&0xFF, int(operand.Imm>>8)&0xFF, int(operand.Imm&0xFF)
		e.execPush3(i, j, k)
	case OpOnlyX:
		n, err := e.popRuntimeIndex()
		if err != nil {
			return
		}
		if err := e.Stack.KeepTop(n); err != nil {
			e.raiseException(err)
		}
	case OpRollX:
		n, err := e.popRuntimeIndex()
		if err != nil {
			return
		}
		if err := e.Stack.Roll(n); err != nil {
			e.raiseException(err)
		}
	case OpDropX:
		n, err := e.popRuntimeIndex()
		if err != nil {
			return
		}
		if err := e.Stack.BlkDrop(n); err != nil {
			e.raiseException(err)
		}
	case OpBlkSwX:
		i, j, err := e.popRuntimeIndexPair()
		if err != nil {
			return
		}
		if err := e.Stack.BlkSwap(i, j); err != nil {
			e.raiseException(err)
		}
	case OpRevX:
		i, j, err := e.popRuntimeIndexPair()
		if err != nil {
			return
		}
		if err := e.Stack.Reverse(i, j); err != nil {
			e.raiseException(err)
		}
	case OpXchgX:
		i, j, err := e.popRuntimeIndexPair()
		if err != nil {
			return
		}
		if err := e.Stack.Xchg(i, j); err != nil {
			e.raiseException(err)
		}

	// ---- arithmetic -----------------------------------------------------

	case OpAdd:
		e.execBinArith(bigint.Add)
	case OpSub:
		e.execBinArith(bigint.Sub)
	case OpMul:
		e.execBinArith(bigint.Mul)
	case OpDivMod:
		e.execDivMod(bigint.RoundMode(operand.Imm))
	case OpInc:
		a, err := e.popInt()
		if err != nil {
			e.raiseException(err)
			return
		}
		r, aerr := bigint.Add(a, bigint.FromInt64(1))
		if aerr != nil {
			e.raise(vmerr.IntegerOverflow, stack.Null())
			return
		}
		e.push(stack.Integer(r))
	case OpNeg:
		a, err := e.popInt()
		if err != nil {
			e.raiseException(err)
			return
		}
		r, aerr := bigint.Neg(a)
		if aerr != nil {
			e.raise(vmerr.IntegerOverflow, stack.Null())
			return
		}
		e.push(stack.Integer(r))

	// ---- quiet / bitwise / comparison / shift big-integer ops ---------------

	case OpEqInt:
		e.execCmpInt(operand.Imm, func(c int) bool { return c == 0 })
	case OpLessInt:
		e.execCmpInt(operand.Imm, func(c int) bool { return c < 0 })
	case OpGtInt:
		e.execCmpInt(operand.Imm, func(c int) bool { return c > 0 })
	case OpLshift:
		e.execShift(true, bigint.RoundFloor)
	case OpRshift:
		e.execShift(false, bigint.RoundMode(operand.Imm))
	case OpQAdd:
		e.execQBinArith(bigint.QAdd)
	case OpQSub:
		e.execQBinArith(bigint.QSub)
	case OpQMul:
		e.execQBinArith(bigint.QMul)
	case OpQDivMod:
		e.execQDivMod(bigint.RoundMode(operand.Imm))
	case OpAnd:
		e.execBinArith(bigint.And)
	case OpOr:
		e.execBinArith(bigint.Or)
	case OpXor:
		e.execBinArith(bigint.Xor)
	case OpNot:
		a, err := e.popInt()
		if err != nil {
			e.raiseException(err)
			return
		}
		r, aerr := bigint.Not(a)
		if aerr != nil {
			e.raise(vmerr.IntegerOverflow, stack.Null())
			return
		}
		e.push(stack.Integer(r))
	case OpDiv:
		e.execDivOnly(bigint.RoundMode(operand.Imm))
	case OpMod:
		e.execModOnly(bigint.RoundMode(operand.Imm))

	// ---- variable-length integer cell I/O ------------------------------------

	case OpStVarInt16:
		e.execStoreVarInt(4, 15, true)
	case OpStGrams:
		e.execStoreVarInt(4, 15, false)
	case OpStVarUInt32:
		e.execStoreVarInt(5, 31, false)
	case OpLdVarInt16:
		e.execLoadVarInt(4, true)
	case OpLdGrams:
		e.execLoadVarInt(4, false)
	case OpLdVarUInt32:
		e.execLoadVarInt(5, false)

	// ---- cell I/O ---------------------------------------------------------

	case OpNewC:
		e.push(stack.BuilderValue(cell.NewBuilderIn(e.arena)))
	case OpStU:
		e.execStore(int(operand.Imm), false)
	case OpStI:
		e.execStore(int(operand.Imm), true)
	case OpStRef:
		e.execStoreRef()
	case OpEndC:
		e.execEndC()
	case OpCToS:
		e.execCToS()
	case OpLdU:
		e.execLoad(int(operand.Imm), false)
	case OpLdI:
		e.execLoad(int(operand.Imm), true)
	case OpLdRef:
		e.execLoadRef()

	// ---- control flow -------------------------------------------------------

	case OpExecute:
		k, err := e.popCont()
		if err != nil {
			e.raiseException(err)
			return
		}
		e.callInto(k)
	case OpJmpX:
		k, err := e.popCont()
		if err != nil {
			e.raiseException(err)
			return
		}
		e.jumpTo(k)
	case OpRet:
		e.jumpTo(e.Regs.Continuation(cont.C0))
	case OpIf:
		e.execIf(true, false)
	case OpIfNot:
		e.execIf(false, false)
	case OpIfElse:
		e.execIf(true, true)
	case OpRetAlt:
		e.jumpTo(e.Regs.Continuation(cont.C1))
	case OpIfRet:
		e.execIfRet(true)
	case OpIfNotRet:
		e.execIfRet(false)
	case OpIfJmp:
		e.execIfJmp(true)
	case OpIfNotJmp:
		e.execIfJmp(false)
	case OpIfRef:
		e.execIfRef(true, operand.Refs[0])
	case OpIfNotRef:
		e.execIfRef(false, operand.Refs[0])
	case OpIfElseRef:
		e.execIfElseRef(true, operand.Refs[0])
	case OpIfRefElse:
		e.execIfElseRef(false, operand.Refs[0])
	case OpIfRefElseRef:
		e.execIfRefElseRef(operand.Refs[0], operand.Refs[1])
	case OpCondSel:
		e.execCondSel(false)
	case OpCondSelChk:
		e.execCondSel(true)
	case OpSetContArgs:
		n, m := int(operand.Imm>>8), int(operand.Imm&0xFF)
		e.execSetContArgs(n, m)
	case OpSetNumArgs:
		e.execSetNumArgs(int(operand.Imm))
	case OpBless:
		s, err := e.popSlice()
		if err != nil {
			e.raiseException(err)
			return
		}
		e.push(stack.ContinuationValue(cont.NewOrdinary(s)))
	case OpPopSave:
		e.execPopSave(cont.Register(operand.Imm))
	case OpSetContCtr:
		e.execSetContCtr(cont.Register(operand.Imm))
	case OpSameAltSave:
		e.execSameAltSave()
	case OpCompos:
		e.execCompos(cont.C0)
	case OpComposAlt:
		e.execCompos(cont.C1)
	case OpBoolAnd:
		e.execBoolCombine(func(a, b bool) bool { return a && b })
	case OpBoolOr:
		e.execBoolCombine(func(a, b bool) bool { return a || b })
	case OpCallDict:
		e.execCallDict(int(operand.Imm))
	case OpCallRef:
		e.callInto(cont.NewOrdinary(cell.NewSlice(operand.Refs[0])))

	// ---- looping continuations ------------------------------------------------

	case OpAgain:
		e.execAgainStart(false, false)
	case OpAgainEnd:
		e.execAgainStart(true, false)
	case OpAgainBrk:
		e.execAgainStart(false, true)
	case OpUntil:
		e.execUntilStart(false, false)
	case OpUntilEnd:
		e.execUntilStart(true, false)
	case OpUntilBrk:
		e.execUntilStart(false, true)
	case OpWhile:
		e.execWhileStart(false, false)
	case OpWhileEnd:
		e.execWhileStart(true, false)
	case OpWhileBrk:
		e.execWhileStart(false, true)
	case OpRepeat:
		e.execRepeatStart(false, false)
	case OpRepeatEnd:
		e.execRepeatStart(true, false)
	case OpRepeatBrk:
		e.execRepeatStart(false, true)

	// ---- exceptions -------------------------------------------------------

	case OpThrow:
		e.raise(vmerr.Number(operand.Imm), e.popThrowValue())
	case OpThrowIf:
		cond, err := e.Stack.Pop()
		if err != nil {
			e.raiseException(err)
			return
		}
		truth, ok := cond.IsTrue()
		if !ok {
			e.raise(vmerr.TypeCheckError, stack.Null())
			return
		}
		if truth {
			e.raise(vmerr.Number(operand.Imm), e.popThrowValue())
		}
	case OpTry:
		e.execTry(false, -1)
	case OpTryKeep:
		e.execTry(true, -1)
	case OpTryArgs:
		n, m := int(operand.Imm>>8), int(operand.Imm&0xFF)
		_ = m // expected-return-count is advisory only; not enforced at catch time
		e.execTry(false, n)

	// ---- control registers / gas / commit -----------------------------------

	case OpPopCtr:
		v, err := e.Stack.Pop()
		if err != nil {
			e.raiseException(err)
			return
		}
		e.Regs.Set(cont.Register(operand.Imm), v)
	case OpPushCtr:
		e.push(e.Regs.Get(cont.Register(operand.Imm)))
	case OpCommit:
		e.committed = Committed{
			C4: e.Regs.Get(cont.C4),
			C5: e.Regs.Get(cont.C5),
			ok: true,
		}
	case OpAccept:
		e.Gas.Accept()
	case OpSetGasLimit:
		n, err := e.popInt()
		if err != nil {
			e.raiseException(err)
			return
		}
		bi, ok := n.BigInt()
		if !ok || bi.Sign() < 0 {
			e.raise(vmerr.RangeCheckError, stack.Null())
			return
		}
		if gerr := e.Gas.SetGasLimit(bi.Uint64()); gerr != nil {
			e.raiseException(gerr)
		}
	case OpBuyGas:
		n, err := e.popInt()
		if err != nil {
			e.raiseException(err)
			return
		}
		bi, ok := n.BigInt()
		if !ok || bi.Sign() < 0 {
			e.raise(vmerr.RangeCheckError, stack.Null())
			return
		}
		if gerr := e.Gas.BuyGas(bi.Uint64()); gerr != nil {
			e.raiseException(gerr)
		}
	case OpGramToGas:
		n, err := e.popInt()
		if err != nil {
			e.raiseException(err)
			return
		}
		bi, ok := n.BigInt()
		if !ok || bi.Sign() < 0 {
			e.raise(vmerr.RangeCheckError, stack.Null())
			return
		}
		e.push(stack.Integer(bigint.FromUint64(gas.GramToGas(bi.Uint64()))))
	case OpGasToGram:
		n, err := e.popInt()
		if err != nil {
			e.raiseException(err)
			return
		}
		bi, ok := n.BigInt()
		if !ok || bi.Sign() < 0 {
			e.raise(vmerr.RangeCheckError, stack.Null())
			return
		}
		e.push(stack.Integer(bigint.FromUint64(gas.GasToGram(bi.Uint64()))))

	// ---- dictionary -----------------------------------------------------

	case OpDictUGetJmp:
		e.execDictGet(int(operand.Imm), false, false, false)
	case OpDictIGetJmp:
		e.execDictGet(int(operand.Imm), true, false, false)
	case OpDictUGetExec:
		e.execDictGet(int(operand.Imm), false, true, false)
	case OpDictIGetExec:
		e.execDictGet(int(operand.Imm), true, true, false)
	case OpDictUGetJmpZ:
		e.execDictGet(int(operand.Imm), false, false, true)
	case OpDictIGetJmpZ:
		e.execDictGet(int(operand.Imm), true, false, true)
	case OpDictUGetExecZ:
		e.execDictGet(int(operand.Imm), false, true, true)
	case OpDictIGetExecZ:
		e.execDictGet(int(operand.Imm), true, true, true)

	// ---- crypto -----------------------------------------------------------

	case OpHashSha3:
		e.execHashSha3()
	case OpHashShake:
		e.execHashShake(int(operand.Imm))
	case OpChkSign:
		e.execChkSign()
	case OpEcRecover:
		e.execEcRecover()
	case OpBlsPairing:
		e.execBlsPairing(int(operand.Imm))

	default:
		e.raise(vmerr.InvalidOpcode, stack.Null())
	}
}

func (e *Engine) push(v stack.Value) {
	if err := e.Stack.Push(v); err != nil {
		e.raiseException(err)
	}
}

// popThrowValue pops the value a THROW/THROWIF delivers to its catch: the
// current top of stack, or an Integer zero if the stack is already empty
// (throwing out of an empty stack still raises, just with a nil-ish payload).
func (e *Engine) popThrowValue() stack.Value {
	v, err := e.Stack.Pop()
	if err != nil {
		return stack.Integer(bigint.Zero())
	}
	return v
}

func (e *Engine) popInt() (*bigint.Int, error) {
	v, err := e.Stack.Pop()
	if err != nil {
		return nil, err
	}
	i, ok := v.AsInteger()
	if !ok {
		return nil, vmerr.New(vmerr.TypeCheckError, stack.Null())
	}
	return i, nil
}

func (e *Engine) popBuilder() (*cell.Builder, error) {
	v, err := e.Stack.Pop()
	if err != nil {
		return nil, err
	}
	b, ok := v.AsBuilder()
	if !ok {
		return nil, vmerr.New(vmerr.TypeCheckError, stack.Null())
	}
	return b, nil
}

func (e *Engine) popSlice() (*cell.Slice, error) {
	v, err := e.Stack.Pop()
	if err != nil {
		return nil, err
	}
	s, ok := v.AsSlice()
	if !ok {
		return nil, vmerr.New(vmerr.TypeCheckError, stack.Null())
	}
	return s, nil
}

func (e *Engine) popCellVal() (*cell.Cell, error) {
	v, err := e.Stack.Pop()
	if err != nil {
		return nil, err
	}
	c, ok := v.AsCell()
	if !ok {
		return nil, vmerr.New(vmerr.TypeCheckError, stack.Null())
	}
	return c, nil
}

func (e *Engine) popCont() (*cont.Continuation, error) {
	v, err := e.Stack.Pop()
	if err != nil {
		return nil, err
	}
	k, ok := v.AsContinuation()
	if !ok {
		return nil, vmerr.New(vmerr.TypeCheckError, stack.Null())
	}
	c, ok := k.(*cont.Continuation)
	if !ok {
		return nil, vmerr.New(vmerr.TypeCheckError, stack.Null())
	}
	return c, nil
}

// execPushPow2 implements PUSHPOW2 n: push 2^n, n in [0,256]. n == 256 is a
// deliberate synonym for PUSHNAN rather than a signaling overflow, per the
// reference VM's own special-case.
func (e *Engine) execPushPow2(n int) {
	if n == 256 {
		e.push(stack.Integer(bigint.NaN()))
		return
	}
	if n < 0 || n > 255 {
		e.raise(vmerr.RangeCheckError, stack.Null())
		return
	}
	v, err := bigint.Lshift(bigint.FromInt64(1), uint(n))
	if err != nil {
		e.raise(vmerr.IntegerOverflow, stack.Null())
		return
	}
	e.push(stack.Integer(v))
}

// arithException maps a bigint signaling-flavor error to the exception
// number the dispatcher raises: NaN operands and out-of-range results both
// surface as IntegerOverflow, division by zero likewise (the reference VM
// has no separate division-by-zero number; it is folded into the same
// IntegerOverflow class TVM uses for arithmetic faults).
func arithException() *vmerr.Exception {
	return vmerr.New(vmerr.IntegerOverflow, stack.Null())
}

func (e *Engine) execBinArith(op func(a, b *bigint.Int) (*bigint.Int, error)) {
	b, err := e.popInt()
	if err != nil {
		e.raiseException(err)
		return
	}
	a, err := e.popInt()
	if err != nil {
		e.raiseException(err)
		return
	}
	r, aerr := op(a, b)
	if aerr != nil {
		e.raiseException(arithException())
		return
	}
	e.push(stack.Integer(r))
}

func (e *Engine) execDivMod(mode bigint.RoundMode) {
	b, err := e.popInt()
	if err != nil {
		e.raiseException(err)
		return
	}
	a, err := e.popInt()
	if err != nil {
		e.raiseException(err)
		return
	}
	q, r, derr := bigint.DivMod(a, b, mode)
	if derr != nil {
		if errors.Is(derr, bigint.ErrDivisionByZero) {
			e.raiseException(arithException())
			return
		}
		e.raiseException(arithException())
		return
	}
	e.push(stack.Integer(q))
	e.push(stack.Integer(r))
}

func (e *Engine) execStore(width int, signed bool) {
	b, err := e.popBuilder()
	if err != nil {
		e.raiseException(err)
		return
	}
	x, err := e.popInt()
	if err != nil {
		e.raiseException(err)
		return
	}
	if signed {
		err = b.StoreSigned(x, width)
	} else {
		err = b.StoreUnsigned(x, width)
	}
	if err != nil {
		if errors.Is(err, cell.ErrCellOverflow) {
			e.raise(vmerr.CellOverflow, stack.Null())
			return
		}
		e.raise(vmerr.RangeCheckError, stack.Null())
		return
	}
	e.push(stack.BuilderValue(b))
}

func (e *Engine) execStoreRef() {
	b, err := e.popBuilder()
	if err != nil {
		e.raiseException(err)
		return
	}
	c, err := e.popCellVal()
	if err != nil {
		e.raiseException(err)
		return
	}
	if err := b.StoreRef(c); err != nil {
		e.raise(vmerr.CellOverflow, stack.Null())
		return
	}
	e.push(stack.BuilderValue(b))
}

func (e *Engine) execEndC() {
	b, err := e.popBuilder()
	if err != nil {
		e.raiseException(err)
		return
	}
	c, ferr := b.Finalize()
	if ferr != nil {
		e.raise(vmerr.CellOverflow, stack.Null())
		return
	}
	if gerr := e.Gas.Charge(gas.CellCreate); gerr != nil {
		e.raiseException(gerr)
		return
	}
	e.push(stack.CellValue(c))
}

func (e *Engine) execCToS() {
	c, err := e.popCellVal()
	if err != nil {
		e.raiseException(err)
		return
	}
	resolved, rerr := e.resolver.Resolve(c)
	if rerr != nil {
		if c.Type() == cell.LibraryReference {
			e.raise(vmerr.DictionaryError, stack.Null())
			return
		}
		e.raise(vmerr.CellUnderflow, stack.Null())
		return
	}
	if gerr := e.Gas.ChargeCellLoad(resolved.Hash()); gerr != nil {
		e.raiseException(gerr)
		return
	}
	e.push(stack.SliceValue(cell.NewSlice(resolved)))
}

func (e *Engine) execLoad(width int, signed bool) {
	s, err := e.popSlice()
	if err != nil {
		e.raiseException(err)
		return
	}
	var v *bigint.Int
	if signed {
		v, err = s.LoadSigned(width)
	} else {
		v, err = s.LoadUnsigned(width)
	}
	if err != nil {
		e.raise(vmerr.CellUnderflow, stack.Null())
		return
	}
	e.push(stack.Integer(v))
	e.push(stack.SliceValue(s))
}

func (e *Engine) execLoadRef() {
	s, err := e.popSlice()
	if err != nil {
		e.raiseException(err)
		return
	}
	r, lerr := s.LoadRef()
	if lerr != nil {
		e.raise(vmerr.CellUnderflow, stack.Null())
		return
	}
	if gerr := e.Gas.ChargeCellLoad(r.Hash()); gerr != nil {
		e.raiseException(gerr)
		return
	}
	e.push(stack.CellValue(r))
	e.push(stack.SliceValue(s))
}

// execIf implements IF/IFNOT/IFELSE. The condition is pushed last (nearest
// the instruction, on top); beneath it sit the continuation(s), else-branch
// (when present) above then-branch: [then, else?, flag]. want is the truth
// value that selects then-branch.
func (e *Engine) execIf(want bool, withElse bool) {
	flagVal, err := e.Stack.Pop()
	if err != nil {
		e.raiseException(err)
		return
	}
	var elseK *cont.Continuation
	if withElse {
		k, err := e.popCont()
		if err != nil {
			e.raiseException(err)
			return
		}
		elseK = k
	}
	thenK, err := e.popCont()
	if err != nil {
		e.raiseException(err)
		return
	}
	truth, ok := flagVal.IsTrue()
	if !ok {
		e.raise(vmerr.TypeCheckError, stack.Null())
		return
	}
	if truth == want {
		e.callInto(thenK)
		return
	}
	if withElse {
		e.callInto(elseK)
	}
}

// execDictGet implements the full DICT*GET{JMP,EXEC}{,Z} family (spec
// §4.7): signed determines whether the key is encoded as two's-complement
// (DICTIGET*) or raw magnitude (DICTUGET*); exec selects CALL semantics
// over JMP; z selects the "leave the key on the stack and fall through"
// miss behavior over raising DictionaryError. The non-Z, non-exec,
// unsigned case (plain DICTUGETJMP) keeps its original miss-raises
// behavior unchanged.
func (e *Engine) execDictGet(keyBits int, signed, exec, z bool) {
	dictVal, err := e.Stack.Pop()
	if err != nil {
		e.raiseException(err)
		return
	}
	keyVal, err := e.Stack.Pop()
	if err != nil {
		e.raiseException(err)
		return
	}
	key, ok := keyVal.AsInteger()
	if !ok {
		e.raise(vmerr.TypeCheckError, stack.Null())
		return
	}
	var root *cell.Cell
	if !dictVal.IsNull() {
		c, ok := dictVal.AsCell()
		if !ok {
			e.raise(vmerr.TypeCheckError, stack.Null())
			return
		}
		root = c
	}
	var keyBytes []byte
	if signed {
		if !key.FitsSignedBits(keyBits) {
			e.raise(vmerr.RangeCheckError, stack.Null())
			return
		}
		keyBytes = key.SignedTwosComplement(keyBits)
	} else {
		if !key.FitsUnsignedBits(keyBits) {
			e.raise(vmerr.RangeCheckError, stack.Null())
			return
		}
		keyBytes = key.UnsignedMagnitude(keyBits)
	}
	value, derr := dict.Get(root, keyBytes, keyBits)
	if derr != nil {
		if z {
			// …Z: leave the key on the stack, continue without raising.
			e.push(keyVal)
			return
		}
		e.raise(vmerr.DictionaryError, stack.Null())
		return
	}
	target := cont.NewOrdinary(value)
	if exec {
		e.callInto(target)
		return
	}
	e.jumpTo(target)
}

// ---- stack bulk/runtime-index helpers ---------------------------------

// execXchg3 implements XCHG3 i,j,k as three successive pairwise exchanges,
// the simplest operator that reaches the same three target depths as the
// reference VM's single fused instruction (documented simplification,
// DESIGN.md).
func (e *Engine) execXchg3(i, j, k int) {
	if err := e.Stack.Xchg(0, i); err != nil {
		e.raiseException(err)
		return
	}
	if err := e.Stack.Xchg(1, j); err != nil {
		e.raiseException(err)
		return
	}
	if err := e.Stack.Xchg(2, k); err != nil {
		e.raiseException(err)
	}
}

// execPush3 implements PUSH3 i,j,k: push copies of the values originally at
// depths i, j, k (read before any of the three pushes, so a later index is
// never shifted by an earlier push).
func (e *Engine) execPush3(i, j, k int) {
	vi, err := e.Stack.Top(i)
	if err != nil {
		e.raiseException(err)
		return
	}
	vj, err := e.Stack.Top(j)
	if err != nil {
		e.raiseException(err)
		return
	}
	vk, err := e.Stack.Top(k)
	if err != nil {
		e.raiseException(err)
		return
	}
	e.push(vi)
	e.push(vj)
	e.push(vk)
}

func (e *Engine) popRuntimeIndex() (int, error) {
	n, err := e.popInt()
	if err != nil {
		e.raiseException(err)
		return 0, err
	}
	bi, ok := n.BigInt()
	if !ok || bi.Sign() < 0 {
		e.raise(vmerr.RangeCheckError, stack.Null())
		return 0, vmerr.New(vmerr.RangeCheckError, stack.Null())
	}
	return int(bi.Int64()), nil
}

func (e *Engine) popRuntimeIndexPair() (i, j int, err error) {
	j, err = e.popRuntimeIndex()
	if err != nil {
		return 0, 0, err
	}
	i, err = e.popRuntimeIndex()
	if err != nil {
		return 0, 0, err
	}
	return i, j, nil
}

// ---- big-integer comparison / shift / quiet / bitwise / varint helpers --

func (e *Engine) execCmpInt(imm int64, want func(cmp int) bool) {
	a, err := e.popInt()
	if err != nil {
		e.raiseException(err)
		return
	}
	if a.IsNaN() {
		e.raise(vmerr.IntegerOverflow, stack.Null())
		return
	}
	cmp := a.Cmp(bigint.FromInt64(imm))
	truth := int64(0)
	if want(cmp) {
		truth = -1
	}
	e.push(stack.Integer(bigint.FromInt64(truth)))
}

func (e *Engine) execShift(left bool, mode bigint.RoundMode) {
	n, err := e.popRuntimeIndex()
	if err != nil {
		return
	}
	a, err := e.popInt()
	if err != nil {
		e.raiseException(err)
		return
	}
	var r *bigint.Int
	var aerr error
	if left {
		r, aerr = bigint.Lshift(a, uint(n))
	} else {
		r, aerr = bigint.Rshift(a, uint(n), mode)
	}
	if aerr != nil {
		e.raise(vmerr.IntegerOverflow, stack.Null())
		return
	}
	e.push(stack.Integer(r))
}

func (e *Engine) execQBinArith(qop func(a, b *bigint.Int) *bigint.Int) {
	b, err := e.popInt()
	if err != nil {
		e.raiseException(err)
		return
	}
	a, err := e.popInt()
	if err != nil {
		e.raiseException(err)
		return
	}
	e.push(stack.Integer(qop(a, b)))
}

func (e *Engine) execQDivMod(mode bigint.RoundMode) {
	b, err := e.popInt()
	if err != nil {
		e.raiseException(err)
		return
	}
	a, err := e.popInt()
	if err != nil {
		e.raiseException(err)
		return
	}
	q, r, derr := bigint.QDivMod(a, b, mode)
	if derr != nil {
		e.raiseException(arithException())
		return
	}
	e.push(stack.Integer(q))
	e.push(stack.Integer(r))
}

func (e *Engine) execDivOnly(mode bigint.RoundMode) {
	b, err := e.popInt()
	if err != nil {
		e.raiseException(err)
		return
	}
	a, err := e.popInt()
	if err != nil {
		e.raiseException(err)
		return
	}
	q, derr := bigint.Div(a, b, mode)
	if derr != nil {
		e.raiseException(arithException())
		return
	}
	e.push(stack.Integer(q))
}

func (e *Engine) execModOnly(mode bigint.RoundMode) {
	b, err := e.popInt()
	if err != nil {
		e.raiseException(err)
		return
	}
	a, err := e.popInt()
	if err != nil {
		e.raiseException(err)
		return
	}
	r, derr := bigint.Mod(a, b, mode)
	if derr != nil {
		e.raiseException(arithException())
		return
	}
	e.push(stack.Integer(r))
}

func (e *Engine) execStoreVarInt(lenBits, maxBytes int, signed bool) {
	b, err := e.popBuilder()
	if err != nil {
		e.raiseException(err)
		return
	}
	x, err := e.popInt()
	if err != nil {
		e.raiseException(err)
		return
	}
	if serr := storeVarInt(b, x, lenBits, maxBytes, signed); serr != nil {
		if errors.Is(serr, cell.ErrCellOverflow) {
			e.raise(vmerr.CellOverflow, stack.Null())
			return
		}
		e.raise(vmerr.RangeCheckError, stack.Null())
		return
	}
	e.push(stack.BuilderValue(b))
}

func (e *Engine) execLoadVarInt(lenBits int, signed bool) {
	s, err := e.popSlice()
	if err != nil {
		e.raiseException(err)
		return
	}
	v, lerr := loadVarInt(s, lenBits, signed)
	if lerr != nil {
		e.raise(vmerr.CellUnderflow, stack.Null())
		return
	}
	e.push(stack.Integer(v))
	e.push(stack.SliceValue(s))
}

// ---- control-flow helpers ----------------------------------------------

func (e *Engine) execIfRet(want bool) {
	flag, err := e.Stack.Pop()
	if err != nil {
		e.raiseException(err)
		return
	}
	truth, ok := flag.IsTrue()
	if !ok {
		e.raise(vmerr.TypeCheckError, stack.Null())
		return
	}
	if truth == want {
		e.jumpTo(e.Regs.Continuation(cont.C0))
	}
}

func (e *Engine) execIfJmp(want bool) {
	flag, err := e.Stack.Pop()
	if err != nil {
		e.raiseException(err)
		return
	}
	k, err := e.popCont()
	if err != nil {
		e.raiseException(err)
		return
	}
	truth, ok := flag.IsTrue()
	if !ok {
		e.raise(vmerr.TypeCheckError, stack.Null())
		return
	}
	if truth == want {
		e.jumpTo(k)
	}
}

func (e *Engine) execIfRef(want bool, ref *cell.Cell) {
	flag, err := e.Stack.Pop()
	if err != nil {
		e.raiseException(err)
		return
	}
	truth, ok := flag.IsTrue()
	if !ok {
		e.raise(vmerr.TypeCheckError, stack.Null())
		return
	}
	if truth == want {
		e.callInto(cont.NewOrdinary(cell.NewSlice(ref)))
	}
}

// execIfElseRef backs both IFELSEREF (stackIsThen == true: the popped
// continuation is the then-branch, ref is else) and IFREFELSE
// (stackIsThen == false: popped is else, ref is then).
func (e *Engine) execIfElseRef(stackIsThen bool, ref *cell.Cell) {
	flag, err := e.Stack.Pop()
	if err != nil {
		e.raiseException(err)
		return
	}
	stackK, err := e.popCont()
	if err != nil {
		e.raiseException(err)
		return
	}
	truth, ok := flag.IsTrue()
	if !ok {
		e.raise(vmerr.TypeCheckError, stack.Null())
		return
	}
	refK := cont.NewOrdinary(cell.NewSlice(ref))
	takeStack := truth == stackIsThen
	if takeStack {
		e.callInto(stackK)
		return
	}
	e.callInto(refK)
}

func (e *Engine) execIfRefElseRef(thenRef, elseRef *cell.Cell) {
	flag, err := e.Stack.Pop()
	if err != nil {
		e.raiseException(err)
		return
	}
	truth, ok := flag.IsTrue()
	if !ok {
		e.raise(vmerr.TypeCheckError, stack.Null())
		return
	}
	if truth {
		e.callInto(cont.NewOrdinary(cell.NewSlice(thenRef)))
		return
	}
	e.callInto(cont.NewOrdinary(cell.NewSlice(elseRef)))
}

func (e *Engine) execCondSel(checkKind bool) {
	flag, err := e.Stack.Pop()
	if err != nil {
		e.raiseException(err)
		return
	}
	y, err := e.Stack.Pop()
	if err != nil {
		e.raiseException(err)
		return
	}
	x, err := e.Stack.Pop()
	if err != nil {
		e.raiseException(err)
		return
	}
	if checkKind && x.Kind() != y.Kind() {
		e.raise(vmerr.TypeCheckError, stack.Null())
		return
	}
	truth, ok := flag.IsTrue()
	if !ok {
		e.raise(vmerr.TypeCheckError, stack.Null())
		return
	}
	if truth {
		e.push(x)
		return
	}
	e.push(y)
}

// contArgsNone is the wire sentinel for SETCONTARGS/SETNUMARGS's "leave
// arity unspecified" case (spec: "SETCONTARGS m=-1").
const contArgsNone = 0xFF

func (e *Engine) execSetContArgs(n, m int) {
	k, err := e.popCont()
	if err != nil {
		e.raiseException(err)
		return
	}
	args, perr := e.Stack.PopN(n)
	if perr != nil {
		e.raiseException(perr)
		return
	}
	nargs := -1
	if m != contArgsNone {
		nargs = m
	}
	e.push(stack.ContinuationValue(k.WithArgs(args, nargs)))
}

func (e *Engine) execSetNumArgs(n int) {
	k, err := e.popCont()
	if err != nil {
		e.raiseException(err)
		return
	}
	nargs := -1
	if n != contArgsNone {
		nargs = n
	}
	cp := *k
	cp.NArgs = nargs
	e.push(stack.ContinuationValue(&cp))
}

// execPopSave implements POPSAVE r: the live register's current value is
// saved into the running continuation's save-list slot r (a no-op if
// already occupied, per the save-list's write-once rule), then the stack's
// top value becomes the new live register r.
func (e *Engine) execPopSave(r cont.Register) {
	v, err := e.Stack.Pop()
	if err != nil {
		e.raiseException(err)
		return
	}
	e.current().Save.Put(r, e.Regs.Get(r))
	e.Regs.Set(r, v)
}

// execSetContCtr implements SETCONTCTR r: c x -- c'; writes x into c's
// save-list slot r (if unset) and pushes the updated continuation back.
func (e *Engine) execSetContCtr(r cont.Register) {
	k, err := e.popCont()
	if err != nil {
		e.raiseException(err)
		return
	}
	x, err := e.Stack.Pop()
	if err != nil {
		e.raiseException(err)
		return
	}
	cp := *k
	sl := cp.Save.Clone()
	sl.Put(r, x)
	cp.Save = sl
	e.push(stack.ContinuationValue(&cp))
}

// execSameAltSave implements SAMEALTSAVE: c -- c'; copies the live c1 into
// c's save-list slot c1 if it is not already set.
func (e *Engine) execSameAltSave() {
	k, err := e.popCont()
	if err != nil {
		e.raiseException(err)
		return
	}
	cp := *k
	sl := cp.Save.Clone()
	sl.Put(cont.C1, e.Regs.Get(cont.C1))
	cp.Save = sl
	e.push(stack.ContinuationValue(&cp))
}

// execCompos implements COMPOS/COMPOSALT: c2 c1 -- c; c resumes into c2
// through register reg (c0 for COMPOS, c1 for COMPOSALT) on implicit
// return, by installing c2 into c1's save-list slot reg if unset.
func (e *Engine) execCompos(reg cont.Register) {
	c1, err := e.popCont()
	if err != nil {
		e.raiseException(err)
		return
	}
	c2, err := e.popCont()
	if err != nil {
		e.raiseException(err)
		return
	}
	cp := *c1
	sl := cp.Save.Clone()
	sl.Put(reg, stack.ContinuationValue(c2))
	cp.Save = sl
	e.push(stack.ContinuationValue(&cp))
}

func (e *Engine) execBoolCombine(combine func(a, b bool) bool) {
	bv, err := e.Stack.Pop()
	if err != nil {
		e.raiseException(err)
		return
	}
	av, err := e.Stack.Pop()
	if err != nil {
		e.raiseException(err)
		return
	}
	a, ok := av.IsTrue()
	if !ok {
		e.raise(vmerr.TypeCheckError, stack.Null())
		return
	}
	b, ok := bv.IsTrue()
	if !ok {
		e.raise(vmerr.TypeCheckError, stack.Null())
		return
	}
	r := int64(0)
	if combine(a, b) {
		r = -1
	}
	e.push(stack.Integer(bigint.FromInt64(r)))
}

// execCallDict implements CALLDICT n: pop a dictionary cell (its procedure
// table) from the stack and CALL the continuation stored at key n. Control
// register c3 is already repurposed here as the running-code slot (see
// engine.go's current()), so — unlike the reference VM, where c3 itself is
// the implicit procedure dictionary — the dictionary is an explicit stack
// operand; see DESIGN.md for the tradeoff.
func (e *Engine) execCallDict(n int) {
	dictVal, err := e.Stack.Pop()
	if err != nil {
		e.raiseException(err)
		return
	}
	var root *cell.Cell
	if !dictVal.IsNull() {
		c, ok := dictVal.AsCell()
		if !ok {
			e.raise(vmerr.TypeCheckError, stack.Null())
			return
		}
		root = c
	}
	key := bigint.FromInt64(int64(n)).UnsignedMagnitude(16)
	value, derr := dict.Get(root, key, 16)
	if derr != nil {
		e.raise(vmerr.DictionaryError, stack.Null())
		return
	}
	e.callInto(cont.NewOrdinary(value))
}

// ---- looping-continuation entry points -----------------------------------

func (e *Engine) execAgainStart(fromEnd, brk bool) {
	var brkK *cont.Continuation
	var err error
	if brk {
		brkK, err = e.popCont()
		if err != nil {
			e.raiseException(err)
			return
		}
	}
	body, err := e.loopBody(fromEnd)
	if err != nil {
		return
	}
	loop := cont.NewAgain(body)
	e.startLoop(loop, brkK)
}

func (e *Engine) execUntilStart(fromEnd, brk bool) {
	var brkK *cont.Continuation
	var err error
	if brk {
		brkK, err = e.popCont()
		if err != nil {
			e.raiseException(err)
			return
		}
	}
	body, err := e.loopBody(fromEnd)
	if err != nil {
		return
	}
	loop := cont.NewUntil(body)
	e.startLoop(loop, brkK)
}

func (e *Engine) execWhileStart(fromEnd, brk bool) {
	var brkK *cont.Continuation
	var err error
	if brk {
		brkK, err = e.popCont()
		if err != nil {
			e.raiseException(err)
			return
		}
	}
	var body *cont.Continuation
	if !fromEnd {
		body, err = e.popCont()
		if err != nil {
			e.raiseException(err)
			return
		}
	} else {
		body = cont.NewOrdinary(e.current().Code.Clone())
	}
	condK, err := e.popCont()
	if err != nil {
		e.raiseException(err)
		return
	}
	loop := cont.NewWhile(condK, body)
	e.startLoop(loop, brkK)
}

func (e *Engine) execRepeatStart(fromEnd, brk bool) {
	var brkK *cont.Continuation
	var err error
	if brk {
		brkK, err = e.popCont()
		if err != nil {
			e.raiseException(err)
			return
		}
	}
	n, err := e.popInt()
	if err != nil {
		e.raiseException(err)
		return
	}
	bi, ok := n.BigInt()
	if !ok {
		e.raise(vmerr.TypeCheckError, stack.Null())
		return
	}
	body, err := e.loopBody(fromEnd)
	if err != nil {
		return
	}
	loop := cont.NewRepeat(body, bi.Int64())
	e.startLoop(loop, brkK)
}

// loopBody resolves a loop's body continuation: popped from the stack for
// the plain form, or the remainder of the currently-executing continuation's
// code for the …END form (spec: "the remainder of the current
// continuation's code becomes the body").
func (e *Engine) loopBody(fromEnd bool) (*cont.Continuation, error) {
	if fromEnd {
		return cont.NewOrdinary(e.current().Code.Clone()), nil
	}
	k, err := e.popCont()
	if err != nil {
		e.raiseException(err)
		return nil, err
	}
	return k, nil
}

// startLoop arms an optional break target and transfers control into loop,
// the shared tail every AGAIN/UNTIL/WHILE/REPEAT entry point reaches.
func (e *Engine) startLoop(loop, brk *cont.Continuation) {
	if brk != nil {
		e.armBreak(loop, brk)
	}
	e.jumpTo(loop)
}
