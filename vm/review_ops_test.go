// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package vm

import (
	"testing"

	"github.com/cellvm/tvmcore/internal/bigint"
	"github.com/cellvm/tvmcore/internal/cell"
	"github.com/cellvm/tvmcore/internal/cont"
	"github.com/cellvm/tvmcore/internal/dict"
	"github.com/cellvm/tvmcore/internal/stack"
	"github.com/cellvm/tvmcore/internal/vmerr"
)

// TestRepeatCountsDown runs REPEAT 3 over a body that increments a running
// total, checking the loop re-enters the body exactly n times and then
// falls through to whatever follows.
func TestRepeatCountsDown(t *testing.T) {
	program := []instr{
		opImm(OpPushInt, 0),
		pushCont(op(OpInc)),
		opImm(OpPushInt, 3),
		op(OpRepeat),
		opImm(OpPushInt, 100),
	}
	e := newEngine(t, program, baseConfig())
	code, err := e.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	wantInts(t, e.Stack.Values(), 3, 100)
}

// TestUntilLoopsWhileZero pushes a counter, decrements it each pass, and
// stops once it reaches a nonzero flag pushed by the body.
func TestUntilLoopsWhileZero(t *testing.T) {
	// body: DEC the counter on top, duplicate it, push (counter == 0).
	body := []instr{
		opImm(OpPushInt, -1),
		op(OpAdd),
		op(OpDup),
		opImm(OpEqInt, 0),
	}
	program := append([]instr{
		opImm(OpPushInt, 3), // counter
	}, pushCont(body...))
	program = append(program, op(OpUntil))
	e := newEngine(t, program, baseConfig())
	code, err := e.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	wantInts(t, e.Stack.Values(), 0)
}

// TestRepeatBrkRestoresC1OnNaturalExit checks the …BRK family's armBreak/
// exitLoop plumbing on the path every loop actually takes in practice: the
// break target is installed into c1 for the loop's extent and restored once
// the loop exits on its own (here, REPEATBRK's counter reaching zero), with
// the break continuation itself never entered.
func TestRepeatBrkRestoresC1OnNaturalExit(t *testing.T) {
	brkTarget := []instr{opImm(OpPushInt, -1)} // never reached; would poison the result
	body := []instr{op(OpInc)}
	program := []instr{
		opImm(OpPushInt, 0),
	}
	program = append(program, pushCont(body...))
	program = append(program, opImm(OpPushInt, 3))
	program = append(program, pushCont(brkTarget...))
	program = append(program, op(OpRepeatBrk))
	program = append(program, opImm(OpPushInt, 100))
	e := newEngine(t, program, baseConfig())
	code, err := e.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	wantInts(t, e.Stack.Values(), 3, 100)
}

// TestWhileLoopDecrementsUntilCondFails builds a WHILE whose condition
// checks a counter and whose body decrements it, verifying the
// cond/body alternation and the natural c0 fallthrough on exit.
func TestWhileLoopDecrementsUntilCondFails(t *testing.T) {
	cond := []instr{op(OpDup), opImm(OpGtInt, 0)}
	body := []instr{opImm(OpPushInt, -1), op(OpAdd)}
	program := []instr{opImm(OpPushInt, 3)}
	program = append(program, pushCont(cond...))
	program = append(program, pushCont(body...))
	program = append(program, op(OpWhile))
	e := newEngine(t, program, baseConfig())
	code, err := e.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	wantInts(t, e.Stack.Values(), 0)
}

// TestBlkPushDupAndBlkDrop exercises the bulk-stack pair BLKPUSH/BLKDROP.
func TestBlkPushDupAndBlkDrop(t *testing.T) {
	program := []instr{
		opImm(OpPushInt, 7),
		opImm(OpBlkPush, 3<<8), // count=3, j=0
		opImm(OpBlkDrop, 2),
	}
	e := newEngine(t, program, baseConfig())
	code, err := e.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	wantInts(t, e.Stack.Values(), 7, 7)
}

// TestOnlyTopXKeepsTopN checks ONLYTOPX's immediate form; ONLYX's
// runtime-index form is covered by TestOnlyXPopsRuntimeCount.
func TestOnlyTopXKeepsTopN(t *testing.T) {
	program := []instr{
		opImm(OpPushInt, 1),
		opImm(OpPushInt, 2),
		opImm(OpPushInt, 3),
		opImm(OpOnlyTopX, 2),
	}
	e := newEngine(t, program, baseConfig())
	code, err := e.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	wantInts(t, e.Stack.Values(), 2, 3)
}

// TestOnlyXPopsRuntimeCount mirrors TestOnlyTopXKeepsTopN via ONLYX's
// stack-sourced count operand.
func TestOnlyXPopsRuntimeCount(t *testing.T) {
	program := []instr{
		opImm(OpPushInt, 1),
		opImm(OpPushInt, 2),
		opImm(OpPushInt, 3),
		opImm(OpPushInt, 2),
		op(OpOnlyX),
	}
	e := newEngine(t, program, baseConfig())
	code, err := e.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	wantInts(t, e.Stack.Values(), 2, 3)
}

// TestXchg3ReordersThreeDepths checks XCHG3's three fixed-depth exchanges.
func TestXchg3ReordersThreeDepths(t *testing.T) {
	program := []instr{
		opImm(OpPushInt, 1),
		opImm(OpPushInt, 2),
		opImm(OpPushInt, 3),
		opImm(OpPushInt, 4),
		opImm(OpXchg3, (1<<16)|(2<<8)|3),
	}
	e := newEngine(t, program, baseConfig())
	code, err := e.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if e.Stack.Depth() != 4 {
		t.Fatalf("stack depth = %d, want 4", e.Stack.Depth())
	}
	// [1 2 3 4]: XCHG 0,1 -> [1 2 4 3]; XCHG 1,2 -> [1 4 2 3]; XCHG 2,3 -> [4 1 2 3].
	wantInts(t, e.Stack.Values(), 4, 1, 2, 3)
}

// TestPush3PushesThreeOriginalDepths checks PUSH3 reads its three source
// depths before any of its own pushes can shift them.
func TestPush3PushesThreeOriginalDepths(t *testing.T) {
	program := []instr{
		opImm(OpPushInt, 10),
		opImm(OpPushInt, 20),
		opImm(OpPushInt, 30),
		opImm(OpPush3, (2<<16)|(1<<8)|0),
	}
	e := newEngine(t, program, baseConfig())
	code, err := e.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	wantInts(t, e.Stack.Values(), 10, 20, 30, 10, 20, 30)
}

// TestBitwiseAndOrXorNot covers the signaling bitwise family.
func TestBitwiseAndOrXorNot(t *testing.T) {
	program := []instr{
		opImm(OpPushInt, 6),
		opImm(OpPushInt, 3),
		op(OpAnd),
		opImm(OpPushInt, 3),
		op(OpOr),
		opImm(OpPushInt, 5),
		op(OpXor),
		op(OpNot),
	}
	e := newEngine(t, program, baseConfig())
	code, err := e.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	// 6&3=2, 2|3=3, 3^5=6, NOT 6 = -7.
	wantInts(t, e.Stack.Values(), -7)
}

// TestShiftLeftAndRight covers LSHIFT/RSHIFT.
func TestShiftLeftAndRight(t *testing.T) {
	program := []instr{
		opImm(OpPushInt, 3),
		opImm(OpPushInt, 4),
		op(OpLshift), // 3 << 4 = 48
		opImm(OpPushInt, 2),
		opImm(OpRshift, int64(bigint.RoundFloor)), // 48 >> 2 = 12
	}
	e := newEngine(t, program, baseConfig())
	code, err := e.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	wantInts(t, e.Stack.Values(), 12)
}

// TestQuietDivisionByZeroStillRaises checks that QDIVMOD does not quiet a
// zero divisor: quiet flavor propagates NaN operands, but division by zero
// raises IntegerOverflow just as DIVMOD does.
func TestQuietDivisionByZeroStillRaises(t *testing.T) {
	program := []instr{
		opImm(OpPushInt, 10),
		opImm(OpPushInt, 0),
		opImm(OpQDivMod, int64(bigint.RoundFloor)),
	}
	e := newEngine(t, program, baseConfig())
	code, err := e.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != int(vmerr.IntegerOverflow) {
		t.Fatalf("exit code = %d, want %d (IntegerOverflow from division by zero)", code, int(vmerr.IntegerOverflow))
	}
}

// TestDivAndModSingleResult checks DIV/MOD each leave only their half of
// DIVMOD's pair.
func TestDivAndModSingleResult(t *testing.T) {
	program := []instr{
		opImm(OpPushInt, 17),
		opImm(OpPushInt, 5),
		opImm(OpDiv, int64(bigint.RoundFloor)),
		opImm(OpPushInt, 17),
		opImm(OpPushInt, 5),
		opImm(OpMod, int64(bigint.RoundFloor)),
	}
	e := newEngine(t, program, baseConfig())
	code, err := e.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	wantInts(t, e.Stack.Values(), 3, 2)
}

// TestCmpIntFamily covers EQINT/LESSINT/GTINT.
func TestCmpIntFamily(t *testing.T) {
	program := []instr{
		opImm(OpPushInt, 5),
		opImm(OpEqInt, 5),
		opImm(OpPushInt, 5),
		opImm(OpLessInt, 10),
		opImm(OpPushInt, 5),
		opImm(OpGtInt, 10),
	}
	e := newEngine(t, program, baseConfig())
	code, err := e.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	wantInts(t, e.Stack.Values(), -1, -1, 0)
}

// TestStoreAndLoadGrams round-trips a value through STGRAMS/LDGRAMS.
func TestStoreAndLoadGrams(t *testing.T) {
	program := []instr{
		opImm(OpPushInt, 1_000_000),
		op(OpNewC),
		op(OpStGrams),
		op(OpEndC),
		op(OpCToS),
		op(OpLdGrams),
	}
	e := newEngine(t, program, baseConfig())
	code, err := e.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	vals := e.Stack.Values()
	if len(vals) != 2 {
		t.Fatalf("stack depth = %d, want 2", len(vals))
	}
	n, ok := vals[0].AsInteger()
	if !ok {
		t.Fatalf("vals[0] not integer: %v", vals[0])
	}
	bi, _ := n.BigInt()
	if bi.Int64() != 1_000_000 {
		t.Fatalf("loaded grams = %d, want 1000000", bi.Int64())
	}
}

// TestStoreVarInt16SignedRoundTrip round-trips a negative value through
// STVARINT16/LDVARINT16.
func TestStoreVarInt16SignedRoundTrip(t *testing.T) {
	program := []instr{
		opImm(OpPushInt, -12345),
		op(OpNewC),
		op(OpStVarInt16),
		op(OpEndC),
		op(OpCToS),
		op(OpLdVarInt16),
	}
	e := newEngine(t, program, baseConfig())
	code, err := e.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	vals := e.Stack.Values()
	n, ok := vals[0].AsInteger()
	if !ok {
		t.Fatalf("vals[0] not integer: %v", vals[0])
	}
	bi, _ := n.BigInt()
	if bi.Int64() != -12345 {
		t.Fatalf("loaded value = %d, want -12345", bi.Int64())
	}
}

// TestStoreVarUInt32WideRoundTrip exercises the 5-bit length-prefix form's
// wider byte ceiling with a value that needs more than 15 bytes... in
// practice a value that merely exceeds one byte, enough to prove the
// 5-bit prefix path runs (a 31-byte value would dwarf this test's purpose).
func TestStoreVarUInt32WideRoundTrip(t *testing.T) {
	program := []instr{
		opImm(OpPushInt, 70000),
		op(OpNewC),
		op(OpStVarUInt32),
		op(OpEndC),
		op(OpCToS),
		op(OpLdVarUInt32),
	}
	e := newEngine(t, program, baseConfig())
	code, err := e.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	vals := e.Stack.Values()
	n, ok := vals[0].AsInteger()
	if !ok {
		t.Fatalf("vals[0] not integer: %v", vals[0])
	}
	bi, _ := n.BigInt()
	if bi.Int64() != 70000 {
		t.Fatalf("loaded value = %d, want 70000", bi.Int64())
	}
}

// TestIfRefRunsEmbeddedContinuation covers the IFREF family with a ref
// embedded directly in the code cell rather than pushed via PUSHCONT.
func TestIfRefRunsEmbeddedContinuation(t *testing.T) {
	program := []instr{
		opImm(OpPushInt, 1),
		refInstr(OpIfRef, opImm(OpPushInt, 9)),
	}
	e := newEngine(t, program, baseConfig())
	code, err := e.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	wantInts(t, e.Stack.Values(), 9)
}

// TestIfRefElseRefPicksBranch covers the two-ref IFREFELSEREF form.
func TestIfRefElseRefPicksBranch(t *testing.T) {
	program := []instr{
		opImm(OpPushInt, 0),
		ifRefElseRef([]instr{opImm(OpPushInt, 1)}, []instr{opImm(OpPushInt, 2)}),
	}
	e := newEngine(t, program, baseConfig())
	code, err := e.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	wantInts(t, e.Stack.Values(), 2)
}

// TestIfRetReturnsWhenTrue checks IFRET transfers to c0 without consuming
// anything beyond the flag.
func TestIfRetReturnsWhenTrue(t *testing.T) {
	program := []instr{
		pushCont(
			opImm(OpPushInt, 1),
			opImm(OpPushInt, 1),
			op(OpIfRet),
			opImm(OpPushInt, 99),
		),
		op(OpExecute),
	}
	e := newEngine(t, program, baseConfig())
	code, err := e.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	wantInts(t, e.Stack.Values(), 1)
}

// TestCondSelPicksByFlag covers CONDSEL's value-level (non-branching)
// selection.
func TestCondSelPicksByFlag(t *testing.T) {
	program := []instr{
		opImm(OpPushInt, 11),
		opImm(OpPushInt, 22),
		opImm(OpPushInt, 1),
		op(OpCondSel),
	}
	e := newEngine(t, program, baseConfig())
	code, err := e.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	wantInts(t, e.Stack.Values(), 11)
}

// TestCondSelChkRejectsMismatchedKinds checks CONDSELCHK's added type-check.
func TestCondSelChkRejectsMismatchedKinds(t *testing.T) {
	program := []instr{
		op(OpNewC),
		opImm(OpPushInt, 22),
		opImm(OpPushInt, 1),
		op(OpCondSelChk),
	}
	e := newEngine(t, program, baseConfig())
	code, err := e.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != int(vmerr.TypeCheckError) {
		t.Fatalf("exit code = %d, want %d (TypeCheckError)", code, int(vmerr.TypeCheckError))
	}
}

// TestSetContArgsBindsFixedStack checks SETCONTARGS attaches a captured
// argument stack a subsequent EXECUTE sees.
func TestSetContArgsBindsFixedStack(t *testing.T) {
	program := []instr{
		opImm(OpPushInt, 2),
		opImm(OpPushInt, 3),
		pushCont(op(OpAdd)),
		opImm(OpSetContArgs, (2<<8)|0xFF),
		op(OpExecute),
	}
	e := newEngine(t, program, baseConfig())
	code, err := e.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	wantInts(t, e.Stack.Values(), 5)
}

// TestBlessBuildsOrdinaryContinuation checks BLESS turns a plain slice into
// a runnable continuation.
func TestBlessBuildsOrdinaryContinuation(t *testing.T) {
	body, err := assemble([]instr{opImm(OpPushInt, 4)})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	e := newEngine(t, []instr{op(OpBless), op(OpExecute)}, baseConfig())
	if err := e.Stack.Push(stack.SliceValue(cell.NewSlice(body))); err != nil {
		t.Fatalf("seed slice: %v", err)
	}
	code, err := e.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	wantInts(t, e.Stack.Values(), 4)
}

// TestBoolAndBoolOr covers the value-level boolean combinators.
func TestBoolAndBoolOr(t *testing.T) {
	program := []instr{
		opImm(OpPushInt, -1),
		opImm(OpPushInt, 0),
		op(OpBoolAnd),
		opImm(OpPushInt, -1),
		opImm(OpPushInt, 0),
		op(OpBoolOr),
	}
	e := newEngine(t, program, baseConfig())
	code, err := e.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	wantInts(t, e.Stack.Values(), 0, -1)
}

// TestCallRefExecutesEmbeddedRef checks CALLREF's implicit-return back to
// the caller's own code.
func TestCallRefExecutesEmbeddedRef(t *testing.T) {
	program := []instr{
		refInstr(OpCallRef, opImm(OpPushInt, 1)),
		opImm(OpPushInt, 2),
	}
	e := newEngine(t, program, baseConfig())
	code, err := e.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	wantInts(t, e.Stack.Values(), 1, 2)
}

// TestDictIGetJmpSignedKey checks the signed-key dictionary variant against
// a negative key.
func TestDictIGetJmpSignedKey(t *testing.T) {
	target, err := assembleSlice([]instr{opImm(OpPushInt, 42)})
	if err != nil {
		t.Fatalf("assembleSlice: %v", err)
	}
	neg := bigint.FromInt64(-5)
	root, err := dict.Build([]dict.Entry{{Key: neg.SignedTwosComplement(8), Value: target}}, 8)
	if err != nil {
		t.Fatalf("dict.Build: %v", err)
	}

	program := []instr{opImm(OpDictIGetJmp, 8)}
	e := newEngine(t, program, baseConfig())
	_ = e.Stack.Push(stack.Integer(neg))
	_ = e.Stack.Push(stack.CellValue(root))
	code, err := e.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	wantInts(t, e.Stack.Values(), 42)
}

// TestDictUGetJmpZLeavesKeyOnMiss checks the …Z variant's documented
// "continue with the key still on the stack" miss behavior, as opposed to
// plain DICTUGETJMP's DictionaryError (TestDictUGetJmpKeyMiss).
func TestDictUGetJmpZLeavesKeyOnMiss(t *testing.T) {
	target, err := assembleSlice([]instr{opImm(OpPushInt, 42)})
	if err != nil {
		t.Fatalf("assembleSlice: %v", err)
	}
	root, err := dict.Build([]dict.Entry{{Key: []byte{5}, Value: target}}, 8)
	if err != nil {
		t.Fatalf("dict.Build: %v", err)
	}

	program := []instr{opImm(OpDictUGetJmpZ, 8)}
	e := newEngine(t, program, baseConfig())
	_ = e.Stack.Push(stack.Integer(bigint.FromInt64(9)))
	_ = e.Stack.Push(stack.CellValue(root))
	code, err := e.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	wantInts(t, e.Stack.Values(), 9)
}

// TestDictUGetExecCallsWithImplicitReturn checks the EXEC variant CALLs
// rather than JMPs, so control returns to the code after it.
func TestDictUGetExecCallsWithImplicitReturn(t *testing.T) {
	target, err := assembleSlice([]instr{opImm(OpPushInt, 42)})
	if err != nil {
		t.Fatalf("assembleSlice: %v", err)
	}
	root, err := dict.Build([]dict.Entry{{Key: []byte{5}, Value: target}}, 8)
	if err != nil {
		t.Fatalf("dict.Build: %v", err)
	}

	program := []instr{
		opImm(OpDictUGetExec, 8),
		opImm(OpPushInt, 7),
	}
	e := newEngine(t, program, baseConfig())
	_ = e.Stack.Push(stack.Integer(bigint.FromInt64(5)))
	_ = e.Stack.Push(stack.CellValue(root))
	code, err := e.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	wantInts(t, e.Stack.Values(), 42, 7)
}

// TestCallDictCallsProcedureByNumber checks CALLDICT's stack-sourced
// dictionary lookup and its CALL (not JMP) semantics.
func TestCallDictCallsProcedureByNumber(t *testing.T) {
	target, err := assembleSlice([]instr{opImm(OpPushInt, 42)})
	if err != nil {
		t.Fatalf("assembleSlice: %v", err)
	}
	root, err := dict.Build([]dict.Entry{{Key: []byte{0, 7}, Value: target}}, 16)
	if err != nil {
		t.Fatalf("dict.Build: %v", err)
	}
	program := []instr{
		opImm(OpCallDict, 7),
		opImm(OpPushInt, 5),
	}
	e := newEngine(t, program, baseConfig())
	if err := e.Stack.Push(stack.CellValue(root)); err != nil {
		t.Fatalf("seed dict: %v", err)
	}
	code, err := e.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	wantInts(t, e.Stack.Values(), 42, 5)
}

// TestSetContCtrAndSameAltSave exercise the save-list direct-write
// operators together: SETCONTCTR writes an explicit value into a register
// slot, SAMEALTSAVE copies the live c1 in.
func TestSetContCtrAndSameAltSave(t *testing.T) {
	body, err := assembleSlice([]instr{opImm(OpPushInt, 1)})
	if err != nil {
		t.Fatalf("assembleSlice: %v", err)
	}
	program := []instr{opImm(OpSetContCtr, 4), op(OpSameAltSave)}
	e := newEngine(t, program, baseConfig())
	if err := e.Stack.Push(stack.Integer(bigint.FromInt64(5))); err != nil {
		t.Fatalf("seed value: %v", err)
	}
	k := cont.NewOrdinary(body)
	if err := e.Stack.Push(stack.ContinuationValue(k)); err != nil {
		t.Fatalf("seed continuation: %v", err)
	}
	code, err := e.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	vals := e.Stack.Values()
	if len(vals) != 1 {
		t.Fatalf("stack depth = %d, want 1", len(vals))
	}
	kv, ok := vals[0].AsContinuation()
	if !ok {
		t.Fatalf("vals[0] not a continuation: %v", vals[0])
	}
	got := kv.(*cont.Continuation)
	if _, ok := got.Save.Get(cont.C4); !ok {
		t.Fatalf("SETCONTCTR did not fill save-list slot c4")
	}
	if _, ok := got.Save.Get(cont.C1); !ok {
		t.Fatalf("SAMEALTSAVE did not fill save-list slot c1")
	}
}
