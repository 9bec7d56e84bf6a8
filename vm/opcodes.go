// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

// Package vm implements the cell-addressed stack-machine execution core:
// instruction fetch/decode from a cell-encoded code stream, the dispatcher,
// the exception engine, and the crypto opcode primitives. Unlike the
// teacher's fixed 4-byte 3-address register encoding ([opcode:8][a:8][b:8]
// [c:8]), this machine's code stream is a sequence of bits read off a
// cell.Slice: an 8-bit opcode tag followed by however many operand bits
// that opcode defines (a 16-bit immediate for PUSHINT, a nested code
// reference for PUSHCONT, and so on) — the shape the reference VM's own
// variable-width instruction encoding takes, simplified since the
// assembler and wire-level bytecode format are out of scope here (only the
// execution semantics are).
package vm

import "github.com/cellvm/tvmcore/internal/capability"

// Opcode is an 8-bit instruction tag.
type Opcode uint8

const (
	// ---- stack literals and simple stack ops -------------------------------

	OpPushInt  Opcode = iota // 16-bit signed immediate
	OpPushNaN                // no operand
	OpPushPow2               // 9-bit unsigned immediate n; pushes 2^n (256 == PUSHNAN)
	OpPushCont               // one ref: nested code
	OpPop                    // drop top
	OpDrop2                  // drop top two
	OpDup                    // PUSH 0
	OpXchg                   // 8-bit i, 8-bit j
	OpDepth

	// ---- stack bulk/runtime-index ops ---------------------------------------

	OpBlkPush   // 8-bit count, 8-bit j: push count copies of the value at depth j
	OpBlkDrop   // 8-bit n: drop the top n values
	OpBlkDrop2  // 8-bit count, 8-bit j: drop count values starting at depth j
	OpBlkSwap   // 8-bit i, 8-bit j: swap the top i values with the i..i+j beneath them
	OpReverse   // 8-bit i, 8-bit j: reverse the i values starting at depth j
	OpRoll      // 8-bit n: move the top value to depth n
	OpRollRev   // 8-bit n: move the value at depth n to the top
	OpOnlyTopX  // 8-bit n: keep only the top n values, dropping the rest
	OpPick      // 8-bit n: push a copy of the value at depth n (PUSH n by another name)
	OpXchg3     // 8-bit i, 8-bit j, 8-bit k: successive XCHG 0,i / 1,j / 2,k
	OpPush3     // 8-bit i, 8-bit j, 8-bit k: push copies of the values originally at depths i, j, k, in that order
	OpOnlyX     // no operand; pops n, keeps only the top n values
	OpRollX     // no operand; pops n, then ROLL n
	OpBlkSwX    // no operand; pops j then i, then BLKSWAP i,j
	OpRevX      // no operand; pops j then i, then REVERSE i,j
	OpDropX     // no operand; pops n, drops the top n values
	OpXchgX     // no operand; pops j then i, then XCHG i,j

	// ---- arithmetic ---------------------------------------------------------

	OpAdd
	OpSub
	OpMul
	OpDivMod // 8-bit rounding mode
	OpInc    // x -> x+1
	OpNeg

	// ---- quiet / bitwise / comparison / shift big-integer ops ---------------

	OpEqInt    // 16-bit signed immediate; pushes -1/0 for x == imm
	OpLessInt  // 16-bit signed immediate; pushes -1/0 for x < imm
	OpGtInt    // 16-bit signed immediate; pushes -1/0 for x > imm
	OpLshift   // no operand; pops shift count n, then x << n
	OpRshift   // 8-bit rounding mode; pops shift count n, then x >> n
	OpQAdd     // quiet ADD: NaN instead of a signaled overflow
	OpQSub     // quiet SUB
	OpQMul     // quiet MUL
	OpQDivMod  // 8-bit rounding mode; quiet DIVMOD
	OpAnd      // bitwise AND of two's-complement representations
	OpOr       // bitwise OR
	OpXor      // bitwise XOR
	OpNot      // bitwise complement
	OpDiv      // 8-bit rounding mode; quotient only
	OpMod      // 8-bit rounding mode; remainder only

	// ---- variable-length integer cell I/O (TON VarInteger/Grams wire shape) --

	OpStVarInt16  // no operand; pops builder, signed x; 4-bit byte-length prefix, <=15 bytes
	OpStGrams     // no operand; pops builder, unsigned x; 4-bit byte-length prefix, <=15 bytes
	OpStVarUInt32 // no operand; pops builder, unsigned x; 5-bit byte-length prefix, <=31 bytes
	OpLdVarInt16  // no operand; pops slice, loads a VarInt16-encoded signed value
	OpLdGrams     // no operand; pops slice, loads a Grams-encoded unsigned value
	OpLdVarUInt32 // no operand; pops slice, loads a VarUInt32-encoded unsigned value

	// ---- cell I/O -------------------------------------------------------------

	OpNewC
	OpStU   // 8-bit width
	OpStI   // 8-bit width
	OpStRef
	OpEndC
	OpCToS
	OpLdU  // 8-bit width
	OpLdI  // 8-bit width
	OpLdRef

	// ---- control flow ---------------------------------------------------------

	OpExecute
	OpJmpX
	OpRet
	OpIf
	OpIfNot
	OpIfElse
	OpRetAlt          // no operand; jump to c1
	OpIfRet           // no operand; pop flag, RET if true
	OpIfNotRet        // no operand; pop flag, RET if false
	OpIfJmp           // no operand; pop flag, pop continuation, JMPX if true
	OpIfNotJmp        // no operand; pop flag, pop continuation, JMPX if false
	OpIfRef           // one ref; pop flag, execute the embedded continuation if true
	OpIfNotRef        // one ref; pop flag, execute the embedded continuation if false
	OpIfElseRef       // one ref; pop flag, pop then-continuation; execute popped if true, else embedded
	OpIfRefElse       // one ref; pop flag, pop else-continuation; execute embedded if true, else popped
	OpIfRefElseRef    // two refs: then, else; pop flag, execute whichever ref applies
	OpCondSel         // x y flag -- pushes x if flag is true, else y
	OpCondSelChk      // CONDSEL, but raises a type-check error unless x and y share a Kind
	OpSetContArgs     // 8-bit n, 8-bit m (m=0xFF means "unspecified"): pop continuation, bind n stack args, set its arity to m
	OpSetNumArgs      // 8-bit n (0xFF means "unspecified"): pop continuation, set its arity
	OpBless           // no operand; pop slice, wrap it as an ordinary continuation
	OpPopSave         // 8-bit register: save the live register's value into the current continuation's save-list, then pop the stack into it
	OpSetContCtr      // 8-bit register: pop continuation, pop value; write value into the continuation's save-list slot if unset
	OpSameAltSave     // no operand; pop continuation; copy the live c1 into its save-list slot c1 if unset
	OpCompos          // no operand; pop c2, pop c1; c1 resumes into c2 on implicit return
	OpComposAlt       // no operand; pop c2, pop c1; c1 resumes into c2 via c1 (alt-return) on implicit return
	OpBoolAnd         // no operand; value-level logical AND of two truth flags
	OpBoolOr          // no operand; value-level logical OR of two truth flags
	OpCallDict        // 16-bit procedure number; pop a dictionary cell, look up the number, CALL the match
	OpCallRef         // one ref; CALL the embedded continuation

	// ---- looping continuations ------------------------------------------------

	OpAgain     // no operand; pop body, loop it forever (until BRK/RETALT/exception)
	OpAgainEnd  // no operand; the remainder of the current continuation's code becomes the body
	OpAgainBrk  // no operand; pop brk, pop body; brk becomes reachable via RETALT for the loop's extent
	OpUntil     // no operand; pop body; run body, loop while the top-of-stack integer is zero
	OpUntilEnd  // no operand; remainder of current code is the body
	OpUntilBrk  // no operand; pop brk, pop body
	OpWhile     // no operand; pop body, pop cond; alternate cond/body, loop while cond is nonzero
	OpWhileEnd  // no operand; pop cond; remainder of current code is the body
	OpWhileBrk  // no operand; pop brk, pop body, pop cond
	OpRepeat    // no operand; pop count, pop body; run body count times
	OpRepeatEnd // no operand; pop count; remainder of current code is the body
	OpRepeatBrk // no operand; pop brk, pop count, pop body

	// ---- exceptions -------------------------------------------------------------

	OpThrow    // 16-bit number
	OpThrowIf  // 16-bit number
	OpTry
	OpTryKeep
	OpTryArgs // 8-bit n, 8-bit m: arg count in, result count expected out

	// ---- control registers / gas / commit -----------------------------------------

	OpPopCtr  // 8-bit register number
	OpPushCtr // 8-bit register number
	OpCommit
	OpAccept
	OpSetGasLimit
	OpBuyGas    // no operand; pops a nanogram amount, raises the gas limit at the fixed conversion rate
	OpGramToGas // no operand; pops a nanogram amount, pushes its gas equivalent without mutating the meter
	OpGasToGram // no operand; pops a gas amount, pushes its nanogram equivalent without mutating the meter

	// ---- dictionary -------------------------------------------------------------

	OpDictUGetJmp    // 8-bit key width; dictionary and key are popped from the stack
	OpDictIGetJmp    // 8-bit key width; signed-key variant of DICTUGETJMP
	OpDictUGetExec   // 8-bit key width; CALLs the match instead of jumping
	OpDictIGetExec   // 8-bit key width; signed-key variant of DICTUGETEXEC
	OpDictUGetJmpZ   // 8-bit key width; on miss, leaves the key on the stack and continues
	OpDictIGetJmpZ   // 8-bit key width; signed-key Z variant
	OpDictUGetExecZ  // 8-bit key width; Z variant that calls on a hit
	OpDictIGetExecZ  // 8-bit key width; signed-key Z variant that calls on a hit

	// ---- crypto -------------------------------------------------------------

	OpHashSha3   // no operand; pops a byte-aligned slice, pushes its SHA3-256 digest as an unsigned integer
	OpHashShake  // 8-bit output width in bytes (1..32); pops a byte-aligned slice, pushes its SHAKE256 digest
	OpChkSign    // no operand; pops ML-DSA public key slice (top), signature slice, hash slice, pushes a boolean
	OpEcRecover  // no operand; pops recovery id (top), signature slice (64 bytes r||s), hash slice, pushes a compressed SECP256K1 pubkey slice or Null on failure
	OpBlsPairing // 8-bit n: number of (G1, G2) pairs; pops n G2 slices then n G1 slices, pushes a boolean pairing-product-is-one result
)

// String gives each opcode a short mnemonic, used by logging and the
// disassembler; it deliberately mirrors the reference VM's own opcode
// names, not the teacher's OpAdd/OpSub-style register mnemonics.
func (op Opcode) String() string {
	switch op {
	case OpPushInt:
		return "PUSHINT"
	case OpPushNaN:
		return "PUSHNAN"
	case OpPushPow2:
		return "PUSHPOW2"
	case OpPushCont:
		return "PUSHCONT"
	case OpPop:
		return "POP"
	case OpDrop2:
		return "DROP2"
	case OpDup:
		return "DUP"
	case OpXchg:
		return "XCHG"
	case OpDepth:
		return "DEPTH"
	case OpBlkPush:
		return "BLKPUSH"
	case OpBlkDrop:
		return "BLKDROP"
	case OpBlkDrop2:
		return "BLKDROP2"
	case OpBlkSwap:
		return "BLKSWAP"
	case OpReverse:
		return "REVERSE"
	case OpRoll:
		return "ROLL"
	case OpRollRev:
		return "ROLLREV"
	case OpOnlyTopX:
		return "ONLYTOPX"
	case OpPick:
		return "PICK"
	case OpXchg3:
		return "XCHG3"
	case OpPush3:
		return "PUSH3"
	case OpOnlyX:
		return "ONLYX"
	case OpRollX:
		return "ROLLX"
	case OpBlkSwX:
		return "BLKSWX"
	case OpRevX:
		return "REVX"
	case OpDropX:
		return "DROPX"
	case OpXchgX:
		return "XCHGX"
	case OpAdd:
		return "ADD"
	case OpSub:
		return "SUB"
	case OpMul:
		return "MUL"
	case OpDivMod:
		return "DIVMOD"
	case OpInc:
		return "INC"
	case OpNeg:
		return "NEGATE"
	case OpEqInt:
		return "EQINT"
	case OpLessInt:
		return "LESSINT"
	case OpGtInt:
		return "GTINT"
	case OpLshift:
		return "LSHIFT"
	case OpRshift:
		return "RSHIFT"
	case OpQAdd:
		return "QADD"
	case OpQSub:
		return "QSUB"
	case OpQMul:
		return "QMUL"
	case OpQDivMod:
		return "QDIVMOD"
	case OpAnd:
		return "AND"
	case OpOr:
		return "OR"
	case OpXor:
		return "XOR"
	case OpNot:
		return "NOT"
	case OpDiv:
		return "DIV"
	case OpMod:
		return "MOD"
	case OpStVarInt16:
		return "STVARINT16"
	case OpStGrams:
		return "STGRAMS"
	case OpStVarUInt32:
		return "STVARUINT32"
	case OpLdVarInt16:
		return "LDVARINT16"
	case OpLdGrams:
		return "LDGRAMS"
	case OpLdVarUInt32:
		return "LDVARUINT32"
	case OpNewC:
		return "NEWC"
	case OpStU:
		return "STU"
	case OpStI:
		return "STI"
	case OpStRef:
		return "STREF"
	case OpEndC:
		return "ENDC"
	case OpCToS:
		return "CTOS"
	case OpLdU:
		return "LDU"
	case OpLdI:
		return "LDI"
	case OpLdRef:
		return "LDREF"
	case OpExecute:
		return "EXECUTE"
	case OpJmpX:
		return "JMPX"
	case OpRet:
		return "RET"
	case OpIf:
		return "IF"
	case OpIfNot:
		return "IFNOT"
	case OpIfElse:
		return "IFELSE"
	case OpRetAlt:
		return "RETALT"
	case OpIfRet:
		return "IFRET"
	case OpIfNotRet:
		return "IFNOTRET"
	case OpIfJmp:
		return "IFJMP"
	case OpIfNotJmp:
		return "IFNOTJMP"
	case OpIfRef:
		return "IFREF"
	case OpIfNotRef:
		return "IFNOTREF"
	case OpIfElseRef:
		return "IFELSEREF"
	case OpIfRefElse:
		return "IFREFELSE"
	case OpIfRefElseRef:
		return "IFREFELSEREF"
	case OpCondSel:
		return "CONDSEL"
	case OpCondSelChk:
		return "CONDSELCHK"
	case OpSetContArgs:
		return "SETCONTARGS"
	case OpSetNumArgs:
		return "SETNUMARGS"
	case OpBless:
		return "BLESS"
	case OpPopSave:
		return "POPSAVE"
	case OpSetContCtr:
		return "SETCONTCTR"
	case OpSameAltSave:
		return "SAMEALTSAVE"
	case OpCompos:
		return "COMPOS"
	case OpComposAlt:
		return "COMPOSALT"
	case OpBoolAnd:
		return "BOOLAND"
	case OpBoolOr:
		return "BOOLOR"
	case OpCallDict:
		return "CALLDICT"
	case OpCallRef:
		return "CALLREF"
	case OpAgain:
		return "AGAIN"
	case OpAgainEnd:
		return "AGAINEND"
	case OpAgainBrk:
		return "AGAINBRK"
	case OpUntil:
		return "UNTIL"
	case OpUntilEnd:
		return "UNTILEND"
	case OpUntilBrk:
		return "UNTILBRK"
	case OpWhile:
		return "WHILE"
	case OpWhileEnd:
		return "WHILEEND"
	case OpWhileBrk:
		return "WHILEBRK"
	case OpRepeat:
		return "REPEAT"
	case OpRepeatEnd:
		return "REPEATEND"
	case OpRepeatBrk:
		return "REPEATBRK"
	case OpThrow:
		return "THROW"
	case OpThrowIf:
		return "THROWIF"
	case OpTry:
		return "TRY"
	case OpTryKeep:
		return "TRYKEEP"
	case OpTryArgs:
		return "TRYARGS"
	case OpPopCtr:
		return "POPCTR"
	case OpPushCtr:
		return "PUSHCTR"
	case OpCommit:
		return "COMMIT"
	case OpAccept:
		return "ACCEPT"
	case OpSetGasLimit:
		return "SETGASLIMIT"
	case OpBuyGas:
		return "BUYGAS"
	case OpGramToGas:
		return "GRAMTOGAS"
	case OpGasToGram:
		return "GASTOGRAM"
	case OpDictUGetJmp:
		return "DICTUGETJMP"
	case OpDictIGetJmp:
		return "DICTIGETJMP"
	case OpDictUGetExec:
		return "DICTUGETEXEC"
	case OpDictIGetExec:
		return "DICTIGETEXEC"
	case OpDictUGetJmpZ:
		return "DICTUGETJMPZ"
	case OpDictIGetJmpZ:
		return "DICTIGETJMPZ"
	case OpDictUGetExecZ:
		return "DICTUGETEXECZ"
	case OpDictIGetExecZ:
		return "DICTIGETEXECZ"
	case OpHashSha3:
		return "HASHSHA3"
	case OpHashShake:
		return "HASHSHAKE"
	case OpChkSign:
		return "CHKSIGN"
	case OpEcRecover:
		return "ECRECOVER"
	case OpBlsPairing:
		return "BLSPAIRING"
	default:
		return "UNKNOWN"
	}
}

// OperandBits reports how many data bits (beyond the 8-bit opcode tag)
// each opcode's immediate operand occupies; 0 for opcodes with no
// immediate data bits (PUSHCONT's operand is a reference, not data bits;
// DICTUGETJMP's dictionary and key are stack operands, its only immediate
// is the key width). Ref-bearing opcodes are routed around this entirely
// by refCount(); their entries here are unused and left at the zero
// default.
func (op Opcode) OperandBits() int {
	switch op {
	case OpPushInt, OpEqInt, OpLessInt, OpGtInt:
		return 16
	// 9 bits: n ranges 0..256, with 256 a deliberate synonym for PUSHNAN
	// rather than an overflow case (spec §9 Open Questions).
	case OpPushPow2:
		return 9
	case OpXchg3, OpPush3:
		return 24
	case OpXchg, OpThrow, OpThrowIf, OpTryArgs, OpSetContArgs:
		return 16
	case OpStU, OpStI, OpLdU, OpLdI, OpPopCtr, OpPushCtr, OpDivMod,
		OpDictUGetJmp, OpDictIGetJmp, OpDictUGetExec, OpDictIGetExec,
		OpDictUGetJmpZ, OpDictIGetJmpZ, OpDictUGetExecZ, OpDictIGetExecZ,
		OpHashShake, OpBlsPairing,
		OpBlkDrop, OpRoll, OpRollRev, OpOnlyTopX, OpPick,
		OpRshift, OpQDivMod, OpDiv, OpMod, OpSetNumArgs, OpPopSave, OpSetContCtr:
		return 8
	case OpBlkPush, OpBlkDrop2, OpBlkSwap, OpReverse, OpCallDict:
		return 16
	default:
		return 0
	}
}

// opcodeBytes is used for gas's BaseCost(opcodeBytes) charge: the 1-byte
// tag plus the immediate's byte-rounded width.
func (op Opcode) opcodeBytes() int {
	return 1 + (op.OperandBits()+7)/8
}

// refCount reports how many code-cell references an instruction carries
// as its operand, read off the instruction stream in place of immediate
// bits (PUSHCONT's nested body, IFREF's embedded branch, and so on).
func (op Opcode) refCount() int {
	switch op {
	case OpPushCont, OpIfRef, OpIfNotRef, OpIfElseRef, OpIfRefElse, OpCallRef:
		return 1
	case OpIfRefElseRef:
		return 2
	default:
		return 0
	}
}

// requiredCapability reports the single capability bit that gates op, if
// any. Per spec: "an instruction whose capability bit is not present
// decodes as invalid-opcode (not a no-op)" — checked once at dispatch
// entry, the same moment a decode failure would be caught, never deeper
// inside the opcode's own handler.
func (op Opcode) requiredCapability() (capability.Set, bool) {
	switch op {
	case OpBlsPairing:
		return capability.BLSv2, true
	default:
		return 0, false
	}
}
