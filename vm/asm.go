// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package vm

import (
	"github.com/cellvm/tvmcore/internal/bigint"
	"github.com/cellvm/tvmcore/internal/cell"
)

// instr is one hand-assembled instruction: an opcode, its immediate (for
// opcodes with a data operand), and up to two nested programs (for
// ref-bearing opcodes per Opcode.refCount — PUSHCONT/IFREF/CALLREF use one,
// IFREFELSEREF uses both). Tests build program slices of these the way the
// teacher's vm_test.go builds raw-byte instruction sequences with its own
// instr/instrWide helpers.
type instr struct {
	op      Opcode
	imm     int64
	nested  []instr
	nested2 []instr
}

// op builds a zero-operand instruction.
func op(o Opcode) instr { return instr{op: o} }

// opImm builds an instruction carrying an immediate operand.
func opImm(o Opcode, imm int64) instr { return instr{op: o, imm: imm} }

// pushCont builds a PUSHCONT instruction wrapping a nested program.
func pushCont(body ...instr) instr { return instr{op: OpPushCont, nested: body} }

// refInstr builds a single-ref instruction (IFREF, IFNOTREF, IFELSEREF,
// IFREFELSE, CALLREF) wrapping its embedded branch.
func refInstr(o Opcode, body ...instr) instr { return instr{op: o, nested: body} }

// ifRefElseRef builds IFREFELSEREF, whose two branches are both embedded
// as refs rather than one of them coming off the stack.
func ifRefElseRef(thenBody, elseBody []instr) instr {
	return instr{op: OpIfRefElseRef, nested: thenBody, nested2: elseBody}
}

// assemble encodes a program into a code cell: each instruction's 8-bit tag
// followed by its operand bits, with ref-bearing instructions recursively
// assembled into references instead of inline bits.
func assemble(program []instr) (*cell.Cell, error) {
	b := cell.NewBuilder()
	if err := assembleInto(b, program); err != nil {
		return nil, err
	}
	return b.Finalize()
}

func assembleInto(b *cell.Builder, program []instr) error {
	for _, in := range program {
		if err := b.StoreUnsigned(bigint.FromInt64(int64(in.op)), 8); err != nil {
			return err
		}
		if rc := in.op.refCount(); rc > 0 {
			refPrograms := [2][]instr{in.nested, in.nested2}
			for i := 0; i < rc; i++ {
				nestedCell, err := assemble(refPrograms[i])
				if err != nil {
					return err
				}
				if err := b.StoreRef(nestedCell); err != nil {
					return err
				}
			}
			continue
		}
		n := in.op.OperandBits()
		if n == 0 {
			continue
		}
		switch in.op {
		case OpPushInt, OpEqInt, OpLessInt, OpGtInt:
			if err := b.StoreSigned(bigint.FromInt64(in.imm), n); err != nil {
				return err
			}
		default:
			if err := b.StoreUnsigned(bigint.FromInt64(in.imm), n); err != nil {
				return err
			}
		}
	}
	return nil
}

// assembleSlice is the test-facing entry point: build a program and get
// back a ready-to-run code slice (what New expects).
func assembleSlice(program []instr) (*cell.Slice, error) {
	c, err := assemble(program)
	if err != nil {
		return nil, err
	}
	return cell.NewSlice(c), nil
}
