// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package vm

import (
	"github.com/cellvm/tvmcore/internal/bigint"
	"github.com/cellvm/tvmcore/internal/cell"
)

// operand carries an instruction's decoded immediate: at most one of Imm
// (the operand bits, sign-agnostic — callers interpret per opcode) or Refs
// (the opcode's nested code cells, per Opcode.refCount) is meaningful.
type operand struct {
	Imm  int64
	Refs []*cell.Cell
}

// decode reads one instruction from code: an 8-bit opcode tag, then
// whatever immediate bits/refs that opcode defines. It returns the opcode,
// its operand, and the instruction's encoded length in bytes (for the gas
// meter's base-cost charge).
func decode(code *cell.Slice) (Opcode, operand, int, error) {
	tagBits, err := code.LoadUnsigned(8)
	if err != nil {
		return 0, operand{}, 0, err
	}
	bi, _ := tagBits.BigInt()
	op := Opcode(bi.Int64())

	if rc := op.refCount(); rc > 0 {
		refs := make([]*cell.Cell, rc)
		for i := 0; i < rc; i++ {
			ref, err := code.LoadRef()
			if err != nil {
				return 0, operand{}, 0, err
			}
			refs[i] = ref
		}
		return op, operand{Refs: refs}, 1, nil
	}

	n := op.OperandBits()
	if n == 0 {
		return op, operand{}, op.opcodeBytes(), nil
	}
	// PUSHINT/EQINT/LESSINT/GTINT's immediates are signed; every other
	// operand (widths, register numbers, exception numbers, packed i/j or
	// n/m pairs) is unsigned.
	var bits *bigint.Int
	switch op {
	case OpPushInt, OpEqInt, OpLessInt, OpGtInt:
		bits, err = code.LoadSigned(n)
	default:
		bits, err = code.LoadUnsigned(n)
	}
	if err != nil {
		return 0, operand{}, 0, err
	}
	v, _ := bits.BigInt()
	return op, operand{Imm: v.Int64()}, op.opcodeBytes(), nil
}
