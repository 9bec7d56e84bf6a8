// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package main

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/urfave/cli.v1"

	"github.com/cellvm/tvmcore/internal/cell"
	"github.com/cellvm/tvmcore/vm"
)

var disasmCommand = cli.Command{
	Name:      "disasm",
	Usage:     "print a decoded instruction table for a bytecode file",
	ArgsUsage: "<bytecode-file>",
	Action: func(c *cli.Context) error {
		path := c.Args().First()
		if path == "" {
			return cli.NewExitError("usage: tvmrun disasm <bytecode-file>", 1)
		}
		code, err := loadCode(path)
		if err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
		rows, err := disassemble(code)
		if err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"offset", "mnemonic", "operand"})
		for _, r := range rows {
			table.Append(r)
		}
		table.Render()
		return nil
	},
}

// disassemble walks code one instruction at a time using only vm's exported
// opcode metadata (Opcode.String, Opcode.OperandBits) — it does not call
// into vm's own dispatcher, so it never charges gas or checks capability
// bits; its job is purely descriptive.
func disassemble(code *cell.Slice) ([][]string, error) {
	var rows [][]string
	offset := 0
	for code.RemainingBits() >= 8 {
		startOffset := offset
		raw, err := code.LoadUnsigned(8)
		if err != nil {
			return nil, fmt.Errorf("read opcode at bit %d: %w", offset, err)
		}
		bi, _ := raw.BigInt()
		op := vm.Opcode(bi.Int64())
		offset += 8

		operand := ""
		switch {
		case refBearingOpcodeCount(op) > 0:
			n := refBearingOpcodeCount(op)
			refs := make([]string, 0, n)
			for i := 0; i < n; i++ {
				if code.RemainingRefs() == 0 {
					return nil, fmt.Errorf("%s at bit %d: missing ref", op, startOffset)
				}
				ref, err := code.LoadRef()
				if err != nil {
					return nil, fmt.Errorf("read %s ref at bit %d: %w", op, startOffset, err)
				}
				refs = append(refs, fmt.Sprintf("ref(%d bits, %d refs)", ref.BitLen(), ref.RefsCount()))
			}
			operand = fmt.Sprintf("%v", refs)
		case op.OperandBits() > 0:
			n := op.OperandBits()
			v, err := code.LoadUnsigned(n)
			if err != nil {
				return nil, fmt.Errorf("read operand at bit %d: %w", offset, err)
			}
			operand = v.String()
			offset += n
		}

		rows = append(rows, []string{fmt.Sprintf("%d", startOffset), op.String(), operand})
	}
	return rows, nil
}

// refBearingOpcodeCount mirrors vm.Opcode's unexported refCount: how many
// cell refs (rather than bits) follow the opcode byte. Kept in sync by hand
// since the disassembler reads code independently of vm's own decoder.
func refBearingOpcodeCount(op vm.Opcode) int {
	switch op {
	case vm.OpPushCont, vm.OpIfRef, vm.OpIfNotRef, vm.OpIfElseRef, vm.OpIfRefElse, vm.OpCallRef:
		return 1
	case vm.OpIfRefElseRef:
		return 2
	default:
		return 0
	}
}
