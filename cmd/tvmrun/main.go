// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

// Command tvmrun loads cell-encoded bytecode and runs, disassembles, or
// single-steps it. It reads bytecode files as-is: compiling mnemonic
// source into cell-encoded bytecode is a separate concern this tool does
// not take on, so `run`/`disasm`/`repl` all expect an already-encoded
// program (its raw bytes become one root cell's data bits).
package main

import (
	"fmt"
	"os"

	"gopkg.in/urfave/cli.v1"

	"github.com/cellvm/tvmcore/internal/capability"
	"github.com/cellvm/tvmcore/internal/cell"
	"github.com/cellvm/tvmcore/integration"
)

const version = "0.1.0"

func main() {
	app := cli.NewApp()
	app.Name = "tvmrun"
	app.Usage = "run, disassemble, or single-step cell-VM bytecode"
	app.Version = version
	app.Commands = []cli.Command{
		runCommand,
		disasmCommand,
		replCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "tvmrun: %v\n", err)
		os.Exit(1)
	}
}

var gasFlag = cli.Uint64Flag{
	Name:  "gas",
	Usage: "gas limit for the invocation",
	Value: 1_000_000,
}

var runCommand = cli.Command{
	Name:      "run",
	Usage:     "execute a bytecode file to completion",
	ArgsUsage: "<bytecode-file>",
	Flags:     []cli.Flag{gasFlag},
	Action: func(c *cli.Context) error {
		path := c.Args().First()
		if path == "" {
			return cli.NewExitError("usage: tvmrun run <bytecode-file>", 1)
		}
		code, err := loadCode(path)
		if err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
		gasLimit := c.Uint64("gas")
		result, err := integration.Execute(integration.Params{
			Code:        code,
			GasLimitMax: gasLimit,
			GasLimit:    gasLimit,
			Caps:        capability.Baseline.With(capability.BugfixesY2022),
		})
		if err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
		fmt.Printf("exit code: %d\n", result.ExitCode)
		fmt.Printf("gas used:  %d\n", result.GasUsed)
		fmt.Printf("stack depth: %d\n", len(result.Stack))
		for i, v := range result.Stack {
			fmt.Printf("  [%d] %s\n", i, v)
		}
		return nil
	},
}

// loadCode reads path's raw bytes as the data bits of one root cell, the
// bytecode shape every tvmrun subcommand expects.
func loadCode(path string) (*cell.Slice, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	b := cell.NewBuilder()
	if err := b.StoreBytes(data); err != nil {
		return nil, fmt.Errorf("encode %s as one root cell: %w", path, err)
	}
	c, err := b.Finalize()
	if err != nil {
		return nil, fmt.Errorf("finalize %s: %w", path, err)
	}
	return cell.NewSlice(c), nil
}
