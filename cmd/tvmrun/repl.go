// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/peterh/liner"
	"gopkg.in/urfave/cli.v1"

	"github.com/cellvm/tvmcore/internal/capability"
	"github.com/cellvm/tvmcore/vm"
)

var replCommand = cli.Command{
	Name:      "repl",
	Usage:     "single-step a bytecode file interactively",
	ArgsUsage: "<bytecode-file>",
	Flags:     []cli.Flag{gasFlag},
	Action: func(c *cli.Context) error {
		path := c.Args().First()
		if path == "" {
			return cli.NewExitError("usage: tvmrun repl <bytecode-file>", 1)
		}
		code, err := loadCode(path)
		if err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
		gasLimit := c.Uint64("gas")
		e, err := vm.New(code, vm.Config{
			GasLimitMax: gasLimit,
			GasLimit:    gasLimit,
			Caps:        capability.Baseline.With(capability.BugfixesY2022),
		})
		if err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
		defer e.Close()
		return runRepl(e)
	},
}

// runRepl drives a line-editing session over e: "step" advances one
// instruction, "run" drains to halt, "dump" prints the live engine state,
// "quit" exits. Unrecognized lines are treated as "step" for convenience.
func runRepl(e *vm.Engine) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	fmt.Println("tvmrun repl — step, run, dump, quit")
	for {
		input, err := line.Prompt("tvm> ")
		if err == liner.ErrPromptAborted || err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		cmd := strings.TrimSpace(input)
		if cmd != "" {
			line.AppendHistory(cmd)
		}

		switch cmd {
		case "quit", "exit", "q":
			return nil
		case "dump", "d":
			fmt.Print(e.Dump())
		case "run", "r":
			if err := stepUntilHalt(e); err != nil {
				fmt.Printf("error: %v\n", err)
			}
		default:
			if e.Halted() {
				fmt.Println("engine already halted")
				continue
			}
			if err := e.Step(); err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			if e.Halted() {
				fmt.Printf("halted: exit code %d, gas used %d\n", e.ExitCode(), e.GasUsed())
			}
		}
	}
}

func stepUntilHalt(e *vm.Engine) error {
	for !e.Halted() {
		if err := e.Step(); err != nil {
			return err
		}
	}
	fmt.Printf("halted: exit code %d, gas used %d\n", e.ExitCode(), e.GasUsed())
	return nil
}
