// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

// Package integration exposes the execution core's invocation surface as a
// single call: construct a fresh engine, seed its stack and control
// registers, run it to halt, and read back the result. No state survives
// between calls except what the caller explicitly carries forward as the
// next invocation's Registers (c4/c5), mirroring the host's own retention
// rule (spec §6.3: "between invocations the host retains c4, c5 ... no
// other engine state survives").
package integration

import (
	"fmt"

	"github.com/cellvm/tvmcore/internal/capability"
	"github.com/cellvm/tvmcore/internal/cell"
	"github.com/cellvm/tvmcore/internal/cont"
	"github.com/cellvm/tvmcore/internal/stack"
	"github.com/cellvm/tvmcore/log"
	"github.com/cellvm/tvmcore/vm"
)

// Params bundles one invocation's inputs: the §6.2 invocation surface
// (code, initial stack, control registers, gas, libraries, capabilities),
// minus the IndexProvider parameter the surrounding account-lookup layer
// would supply, which is out of scope here.
type Params struct {
	Code      *cell.Slice
	Stack     []stack.Value
	Registers map[cont.Register]stack.Value
	GasLimitMax uint64
	GasLimit    uint64
	Caps        capability.Set
	Libraries   cell.LibraryProvider
	LibraryLRU  int
	ArenaSize   int
	Logger      log.Logger
}

// Result is the user-visible outcome of one invocation (spec §7:
// "user-visible failure = (exit_code, stack[value, number], committed_c4,
// committed_c5, gas_used)" — generalized here to cover the successful exit
// path too, since the shape is identical either way).
type Result struct {
	ExitCode    int
	Stack       []stack.Value
	CommittedC4 stack.Value
	CommittedC5 stack.Value
	Committed   bool
	GasUsed     uint64
}

// Execute runs one invocation to completion and returns its result. It
// never returns a non-nil error for an in-VM fault — those are reported
// through Result.ExitCode, per spec §7 ("the engine never propagates a
// host-level fault back to the host except via the final exit code + stack
// contents"). A non-nil error here means the invocation could not even be
// constructed (e.g. a malformed library provider) or the Go-API-level
// Step contract was violated.
func Execute(p Params) (*Result, error) {
	e, err := vm.New(p.Code, vm.Config{
		GasLimitMax: p.GasLimitMax,
		GasLimit:    p.GasLimit,
		Caps:        p.Caps,
		Libraries:   p.Libraries,
		LibraryLRU:  p.LibraryLRU,
		ArenaSize:   p.ArenaSize,
		Logger:      p.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("integration: construct engine: %w", err)
	}
	defer e.Close()

	for _, v := range p.Stack {
		if err := e.Stack.Push(v); err != nil {
			return nil, fmt.Errorf("integration: seed stack: %w", err)
		}
	}
	for reg, v := range p.Registers {
		e.Regs.Set(reg, v)
	}

	exitCode, err := e.Run()
	if err != nil {
		return nil, fmt.Errorf("integration: run: %w", err)
	}

	c4, c5, committed := e.CommittedState()
	return &Result{
		ExitCode:    exitCode,
		Stack:       e.Stack.Values(),
		CommittedC4: c4,
		CommittedC5: c5,
		Committed:   committed,
		GasUsed:     e.GasUsed(),
	}, nil
}
