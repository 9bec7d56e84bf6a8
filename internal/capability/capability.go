// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

// Package capability implements the engine's 64-bit capability bitmap: a
// table-driven set of behavior switches gating both newer instruction
// subsets and bug-fix behavior changes. Every gated behavior in this engine
// checks a named bit here, never a version number — "table-driven off the
// bitmap, never an 'if version' check" is the rule the whole vm package
// follows.
package capability

// Set is the invocation-wide capability bitmap.
type Set uint64

// Named capability bits. Bit 0 is reserved unset (a zero Set is the
// conservative, oldest-behavior baseline).
const (
	// TupleIndexBugfix gates the corrected bounds check on tuple INDEX/
	// UNTUPLE-family opcodes.
	TupleIndexBugfix Set = 1 << iota
	// StorageFeeAccess gates opcodes that read the current storage fee from
	// the runtime context tuple (c7).
	StorageFeeAccess
	// MyCodeAccess gates exposing the contract's own code cell to MYCODE-
	// style opcodes.
	MyCodeAccess
	// BLSv2 gates the consensys/gnark-crypto-backed BLS12-381 opcode subset.
	BLSv2
	// MerkleCellResolve gates implicit descent into Merkle-proof/update
	// cells during CTOS (spec §4.2).
	MerkleCellResolve
	// LibraryCellSet gates resolving library-reference cells through a
	// LibraryProvider during CTOS (spec §4.2); without it, a library cell
	// always raises DictionaryError.
	LibraryCellSet
	// SignatureCostRevision gates the revised, n-dependent signature-check
	// gas schedule (spec §4.5: "Per an enabled revision, the cost of the
	// n-th signature check ... scales as a function of n").
	SignatureCostRevision
	// BugfixesY2022 names the bundle of post-2022 corrected behaviors
	// (quiet-NaN propagation through STVARUINT32, and the deep-stack-switch
	// StackOverflow-instead-of-truncate fix). No opcode reads this bit:
	// STVARUINT32 and SETCONTARGS behave the same with or without it.
	BugfixesY2022
)

// Has reports whether bit is set.
func (s Set) Has(bit Set) bool { return s&bit != 0 }

// With returns a new Set with bit added.
func (s Set) With(bit Set) Set { return s | bit }

// Without returns a new Set with bit cleared.
func (s Set) Without(bit Set) Set { return s &^ bit }

// Baseline is the empty capability set: no bug fixes, no extended opcode
// subsets, matching the oldest documented behavior.
const Baseline Set = 0

// AllKnown is the union of every named bit, used by tests and by the CLI's
// capability-listing helper.
const AllKnown = TupleIndexBugfix | StorageFeeAccess | MyCodeAccess | BLSv2 |
	MerkleCellResolve | LibraryCellSet | SignatureCostRevision | BugfixesY2022
