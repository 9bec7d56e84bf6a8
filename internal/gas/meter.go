// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

// Package gas implements the invocation's gas meter (spec §4.5): the
// limit_max/limit/credit/remaining state, the base per-instruction cost,
// and the resource-shaped charges (cell load, cell creation, tuple
// creation, signature checks, BLS operations). The teacher's vm package
// charges gas with a flat per-category constant table (gasArithmetic,
// gasMul, ...); this meter generalizes that into the reference VM's
// limit/credit/remaining accounting while keeping the same "named constant
// per charge kind" shape.
package gas

import (
	mapset "github.com/deckarep/golang-set"

	"github.com/cellvm/tvmcore/internal/stack"
	"github.com/cellvm/tvmcore/internal/vmerr"
)

// Per spec §4.5: "base cost = 10 + 1 x opcode_bytes".
const baseCostFixed uint64 = 10

// Resource-shaped charge constants, named the way the teacher names its
// flat per-category gas costs.
const (
	CellLoadFirst      uint64 = 100  // first load of a given cell hash this invocation
	CellLoadDedup      uint64 = 25   // repeated load of an already-loaded cell hash
	CellCreate         uint64 = 500  // ENDC/ENDXC finalize
	TupleCreatePerEl   uint64 = 1    // per element beyond the first, on tuple construction
	SignatureCheckBase uint64 = 1000 // flat per-check cost absent the revision flag
	BLSOpBase          uint64 = 2000 // per BLS12-381 operation, scaled by n for multi-scalar variants
)

// NanogramsPerGasUnit is BUYGAS's fixed conversion rate (spec §4.5:
// "converts to gas at a fixed rate (10 gas per unit)").
const NanogramsPerGasUnit uint64 = 10

// Meter tracks one invocation's gas accounting.
type Meter struct {
	limitMax  uint64
	limit     uint64
	credit    uint64
	remaining int64 // signed: can go negative down to -credit before OutOfGas
	used      uint64

	loadedCells   mapset.Set // set of cell hashes (as string keys) already charged CellLoadFirst
	sigCheckCount int        // number of signature checks charged so far this invocation
}

// NewMeter builds a meter with the given hard ceiling (limit_max) and an
// initial limit (typically 0 until ACCEPT, or limitMax if the invocation is
// pre-accepted).
func NewMeter(limitMax, initialLimit uint64) *Meter {
	return &Meter{
		limitMax:    limitMax,
		limit:       initialLimit,
		remaining:   int64(initialLimit),
		loadedCells: mapset.NewSet(),
	}
}

// Used returns the cumulative gas consumed so far.
func (m *Meter) Used() uint64 { return m.used }

// Remaining returns the signed remaining balance (may be negative while
// still within credit).
func (m *Meter) Remaining() int64 { return m.remaining }

// Limit returns the current limit.
func (m *Meter) Limit() uint64 { return m.limit }

// Charge deducts cost from remaining, raising OutOfGas if the result would
// fall below -credit.
func (m *Meter) Charge(cost uint64) error {
	m.remaining -= int64(cost)
	m.used += cost
	if m.remaining < -int64(m.credit) {
		return vmerr.New(vmerr.OutOfGas, stack.Null())
	}
	return nil
}

// BaseCost computes an instruction's base charge from its encoded length in
// bytes (spec §4.5).
func BaseCost(opcodeBytes int) uint64 {
	return baseCostFixed + uint64(opcodeBytes)
}

// ChargeInstruction charges BaseCost(opcodeBytes).
func (m *Meter) ChargeInstruction(opcodeBytes int) error {
	return m.Charge(BaseCost(opcodeBytes))
}

// ChargeCellLoad charges the cell-load fee for hash, deduplicating within
// the invocation's lifetime via the loadedCells set (spec §4.2, §4.5).
func (m *Meter) ChargeCellLoad(hash [32]byte) error {
	key := string(hash[:])
	if m.loadedCells.Contains(key) {
		return m.Charge(CellLoadDedup)
	}
	m.loadedCells.Add(key)
	return m.Charge(CellLoadFirst)
}

// ChargeTupleCreate charges the per-element cost of building a tuple of the
// given arity (the first element is free, per spec §4.5).
func (m *Meter) ChargeTupleCreate(arity int) error {
	if arity <= 1 {
		return nil
	}
	return m.Charge(uint64(arity-1) * TupleCreatePerEl)
}

// ChargeSignatureCheck charges one signature verification. With revised
// false it is a flat SignatureCheckBase; with revised true (capability
// SignatureCostRevision enabled) the cost of the n-th check within the
// invocation scales linearly with n (spec §4.5: "the cost of the n-th
// signature check ... scales as a function of n").
func (m *Meter) ChargeSignatureCheck(revised bool) error {
	m.sigCheckCount++
	if !revised {
		return m.Charge(SignatureCheckBase)
	}
	return m.Charge(SignatureCheckBase * uint64(m.sigCheckCount))
}

// ChargeBLSOp charges a BLS12-381 operation scaled by its multi-scalar
// count n (n=1 for a single-point pairing or scalar multiplication).
func (m *Meter) ChargeBLSOp(n int) error {
	if n < 1 {
		n = 1
	}
	return m.Charge(BLSOpBase * uint64(n))
}

// Accept implements ACCEPT: limit := limit_max, credit := 0.
func (m *Meter) Accept() {
	m.limit = m.limitMax
	m.credit = 0
	m.remaining = int64(m.limit) - int64(m.used)
}

// SetGasLimit implements SETGASLIMIT n: limit := min(n, limit_max); if
// n < gas_used, the instruction itself raises OutOfGas immediately.
func (m *Meter) SetGasLimit(n uint64) error {
	newLimit := n
	if newLimit > m.limitMax {
		newLimit = m.limitMax
	}
	if n < m.used {
		m.limit = newLimit
		m.remaining = int64(newLimit) - int64(m.used)
		return vmerr.New(vmerr.OutOfGas, stack.Null())
	}
	m.limit = newLimit
	m.remaining = int64(newLimit) - int64(m.used)
	return nil
}

// BuyGas implements BUYGAS nanograms: converts to gas at the fixed rate and
// raises the limit via SetGasLimit.
func (m *Meter) BuyGas(nanograms uint64) error {
	return m.SetGasLimit(nanograms / NanogramsPerGasUnit)
}

// GramToGas converts a nanogram amount to gas units without mutating state.
func GramToGas(nanograms uint64) uint64 {
	return nanograms / NanogramsPerGasUnit
}

// GasToGram converts a gas amount to nanograms without mutating state.
func GasToGram(g uint64) uint64 {
	return g * NanogramsPerGasUnit
}
