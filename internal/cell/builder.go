// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package cell

import (
	"errors"
	"fmt"

	"github.com/cellvm/tvmcore/internal/arena"
	"github.com/cellvm/tvmcore/internal/bigint"
)

// maxDataBytes is the largest backing array StoreBytes/StoreUnsigned/etc.
// can ever need: MaxDataBits rounded up to a whole byte.
const maxDataBytes = (MaxDataBits + 7) / 8

// ErrCellOverflow is raised (as a Go error here; the VM layer turns it into
// a CellOverflow exception) when a write would exceed 1023 data bits or 4
// references.
var ErrCellOverflow = errors.New("cell: builder overflow")

// Builder is a writable cell buffer: up to 1023 data bits and 4 references,
// finalized into an immutable Cell by Finalize.
type Builder struct {
	data   []byte
	bitLen int
	refs   []*Cell
}

// NewBuilder returns an empty builder whose backing array grows on the Go
// heap as usual.
func NewBuilder() *Builder { return &Builder{} }

// NewBuilderIn returns an empty builder whose backing array is carved out
// of a, avoiding a heap allocation for it. a may be nil, in which case this
// behaves exactly like NewBuilder — callers that don't have an arena handy
// (tests, one-off cell construction outside an Engine) pass nil.
func NewBuilderIn(a *arena.Arena) *Builder {
	data := a.Alloc(maxDataBytes)
	if data == nil {
		return &Builder{}
	}
	return &Builder{data: data[:0]}
}

// BitLen returns the number of bits written so far.
func (b *Builder) BitLen() int { return b.bitLen }

// RefsCount returns the number of references appended so far.
func (b *Builder) RefsCount() int { return len(b.refs) }

// RemainingBits returns how many more data bits can be written.
func (b *Builder) RemainingBits() int { return MaxDataBits - b.bitLen }

// RemainingRefs returns how many more references can be appended.
func (b *Builder) RemainingRefs() int { return MaxRefs - len(b.refs) }

// StoreBit appends a single bit (0 or 1).
func (b *Builder) StoreBit(bit byte) error {
	if b.bitLen+1 > MaxDataBits {
		return ErrCellOverflow
	}
	b.data, b.bitLen = appendBit(b.data, b.bitLen, bit)
	return nil
}

// StoreUnsigned appends the n-bit unsigned big-endian encoding of v. Returns
// an error if n is outside [0, 256] or v does not fit in n unsigned bits,
// and ErrCellOverflow if the builder has no room for n more bits.
func (b *Builder) StoreUnsigned(v *bigint.Int, n int) error {
	if n < 0 || n > 256 {
		return fmt.Errorf("cell: unsigned field width %d out of range", n)
	}
	if !v.FitsUnsignedBits(n) {
		return fmt.Errorf("cell: value does not fit in %d unsigned bits", n)
	}
	return b.storeRaw(v.UnsignedMagnitude(n), n)
}

// StoreSigned appends the n-bit two's-complement encoding of v.
func (b *Builder) StoreSigned(v *bigint.Int, n int) error {
	if n < 1 || n > 257 {
		return fmt.Errorf("cell: signed field width %d out of range", n)
	}
	if !v.FitsSignedBits(n) {
		return fmt.Errorf("cell: value does not fit in %d signed bits", n)
	}
	return b.storeRaw(v.SignedTwosComplement(n), n)
}

func (b *Builder) storeRaw(bits []byte, n int) error {
	if b.bitLen+n > MaxDataBits {
		return ErrCellOverflow
	}
	b.data, b.bitLen = appendBits(b.data, b.bitLen, bits, n)
	return nil
}

// StoreBytes appends raw bytes as data bits (len(data)*8 bits).
func (b *Builder) StoreBytes(data []byte) error {
	return b.storeRaw(data, len(data)*8)
}

// StoreSlice appends all remaining bits and references of s.
func (b *Builder) StoreSlice(s *Slice) error {
	n := s.RemainingBits()
	bits, err := s.cell.BitsAt(s.bitOffset, n)
	if err != nil {
		return err
	}
	if err := b.storeRaw(bits, n); err != nil {
		return err
	}
	for s.RemainingRefs() > 0 {
		r, err := s.LoadRef()
		if err != nil {
			return err
		}
		if err := b.StoreRef(r); err != nil {
			return err
		}
	}
	return nil
}

// StoreRef appends a child reference.
func (b *Builder) StoreRef(c *Cell) error {
	if len(b.refs) >= MaxRefs {
		return ErrCellOverflow
	}
	b.refs = append(b.refs, c)
	return nil
}

// Finalize builds an ordinary Cell from the builder's contents.
func (b *Builder) Finalize() (*Cell, error) {
	return New(Ordinary, b.data, b.bitLen, b.refs)
}

// FinalizeExotic builds a cell whose type is determined by the first 8 bits
// of the builder's data (ENDXC semantics, spec §4.2): 2 = library-reference,
// 3 = merkle-proof, 4 = merkle-update; any other tag value, including 0 or
// 1, fails ErrBadExoticTag (an ordinary cell must go through Finalize, not
// FinalizeExotic).
func (b *Builder) FinalizeExotic() (*Cell, error) {
	if b.bitLen < 8 {
		return nil, ErrBadExoticTag
	}
	tag := b.data[0]
	var typ Type
	switch tag {
	case 2:
		typ = LibraryReference
	case 3:
		typ = MerkleProof
	case 4:
		typ = MerkleUpdate
	default:
		return nil, ErrBadExoticTag
	}
	return New(typ, b.data, b.bitLen, b.refs)
}
