// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package cell

import (
	"errors"

	"github.com/cellvm/tvmcore/internal/bigint"
)

// ErrCellUnderflow is raised when a read would consume more bits or
// references than remain in the slice.
var ErrCellUnderflow = errors.New("cell: slice underflow")

// Slice is a read cursor over a Cell: a bit offset into its data plus a
// reference index into its refs. Reads either advance the cursor (Load*) or
// merely inspect it (Preload*); both panic never, erroring with
// ErrCellUnderflow instead.
type Slice struct {
	cell      *Cell
	bitOffset int
	refOffset int
}

// NewSlice begins a slice over the whole of c (CTOS semantics).
func NewSlice(c *Cell) *Slice {
	return &Slice{cell: c}
}

// Clone returns an independent copy of the slice's current position.
func (s *Slice) Clone() *Slice {
	cp := *s
	return &cp
}

// RemainingBits is the number of unread data bits.
func (s *Slice) RemainingBits() int { return s.cell.BitLen() - s.bitOffset }

// RemainingRefs is the number of unread references.
func (s *Slice) RemainingRefs() int { return s.cell.RefsCount() - s.refOffset }

// Empty reports whether both bits and refs are exhausted (SEMPTY).
func (s *Slice) Empty() bool { return s.RemainingBits() == 0 && s.RemainingRefs() == 0 }

// DataEmpty reports whether no data bits remain (SDEMPTY).
func (s *Slice) DataEmpty() bool { return s.RemainingBits() == 0 }

// RefsEmpty reports whether no references remain (SREMPTY).
func (s *Slice) RefsEmpty() bool { return s.RemainingRefs() == 0 }

func (s *Slice) peekBits(n int) ([]byte, error) {
	if n < 0 || n > s.RemainingBits() {
		return nil, ErrCellUnderflow
	}
	return s.cell.BitsAt(s.bitOffset, n)
}

// PreloadUnsigned reads, without advancing, the next n bits as an unsigned
// integer (PLDU-style).
func (s *Slice) PreloadUnsigned(n int) (*bigint.Int, error) {
	bits, err := s.peekBits(n)
	if err != nil {
		return nil, err
	}
	return bigint.FromUnsignedMagnitude(bits, n), nil
}

// PreloadSigned reads, without advancing, the next n bits as a signed
// two's-complement integer (PLDI-style).
func (s *Slice) PreloadSigned(n int) (*bigint.Int, error) {
	if n < 1 {
		return nil, ErrCellUnderflow
	}
	bits, err := s.peekBits(n)
	if err != nil {
		return nil, err
	}
	return bigint.FromSignedTwosComplement(bits, n), nil
}

// LoadUnsigned reads and consumes the next n bits as an unsigned integer
// (LDU-style).
func (s *Slice) LoadUnsigned(n int) (*bigint.Int, error) {
	v, err := s.PreloadUnsigned(n)
	if err != nil {
		return nil, err
	}
	s.bitOffset += n
	return v, nil
}

// LoadSigned reads and consumes the next n bits as a signed two's-complement
// integer (LDI-style).
func (s *Slice) LoadSigned(n int) (*bigint.Int, error) {
	v, err := s.PreloadSigned(n)
	if err != nil {
		return nil, err
	}
	s.bitOffset += n
	return v, nil
}

// LoadBits reads and consumes the next n bits as a raw right-aligned buffer.
func (s *Slice) LoadBits(n int) ([]byte, error) {
	bits, err := s.peekBits(n)
	if err != nil {
		return nil, err
	}
	s.bitOffset += n
	return bits, nil
}

// LoadSlice reads and consumes the next n bits, returning them as an
// independent sub-slice with no references (LDSLICE-style).
func (s *Slice) LoadSlice(n int) (*Slice, error) {
	bits, err := s.peekBits(n)
	if err != nil {
		return nil, err
	}
	sub, err := New(Ordinary, bits, n, nil)
	if err != nil {
		return nil, err
	}
	s.bitOffset += n
	return NewSlice(sub), nil
}

// PreloadRef returns, without advancing, the i-th unread reference (i == 0
// is the next one).
func (s *Slice) PreloadRef(i int) (*Cell, error) {
	if i < 0 || i >= s.RemainingRefs() {
		return nil, ErrCellUnderflow
	}
	return s.cell.Ref(s.refOffset + i)
}

// LoadRef consumes and returns the next reference (LDREF-style).
func (s *Slice) LoadRef() (*Cell, error) {
	r, err := s.PreloadRef(0)
	if err != nil {
		return nil, err
	}
	s.refOffset++
	return r, nil
}

// SkipBits advances the cursor by n bits without returning them.
func (s *Slice) SkipBits(n int) error {
	if n < 0 || n > s.RemainingBits() {
		return ErrCellUnderflow
	}
	s.bitOffset += n
	return nil
}
