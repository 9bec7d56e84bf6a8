// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The ProbeChain is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the ProbeChain. If not, see <http://www.gnu.org/licenses/>.

// Package cell implements the engine's immutable bit-addressable cell DAG:
// Cell (up to 1023 data bits + 4 references), Builder (the writable form),
// and Slice (a read cursor over a cell). Cell content hashing and exotic
// cell resolution (library references, pruned branches, Merkle proofs and
// updates) live here too, since they are properties of the cell itself
// rather than of any one VM invocation.
package cell

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/sha3"
)

const (
	// MaxDataBits is the largest number of data bits a single cell may hold.
	MaxDataBits = 1023
	// MaxRefs is the largest number of child references a single cell may hold.
	MaxRefs = 4
	// HashSize is the width, in bytes, of a cell's content hash.
	HashSize = 32
)

// Type tags a cell's special-handling class.
type Type uint8

const (
	Ordinary Type = iota
	PrunedBranch
	LibraryReference
	MerkleProof
	MerkleUpdate
)

func (t Type) String() string {
	switch t {
	case Ordinary:
		return "ordinary"
	case PrunedBranch:
		return "pruned-branch"
	case LibraryReference:
		return "library-reference"
	case MerkleProof:
		return "merkle-proof"
	case MerkleUpdate:
		return "merkle-update"
	default:
		return "unknown"
	}
}

// Errors returned while constructing or inspecting cells.
var (
	ErrTooManyDataBits = errors.New("cell: data bit count exceeds 1023")
	ErrTooManyRefs     = errors.New("cell: reference count exceeds 4")
	ErrBadExoticTag    = errors.New("cell: invalid exotic cell type tag")
)

// Cell is an immutable node in the data DAG. The zero value is not usable;
// build cells with a Builder.
type Cell struct {
	data    []byte // MSB-first packed data bits, length ceil(bitLen/8)
	bitLen  int
	refs    []*Cell
	typ     Type
	hash    [HashSize]byte
	hashSet bool
	depth   uint16
}

// New constructs a cell of type typ directly from already-packed bits and
// references. Most callers should go through Builder instead; New exists for
// the rare case (exotic-cell construction, tests) where the caller already
// has a validated bit buffer.
func New(typ Type, data []byte, bitLen int, refs []*Cell) (*Cell, error) {
	if bitLen < 0 || bitLen > MaxDataBits {
		return nil, ErrTooManyDataBits
	}
	if len(refs) > MaxRefs {
		return nil, ErrTooManyRefs
	}
	c := &Cell{
		typ:    typ,
		bitLen: bitLen,
		refs:   append([]*Cell{}, refs...),
	}
	c.data = make([]byte, (bitLen+7)/8)
	copy(c.data, data)
	var maxDepth uint16
	for _, r := range refs {
		if d := r.Depth(); d > maxDepth {
			maxDepth = d
		}
	}
	if len(refs) > 0 {
		c.depth = maxDepth + 1
	}
	return c, nil
}

// Type returns the cell's type tag.
func (c *Cell) Type() Type { return c.typ }

// BitLen returns the number of valid data bits.
func (c *Cell) BitLen() int { return c.bitLen }

// RefsCount returns the number of child references.
func (c *Cell) RefsCount() int { return len(c.refs) }

// Ref returns the i-th child reference.
func (c *Cell) Ref(i int) (*Cell, error) {
	if i < 0 || i >= len(c.refs) {
		return nil, fmt.Errorf("cell: reference index %d out of range (have %d)", i, len(c.refs))
	}
	return c.refs[i], nil
}

// Depth returns the cell's depth: 0 for a leaf, otherwise 1 + the maximum
// depth among its references.
func (c *Cell) Depth() uint16 { return c.depth }

// DataBits returns the raw MSB-first packed data bytes (length ceil(BitLen()/8)).
// Callers must not mutate the returned slice.
func (c *Cell) DataBits() []byte { return c.data }

// BitsAt returns n bits starting at bitOffset, right-aligned in the returned
// buffer (same convention as bigint's *Magnitude/*TwosComplement encoders).
func (c *Cell) BitsAt(bitOffset, n int) ([]byte, error) {
	if bitOffset < 0 || n < 0 || bitOffset+n > c.bitLen {
		return nil, fmt.Errorf("cell: bit range [%d,%d) out of bounds (len=%d)", bitOffset, bitOffset+n, c.bitLen)
	}
	return readBits(c.data, bitOffset, n), nil
}

// canonicalBytes produces a deterministic byte encoding of the cell used as
// the hash preimage: type tag, bit length, data bytes, then each ref's
// depth and hash in order. Re-parsing the same tag+bitLen+data+ref-hashes
// always reproduces the same hash (spec §8 testable property 3; §3 "the
// hash of a cell is a pure function of its data, its references' hashes, and
// its type").
func (c *Cell) canonicalBytes() []byte {
	out := make([]byte, 0, 2+len(c.data)+len(c.refs)*(HashSize+2))
	out = append(out, byte(c.typ), byte(c.bitLen>>8), byte(c.bitLen))
	out = append(out, c.data...)
	out = append(out, byte(len(c.refs)))
	for _, r := range c.refs {
		d := r.Depth()
		out = append(out, byte(d>>8), byte(d))
		h := r.Hash()
		out = append(out, h[:]...)
	}
	return out
}

// Hash returns the cell's 256-bit content hash, computing and memoizing it
// on first access.
func (c *Cell) Hash() [HashSize]byte {
	if !c.hashSet {
		c.hash = sha3.Sum256(c.canonicalBytes())
		c.hashSet = true
	}
	return c.hash
}

// HashHex returns Hash() as a lowercase hex string, for logs and debug dumps.
func (c *Cell) HashHex() string {
	h := c.Hash()
	const hextable = "0123456789abcdef"
	buf := make([]byte, HashSize*2)
	for i, b := range h {
		buf[i*2] = hextable[b>>4]
		buf[i*2+1] = hextable[b&0xF]
	}
	return string(buf)
}
