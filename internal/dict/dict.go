// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

// Package dict implements the engine's dictionary (prefix-tree) primitives
// insofar as they participate in control flow: fixed-width bitstring keys
// mapping to continuations, looked up and jumped to or called by
// DICT*GETJMP/EXEC (spec §4.7). The on-disk bag-of-cells wire format for
// dictionaries is explicitly out of scope (spec's assembler/serializer
// Non-goal); this package only needs a prefix tree it can build and query
// within a running invocation, so nodes use a small self-describing cell
// encoding private to this engine rather than reproducing any external
// wire format.
//
// Node encoding: a fork node is tag "0" followed by two references, left
// (key bit 0) and right (key bit 1). A leaf node is tag "1" followed by one
// more bit distinguishing a valid entry ("1", then the stored value's data
// bits and references) from a dead end ("0", no payload) — the marker a
// traversal that took a wrong turn through a compressed branch lands on,
// so it reports not-found instead of aliasing an unrelated entry.
package dict

import (
	"fmt"

	"github.com/cellvm/tvmcore/internal/cell"
)

// ErrKeyNotFound is returned by Get when no entry matches the key.
var ErrKeyNotFound = fmt.Errorf("dict: key not found")

// ErrMalformed is returned when a dictionary cell does not parse as a valid
// node per this package's encoding.
var ErrMalformed = fmt.Errorf("dict: malformed dictionary cell")

// Entry is one key/value pair used to build a dictionary.
type Entry struct {
	Key   []byte // key, MSB-first, using the low KeyBits bits
	Value *cell.Slice
}

// Build constructs a dictionary cell from entries, all of whose keys must be
// exactly keyBits wide. Returns (nil, nil) for an empty entry set — the
// spec's "optionally-present" dictionary, represented here as a nil cell.
func Build(entries []Entry, keyBits int) (*cell.Cell, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	dead, err := deadEnd()
	if err != nil {
		return nil, err
	}
	return buildNode(entries, keyBits, 0, dead)
}

// deadEnd is a leaf-tagged node with no payload, used as the unreachable
// branch of a compressed single-child fork: traversing into it by mistake
// (a key whose skipped bit did not actually match) hits "leaf reached
// before consuming all key bits" and reports ErrKeyNotFound rather than
// falsely matching an unrelated entry's value.
func deadEnd() (*cell.Cell, error) {
	b := cell.NewBuilder()
	if err := b.StoreBit(1); err != nil {
		return nil, err
	}
	if err := b.StoreBit(0); err != nil {
		return nil, err
	}
	return b.Finalize()
}

func keyBit(key []byte, i int) int {
	return int((key[i/8] >> uint(7-i%8)) & 1)
}

func buildNode(entries []Entry, keyBits, depth int, dead *cell.Cell) (*cell.Cell, error) {
	if depth == keyBits {
		if len(entries) != 1 {
			return nil, fmt.Errorf("dict: duplicate key at depth %d", depth)
		}
		b := cell.NewBuilder()
		if err := b.StoreBit(1); err != nil {
			return nil, err
		}
		if err := b.StoreBit(1); err != nil {
			return nil, err
		}
		if err := b.StoreSlice(entries[0].Value); err != nil {
			return nil, err
		}
		return b.Finalize()
	}
	var left, right []Entry
	for _, e := range entries {
		if keyBit(e.Key, depth) == 0 {
			left = append(left, e)
		} else {
			right = append(right, e)
		}
	}
	b := cell.NewBuilder()
	if err := b.StoreBit(0); err != nil {
		return nil, err
	}
	leftCell, rightCell := dead, dead
	var err error
	if len(left) > 0 {
		leftCell, err = buildNode(left, keyBits, depth+1, dead)
		if err != nil {
			return nil, err
		}
	}
	if len(right) > 0 {
		rightCell, err = buildNode(right, keyBits, depth+1, dead)
		if err != nil {
			return nil, err
		}
	}
	if err := b.StoreRef(leftCell); err != nil {
		return nil, err
	}
	if err := b.StoreRef(rightCell); err != nil {
		return nil, err
	}
	return b.Finalize()
}

// Get looks up key (keyBits wide) in the dictionary rooted at root,
// returning the stored value slice. root == nil means an empty dictionary
// (always ErrKeyNotFound).
func Get(root *cell.Cell, key []byte, keyBits int) (*cell.Slice, error) {
	if root == nil {
		return nil, ErrKeyNotFound
	}
	node := root
	for depth := 0; depth < keyBits; depth++ {
		s := cell.NewSlice(node)
		tag, err := s.LoadUnsigned(1)
		if err != nil {
			return nil, ErrMalformed
		}
		if !tag.IsZero() {
			return nil, ErrKeyNotFound // leaf (valid or dead) reached before the key is exhausted
		}
		bit := keyBit(key, depth)
		ref, err := s.LoadRef()
		if err != nil {
			return nil, ErrMalformed
		}
		if bit == 1 {
			ref2, err := s.LoadRef()
			if err != nil {
				return nil, ErrMalformed
			}
			ref = ref2
		}
		node = ref
	}
	s := cell.NewSlice(node)
	tag, err := s.LoadUnsigned(1)
	if err != nil {
		return nil, ErrMalformed
	}
	if tag.IsZero() {
		return nil, ErrKeyNotFound // fork reached at full key depth: no entry here
	}
	valid, err := s.LoadUnsigned(1)
	if err != nil {
		return nil, ErrMalformed
	}
	if valid.IsZero() {
		return nil, ErrKeyNotFound // dead end: a wrong turn through a compressed branch
	}
	value := s.Clone()
	return value, nil
}
