// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package cell

import (
	"testing"

	"github.com/cellvm/tvmcore/internal/bigint"
	"github.com/cellvm/tvmcore/internal/capability"
	"github.com/stretchr/testify/require"
)

func TestBuilderSliceRoundTripBits(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.StoreUnsigned(bigint.FromUint64(42), 16))
	require.NoError(t, b.StoreSigned(bigint.FromInt64(-5), 8))
	require.NoError(t, b.StoreBit(1))

	c, err := b.Finalize()
	require.NoError(t, err)
	require.Equal(t, 16+8+1, c.BitLen())

	s := NewSlice(c)
	u, err := s.LoadUnsigned(16)
	require.NoError(t, err)
	require.Equal(t, "42", u.String())

	si, err := s.LoadSigned(8)
	require.NoError(t, err)
	require.Equal(t, "-5", si.String())

	bit, err := s.LoadUnsigned(1)
	require.NoError(t, err)
	require.Equal(t, "1", bit.String())

	require.True(t, s.Empty())
}

func TestBuilderRefLimitOverflow(t *testing.T) {
	b := NewBuilder()
	leaf, err := NewBuilder().Finalize()
	require.NoError(t, err)
	for i := 0; i < MaxRefs; i++ {
		require.NoError(t, b.StoreRef(leaf))
	}
	require.ErrorIs(t, b.StoreRef(leaf), ErrCellOverflow)
}

func TestBuilderDataOverflow(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.StoreBytes(make([]byte, 127))) // 1016 bits
	require.ErrorIs(t, b.StoreUnsigned(bigint.FromUint64(0), 16), ErrCellOverflow)
}

// TestHashDeterministic exercises the testable property that a cell's hash
// is a pure function of its type, data, and its references' hashes.
func TestHashDeterministic(t *testing.T) {
	leaf1, err := NewBuilder().Finalize()
	require.NoError(t, err)
	leaf2, err := NewBuilder().Finalize()
	require.NoError(t, err)
	require.Equal(t, leaf1.Hash(), leaf2.Hash())

	b1 := NewBuilder()
	require.NoError(t, b1.StoreRef(leaf1))
	c1, err := b1.Finalize()
	require.NoError(t, err)

	b2 := NewBuilder()
	require.NoError(t, b2.StoreRef(leaf2))
	c2, err := b2.Finalize()
	require.NoError(t, err)

	require.Equal(t, c1.Hash(), c2.Hash())
	require.Equal(t, uint16(1), c1.Depth())
}

func TestSliceUnderflow(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.StoreUnsigned(bigint.FromUint64(1), 4))
	c, err := b.Finalize()
	require.NoError(t, err)
	s := NewSlice(c)
	_, err = s.LoadUnsigned(8)
	require.ErrorIs(t, err, ErrCellUnderflow)
}

func TestFinalizeExoticTagging(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.StoreUnsigned(bigint.FromUint64(2), 8)) // library-reference tag
	hashBits := make([]byte, HashSize)
	require.NoError(t, b.StoreBytes(hashBits))
	c, err := b.FinalizeExotic()
	require.NoError(t, err)
	require.Equal(t, LibraryReference, c.Type())
}

func TestFinalizeExoticRejectsOrdinaryTag(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.StoreUnsigned(bigint.FromUint64(0), 8))
	_, err := b.FinalizeExotic()
	require.ErrorIs(t, err, ErrBadExoticTag)
}

func TestResolverResolvesLibraryCell(t *testing.T) {
	target, err := NewBuilder().Finalize()
	require.NoError(t, err)
	hash := target.Hash()

	provider := stubProvider{hash: hash, cell: target}
	r, err := NewResolver(provider, capability.LibraryCellSet, 16)
	require.NoError(t, err)

	lb := NewBuilder()
	require.NoError(t, lb.StoreUnsigned(bigint.FromUint64(2), 8))
	hb := hash
	require.NoError(t, lb.StoreBytes(hb[:]))
	libCell, err := lb.FinalizeExotic()
	require.NoError(t, err)

	resolved, err := r.Resolve(libCell)
	require.NoError(t, err)
	require.Equal(t, hash, resolved.Hash())
}

func TestResolverRejectsPrunedDescent(t *testing.T) {
	r, err := NewResolver(nil, capability.Baseline, 16)
	require.NoError(t, err)
	b := NewBuilder()
	require.NoError(t, b.StoreUnsigned(bigint.FromUint64(0xAA), 8))
	pruned, err := New(PrunedBranch, b.data, b.bitLen, nil)
	require.NoError(t, err)
	_, err = r.Resolve(pruned)
	require.Error(t, err)
}

type stubProvider struct {
	hash [HashSize]byte
	cell *Cell
}

func (s stubProvider) ResolveLibrary(hash [HashSize]byte) (*Cell, error) {
	if hash != s.hash {
		return nil, ErrLibraryNotFound
	}
	return s.cell, nil
}
