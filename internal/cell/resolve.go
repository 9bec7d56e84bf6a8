// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package cell

import (
	"encoding/hex"
	"fmt"

	"github.com/VictoriaMetrics/fastcache"
	lru "github.com/hashicorp/golang-lru"

	"github.com/cellvm/tvmcore/internal/capability"
)

// LibraryProvider resolves a library cell's 256-bit hash to its content, the
// way an invoking node resolves the library set that sits outside this
// engine (spec §1 out of scope: "the surrounding transaction executor").
// The engine only needs the lookup, never the provisioning.
type LibraryProvider interface {
	ResolveLibrary(hash [HashSize]byte) (*Cell, error)
}

// ErrLibraryNotFound is returned when a LibraryProvider has no cell for a
// requested hash.
var ErrLibraryNotFound = fmt.Errorf("cell: library cell not found")

// Interner is a process-wide cache of canonical cell bytes keyed by content
// hash (spec §3 Lifecycles: "cells ... may outlive any particular engine
// instance"). It is intentionally process-global-shaped but constructed
// per-Engine in practice, sized by the caller.
type Interner struct {
	bytes *fastcache.Cache
}

// NewInterner allocates an interning cache sized in bytes.
func NewInterner(maxBytes int) *Interner {
	return &Interner{bytes: fastcache.New(maxBytes)}
}

// Intern records c's canonical encoding under its content hash, returning
// the hash.
func (in *Interner) Intern(c *Cell) [HashSize]byte {
	h := c.Hash()
	in.bytes.Set(h[:], c.canonicalBytes())
	return h
}

// Has reports whether the interning cache already holds bytes for hash.
func (in *Interner) Has(hash [HashSize]byte) bool {
	return in.bytes.Has(hash[:])
}

// Resolver resolves exotic cells (library references, pruned branches,
// Merkle proofs/updates) encountered while a slice descends into a cell's
// references. A bounded LRU caches already-resolved library cells on top of
// whatever caching the Interner provides, since library resolution may
// recurse through a provider that is itself doing I/O.
type Resolver struct {
	provider LibraryProvider
	cache    *lru.Cache
	caps     capability.Set
}

// NewResolver builds a resolver with an LRU of the given size.
func NewResolver(provider LibraryProvider, caps capability.Set, lruSize int) (*Resolver, error) {
	c, err := lru.New(lruSize)
	if err != nil {
		return nil, err
	}
	return &Resolver{provider: provider, cache: c, caps: caps}, nil
}

// Resolve dereferences an exotic cell for loading. Ordinary cells resolve to
// themselves, and a library reference resolves to the provider's cell for its
// hash. Merkle-proof and Merkle-update cells, when MerkleCellResolve is set,
// are returned as they are: Resolve does not descend into the subtree they
// reference. Pruned branches never resolve (they
// exist precisely so a verifier need not have the pruned subtree); callers
// must treat an attempt to descend into one as a cell-underflow condition.
func (r *Resolver) Resolve(c *Cell) (*Cell, error) {
	switch c.Type() {
	case Ordinary:
		return c, nil
	case LibraryReference:
		if !r.caps.Has(capability.LibraryCellSet) {
			return nil, fmt.Errorf("cell: library resolution not enabled by capability set")
		}
		return r.resolveLibrary(c)
	case PrunedBranch:
		return nil, fmt.Errorf("cell: cannot descend into pruned branch %s", c.HashHex())
	case MerkleProof, MerkleUpdate:
		if !r.caps.Has(capability.MerkleCellResolve) {
			return nil, fmt.Errorf("cell: merkle descent not enabled by capability set")
		}
		return c, nil
	default:
		return nil, fmt.Errorf("cell: unknown exotic type %d", c.Type())
	}
}

func (r *Resolver) resolveLibrary(c *Cell) (*Cell, error) {
	if c.BitLen() < 8+HashSize*8 {
		return nil, fmt.Errorf("cell: malformed library-reference cell")
	}
	hashBits, err := c.BitsAt(8, HashSize*8)
	if err != nil {
		return nil, err
	}
	var hash [HashSize]byte
	copy(hash[:], hashBits)

	key := hex.EncodeToString(hash[:])
	if v, ok := r.cache.Get(key); ok {
		return v.(*Cell), nil
	}
	if r.provider == nil {
		return nil, ErrLibraryNotFound
	}
	resolved, err := r.provider.ResolveLibrary(hash)
	if err != nil {
		return nil, err
	}
	r.cache.Add(key, resolved)
	return resolved, nil
}
