// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

// Package arena provides a bump-pointer scratch allocator for the short-lived
// byte buffers cell.Builder accumulates while a cell graph is under
// construction. Cells are small (at most 128 bytes of data) but a busy
// invocation can build thousands of them; handing every Builder its own
// small Go-heap slice is the kind of per-allocation GC pressure the
// teacher's trie package avoids for its node storage by memory-mapping one
// large backing region once and slicing into it (trie.go's own mmap.MMap
// field). This package follows the same pattern for the engine's own
// scratch allocations.
package arena

import (
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
)

// defaultSize is large enough to hold several thousand cell-sized buffers
// before a Reset is needed.
const defaultSize = 4 << 20 // 4 MiB

// Arena is a single mmap-backed region handed out via bump-pointer
// allocation. It is not safe for concurrent use: one Arena belongs to one
// invocation's Engine.
type Arena struct {
	file   *os.File
	region mmap.MMap
	offset int
}

// New creates an Arena backed by a region of the given size (defaultSize if
// size <= 0). The region is backed by an unlinked temp file so the mapping
// behaves like anonymous memory: mmap-go maps a file handle, not raw
// anonymous pages, so a temp file stands in for /dev/zero the way the
// teacher's trie.go maps its own on-disk database file.
func New(size int) (*Arena, error) {
	if size <= 0 {
		size = defaultSize
	}
	f, err := os.CreateTemp("", "tvmcore-arena-*")
	if err != nil {
		return nil, fmt.Errorf("arena: create backing file: %w", err)
	}
	// Unlink immediately: the fd keeps the storage alive for the mapping's
	// lifetime, but no directory entry lingers if the process exits abnormally.
	os.Remove(f.Name())

	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		return nil, fmt.Errorf("arena: truncate backing file: %w", err)
	}
	region, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("arena: mmap: %w", err)
	}
	return &Arena{file: f, region: region}, nil
}

// Alloc returns an n-byte slice from the arena, or nil if the region is
// exhausted (the caller falls back to a plain make([]byte, n) in that case;
// Alloc never errors, since running out of arena space is not itself a
// fault, just a missed optimization).
func (a *Arena) Alloc(n int) []byte {
	if a == nil || a.offset+n > len(a.region) {
		return nil
	}
	b := a.region[a.offset : a.offset+n : a.offset+n]
	a.offset += n
	return b
}

// Reset rewinds the bump pointer so the whole region can be reused by the
// next invocation; it does not zero the underlying bytes, since every
// caller of Alloc is expected to overwrite what it is given before reading
// it back.
func (a *Arena) Reset() {
	if a != nil {
		a.offset = 0
	}
}

// Close unmaps and releases the backing file.
func (a *Arena) Close() error {
	if a == nil {
		return nil
	}
	if err := a.region.Unmap(); err != nil {
		a.file.Close()
		return fmt.Errorf("arena: unmap: %w", err)
	}
	return a.file.Close()
}
