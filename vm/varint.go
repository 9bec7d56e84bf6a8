// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package vm

import (
	"errors"

	"github.com/cellvm/tvmcore/internal/bigint"
	"github.com/cellvm/tvmcore/internal/cell"
)

// errVarIntTooLarge is returned when a value's minimal byte encoding
// exceeds the field's length-prefix capacity (15 bytes for a 4-bit prefix,
// 31 bytes for a 5-bit prefix).
var errVarIntTooLarge = errors.New("vm: value too large for var-integer field")

// storeVarInt implements the wire shape STVARINT16/STGRAMS/STVARUINT32
// share: an lenBits-wide byte-length prefix (0 meaning "value is exactly
// zero, no data bits follow"), then the value's own minimal signed or
// unsigned two's-complement encoding at that byte width. This is TON's
// VarInteger/Grams convention: Grams = VarUInteger 16 (4-bit prefix),
// VarInteger 16 is the same prefix width but signed, VarUInteger 32 widens
// the prefix to 5 bits.
func storeVarInt(b *cell.Builder, x *bigint.Int, lenBits, maxBytes int, signed bool) error {
	if x.IsNaN() {
		return errVarIntTooLarge
	}
	l := 0
	if !x.IsZero() {
		for l = 1; l <= maxBytes; l++ {
			if signed {
				if x.FitsSignedBits(l * 8) {
					break
				}
			} else if x.FitsUnsignedBits(l * 8) {
				break
			}
		}
		if l > maxBytes {
			return errVarIntTooLarge
		}
	}
	if err := b.StoreUnsigned(bigint.FromInt64(int64(l)), lenBits); err != nil {
		return err
	}
	if l == 0 {
		return nil
	}
	if signed {
		return b.StoreSigned(x, l*8)
	}
	return b.StoreUnsigned(x, l*8)
}

// loadVarInt is storeVarInt's inverse: LDVARINT16/LDGRAMS/LDVARUINT32.
func loadVarInt(s *cell.Slice, lenBits int, signed bool) (*bigint.Int, error) {
	lenVal, err := s.LoadUnsigned(lenBits)
	if err != nil {
		return nil, err
	}
	lbi, _ := lenVal.BigInt()
	l := int(lbi.Int64())
	if l == 0 {
		return bigint.Zero(), nil
	}
	if signed {
		return s.LoadSigned(l * 8)
	}
	return s.LoadUnsigned(l * 8)
}
