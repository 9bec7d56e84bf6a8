// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package bigint

import "math/big"

// FitsUnsignedBits reports whether the value is representable as an n-bit
// unsigned big-endian integer (0 <= v < 2^n). NaN never fits.
func (i *Int) FitsUnsignedBits(n int) bool {
	if i.nan || n < 0 {
		return false
	}
	if i.v.Sign() < 0 {
		return false
	}
	if n == 0 {
		return i.v.Sign() == 0
	}
	return i.v.BitLen() <= n
}

// FitsSignedBits reports whether the value is representable as an n-bit
// two's-complement signed integer (-2^(n-1) <= v < 2^(n-1)). NaN never fits.
func (i *Int) FitsSignedBits(n int) bool {
	if i.nan || n <= 0 {
		return false
	}
	lo := new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), uint(n-1)))
	hi := new(big.Int).Lsh(big.NewInt(1), uint(n-1))
	return i.v.Cmp(lo) >= 0 && i.v.Cmp(hi) < 0
}

// UnsignedMagnitude returns the non-negative magnitude as a big-endian byte
// slice of exactly ceil(n/8) bytes, suitable for a bit writer to pack into
// an n-bit field. The caller must have checked FitsUnsignedBits(n) first.
func (i *Int) UnsignedMagnitude(n int) []byte {
	nbytes := (n + 7) / 8
	buf := make([]byte, nbytes)
	i.v.FillBytes(buf)
	return buf
}

// SignedTwosComplement returns the n-bit two's-complement encoding of the
// value as a big-endian byte slice of exactly ceil(n/8) bytes. The caller
// must have checked FitsSignedBits(n) first.
func (i *Int) SignedTwosComplement(n int) []byte {
	nbytes := (n + 7) / 8
	mod := new(big.Int).Lsh(big.NewInt(1), uint(n))
	v := new(big.Int).Set(&i.v)
	if v.Sign() < 0 {
		v.Add(v, mod)
	}
	buf := make([]byte, nbytes)
	v.FillBytes(buf)
	return buf
}

// FromUnsignedMagnitude interprets data as an n-bit unsigned big-endian
// magnitude (data must hold at least ceil(n/8) bytes; only the low n bits of
// that byte range are significant) and builds the corresponding quiet Int.
func FromUnsignedMagnitude(data []byte, n int) *Int {
	v := new(big.Int).SetBytes(data)
	mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(n)), big.NewInt(1))
	v.And(v, mask)
	return QFromBigInt(v)
}

// FromSignedTwosComplement interprets data as an n-bit two's-complement
// big-endian signed integer and builds the corresponding quiet Int.
func FromSignedTwosComplement(data []byte, n int) *Int {
	v := new(big.Int).SetBytes(data)
	mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(n)), big.NewInt(1))
	v.And(v, mask)
	signBit := new(big.Int).Lsh(big.NewInt(1), uint(n-1))
	if v.Cmp(signBit) >= 0 {
		full := new(big.Int).Lsh(big.NewInt(1), uint(n))
		v.Sub(v, full)
	}
	return QFromBigInt(v)
}
