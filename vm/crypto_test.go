// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package vm

import (
	"testing"

	"golang.org/x/crypto/sha3"

	"github.com/cellvm/tvmcore/crypto/dilithium"
	"github.com/cellvm/tvmcore/internal/bigint"
	"github.com/cellvm/tvmcore/internal/capability"
	"github.com/cellvm/tvmcore/internal/cell"
	"github.com/cellvm/tvmcore/internal/stack"
	"github.com/cellvm/tvmcore/internal/vmerr"
)

func sliceFromBytes(t *testing.T, data []byte) *cell.Slice {
	t.Helper()
	b := cell.NewBuilder()
	if err := b.StoreBytes(data); err != nil {
		t.Fatalf("StoreBytes: %v", err)
	}
	c, err := b.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return cell.NewSlice(c)
}

// TestHashSha3MatchesLibrary checks HASHSHA3 against sha3.Sum256 directly.
func TestHashSha3MatchesLibrary(t *testing.T) {
	msg := []byte("cell vm crypto opcode")
	program := []instr{op(OpHashSha3)}
	e := newEngine(t, program, baseConfig())
	if err := e.Stack.Push(stack.SliceValue(sliceFromBytes(t, msg))); err != nil {
		t.Fatalf("seed slice: %v", err)
	}
	code, err := e.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	got := e.Stack.Values()
	if len(got) != 1 {
		t.Fatalf("stack depth = %d, want 1", len(got))
	}
	n, ok := got[0].AsInteger()
	if !ok {
		t.Fatalf("result is not an integer: %v", got[0])
	}
	digest := sha3.Sum256(msg)
	want := bigint.FromUnsignedMagnitude(digest[:], 256)
	if !n.Equal(want) {
		t.Fatalf("hash mismatch: got %s, want %s", n, want)
	}
}

// TestHashShakeOutputWidth checks HASHSHAKE n produces an n-byte-wide
// SHAKE256 digest matching the library directly.
func TestHashShakeOutputWidth(t *testing.T) {
	msg := []byte("variable output digest")
	const outBytes = 20
	program := []instr{opImm(OpHashShake, outBytes)}
	e := newEngine(t, program, baseConfig())
	if err := e.Stack.Push(stack.SliceValue(sliceFromBytes(t, msg))); err != nil {
		t.Fatalf("seed slice: %v", err)
	}
	code, err := e.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	got := e.Stack.Values()
	if len(got) != 1 {
		t.Fatalf("stack depth = %d, want 1", len(got))
	}
	n, ok := got[0].AsInteger()
	if !ok {
		t.Fatalf("result is not an integer: %v", got[0])
	}
	digest := make([]byte, outBytes)
	sha3.ShakeSum256(digest, msg)
	want := bigint.FromUnsignedMagnitude(digest, outBytes*8)
	if !n.Equal(want) {
		t.Fatalf("shake digest mismatch: got %s, want %s", n, want)
	}
}

// TestChkSignAcceptsGenuineSignature checks CHKSIGN pushes true for a
// signature that actually verifies under the signer's own public key.
func TestChkSignAcceptsGenuineSignature(t *testing.T) {
	pub, priv, err := dilithium.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	hash := make([]byte, 32)
	for i := range hash {
		hash[i] = byte(i)
	}
	sig := dilithium.Sign(priv, hash)
	pubBytes := dilithium.MarshalPublicKey(pub)

	program := []instr{op(OpChkSign)}
	e := newEngine(t, program, baseConfig())
	seedChkSignStack(t, e, pubBytes, sig, hash)
	code, err := e.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	wantInts(t, e.Stack.Values(), -1)
}

// TestChkSignRejectsTamperedSignature checks the false-result path: a
// tampered signature is a "push false", not a fault.
func TestChkSignRejectsTamperedSignature(t *testing.T) {
	pub, priv, err := dilithium.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	hash := make([]byte, 32)
	sig := dilithium.Sign(priv, hash)
	sig[0] ^= 0xff
	pubBytes := dilithium.MarshalPublicKey(pub)

	program := []instr{op(OpChkSign)}
	e := newEngine(t, program, baseConfig())
	seedChkSignStack(t, e, pubBytes, sig, hash)
	code, err := e.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	wantInts(t, e.Stack.Values(), 0)
}

// seedChkSignStack pushes CHKSIGN's three slice operands in the reverse of
// the order execChkSign pops them: hash first (deepest), then signature,
// then public key (topmost, popped first).
func seedChkSignStack(t *testing.T, e *Engine, pubBytes, sig, hash []byte) {
	t.Helper()
	if err := e.Stack.Push(stack.SliceValue(sliceFromBytes(t, hash))); err != nil {
		t.Fatalf("seed hash: %v", err)
	}
	if err := e.Stack.Push(stack.SliceValue(sliceFromBytes(t, sig))); err != nil {
		t.Fatalf("seed signature: %v", err)
	}
	if err := e.Stack.Push(stack.SliceValue(sliceFromBytes(t, pubBytes))); err != nil {
		t.Fatalf("seed pubkey: %v", err)
	}
}

// TestBlsPairingRequiresCapability checks BLSPAIRING decodes as
// InvalidOpcode when capability.BLSv2 is not enabled, the closed
// capability-gating rule's first exercise at dispatch entry.
func TestBlsPairingRequiresCapability(t *testing.T) {
	program := []instr{opImm(OpBlsPairing, 1)}
	cfg := baseConfig()
	cfg.Caps = capability.Baseline // no BLSv2
	e := newEngine(t, program, cfg)
	_, err := e.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !e.Halted() {
		t.Fatalf("engine did not halt on invalid opcode")
	}
	if e.ExitCode() != int(vmerr.InvalidOpcode) {
		t.Fatalf("exit code = %d, want %d (InvalidOpcode)", e.ExitCode(), vmerr.InvalidOpcode)
	}
}
