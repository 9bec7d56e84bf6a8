// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

// Package config loads an invocation's gas schedule, capability set, and
// resource limits from a TOML file, the way cmd/gprobe's own config.go
// loads gprobeConfig — defaults first, then an optional file overlay, with
// unknown fields rejected rather than silently ignored.
package config

import (
	"bufio"
	"fmt"
	"os"
	"reflect"

	"github.com/naoina/toml"

	"github.com/cellvm/tvmcore/internal/capability"
)

// namedBits maps a capability's TOML-facing name to its bit, in the same
// spirit as capability.go's own doc comments naming each bit's purpose.
var namedBits = map[string]capability.Set{
	"tuple_index_bugfix":      capability.TupleIndexBugfix,
	"storage_fee_access":      capability.StorageFeeAccess,
	"my_code_access":          capability.MyCodeAccess,
	"bls_v2":                  capability.BLSv2,
	"merkle_cell_resolve":     capability.MerkleCellResolve,
	"library_cell_set":        capability.LibraryCellSet,
	"signature_cost_revision": capability.SignatureCostRevision,
	"bugfixes_y2022":          capability.BugfixesY2022,
}

// GasSchedule mirrors the resource-shaped charge constants internal/gas
// exposes, so a deployment can retune them without a rebuild.
type GasSchedule struct {
	CellLoadFirst    uint64
	CellLoadDedup    uint64
	CellCreate       uint64
	TupleCreatePerEl uint64
	NanogramsPerGas  uint64
}

// Limits bounds the engine's stack depth and library-cell resolver cache,
// the two Config fields vm.New defaults if left zero.
type Limits struct {
	MaxStackDepth int
	LibraryLRU    int
}

// Config is the full on-disk configuration: which capability bits are
// enabled, the gas schedule, and the engine's resource limits.
type Config struct {
	Capabilities []string
	Gas          GasSchedule
	Limits       Limits
}

// Defaults returns the conservative, oldest-documented-behavior baseline:
// no capability bits set, the gas schedule's own built-in constants, and
// vm.New's own zero-value (auto-defaulted) limits.
func Defaults() Config {
	return Config{
		Gas: GasSchedule{
			CellLoadFirst:    100,
			CellLoadDedup:    25,
			CellCreate:       500,
			TupleCreatePerEl: 1,
			NanogramsPerGas:  10,
		},
	}
}

// tomlSettings matches cmd/gprobe/config.go's own NormFieldName/FieldToKey/
// MissingField overrides: TOML keys use the same names as the Go struct
// fields, and a field absent from the target struct is a load error rather
// than a silently dropped key.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string { return key },
	FieldToKey:    func(rt reflect.Type, field string) string { return field },
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

// Load reads path as TOML into a fresh Defaults() config and returns it.
func Load(path string) (Config, error) {
	cfg := Defaults()
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	if err := tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(&cfg); err != nil {
		if _, ok := err.(*toml.LineError); ok {
			return cfg, fmt.Errorf("%s, %w", path, err)
		}
		return cfg, err
	}
	return cfg, nil
}

// CapabilitySet resolves the config's capability name list into a bitmap,
// erroring on any name that isn't in namedBits rather than ignoring it.
func (c Config) CapabilitySet() (capability.Set, error) {
	var set capability.Set
	for _, name := range c.Capabilities {
		bit, ok := namedBits[name]
		if !ok {
			return 0, fmt.Errorf("config: unknown capability %q", name)
		}
		set = set.With(bit)
	}
	return set, nil
}
