// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

// Package params bundles the protocol's tunable constants into named
// presets, the way iskiy-ilxd's params package bundles a network's
// genesis block and chain parameters: rather than scatter B, h, Z, and
// sigma across constructors, every component that needs them takes one
// *Params value built from a preset.
package params

import "github.com/solidus-project/solidus/ec"

// Params bundles the constants every bank, PVORM, and harness in a given
// network must agree on.
type Params struct {
	Name string

	// EncryptionParams bounds plaintexts (balances, amounts) to
	// [0, Bound) for L1's decryption table.
	EncryptionParams *ec.EncryptionParams

	// TreeHeight is h: the PVORM tree has 2^h leaves.
	TreeHeight int

	// BucketSize is Z: slots per tree node.
	BucketSize int

	// StashCapacity is sigma: the maximum number of slots the stash may
	// hold before lookupAndUpdate fails with StashOverflow.
	StashCapacity int

	// RangeProofBits bounds the bit-width MaxwellRangeProof decomposes
	// amounts and balances into; must be large enough that
	// EncryptionParams.Bound fits, i.e. 2^RangeProofBits >= Bound.
	RangeProofBits int
}

// MainnetParams is a production-scale preset: a reasonably deep tree and
// a balance range wide enough for real settlement amounts.
var MainnetParams = &Params{
	Name:              "mainnet",
	EncryptionParams:  ec.NewEncryptionParams(1 << 20),
	TreeHeight:        16,
	BucketSize:        4,
	StashCapacity:     64,
	RangeProofBits:    20,
}

// TestnetParams shrinks the tree so integration tests against a live
// process finish quickly while still exercising multiple tree levels.
var TestnetParams = &Params{
	Name:              "testnet",
	EncryptionParams:  ec.NewEncryptionParams(1 << 16),
	TreeHeight:        8,
	BucketSize:        4,
	StashCapacity:     16,
	RangeProofBits:    16,
}

// RegtestParams matches spec.md's S1-style scenario constants exactly
// (B=1024, h=4, Z=4, sigma=8), for scenario and property tests that
// reproduce the specification's literal worked examples.
var RegtestParams = &Params{
	Name:              "regtest",
	EncryptionParams:  ec.NewEncryptionParams(1024),
	TreeHeight:        4,
	BucketSize:        4,
	StashCapacity:     8,
	RangeProofBits:    10,
}

// StashStressParams matches spec.md's S6 stash-stress scenario (sigma=2,
// h=2, Z=2).
var StashStressParams = &Params{
	Name:              "stash-stress",
	EncryptionParams:  ec.NewEncryptionParams(1024),
	TreeHeight:        2,
	BucketSize:        2,
	StashCapacity:     2,
	RangeProofBits:    10,
}
