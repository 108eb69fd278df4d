// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package pvorm

import (
	"crypto/sha256"
	"testing"
)

// TestDeterministicLeafIsUniform is spec.md's obliviousness property: the
// hash-chained eviction leaf an observer can recompute from the public root
// hash and sequence number must be indistinguishable from a uniform draw
// over the tree's leaves, round after round, not just on the first call.
// This chi-squared test simulates many successive updates, chaining a
// stand-in root hash from round to round (each round hashes the prior
// value with the leaf just chosen; a live PVORM's rootHash instead hashes
// its whole posterior tree and stash) and checks the resulting leaf
// histogram against the uniform null hypothesis.
func TestDeterministicLeafIsUniform(t *testing.T) {
	const height = 4 // RegtestParams.TreeHeight: 16 leaves
	const leaves = 1 << height
	const rounds = 32000 // expected count per leaf: 2000

	var rootHash [32]byte
	counts := make([]int, leaves)
	for seq := uint64(0); seq < rounds; seq++ {
		leaf := deterministicLeaf(rootHash, seq, height)
		counts[leaf]++

		h := sha256.New()
		h.Write(rootHash[:])
		var leafBytes [4]byte
		leafBytes[0] = byte(leaf >> 24)
		leafBytes[1] = byte(leaf >> 16)
		leafBytes[2] = byte(leaf >> 8)
		leafBytes[3] = byte(leaf)
		h.Write(leafBytes[:])
		copy(rootHash[:], h.Sum(nil))
	}

	expected := float64(rounds) / float64(leaves)
	chiSq := 0.0
	for _, c := range counts {
		d := float64(c) - expected
		chiSq += d * d / expected
	}

	// df = leaves-1 = 15; the 0.001 critical value is ~37.7, so 60 leaves
	// ample room before this ever flags a correctly-uniform distribution
	// while still catching a badly skewed one.
	const chiSqThreshold = 60.0
	if chiSq > chiSqThreshold {
		t.Fatalf("leaf distribution looks non-uniform: chi-squared = %f over %d leaves (counts %v)", chiSq, leaves, counts)
	}
}
