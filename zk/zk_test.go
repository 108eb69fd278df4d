// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package zk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solidus-project/solidus/ec"
)

func randKey(t *testing.T) ec.Point {
	t.Helper()
	sk, err := ec.GeneratePrivateKey()
	require.NoError(t, err)
	return sk.Public()
}

func TestPlaintextEqProof(t *testing.T) {
	pk := randKey(t)
	r1, _ := ec.RandomScalar()
	r2, _ := ec.RandomScalar()
	ct1 := ec.Encrypt(pk, ec.ScalarFromUint64(9), r1)
	ct2 := ec.Encrypt(pk, ec.ScalarFromUint64(9), r2)

	proof, err := ProvePlaintextEq(pk, ct1, ct2, r1.Sub(r2))
	require.NoError(t, err)
	assert.True(t, proof.Verify(pk, ct1, ct2))

	ct3 := ec.Encrypt(pk, ec.ScalarFromUint64(10), r2)
	assert.False(t, proof.Verify(pk, ct1, ct3))
}

func TestPlaintextEqDisKeyProof(t *testing.T) {
	pk1, pk2 := randKey(t), randKey(t)
	r1, _ := ec.RandomScalar()
	r2, _ := ec.RandomScalar()
	m := ec.ScalarFromUint64(100)
	ct1 := ec.Encrypt(pk1, m, r1)
	ct2 := ec.Encrypt(pk2, m, r2)

	proof, err := ProvePlaintextEqDisKey(pk1, pk2, ct1, ct2, m, r1, r2)
	require.NoError(t, err)
	assert.True(t, proof.Verify(pk1, pk2, ct1, ct2))

	other := ec.Encrypt(pk2, ec.ScalarFromUint64(101), r2)
	assert.False(t, proof.Verify(pk1, pk2, ct1, other))
}

func TestOrProofBothBranches(t *testing.T) {
	pk := randKey(t)
	r, _ := ec.RandomScalar()

	ct0 := ec.Encrypt(pk, ec.ScalarFromUint64(0), r)
	s0 := DLEQStatement{P1: ec.BasePoint(), Q1: ct0.C1, P2: pk, Q2: ct0.C2}
	s1 := DLEQStatement{P1: ec.BasePoint(), Q1: ct0.C1, P2: pk, Q2: ct0.C2.Sub(ec.BasePoint())}

	proof, err := ProveOr(s0, s1, 0, r)
	require.NoError(t, err)
	assert.True(t, proof.Verify(s0, s1))

	ct1 := ec.Encrypt(pk, ec.ScalarFromUint64(1), r)
	t0 := DLEQStatement{P1: ec.BasePoint(), Q1: ct1.C1, P2: pk, Q2: ct1.C2}
	t1 := DLEQStatement{P1: ec.BasePoint(), Q1: ct1.C1, P2: pk, Q2: ct1.C2.Sub(ec.BasePoint())}

	proof2, err := ProveOr(t0, t1, 1, r)
	require.NoError(t, err)
	assert.True(t, proof2.Verify(t0, t1))

	// Neither branch is satisfied by ct0's statements combined with
	// proof2's transcript, so this must fail.
	assert.False(t, proof2.Verify(s0, s1))
}

func TestMaxwellRangeProof(t *testing.T) {
	pk := randKey(t)

	proof, ct, _, err := ProveRange(pk, 42, 16)
	require.NoError(t, err)
	assert.True(t, proof.Verify(pk, ct))

	tampered := ct
	tampered.C2 = tampered.C2.Add(ec.BasePoint())
	assert.False(t, proof.Verify(pk, tampered))
}

func TestMaxwellRangeProofRejectsOutOfRangeByTruncation(t *testing.T) {
	pk := randKey(t)
	// A value requiring more bits than allotted is silently truncated by
	// the shift in ProveRange; verification must catch the mismatch
	// against a ciphertext of the true, untruncated value.
	const bits = 4
	trueValue := uint64(1) << bits // one bit too many

	proof, _, _, err := ProveRange(pk, trueValue, bits)
	require.NoError(t, err)

	r, _ := ec.RandomScalar()
	trueCt := ec.Encrypt(pk, ec.ScalarFromUint64(trueValue), r)
	assert.False(t, proof.Verify(pk, trueCt))
}
