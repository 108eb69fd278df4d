// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package pvorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solidus-project/solidus/ec"
	"github.com/solidus-project/solidus/params"
	"github.com/solidus-project/solidus/types"
)

// testCommitment mirrors bank.accountCommitment's sender-side derivation,
// the canonical zero-randomizer OramKey ciphertext anyone can compute from
// the account's public key, so LookupAndUpdate and Verify agree on the
// account-binding commitment without threading a TransactionHeader through
// these unit tests.
func testCommitment(bankPub ec.Point, account ec.Point) ec.Ciphertext {
	oramKey := types.Account{PublicKey: account}.OramKey()
	return ec.Encrypt(bankPub, oramKey, ec.ZeroScalar())
}

func newTestBank(t *testing.T) (*PVORM, *ec.PrivateKey) {
	t.Helper()
	key, err := ec.GeneratePrivateKey()
	require.NoError(t, err)
	return New(params.RegtestParams, key), key
}

// TestVerifyAcceptsHonestUpdate is spec.md's core property 4: an honestly
// produced update must verify against the replicated prior state with no
// secret witness.
func TestVerifyAcceptsHonestUpdate(t *testing.T) {
	v, key := newTestBank(t)
	acctKey, err := ec.GeneratePrivateKey()
	require.NoError(t, err)
	require.NoError(t, v.Insert(acctKey.Public(), 100))

	prior := v.PublicState()

	r, err := ec.RandomScalar()
	require.NoError(t, err)
	delta := ec.Encrypt(key.Public(), ec.ScalarFromUint64(30), r)

	committed := testCommitment(key.Public(), acctKey.Public())
	update, err := v.LookupAndUpdate(acctKey.Public(), 30, delta, r, committed)
	require.NoError(t, err)

	err = Verify(params.RegtestParams, key.Public(), prior, update, committed)
	assert.NoError(t, err)
}

// TestVerifyRejectsBitFlip is spec.md's S5: a single flipped byte in a
// posted update's proof must cause Verify to reject with InvalidProof.
func TestVerifyRejectsBitFlip(t *testing.T) {
	v, key := newTestBank(t)
	acctKey, err := ec.GeneratePrivateKey()
	require.NoError(t, err)
	require.NoError(t, v.Insert(acctKey.Public(), 100))

	prior := v.PublicState()

	r, err := ec.RandomScalar()
	require.NoError(t, err)
	delta := ec.Encrypt(key.Public(), ec.ScalarFromUint64(30), r)

	committed := testCommitment(key.Public(), acctKey.Public())
	update, err := v.LookupAndUpdate(acctKey.Public(), 30, delta, r, committed)
	require.NoError(t, err)
	require.NotEmpty(t, update.SlotProofs)

	// Flip a byte in the first slot proof's disjunction challenge so the
	// Sigma statement no longer matches what verifyUnchanged/verifyMoved
	// expects.
	mutated := update.SlotProofs[0]
	c := mutated.KeyProof.E0.Bytes()
	c[0] ^= 0xFF
	mutated.KeyProof.E0 = ec.ScalarFromBytes(c)
	update.SlotProofs[0] = mutated

	err = Verify(params.RegtestParams, key.Public(), prior, update, committed)
	assert.Error(t, err)
}

// TestVerifyRejectsWrongPriorRoot ensures an update claiming to chain
// from a stale root hash is rejected rather than silently replayed.
func TestVerifyRejectsWrongPriorRoot(t *testing.T) {
	v, key := newTestBank(t)
	acctKey, err := ec.GeneratePrivateKey()
	require.NoError(t, err)
	require.NoError(t, v.Insert(acctKey.Public(), 100))

	prior := v.PublicState()

	r, err := ec.RandomScalar()
	require.NoError(t, err)
	delta := ec.Encrypt(key.Public(), ec.ScalarFromUint64(30), r)

	committed := testCommitment(key.Public(), acctKey.Public())
	update, err := v.LookupAndUpdate(acctKey.Public(), 30, delta, r, committed)
	require.NoError(t, err)

	update.PriorRootHash[0] ^= 0xFF
	err = Verify(params.RegtestParams, key.Public(), prior, update, committed)
	assert.Error(t, err)
}

// TestReplicaApplyVerifiedChains checks a sequence of updates can be
// replayed by an observer replica with no secret key, and that a failed
// update never mutates the replica's state.
func TestReplicaApplyVerifiedChains(t *testing.T) {
	v, key := newTestBank(t)
	a1, err := ec.GeneratePrivateKey()
	require.NoError(t, err)
	a2, err := ec.GeneratePrivateKey()
	require.NoError(t, err)
	require.NoError(t, v.Insert(a1.Public(), 100))
	require.NoError(t, v.Insert(a2.Public(), 50))

	replica := NewReplica(params.RegtestParams, key.Public(), v.PublicState())

	committed1 := testCommitment(key.Public(), a1.Public())
	r1, err := ec.RandomScalar()
	require.NoError(t, err)
	delta1 := ec.Encrypt(key.Public(), ec.ScalarFromUint64(10), r1)
	upd1, err := v.LookupAndUpdate(a1.Public(), -10, delta1.ScalarMul(ec.OneScalar().Neg()), r1.Neg(), committed1)
	require.NoError(t, err)
	require.NoError(t, replica.ApplyVerified(upd1, committed1))
	assert.Equal(t, v.PublicState().RootHash, replica.State.RootHash)
	assert.Equal(t, uint64(1), replica.State.Seq)

	committed2 := testCommitment(key.Public(), a2.Public())
	r2, err := ec.RandomScalar()
	require.NoError(t, err)
	delta2 := ec.Encrypt(key.Public(), ec.ScalarFromUint64(10), r2)
	upd2, err := v.LookupAndUpdate(a2.Public(), 10, delta2, r2, committed2)
	require.NoError(t, err)
	require.NoError(t, replica.ApplyVerified(upd2, committed2))
	assert.Equal(t, v.PublicState().RootHash, replica.State.RootHash)
	assert.Equal(t, uint64(2), replica.State.Seq)

	// A tampered third update must be rejected without touching state.
	committed3 := testCommitment(key.Public(), a1.Public())
	r3, err := ec.RandomScalar()
	require.NoError(t, err)
	delta3 := ec.Encrypt(key.Public(), ec.ScalarFromUint64(5), r3)
	upd3, err := v.LookupAndUpdate(a1.Public(), 5, delta3, r3, committed3)
	require.NoError(t, err)
	upd3.LeafIndex ^= 1

	stateBefore := replica.State
	assert.Error(t, replica.ApplyVerified(upd3, committed3))
	assert.Equal(t, stateBefore, replica.State)
}

// TestVerifyRejectsPlantedBucketEntry guards against a bank (or corrupted
// replica feed) slipping an extra, unexplained tree bucket into the
// posterior state: every slot not individually covered by a SlotProof must
// be byte-identical to its prior value.
func TestVerifyRejectsPlantedBucketEntry(t *testing.T) {
	v, key := newTestBank(t)
	acctKey, err := ec.GeneratePrivateKey()
	require.NoError(t, err)
	require.NoError(t, v.Insert(acctKey.Public(), 100))

	prior := v.PublicState()

	r, err := ec.RandomScalar()
	require.NoError(t, err)
	delta := ec.Encrypt(key.Public(), ec.ScalarFromUint64(30), r)
	committed := testCommitment(key.Public(), acctKey.Public())
	update, err := v.LookupAndUpdate(acctKey.Public(), 30, delta, r, committed)
	require.NoError(t, err)

	planted := update.PosteriorTree.Clone()
	plantedNode := types.NodeID(999999)
	require.NotContains(t, planted.Buckets, plantedNode)
	bogusCT := ec.Encrypt(key.Public(), ec.ScalarFromUint64(7), ec.OneScalar())
	bucket := make(types.PVORMBucket, params.RegtestParams.BucketSize)
	for i := range bucket {
		bucket[i] = types.PVORMSlot{KeyCiphertext: bogusCT, BalanceCiphertext: bogusCT}
	}
	planted.Buckets[plantedNode] = bucket
	update.PosteriorTree = planted

	err = Verify(params.RegtestParams, key.Public(), prior, update, committed)
	assert.Error(t, err)
}

// TestVerifyRejectsAccountBindingMismatch guards spec.md invariant (iii):
// an update's mutated slot must decrypt-equal the committed account key
// supplied out of band, not merely verify as an internally-consistent
// transition between two arbitrary ciphertexts.
func TestVerifyRejectsAccountBindingMismatch(t *testing.T) {
	v, key := newTestBank(t)
	acctKey, err := ec.GeneratePrivateKey()
	require.NoError(t, err)
	otherKey, err := ec.GeneratePrivateKey()
	require.NoError(t, err)
	require.NoError(t, v.Insert(acctKey.Public(), 100))

	prior := v.PublicState()

	r, err := ec.RandomScalar()
	require.NoError(t, err)
	delta := ec.Encrypt(key.Public(), ec.ScalarFromUint64(30), r)
	committed := testCommitment(key.Public(), acctKey.Public())
	update, err := v.LookupAndUpdate(acctKey.Public(), 30, delta, r, committed)
	require.NoError(t, err)

	wrongCommitment := testCommitment(key.Public(), otherKey.Public())
	err = Verify(params.RegtestParams, key.Public(), prior, update, wrongCommitment)
	assert.Error(t, err)
}
