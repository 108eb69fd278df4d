// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package pvorm

import (
	"github.com/solidus-project/solidus/ec"
	"github.com/solidus-project/solidus/types"
	"github.com/solidus-project/solidus/zk"

	solidus "github.com/solidus-project/solidus"
)

// Every update relocates the account's slot to a freshly chosen stash
// position, whether it previously lived in the tree or already in the
// stash: this keeps the shape of an update identical round to round
// (always exactly one vacate, one arrival, and whatever the eviction walk
// touches) rather than branching on where the account happened to sit.

// proveUnchanged proves newCT is a re-encryption of priorCT's own
// plaintext, nothing more.
func proveUnchanged(pk ec.Point, priorCT, newCT ec.Ciphertext, priorRand, newRand ec.Scalar) (zk.OrProof, error) {
	s := zk.SameValueStatement(pk, priorCT, newCT)
	return zk.ProveOr(s, s, 0, newRand.Sub(priorRand))
}

func verifyUnchanged(pk ec.Point, priorCT, newCT ec.Ciphertext, proof zk.OrProof) bool {
	s := zk.SameValueStatement(pk, priorCT, newCT)
	return proof.Verify(s, s)
}

// proveVacate proves newCT is either unchanged from priorCT (false here)
// or now encrypts the identity placeholder (true): used whenever a
// position gives up whatever it held this round.
func proveVacate(pk ec.Point, priorCT, newCT ec.Ciphertext, newRand ec.Scalar) (zk.OrProof, error) {
	s0 := zk.SameValueStatement(pk, priorCT, newCT)
	s1 := zk.EncodesValueStatement(pk, newCT, ec.ZeroScalar())
	return zk.ProveOr(s0, s1, 1, newRand)
}

func verifyVacate(pk ec.Point, priorCT, newCT ec.Ciphertext, proof zk.OrProof) bool {
	s0 := zk.SameValueStatement(pk, priorCT, newCT)
	s1 := zk.EncodesValueStatement(pk, newCT, ec.ZeroScalar())
	return proof.Verify(s0, s1)
}

// proveMoved proves newCT is either unchanged from priorDestCT (false
// here) or now carries originCT's plaintext (true): used for a position
// receiving whatever another position just gave up, value-for-value.
func proveMoved(pk ec.Point, priorDestCT, originCT, newCT ec.Ciphertext, witness ec.Scalar) (zk.OrProof, error) {
	s0 := zk.SameValueStatement(pk, priorDestCT, newCT)
	s1 := zk.SameValueStatement(pk, originCT, newCT)
	return zk.ProveOr(s0, s1, 1, witness)
}

func verifyMoved(pk ec.Point, priorDestCT, originCT, newCT ec.Ciphertext, proof zk.OrProof) bool {
	s0 := zk.SameValueStatement(pk, priorDestCT, newCT)
	s1 := zk.SameValueStatement(pk, originCT, newCT)
	return proof.Verify(s0, s1)
}

// proveMovedWithDelta is proveMoved for a balance slot, where the arriving
// value is originCT's plaintext shifted by delta's.
func proveMovedWithDelta(pk ec.Point, priorDestCT, originCT, delta, newCT ec.Ciphertext, witness ec.Scalar) (zk.OrProof, error) {
	s0 := zk.SameValueStatement(pk, priorDestCT, newCT)
	s1 := zk.SameValueStatement(pk, originCT, newCT.Sub(delta))
	return zk.ProveOr(s0, s1, 1, witness)
}

func verifyMovedWithDelta(pk ec.Point, priorDestCT, originCT, delta, newCT ec.Ciphertext, proof zk.OrProof) bool {
	s0 := zk.SameValueStatement(pk, priorDestCT, newCT)
	s1 := zk.SameValueStatement(pk, originCT, newCT.Sub(delta))
	return proof.Verify(s0, s1)
}

// LookupAndUpdate applies a signed delta to account's balance: delta is an
// ElGamal encryption of the change under the bank's own key (debits pass a
// negative deltaValue paired with a ciphertext of its negated magnitude,
// credits pass a positive one) and deltaRandomizer is delta's combined
// randomizer, which the caller always knows because it either drew it
// directly (debiting its own outgoing value) or received it out-of-band
// from the counterparty bank alongside the ciphertext (crediting an
// incoming one) over the bank-to-bank channel this package has no part in.
// The returned update is self-contained: any observer holding the
// account's bank's last PublicState and the same delta can verify it
// without deltaRandomizer or the account's identity.
//
// committedKeyCiphertext is the account-binding commitment a verifier will
// check the destination slot's key plaintext against (spec.md invariant
// (iii)): the account's own canonical OramKey ciphertext for a debit, or
// the transaction header's DestAccountCiphertext for a credit. Proving the
// match requires only this bank's own secret key, never the commitment's
// randomizer, which this bank may never have received.
func (v *PVORM) LookupAndUpdate(account ec.Point, deltaValue int64, delta ec.Ciphertext, deltaRandomizer ec.Scalar, committedKeyCiphertext ec.Ciphertext) (*types.PVORMUpdate, error) {
	ak := types.Account{PublicKey: account}.Key()
	pos, ok := v.positions[ak]
	if !ok {
		return nil, solidus.NewError(solidus.OutOfRange, "account not tracked by this pvorm")
	}
	oramKey := types.Account{PublicKey: account}.OramKey()

	var old slotSecret
	if pos.Node == 0 {
		old = v.stashSecrets[pos.Index]
	} else {
		old = v.treeSecrets[pos.Node][pos.Index]
	}

	signedNew := int64(old.BalValue) + deltaValue
	bound := v.params.EncryptionParams.Bound
	if signedNew < 0 || uint64(signedNew) >= bound {
		return nil, solidus.NewError(solidus.OutOfRange, "resulting balance %d out of range [0,%d)", signedNew, bound)
	}
	newBalance := uint64(signedNew)

	priorRootHash := v.rootHash
	priorSeq := v.seq
	priorTree := v.tree.Clone()
	priorStash := v.stash.Clone()

	identity := identitySlotFor(v.bankPub)
	var slotProofs []types.SlotProof

	// origin: vacate wherever the account used to sit.
	origKeyCT, origBalCT := old.ciphertexts(v.bankPub)
	keyRandV, err := ec.RandomScalar()
	if err != nil {
		return nil, err
	}
	balRandV, err := ec.RandomScalar()
	if err != nil {
		return nil, err
	}
	vacKeyCT := ec.Encrypt(v.bankPub, ec.ZeroScalar(), keyRandV)
	vacBalCT := ec.Encrypt(v.bankPub, ec.ZeroScalar(), balRandV)
	vacKeyProof, err := proveVacate(v.bankPub, origKeyCT, vacKeyCT, keyRandV)
	if err != nil {
		return nil, err
	}
	vacBalProof, err := proveVacate(v.bankPub, origBalCT, vacBalCT, balRandV)
	if err != nil {
		return nil, err
	}
	v.writeSlot(pos, types.PVORMSlot{KeyCiphertext: vacKeyCT, BalanceCiphertext: vacBalCT}, slotSecret{KeyRand: keyRandV, BalRand: balRandV})
	slotProofs = append(slotProofs, types.SlotProof{Node: pos.Node, Index: pos.Index, Role: types.SlotVacated, KeyProof: vacKeyProof, BalanceProof: vacBalProof})

	// destination: always a fresh stash position, distinct from the one
	// just vacated.
	destIdx := v.findIdentityStashSlotExcept(pos)
	if destIdx < 0 {
		return nil, solidus.NewError(solidus.StashOverflow, "stash full, cannot relocate account")
	}
	priorDestKeyCT := priorStash.Slots[destIdx].KeyCiphertext
	priorDestBalCT := priorStash.Slots[destIdx].BalanceCiphertext

	keyRand, err := ec.RandomScalar()
	if err != nil {
		return nil, err
	}
	destKeyCT := ec.Encrypt(v.bankPub, oramKey, keyRand)
	keyWitness := keyRand.Sub(old.KeyRand)
	keyProof, err := proveMoved(v.bankPub, priorDestKeyCT, origKeyCT, destKeyCT, keyWitness)
	if err != nil {
		return nil, err
	}

	total := old.BalRand.Add(deltaRandomizer)
	rangeProof, err := zk.ProveRangeWithTotal(v.bankPub, newBalance, v.params.RangeProofBits, total)
	if err != nil {
		return nil, err
	}
	destBalCT := rangeProof.Ciphertext()
	balWitness := ec.ZeroScalar()
	balProof, err := proveMovedWithDelta(v.bankPub, priorDestBalCT, origBalCT, delta, destBalCT, balWitness)
	if err != nil {
		return nil, err
	}

	bindingProof, err := zk.ProveDecryptEq(v.bankPub, destKeyCT, committedKeyCiphertext, v.bankKey.Scalar())
	if err != nil {
		return nil, err
	}

	newLeaf, err := v.randomLeaf()
	if err != nil {
		return nil, err
	}
	destSecret := slotSecret{KeyScalar: oramKey, KeyRand: keyRand, BalValue: newBalance, BalRand: total, AssignedLeaf: newLeaf}
	v.stash.Slots[destIdx] = types.PVORMSlot{KeyCiphertext: destKeyCT, BalanceCiphertext: destBalCT}
	v.stashSecrets[destIdx] = destSecret
	v.positions[ak] = position{Node: 0, Index: destIdx}
	v.oramIndex[string(oramKey.Bytes())] = ak
	slotProofs = append(slotProofs, types.SlotProof{
		Node: 0, Index: destIdx,
		Role: types.SlotMovedWithDelta, OriginNode: pos.Node, OriginIndex: pos.Index,
		KeyProof: keyProof, BalanceProof: balProof,
	})

	reserved := map[int]bool{destIdx: true}
	if pos.Node == 0 {
		reserved[pos.Index] = true
	}

	// eviction: push at most one eligible stash item down the path to this
	// round's deterministic leaf, then re-randomize every remaining slot
	// the path and stash touch so the access pattern doesn't single out
	// whichever ones actually changed.
	evictLeaf := deterministicLeaf(priorRootHash, priorSeq, v.tree.Height)
	path := v.tree.PathToLeaf(evictLeaf)

	evictItem, evictNode, evictIndex, evictDepth := v.findEviction(path, reserved)

	for depth, nodeID := range path {
		width := v.params.BucketSize
		secrets := v.treeSecretsFor(nodeID)
		newBucket := make(types.PVORMBucket, width)
		newSecrets := make([]slotSecret, width)
		priorBucket := priorTree.Bucket(nodeID, width, identity)

		for i := 0; i < width; i++ {
			if evictItem >= 0 && nodeID == evictNode && i == evictIndex {
				moved := v.stashSecrets[evictItem]
				keyR, err := ec.RandomScalar()
				if err != nil {
					return nil, err
				}
				balR, err := ec.RandomScalar()
				if err != nil {
					return nil, err
				}
				movedKeyCT, movedBalCT := moved.ciphertexts(v.bankPub)
				newKeyCT := ec.Encrypt(v.bankPub, moved.KeyScalar, keyR)
				newBalCT := ec.Encrypt(v.bankPub, ec.ScalarFromUint64(moved.BalValue), balR)
				kp, err := proveMoved(v.bankPub, priorBucket[i].KeyCiphertext, movedKeyCT, newKeyCT, keyR.Sub(moved.KeyRand))
				if err != nil {
					return nil, err
				}
				bp, err := proveMoved(v.bankPub, priorBucket[i].BalanceCiphertext, movedBalCT, newBalCT, balR.Sub(moved.BalRand))
				if err != nil {
					return nil, err
				}
				newBucket[i] = types.PVORMSlot{KeyCiphertext: newKeyCT, BalanceCiphertext: newBalCT}
				newSecrets[i] = slotSecret{KeyScalar: moved.KeyScalar, KeyRand: keyR, BalValue: moved.BalValue, BalRand: balR, AssignedLeaf: moved.AssignedLeaf}
				slotProofs = append(slotProofs, types.SlotProof{
					Node: nodeID, Index: i,
					Role: types.SlotMoved, OriginNode: 0, OriginIndex: evictItem,
					KeyProof: kp, BalanceProof: bp,
				})
				v.retarget(moved, position{Node: nodeID, Index: i})
				continue
			}

			old := secrets[i]
			oldKeyCT, oldBalCT := old.ciphertexts(v.bankPub)
			keyR, err := ec.RandomScalar()
			if err != nil {
				return nil, err
			}
			balR, err := ec.RandomScalar()
			if err != nil {
				return nil, err
			}
			newKeyCT := ec.Encrypt(v.bankPub, old.KeyScalar, keyR)
			newBalCT := ec.Encrypt(v.bankPub, ec.ScalarFromUint64(old.BalValue), balR)
			kp, err := proveUnchanged(v.bankPub, oldKeyCT, newKeyCT, old.KeyRand, keyR)
			if err != nil {
				return nil, err
			}
			bp, err := proveUnchanged(v.bankPub, oldBalCT, newBalCT, old.BalRand, balR)
			if err != nil {
				return nil, err
			}
			newBucket[i] = types.PVORMSlot{KeyCiphertext: newKeyCT, BalanceCiphertext: newBalCT}
			newSecrets[i] = slotSecret{KeyScalar: old.KeyScalar, KeyRand: keyR, BalValue: old.BalValue, BalRand: balR, AssignedLeaf: old.AssignedLeaf}
			slotProofs = append(slotProofs, types.SlotProof{Node: nodeID, Index: i, Role: types.SlotUnchanged, KeyProof: kp, BalanceProof: bp})
			v.retarget(old, position{Node: nodeID, Index: i})
		}

		v.tree.Buckets[nodeID] = newBucket
		v.treeSecrets[nodeID] = newSecrets
		_ = depth
	}

	if evictItem >= 0 {
		vk, vb, err := v.vacateStashWithProof(evictItem, priorStash)
		if err != nil {
			return nil, err
		}
		slotProofs = append(slotProofs, types.SlotProof{Node: 0, Index: evictItem, Role: types.SlotVacated, KeyProof: vk, BalanceProof: vb})
		reserved[evictItem] = true
	}
	_ = evictDepth

	for i := range v.stash.Slots {
		if reserved[i] {
			continue
		}
		old := v.stashSecrets[i]
		oldKeyCT, oldBalCT := old.ciphertexts(v.bankPub)
		keyR, err := ec.RandomScalar()
		if err != nil {
			return nil, err
		}
		balR, err := ec.RandomScalar()
		if err != nil {
			return nil, err
		}
		newKeyCT := ec.Encrypt(v.bankPub, old.KeyScalar, keyR)
		newBalCT := ec.Encrypt(v.bankPub, ec.ScalarFromUint64(old.BalValue), balR)
		kp, err := proveUnchanged(v.bankPub, oldKeyCT, newKeyCT, old.KeyRand, keyR)
		if err != nil {
			return nil, err
		}
		bp, err := proveUnchanged(v.bankPub, oldBalCT, newBalCT, old.BalRand, balR)
		if err != nil {
			return nil, err
		}
		v.stash.Slots[i] = types.PVORMSlot{KeyCiphertext: newKeyCT, BalanceCiphertext: newBalCT}
		v.stashSecrets[i] = slotSecret{KeyScalar: old.KeyScalar, KeyRand: keyR, BalValue: old.BalValue, BalRand: balR, AssignedLeaf: old.AssignedLeaf}
		slotProofs = append(slotProofs, types.SlotProof{Node: 0, Index: i, Role: types.SlotUnchanged, KeyProof: kp, BalanceProof: bp})
		v.retarget(old, position{Node: 0, Index: i})
	}

	v.seq++
	v.rootHash = v.computeRootHash()

	return &types.PVORMUpdate{
		PriorRootHash:  priorRootHash,
		PosteriorTree:  v.tree.Clone(),
		PosteriorStash: v.stash.Clone(),
		LeafIndex:      evictLeaf,
		Delta:          delta,
		SlotProofs:     slotProofs,
		RangeProof:     rangeProof,

		AccountBindingProof: bindingProof,
	}, nil
}

// ciphertexts re-derives the public ciphertext pair a slotSecret committed
// to, so callers can reference "whatever used to be here" without keeping
// a separate copy of the public tree/stash in lockstep.
func (s slotSecret) ciphertexts(pk ec.Point) (ec.Ciphertext, ec.Ciphertext) {
	return ec.Encrypt(pk, s.KeyScalar, s.KeyRand), ec.Encrypt(pk, ec.ScalarFromUint64(s.BalValue), s.BalRand)
}

// identitySlotFor synthesizes the filler used for a tree bucket position
// that has never been written. It must be canonical rather than randomly
// re-encrypted each call: a position's proof statement is built against
// whatever "prior" ciphertext the prover used here, and a verifier
// replicating only public state has to reconstruct that exact value
// independently, with no access to the randomness the prover would have
// drawn. Encrypting the identity with randomizer zero collapses both
// ciphertext components to the point at infinity, a fixed public value
// both sides derive without coordination.
func identitySlotFor(pk ec.Point) types.PVORMSlot {
	zero := ec.Encrypt(pk, ec.ZeroScalar(), ec.ZeroScalar())
	return types.PVORMSlot{
		KeyCiphertext:     zero,
		BalanceCiphertext: zero,
	}
}

func (v *PVORM) treeSecretsFor(id types.NodeID) []slotSecret {
	s, ok := v.treeSecrets[id]
	if ok {
		return s
	}
	return make([]slotSecret, v.params.BucketSize)
}

func (v *PVORM) writeSlot(pos position, slot types.PVORMSlot, sec slotSecret) {
	if pos.Node == 0 {
		v.stash.Slots[pos.Index] = slot
		v.stashSecrets[pos.Index] = sec
		return
	}
	secrets := v.treeSecretsFor(pos.Node)
	bucket := append(types.PVORMBucket{}, v.tree.Bucket(pos.Node, v.params.BucketSize, identitySlotFor(v.bankPub))...)
	bucket[pos.Index] = slot
	secrets[pos.Index] = sec
	v.tree.Buckets[pos.Node] = bucket
	v.treeSecrets[pos.Node] = secrets
}

func (v *PVORM) findIdentityStashSlotExcept(exclude position) int {
	for i, sec := range v.stashSecrets {
		if exclude.Node == 0 && i == exclude.Index {
			continue
		}
		if sec.isIdentity() {
			return i
		}
	}
	return -1
}

// randomLeaf draws a fresh, unpredictable leaf assignment for a stash
// item, never itself published: only the owning bank uses it, to decide
// which future eviction passes may sink that item into the tree.
func (v *PVORM) randomLeaf() (uint32, error) {
	r, err := ec.RandomScalar()
	if err != nil {
		return 0, err
	}
	b := r.Bytes()
	x := uint32(b[28])<<24 | uint32(b[29])<<16 | uint32(b[30])<<8 | uint32(b[31])
	return x % (uint32(1) << uint(v.tree.Height)), nil
}

// findEviction looks for a stash item, not already reserved this round,
// whose assigned leaf routes through some node on path, where that node
// still has an open identity slot. Returns evictItem -1 if none qualify.
func (v *PVORM) findEviction(path []types.NodeID, reserved map[int]bool) (evictItem int, node types.NodeID, index int, depth int) {
	for i, s := range v.stashSecrets {
		if reserved[i] || s.isIdentity() {
			continue
		}
		for d, nodeID := range path {
			if ancestorAtDepth(v.tree, s.AssignedLeaf, d) != nodeID {
				continue
			}
			secrets := v.treeSecretsFor(nodeID)
			for idx, sec := range secrets {
				if sec.isIdentity() {
					return i, nodeID, idx, d
				}
			}
		}
	}
	return -1, 0, 0, 0
}

func (v *PVORM) vacateStashWithProof(idx int, priorStash types.PVORMStash) (zk.OrProof, zk.OrProof, error) {
	old := v.stashSecrets[idx]
	oldKeyCT, oldBalCT := old.ciphertexts(v.bankPub)
	_ = priorStash
	keyR, err := ec.RandomScalar()
	if err != nil {
		return zk.OrProof{}, zk.OrProof{}, err
	}
	balR, err := ec.RandomScalar()
	if err != nil {
		return zk.OrProof{}, zk.OrProof{}, err
	}
	newKeyCT := ec.Encrypt(v.bankPub, ec.ZeroScalar(), keyR)
	newBalCT := ec.Encrypt(v.bankPub, ec.ZeroScalar(), balR)
	kp, err := proveVacate(v.bankPub, oldKeyCT, newKeyCT, keyR)
	if err != nil {
		return zk.OrProof{}, zk.OrProof{}, err
	}
	bp, err := proveVacate(v.bankPub, oldBalCT, newBalCT, balR)
	if err != nil {
		return zk.OrProof{}, zk.OrProof{}, err
	}
	v.stash.Slots[idx] = types.PVORMSlot{KeyCiphertext: newKeyCT, BalanceCiphertext: newBalCT}
	v.stashSecrets[idx] = slotSecret{KeyRand: keyR, BalRand: balR}
	return kp, bp, nil
}

// retarget keeps the account index in sync when an eviction or
// rerandomization pass physically moves a live slot.
func (v *PVORM) retarget(sec slotSecret, pos position) {
	if sec.isIdentity() {
		return
	}
	if ak, ok := v.oramIndex[string(sec.KeyScalar.Bytes())]; ok {
		v.positions[ak] = pos
	}
}
