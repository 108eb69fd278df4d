// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

// Package pvorm implements layer L3, the Publicly Verifiable Oblivious RAM
// Machine: a Circuit-ORAM-like tree of encrypted (key, balance) slots plus
// an overflow stash, where every mutation is accompanied by a proof bundle
// that exactly one logical slot changed, the change kept the slot's
// balance in range, and the physical access pattern is indistinguishable
// from any other update. Per the Design Notes, the tree is arena-indexed
// (node ID -> bucket) rather than a pointer tree, so eviction walks and
// diffs are plain slice/map operations.
package pvorm

import (
	"crypto/sha256"
	"fmt"

	"github.com/solidus-project/solidus/ec"
	"github.com/solidus-project/solidus/params"
	"github.com/solidus-project/solidus/types"

	solidus "github.com/solidus-project/solidus"
)

// slotSecret mirrors one physical slot's public ciphertext with the
// witness data only the owning bank ever holds: the plaintexts and
// randomizers needed to prove a transition out of that slot. KeyScalar is
// zero for the identity placeholder, per spec.md's "all other slots are
// encryptions of the identity."
type slotSecret struct {
	KeyScalar ec.Scalar
	KeyRand   ec.Scalar
	BalValue  uint64
	BalRand   ec.Scalar

	// AssignedLeaf is meaningful only while the slot lives in the stash:
	// the leaf this slot will be steered toward on future eviction
	// passes, fixed when the slot was last written to the stash.
	AssignedLeaf uint32
}

func (s slotSecret) isIdentity() bool { return s.KeyScalar.IsZero() }

// position locates one account's current slot: either a tree bucket
// (Node != 0) or the fixed-width stash (Node == 0). This bookkeeping is
// private to the owning bank — it is never published, since the whole
// point of the tree+stash is that observers cannot tell which physical
// slot holds which account.
type position struct {
	Node  types.NodeID
	Index int
}

// PVORM is the owning bank's prover-side view of its own encrypted
// account store: the public tree and stash, the secret witnesses behind
// every slot, and the position index used to locate an account without
// scanning.
type PVORM struct {
	params  *params.Params
	bankKey *ec.PrivateKey
	bankPub ec.Point

	tree         *types.PVORMTree
	treeSecrets  map[types.NodeID][]slotSecret
	stash        types.PVORMStash
	stashSecrets []slotSecret

	rootHash [32]byte
	seq      uint64

	positions map[types.AccountKey]position

	// oramIndex reverses a live slot's ORAM key scalar back to the account
	// it belongs to, needed when an eviction pass physically moves a slot
	// and positions must be kept in sync without re-deriving the scalar
	// from every known account on every round.
	oramIndex map[string]types.AccountKey
}

// New constructs an empty PVORM for the given bank, with a tree of the
// configured height and an all-identity stash of the configured capacity.
func New(p *params.Params, bankKey *ec.PrivateKey) *PVORM {
	stashSecrets := make([]slotSecret, p.StashCapacity)
	stashSlots := make(types.PVORMBucket, p.StashCapacity)
	bankPub := bankKey.Public()
	for i := range stashSlots {
		slot, sec, _ := freshIdentitySlot(bankPub)
		stashSlots[i] = slot
		stashSecrets[i] = sec
	}

	v := &PVORM{
		params:       p,
		bankKey:      bankKey,
		bankPub:      bankPub,
		tree:         &types.PVORMTree{Height: p.TreeHeight, Buckets: map[types.NodeID]types.PVORMBucket{}},
		treeSecrets:  map[types.NodeID][]slotSecret{},
		stash:        types.PVORMStash{Capacity: p.StashCapacity, Slots: stashSlots},
		stashSecrets: stashSecrets,
		positions:    map[types.AccountKey]position{},
		oramIndex:    map[string]types.AccountKey{},
	}
	v.rootHash = v.computeRootHash()
	return v
}

// PublicState is everything about a bank's PVORM an observer without the
// bank's secret key can hold: the replicated tree and stash plus the
// rolling root hash and sequence counter the proof chain is built over.
type PublicState struct {
	Tree     *types.PVORMTree
	Stash    types.PVORMStash
	RootHash [32]byte
	Seq      uint64
}

// PublicState snapshots the bank's current replicated state, the form
// shared with other banks over the ledger.
func (v *PVORM) PublicState() PublicState {
	return PublicState{
		Tree:     v.tree.Clone(),
		Stash:    v.stash.Clone(),
		RootHash: v.rootHash,
		Seq:      v.seq,
	}
}

// freshIdentitySlot encrypts the identity placeholder (key scalar 0,
// balance 0) under pk with fresh randomness, producing a ciphertext
// indistinguishable from a live slot to anyone without the bank key.
func freshIdentitySlot(pk ec.Point) (types.PVORMSlot, slotSecret, error) {
	return freshSlot(pk, ec.ZeroScalar(), 0)
}

// freshSlot encrypts (keyScalar, balValue) under pk with fresh randomness.
func freshSlot(pk ec.Point, keyScalar ec.Scalar, balValue uint64) (types.PVORMSlot, slotSecret, error) {
	rk, err := ec.RandomScalar()
	if err != nil {
		return types.PVORMSlot{}, slotSecret{}, err
	}
	rb, err := ec.RandomScalar()
	if err != nil {
		return types.PVORMSlot{}, slotSecret{}, err
	}
	slot := types.PVORMSlot{
		KeyCiphertext:     ec.Encrypt(pk, keyScalar, rk),
		BalanceCiphertext: ec.Encrypt(pk, ec.ScalarFromUint64(balValue), rb),
	}
	sec := slotSecret{KeyScalar: keyScalar, KeyRand: rk, BalValue: balValue, BalRand: rb}
	return slot, sec, nil
}

// Peek returns account's current balance without producing a proof or
// mutating any state, for a sender bank to validate a debit will succeed
// before it commits to posting a TransactionHeader: once a header is on
// the ledger the counterparty bank acts on it, so an overdraft must never
// reach the point of being posted in the first place.
func (v *PVORM) Peek(account ec.Point) (uint64, error) {
	ak := types.Account{PublicKey: account}.Key()
	pos, ok := v.positions[ak]
	if !ok {
		return 0, solidus.NewError(solidus.OutOfRange, "account not tracked by this pvorm")
	}
	if pos.Node == 0 {
		return v.stashSecrets[pos.Index].BalValue, nil
	}
	return v.treeSecrets[pos.Node][pos.Index].BalValue, nil
}

// Insert seeds an account's initial balance directly into the stash, with
// no proof: a genesis-only operation used to bootstrap a bank's book
// before any ledger activity, analogous to a blockchain's genesis block.
func (v *PVORM) Insert(account ec.Point, initialBalance uint64) error {
	ak := types.Account{PublicKey: account}.Key()
	if _, exists := v.positions[ak]; exists {
		return fmt.Errorf("pvorm: account already present")
	}
	if initialBalance >= v.params.EncryptionParams.Bound {
		return solidus.NewError(solidus.OutOfRange, "genesis balance %d exceeds bound %d", initialBalance, v.params.EncryptionParams.Bound)
	}
	keyScalar := types.Account{PublicKey: account}.OramKey()

	idx := v.findIdentityStashSlot()
	if idx < 0 {
		return solidus.NewError(solidus.StashOverflow, "no free stash slot for genesis account")
	}
	slot, sec, err := freshSlot(v.bankPub, keyScalar, initialBalance)
	if err != nil {
		return err
	}
	sec.AssignedLeaf = v.deterministicLeaf()
	v.stash.Slots[idx] = slot
	v.stashSecrets[idx] = sec
	v.positions[ak] = position{Node: 0, Index: idx}
	v.oramIndex[string(keyScalar.Bytes())] = ak
	v.rootHash = v.computeRootHash()
	return nil
}

func (v *PVORM) findIdentityStashSlot() int {
	for i, sec := range v.stashSecrets {
		if sec.isIdentity() {
			return i
		}
	}
	return -1
}

// computeRootHash folds the tree and stash's current ciphertexts into a
// single digest, canonicalized over normalized point encodings per
// spec.md's normalizePoints requirement so two observers holding the same
// logical state always agree bit-for-bit.
func (v *PVORM) computeRootHash() [32]byte {
	return hashState(v.tree, v.stash)
}

// hashState is computeRootHash's free-standing form, shared with the
// verifier so an observer can recompute the same digest from replicated
// public state without needing a live *PVORM.
func hashState(tree *types.PVORMTree, stash types.PVORMStash) [32]byte {
	h := sha256.New()
	for id := types.NodeID(1); id < types.NodeID(1)<<uint(tree.Height+1); id++ {
		b, ok := tree.Buckets[id]
		if !ok {
			continue
		}
		var idBytes [4]byte
		idBytes[0] = byte(id >> 24)
		idBytes[1] = byte(id >> 16)
		idBytes[2] = byte(id >> 8)
		idBytes[3] = byte(id)
		h.Write(idBytes[:])
		for _, slot := range b {
			h.Write(slot.KeyCiphertext.Bytes())
			h.Write(slot.BalanceCiphertext.Bytes())
		}
	}
	for _, slot := range stash.Slots {
		h.Write(slot.KeyCiphertext.Bytes())
		h.Write(slot.BalanceCiphertext.Bytes())
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// deterministicLeaf derives the leaf this update's eviction walk targets
// from the prior root hash and this PVORM's own update counter (seq),
// both of which every observer replaying the same updates also holds.
// The ledger's sequence number is not an input.
func (v *PVORM) deterministicLeaf() uint32 {
	return deterministicLeaf(v.rootHash, v.seq, v.tree.Height)
}

func deterministicLeaf(rootHash [32]byte, seq uint64, height int) uint32 {
	h := sha256.New()
	h.Write(rootHash[:])
	var seqBytes [8]byte
	for i := 0; i < 8; i++ {
		seqBytes[7-i] = byte(seq >> uint(8*i))
	}
	h.Write(seqBytes[:])
	digest := h.Sum(nil)
	v := uint32(digest[0])<<24 | uint32(digest[1])<<16 | uint32(digest[2])<<8 | uint32(digest[3])
	return v % (uint32(1) << uint(height))
}

// ancestorAtDepth returns the node ID on the path to leaf that sits at
// the given depth (0 = root), used to decide whether a stash item's
// assigned leaf routes it through a given tree node during eviction.
func ancestorAtDepth(tree *types.PVORMTree, leaf uint32, depth int) types.NodeID {
	leafID := tree.LeafID(leaf)
	return leafID >> uint(tree.Height-depth)
}
