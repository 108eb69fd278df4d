// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package pvorm

import (
	"github.com/solidus-project/solidus/ec"
	"github.com/solidus-project/solidus/params"
	"github.com/solidus-project/solidus/types"

	solidus "github.com/solidus-project/solidus"
)

// slotAt fetches the (key, balance) ciphertext pair a SlotProof references,
// synthesizing the identity placeholder for a tree bucket that has never
// been written, exactly as the prover's own Bucket lookups do.
func slotAt(pk ec.Point, tree *types.PVORMTree, stash types.PVORMStash, width int, node types.NodeID, index int) (ec.Ciphertext, ec.Ciphertext, error) {
	if node == 0 {
		if index < 0 || index >= len(stash.Slots) {
			return ec.Ciphertext{}, ec.Ciphertext{}, solidus.NewError(solidus.InvalidProof, "stash index %d out of range", index)
		}
		s := stash.Slots[index]
		return s.KeyCiphertext, s.BalanceCiphertext, nil
	}
	identity := identitySlotFor(pk)
	b := tree.Bucket(node, width, identity)
	if index < 0 || index >= len(b) {
		return ec.Ciphertext{}, ec.Ciphertext{}, solidus.NewError(solidus.InvalidProof, "bucket %d index %d out of range", node, index)
	}
	s := b[index]
	return s.KeyCiphertext, s.BalanceCiphertext, nil
}

// slotPos identifies one physical (tree bucket or stash) position, used to
// track which positions an update's SlotProofs actually cover.
type slotPos struct {
	Node  types.NodeID
	Index int
}

// Verify checks a PVORMUpdate against the prior replicated public state
// without any secret witness: it is exactly the check spec.md's
// verify(prev, update) -> bool names, implemented as an error so callers
// get the reason a tampered update was rejected for free.
//
// bankPub is the owning bank's PVORM key (public, advertised alongside its
// identity); p supplies the tree height and bucket width both sides must
// already agree on. committedKeyCiphertext is the account-binding
// commitment the update's one mutated key slot must decrypt-equal (spec.md
// invariant (iii)): the sender's canonical OramKey ciphertext for a debit,
// or the transaction header's DestAccountCiphertext for a credit.
func Verify(p *params.Params, bankPub ec.Point, prior PublicState, update *types.PVORMUpdate, committedKeyCiphertext ec.Ciphertext) error {
	if update.PosteriorTree == nil {
		return solidus.NewError(solidus.InvalidProof, "update carries no posterior tree")
	}
	if update.PosteriorTree.Height != prior.Tree.Height {
		return solidus.NewError(solidus.InvalidProof, "posterior tree height %d does not match prior height %d", update.PosteriorTree.Height, prior.Tree.Height)
	}
	if update.PosteriorStash.Capacity != prior.Stash.Capacity {
		return solidus.NewError(solidus.InvalidProof, "posterior stash capacity %d does not match prior capacity %d", update.PosteriorStash.Capacity, prior.Stash.Capacity)
	}
	if update.PriorRootHash != prior.RootHash {
		return solidus.NewError(solidus.InvalidProof, "update does not chain from the claimed prior root hash")
	}
	wantLeaf := deterministicLeaf(prior.RootHash, prior.Seq, prior.Tree.Height)
	if update.LeafIndex != wantLeaf {
		return solidus.NewError(solidus.InvalidProof, "eviction leaf %d does not match the deterministic leaf %d", update.LeafIndex, wantLeaf)
	}

	var deltaSlots int
	var deltaKeyCT ec.Ciphertext
	covered := map[slotPos]bool{}
	for _, sp := range update.SlotProofs {
		pos := slotPos{Node: sp.Node, Index: sp.Index}
		if covered[pos] {
			return solidus.NewError(solidus.InvalidProof, "duplicate slot proof at node %d index %d", sp.Node, sp.Index)
		}
		covered[pos] = true

		priorKeyCT, priorBalCT, err := slotAt(bankPub, prior.Tree, prior.Stash, p.BucketSize, sp.Node, sp.Index)
		if err != nil {
			return err
		}
		newKeyCT, newBalCT, err := slotAt(bankPub, update.PosteriorTree, update.PosteriorStash, p.BucketSize, sp.Node, sp.Index)
		if err != nil {
			return err
		}

		switch sp.Role {
		case types.SlotUnchanged:
			if !verifyUnchanged(bankPub, priorKeyCT, newKeyCT, sp.KeyProof) {
				return solidus.NewError(solidus.InvalidProof, "unchanged key proof failed at node %d index %d", sp.Node, sp.Index)
			}
			if !verifyUnchanged(bankPub, priorBalCT, newBalCT, sp.BalanceProof) {
				return solidus.NewError(solidus.InvalidProof, "unchanged balance proof failed at node %d index %d", sp.Node, sp.Index)
			}

		case types.SlotVacated:
			if !verifyVacate(bankPub, priorKeyCT, newKeyCT, sp.KeyProof) {
				return solidus.NewError(solidus.InvalidProof, "vacate key proof failed at node %d index %d", sp.Node, sp.Index)
			}
			if !verifyVacate(bankPub, priorBalCT, newBalCT, sp.BalanceProof) {
				return solidus.NewError(solidus.InvalidProof, "vacate balance proof failed at node %d index %d", sp.Node, sp.Index)
			}

		case types.SlotMoved:
			originKeyCT, originBalCT, err := slotAt(bankPub, prior.Tree, prior.Stash, p.BucketSize, sp.OriginNode, sp.OriginIndex)
			if err != nil {
				return err
			}
			if !verifyMoved(bankPub, priorKeyCT, originKeyCT, newKeyCT, sp.KeyProof) {
				return solidus.NewError(solidus.InvalidProof, "moved key proof failed at node %d index %d", sp.Node, sp.Index)
			}
			if !verifyMoved(bankPub, priorBalCT, originBalCT, newBalCT, sp.BalanceProof) {
				return solidus.NewError(solidus.InvalidProof, "moved balance proof failed at node %d index %d", sp.Node, sp.Index)
			}

		case types.SlotMovedWithDelta:
			originKeyCT, originBalCT, err := slotAt(bankPub, prior.Tree, prior.Stash, p.BucketSize, sp.OriginNode, sp.OriginIndex)
			if err != nil {
				return err
			}
			if !verifyMoved(bankPub, priorKeyCT, originKeyCT, newKeyCT, sp.KeyProof) {
				return solidus.NewError(solidus.InvalidProof, "moved-with-delta key proof failed at node %d index %d", sp.Node, sp.Index)
			}
			if !verifyMovedWithDelta(bankPub, priorBalCT, originBalCT, update.Delta, newBalCT, sp.BalanceProof) {
				return solidus.NewError(solidus.InvalidProof, "moved-with-delta balance proof failed at node %d index %d", sp.Node, sp.Index)
			}
			if !update.RangeProof.Verify(bankPub, newBalCT) {
				return solidus.NewError(solidus.InvalidProof, "range proof does not cover the posterior balance at node %d index %d", sp.Node, sp.Index)
			}
			deltaSlots++
			deltaKeyCT = newKeyCT

		default:
			return solidus.NewError(solidus.InvalidProof, "unknown slot role %d", sp.Role)
		}
	}

	if deltaSlots != 1 {
		return solidus.NewError(solidus.InvalidProof, "update must mutate exactly one balance slot, found %d", deltaSlots)
	}

	if !update.AccountBindingProof.Verify(bankPub, deltaKeyCT, committedKeyCiphertext) {
		return solidus.NewError(solidus.InvalidProof, "mutated slot's key plaintext does not match the committed account key")
	}

	if err := checkExhaustiveCoverage(p, bankPub, prior, update, covered); err != nil {
		return err
	}

	return nil
}

// checkExhaustiveCoverage rejects any update that leaves a tree or stash
// slot's posterior ciphertext unexplained: every position the SlotProofs
// don't individually cover must be byte-identical between prior and
// posterior state. Without this, a bank (or a corrupted replica feed) could
// plant an arbitrary extra or modified bucket entry at any node no
// SlotProof references, and it would be adopted into replicated state
// undetected — spec.md invariant (i) requires every other slot to be
// nothing more than a re-encryption of what it already held.
func checkExhaustiveCoverage(p *params.Params, bankPub ec.Point, prior PublicState, update *types.PVORMUpdate, covered map[slotPos]bool) error {
	identity := identitySlotFor(bankPub)

	nodes := map[types.NodeID]bool{}
	for id := range prior.Tree.Buckets {
		nodes[id] = true
	}
	for id := range update.PosteriorTree.Buckets {
		nodes[id] = true
	}
	for pos := range covered {
		if pos.Node != 0 {
			nodes[pos.Node] = true
		}
	}
	for _, id := range prior.Tree.PathToLeaf(update.LeafIndex) {
		nodes[id] = true
	}

	for id := range nodes {
		priorBucket := prior.Tree.Bucket(id, p.BucketSize, identity)
		postBucket := update.PosteriorTree.Bucket(id, p.BucketSize, identity)
		for idx := 0; idx < p.BucketSize; idx++ {
			if covered[slotPos{Node: id, Index: idx}] {
				continue
			}
			if !priorBucket[idx].KeyCiphertext.Equal(postBucket[idx].KeyCiphertext) ||
				!priorBucket[idx].BalanceCiphertext.Equal(postBucket[idx].BalanceCiphertext) {
				return solidus.NewError(solidus.InvalidProof, "slot at node %d index %d changed with no accompanying proof", id, idx)
			}
		}
	}

	if len(update.PosteriorStash.Slots) != len(prior.Stash.Slots) {
		return solidus.NewError(solidus.InvalidProof, "posterior stash slot count %d does not match prior count %d", len(update.PosteriorStash.Slots), len(prior.Stash.Slots))
	}
	for idx := range prior.Stash.Slots {
		if covered[slotPos{Node: 0, Index: idx}] {
			continue
		}
		priorSlot := prior.Stash.Slots[idx]
		postSlot := update.PosteriorStash.Slots[idx]
		if !priorSlot.KeyCiphertext.Equal(postSlot.KeyCiphertext) || !priorSlot.BalanceCiphertext.Equal(postSlot.BalanceCiphertext) {
			return solidus.NewError(solidus.InvalidProof, "stash slot %d changed with no accompanying proof", idx)
		}
	}

	return nil
}

// Replica is an observer's read-only view of another bank's PVORM: no
// secret key, no witnesses, just the last public state that has passed
// Verify. It is the type ApplyVerified (spec.md's applyVerified(update))
// targets.
type Replica struct {
	BankPub ec.Point
	Params  *params.Params
	State   PublicState
}

// NewReplica seeds a replica at a bank's genesis public state, before any
// ledger-driven update has been verified against it.
func NewReplica(p *params.Params, bankPub ec.Point, genesis PublicState) *Replica {
	return &Replica{BankPub: bankPub, Params: p, State: genesis}
}

// ApplyVerified checks update against the replica's current state and, if
// it verifies, adopts the update's posterior state as current. On failure
// the replica is left untouched, matching spec.md's "verify must not
// depend on evaluation order" requirement that a rejected update never
// mutates replicated state. committedKeyCiphertext is forwarded to Verify
// unchanged; see its doc comment.
func (r *Replica) ApplyVerified(update *types.PVORMUpdate, committedKeyCiphertext ec.Ciphertext) error {
	if err := Verify(r.Params, r.BankPub, r.State, update, committedKeyCiphertext); err != nil {
		log.Warnw("rejected peer PVORM update", "bank", r.BankPub.Compress(), "error", err)
		return err
	}
	r.State = PublicState{
		Tree:     update.PosteriorTree,
		Stash:    update.PosteriorStash,
		RootHash: hashState(update.PosteriorTree, update.PosteriorStash),
		Seq:      r.State.Seq + 1,
	}
	return nil
}
