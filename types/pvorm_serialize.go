// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package types

import (
	"encoding/binary"

	"github.com/solidus-project/solidus/ec"
	"github.com/solidus-project/solidus/zk"

	solidus "github.com/solidus-project/solidus"
)

// Bytes encodes a PVORMSlot as its two ciphertexts, each length-prefixed.
func (s PVORMSlot) Bytes() []byte {
	var out []byte
	out = writeLP(out, s.KeyCiphertext.Bytes())
	out = writeLP(out, s.BalanceCiphertext.Bytes())
	return out
}

// PVORMSlotFromBytes decodes a PVORMSlot and returns what remains of b.
func PVORMSlotFromBytes(b []byte) (PVORMSlot, []byte, error) {
	var s PVORMSlot
	field, rest, err := readLP(b)
	if err != nil {
		return PVORMSlot{}, nil, err
	}
	if s.KeyCiphertext, err = ec.CiphertextFromBytes(field); err != nil {
		return PVORMSlot{}, nil, err
	}
	if field, rest, err = readLP(rest); err != nil {
		return PVORMSlot{}, nil, err
	}
	if s.BalanceCiphertext, err = ec.CiphertextFromBytes(field); err != nil {
		return PVORMSlot{}, nil, err
	}
	return s, rest, nil
}

func putUint32(out []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(out, b[:]...)
}

func getUint32(b []byte) (uint32, []byte, error) {
	if len(b) < 4 {
		return 0, nil, solidus.NewError(solidus.MalformedEncoding, "truncated uint32 field")
	}
	return binary.BigEndian.Uint32(b), b[4:], nil
}

// Bytes encodes a PVORMBucket: a slot count followed by each slot in turn.
func (b PVORMBucket) Bytes() []byte {
	out := putUint32(nil, uint32(len(b)))
	for _, s := range b {
		out = append(out, s.Bytes()...)
	}
	return out
}

// PVORMBucketFromBytes decodes a PVORMBucket and returns what remains of b.
func PVORMBucketFromBytes(b []byte) (PVORMBucket, []byte, error) {
	count, rest, err := getUint32(b)
	if err != nil {
		return nil, nil, err
	}
	bucket := make(PVORMBucket, count)
	for i := range bucket {
		var slot PVORMSlot
		if slot, rest, err = PVORMSlotFromBytes(rest); err != nil {
			return nil, nil, err
		}
		bucket[i] = slot
	}
	return bucket, rest, nil
}

// Bytes encodes a PVORMTree: its height, followed by a count of populated
// buckets, each preceded by its node ID.
func (t *PVORMTree) Bytes() []byte {
	out := putUint32(nil, uint32(t.Height))
	out = putUint32(out, uint32(len(t.Buckets)))
	for id, bucket := range t.Buckets {
		out = putUint32(out, uint32(id))
		out = append(out, bucket.Bytes()...)
	}
	return out
}

// PVORMTreeFromBytes decodes a PVORMTree and returns what remains of b.
func PVORMTreeFromBytes(b []byte) (*PVORMTree, []byte, error) {
	height, rest, err := getUint32(b)
	if err != nil {
		return nil, nil, err
	}
	count, rest2, err := getUint32(rest)
	if err != nil {
		return nil, nil, err
	}
	rest = rest2
	t := &PVORMTree{Height: int(height), Buckets: make(map[NodeID]PVORMBucket, count)}
	for i := uint32(0); i < count; i++ {
		var id uint32
		if id, rest, err = getUint32(rest); err != nil {
			return nil, nil, err
		}
		var bucket PVORMBucket
		if bucket, rest, err = PVORMBucketFromBytes(rest); err != nil {
			return nil, nil, err
		}
		t.Buckets[NodeID(id)] = bucket
	}
	return t, rest, nil
}

// Bytes encodes a PVORMStash: its capacity followed by every slot,
// occupied or not.
func (s PVORMStash) Bytes() []byte {
	out := putUint32(nil, uint32(s.Capacity))
	out = putUint32(out, uint32(len(s.Slots)))
	for _, slot := range s.Slots {
		out = append(out, slot.Bytes()...)
	}
	return out
}

// PVORMStashFromBytes decodes a PVORMStash and returns what remains of b.
func PVORMStashFromBytes(b []byte) (PVORMStash, []byte, error) {
	capacity, rest, err := getUint32(b)
	if err != nil {
		return PVORMStash{}, nil, err
	}
	count, rest2, err := getUint32(rest)
	if err != nil {
		return PVORMStash{}, nil, err
	}
	rest = rest2
	slots := make([]PVORMSlot, count)
	for i := range slots {
		var slot PVORMSlot
		if slot, rest, err = PVORMSlotFromBytes(rest); err != nil {
			return PVORMStash{}, nil, err
		}
		slots[i] = slot
	}
	return PVORMStash{Capacity: int(capacity), Slots: slots}, rest, nil
}

// Bytes encodes a SlotProof: its position, role, origin, and both proofs.
func (sp SlotProof) Bytes() []byte {
	out := putUint32(nil, uint32(sp.Node))
	out = putUint32(out, uint32(sp.Index))
	out = putUint32(out, uint32(sp.Role))
	out = putUint32(out, uint32(sp.OriginNode))
	out = putUint32(out, uint32(sp.OriginIndex))
	out = writeLP(out, sp.KeyProof.Bytes())
	out = writeLP(out, sp.BalanceProof.Bytes())
	return out
}

// SlotProofFromBytes decodes a SlotProof and returns what remains of b.
func SlotProofFromBytes(b []byte) (SlotProof, []byte, error) {
	var sp SlotProof
	var node, index, role, originNode, originIndex uint32
	var err error
	if node, b, err = getUint32(b); err != nil {
		return SlotProof{}, nil, err
	}
	if index, b, err = getUint32(b); err != nil {
		return SlotProof{}, nil, err
	}
	if role, b, err = getUint32(b); err != nil {
		return SlotProof{}, nil, err
	}
	if originNode, b, err = getUint32(b); err != nil {
		return SlotProof{}, nil, err
	}
	if originIndex, b, err = getUint32(b); err != nil {
		return SlotProof{}, nil, err
	}
	sp.Node = NodeID(node)
	sp.Index = int(index)
	sp.Role = SlotRole(role)
	sp.OriginNode = NodeID(originNode)
	sp.OriginIndex = int(originIndex)

	var field, rest []byte
	if field, rest, err = readLP(b); err != nil {
		return SlotProof{}, nil, err
	}
	if sp.KeyProof, _, err = zk.OrProofFromBytes(field); err != nil {
		return SlotProof{}, nil, err
	}
	if field, rest, err = readLP(rest); err != nil {
		return SlotProof{}, nil, err
	}
	if sp.BalanceProof, _, err = zk.OrProofFromBytes(field); err != nil {
		return SlotProof{}, nil, err
	}
	return sp, rest, nil
}

// Bytes encodes a PVORMUpdate per spec.md's external interface: priorRootHash
// ‖ posteriorPublicState ‖ leafIndex ‖ vector(OrProof) ‖ MaxwellRangeProof,
// with the header's own delta ciphertext folded in so a verifier never
// needs the originating TransactionHeader to check the moved-with-delta
// balance proof.
func (u *PVORMUpdate) Bytes() []byte {
	var out []byte
	out = append(out, u.PriorRootHash[:]...)
	out = writeLP(out, u.PosteriorTree.Bytes())
	out = writeLP(out, u.PosteriorStash.Bytes())
	out = putUint32(out, u.LeafIndex)
	out = writeLP(out, u.Delta.Bytes())
	out = putUint32(out, uint32(len(u.SlotProofs)))
	for _, sp := range u.SlotProofs {
		out = writeLP(out, sp.Bytes())
	}
	out = writeLP(out, u.RangeProof.Bytes())
	out = writeLP(out, u.AccountBindingProof.Bytes())
	return out
}

// PVORMUpdateFromBytes decodes a PVORMUpdate and returns what remains of b.
func PVORMUpdateFromBytes(b []byte) (*PVORMUpdate, []byte, error) {
	if len(b) < 32 {
		return nil, nil, solidus.NewError(solidus.MalformedEncoding, "truncated PVORMUpdate root hash")
	}
	u := &PVORMUpdate{}
	copy(u.PriorRootHash[:], b[:32])
	rest := b[32:]

	var field []byte
	var err error
	if field, rest, err = readLP(rest); err != nil {
		return nil, nil, err
	}
	if u.PosteriorTree, _, err = PVORMTreeFromBytes(field); err != nil {
		return nil, nil, err
	}

	if field, rest, err = readLP(rest); err != nil {
		return nil, nil, err
	}
	if u.PosteriorStash, _, err = PVORMStashFromBytes(field); err != nil {
		return nil, nil, err
	}

	if u.LeafIndex, rest, err = getUint32(rest); err != nil {
		return nil, nil, err
	}

	if field, rest, err = readLP(rest); err != nil {
		return nil, nil, err
	}
	if u.Delta, err = ec.CiphertextFromBytes(field); err != nil {
		return nil, nil, err
	}

	var count uint32
	if count, rest, err = getUint32(rest); err != nil {
		return nil, nil, err
	}
	u.SlotProofs = make([]SlotProof, count)
	for i := range u.SlotProofs {
		if field, rest, err = readLP(rest); err != nil {
			return nil, nil, err
		}
		var sp SlotProof
		if sp, _, err = SlotProofFromBytes(field); err != nil {
			return nil, nil, err
		}
		u.SlotProofs[i] = sp
	}

	if field, rest, err = readLP(rest); err != nil {
		return nil, nil, err
	}
	if u.RangeProof, _, err = zk.MaxwellRangeProofFromBytes(field); err != nil {
		return nil, nil, err
	}

	if field, rest, err = readLP(rest); err != nil {
		return nil, nil, err
	}
	if u.AccountBindingProof, _, err = zk.DecryptEqProofFromBytes(field); err != nil {
		return nil, nil, err
	}

	return u, rest, nil
}

// Bytes encodes a Transaction: header, sender update, receiver update.
func (t *Transaction) Bytes() []byte {
	var out []byte
	out = writeLP(out, t.Header.Bytes())
	out = writeLP(out, t.SenderUpdate.Bytes())
	out = writeLP(out, t.ReceiverUpdate.Bytes())
	return out
}

// TransactionFromBytes decodes a Transaction encoded by Bytes.
func TransactionFromBytes(b []byte) (*Transaction, error) {
	var t Transaction
	field, rest, err := readLP(b)
	if err != nil {
		return nil, err
	}
	header, err := TransactionHeaderFromBytes(field)
	if err != nil {
		return nil, err
	}
	t.Header = *header

	if field, rest, err = readLP(rest); err != nil {
		return nil, err
	}
	senderUpdate, _, err := PVORMUpdateFromBytes(field)
	if err != nil {
		return nil, err
	}
	t.SenderUpdate = *senderUpdate

	if field, _, err = readLP(rest); err != nil {
		return nil, err
	}
	receiverUpdate, _, err := PVORMUpdateFromBytes(field)
	if err != nil {
		return nil, err
	}
	t.ReceiverUpdate = *receiverUpdate

	return &t, nil
}
