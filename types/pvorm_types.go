// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package types

import "github.com/solidus-project/solidus/ec"

// PVORMSlot is one (key, balance) cell of a bank's PVORM. Both fields are
// ElGamal ciphertexts under the owning bank's key; a slot not currently
// assigned to an account is an encryption of the identity placeholder, so
// it is indistinguishable from a live slot to anyone without the bank key.
type PVORMSlot struct {
	KeyCiphertext     ec.Ciphertext
	BalanceCiphertext ec.Ciphertext
}

// PVORMBucket is a fixed-capacity, ordered collection of slots — one tree
// node. Its capacity is the protocol constant Z.
type PVORMBucket []PVORMSlot

// NodeID addresses one bucket in the arena-indexed tree: a 1-based index
// in the usual complete-binary-tree layout (root = 1, children of i are
// 2i and 2i+1), chosen (per the Design Notes) over an in-memory pointer
// tree so eviction walks and diffs are simple slices/maps.
type NodeID uint32

// PVORMTree is a complete binary tree of height H, represented as an
// arena: nodeID -> bucket. Only the root through the leaves that have
// been touched need exist in the map; untouched nodes are treated as all
// identity-placeholder slots.
type PVORMTree struct {
	Height  int
	Buckets map[NodeID]PVORMBucket
}

// LeafCount is the number of leaves in a tree of this height.
func (t *PVORMTree) LeafCount() uint32 {
	return uint32(1) << uint(t.Height)
}

// RootID is the arena index of the tree's root.
func (t *PVORMTree) RootID() NodeID { return 1 }

// LeafID returns the arena index of the leaf-th leaf (0-indexed).
func (t *PVORMTree) LeafID(leaf uint32) NodeID {
	return NodeID(t.LeafCount() + leaf)
}

// PathToLeaf returns the node IDs from root to the given leaf, inclusive,
// the walk a Circuit-ORAM-style eviction sinks slots along.
func (t *PVORMTree) PathToLeaf(leaf uint32) []NodeID {
	id := t.LeafID(leaf)
	path := make([]NodeID, 0, t.Height+1)
	for id >= t.RootID() {
		path = append(path, id)
		if id == t.RootID() {
			break
		}
		id /= 2
	}
	// reverse into root-to-leaf order
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// Bucket fetches a node's bucket, synthesizing an all-identity bucket of
// the given width if the node has never been written.
func (t *PVORMTree) Bucket(id NodeID, width int, identity PVORMSlot) PVORMBucket {
	if b, ok := t.Buckets[id]; ok {
		return b
	}
	b := make(PVORMBucket, width)
	for i := range b {
		b[i] = identity
	}
	return b
}

// PVORMStash is the bounded overflow buffer of slots not yet sunk into
// the tree. Capacity is the protocol constant Sigma.
type PVORMStash struct {
	Capacity int
	Slots    []PVORMSlot
}

// Clone deep-copies the stash's slot slice so callers can mutate a
// working copy without aliasing committed state.
func (s PVORMStash) Clone() PVORMStash {
	out := make([]PVORMSlot, len(s.Slots))
	copy(out, s.Slots)
	return PVORMStash{Capacity: s.Capacity, Slots: out}
}

// Clone deep-copies a tree's bucket map.
func (t *PVORMTree) Clone() *PVORMTree {
	out := make(map[NodeID]PVORMBucket, len(t.Buckets))
	for id, b := range t.Buckets {
		cp := make(PVORMBucket, len(b))
		copy(cp, b)
		out[id] = cp
	}
	return &PVORMTree{Height: t.Height, Buckets: out}
}
