// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package types

import (
	"crypto/sha256"

	"github.com/solidus-project/solidus/ec"
	"github.com/solidus-project/solidus/zk"

	solidus "github.com/solidus-project/solidus"
)

// TransactionRequest is the user-authorized intent to move value from one
// account to another, signed by the sender's account key. Every field
// named here is covered by the signature.
type TransactionRequest struct {
	SourceBankKey          ec.Point
	DestBankKey            ec.Point
	DestAccountCiphertext  ec.Ciphertext
	ValueCiphertext        ec.Ciphertext
	Timestamp              uint64
	SenderAccountPublicKey ec.Point
	Signature              []byte
}

// SigningDigest hashes every field the signature must cover.
func (r *TransactionRequest) SigningDigest() [32]byte {
	h := sha256.New()
	h.Write(r.SourceBankKey.Compress())
	h.Write(r.DestBankKey.Compress())
	h.Write(r.DestAccountCiphertext.Bytes())
	h.Write(r.ValueCiphertext.Bytes())
	var ts [8]byte
	putUint64(ts[:], r.Timestamp)
	h.Write(ts[:])
	h.Write(r.SenderAccountPublicKey.Compress())
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// ID is the transaction identifier ledger entries are tagged with: the
// hash of the request, which is immutable once the header is built.
func (r *TransactionRequest) ID() [32]byte {
	return r.SigningDigest()
}

// VerifySignature checks the request's signature against its own declared
// sender key.
func (r *TransactionRequest) VerifySignature() error {
	ok, err := ec.Verify(r.SenderAccountPublicKey, r.SigningDigest(), r.Signature)
	if err != nil {
		return solidus.Wrap(solidus.InvalidSignature, err, "parsing request signature")
	}
	if !ok {
		return solidus.NewError(solidus.InvalidSignature, "transaction request signature does not verify")
	}
	return nil
}

// TransactionHeader is the sender bank's public introduction of a
// transaction: the request plus everything needed to tie the sender's
// debit to the receiver's credit without revealing the value.
type TransactionHeader struct {
	Request TransactionRequest

	// RangeProof attests the original ValueCiphertext encodes a value in
	// [0, B].
	RangeProof zk.MaxwellRangeProof

	// SenderRerandomizedValue is the same plaintext as ValueCiphertext,
	// re-encrypted with fresh randomness under the source bank key.
	SenderRerandomizedValue ec.Ciphertext

	// ReceiverValue encrypts the same plaintext under the destination
	// bank key.
	ReceiverValue ec.Ciphertext

	// RerandomizeProof links ValueCiphertext to SenderRerandomizedValue
	// (same key, same plaintext).
	RerandomizeProof zk.PlaintextEqProof

	// CrossKeyProof links SenderRerandomizedValue to ReceiverValue (same
	// plaintext, different keys).
	CrossKeyProof zk.PlaintextEqDisKeyProof
}

// VerifyProofs checks the request's signature and every proof the header
// carries, in the order a ledger observer must apply them.
func (h *TransactionHeader) VerifyProofs() error {
	if err := h.Request.VerifySignature(); err != nil {
		return err
	}
	if !h.RangeProof.Verify(h.Request.SourceBankKey, h.Request.ValueCiphertext) {
		return solidus.NewError(solidus.InvalidProof, "transaction value range proof failed")
	}
	if !h.RerandomizeProof.Verify(h.Request.SourceBankKey, h.Request.ValueCiphertext, h.SenderRerandomizedValue) {
		return solidus.NewError(solidus.InvalidProof, "sender rerandomize proof failed")
	}
	if !h.CrossKeyProof.Verify(h.Request.SourceBankKey, h.Request.DestBankKey, h.SenderRerandomizedValue, h.ReceiverValue) {
		return solidus.NewError(solidus.InvalidProof, "cross-key plaintext equality proof failed")
	}
	return nil
}

// SlotRole tags which disjunction a SlotProof's OrProof was built from, so
// a verifier lacking the bank's secret key knows which two public
// ciphertexts to re-derive the statement from instead of having to guess
// the prover's intent from the proof bytes alone.
type SlotRole int

const (
	// SlotUnchanged: posterior re-encrypts whatever was already at this
	// position. Needs only this position's prior and posterior ciphertext.
	SlotUnchanged SlotRole = iota
	// SlotVacated: posterior is either unchanged (never true in practice
	// but kept as the proof's other branch) or now holds the identity
	// placeholder. Needs only this position's prior and posterior
	// ciphertext.
	SlotVacated
	// SlotMoved: posterior is either this position's own prior value
	// (unchanged) or the value that lived at Origin in the prior state.
	// Needs this position's prior/posterior ciphertext plus Origin's
	// prior ciphertext.
	SlotMoved
	// SlotMovedWithDelta: the balance side of a debit/credit. KeyProof is
	// still verified as plain SlotMoved (the account identifier itself
	// never shifts); BalanceProof is verified against Origin's prior
	// plaintext shifted by the update's public delta ciphertext.
	SlotMovedWithDelta
)

// SlotProof is the proof attached to one physical slot position (a tree
// node's bucket index, or a stash index) touched by an update: an
// OrProof, for both the key and balance ciphertext, that the posterior
// content is either a re-encryption of whatever occupied that position
// before, or a re-encryption of the one slot that relocated this update.
// Role and Origin are public metadata, not secret: they tell a verifier
// which statement to rebuild from the prior/posterior public state, never
// which branch the prover actually took.
type SlotProof struct {
	Node  NodeID // 0 for a stash position
	Index int

	Role        SlotRole
	OriginNode  NodeID // meaningful only for SlotMoved/SlotMovedWithDelta
	OriginIndex int

	KeyProof     zk.OrProof
	BalanceProof zk.OrProof
}

// PVORMUpdate is the public artifact one bank posts after applying a
// header to its PVORM: the state it claims to have moved to, the leaf the
// eviction walked, and the proofs that justify the move. Delta is the
// header's own sender/receiver value ciphertext, carried here so a
// verifier can check the SlotMovedWithDelta balance proof without access
// to the header that produced it.
//
// AccountBindingProof ties the update's one mutated key slot to the
// committed account ciphertext a verifier supplies out of band (the
// sender's canonical OramKey ciphertext, or the header's own
// DestAccountCiphertext for a receiver), proving spec.md invariant (iii):
// the modified slot's key plaintext equals the committed account key.
type PVORMUpdate struct {
	PriorRootHash  [32]byte
	PosteriorTree  *PVORMTree
	PosteriorStash PVORMStash
	LeafIndex      uint32
	Delta          ec.Ciphertext
	SlotProofs     []SlotProof
	RangeProof     zk.MaxwellRangeProof

	AccountBindingProof zk.DecryptEqProof
}

// Transaction bundles a header with both banks' updates. Settlement on
// the ledger requires both updates to verify.
type Transaction struct {
	Header         TransactionHeader
	SenderUpdate   PVORMUpdate
	ReceiverUpdate PVORMUpdate
}

// SettledTransaction is a Transaction plus the ledger sequence number at
// which all banks agree it became visible.
type SettledTransaction struct {
	Transaction Transaction
	SeqNo       uint64
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[7-i] = byte(v)
		v >>= 8
	}
}

func getUint64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(b[i])
	}
	return v
}
