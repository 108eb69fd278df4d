// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

// Package types holds the protocol's wire-level data model: accounts,
// PVORM slots/buckets/trees/stashes, and the transaction objects that
// travel between banks and the ledger (layers L3's data shapes and L4).
package types

import "github.com/solidus-project/solidus/ec"

// Account is a bank's record of one of its own users: their identity
// point (which doubles as their PVORM key) and the bank that holds them.
// The balance itself is never stored here — it only exists, encrypted,
// inside the PVORM. The last accepted request nonce for anti-replay
// (spec.md's Account tuple also names this) lives entirely in
// repo.NonceStore, not here: Account values are constructed ad hoc
// throughout bank/ wherever only an identity is needed, and a nonce
// carried on every one of those would either go stale immediately or
// require a datastore round trip just to build a lookup key.
type Account struct {
	PublicKey ec.Point
	BankKey   ec.Point
}

// AccountKey is the map key used wherever accounts are indexed by
// identity, since ec.Point is not itself comparable with ==.
type AccountKey string

// Key returns the comparable map key for this account's identity.
func (a Account) Key() AccountKey {
	return AccountKey(a.PublicKey.Compress())
}

// OramKey derives the PVORM key-ciphertext plaintext for this account: a
// hash of its public key folded into the group, per spec.md's "the
// plaintext of K is an account's ORAM identifier (a hash of its public
// key into G)".
func (a Account) OramKey() ec.Scalar {
	return ec.ScalarFromBytes(ec.HashToScalarBytes(a.PublicKey.Compress()))
}
