// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package repo

import (
	"context"
	"encoding/binary"

	"github.com/ipfs/go-datastore"

	solidus "github.com/solidus-project/solidus"
)

// NonceStore persists the last-accepted request nonce per account,
// closing the Design Notes' open question: nonces must be strictly
// increasing and must survive a bank restart, not just live in memory.
type NonceStore struct {
	ds     Datastore
	prefix datastore.Key
}

// NewNonceStore wraps ds for nonce persistence under a fixed key prefix.
func NewNonceStore(ds Datastore) *NonceStore {
	return &NonceStore{ds: ds, prefix: datastore.NewKey("/solidus/nonce")}
}

func (s *NonceStore) key(accountKey []byte) datastore.Key {
	return s.prefix.ChildString(string(accountKey))
}

// Last returns the last-seen nonce for an account, or 0 if none has been
// recorded yet.
func (s *NonceStore) Last(ctx context.Context, accountKey []byte) (uint64, error) {
	v, err := s.ds.Get(ctx, s.key(accountKey))
	if err == datastore.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(v) != 8 {
		return 0, solidus.NewError(solidus.MalformedEncoding, "corrupt nonce record")
	}
	return binary.BigEndian.Uint64(v), nil
}

// Accept records nonce as the new last-seen value for accountKey if and
// only if it is strictly greater than the stored value, returning
// ReplayedNonce otherwise. This is the single enforcement point for the
// protocol's anti-replay invariant.
func (s *NonceStore) Accept(ctx context.Context, accountKey []byte, nonce uint64) error {
	last, err := s.Last(ctx, accountKey)
	if err != nil {
		return err
	}
	if nonce <= last {
		return solidus.NewError(solidus.ReplayedNonce, "nonce %d is not greater than last-seen %d", nonce, last)
	}
	var v [8]byte
	binary.BigEndian.PutUint64(v[:], nonce)
	return s.ds.Put(ctx, s.key(accountKey), v[:])
}
