// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

// Package repo is the persistence layer: a thin wrapper around
// github.com/ipfs/go-datastore (badger-backed in production, an
// in-memory map in tests), following iskiy-ilxd's repo.Datastore /
// repo/mock convention. It backs the one piece of state the protocol
// requires to survive a restart: each account's last-seen request nonce.
package repo

import (
	"github.com/ipfs/go-datastore"
	badger "github.com/ipfs/go-ds-badger"
)

// Datastore is the storage interface every persistence-backed component
// in this module depends on, re-exported so callers never need to import
// go-datastore directly.
type Datastore = datastore.Datastore

// Key is a datastore key, re-exported for the same reason.
type Key = datastore.Key

// NewKey builds a datastore key from a string path.
func NewKey(s string) Key { return datastore.NewKey(s) }

// NewBadgerDatastore opens (creating if necessary) a badger-backed
// datastore rooted at dataDir, the production persistence backend.
func NewBadgerDatastore(dataDir string) (Datastore, error) {
	opts := badger.DefaultOptions
	ds, err := badger.NewDatastore(dataDir, &opts)
	if err != nil {
		return nil, err
	}
	return ds, nil
}

// NewMockDatastore returns an in-memory datastore for tests and
// harnesses, where durability across process restarts is never needed.
func NewMockDatastore() Datastore {
	return datastore.NewMapDatastore()
}
