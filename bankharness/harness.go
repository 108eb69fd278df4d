// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

// Package bankharness wires several bank.Bank instances together over a
// shared ledger for tests, mirroring blockchain/harness's TestHarness:
// a single entry point constructs every participant and exposes plain
// helper methods instead of making test code juggle wiring itself.
package bankharness

import (
	"context"
	"fmt"
	"sync"

	"github.com/solidus-project/solidus/bank"
	"github.com/solidus-project/solidus/ec"
	"github.com/solidus-project/solidus/ledger"
	"github.com/solidus-project/solidus/params"
	"github.com/solidus-project/solidus/repo"
)

// Harness owns a set of named banks sharing one ledger, plus the
// in-process PeerChannel that delivers cross-bank randomizers between
// them. It is meant for tests: every bank runs against an in-memory
// ledger and datastore, never persisted.
type Harness struct {
	Params *params.Params
	Ledger *ledger.MemLedger

	mu    sync.Mutex
	banks map[string]*bank.Bank
	keys  map[string]*ec.PrivateKey
}

// NewHarness constructs an empty harness over p, with a fresh in-memory
// ledger shared by every bank later added with AddBank.
func NewHarness(p *params.Params) *Harness {
	return &Harness{
		Params: p,
		Ledger: ledger.NewMemLedger(),
		banks:  map[string]*bank.Bank{},
		keys:   map[string]*ec.PrivateKey{},
	}
}

// hubPeerChannel implements bank.PeerChannel by dispatching directly to
// whichever harness bank owns destBankKey, the in-process stand-in for
// the authenticated bank-to-bank transport a real deployment would use.
type hubPeerChannel struct {
	h *Harness
}

func (c *hubPeerChannel) SendRandomizer(ctx context.Context, destBankKey ec.Point, txID [32]byte, r ec.Scalar) error {
	c.h.mu.Lock()
	defer c.h.mu.Unlock()
	for _, b := range c.h.banks {
		if b.Public().Equal(destBankKey) {
			b.ReceiveRandomizer(txID, r)
			return nil
		}
	}
	return fmt.Errorf("bankharness: no bank registered for destination key")
}

// AddBank creates a new bank named name, with its own key and an
// in-memory nonce store, and returns it ready for RegisterAccount calls.
// Call WirePeers once every bank's genesis accounts are registered but
// before Start, so each bank's PVORM replica of its peers begins from
// the correct genesis state rather than an empty one.
func (h *Harness) AddBank(name string) (*bank.Bank, error) {
	key, err := ec.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	non := repo.NewNonceStore(repo.NewMockDatastore())
	b := bank.New(h.Params, key, h.Ledger, non, &hubPeerChannel{h: h})

	h.mu.Lock()
	defer h.mu.Unlock()
	h.banks[name] = b
	h.keys[name] = key
	return b, nil
}

// WirePeers seeds every bank's replica of every other bank with its
// current PublicState, so pairwise PVORM verification has the right
// genesis to build from. Call this once, after every bank's accounts
// are registered and before StartAll.
func (h *Harness) WirePeers() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for nameA, a := range h.banks {
		for nameB, b := range h.banks {
			if nameA == nameB {
				continue
			}
			a.RegisterPeer(b.Public(), b.PublicState())
		}
	}
}

// Bank returns the named bank, or nil if it was never added.
func (h *Harness) Bank(name string) *bank.Bank {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.banks[name]
}

// Key returns the private key the named bank was constructed with (its
// bank key, not an account key).
func (h *Harness) Key(name string) *ec.PrivateKey {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.keys[name]
}

// StartAll subscribes every bank to the ledger from its genesis and
// begins their handler goroutines.
func (h *Harness) StartAll(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for name, b := range h.banks {
		if err := b.Start(ctx, 0); err != nil {
			return fmt.Errorf("bankharness: starting bank %q: %w", name, err)
		}
	}
	return nil
}

// StopAll halts every bank's handler and waits for them to exit.
func (h *Harness) StopAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, b := range h.banks {
		b.Stop()
	}
}
