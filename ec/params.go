// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package ec

import (
	"fmt"
	"math/rand"
	"sync"
)

// EncryptionParams bundles the one tunable constant additive ElGamal needs
// beyond the group itself: the upper bound on plaintexts the decryption
// table is built over. Every PVORM slot value and every transaction amount
// must stay below Bound or decryption has no recourse but OutOfRange.
type EncryptionParams struct {
	Bound uint64

	mu    sync.Mutex
	table map[string]uint64
}

// NewEncryptionParams constructs parameters for plaintexts in [0, bound).
// The decryption table is built lazily on first use, not here, since tests
// frequently construct parameters without ever decrypting through them.
func NewEncryptionParams(bound uint64) *EncryptionParams {
	return &EncryptionParams{Bound: bound}
}

func (p *EncryptionParams) ensureTable() map[string]uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.table != nil {
		return p.table
	}
	t := make(map[string]uint64, p.Bound)
	acc := InfinityPoint()
	g := BasePoint()
	for m := uint64(0); m < p.Bound; m++ {
		t[string(acc.Compress())] = m
		acc = acc.Add(g)
	}
	p.table = t
	return t
}

// lookup resolves m*G back to m, or reports that the point fell outside the
// table's range.
func (p *EncryptionParams) lookup(m Point) (uint64, bool) {
	t := p.ensureTable()
	v, ok := t[string(m.Compress())]
	return v, ok
}

// probeInRandomOrder performs the same lookup as lookup but walks the
// bound in a randomized starting order, so repeated blind decryptions of
// different ciphertexts don't leak a timing signal correlated with the
// plaintext's magnitude the way a always-start-at-zero linear scan would.
func (p *EncryptionParams) probeInRandomOrder(target Point) (uint64, bool) {
	start := uint64(0)
	if p.Bound > 0 {
		start = uint64(rand.Int63n(int64(p.Bound)))
	}
	acc := BasePoint().ScalarMult(ScalarFromUint64(start))
	g := BasePoint()
	for i := uint64(0); i < p.Bound; i++ {
		m := (start + i) % p.Bound
		if i > 0 && m == 0 {
			acc = InfinityPoint()
		}
		if acc.Equal(target) {
			return m, true
		}
		acc = acc.Add(g)
	}
	return 0, false
}

func (p *EncryptionParams) String() string {
	return fmt.Sprintf("EncryptionParams{Bound: %d}", p.Bound)
}
