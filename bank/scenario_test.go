// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package bank_test

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	solidus "github.com/solidus-project/solidus"
	"github.com/solidus-project/solidus/bankharness"
	"github.com/solidus-project/solidus/ec"
	"github.com/solidus-project/solidus/params"
)

func awaitSettled(t *testing.T, h *bankharness.Harness, name string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ev, err := h.AwaitNextOutcome(ctx, name)
	require.NoError(t, err)
	require.Nil(t, ev.Error, "expected %s's transaction to settle, got %v", name, ev.Error)
}

func awaitFailed(t *testing.T, h *bankharness.Harness, name string) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ev, err := h.AwaitNextOutcome(ctx, name)
	require.NoError(t, err)
	require.Error(t, ev.Error)
	return ev.Error
}

// TestScenarioSingleTransfer is spec.md's S1: a single transfer between
// two distinct banks, each holding one account, moving 30 from a1 (100)
// to b1 (50) and landing on the expected posterior balances.
func TestScenarioSingleTransfer(t *testing.T) {
	h := bankharness.NewHarness(params.RegtestParams)
	_, err := h.AddBank("A")
	require.NoError(t, err)
	_, err = h.AddBank("B")
	require.NoError(t, err)

	a1, err := ec.GeneratePrivateKey()
	require.NoError(t, err)
	b1, err := ec.GeneratePrivateKey()
	require.NoError(t, err)

	require.NoError(t, h.Bank("A").RegisterAccount(a1.Public(), 100))
	require.NoError(t, h.Bank("B").RegisterAccount(b1.Public(), 50))
	h.WirePeers()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, h.StartAll(ctx))
	defer h.StopAll()

	h.Bank("A").SubmitTransfer(a1, h.Bank("B").Public(), b1.Public(), 30)
	awaitSettled(t, h, "A")
	awaitSettled(t, h, "B")

	aBal, ok := h.Bank("A").AccountBalance(a1.Public())
	require.True(t, ok)
	assert.Equal(t, uint64(70), aBal)

	bBal, ok := h.Bank("B").AccountBalance(b1.Public())
	require.True(t, ok)
	assert.Equal(t, uint64(80), bBal)
}

// TestScenarioOverdraftRejected is spec.md's S2: a transfer exceeding the
// sender's balance must fail with OutOfRange and leave both balances
// unchanged.
func TestScenarioOverdraftRejected(t *testing.T) {
	h := bankharness.NewHarness(params.RegtestParams)
	_, err := h.AddBank("A")
	require.NoError(t, err)
	_, err = h.AddBank("B")
	require.NoError(t, err)

	a1, err := ec.GeneratePrivateKey()
	require.NoError(t, err)
	b1, err := ec.GeneratePrivateKey()
	require.NoError(t, err)

	require.NoError(t, h.Bank("A").RegisterAccount(a1.Public(), 100))
	require.NoError(t, h.Bank("B").RegisterAccount(b1.Public(), 50))
	h.WirePeers()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, h.StartAll(ctx))
	defer h.StopAll()

	h.Bank("A").SubmitTransfer(a1, h.Bank("B").Public(), b1.Public(), 150)
	err = awaitFailed(t, h, "A")
	assert.True(t, solidus.ErrorIs(err, solidus.OutOfRange), "want OutOfRange, got %v", err)

	aBal, ok := h.Bank("A").AccountBalance(a1.Public())
	require.True(t, ok)
	assert.Equal(t, uint64(100), aBal)

	bBal, ok := h.Bank("B").AccountBalance(b1.Public())
	require.True(t, ok)
	assert.Equal(t, uint64(50), bBal)
}

// TestScenarioConcurrentTransfers is spec.md's S3: three banks settle
// independent transfers concurrently without corrupting each other's
// PVORM state.
func TestScenarioConcurrentTransfers(t *testing.T) {
	h := bankharness.NewHarness(params.RegtestParams)
	for _, name := range []string{"A", "B", "C"} {
		_, err := h.AddBank(name)
		require.NoError(t, err)
	}

	a1, err := ec.GeneratePrivateKey()
	require.NoError(t, err)
	b1, err := ec.GeneratePrivateKey()
	require.NoError(t, err)
	c1, err := ec.GeneratePrivateKey()
	require.NoError(t, err)

	require.NoError(t, h.Bank("A").RegisterAccount(a1.Public(), 200))
	require.NoError(t, h.Bank("B").RegisterAccount(b1.Public(), 200))
	require.NoError(t, h.Bank("C").RegisterAccount(c1.Public(), 200))
	h.WirePeers()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, h.StartAll(ctx))
	defer h.StopAll()

	h.Bank("A").SubmitTransfer(a1, h.Bank("B").Public(), b1.Public(), 20)
	h.Bank("B").SubmitTransfer(b1, h.Bank("C").Public(), c1.Public(), 30)
	h.Bank("C").SubmitTransfer(c1, h.Bank("A").Public(), a1.Public(), 10)

	awaitSettled(t, h, "A")
	awaitSettled(t, h, "B")
	awaitSettled(t, h, "C")
	awaitSettled(t, h, "A")
	awaitSettled(t, h, "B")
	awaitSettled(t, h, "C")

	aBal, _ := h.Bank("A").AccountBalance(a1.Public())
	bBal, _ := h.Bank("B").AccountBalance(b1.Public())
	cBal, _ := h.Bank("C").AccountBalance(c1.Public())
	assert.Equal(t, uint64(200-20+10), aBal)
	assert.Equal(t, uint64(200+20-30), bBal)
	assert.Equal(t, uint64(200+30-10), cBal)
}

// TestScenarioBackToBackTransfersSettleInOrder exercises the FIFO
// outgoing queue and per-transaction nonce increment under repeated use:
// three transfers from the same sender must each carry a strictly
// greater nonce and settle in submission order.
func TestScenarioBackToBackTransfersSettleInOrder(t *testing.T) {
	h := bankharness.NewHarness(params.RegtestParams)
	_, err := h.AddBank("A")
	require.NoError(t, err)
	_, err = h.AddBank("B")
	require.NoError(t, err)

	a1, err := ec.GeneratePrivateKey()
	require.NoError(t, err)
	b1, err := ec.GeneratePrivateKey()
	require.NoError(t, err)

	require.NoError(t, h.Bank("A").RegisterAccount(a1.Public(), 100))
	require.NoError(t, h.Bank("B").RegisterAccount(b1.Public(), 50))
	h.WirePeers()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, h.StartAll(ctx))
	defer h.StopAll()

	for i := 0; i < 3; i++ {
		h.Bank("A").SubmitTransfer(a1, h.Bank("B").Public(), b1.Public(), 10)
		awaitSettled(t, h, "A")
		awaitSettled(t, h, "B")
	}

	aBal, _ := h.Bank("A").AccountBalance(a1.Public())
	bBal, _ := h.Bank("B").AccountBalance(b1.Public())
	assert.Equal(t, uint64(70), aBal)
	assert.Equal(t, uint64(80), bBal)
}

// TestScenarioStashStress is spec.md's S6, at its literal parameters
// (spec.md: "With sigma=2, h=2, Z=2, 20 accounts, 500 random transfers.
// Expected: either all settle or the first StashOverflow halts the
// offending bank cleanly; no silent corruption"): 20 accounts per bank,
// 500 random transfers against the tight stash-stress preset (sigma=2,
// h=2, Z=2), asserting that any observed failure really is StashOverflow
// rather than some other error silently taking its place.
func TestScenarioStashStress(t *testing.T) {
	h := bankharness.NewHarness(params.StashStressParams)
	_, err := h.AddBank("A")
	require.NoError(t, err)
	_, err = h.AddBank("B")
	require.NoError(t, err)

	const n = 20
	const startBalance = 500

	keysA := make([]*ec.PrivateKey, n)
	keysB := make([]*ec.PrivateKey, n)
	for i := 0; i < n; i++ {
		ka, err := ec.GeneratePrivateKey()
		require.NoError(t, err)
		kb, err := ec.GeneratePrivateKey()
		require.NoError(t, err)
		keysA[i] = ka
		keysB[i] = kb
		require.NoError(t, h.Bank("A").RegisterAccount(ka.Public(), startBalance))
		require.NoError(t, h.Bank("B").RegisterAccount(kb.Public(), startBalance))
	}
	h.WirePeers()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, h.StartAll(ctx))
	defer h.StopAll()

	wantA := make([]int64, n)
	wantB := make([]int64, n)
	for i := range wantA {
		wantA[i] = startBalance
		wantB[i] = startBalance
	}

	rng := rand.New(rand.NewSource(1))
	const rounds = 500
	for i := 0; i < rounds; i++ {
		src := rng.Intn(n)
		dst := rng.Intn(n)
		amount := uint64(1 + rng.Intn(5))

		// Only ever submit a transfer the sender's own tracked balance can
		// cover: S6 is about stash-overflow pressure, not overdraft, so an
		// amount the ground truth can't afford would confound the "first
		// failure must be StashOverflow" assertion below with an
		// unrelated, expected OutOfRange rejection.
		if rng.Intn(2) == 0 {
			if wantA[src] < int64(amount) {
				continue
			}
			h.Bank("A").SubmitTransfer(keysA[src], h.Bank("B").Public(), keysB[dst].Public(), amount)
			ev := mustAwait(t, h, "A")
			if ev.Error != nil {
				assert.True(t, solidus.ErrorIs(ev.Error, solidus.StashOverflow), "want StashOverflow, got %v", ev.Error)
				break
			}
			wantA[src] -= int64(amount)
			wantB[dst] += int64(amount)
			mustAwait(t, h, "B")
		} else {
			if wantB[src] < int64(amount) {
				continue
			}
			h.Bank("B").SubmitTransfer(keysB[src], h.Bank("A").Public(), keysA[dst].Public(), amount)
			ev := mustAwait(t, h, "B")
			if ev.Error != nil {
				assert.True(t, solidus.ErrorIs(ev.Error, solidus.StashOverflow), "want StashOverflow, got %v", ev.Error)
				break
			}
			wantB[src] -= int64(amount)
			wantA[dst] += int64(amount)
			mustAwait(t, h, "A")
		}
	}

	for i := 0; i < n; i++ {
		bal, ok := h.Bank("A").AccountBalance(keysA[i].Public())
		require.True(t, ok)
		assert.Equal(t, uint64(wantA[i]), bal, "account A[%d]", i)

		bal, ok = h.Bank("B").AccountBalance(keysB[i].Public())
		require.True(t, ok)
		assert.Equal(t, uint64(wantB[i]), bal, "account B[%d]", i)
	}
}

func mustAwait(t *testing.T, h *bankharness.Harness, name string) (ev struct{ Error error }) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	e, err := h.AwaitNextOutcome(ctx, name)
	require.NoError(t, err)
	return struct{ Error error }{Error: e.Error}
}
