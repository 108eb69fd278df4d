// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package bank

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	solidus "github.com/solidus-project/solidus"
	"github.com/solidus-project/solidus/ec"
	"github.com/solidus-project/solidus/ledger"
	"github.com/solidus-project/solidus/params"
	"github.com/solidus-project/solidus/repo"
	"github.com/solidus-project/solidus/types"
)

func newTestBank(t *testing.T) (*Bank, *ec.PrivateKey) {
	t.Helper()
	key, err := ec.GeneratePrivateKey()
	require.NoError(t, err)
	non := repo.NewNonceStore(repo.NewMockDatastore())
	b := New(params.RegtestParams, key, ledger.NewMemLedger(), non, nil)
	return b, key
}

// TestCreditActiveRejectsReplayedNonceBeforePVORMWork is spec.md's S4: a
// request whose nonce has already been accepted must fail with
// ReplayedNonce, and the PVORM root hash must be untouched, proving the
// check runs before LookupAndUpdate rather than after.
func TestCreditActiveRejectsReplayedNonceBeforePVORMWork(t *testing.T) {
	b, key := newTestBank(t)
	acct, err := ec.GeneratePrivateKey()
	require.NoError(t, err)
	require.NoError(t, b.RegisterAccount(acct.Public(), 100))

	ctx := context.Background()
	ak := types.Account{PublicKey: acct.Public()}.Key()
	require.NoError(t, b.non.Accept(ctx, []byte(ak), 5))

	rootBefore := b.PublicState().RootHash

	r, err := ec.RandomScalar()
	require.NoError(t, err)
	delta := ec.Encrypt(key.Public(), ec.ScalarFromUint64(10), r)

	b.state = Proposing
	b.active = &activeTransaction{
		txID:     [32]byte{1},
		role:     roleSender,
		header:   &types.TransactionHeader{Request: types.TransactionRequest{Timestamp: 5}},
		account:  acct.Public(),
		deltaVal: -10,
		delta:    delta.ScalarMul(ec.OneScalar().Neg()),
		deltaRand: r.Neg(),
	}
	b.creditActive(ctx)

	select {
	case ev := <-b.events:
		require.Error(t, ev.Error)
		assert.True(t, solidus.ErrorIs(ev.Error, solidus.ReplayedNonce), "want ReplayedNonce, got %v", ev.Error)
	default:
		t.Fatal("expected a TransactionFailed event")
	}

	assert.Equal(t, rootBefore, b.PublicState().RootHash, "PVORM must be untouched by a rejected replay")
	assert.Equal(t, Idle, b.state)
	assert.Nil(t, b.active)
}

// TestHandleLedgerEntryIgnoresRedelivery exercises Ledger.Subscribe's
// documented at-least-once contract: replaying a sequence number the bank
// already applied must be a no-op, not a second state transition.
func TestHandleLedgerEntryIgnoresRedelivery(t *testing.T) {
	b, _ := newTestBank(t)
	acct, err := ec.GeneratePrivateKey()
	require.NoError(t, err)
	require.NoError(t, b.RegisterAccount(acct.Public(), 100))

	other, err := ec.GeneratePrivateKey()
	require.NoError(t, err)

	se := ledger.SeqEntry{
		SeqNo: 1,
		Entry: ledger.Entry{
			Kind: ledger.EntryHeader,
			Header: &types.TransactionHeader{
				Request: types.TransactionRequest{
					SourceBankKey: other.Public(), // not this bank on either side
					DestBankKey:   other.Public(),
				},
			},
		},
	}

	ctx := context.Background()
	b.handleLedgerEntry(ctx, se)
	assert.Equal(t, uint64(1), b.lastSeq)

	b.handleLedgerEntry(ctx, se)
	assert.Equal(t, uint64(1), b.lastSeq)

	// A second, genuinely new sequence number must still advance.
	se.SeqNo = 2
	b.handleLedgerEntry(ctx, se)
	assert.Equal(t, uint64(2), b.lastSeq)
}
