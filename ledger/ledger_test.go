// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solidus-project/solidus/ec"
	"github.com/solidus-project/solidus/repo"
	"github.com/solidus-project/solidus/types"
	"github.com/solidus-project/solidus/zk"

	solidus "github.com/solidus-project/solidus"
)

// buildHeaderEntry constructs a fully-proved TransactionHeader entry, so
// PersistentLedger's CasAppend (which serializes through Entry.Bytes) has
// something real to append rather than a nil Header.
func buildHeaderEntry(t *testing.T) Entry {
	t.Helper()
	sourceBank, err := ec.GeneratePrivateKey()
	require.NoError(t, err)
	destBank, err := ec.GeneratePrivateKey()
	require.NoError(t, err)
	sender, err := ec.GeneratePrivateKey()
	require.NoError(t, err)

	r1, _ := ec.RandomScalar()
	req := types.TransactionRequest{
		SourceBankKey:          sourceBank.Public(),
		DestBankKey:            destBank.Public(),
		DestAccountCiphertext:  ec.Encrypt(destBank.Public(), ec.ScalarFromUint64(7), r1),
		Timestamp:              1,
		SenderAccountPublicKey: sender.Public(),
	}

	rangeProof, valueCT, valueR, err := zk.ProveRange(sourceBank.Public(), 30, 16)
	require.NoError(t, err)
	req.ValueCiphertext = valueCT
	sig, err := sender.Sign(req.SigningDigest())
	require.NoError(t, err)
	req.Signature = sig

	rerandR, _ := ec.RandomScalar()
	rerandomized := valueCT.Rerandomize(sourceBank.Public(), rerandR)
	rerandProof, err := zk.ProvePlaintextEq(sourceBank.Public(), valueCT, rerandomized, rerandR.Neg())
	require.NoError(t, err)
	rerandomizedR := valueR.Add(rerandR)

	crossR, _ := ec.RandomScalar()
	receiverValue := ec.Encrypt(destBank.Public(), ec.ScalarFromUint64(30), crossR)
	crossProof, err := zk.ProvePlaintextEqDisKey(sourceBank.Public(), destBank.Public(), rerandomized, receiverValue, ec.ScalarFromUint64(30), rerandomizedR, crossR)
	require.NoError(t, err)

	header := &types.TransactionHeader{
		Request:                 req,
		RangeProof:              rangeProof,
		SenderRerandomizedValue: rerandomized,
		ReceiverValue:           receiverValue,
		RerandomizeProof:        rerandProof,
		CrossKeyProof:           crossProof,
	}
	return Entry{TxID: req.ID(), Kind: EntryHeader, Header: header}
}

func TestMemLedgerCasAppendConflict(t *testing.T) {
	ctx := context.Background()
	l := NewMemLedger()
	e := buildHeaderEntry(t)

	seq, err := l.CasAppend(ctx, 0, e)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), seq)

	// A second CasAppend still claiming slot 0 has lost the race: the
	// ledger moved to seq 1 underneath it.
	_, err = l.CasAppend(ctx, 0, e)
	require.Error(t, err)
	assert.True(t, solidus.ErrorIs(err, solidus.LedgerConflict))
	conflictSeq, ok := solidus.AsConflict(err)
	require.True(t, ok)
	assert.Equal(t, uint64(1), conflictSeq)

	// Retrying against the reported tip succeeds.
	seq, err = l.CasAppend(ctx, conflictSeq, e)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), seq)
}

func TestPersistentLedgerCasAppendConflict(t *testing.T) {
	ctx := context.Background()
	l, err := NewPersistentLedger(ctx, repo.NewMockDatastore())
	require.NoError(t, err)
	e := buildHeaderEntry(t)

	seq, err := l.CasAppend(ctx, 0, e)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), seq)

	_, err = l.CasAppend(ctx, 0, e)
	require.Error(t, err)
	assert.True(t, solidus.ErrorIs(err, solidus.LedgerConflict))
	conflictSeq, ok := solidus.AsConflict(err)
	require.True(t, ok)
	assert.Equal(t, uint64(1), conflictSeq)

	seq, err = l.CasAppend(ctx, conflictSeq, e)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), seq)
}
