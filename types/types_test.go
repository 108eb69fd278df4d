// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solidus-project/solidus/ec"
	"github.com/solidus-project/solidus/zk"
)

func buildSignedRequest(t *testing.T) (*TransactionRequest, *ec.PrivateKey) {
	t.Helper()
	sourceBank, err := ec.GeneratePrivateKey()
	require.NoError(t, err)
	destBank, err := ec.GeneratePrivateKey()
	require.NoError(t, err)
	sender, err := ec.GeneratePrivateKey()
	require.NoError(t, err)
	r1, _ := ec.RandomScalar()
	r2, _ := ec.RandomScalar()

	req := &TransactionRequest{
		SourceBankKey:          sourceBank.Public(),
		DestBankKey:            destBank.Public(),
		DestAccountCiphertext:  ec.Encrypt(destBank.Public(), ec.ScalarFromUint64(7), r1),
		ValueCiphertext:        ec.Encrypt(sourceBank.Public(), ec.ScalarFromUint64(30), r2),
		Timestamp:              1,
		SenderAccountPublicKey: sender.Public(),
	}
	sig, err := sender.Sign(req.SigningDigest())
	require.NoError(t, err)
	req.Signature = sig
	return req, sender
}

func TestTransactionRequestSignAndRoundTrip(t *testing.T) {
	req, _ := buildSignedRequest(t)
	require.NoError(t, req.VerifySignature())

	encoded := req.Bytes()
	decoded, err := TransactionRequestFromBytes(encoded)
	require.NoError(t, err)
	assert.Equal(t, req.ID(), decoded.ID())
	require.NoError(t, decoded.VerifySignature())
}

func TestTransactionRequestTamperedSignatureRejected(t *testing.T) {
	req, _ := buildSignedRequest(t)
	req.Timestamp = 2
	assert.Error(t, req.VerifySignature())
}

func TestTransactionHeaderVerifyProofsAndRoundTrip(t *testing.T) {
	req, _ := buildSignedRequest(t)

	rangeProof, valueCt, valueR, err := zk.ProveRange(req.SourceBankKey, 30, 16)
	require.NoError(t, err)
	req.ValueCiphertext = valueCt

	rerandR, _ := ec.RandomScalar()
	rerandomized := req.ValueCiphertext.Rerandomize(req.SourceBankKey, rerandR)
	rerandProof, err := zk.ProvePlaintextEq(req.SourceBankKey, req.ValueCiphertext, rerandomized, rerandR.Neg())
	require.NoError(t, err)

	// rerandomized's own effective randomizer, needed as the cross-key
	// proof's witness, is the range ciphertext's randomizer plus the
	// rerandomization delta.
	rerandomizedR := valueR.Add(rerandR)

	crossR, _ := ec.RandomScalar()
	receiverValue := ec.Encrypt(req.DestBankKey, ec.ScalarFromUint64(30), crossR)
	crossProof, err := zk.ProvePlaintextEqDisKey(req.SourceBankKey, req.DestBankKey, rerandomized, receiverValue, ec.ScalarFromUint64(30), rerandomizedR, crossR)
	require.NoError(t, err)

	header := TransactionHeader{
		Request:                 *req,
		RangeProof:              rangeProof,
		SenderRerandomizedValue: rerandomized,
		ReceiverValue:           receiverValue,
		RerandomizeProof:        rerandProof,
		CrossKeyProof:           crossProof,
	}

	require.NoError(t, header.VerifyProofs())

	encoded := header.Bytes()
	decoded, err := TransactionHeaderFromBytes(encoded)
	require.NoError(t, err)
	require.NoError(t, decoded.VerifyProofs())
}
