// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package ec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	solidus "github.com/solidus-project/solidus"
)

func TestPointCompressRoundTrip(t *testing.T) {
	for i := uint64(0); i < 20; i++ {
		p := ScalarBaseMult(ScalarFromUint64(i + 1))
		got, err := DecompressPoint(p.Compress())
		require.NoError(t, err)
		assert.True(t, p.Equal(got))
	}

	inf := InfinityPoint()
	got, err := DecompressPoint(inf.Compress())
	require.NoError(t, err)
	assert.True(t, got.IsInfinity())
}

func TestScalarFieldArithmetic(t *testing.T) {
	a := ScalarFromUint64(7)
	b := ScalarFromUint64(5)
	assert.True(t, a.Add(b).Equal(ScalarFromUint64(12)))
	assert.True(t, a.Sub(b).Equal(ScalarFromUint64(2)))
	assert.True(t, a.Mul(b).Equal(ScalarFromUint64(35)))
	assert.True(t, a.Mul(a.Inverse()).Equal(OneScalar()))
}

func TestElGamalEncryptDecryptRoundTrip(t *testing.T) {
	params := NewEncryptionParams(1000)
	sk, err := GeneratePrivateKey()
	require.NoError(t, err)

	r, err := RandomScalar()
	require.NoError(t, err)

	ct := Encrypt(sk.Public(), ScalarFromUint64(42), r)
	got, err := Decrypt(params, sk.Scalar(), ct)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), got)
}

func TestElGamalOutOfRange(t *testing.T) {
	params := NewEncryptionParams(10)
	sk, err := GeneratePrivateKey()
	require.NoError(t, err)
	r, err := RandomScalar()
	require.NoError(t, err)

	ct := Encrypt(sk.Public(), ScalarFromUint64(500), r)
	_, err = Decrypt(params, sk.Scalar(), ct)
	require.Error(t, err)
	assert.True(t, solidus.ErrorIs(err, solidus.OutOfRange))
}

func TestElGamalHomomorphicAddition(t *testing.T) {
	params := NewEncryptionParams(1000)
	sk, err := GeneratePrivateKey()
	require.NoError(t, err)

	r1, _ := RandomScalar()
	r2, _ := RandomScalar()

	ct1 := Encrypt(sk.Public(), ScalarFromUint64(10), r1)
	ct2 := Encrypt(sk.Public(), ScalarFromUint64(15), r2)

	sum := ct1.Add(ct2)
	got, err := Decrypt(params, sk.Scalar(), sum)
	require.NoError(t, err)
	assert.Equal(t, uint64(25), got)
}

func TestElGamalRerandomizePreservesPlaintext(t *testing.T) {
	params := NewEncryptionParams(1000)
	sk, err := GeneratePrivateKey()
	require.NoError(t, err)

	r, _ := RandomScalar()
	ct := Encrypt(sk.Public(), ScalarFromUint64(7), r)

	r2, _ := RandomScalar()
	rerand := ct.Rerandomize(sk.Public(), r2)
	assert.False(t, ct.Equal(rerand))

	got, err := Decrypt(params, sk.Scalar(), rerand)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), got)
}

func TestSchnorrSignVerify(t *testing.T) {
	sk, err := GeneratePrivateKey()
	require.NoError(t, err)

	var digest [32]byte
	copy(digest[:], []byte("a transaction request digest..."))

	sig, err := sk.Sign(digest)
	require.NoError(t, err)

	ok, err := Verify(sk.Public(), digest, sig)
	require.NoError(t, err)
	assert.True(t, ok)

	digest[0] ^= 0xFF
	ok, err = Verify(sk.Public(), digest, sig)
	require.NoError(t, err)
	assert.False(t, ok)
}
