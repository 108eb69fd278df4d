// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package ec

import solidus "github.com/solidus-project/solidus"

// Ciphertext is an exponential-ElGamal ciphertext of a scalar plaintext
// under a recipient public key: C1 = r*G, C2 = m*G + r*PK.
type Ciphertext struct {
	C1, C2 Point
}

// Encrypt encrypts m under pk using randomizer r.
func Encrypt(pk Point, m Scalar, r Scalar) Ciphertext {
	return Ciphertext{
		C1: ScalarBaseMult(r),
		C2: ScalarBaseMult(m).Add(pk.ScalarMult(r)),
	}
}

// Decrypt recovers the plaintext scalar using the secret key sk, probing
// params' decryption table. Returns OutOfRange if the recovered group
// element falls outside the table's bound.
func Decrypt(params *EncryptionParams, sk Scalar, ct Ciphertext) (uint64, error) {
	shared := ct.C1.ScalarMult(sk)
	mG := ct.C2.Sub(shared)
	v, ok := params.lookup(mG)
	if !ok {
		return 0, solidus.NewError(solidus.OutOfRange, "decrypted value outside table bound %d", params.Bound)
	}
	return v, nil
}

// BlindDecrypt decrypts like Decrypt, but first multiplies the ciphertext
// by a fresh non-zero scalar k and divides the recovered point by k before
// the lookup, and probes the table in randomized order rather than always
// scanning from zero. It is used when a third party is assisting with
// decryption and should not learn the plaintext's rough magnitude from
// memory access order or from how long the probe takes.
func BlindDecrypt(params *EncryptionParams, sk Scalar, ct Ciphertext) (uint64, error) {
	k, err := RandomScalar()
	if err != nil {
		return 0, err
	}
	blinded := ct.ScalarMul(k)
	shared := blinded.C1.ScalarMult(sk)
	mG := blinded.C2.Sub(shared).ScalarMult(k.Inverse())
	v, ok := params.probeInRandomOrder(mG)
	if !ok {
		return 0, solidus.NewError(solidus.OutOfRange, "decrypted value outside table bound %d", params.Bound)
	}
	return v, nil
}

// Add homomorphically adds two ciphertexts, producing an encryption of the
// sum of their plaintexts (the defining property PVORM balance updates
// depend on).
func (c Ciphertext) Add(o Ciphertext) Ciphertext {
	return Ciphertext{C1: c.C1.Add(o.C1), C2: c.C2.Add(o.C2)}
}

// Sub homomorphically subtracts o's plaintext from c's.
func (c Ciphertext) Sub(o Ciphertext) Ciphertext {
	return Ciphertext{C1: c.C1.Sub(o.C1), C2: c.C2.Sub(o.C2)}
}

// ScalarMul homomorphically multiplies the plaintext by a public scalar.
func (c Ciphertext) ScalarMul(s Scalar) Ciphertext {
	return Ciphertext{C1: c.C1.ScalarMult(s), C2: c.C2.ScalarMult(s)}
}

// Rerandomize returns an encryption of the same plaintext under fresh
// randomness, indistinguishable from a freshly-produced ciphertext of the
// same value. Used whenever a PVORM slot is re-encrypted on eviction
// without its plaintext changing.
func (c Ciphertext) Rerandomize(pk Point, r Scalar) Ciphertext {
	return Ciphertext{C1: c.C1.Add(ScalarBaseMult(r)), C2: c.C2.Add(pk.ScalarMult(r))}
}

// Equal reports whether two ciphertexts are byte-identical (not whether
// they encrypt the same plaintext, which re-randomization deliberately
// obscures).
func (c Ciphertext) Equal(o Ciphertext) bool {
	return c.C1.Equal(o.C1) && c.C2.Equal(o.C2)
}

// Bytes encodes the ciphertext as two compressed points concatenated, per
// the protocol's external wire format.
func (c Ciphertext) Bytes() []byte {
	return append(c.C1.Compress(), c.C2.Compress()...)
}

// CiphertextFromBytes decodes a ciphertext encoded by Bytes.
func CiphertextFromBytes(b []byte) (Ciphertext, error) {
	if len(b) < 2 {
		return Ciphertext{}, solidus.NewError(solidus.MalformedEncoding, "ciphertext too short")
	}
	c1Len := pointEncodingLen(b)
	if c1Len < 0 || c1Len > len(b) {
		return Ciphertext{}, solidus.NewError(solidus.MalformedEncoding, "malformed ciphertext C1 encoding")
	}
	c1, err := DecompressPoint(b[:c1Len])
	if err != nil {
		return Ciphertext{}, err
	}
	c2, err := DecompressPoint(b[c1Len:])
	if err != nil {
		return Ciphertext{}, err
	}
	return Ciphertext{C1: c1, C2: c2}, nil
}

// pointEncodingLen reports how many leading bytes of b are consumed by one
// Point.Compress encoding: 1 byte for infinity, 33 for a compressed point.
func pointEncodingLen(b []byte) int {
	if len(b) == 0 {
		return -1
	}
	if b[0] == 0x00 {
		return 1
	}
	if b[0] == 0x02 || b[0] == 0x03 {
		return 33
	}
	return -1
}
