// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

// Package ec implements the curve and additive ElGamal primitives (layer
// L1): scalars and points over secp256k1, encryption parameters, and the
// bounded discrete-log decryption table.
package ec

import (
	"crypto/rand"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
)

// curve is the single group G every Scalar/Point operation is defined over.
// btcec's KoblitzCurve satisfies the standard library elliptic.Curve
// interface, which is the surface this package relies on.
var curve = btcec.S256()

// order is the order of G, i.e. the modulus scalars live in.
var order = curve.Params().N

// Scalar is an integer mod the order of G.
type Scalar struct {
	v *big.Int
}

// NewScalar reduces an arbitrary big.Int mod the group order.
func NewScalar(v *big.Int) Scalar {
	return Scalar{v: new(big.Int).Mod(v, order)}
}

// ScalarFromUint64 builds a Scalar from a small non-negative integer, the
// common case for encoding amounts and nonces.
func ScalarFromUint64(v uint64) Scalar {
	return NewScalar(new(big.Int).SetUint64(v))
}

// RandomScalar draws a uniformly random nonzero scalar, as required for
// ElGamal randomizers and Sigma-protocol blinding factors.
func RandomScalar() (Scalar, error) {
	for {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return Scalar{}, err
		}
		v := new(big.Int).Mod(new(big.Int).SetBytes(b), order)
		if v.Sign() != 0 {
			return Scalar{v: v}, nil
		}
	}
}

// ZeroScalar is the additive identity.
func ZeroScalar() Scalar { return Scalar{v: big.NewInt(0)} }

// OneScalar is the multiplicative identity.
func OneScalar() Scalar { return Scalar{v: big.NewInt(1)} }

// IsZero reports whether s is the additive identity.
func (s Scalar) IsZero() bool { return s.v == nil || s.v.Sign() == 0 }

// Add returns s + t mod order.
func (s Scalar) Add(t Scalar) Scalar {
	return NewScalar(new(big.Int).Add(s.bigInt(), t.bigInt()))
}

// Sub returns s - t mod order.
func (s Scalar) Sub(t Scalar) Scalar {
	return NewScalar(new(big.Int).Sub(s.bigInt(), t.bigInt()))
}

// Mul returns s * t mod order.
func (s Scalar) Mul(t Scalar) Scalar {
	return NewScalar(new(big.Int).Mul(s.bigInt(), t.bigInt()))
}

// Neg returns -s mod order.
func (s Scalar) Neg() Scalar {
	return NewScalar(new(big.Int).Neg(s.bigInt()))
}

// Inverse returns the multiplicative inverse of s mod order. s must be
// nonzero.
func (s Scalar) Inverse() Scalar {
	return NewScalar(new(big.Int).ModInverse(s.bigInt(), order))
}

// Equal reports whether s and t are the same residue.
func (s Scalar) Equal(t Scalar) bool {
	return s.bigInt().Cmp(t.bigInt()) == 0
}

// Uint64 returns the scalar's value truncated to 64 bits, used for decoding
// small plaintexts recovered from the decryption table.
func (s Scalar) Uint64() uint64 {
	return s.bigInt().Uint64()
}

// Bytes encodes the scalar as a 32-byte big-endian integer, per the
// protocol's external wire format.
func (s Scalar) Bytes() []byte {
	out := make([]byte, 32)
	b := s.bigInt().Bytes()
	copy(out[32-len(b):], b)
	return out
}

// ScalarFromBytes decodes a 32-byte big-endian integer into a Scalar.
func ScalarFromBytes(b []byte) Scalar {
	return NewScalar(new(big.Int).SetBytes(b))
}

func (s Scalar) bigInt() *big.Int {
	if s.v == nil {
		return big.NewInt(0)
	}
	return s.v
}
