// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package ec

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"

	solidus "github.com/solidus-project/solidus"
)

// PrivateKey is an account or bank identity key. It is simultaneously the
// signing key that authorizes transaction requests and, via its public
// point, the key a PVORM slot is indexed and encrypted under.
type PrivateKey struct {
	key *btcec.PrivateKey
}

// GeneratePrivateKey creates a new random account/bank identity key.
func GeneratePrivateKey() (*PrivateKey, error) {
	k, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key: k}, nil
}

// PrivateKeyFromScalar builds a deterministic identity key from a known
// scalar, used by test harnesses and genesis account fixtures that need
// reproducible keys.
func PrivateKeyFromScalar(s Scalar) *PrivateKey {
	k, _ := btcec.PrivKeyFromBytes(s.Bytes())
	return &PrivateKey{key: k}
}

// Public returns the point Pa the rest of the protocol treats as this
// account's identity: both its signature-verification key and its PVORM
// key.
func (k *PrivateKey) Public() Point {
	pub := k.key.PubKey()
	return Point{x: pub.X(), y: pub.Y()}
}

// Scalar returns the underlying secret scalar, used to derive the ElGamal
// decryption key for slots stored under this account.
func (k *PrivateKey) Scalar() Scalar {
	return ScalarFromBytes(k.key.Serialize())
}

// Sign produces a BIP340-style Schnorr signature over a 32-byte digest,
// used to authorize a TransactionRequest.
func (k *PrivateKey) Sign(digest [32]byte) ([]byte, error) {
	sig, err := schnorr.Sign(k.key, digest[:])
	if err != nil {
		return nil, err
	}
	return sig.Serialize(), nil
}

// Verify checks a Schnorr signature produced by Sign against the account
// point pa.
func Verify(pa Point, digest [32]byte, sigBytes []byte) (bool, error) {
	sig, err := schnorr.ParseSignature(sigBytes)
	if err != nil {
		return false, solidus.Wrap(solidus.MalformedEncoding, err, "parsing schnorr signature")
	}
	pub, err := btcec.ParsePubKey(pa.Compress())
	if err != nil {
		// ParsePubKey accepts either Y parity; if it rejects the
		// encoding, retry with the even-Y (0x02) prefix over the same
		// x coordinate, since BIP340 verification depends only on x.
		evenY := make([]byte, 33)
		copy(evenY, pa.Compress())
		evenY[0] = 0x02
		pub, err = btcec.ParsePubKey(evenY)
		if err != nil {
			return false, solidus.Wrap(solidus.MalformedEncoding, err, "parsing account public key")
		}
	}
	return sig.Verify(digest[:], pub), nil
}
