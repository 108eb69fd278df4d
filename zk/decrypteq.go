// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package zk

import "github.com/solidus-project/solidus/ec"

const kindDecryptEq = "solidus/decrypt-eq/v1"

// DecryptEqProof proves that two ciphertexts encrypted under the same
// public key carry the same plaintext, using the secret key behind that
// public key as witness rather than a randomizer difference. PlaintextEqProof
// needs the prover to know both ciphertexts' randomizers; a bank proving its
// own PVORM slot's key plaintext matches a counterparty-supplied commitment
// (DestAccountCiphertext, most notably) never received that commitment's
// randomizer, only its own bank key, which is exactly the witness this proof
// requires instead.
type DecryptEqProof struct {
	inner DLEQProof
}

// ProveDecryptEq proves ct and ctPrime, both encrypted under pk, carry the
// same plaintext, given sk such that pk = sk*G.
func ProveDecryptEq(pk ec.Point, ct, ctPrime ec.Ciphertext, sk ec.Scalar) (DecryptEqProof, error) {
	deltaC1 := ct.C1.Sub(ctPrime.C1)
	deltaC2 := ct.C2.Sub(ctPrime.C2)
	proof, err := ProveDLEQ(kindDecryptEq, ec.BasePoint(), pk, deltaC1, deltaC2, sk)
	if err != nil {
		return DecryptEqProof{}, err
	}
	return DecryptEqProof{inner: proof}, nil
}

// Verify checks the proof against the two ciphertexts and the public key
// they are both supposedly encrypted under. No secret key is needed: the
// DLEQ equations are checked against the public statement alone.
func (p DecryptEqProof) Verify(pk ec.Point, ct, ctPrime ec.Ciphertext) bool {
	deltaC1 := ct.C1.Sub(ctPrime.C1)
	deltaC2 := ct.C2.Sub(ctPrime.C2)
	return p.inner.Verify(kindDecryptEq, ec.BasePoint(), pk, deltaC1, deltaC2)
}
