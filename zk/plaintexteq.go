// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package zk

import "github.com/solidus-project/solidus/ec"

const kindPlaintextEq = "solidus/plaintext-eq/v1"

// PlaintextEqProof proves that two ciphertexts encrypted under the same
// account key carry the same plaintext, without revealing it. The
// transaction header uses this to show its SenderRerandomizedValue is a
// re-encryption of the request's ValueCiphertext: both must provably
// carry the same amount.
type PlaintextEqProof struct {
	inner DLEQProof
}

// ProvePlaintextEq proves ct and ctPrime both decrypt, under pk, to the
// same value, given the prover's knowledge of both randomizers and the
// shared plaintext is implicit (only the randomizer difference rDelta is
// needed as witness, since the plaintexts cancel in the delta ciphertext).
func ProvePlaintextEq(pk ec.Point, ct, ctPrime ec.Ciphertext, rDelta ec.Scalar) (PlaintextEqProof, error) {
	deltaC1 := ct.C1.Sub(ctPrime.C1)
	deltaC2 := ct.C2.Sub(ctPrime.C2)
	proof, err := ProveDLEQ(kindPlaintextEq, ec.BasePoint(), deltaC1, pk, deltaC2, rDelta)
	if err != nil {
		return PlaintextEqProof{}, err
	}
	return PlaintextEqProof{inner: proof}, nil
}

// Verify checks the proof against the two ciphertexts and the account key
// they are both supposedly encrypted under.
func (p PlaintextEqProof) Verify(pk ec.Point, ct, ctPrime ec.Ciphertext) bool {
	deltaC1 := ct.C1.Sub(ctPrime.C1)
	deltaC2 := ct.C2.Sub(ctPrime.C2)
	return p.inner.Verify(kindPlaintextEq, ec.BasePoint(), deltaC1, pk, deltaC2)
}
