// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package zk

import "github.com/solidus-project/solidus/ec"

// EncodesValueStatement builds the DLEQ statement "ct encrypts value under
// pk": ct.C2 - value*G = r*pk for the same r satisfying ct.C1 = r*G. value
// must be a quantity both prover and verifier already agree on without
// either side needing a secret — in practice only the identity placeholder
// 0, since any other plaintext here would have to be disclosed to build
// the statement at all, defeating the point of encrypting it.
func EncodesValueStatement(pk ec.Point, ct ec.Ciphertext, value ec.Scalar) DLEQStatement {
	return DLEQStatement{
		P1: ec.BasePoint(), Q1: ct.C1,
		P2: pk, Q2: ct.C2.Sub(ec.ScalarBaseMult(value)),
	}
}

// SameValueStatement builds the DLEQ statement "ctB encrypts the same
// plaintext as ctA, under pk": their C1s differ by r*G and their C2s
// differ by r*pk for the same r, which can only hold if the m*G terms
// cancel. Unlike EncodesValueStatement this never needs either side to
// know the plaintext — only the two (public) ciphertexts — which is what
// makes it safe to use for PVORM slot contents a verifier must never
// learn. The witness is simply the difference of the two ciphertexts' own
// randomizers, something only the slots' owner ever holds.
func SameValueStatement(pk ec.Point, ctA, ctB ec.Ciphertext) DLEQStatement {
	return DLEQStatement{
		P1: ec.BasePoint(), Q1: ctB.C1.Sub(ctA.C1),
		P2: pk, Q2: ctB.C2.Sub(ctA.C2),
	}
}
