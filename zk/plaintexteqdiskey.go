// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package zk

import "github.com/solidus-project/solidus/ec"

const kindPlaintextEqDisKey = "solidus/plaintext-eq-dis-key/v1"

// PlaintextEqDisKeyProof proves that two ciphertexts encrypted under
// *different* account keys carry the same plaintext. The transaction
// protocol uses this to tie the sender's debited amount to the receiver's
// credited amount across their two independent PVORMs without ever
// decrypting either.
type PlaintextEqDisKeyProof struct {
	A1, A2, B1, B2 ec.Point
	Zw, Zu1, Zu2   ec.Scalar
}

// ProvePlaintextEqDisKey proves that ct (under pk1, randomizer r1) and
// ctPrime (under pk2, randomizer r2) both encrypt m.
func ProvePlaintextEqDisKey(pk1, pk2 ec.Point, ct, ctPrime ec.Ciphertext, m, r1, r2 ec.Scalar) (PlaintextEqDisKeyProof, error) {
	w, err := ec.RandomScalar()
	if err != nil {
		return PlaintextEqDisKeyProof{}, err
	}
	u1, err := ec.RandomScalar()
	if err != nil {
		return PlaintextEqDisKeyProof{}, err
	}
	u2, err := ec.RandomScalar()
	if err != nil {
		return PlaintextEqDisKeyProof{}, err
	}

	a1 := ec.ScalarBaseMult(u1)
	a2 := ec.ScalarBaseMult(w).Add(pk1.ScalarMult(u1))
	b1 := ec.ScalarBaseMult(u2)
	b2 := ec.ScalarBaseMult(w).Add(pk2.ScalarMult(u2))

	e := challenge(kindPlaintextEqDisKey, pk1, pk2, ct.C1, ct.C2, ctPrime.C1, ctPrime.C2, a1, a2, b1, b2)

	return PlaintextEqDisKeyProof{
		A1: a1, A2: a2, B1: b1, B2: b2,
		Zw:  w.Add(e.Mul(m)),
		Zu1: u1.Add(e.Mul(r1)),
		Zu2: u2.Add(e.Mul(r2)),
	}, nil
}

// Verify checks the proof against the two account keys and ciphertexts.
func (p PlaintextEqDisKeyProof) Verify(pk1, pk2 ec.Point, ct, ctPrime ec.Ciphertext) bool {
	e := challenge(kindPlaintextEqDisKey, pk1, pk2, ct.C1, ct.C2, ctPrime.C1, ctPrime.C2, p.A1, p.A2, p.B1, p.B2)

	if !ec.ScalarBaseMult(p.Zu1).Equal(p.A1.Add(ct.C1.ScalarMult(e))) {
		return false
	}
	lhs2 := ec.ScalarBaseMult(p.Zw).Add(pk1.ScalarMult(p.Zu1))
	if !lhs2.Equal(p.A2.Add(ct.C2.ScalarMult(e))) {
		return false
	}
	if !ec.ScalarBaseMult(p.Zu2).Equal(p.B1.Add(ctPrime.C1.ScalarMult(e))) {
		return false
	}
	lhs4 := ec.ScalarBaseMult(p.Zw).Add(pk2.ScalarMult(p.Zu2))
	return lhs4.Equal(p.B2.Add(ctPrime.C2.ScalarMult(e)))
}
