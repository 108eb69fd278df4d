// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package zk

import "github.com/solidus-project/solidus/ec"

// DLEQProof is a generalized Schnorr proof of knowledge of a scalar r
// satisfying Q1 = r*P1 and Q2 = r*P2 simultaneously, without revealing r.
// It is the building block every other proof in this package composes:
// plaintext-equality reduces to a DLEQ over (G, ciphertext delta) and
// (account key, ciphertext delta); a range-proof bit check reduces to a
// DLEQ over (G, ciphertext) and (account key, ciphertext minus a claimed
// public value).
type DLEQProof struct {
	A1, A2 ec.Point
	Z      ec.Scalar
}

// ProveDLEQ proves knowledge of r such that Q1=r*P1, Q2=r*P2.
func ProveDLEQ(kind string, p1, q1, p2, q2 ec.Point, r ec.Scalar) (DLEQProof, error) {
	k, err := ec.RandomScalar()
	if err != nil {
		return DLEQProof{}, err
	}
	a1 := p1.ScalarMult(k)
	a2 := p2.ScalarMult(k)
	e := challenge(kind, p1, q1, p2, q2, a1, a2)
	z := k.Add(e.Mul(r))
	return DLEQProof{A1: a1, A2: a2, Z: z}, nil
}

// Verify checks the proof against the claimed statement (P1, Q1, P2, Q2).
func (pr DLEQProof) Verify(kind string, p1, q1, p2, q2 ec.Point) bool {
	e := challenge(kind, p1, q1, p2, q2, pr.A1, pr.A2)
	return pr.checkEquations(p1, q1, p2, q2, e)
}

// checkEquations verifies the proof's two Schnorr equations against an
// externally supplied challenge rather than one derived by hashing the
// transcript. OrProof needs this: each branch's challenge is only fixed as
// a share of the combined challenge, not independently Fiat-Shamir-derived.
func (pr DLEQProof) checkEquations(p1, q1, p2, q2 ec.Point, e ec.Scalar) bool {
	lhs1 := p1.ScalarMult(pr.Z)
	rhs1 := pr.A1.Add(q1.ScalarMult(e))
	if !lhs1.Equal(rhs1) {
		return false
	}
	lhs2 := p2.ScalarMult(pr.Z)
	rhs2 := pr.A2.Add(q2.ScalarMult(e))
	return lhs2.Equal(rhs2)
}

// simulateDLEQ produces a proof transcript for a false statement given a
// chosen challenge e, without knowledge of r. Used as the "other branch"
// of an OrProof: the verification equations are satisfied by construction,
// but only because e was picked freely instead of derived from the
// transcript hash.
func simulateDLEQ(p1, q1, p2, q2 ec.Point, e, z ec.Scalar) DLEQProof {
	a1 := p1.ScalarMult(z).Sub(q1.ScalarMult(e))
	a2 := p2.ScalarMult(z).Sub(q2.ScalarMult(e))
	return DLEQProof{A1: a1, A2: a2, Z: z}
}
