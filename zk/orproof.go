// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package zk

import "github.com/solidus-project/solidus/ec"

const kindOr = "solidus/or-proof/v1"

// DLEQStatement names one side of a disjunction: knowledge of r such that
// Q1=r*P1 and Q2=r*P2.
type DLEQStatement struct {
	P1, Q1, P2, Q2 ec.Point
}

// OrProof is a Cramer-Damgard-Schoenmakers disjunctive proof over two
// DLEQStatements: the prover knows a witness for at least one branch, and
// the verifier learns nothing about which. PVORM uses this for every slot
// the eviction path passes through but does not necessarily write to: the
// slot's ciphertext is either unchanged (branch 0) or now holds the sunk
// value (branch 1).
type OrProof struct {
	Branch0, Branch1 DLEQProof
	E0, E1           ec.Scalar
}

// ProveOr proves s0 OR s1, given a real witness r for statement index
// realBranch (0 or 1).
func ProveOr(s0, s1 DLEQStatement, realBranch int, r ec.Scalar) (OrProof, error) {
	if realBranch == 0 {
		return proveOrReal(s0, s1, r, true)
	}
	return proveOrReal(s1, s0, r, false)
}

func proveOrReal(real, fake DLEQStatement, r ec.Scalar, realIsBranch0 bool) (OrProof, error) {
	fakeE, err := ec.RandomScalar()
	if err != nil {
		return OrProof{}, err
	}
	fakeZ, err := ec.RandomScalar()
	if err != nil {
		return OrProof{}, err
	}
	fakeProof := simulateDLEQ(fake.P1, fake.Q1, fake.P2, fake.Q2, fakeE, fakeZ)

	k, err := ec.RandomScalar()
	if err != nil {
		return OrProof{}, err
	}
	realA1 := real.P1.ScalarMult(k)
	realA2 := real.P2.ScalarMult(k)

	var e ec.Scalar
	if realIsBranch0 {
		e = challenge(kindOr, real.P1, real.Q1, real.P2, real.Q2, fake.P1, fake.Q1, fake.P2, fake.Q2,
			realA1, realA2, fakeProof.A1, fakeProof.A2)
	} else {
		e = challenge(kindOr, fake.P1, fake.Q1, fake.P2, fake.Q2, real.P1, real.Q1, real.P2, real.Q2,
			fakeProof.A1, fakeProof.A2, realA1, realA2)
	}

	realE := e.Sub(fakeE)
	realZ := k.Add(realE.Mul(r))
	realProof := DLEQProof{A1: realA1, A2: realA2, Z: realZ}

	if realIsBranch0 {
		return OrProof{Branch0: realProof, Branch1: fakeProof, E0: realE, E1: fakeE}, nil
	}
	return OrProof{Branch0: fakeProof, Branch1: realProof, E0: fakeE, E1: realE}, nil
}

// Verify checks that the proof is valid for s0 OR s1.
func (p OrProof) Verify(s0, s1 DLEQStatement) bool {
	e := challenge(kindOr, s0.P1, s0.Q1, s0.P2, s0.Q2, s1.P1, s1.Q1, s1.P2, s1.Q2,
		p.Branch0.A1, p.Branch0.A2, p.Branch1.A1, p.Branch1.A2)
	if !p.E0.Add(p.E1).Equal(e) {
		return false
	}
	if !p.Branch0.checkEquations(s0.P1, s0.Q1, s0.P2, s0.Q2, p.E0) {
		return false
	}
	return p.Branch1.checkEquations(s1.P1, s1.Q1, s1.P2, s1.Q2, p.E1)
}
