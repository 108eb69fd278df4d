// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package zk

import "github.com/solidus-project/solidus/ec"

// MaxwellRangeProof proves that some ciphertext (recoverable by summing
// BitCiphertexts homomorphically) encrypts a value in [0, 2^len(bits)),
// via binary decomposition: each bit ciphertext is proven, with an
// OrProof, to encrypt either 0 or 1, and the verifier recombines the bits
// to recover the ciphertext the range claim is actually about. Named for
// Gregory Maxwell's Confidential Transactions range proof, whose
// bit-commitment structure this follows.
type MaxwellRangeProof struct {
	BitCiphertexts []ec.Ciphertext
	BitProofs      []OrProof
}

// ProveRange produces a range proof that value fits in `bits` bits,
// together with the ciphertext of value under pk that the proof attests
// to (the caller stores this ciphertext as the PVORM slot or amount
// field; the proof travels alongside it) and the ciphertext's effective
// combined randomizer, needed by any further proof (rerandomization,
// cross-key linking) built on top of this exact ciphertext.
func ProveRange(pk ec.Point, value uint64, bits int) (MaxwellRangeProof, ec.Ciphertext, ec.Scalar, error) {
	proof := MaxwellRangeProof{
		BitCiphertexts: make([]ec.Ciphertext, bits),
		BitProofs:      make([]OrProof, bits),
	}
	rTotal := ec.ZeroScalar()

	for i := 0; i < bits; i++ {
		bit := (value >> uint(i)) & 1
		r, err := ec.RandomScalar()
		if err != nil {
			return MaxwellRangeProof{}, ec.Ciphertext{}, ec.Scalar{}, err
		}
		weight := ec.ScalarFromUint64(uint64(1) << uint(i))
		rTotal = rTotal.Add(r.Mul(weight))

		ct := ec.Encrypt(pk, ec.ScalarFromUint64(bit), r)
		proof.BitCiphertexts[i] = ct

		s0 := DLEQStatement{P1: ec.BasePoint(), Q1: ct.C1, P2: pk, Q2: ct.C2}
		s1 := DLEQStatement{P1: ec.BasePoint(), Q1: ct.C1, P2: pk, Q2: ct.C2.Sub(ec.BasePoint())}

		var or OrProof
		if bit == 0 {
			or, err = ProveOr(s0, s1, 0, r)
		} else {
			or, err = ProveOr(s0, s1, 1, r)
		}
		if err != nil {
			return MaxwellRangeProof{}, ec.Ciphertext{}, ec.Scalar{}, err
		}
		proof.BitProofs[i] = or
	}

	return proof, proof.Ciphertext(), rTotal, nil
}

// ProveRangeWithTotal is ProveRange constrained to land on a specific
// combined randomizer instead of a fresh one, so the resulting ciphertext
// is forced to equal a value the caller already committed to elsewhere
// (PVORM's posterior balance ciphertext, which is always the prior
// balance ciphertext homomorphically combined with a delta whose
// randomizer the caller already knows) rather than an independently
// randomized ciphertext the caller would then need a second proof to
// link back to. All but the top bit's randomizer are drawn fresh; the
// top bit's randomizer is solved for so the weighted sum equals total,
// using that 2^(bits-1) is invertible mod the curve order.
func ProveRangeWithTotal(pk ec.Point, value uint64, bits int, total ec.Scalar) (MaxwellRangeProof, error) {
	if bits <= 0 {
		return MaxwellRangeProof{}, nil
	}
	proof := MaxwellRangeProof{
		BitCiphertexts: make([]ec.Ciphertext, bits),
		BitProofs:      make([]OrProof, bits),
	}

	rs := make([]ec.Scalar, bits)
	partial := ec.ZeroScalar()
	for i := 0; i < bits-1; i++ {
		r, err := ec.RandomScalar()
		if err != nil {
			return MaxwellRangeProof{}, err
		}
		rs[i] = r
		weight := ec.ScalarFromUint64(uint64(1) << uint(i))
		partial = partial.Add(r.Mul(weight))
	}
	topWeight := ec.ScalarFromUint64(uint64(1) << uint(bits-1))
	rs[bits-1] = total.Sub(partial).Mul(topWeight.Inverse())

	for i := 0; i < bits; i++ {
		bit := (value >> uint(i)) & 1
		r := rs[i]
		ct := ec.Encrypt(pk, ec.ScalarFromUint64(bit), r)
		proof.BitCiphertexts[i] = ct

		s0 := DLEQStatement{P1: ec.BasePoint(), Q1: ct.C1, P2: pk, Q2: ct.C2}
		s1 := DLEQStatement{P1: ec.BasePoint(), Q1: ct.C1, P2: pk, Q2: ct.C2.Sub(ec.BasePoint())}

		var (
			or  OrProof
			err error
		)
		if bit == 0 {
			or, err = ProveOr(s0, s1, 0, r)
		} else {
			or, err = ProveOr(s0, s1, 1, r)
		}
		if err != nil {
			return MaxwellRangeProof{}, err
		}
		proof.BitProofs[i] = or
	}

	return proof, nil
}

// Ciphertext recomposes the full-value ciphertext by homomorphically
// summing the weighted bit ciphertexts.
func (p MaxwellRangeProof) Ciphertext() ec.Ciphertext {
	acc := ec.Ciphertext{C1: ec.InfinityPoint(), C2: ec.InfinityPoint()}
	for i, bc := range p.BitCiphertexts {
		weight := ec.ScalarFromUint64(uint64(1) << uint(i))
		acc = acc.Add(bc.ScalarMul(weight))
	}
	return acc
}

// Verify checks every bit proof against the account key pk and that the
// claimed ciphertext matches the homomorphic recombination of the bits.
func (p MaxwellRangeProof) Verify(pk ec.Point, claimed ec.Ciphertext) bool {
	if len(p.BitCiphertexts) != len(p.BitProofs) {
		return false
	}
	if !p.Ciphertext().Equal(claimed) {
		return false
	}
	for i, bc := range p.BitCiphertexts {
		s0 := DLEQStatement{P1: ec.BasePoint(), Q1: bc.C1, P2: pk, Q2: bc.C2}
		s1 := DLEQStatement{P1: ec.BasePoint(), Q1: bc.C1, P2: pk, Q2: bc.C2.Sub(ec.BasePoint())}
		if !p.BitProofs[i].Verify(s0, s1) {
			return false
		}
	}
	return true
}
