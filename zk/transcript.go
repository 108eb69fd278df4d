// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

// Package zk is the protocol's proving layer. Where the teacher this
// package is descended from called out to an external SNARK prover for
// every statement, this package proves each statement directly with a
// Fiat-Shamir Sigma protocol over package ec: PlaintextEqProof,
// PlaintextEqDisKeyProof, OrProof, and MaxwellRangeProof, matching the
// generalized Schnorr toolkit the protocol is built on.
package zk

import (
	"crypto/sha256"

	"github.com/solidus-project/solidus/ec"
)

// challenge derives the Fiat-Shamir challenge scalar for a proof of the
// given kind over the listed transcript points. The kind string is a
// domain separator: two proof kinds that happen to commit to the same
// points must never share a challenge.
func challenge(kind string, pts ...ec.Point) ec.Scalar {
	h := sha256.New()
	h.Write([]byte(kind))
	for _, p := range pts {
		h.Write(p.Compress())
	}
	return ec.ScalarFromBytes(h.Sum(nil))
}
