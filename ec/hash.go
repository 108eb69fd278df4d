// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package ec

import "crypto/sha256"

// HashToScalarBytes folds arbitrary bytes into a 32-byte digest suitable
// for ScalarFromBytes, used wherever the protocol needs a deterministic
// group element derived from non-group-element data (an account's ORAM
// key from its public key).
func HashToScalarBytes(data ...[]byte) []byte {
	h := sha256.New()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}
