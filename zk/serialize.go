// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package zk

import (
	"encoding/binary"

	"github.com/solidus-project/solidus/ec"

	solidus "github.com/solidus-project/solidus"
)

// Bytes encodes a DLEQProof as two compressed points followed by one
// 32-byte scalar, per the protocol's point-compressed wire format.
func (pr DLEQProof) Bytes() []byte {
	out := append([]byte{}, pr.A1.Compress()...)
	out = append(out, pr.A2.Compress()...)
	out = append(out, pr.Z.Bytes()...)
	return out
}

// DLEQProofFromBytes decodes a DLEQProof and reports how many bytes it
// consumed, so callers assembling larger structures can keep decoding from
// where this proof ended.
func DLEQProofFromBytes(b []byte) (DLEQProof, int, error) {
	a1, n1, err := decompressPointPrefixed(b)
	if err != nil {
		return DLEQProof{}, 0, err
	}
	a2, n2, err := decompressPointPrefixed(b[n1:])
	if err != nil {
		return DLEQProof{}, 0, err
	}
	off := n1 + n2
	if len(b) < off+32 {
		return DLEQProof{}, 0, solidus.NewError(solidus.MalformedEncoding, "truncated DLEQProof")
	}
	z := ec.ScalarFromBytes(b[off : off+32])
	return DLEQProof{A1: a1, A2: a2, Z: z}, off + 32, nil
}

func decompressPointPrefixed(b []byte) (ec.Point, int, error) {
	n := pointEncodingLenZk(b)
	if n < 0 || n > len(b) {
		return ec.Point{}, 0, solidus.NewError(solidus.MalformedEncoding, "malformed point encoding")
	}
	p, err := ec.DecompressPoint(b[:n])
	if err != nil {
		return ec.Point{}, 0, err
	}
	return p, n, nil
}

func pointEncodingLenZk(b []byte) int {
	if len(b) == 0 {
		return -1
	}
	if b[0] == 0x00 {
		return 1
	}
	if b[0] == 0x02 || b[0] == 0x03 {
		return 33
	}
	return -1
}

// Bytes encodes a PlaintextEqProof.
func (p PlaintextEqProof) Bytes() []byte { return p.inner.Bytes() }

// PlaintextEqProofFromBytes decodes a PlaintextEqProof.
func PlaintextEqProofFromBytes(b []byte) (PlaintextEqProof, int, error) {
	d, n, err := DLEQProofFromBytes(b)
	if err != nil {
		return PlaintextEqProof{}, 0, err
	}
	return PlaintextEqProof{inner: d}, n, nil
}

// Bytes encodes a PlaintextEqDisKeyProof as four compressed points
// followed by three 32-byte scalars.
func (p PlaintextEqDisKeyProof) Bytes() []byte {
	out := append([]byte{}, p.A1.Compress()...)
	out = append(out, p.A2.Compress()...)
	out = append(out, p.B1.Compress()...)
	out = append(out, p.B2.Compress()...)
	out = append(out, p.Zw.Bytes()...)
	out = append(out, p.Zu1.Bytes()...)
	out = append(out, p.Zu2.Bytes()...)
	return out
}

// PlaintextEqDisKeyProofFromBytes decodes a PlaintextEqDisKeyProof.
func PlaintextEqDisKeyProofFromBytes(b []byte) (PlaintextEqDisKeyProof, int, error) {
	var pts [4]ec.Point
	off := 0
	for i := range pts {
		p, n, err := decompressPointPrefixed(b[off:])
		if err != nil {
			return PlaintextEqDisKeyProof{}, 0, err
		}
		pts[i] = p
		off += n
	}
	if len(b) < off+96 {
		return PlaintextEqDisKeyProof{}, 0, solidus.NewError(solidus.MalformedEncoding, "truncated PlaintextEqDisKeyProof")
	}
	zw := ec.ScalarFromBytes(b[off : off+32])
	zu1 := ec.ScalarFromBytes(b[off+32 : off+64])
	zu2 := ec.ScalarFromBytes(b[off+64 : off+96])
	return PlaintextEqDisKeyProof{
		A1: pts[0], A2: pts[1], B1: pts[2], B2: pts[3],
		Zw: zw, Zu1: zu1, Zu2: zu2,
	}, off + 96, nil
}

// Bytes encodes a DecryptEqProof.
func (p DecryptEqProof) Bytes() []byte { return p.inner.Bytes() }

// DecryptEqProofFromBytes decodes a DecryptEqProof.
func DecryptEqProofFromBytes(b []byte) (DecryptEqProof, int, error) {
	d, n, err := DLEQProofFromBytes(b)
	if err != nil {
		return DecryptEqProof{}, 0, err
	}
	return DecryptEqProof{inner: d}, n, nil
}

// Bytes encodes an OrProof as its two branch DLEQProofs followed by the
// two challenge shares.
func (p OrProof) Bytes() []byte {
	out := append([]byte{}, p.Branch0.Bytes()...)
	out = append(out, p.Branch1.Bytes()...)
	out = append(out, p.E0.Bytes()...)
	out = append(out, p.E1.Bytes()...)
	return out
}

// OrProofFromBytes decodes an OrProof.
func OrProofFromBytes(b []byte) (OrProof, int, error) {
	b0, n0, err := DLEQProofFromBytes(b)
	if err != nil {
		return OrProof{}, 0, err
	}
	b1, n1, err := DLEQProofFromBytes(b[n0:])
	if err != nil {
		return OrProof{}, 0, err
	}
	off := n0 + n1
	if len(b) < off+64 {
		return OrProof{}, 0, solidus.NewError(solidus.MalformedEncoding, "truncated OrProof")
	}
	e0 := ec.ScalarFromBytes(b[off : off+32])
	e1 := ec.ScalarFromBytes(b[off+32 : off+64])
	return OrProof{Branch0: b0, Branch1: b1, E0: e0, E1: e1}, off + 64, nil
}

// Bytes encodes a MaxwellRangeProof as a 4-byte bit count followed by each
// bit's ciphertext and OrProof in turn.
func (p MaxwellRangeProof) Bytes() []byte {
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, uint32(len(p.BitCiphertexts)))
	for i := range p.BitCiphertexts {
		out = append(out, p.BitCiphertexts[i].Bytes()...)
		out = append(out, p.BitProofs[i].Bytes()...)
	}
	return out
}

// MaxwellRangeProofFromBytes decodes a MaxwellRangeProof.
func MaxwellRangeProofFromBytes(b []byte) (MaxwellRangeProof, int, error) {
	if len(b) < 4 {
		return MaxwellRangeProof{}, 0, solidus.NewError(solidus.MalformedEncoding, "truncated MaxwellRangeProof header")
	}
	count := int(binary.BigEndian.Uint32(b))
	off := 4
	proof := MaxwellRangeProof{
		BitCiphertexts: make([]ec.Ciphertext, count),
		BitProofs:      make([]OrProof, count),
	}
	for i := 0; i < count; i++ {
		c1, n1, err := decompressPointPrefixed(b[off:])
		if err != nil {
			return MaxwellRangeProof{}, 0, err
		}
		off += n1
		c2, n2, err := decompressPointPrefixed(b[off:])
		if err != nil {
			return MaxwellRangeProof{}, 0, err
		}
		off += n2
		proof.BitCiphertexts[i] = ec.Ciphertext{C1: c1, C2: c2}

		or, n3, err := OrProofFromBytes(b[off:])
		if err != nil {
			return MaxwellRangeProof{}, 0, err
		}
		off += n3
		proof.BitProofs[i] = or
	}
	return proof, off, nil
}
