// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package types

import (
	"encoding/binary"

	"github.com/solidus-project/solidus/ec"
	"github.com/solidus-project/solidus/zk"

	solidus "github.com/solidus-project/solidus"
)

// Every on-ledger object is length-prefixed and point-compressed, per the
// protocol's external interface: each variable-length field is preceded
// by a 4-byte big-endian length so a parser never has to guess where one
// field ends and the next begins.

func writeLP(out []byte, field []byte) []byte {
	var lp [4]byte
	binary.BigEndian.PutUint32(lp[:], uint32(len(field)))
	out = append(out, lp[:]...)
	return append(out, field...)
}

func readLP(b []byte) ([]byte, []byte, error) {
	if len(b) < 4 {
		return nil, nil, solidus.NewError(solidus.MalformedEncoding, "truncated length prefix")
	}
	n := binary.BigEndian.Uint32(b)
	b = b[4:]
	if uint32(len(b)) < n {
		return nil, nil, solidus.NewError(solidus.MalformedEncoding, "truncated length-prefixed field")
	}
	return b[:n], b[n:], nil
}

// Bytes encodes a TransactionRequest: sourceBankKey, destBankKey,
// destAccountCiphertext, valueCiphertext, an 8-byte big-endian timestamp,
// the sender's account public key, and the signature, each length-prefixed.
func (r *TransactionRequest) Bytes() []byte {
	var out []byte
	out = writeLP(out, r.SourceBankKey.Compress())
	out = writeLP(out, r.DestBankKey.Compress())
	out = writeLP(out, r.DestAccountCiphertext.Bytes())
	out = writeLP(out, r.ValueCiphertext.Bytes())
	var ts [8]byte
	putUint64(ts[:], r.Timestamp)
	out = writeLP(out, ts[:])
	out = writeLP(out, r.SenderAccountPublicKey.Compress())
	out = writeLP(out, r.Signature)
	return out
}

// TransactionRequestFromBytes decodes a TransactionRequest encoded by Bytes.
func TransactionRequestFromBytes(b []byte) (*TransactionRequest, error) {
	var r TransactionRequest
	var field []byte
	var err error

	if field, b, err = readLP(b); err != nil {
		return nil, err
	}
	if r.SourceBankKey, err = ec.DecompressPoint(field); err != nil {
		return nil, err
	}
	if field, b, err = readLP(b); err != nil {
		return nil, err
	}
	if r.DestBankKey, err = ec.DecompressPoint(field); err != nil {
		return nil, err
	}
	if field, b, err = readLP(b); err != nil {
		return nil, err
	}
	if r.DestAccountCiphertext, err = ec.CiphertextFromBytes(field); err != nil {
		return nil, err
	}
	if field, b, err = readLP(b); err != nil {
		return nil, err
	}
	if r.ValueCiphertext, err = ec.CiphertextFromBytes(field); err != nil {
		return nil, err
	}
	if field, b, err = readLP(b); err != nil {
		return nil, err
	}
	if len(field) != 8 {
		return nil, solidus.NewError(solidus.MalformedEncoding, "timestamp field must be 8 bytes")
	}
	r.Timestamp = getUint64(field)
	if field, b, err = readLP(b); err != nil {
		return nil, err
	}
	if r.SenderAccountPublicKey, err = ec.DecompressPoint(field); err != nil {
		return nil, err
	}
	if field, _, err = readLP(b); err != nil {
		return nil, err
	}
	r.Signature = append([]byte{}, field...)
	return &r, nil
}

// Bytes encodes a TransactionHeader: the request followed by the range
// proof, the two re-encrypted value ciphertexts, and the two linking
// proofs, each length-prefixed.
func (h *TransactionHeader) Bytes() []byte {
	var out []byte
	out = writeLP(out, h.Request.Bytes())
	out = writeLP(out, h.RangeProof.Bytes())
	out = writeLP(out, h.SenderRerandomizedValue.Bytes())
	out = writeLP(out, h.ReceiverValue.Bytes())
	out = writeLP(out, h.RerandomizeProof.Bytes())
	out = writeLP(out, h.CrossKeyProof.Bytes())
	return out
}

// TransactionHeaderFromBytes decodes a TransactionHeader encoded by Bytes.
func TransactionHeaderFromBytes(b []byte) (*TransactionHeader, error) {
	var h TransactionHeader
	var field []byte
	var err error

	if field, b, err = readLP(b); err != nil {
		return nil, err
	}
	req, err := TransactionRequestFromBytes(field)
	if err != nil {
		return nil, err
	}
	h.Request = *req

	if field, b, err = readLP(b); err != nil {
		return nil, err
	}
	if h.RangeProof, _, err = zk.MaxwellRangeProofFromBytes(field); err != nil {
		return nil, err
	}

	if field, b, err = readLP(b); err != nil {
		return nil, err
	}
	if h.SenderRerandomizedValue, err = ec.CiphertextFromBytes(field); err != nil {
		return nil, err
	}

	if field, b, err = readLP(b); err != nil {
		return nil, err
	}
	if h.ReceiverValue, err = ec.CiphertextFromBytes(field); err != nil {
		return nil, err
	}

	if field, b, err = readLP(b); err != nil {
		return nil, err
	}
	if h.RerandomizeProof, _, err = zk.PlaintextEqProofFromBytes(field); err != nil {
		return nil, err
	}

	if field, _, err = readLP(b); err != nil {
		return nil, err
	}
	if h.CrossKeyProof, _, err = zk.PlaintextEqDisKeyProofFromBytes(field); err != nil {
		return nil, err
	}

	return &h, nil
}
