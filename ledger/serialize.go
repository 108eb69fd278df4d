// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package ledger

import (
	"encoding/binary"

	"github.com/solidus-project/solidus/ec"
	"github.com/solidus-project/solidus/types"

	solidus "github.com/solidus-project/solidus"
)

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

// Bytes encodes an Entry for persistence: its transaction ID, kind tag,
// and whichever of Header/Update/BankKey that kind carries.
func (e Entry) Bytes() []byte {
	out := append([]byte{}, e.TxID[:]...)
	var kind [4]byte
	binary.BigEndian.PutUint32(kind[:], uint32(e.Kind))
	out = append(out, kind[:]...)

	switch e.Kind {
	case EntryHeader:
		out = writeLP(out, e.Header.Bytes())
	case EntrySenderUpdate, EntryReceiverUpdate:
		out = writeLP(out, e.BankKey.Compress())
		out = writeLP(out, e.Update.Bytes())
	}
	return out
}

// EntryFromBytes decodes an Entry encoded by Bytes.
func EntryFromBytes(b []byte) (Entry, error) {
	var e Entry
	if len(b) < 36 {
		return Entry{}, solidus.NewError(solidus.MalformedEncoding, "truncated ledger entry")
	}
	copy(e.TxID[:], b[:32])
	e.Kind = EntryKind(binary.BigEndian.Uint32(b[32:36]))
	rest := b[36:]

	switch e.Kind {
	case EntryHeader:
		field, _, err := readLP(rest)
		if err != nil {
			return Entry{}, err
		}
		header, err := types.TransactionHeaderFromBytes(field)
		if err != nil {
			return Entry{}, err
		}
		e.Header = header

	case EntrySenderUpdate, EntryReceiverUpdate:
		field, rest2, err := readLP(rest)
		if err != nil {
			return Entry{}, err
		}
		bankKey, err := ec.DecompressPoint(field)
		if err != nil {
			return Entry{}, err
		}
		e.BankKey = bankKey

		if field, _, err = readLP(rest2); err != nil {
			return Entry{}, err
		}
		update, _, err := types.PVORMUpdateFromBytes(field)
		if err != nil {
			return Entry{}, err
		}
		e.Update = update

	default:
		return Entry{}, solidus.NewError(solidus.MalformedEncoding, "unknown ledger entry kind %d", e.Kind)
	}
	return e, nil
}
