// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

// Package ledger implements layer L6: the abstract append-only log every
// bank's state machine is driven by. spec.md deliberately treats the
// ledger as an external collaborator the core never assumes
// Byzantine-resilient consensus from ("ZooKeeper-style CP is sufficient
// and expected") — this package supplies that collaborator's contract
// plus two implementations banks and harnesses actually run against.
package ledger

import (
	"context"

	"github.com/solidus-project/solidus/ec"
	"github.com/solidus-project/solidus/types"
)

// EntryKind tags which half of a transaction's lifecycle an Entry
// represents, mirroring spec.md §6's "Header, SenderUpdate, ReceiverUpdate
// variants."
type EntryKind int

const (
	EntryHeader EntryKind = iota
	EntrySenderUpdate
	EntryReceiverUpdate
)

// Entry is one record posted to the ledger. TxID is H(TransactionRequest),
// constant across all three of a transaction's entries so observers can
// correlate them. BankKey identifies whose PVORM an update entry applies
// to; it is unset for EntryHeader.
type Entry struct {
	TxID    [32]byte
	Kind    EntryKind
	Header  *types.TransactionHeader
	Update  *types.PVORMUpdate
	BankKey ec.Point
}

// SeqEntry pairs an Entry with the sequence number the ledger assigned it.
type SeqEntry struct {
	SeqNo uint64
	Entry Entry
}

// Ledger is the abstract driver interface of spec.md §4.6: total-order
// append, conditional append for claiming the next transaction slot, and
// a monotone, at-least-once subscription feed.
type Ledger interface {
	// Append adds entry to the end of the log unconditionally and returns
	// its assigned sequence number.
	Append(ctx context.Context, entry Entry) (uint64, error)

	// CasAppend adds entry only if the log's current length equals
	// expectedPrevSeq, returning LedgerConflict otherwise so the caller
	// can retry against the new tip.
	CasAppend(ctx context.Context, expectedPrevSeq uint64, entry Entry) (uint64, error)

	// Subscribe streams every entry with sequence number > fromSeq, in
	// order, until ctx is canceled. Delivery is at-least-once: callers
	// must treat re-delivery of an already-applied entry as a no-op.
	Subscribe(ctx context.Context, fromSeq uint64) (<-chan SeqEntry, error)
}
