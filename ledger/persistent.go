// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package ledger

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/ipfs/go-datastore"

	"github.com/solidus-project/solidus/repo"

	solidus "github.com/solidus-project/solidus"
)

// PersistentLedger is a Ledger backed by repo.Datastore: badger in
// production, the mock map datastore in tests, where persistence is set
// up but never required to survive a real restart. It
// exists to demonstrate the driver contract ("append, casAppend,
// subscribe") is satisfiable by a crash-recoverable store, not just an
// in-memory one.
type PersistentLedger struct {
	ds     repo.Datastore
	prefix datastore.Key

	mu     sync.Mutex
	head   uint64
	notify chan struct{}
}

// NewPersistentLedger opens a ledger over ds, recovering its current
// length from whatever entries are already present.
func NewPersistentLedger(ctx context.Context, ds repo.Datastore) (*PersistentLedger, error) {
	l := &PersistentLedger{
		ds:     ds,
		prefix: datastore.NewKey("/solidus/ledger"),
		notify: make(chan struct{}),
	}
	head, err := l.readHead(ctx)
	if err != nil {
		return nil, err
	}
	l.head = head
	return l, nil
}

func (l *PersistentLedger) headKey() datastore.Key {
	return l.prefix.ChildString("head")
}

func (l *PersistentLedger) entryKey(seq uint64) datastore.Key {
	return l.prefix.ChildString(fmt.Sprintf("entry/%020d", seq))
}

func (l *PersistentLedger) readHead(ctx context.Context) (uint64, error) {
	v, err := l.ds.Get(ctx, l.headKey())
	if err == datastore.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(v) != 8 {
		return 0, solidus.NewError(solidus.MalformedEncoding, "corrupt ledger head record")
	}
	return binary.BigEndian.Uint64(v), nil
}

func (l *PersistentLedger) appendLocked(ctx context.Context, e Entry) (uint64, error) {
	seq := l.head + 1
	if err := l.ds.Put(ctx, l.entryKey(seq), e.Bytes()); err != nil {
		return 0, err
	}
	var headBytes [8]byte
	binary.BigEndian.PutUint64(headBytes[:], seq)
	if err := l.ds.Put(ctx, l.headKey(), headBytes[:]); err != nil {
		return 0, err
	}
	l.head = seq
	close(l.notify)
	l.notify = make(chan struct{})
	return seq, nil
}

// Append implements Ledger.
func (l *PersistentLedger) Append(ctx context.Context, e Entry) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.appendLocked(ctx, e)
}

// CasAppend implements Ledger.
func (l *PersistentLedger) CasAppend(ctx context.Context, expectedPrevSeq uint64, e Entry) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.head != expectedPrevSeq {
		return 0, solidus.NewConflictError(expectedPrevSeq, l.head)
	}
	return l.appendLocked(ctx, e)
}

func (l *PersistentLedger) readEntry(ctx context.Context, seq uint64) (SeqEntry, error) {
	v, err := l.ds.Get(ctx, l.entryKey(seq))
	if err != nil {
		return SeqEntry{}, err
	}
	e, err := EntryFromBytes(v)
	if err != nil {
		return SeqEntry{}, err
	}
	return SeqEntry{SeqNo: seq, Entry: e}, nil
}

// Subscribe implements Ledger, replaying persisted entries from disk and
// switching to the in-process wakeup channel once it catches up to head.
func (l *PersistentLedger) Subscribe(ctx context.Context, fromSeq uint64) (<-chan SeqEntry, error) {
	out := make(chan SeqEntry, 16)
	go func() {
		defer close(out)
		next := fromSeq + 1
		for {
			l.mu.Lock()
			for l.head < next {
				waitCh := l.notify
				l.mu.Unlock()
				select {
				case <-ctx.Done():
					return
				case <-waitCh:
				}
				l.mu.Lock()
			}
			l.mu.Unlock()

			se, err := l.readEntry(ctx, next)
			if err != nil {
				return
			}
			select {
			case out <- se:
			case <-ctx.Done():
				return
			}
			next++
		}
	}()
	return out, nil
}
