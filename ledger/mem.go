// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package ledger

import (
	"context"
	"sync"

	solidus "github.com/solidus-project/solidus"
)

// MemLedger is an in-memory Ledger: a mutex-guarded slice plus a
// broadcast-on-append wakeup, used by bankharness and the package's own
// unit tests where durability across a process restart is never needed.
type MemLedger struct {
	mu      sync.Mutex
	entries []SeqEntry
	notify  chan struct{}
}

// NewMemLedger returns an empty in-memory ledger.
func NewMemLedger() *MemLedger {
	return &MemLedger{notify: make(chan struct{})}
}

func (l *MemLedger) appendLocked(e Entry) uint64 {
	seq := uint64(len(l.entries)) + 1
	l.entries = append(l.entries, SeqEntry{SeqNo: seq, Entry: e})
	close(l.notify)
	l.notify = make(chan struct{})
	return seq
}

// Append implements Ledger.
func (l *MemLedger) Append(ctx context.Context, e Entry) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.appendLocked(e), nil
}

// CasAppend implements Ledger.
func (l *MemLedger) CasAppend(ctx context.Context, expectedPrevSeq uint64, e Entry) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if uint64(len(l.entries)) != expectedPrevSeq {
		return 0, solidus.NewConflictError(expectedPrevSeq, uint64(len(l.entries)))
	}
	return l.appendLocked(e), nil
}

// Subscribe implements Ledger. The returned channel is closed when ctx is
// canceled; the delivering goroutine never blocks past that point.
func (l *MemLedger) Subscribe(ctx context.Context, fromSeq uint64) (<-chan SeqEntry, error) {
	out := make(chan SeqEntry, 16)
	go func() {
		defer close(out)
		next := fromSeq + 1
		for {
			l.mu.Lock()
			for uint64(len(l.entries)) < next {
				waitCh := l.notify
				l.mu.Unlock()
				select {
				case <-ctx.Done():
					return
				case <-waitCh:
				}
				l.mu.Lock()
			}
			e := l.entries[next-1]
			l.mu.Unlock()

			select {
			case out <- e:
			case <-ctx.Done():
				return
			}
			next++
		}
	}()
	return out, nil
}
