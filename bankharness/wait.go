// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package bankharness

import (
	"context"
	"fmt"

	"github.com/solidus-project/solidus/bank"
)

// AwaitNextOutcome blocks until name's bank reports its next
// TransactionSettled or TransactionFailed event, or ctx is done. It
// exists because Bank.SubmitTransfer only enqueues a transfer;
// settlement is reported asynchronously on the bank's event stream, and
// scenario tests need a synchronous way to wait for it. A bank accepts
// at most one in-flight transaction at a time, but its stream also
// carries the outcomes of transfers it receives, so the event returned
// is the caller's own submission only when no incoming transfer
// settles or fails on that bank first.
func (h *Harness) AwaitNextOutcome(ctx context.Context, name string) (bank.Event, error) {
	b := h.Bank(name)
	if b == nil {
		return bank.Event{}, fmt.Errorf("bankharness: no bank named %q", name)
	}
	select {
	case ev := <-b.Events():
		return ev, nil
	case <-ctx.Done():
		return bank.Event{}, ctx.Err()
	}
}
