// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

// Package solidus holds the error taxonomy shared by every layer of the
// protocol. It sits at the bottom of the import graph: every other package
// may import it, it imports nothing of its own.
package solidus

import (
	"errors"
	"fmt"
)

// Kind enumerates the error classes an implementation must be able to
// distinguish, per the protocol's error handling design.
type Kind int

const (
	// OutOfRange is returned when a plaintext value (balance, amount,
	// nonce) falls outside the range a range proof can attest to.
	OutOfRange Kind = iota
	// InvalidProof is returned when a Sigma-protocol proof fails
	// verification against its claimed statement.
	InvalidProof
	// InvalidSignature is returned when an account or bank signature
	// does not verify against the claimed key.
	InvalidSignature
	// ReplayedNonce is returned when a request nonce is not strictly
	// greater than the last nonce accepted for that account.
	ReplayedNonce
	// StashOverflow is returned when a PVORM eviction would exceed the
	// stash capacity bound.
	StashOverflow
	// LedgerConflict is returned by a casAppend when the expected
	// prior sequence number no longer matches the ledger tip.
	LedgerConflict
	// MalformedEncoding is returned when a byte string fails to parse
	// under the external wire format.
	MalformedEncoding
)

func (k Kind) String() string {
	switch k {
	case OutOfRange:
		return "out of range"
	case InvalidProof:
		return "invalid proof"
	case InvalidSignature:
		return "invalid signature"
	case ReplayedNonce:
		return "replayed nonce"
	case StashOverflow:
		return "stash overflow"
	case LedgerConflict:
		return "ledger conflict"
	case MalformedEncoding:
		return "malformed encoding"
	default:
		return "unknown error kind"
	}
}

// Error is the typed error carried across layer boundaries. It wraps an
// optional underlying cause so %w-chains keep working with errors.Is/As
// while still letting callers branch on Kind through ErrorIs.
type Error struct {
	Kind    Kind
	Message string
	Cause   error

	// ConflictSeq is set on a LedgerConflict error to the ledger's actual
	// tip at the time of the conflict, so a caller retrying a casAppend
	// locally (per spec.md §7's "LedgerConflict is retried locally") can
	// advance straight to it instead of probing one sequence number at a
	// time.
	ConflictSeq uint64
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError constructs a *Error of the given kind with a formatted message.
func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs a *Error of the given kind wrapping an existing error.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// NewConflictError constructs a LedgerConflict *Error for a casAppend that
// lost its race, recording the ledger's actual tip (actualSeq) alongside
// the sequence number the caller expected.
func NewConflictError(expectedPrevSeq, actualSeq uint64) *Error {
	return &Error{
		Kind:        LedgerConflict,
		Message:     fmt.Sprintf("expected prev seq %d, ledger is at %d", expectedPrevSeq, actualSeq),
		ConflictSeq: actualSeq,
	}
}

// ErrorIs reports whether err is, or wraps, a *Error of the given kind.
// Preferred over errors.Is(err, sentinel) since Solidus errors always carry
// a dynamic message and sometimes a wrapped cause, not a comparable sentinel.
func ErrorIs(err error, kind Kind) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind == kind
	}
	return false
}

// AsConflict reports whether err is (or wraps) a LedgerConflict *Error and,
// if so, the ledger's actual tip at the time of the conflict.
func AsConflict(err error) (uint64, bool) {
	var se *Error
	if errors.As(err, &se) && se.Kind == LedgerConflict {
		return se.ConflictSeq, true
	}
	return 0, false
}
