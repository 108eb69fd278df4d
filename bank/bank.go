// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

// Package bank implements layer L5: the per-bank state machine that turns
// ledger events into PVORM updates. It adapts consensus/engine.go's
// architecture directly — one goroutine per bank owns all mutable state
// and receives everything through a single channel — but drops the
// avalanche polling loop entirely: Solidus has no peer voting, so ledger
// events alone drive every transition.
package bank

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/solidus-project/solidus/ec"
	"github.com/solidus-project/solidus/ledger"
	"github.com/solidus-project/solidus/params"
	"github.com/solidus-project/solidus/pvorm"
	"github.com/solidus-project/solidus/repo"
	"github.com/solidus-project/solidus/types"
)

var log = zap.S().Named("bank")

// UpdateLogger swaps the package-level logger.
func UpdateLogger(l *zap.SugaredLogger) {
	log = l.Named("bank")
}

// State is one of the per-bank-per-transaction-slot states of spec.md
// §4.5. The sender and receiver role chains share every state but their
// entry point (Proposing vs HeaderObserved).
type State int

const (
	Idle State = iota
	Proposing
	HeaderObserved
	Crediting
	Posting
	Settled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Proposing:
		return "Proposing"
	case HeaderObserved:
		return "HeaderObserved"
	case Crediting:
		return "Crediting"
	case Posting:
		return "Posting"
	case Settled:
		return "Settled"
	default:
		return "Unknown"
	}
}

// EventKind tags the two outcomes a driver ever needs to react to, per
// the Design Notes' "expose a typed event stream and let the driver fan
// out" instruction.
type EventKind int

const (
	TransactionSettled EventKind = iota
	TransactionFailed
)

// Event is one entry on a Bank's event stream.
type Event struct {
	Kind  EventKind
	TxID  [32]byte
	Error error
}

// PeerChannel is the bank-to-bank side channel spec.md's §5 leaves
// external: the receiving bank needs the randomizer behind its
// ReceiverValue ciphertext to apply its credit (LookupAndUpdate's
// deltaRandomizer), and nothing in the header or the ledger carries it,
// by design (it is never meant to be public). Real deployments would
// carry this over an authenticated bank-to-bank transport; bankharness
// implements it with a direct in-process call between the two Bank
// values under test.
type PeerChannel interface {
	SendRandomizer(ctx context.Context, destBankKey ec.Point, txID [32]byte, r ec.Scalar) error
}

// role distinguishes which half of a transaction this bank's active slot
// is playing, so Crediting's shared logic knows whether to debit or
// credit.
type role int

const (
	roleSender role = iota
	roleReceiver
)

// activeTransaction is the one in-flight record a bank holds its PVORM
// lock for, per spec.md's "a bank accepts at most one in-flight
// transaction at a time."
type activeTransaction struct {
	txID      [32]byte
	role      role
	header    *types.TransactionHeader
	account   ec.Point
	deltaVal  int64
	delta     ec.Ciphertext
	deltaRand ec.Scalar
	haveRand  bool // receiver only: whether the peer randomizer has arrived
}

type outgoingRequest struct {
	senderKey   *ec.PrivateKey
	destBank    ec.Point
	destAccount ec.Point
	amount      uint64
}

// Bank is one bank's live process: its PVORM, its accounts, the ledger
// it posts to and replays, and the single-threaded handler that owns all
// of the above.
type Bank struct {
	p    *params.Params
	key  *ec.PrivateKey
	pub  ec.Point
	v    *pvorm.PVORM
	ldgr ledger.Ledger
	non  *repo.NonceStore
	peer PeerChannel

	accounts map[types.AccountKey]*types.Account
	oram     map[string]types.AccountKey
	replicas map[string]*pvorm.Replica

	// headers records every TransactionHeader this bank has observed on the
	// ledger, regardless of whether it is sender, receiver, or neither: a
	// peer update's account-binding commitment (spec.md invariant (iii))
	// can only be derived from the header that produced it, and a fully
	// meshed bank verifies every other bank's updates, not just its own
	// transactions' counterparty. Never pruned; a production deployment
	// would age entries out once every interested replica has applied both
	// of a transaction's updates.
	headers map[[32]byte]*types.TransactionHeader

	state         State
	active        *activeTransaction
	outgoingQueue []outgoingRequest
	lastSeq       uint64

	events  chan Event
	msgChan chan interface{}
	quit    chan struct{}
	wg      sync.WaitGroup

	cancelSub context.CancelFunc
}

// New constructs a bank for the given network parameters and key, ready
// to Start once wired to a ledger and nonce store.
func New(p *params.Params, key *ec.PrivateKey, ldgr ledger.Ledger, non *repo.NonceStore, peer PeerChannel) *Bank {
	return &Bank{
		p:        p,
		key:      key,
		pub:      key.Public(),
		v:        pvorm.New(p, key),
		ldgr:     ldgr,
		non:      non,
		peer:     peer,
		accounts: map[types.AccountKey]*types.Account{},
		oram:     map[string]types.AccountKey{},
		replicas: map[string]*pvorm.Replica{},
		headers:  map[[32]byte]*types.TransactionHeader{},
		events:   make(chan Event, 64),
		msgChan:  make(chan interface{}),
		quit:     make(chan struct{}),
	}
}

// Public returns the bank's own PVORM/protocol key.
func (b *Bank) Public() ec.Point { return b.pub }

// Events returns the bank's typed event stream for a driver to fan out.
func (b *Bank) Events() <-chan Event { return b.events }

// RegisterAccount adds a user to this bank with a genesis balance,
// seeding both the local account table and the PVORM. Must be called
// before Start.
func (b *Bank) RegisterAccount(pub ec.Point, initialBalance uint64) error {
	if err := b.v.Insert(pub, initialBalance); err != nil {
		return err
	}
	a := &types.Account{PublicKey: pub, BankKey: b.pub}
	b.accounts[a.Key()] = a
	b.oram[string(a.OramKey().Bytes())] = a.Key()
	return nil
}

// RegisterPeer seeds a replica of another bank's public PVORM state, so
// this bank can independently verify that peer's updates as they are
// posted (spec.md property 9, ledger determinism).
func (b *Bank) RegisterPeer(bankPub ec.Point, genesis pvorm.PublicState) {
	b.replicas[string(bankPub.Compress())] = pvorm.NewReplica(b.p, bankPub, genesis)
}

// PublicState snapshots this bank's own replicated state, for seeding
// other banks' RegisterPeer calls.
func (b *Bank) PublicState() pvorm.PublicState { return b.v.PublicState() }

// AccountBalance returns a locally-registered account's current balance
// via Peek, for tests and drivers that want to observe settlement
// without their own ciphertext bookkeeping. It round-trips through the
// handler goroutine like every other query, since the PVORM is only ever
// safe to read from the goroutine that owns it.
func (b *Bank) AccountBalance(pub ec.Point) (uint64, bool) {
	resp := make(chan balanceResult, 1)
	b.msgChan <- balanceQuery{account: pub, resp: resp}
	r := <-resp
	return r.balance, r.ok
}

func (b *Bank) accountBalanceLocked(pub ec.Point) (uint64, bool) {
	ak := types.Account{PublicKey: pub}.Key()
	if _, ok := b.accounts[ak]; !ok {
		return 0, false
	}
	bal, err := b.v.Peek(pub)
	if err != nil {
		return 0, false
	}
	return bal, true
}

// PeerReplicaState returns this bank's locally-verified replica of
// bankPub's public state, for tests asserting every bank's independent
// verification converges on the same root hash as the source of truth
// (spec.md property 9).
func (b *Bank) PeerReplicaState(bankPub ec.Point) (pvorm.PublicState, bool) {
	r, ok := b.replicas[string(bankPub.Compress())]
	if !ok {
		return pvorm.PublicState{}, false
	}
	return r.State, true
}

// Start subscribes to the ledger from fromSeq and begins the handler
// goroutine. Mirrors consensus/engine.go's Start/Stop/wg shape; there is
// no stream handler registration here because Solidus has no peer wire
// protocol of its own, only the ledger.
func (b *Bank) Start(ctx context.Context, fromSeq uint64) error {
	subCtx, cancel := context.WithCancel(ctx)
	b.cancelSub = cancel
	entries, err := b.ldgr.Subscribe(subCtx, fromSeq)
	if err != nil {
		cancel()
		return err
	}
	b.wg.Add(1)
	go b.handler(ctx, entries)
	return nil
}

// Stop halts the handler and waits for it to exit.
func (b *Bank) Stop() {
	if b.cancelSub != nil {
		b.cancelSub()
	}
	close(b.quit)
	b.wg.Wait()
}

func (b *Bank) handler(ctx context.Context, entries <-chan ledger.SeqEntry) {
	defer b.wg.Done()
	for {
		select {
		case se, ok := <-entries:
			if !ok {
				entries = nil
				continue
			}
			b.handleLedgerEntry(ctx, se)
			b.tryAdvanceQueue(ctx)
		case m := <-b.msgChan:
			switch msg := m.(type) {
			case submitMsg:
				b.handleSubmit(msg)
				b.tryAdvanceQueue(ctx)
			case randomizerMsg:
				b.handleRandomizer(ctx, msg)
			case balanceQuery:
				bal, ok := b.accountBalanceLocked(msg.account)
				msg.resp <- balanceResult{balance: bal, ok: ok}
			}
		case <-b.quit:
			return
		}
	}
}

type submitMsg struct {
	req outgoingRequest
}

type randomizerMsg struct {
	txID [32]byte
	r    ec.Scalar
}

type balanceQuery struct {
	account ec.Point
	resp    chan balanceResult
}

type balanceResult struct {
	balance uint64
	ok      bool
}

// SubmitTransfer enqueues an outgoing transfer, served FIFO once the bank
// has no conflicting in-flight transaction. It returns once the request
// has been queued, not once it settles; settlement is reported on Events.
func (b *Bank) SubmitTransfer(senderKey *ec.PrivateKey, destBank ec.Point, destAccount ec.Point, amount uint64) {
	b.msgChan <- submitMsg{req: outgoingRequest{
		senderKey:   senderKey,
		destBank:    destBank,
		destAccount: destAccount,
		amount:      amount,
	}}
}

// ReceiveRandomizer delivers the peer-supplied delta randomizer a
// receiver bank needs to credit an incoming transaction, the far end of
// PeerChannel.
func (b *Bank) ReceiveRandomizer(txID [32]byte, r ec.Scalar) {
	b.msgChan <- randomizerMsg{txID: txID, r: r}
}

func (b *Bank) handleSubmit(msg submitMsg) {
	b.outgoingQueue = append(b.outgoingQueue, msg.req)
}

func (b *Bank) fail(txID [32]byte, err error) {
	log.Errorw("transaction failed", "txID", txID, "error", err)
	b.state = Idle
	b.active = nil
	select {
	case b.events <- Event{Kind: TransactionFailed, TxID: txID, Error: err}:
	default:
	}
}

func (b *Bank) settle(txID [32]byte) {
	b.state = Idle
	b.active = nil
	select {
	case b.events <- Event{Kind: TransactionSettled, TxID: txID}:
	default:
	}
}
