// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/pterm/pterm"

	"github.com/solidus-project/solidus/bank"
	"github.com/solidus-project/solidus/ec"
	"github.com/solidus-project/solidus/ledger"
	"github.com/solidus-project/solidus/repo"
)

// GenKey prints a fresh hex-encoded identity key, usable as either a
// bank's network key or an account key, the way wallet_service.go's
// subcommands each wrap one focused RPC call behind an Execute method.
type GenKey struct{}

func (x *GenKey) Execute(args []string) error {
	key, err := ec.GeneratePrivateKey()
	if err != nil {
		return err
	}
	pterm.DefaultSection.Println("New identity key")
	pterm.Info.Printfln("private: %s", hex.EncodeToString(key.Scalar().Bytes()))
	pterm.Info.Printfln("public:  %s", hex.EncodeToString(key.Public().Compress()))
	return nil
}

// Run starts a single bank process: it opens its datastore-backed nonce
// store and persistent ledger, seeds any --account genesis balances on
// first run, and blocks serving ledger-driven transfers until it
// receives SIGINT/SIGTERM.
type Run struct {
	BankKey  string   `long:"bankkey" description:"Hex-encoded bank network private key; a new one is generated if omitted" `
	Accounts []string `long:"account" description:"hex_pubkey:balance pair to register as a genesis account; may be repeated"`

	cfg *config
}

func (x *Run) Execute(args []string) error {
	p, err := x.cfg.networkParams()
	if err != nil {
		return err
	}

	atomicLevel, err := setupLogging(x.cfg.LogDir, x.cfg.LogLevel, x.cfg.DevMode)
	if err != nil {
		return err
	}
	_ = atomicLevel

	var bankKey *ec.PrivateKey
	if x.BankKey != "" {
		b, err := hex.DecodeString(x.BankKey)
		if err != nil {
			return fmt.Errorf("invalid --bankkey: %w", err)
		}
		bankKey = ec.PrivateKeyFromScalar(ec.ScalarFromBytes(b))
	} else {
		bankKey, err = ec.GeneratePrivateKey()
		if err != nil {
			return err
		}
	}
	pterm.Info.Printfln("bank public key: %s", hex.EncodeToString(bankKey.Public().Compress()))

	ds, err := repo.NewBadgerDatastore(x.cfg.DataDir)
	if err != nil {
		return fmt.Errorf("opening datastore: %w", err)
	}
	non := repo.NewNonceStore(ds)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ldgr, err := ledger.NewPersistentLedger(ctx, ds)
	if err != nil {
		return fmt.Errorf("opening ledger: %w", err)
	}

	b := bank.New(p, bankKey, ldgr, non, nil)
	for _, spec := range x.Accounts {
		pubHex, balStr, ok := strings.Cut(spec, ":")
		if !ok {
			return fmt.Errorf("invalid --account %q, want hex_pubkey:balance", spec)
		}
		pubBytes, err := hex.DecodeString(pubHex)
		if err != nil {
			return fmt.Errorf("invalid --account pubkey %q: %w", pubHex, err)
		}
		pub, err := ec.DecompressPoint(pubBytes)
		if err != nil {
			return fmt.Errorf("invalid --account pubkey %q: %w", pubHex, err)
		}
		bal, err := strconv.ParseUint(balStr, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid --account balance %q: %w", balStr, err)
		}
		if err := b.RegisterAccount(pub, bal); err != nil {
			return fmt.Errorf("registering account %s: %w", pubHex, err)
		}
		pterm.Success.Printfln("registered account %s with balance %d", pubHex, bal)
	}

	if err := b.Start(ctx, 0); err != nil {
		return fmt.Errorf("starting bank: %w", err)
	}
	pterm.Success.Println("solidusd is running, press Ctrl-C to stop")

	go func() {
		for ev := range b.Events() {
			if ev.Error != nil {
				pterm.Error.Printfln("transaction %x failed: %v", ev.TxID, ev.Error)
			} else {
				pterm.Success.Printfln("transaction %x settled", ev.TxID)
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	pterm.Info.Println("shutting down")
	b.Stop()
	return nil
}
