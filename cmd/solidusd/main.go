// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

// Command solidusd runs a single bank's L5 state machine against a
// persistent ledger, the daemon half of the Solidus protocol. Its
// command wiring follows cli/wallet_service.go's shape: a shared options
// struct threaded into one Execute-method struct per subcommand,
// registered on a go-flags parser.
package main

import (
	"fmt"
	"os"

	flags "github.com/jessevdk/go-flags"
	"github.com/pterm/pterm"
)

func main() {
	cfg := &config{}
	parser := flags.NewParser(cfg, flags.Default)

	if _, err := parser.AddCommand("genkey", "Generate a new identity key", "Generates a new hex-encoded private/public key pair usable as a bank or account identity.", &GenKey{}); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
	if _, err := parser.AddCommand("run", "Run the bank daemon", "Starts this bank's handler loop against its persistent ledger and datastore until interrupted.", &Run{cfg: cfg}); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
