// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/solidus-project/solidus/params"
)

// config holds the top-level options shared by every solidusd
// subcommand, parsed by go-flags from the command line the way
// cli/wallet_service.go's options struct is shared across its
// subcommands.
type config struct {
	DataDir  string `short:"d" long:"datadir" description:"Directory to store the bank's data" default:"~/.solidusd"`
	LogLevel string `short:"l" long:"loglevel" description:"Logging level {debug, info, warning, error}" default:"info"`
	LogDir   string `long:"logdir" description:"Directory to store log files; empty disables file logging"`
	DevMode  bool   `long:"devmode" description:"Use a human-readable development log encoder"`
	Network  string `short:"n" long:"network" description:"Network parameter preset {mainnet, testnet, regtest, stakestress}" default:"testnet"`
}

func (cfg *config) networkParams() (*params.Params, error) {
	switch cfg.Network {
	case "mainnet":
		return params.MainnetParams, nil
	case "testnet":
		return params.TestnetParams, nil
	case "regtest":
		return params.RegtestParams, nil
	case "stakestress":
		return params.StashStressParams, nil
	default:
		return nil, fmt.Errorf("unknown network %q", cfg.Network)
	}
}
