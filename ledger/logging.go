// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package ledger

import "go.uber.org/zap"

var log = zap.S().Named("ledger")

// UpdateLogger swaps the package-level logger.
func UpdateLogger(l *zap.SugaredLogger) {
	log = l.Named("ledger")
}
