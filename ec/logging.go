// Copyright (c) 2024 The illium developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package ec

import "go.uber.org/zap"

var log = zap.S().Named("ec")

// UpdateLogger swaps the package-level logger, called once by the driver's
// logging setup after it builds the process-wide zap configuration.
func UpdateLogger(l *zap.SugaredLogger) {
	log = l.Named("ec")
}
