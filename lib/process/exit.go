// Copyright 2026 The Netmon Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds the exit paths of netmon binaries.
//
// Netmon processes have exactly two ways to end: returning from main,
// or failing fast through [Fatal]. A stale heartbeat exits with
// [ExitStale] so the external supervisor can tell "the server writer is
// gone" apart from ordinary startup failures.
package process

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes.
const (
	ExitFailure = 1
	ExitStale   = 2
)

// Coded is implemented by errors that choose their own exit code.
type Coded interface {
	ExitCode() int
}

// Fatal writes "error: err" to stderr and exits. The exit code is
// ExitFailure unless err wraps a Coded error.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(ExitCode(err))
}

// ExitCode returns the exit code Fatal would use for err.
func ExitCode(err error) int {
	var coded Coded
	if errors.As(err, &coded) {
		return coded.ExitCode()
	}
	return ExitFailure
}
