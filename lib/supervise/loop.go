// Copyright 2026 The Netmon Authors
// SPDX-License-Identifier: Apache-2.0

// Package supervise restarts a session function after it fails, and
// runs the long-lived tasks of a session together with [Race].
//
// [Loop] counts failures and gives up with [ErrTooManyFailures] once
// MaxFailures accumulate. The count starts over whenever a session ran
// for longer than ResetAfter before failing, so a long-lived client
// that hits an occasional outage never exhausts its budget. A session
// that returns nil is restarted without counting. Wrap an error with
// [Permanent] to stop the loop immediately.
package supervise

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/netmon-foundation/netmon/lib/clock"
)

// Defaults.
const (
	DefaultMaxFailures = 10
	DefaultDelay       = 6 * time.Second
	DefaultResetAfter  = 60 * time.Second
)

// ErrTooManyFailures is returned once the failure budget is spent.
var ErrTooManyFailures = errors.New("supervise: too many failures")

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Loop is a restart policy.
type Loop struct {
	MaxFailures int
	Delay       time.Duration
	ResetAfter  time.Duration

	Clock  clock.Clock
	Logger *slog.Logger
}

// Run calls session until it returns a permanent error, the failure
// budget is spent, or ctx ends. Restarts are spaced by Delay.
func (l *Loop) Run(ctx context.Context, session func(context.Context) error) error {
	maxFailures := l.MaxFailures
	if maxFailures <= 0 {
		maxFailures = DefaultMaxFailures
	}
	delay := l.Delay
	if delay <= 0 {
		delay = DefaultDelay
	}
	resetAfter := l.ResetAfter
	if resetAfter <= 0 {
		resetAfter = DefaultResetAfter
	}

	failures := 0
	for {
		started := l.Clock.Now()
		err := session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		var permanent *permanentError
		switch {
		case errors.As(err, &permanent):
			return err
		case err == nil:
			l.Logger.Info("session ended, restarting", "delay", delay)
		default:
			if l.Clock.Now().Sub(started) > resetAfter {
				failures = 0
			}
			failures++
			if failures >= maxFailures {
				return fmt.Errorf("%w (%d): %w", ErrTooManyFailures, failures, err)
			}
			l.Logger.Warn("session failed, restarting",
				"error", err,
				"failures", failures,
				"max_failures", maxFailures,
				"delay", delay,
			)
		}

		select {
		case <-l.Clock.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
