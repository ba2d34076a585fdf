// Copyright 2026 The Netmon Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides the time source used by every netmon loop.
//
// The admission handshake, the liveness monitor, the watchdog, and the
// supervisor all wait on fixed or randomized intervals. Each of them
// takes a [Clock] instead of calling the time package directly so that
// tests can drive retry budgets and staleness thresholds without real
// sleeps:
//
//	c := clock.Fake(time.Unix(1_700_000_000, 0))
//	go handshake.Run(ctx)
//	c.WaitForTimers(1)       // the handshake is sleeping between attempts
//	c.Advance(time.Second)   // release exactly one retry
//
// Production code passes [Real].
package clock
