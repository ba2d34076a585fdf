// Copyright 2026 The Netmon Authors
// SPDX-License-Identifier: Apache-2.0

package liveness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/netmon-foundation/netmon/lib/clock"
	"github.com/netmon-foundation/netmon/lib/process"
)

// Default watchdog timing.
const (
	DefaultWatchdogInterval = 10 * time.Second
	DefaultStaleThreshold   = 60 * time.Second
)

// ErrHeartbeatStale is returned by Watchdog.Run. Errors wrapping it
// exit with process.ExitStale.
var ErrHeartbeatStale = errors.New("liveness: heartbeat stale")

type staleError struct {
	heartbeat int64
	lag       time.Duration
	threshold time.Duration
}

func (e *staleError) Error() string {
	return fmt.Sprintf("%v: last heartbeat %d is %v old, threshold %v", ErrHeartbeatStale, e.heartbeat, e.lag, e.threshold)
}

func (e *staleError) Is(target error) bool { return target == ErrHeartbeatStale }

func (e *staleError) ExitCode() int { return process.ExitStale }

// Watchdog terminates its caller when the server heartbeat goes stale.
type Watchdog struct {
	Source HeartbeatSource
	Clock  clock.Clock
	Logger *slog.Logger

	// Interval between checks and the staleness threshold. Zero
	// values mean the defaults.
	Interval  time.Duration
	Threshold time.Duration
}

// Stale reports whether heartbeat (Unix seconds) is strictly more than
// the threshold behind now. Both sides are whole seconds: a heartbeat
// exactly threshold old is fresh for the whole of that second.
func (w *Watchdog) Stale(now time.Time, heartbeat int64) bool {
	return now.Unix()-heartbeat > int64(w.threshold()/time.Second)
}

// Run checks the heartbeat every interval. It returns an error wrapping
// ErrHeartbeatStale on the first stale reading, or ctx's error.
func (w *Watchdog) Run(ctx context.Context) error {
	interval := w.Interval
	if interval <= 0 {
		interval = DefaultWatchdogInterval
	}
	ticker := w.Clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
		if err := w.Check(ctx); err != nil {
			return err
		}
	}
}

// Check reads the heartbeat once. An unreadable heartbeat counts as
// zero, which is always stale.
func (w *Watchdog) Check(ctx context.Context) error {
	heartbeat, err := w.Source.Heartbeat(ctx)
	if err != nil {
		w.Logger.Warn("heartbeat unreadable", "error", err)
		heartbeat = 0
	}
	now := w.Clock.Now()
	if !w.Stale(now, heartbeat) {
		return nil
	}
	stale := &staleError{
		heartbeat: heartbeat,
		lag:       now.Sub(time.Unix(heartbeat, 0)),
		threshold: w.threshold(),
	}
	w.Logger.Error("server heartbeat stale", "heartbeat", heartbeat, "lag", stale.lag)
	return stale
}

func (w *Watchdog) threshold() time.Duration {
	if w.Threshold <= 0 {
		return DefaultStaleThreshold
	}
	return w.Threshold
}
