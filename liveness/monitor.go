// Copyright 2026 The Netmon Authors
// SPDX-License-Identifier: Apache-2.0

package liveness

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/netmon-foundation/netmon/fabric"
	"github.com/netmon-foundation/netmon/lib/clock"
	"github.com/netmon-foundation/netmon/lib/schema"
)

// Default tick spacing bounds.
const (
	DefaultMinInterval = 10 * time.Second
	DefaultMaxInterval = 20 * time.Second
)

// Monitor is the server's heartbeat writer and control-flag evaluator.
// It is the only writer of the heartbeat and flag keys.
type Monitor struct {
	Store  fabric.Store
	Bus    fabric.Bus
	Clock  clock.Clock
	Logger *slog.Logger

	// MinInterval and MaxInterval bound the random spacing between
	// ticks. Zero values mean the defaults.
	MinInterval time.Duration
	MaxInterval time.Duration

	// Jitter returns a uniform value in [0, n). Nil means math/rand.
	Jitter func(n int64) int64

	Auditor Auditor
}

// Tick writes and publishes the heartbeat, then evaluates the flags.
func (m *Monitor) Tick(ctx context.Context) (Outcome, error) {
	now := m.Clock.Now().Unix()
	if err := writeHeartbeat(ctx, m.Store, now); err != nil {
		return Outcome{}, err
	}

	heartbeat := schema.NewHeartbeat(now)
	heartbeat.Target = schema.TargetClients
	payload, err := schema.Marshal(heartbeat)
	if err != nil {
		return Outcome{}, err
	}
	for _, channel := range []string{schema.ChannelBroadcast, schema.ChannelHandlers} {
		if _, err := m.Bus.Publish(ctx, channel, payload); err != nil {
			return Outcome{}, fmt.Errorf("publishing heartbeat on %s: %w", channel, err)
		}
	}

	flags := Flags{Store: m.Store, Clock: m.Clock, Logger: m.Logger, Auditor: m.Auditor}
	outcome, err := flags.Evaluate(ctx)
	if err != nil {
		return outcome, err
	}
	if outcome.Reset || outcome.Audit {
		m.Logger.Info("control flags fired", "reset", outcome.Reset, "audit", outcome.Audit)
	}
	return outcome, nil
}

// Run ticks until ctx ends or a tick fails. The first tick is
// immediate.
func (m *Monitor) Run(ctx context.Context) error {
	for {
		if _, err := m.Tick(ctx); err != nil {
			return fmt.Errorf("liveness tick: %w", err)
		}
		select {
		case <-m.Clock.After(m.interval()):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// interval draws the next tick spacing from [min, max).
func (m *Monitor) interval() time.Duration {
	low, high := m.MinInterval, m.MaxInterval
	if low <= 0 {
		low = DefaultMinInterval
	}
	if high <= 0 {
		high = DefaultMaxInterval
	}
	if high <= low {
		return low
	}
	jitter := m.Jitter
	if jitter == nil {
		jitter = rand.Int64N
	}
	return low + time.Duration(jitter(int64(high-low)))
}
