// Copyright 2026 The Netmon Authors
// SPDX-License-Identifier: Apache-2.0

package liveness

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/netmon-foundation/netmon/fabric"
	"github.com/netmon-foundation/netmon/lib/schema"
)

// HeartbeatSource reports the most recent heartbeat in Unix seconds.
type HeartbeatSource interface {
	Heartbeat(ctx context.Context) (int64, error)
}

// StoreSource reads the heartbeat key. Processes with store access use
// it. A missing key reads as zero.
type StoreSource struct {
	Store fabric.Store
}

func (s StoreSource) Heartbeat(ctx context.Context) (int64, error) {
	value, ok, err := s.Store.Get(ctx, schema.KeyHeartbeat)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	stamp, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing heartbeat %q: %w", value, err)
	}
	return stamp, nil
}

// Tracker remembers the newest heartbeat observed on the bus. Clients
// cannot read the store, so they track the heartbeat messages the
// monitor broadcasts.
type Tracker struct {
	latest atomic.Int64
}

// NewTracker returns a tracker seeded with stamp, normally the time the
// client started listening.
func NewTracker(stamp int64) *Tracker {
	t := &Tracker{}
	t.latest.Store(stamp)
	return t
}

// Observe records stamp if it is newer than anything seen so far.
func (t *Tracker) Observe(stamp int64) {
	for {
		current := t.latest.Load()
		if stamp <= current || t.latest.CompareAndSwap(current, stamp) {
			return
		}
	}
}

func (t *Tracker) Heartbeat(context.Context) (int64, error) {
	return t.latest.Load(), nil
}
