// Copyright 2026 The Netmon Authors
// SPDX-License-Identifier: Apache-2.0

package supervise

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func blockUntilDone(stopped *atomic.Int32) func(context.Context) error {
	return func(ctx context.Context) error {
		<-ctx.Done()
		stopped.Add(1)
		return ctx.Err()
	}
}

func TestRaceReturnsFirstError(t *testing.T) {
	var stopped atomic.Int32
	boom := errors.New("boom")
	err := Race(context.Background(),
		blockUntilDone(&stopped),
		func(context.Context) error { return boom },
		blockUntilDone(&stopped),
	)
	if !errors.Is(err, boom) {
		t.Errorf("Race = %v, want %v", err, boom)
	}
	if got := stopped.Load(); got != 2 {
		t.Errorf("%d tasks stopped before Race returned, want 2", got)
	}
}

func TestRaceNilResultIsAnError(t *testing.T) {
	var stopped atomic.Int32
	err := Race(context.Background(),
		blockUntilDone(&stopped),
		func(context.Context) error { return nil },
	)
	if !errors.Is(err, ErrTaskEnded) {
		t.Errorf("Race = %v, want ErrTaskEnded", err)
	}
}

func TestRaceParentCancelled(t *testing.T) {
	var stopped atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Race(ctx, blockUntilDone(&stopped), blockUntilDone(&stopped))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Race = %v, want context.Canceled", err)
	}
	if Race(context.Background()) != nil {
		t.Error("Race with no tasks returned an error")
	}
}
