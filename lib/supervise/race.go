// Copyright 2026 The Netmon Authors
// SPDX-License-Identifier: Apache-2.0

package supervise

import (
	"context"
	"errors"
)

// ErrTaskEnded is returned by Race when the first task to finish
// returned nil while ctx was still live.
var ErrTaskEnded = errors.New("supervise: task ended")

// Race runs every task concurrently until one returns, cancels the
// rest, waits for them, and returns the first result. A nil first
// result becomes ErrTaskEnded because every task is expected to run
// for the life of ctx. Cancellation of ctx itself returns ctx.Err().
func Race(ctx context.Context, tasks ...func(context.Context) error) error {
	if len(tasks) == 0 {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan error, len(tasks))
	for _, task := range tasks {
		go func() {
			results <- task(ctx)
		}()
	}

	first := <-results
	parentDone := ctx.Err() != nil
	cancel()
	for range len(tasks) - 1 {
		<-results
	}

	switch {
	case parentDone && first == nil:
		return ctx.Err()
	case first == nil:
		return ErrTaskEnded
	}
	return first
}
