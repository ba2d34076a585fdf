// Copyright 2026 The Netmon Authors
// SPDX-License-Identifier: Apache-2.0

// Package dispatch turns a stream of raw bus payloads into concurrent
// handler tasks.
//
// A [Dispatcher] decodes each payload into a schema.Message and runs
// its [Handler] on a fresh goroutine, so a slow or failing handler
// never stalls intake. Malformed payloads are dropped with a warning.
// Every task, including decode failures, produces a [Result]; results
// go to an optional sink channel so callers and tests can observe
// failures without scraping logs. Handler panics are recovered and
// reported as errors.
//
// Ordering across tasks is not preserved. [Dispatcher.Run] is the only
// sequential point.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/netmon-foundation/netmon/fabric"
	"github.com/netmon-foundation/netmon/lib/schema"
)

// Handler processes one message. A returned error is logged and
// reported; it never reaches the receive loop.
type Handler interface {
	Handle(ctx context.Context, message schema.Message) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, message schema.Message) error

func (f HandlerFunc) Handle(ctx context.Context, message schema.Message) error {
	return f(ctx, message)
}

// Result is the outcome of one task.
type Result struct {
	// TaskID correlates the result with its log lines.
	TaskID string

	// Message is the decoded message, zero for malformed payloads.
	Message schema.Message

	// Err is nil on success, wraps schema.ErrMalformed for payloads
	// that did not decode, and otherwise is the handler's error.
	Err error
}

// Dispatcher fans payloads out to Handler tasks.
type Dispatcher struct {
	Handler Handler
	Logger  *slog.Logger

	// Results receives one Result per dispatched payload when
	// non-nil. Sends block until received or the task's context
	// ends, so a sink must be drained.
	Results chan<- Result

	tasks sync.WaitGroup
}

// Dispatch decodes payload and starts a task for it. It returns once
// the task is started; it never waits for the handler.
func (d *Dispatcher) Dispatch(ctx context.Context, payload []byte) {
	taskID := uuid.NewString()

	message, err := schema.Unmarshal(payload)
	if err != nil {
		d.Logger.Warn("dropping malformed payload",
			"task", taskID,
			"bytes", len(payload),
			"error", err,
		)
		if d.Results != nil {
			d.tasks.Add(1)
			go func() {
				defer d.tasks.Done()
				d.report(ctx, Result{TaskID: taskID, Err: err})
			}()
		}
		return
	}

	d.tasks.Add(1)
	go func() {
		defer d.tasks.Done()
		err := d.handle(ctx, message)
		if err != nil {
			d.Logger.Error("message handler failed",
				"task", taskID,
				"from", message.From,
				"event", message.Event,
				"action", message.Action,
				"error", err,
			)
		}
		d.report(ctx, Result{TaskID: taskID, Message: message, Err: err})
	}()
}

func (d *Dispatcher) handle(ctx context.Context, message schema.Message) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("handler panic: %v", recovered)
		}
	}()
	return d.Handler.Handle(ctx, message)
}

func (d *Dispatcher) report(ctx context.Context, result Result) {
	if d.Results == nil {
		return
	}
	select {
	case d.Results <- result:
	case <-ctx.Done():
	}
}

// Run receives from subscription and dispatches each payload until
// Receive fails, returning that error. In-flight tasks keep running;
// call Wait to join them.
func (d *Dispatcher) Run(ctx context.Context, subscription fabric.Subscription) error {
	for {
		payload, err := subscription.Receive(ctx)
		if err != nil {
			return fmt.Errorf("receiving: %w", err)
		}
		d.Dispatch(ctx, payload)
	}
}

// Wait blocks until every started task has finished.
func (d *Dispatcher) Wait() {
	d.tasks.Wait()
}
