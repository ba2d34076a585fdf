// Copyright 2026 The Netmon Authors
// SPDX-License-Identifier: Apache-2.0

package liveness

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/netmon-foundation/netmon/fabric"
	"github.com/netmon-foundation/netmon/lib/clock"
	"github.com/netmon-foundation/netmon/lib/schema"
)

// Outcome reports which flags fired during one evaluation.
type Outcome struct {
	Reset bool
	Audit bool
}

// Flags evaluates the reset and audit control flags.
type Flags struct {
	Store   fabric.Store
	Clock   clock.Clock
	Logger  *slog.Logger
	Auditor Auditor
}

// Evaluate consumes both flags once, reset first.
func (f *Flags) Evaluate(ctx context.Context) (Outcome, error) {
	var outcome Outcome

	reset, err := f.consume(ctx, schema.KeyReset)
	if err != nil {
		return outcome, err
	}
	if reset {
		if err := f.reset(ctx); err != nil {
			return outcome, err
		}
		outcome.Reset = true
	}

	audit, err := f.consume(ctx, schema.KeyAudit)
	if err != nil {
		return outcome, err
	}
	if audit {
		outcome.Audit = true
		if f.Auditor != nil {
			if err := f.Auditor.Audit(ctx); err != nil {
				return outcome, fmt.Errorf("auditing identities: %w", err)
			}
		}
	}
	return outcome, nil
}

// consume arms key if absent, then reads it and disarms it when true.
func (f *Flags) consume(ctx context.Context, key string) (bool, error) {
	if _, err := f.Store.SetNX(ctx, key, strconv.FormatBool(true)); err != nil {
		return false, fmt.Errorf("initializing %s flag: %w", key, err)
	}
	value, ok, err := f.Store.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("reading %s flag: %w", key, err)
	}
	if !ok {
		return false, nil
	}
	armed, err := strconv.ParseBool(value)
	if err != nil {
		f.Logger.Warn("ignoring unparseable control flag", "flag", key, "value", value)
		return false, nil
	}
	if !armed {
		return false, nil
	}
	if err := f.Store.Set(ctx, key, strconv.FormatBool(false)); err != nil {
		return false, fmt.Errorf("clearing %s flag: %w", key, err)
	}
	return true, nil
}

// reset wipes client state. The flags and heartbeat are rewritten
// after the flush so the next tick does not fire again and watchdogs
// reading the store see a fresh heartbeat.
func (f *Flags) reset(ctx context.Context) error {
	f.Logger.Warn("reset flag set, clearing all client state")
	if err := f.Store.FlushAll(ctx); err != nil {
		return fmt.Errorf("flushing store: %w", err)
	}
	if err := f.Store.ReloadACL(ctx); err != nil {
		return fmt.Errorf("reloading access control: %w", err)
	}
	for _, key := range []string{schema.KeyReset, schema.KeyAudit} {
		if err := f.Store.Set(ctx, key, strconv.FormatBool(false)); err != nil {
			return fmt.Errorf("clearing %s flag: %w", key, err)
		}
	}
	if err := writeHeartbeat(ctx, f.Store, f.Clock.Now().Unix()); err != nil {
		return err
	}
	return nil
}

func writeHeartbeat(ctx context.Context, store fabric.Store, stamp int64) error {
	if err := store.Set(ctx, schema.KeyHeartbeat, strconv.FormatInt(stamp, 10)); err != nil {
		return fmt.Errorf("writing heartbeat: %w", err)
	}
	return nil
}
