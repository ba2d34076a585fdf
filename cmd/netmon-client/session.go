// Copyright 2026 The Netmon Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/netmon-foundation/netmon/admission"
	"github.com/netmon-foundation/netmon/dispatch"
	"github.com/netmon-foundation/netmon/fabric"
	"github.com/netmon-foundation/netmon/lib/clock"
	"github.com/netmon-foundation/netmon/lib/config"
	"github.com/netmon-foundation/netmon/lib/credential"
	"github.com/netmon-foundation/netmon/lib/supervise"
	"github.com/netmon-foundation/netmon/liveness"
	"github.com/netmon-foundation/netmon/query"
)

// endpoint is a store connection opened as the public user. After
// admission the same connection acts as the client identity.
type endpoint interface {
	fabric.Bus
	fabric.Authenticator
	credential.RandomSource
	Close() error
}

type client struct {
	connect func(context.Context) (endpoint, error)
	config  *config.Config
	clock   clock.Clock
	logger  *slog.Logger

	// environ is passed to the query responder. Nil means os.Environ.
	environ func() []string
}

// session is one pass from Connecting to the end of Listening. A
// stale heartbeat is marked permanent so the supervisor exits.
func (c *client) session(ctx context.Context) error {
	conn, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	handshake := &admission.Handshake{
		Bus:       conn,
		Auth:      conn,
		Generator: credential.Generator{Source: conn},
		Clock:     c.clock,
		Logger:    c.logger.With("component", "handshake"),
		Policy:    c.config.Policy(),
	}
	admitted, err := handshake.Run(ctx)
	if err != nil {
		return err
	}
	defer admitted.Close()

	// Admission counts as a heartbeat so the watchdog allows one full
	// threshold for the first broadcast to arrive.
	tracker := liveness.NewTracker(c.clock.Now().Unix())
	dispatcher := &dispatch.Dispatcher{
		Handler: &query.Responder{
			Identity: admitted.Identity(),
			Bus:      admitted.Bus(),
			Clock:    c.clock,
			Logger:   c.logger.With("component", "query"),
			Environ:  c.environ,
			Tracker:  tracker,
		},
		Logger: c.logger.With("component", "dispatch"),
	}
	defer dispatcher.Wait()

	watchdog := &liveness.Watchdog{
		Source:    tracker,
		Clock:     c.clock,
		Logger:    c.logger.With("component", "watchdog"),
		Interval:  c.config.Watchdog.Interval.Std(),
		Threshold: c.config.Watchdog.Threshold.Std(),
	}

	err = supervise.Race(ctx,
		func(ctx context.Context) error { return admitted.Listen(ctx, dispatcher) },
		watchdog.Run,
	)
	if errors.Is(err, liveness.ErrHeartbeatStale) {
		return supervise.Permanent(err)
	}
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("listening: %w", err)
	}
	return err
}
