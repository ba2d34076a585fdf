// Copyright 2026 The Netmon Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"log/slog"

	"github.com/netmon-foundation/netmon/admission"
	"github.com/netmon-foundation/netmon/dispatch"
	"github.com/netmon-foundation/netmon/fabric"
	"github.com/netmon-foundation/netmon/lib/clock"
	"github.com/netmon-foundation/netmon/lib/config"
	"github.com/netmon-foundation/netmon/lib/supervise"
	"github.com/netmon-foundation/netmon/liveness"
)

// backend is a store connection with full rights. redisfabric.Client
// and an admin memfabric.Conn both qualify.
type backend interface {
	fabric.Bus
	fabric.Store
}

type server struct {
	backend backend
	config  *config.Config
	clock   clock.Clock
	logger  *slog.Logger
}

func (s *server) auditPolicy() liveness.DeadPolicy {
	if maxAge := s.config.Server.SessionMaxAge.Std(); maxAge > 0 {
		return liveness.AdmittedBefore(maxAge)
	}
	return liveness.KeepAll
}

// run blocks until ctx ends or one of the server tasks fails.
func (s *server) run(ctx context.Context) error {
	monitor := &liveness.Monitor{
		Store:       s.backend,
		Bus:         s.backend,
		Clock:       s.clock,
		Logger:      s.logger.With("component", "monitor"),
		MinInterval: s.config.Server.HeartbeatMin.Std(),
		MaxInterval: s.config.Server.HeartbeatMax.Std(),
		Auditor: &liveness.Reaper{
			Store:  s.backend,
			Policy: s.auditPolicy(),
			Clock:  s.clock,
			Logger: s.logger.With("component", "audit"),
		},
	}

	dispatcher := &dispatch.Dispatcher{
		Handler: &admission.Handler{
			Store:  s.backend,
			Clock:  s.clock,
			Logger: s.logger.With("component", "admission"),
		},
		Logger: s.logger.With("component", "dispatch"),
	}
	defer dispatcher.Wait()

	watchdog := &liveness.Watchdog{
		Source:    liveness.StoreSource{Store: s.backend},
		Clock:     s.clock,
		Logger:    s.logger.With("component", "watchdog"),
		Interval:  s.config.Watchdog.Interval.Std(),
		Threshold: s.config.Watchdog.Threshold.Std(),
	}

	s.logger.Info("server running",
		"heartbeat_min", s.config.Server.HeartbeatMin,
		"heartbeat_max", s.config.Server.HeartbeatMax,
		"stale_threshold", s.config.Watchdog.Threshold,
	)
	return supervise.Race(ctx,
		monitor.Run,
		func(ctx context.Context) error { return admission.Serve(ctx, s.backend, dispatcher) },
		watchdog.Run,
	)
}
