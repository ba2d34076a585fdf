// Copyright 2026 The Netmon Authors
// SPDX-License-Identifier: Apache-2.0

package admission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/netmon-foundation/netmon/dispatch"
	"github.com/netmon-foundation/netmon/fabric"
	"github.com/netmon-foundation/netmon/lib/clock"
	"github.com/netmon-foundation/netmon/lib/credential"
	"github.com/netmon-foundation/netmon/lib/schema"
)

var (
	// ErrNoServer means no handler was subscribed to the connecting
	// channel for the whole connect budget.
	ErrNoServer = errors.New("admission: no server is listening")

	// ErrAuthTimeout means the grant never appeared within the
	// authentication budget.
	ErrAuthTimeout = errors.New("admission: authentication timed out")
)

// Handshake drives one client admission session from Connecting to
// Listening or Failed.
type Handshake struct {
	Bus       fabric.Bus
	Auth      fabric.Authenticator
	Generator credential.Generator
	Clock     clock.Clock
	Logger    *slog.Logger
	Policy    Policy
}

// Run generates fresh credentials and walks the state machine. On
// success the returned Session owns the identity; on failure the
// identity has been released and no protected channel was touched.
func (h *Handshake) Run(ctx context.Context) (*Session, error) {
	id, err := h.Generator.Generate(ctx)
	if err != nil {
		return nil, fmt.Errorf("generating credentials: %w", err)
	}

	session, err := h.admit(ctx, id)
	if err != nil {
		id.Close()
		return nil, err
	}
	return session, nil
}

func (h *Handshake) admit(ctx context.Context, id *credential.Identity) (*Session, error) {
	logger := h.Logger.With("identity", shortIdentity(id.Username))
	request, err := schema.Marshal(schema.NewConnectRequest(h.Clock.Now().Unix(), id.Username, id.Secret.String()))
	if err != nil {
		return nil, err
	}

	var m Machine
	for {
		var delay time.Duration
		previous := m.State

		switch m.State {
		case Connecting:
			subscribers, err := h.Bus.Publish(ctx, schema.ChannelConnecting, request)
			if err != nil {
				return nil, fmt.Errorf("publishing connect request: %w", err)
			}
			m, delay = Transition(h.Policy, m, Published{Subscribers: subscribers})
			if m.State == Connecting {
				logger.Debug("connect request unheard, retrying", "attempt", m.Attempts, "retry_in", delay)
			}

		case Authenticating:
			err := h.Auth.Authenticate(ctx, id.Username, id.Secret.String())
			if err != nil && !errors.Is(err, fabric.ErrNotAuthorized) {
				return nil, fmt.Errorf("authenticating: %w", err)
			}
			m, delay = Transition(h.Policy, m, Authenticated{OK: err == nil})
			if m.State == Authenticating {
				logger.Debug("grant not yet provisioned", "attempt", m.Attempts, "retry_in", delay)
			}

		case Listening:
			logger.Info("admitted")
			return &Session{id: id, bus: h.Bus, logger: logger}, nil

		case Failed:
			logger.Warn("admission failed", "reason", m.Failure, "attempts", m.Attempts)
			if m.Failure == FailureNoServer {
				return nil, fmt.Errorf("%w after %d attempts", ErrNoServer, m.Attempts)
			}
			return nil, fmt.Errorf("%w after %d attempts", ErrAuthTimeout, m.Attempts)
		}

		if m.State != previous {
			logger.Debug("handshake state changed", "from", previous, "to", m.State)
		}
		if delay > 0 {
			select {
			case <-h.Clock.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
}

// Session is an admitted client. Close releases its secret.
type Session struct {
	id     *credential.Identity
	bus    fabric.Bus
	logger *slog.Logger
}

// Identity returns the admitted username.
func (s *Session) Identity() string {
	return s.id.Username
}

// Bus returns the bus the session was admitted on, now acting as the
// client identity.
func (s *Session) Bus() fabric.Bus {
	return s.bus
}

// Listen subscribes to the broadcast channel and the session's own
// channel and dispatches every payload until receiving fails.
func (s *Session) Listen(ctx context.Context, dispatcher *dispatch.Dispatcher) error {
	subscription, err := s.bus.Subscribe(ctx, schema.ChannelBroadcast, schema.ClientChannel(s.id.Username))
	if err != nil {
		return fmt.Errorf("subscribing as %s: %w", shortIdentity(s.id.Username), err)
	}
	defer subscription.Close()

	s.logger.Info("listening")
	return dispatcher.Run(ctx, subscription)
}

func (s *Session) Close() error {
	return s.id.Close()
}

// shortIdentity abbreviates a generated identity for logs.
func shortIdentity(identity string) string {
	if len(identity) <= 12 {
		return identity
	}
	return identity[:12]
}
