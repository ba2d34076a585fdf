// Copyright 2026 The Netmon Authors
// SPDX-License-Identifier: Apache-2.0

// Package query answers the server's broadcast queries on an admitted
// client and feeds server heartbeats to the client's watchdog.
package query

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/BurntSushi/toml"

	"github.com/netmon-foundation/netmon/dispatch"
	"github.com/netmon-foundation/netmon/fabric"
	"github.com/netmon-foundation/netmon/lib/clock"
	"github.com/netmon-foundation/netmon/lib/schema"
	"github.com/netmon-foundation/netmon/liveness"
)

// Responder is the client's dispatch.Handler in the Listening state.
type Responder struct {
	Identity string
	Bus      fabric.Bus
	Clock    clock.Clock
	Logger   *slog.Logger

	// Environ lists the environment as KEY=value pairs. Nil means
	// os.Environ.
	Environ func() []string

	// Tracker, when set, observes every server heartbeat.
	Tracker *liveness.Tracker
}

var _ dispatch.Handler = (*Responder)(nil)

func (r *Responder) Handle(ctx context.Context, message schema.Message) error {
	if message.From != schema.FromServer {
		return nil
	}
	switch message.Event {
	case schema.EventHeartbeat:
		if r.Tracker != nil {
			r.Tracker.Observe(message.Stamp)
		}
		return nil
	case schema.EventQuery:
		if message.Target != schema.TargetClients && message.Target != r.Identity {
			return nil
		}
		switch message.Action {
		case schema.ActionEnvVarsOS:
			return r.replyEnvironment(ctx)
		default:
			r.Logger.Debug("ignoring unknown query", "action", message.Action)
		}
	}
	return nil
}

func (r *Responder) replyEnvironment(ctx context.Context) error {
	environ := r.Environ
	if environ == nil {
		environ = os.Environ
	}
	data, err := EncodeEnvironment(environ())
	if err != nil {
		return err
	}

	reply, err := schema.Marshal(schema.Message{
		Stamp:  r.Clock.Now().Unix(),
		From:   r.Identity,
		Event:  schema.EventQuery,
		Action: schema.ActionEnvVarsOS,
		Target: schema.TargetServer,
		Data:   data,
	})
	if err != nil {
		return err
	}
	if _, err := r.Bus.Publish(ctx, schema.ClientChannel(r.Identity), reply); err != nil {
		return fmt.Errorf("replying to env_vars_os: %w", err)
	}
	return nil
}

// EncodeEnvironment renders KEY=value pairs as a TOML table. Entries
// without '=' and entries that are not valid UTF-8 are skipped.
func EncodeEnvironment(environ []string) (string, error) {
	variables := make(map[string]string, len(environ))
	for _, entry := range environ {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || key == "" {
			continue
		}
		if !utf8.ValidString(key) || !utf8.ValidString(value) {
			continue
		}
		variables[key] = value
	}
	var buffer bytes.Buffer
	if err := toml.NewEncoder(&buffer).Encode(variables); err != nil {
		return "", fmt.Errorf("encoding environment: %w", err)
	}
	return buffer.String(), nil
}

// DecodeEnvironment parses the data of an env_vars_os reply.
func DecodeEnvironment(data string) (map[string]string, error) {
	variables := make(map[string]string)
	if _, err := toml.Decode(data, &variables); err != nil {
		return nil, fmt.Errorf("decoding environment: %w", err)
	}
	return variables, nil
}
