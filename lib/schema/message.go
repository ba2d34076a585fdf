// Copyright 2026 The Netmon Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"bytes"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/BurntSushi/toml"
)

// FromServer is the reserved sender identity of the server process.
const FromServer = "server"

// Target audiences other than a specific client identity.
const (
	TargetClients = "clients"
	TargetServer  = "server"
)

// Event categories.
const (
	EventQuery     = "query"
	EventHeartbeat = "heartbeat"
)

// Actions.
const (
	ActionAuthRequest = "auth_request"
	ActionEnvVarsOS   = "env_vars_os"
)

// ErrMalformed is returned by Unmarshal for payloads that are not a
// valid Message document, and by Marshal for messages that could not
// be decoded again.
var ErrMalformed = errors.New("schema: malformed message")

// Message is the only entity on the wire. Every field is always
// present in the encoded form.
type Message struct {
	// Stamp is the producer-assigned Unix time in seconds.
	Stamp int64 `toml:"stamp"`

	// From is the sender identity. "server" is reserved.
	From string `toml:"from"`

	Event  string `toml:"event"`
	Action string `toml:"action"`

	// Target is the intended audience: a client identity, "clients",
	// or "server".
	Target string `toml:"target"`

	// Data is an opaque payload whose schema depends on Action. For
	// auth_request it carries the client secret.
	Data string `toml:"data"`
}

// Marshal encodes m as a TOML document. TOML strings are UTF-8, so a
// field holding any other bytes is rejected.
func Marshal(m Message) ([]byte, error) {
	for _, field := range []struct{ name, value string }{
		{"from", m.From},
		{"event", m.Event},
		{"action", m.Action},
		{"target", m.Target},
		{"data", m.Data},
	} {
		if !utf8.ValidString(field.value) {
			return nil, fmt.Errorf("%w: %s is not valid UTF-8", ErrMalformed, field.name)
		}
	}
	var buffer bytes.Buffer
	if err := toml.NewEncoder(&buffer).Encode(m); err != nil {
		return nil, fmt.Errorf("encoding message: %w", err)
	}
	return buffer.Bytes(), nil
}

// Unmarshal decodes a TOML document into a Message. Keys missing from
// the document decode as zero values and unknown keys are ignored.
func Unmarshal(payload []byte) (Message, error) {
	var m Message
	if _, err := toml.Decode(string(payload), &m); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return m, nil
}

// NewConnectRequest builds the admission request a client publishes on
// [ChannelConnecting].
func NewConnectRequest(stamp int64, identity, secret string) Message {
	return Message{
		Stamp:  stamp,
		From:   identity,
		Action: ActionAuthRequest,
		Data:   secret,
	}
}

// NewHeartbeat builds the server heartbeat event.
func NewHeartbeat(stamp int64) Message {
	return Message{
		Stamp: stamp,
		From:  FromServer,
		Event: EventHeartbeat,
	}
}

// NewQuery builds a server query for target, which is "clients" or
// a single client identity.
func NewQuery(stamp int64, action, target string) Message {
	return Message{
		Stamp:  stamp,
		From:   FromServer,
		Event:  EventQuery,
		Action: action,
		Target: target,
	}
}

// IsServerHeartbeat reports whether m is a heartbeat event sent by the
// server.
func (m Message) IsServerHeartbeat() bool {
	return m.From == FromServer && m.Event == EventHeartbeat
}
