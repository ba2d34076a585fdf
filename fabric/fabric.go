// Copyright 2026 The Netmon Authors
// SPDX-License-Identifier: Apache-2.0

package fabric

import (
	"context"
	"errors"
)

var (
	// ErrNotAuthorized is returned by Authenticate while no grant for
	// the identity exists or the secret does not match it.
	ErrNotAuthorized = errors.New("fabric: not authorized")

	// ErrPermissionDenied is returned when the connection's principal
	// lacks the capability for an operation.
	ErrPermissionDenied = errors.New("fabric: permission denied")

	// ErrClosed is returned by operations on a closed connection or
	// subscription.
	ErrClosed = errors.New("fabric: closed")
)

// Bus is the fan-out publish/subscribe capability.
type Bus interface {
	// Publish delivers payload to the current subscribers of channel
	// and returns how many there were. Zero is not an error.
	Publish(ctx context.Context, channel string, payload []byte) (int64, error)

	// Subscribe opens one subscription covering every channel.
	Subscribe(ctx context.Context, channels ...string) (Subscription, error)
}

// Subscription is a stream of payloads from one or more channels in the
// order the bus delivered them.
type Subscription interface {
	// Receive blocks until the next payload arrives, ctx ends, or the
	// subscription fails.
	Receive(ctx context.Context) ([]byte, error)

	Close() error
}

// Authenticator switches the underlying connection to a client
// identity. Each call is independent; repeating a successful call is
// harmless.
type Authenticator interface {
	Authenticate(ctx context.Context, identity, secret string) error
}

// Store is the authorization store capability.
type Store interface {
	// Get returns the value of key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set overwrites key.
	Set(ctx context.Context, key, value string) error

	// SetNX writes key only if it is absent and reports whether it did.
	SetNX(ctx context.Context, key, value string) (bool, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// RandomString returns a random opaque string carrying bits bits
	// of entropy, from the store's own generator.
	RandomString(ctx context.Context, bits int) (string, error)

	// AddMember, RemoveMember and Members manage a named set.
	AddMember(ctx context.Context, set, member string) error
	RemoveMember(ctx context.Context, set, member string) error
	Members(ctx context.Context, set string) ([]string, error)

	// Grant provisions g, replacing any earlier grant for the same
	// identity.
	Grant(ctx context.Context, g Grant) error

	// Revoke removes every capability of identity. Revoking an
	// unknown identity is not an error.
	Revoke(ctx context.Context, identity string) error

	// ReloadACL restores the access-control definitions from the
	// store's durable configuration, dropping provisioned grants.
	ReloadACL(ctx context.Context) error

	// FlushAll clears every key and set.
	FlushAll(ctx context.Context) error
}
