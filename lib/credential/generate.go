// Copyright 2026 The Netmon Authors
// SPDX-License-Identifier: Apache-2.0

// Package credential generates the ephemeral identity and secret a
// client presents for admission.
//
// Both halves come from the store's own random-string facility rather
// than a local generator, so the store can validate their length and
// charset later. Identities are never checked for collisions; at 1024
// bits the probability is negligible. A client generates a fresh
// [Identity] for every admission session and never persists it.
package credential

import (
	"context"
	"errors"
	"fmt"

	"github.com/netmon-foundation/netmon/lib/schema"
	"github.com/netmon-foundation/netmon/lib/secret"
)

// DefaultBits is the entropy of each generated string.
const DefaultBits = 1024

// RandomSource is the part of fabric.Store the generator needs.
type RandomSource interface {
	RandomString(ctx context.Context, bits int) (string, error)
}

// Generator produces identities.
type Generator struct {
	Source RandomSource

	// Bits is the entropy of each half. Zero means DefaultBits.
	Bits int
}

// Identity is one client's credentials for one admission session.
type Identity struct {
	// Username is public. It names the client and suffixes its
	// private channel.
	Username string

	// Secret is the capability credential, held outside the Go heap.
	Secret *secret.Buffer
}

// Close zeroes the secret.
func (id *Identity) Close() error {
	if id == nil || id.Secret == nil {
		return nil
	}
	return id.Secret.Close()
}

// Generate draws a username and a secret with two independent calls to
// the random source.
func (g Generator) Generate(ctx context.Context) (*Identity, error) {
	bits := g.Bits
	if bits == 0 {
		bits = DefaultBits
	}
	if g.Source == nil {
		return nil, errors.New("credential generator has no random source")
	}

	username, err := g.Source.RandomString(ctx, bits)
	if err != nil {
		return nil, fmt.Errorf("generating username: %w", err)
	}
	if !schema.ValidIdentity(username) {
		return nil, fmt.Errorf("random source returned an unusable username of %d bytes", len(username))
	}

	raw, err := g.Source.RandomString(ctx, bits)
	if err != nil {
		return nil, fmt.Errorf("generating secret: %w", err)
	}
	if raw == "" {
		return nil, errors.New("random source returned an empty secret")
	}
	buffer, err := secret.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("protecting secret: %w", err)
	}
	return &Identity{Username: username, Secret: buffer}, nil
}
