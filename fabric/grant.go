// Copyright 2026 The Netmon Authors
// SPDX-License-Identifier: Apache-2.0

package fabric

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/netmon-foundation/netmon/lib/schema"
)

// Op is a bus operation a grant can allow.
type Op string

const (
	OpPublish   Op = "publish"
	OpSubscribe Op = "subscribe"
)

// Grant is the capability set of one client identity. Everything not
// listed is denied.
type Grant struct {
	Identity string

	// Secret is the credential the client authenticates with. Stores
	// keep only SecretHash.
	Secret string

	Publish   []string
	Subscribe []string
}

// ClientGrant returns the grant of a newly admitted client: publish and
// subscribe on its own channel, subscribe on the broadcast channel.
func ClientGrant(identity, secret string) Grant {
	own := schema.ClientChannel(identity)
	return Grant{
		Identity:  identity,
		Secret:    secret,
		Publish:   []string{own},
		Subscribe: []string{own, schema.ChannelBroadcast},
	}
}

// ACLUser returns the store user name of identity. Client users live in
// their own namespace so a client can never claim an operator account.
func ACLUser(identity string) string {
	return "client:" + identity
}

// Allows reports whether g permits op on channel. Channels match
// literally.
func (g Grant) Allows(op Op, channel string) bool {
	switch op {
	case OpPublish:
		return slices.Contains(g.Publish, channel)
	case OpSubscribe:
		return slices.Contains(g.Subscribe, channel)
	}
	return false
}

// Channels returns every channel the grant mentions, sorted and
// de-duplicated.
func (g Grant) Channels() []string {
	channels := append(slices.Clone(g.Publish), g.Subscribe...)
	slices.Sort(channels)
	return slices.Compact(channels)
}

// SecretHash returns the hex SHA-256 of the secret, the form in which
// Redis ACLs store passwords.
func (g Grant) SecretHash() string {
	return HashSecret(g.Secret)
}

// HashSecret returns the hex SHA-256 of secret.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// Fingerprint identifies the grant's identity, capabilities, and
// credential without revealing the credential. Two grants with equal
// fingerprints are interchangeable.
func (g Grant) Fingerprint() string {
	publish := slices.Clone(g.Publish)
	subscribe := slices.Clone(g.Subscribe)
	slices.Sort(publish)
	slices.Sort(subscribe)

	var canonical strings.Builder
	canonical.WriteString(g.Identity)
	for _, channel := range publish {
		canonical.WriteString("\x00publish\x00" + channel)
	}
	for _, channel := range subscribe {
		canonical.WriteString("\x00subscribe\x00" + channel)
	}
	canonical.WriteString("\x00secret\x00" + g.SecretHash())

	sum := blake3.Sum256([]byte(canonical.String()))
	return hex.EncodeToString(sum[:])
}
