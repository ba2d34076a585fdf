// Copyright 2026 The Netmon Authors
// SPDX-License-Identifier: Apache-2.0

// Package memfabric is an in-process implementation of the fabric
// capabilities. A [Hub] holds the keys, sets, grants, and channel
// subscriptions; each [Conn] is one principal's view of it, with the
// same permission rules the Redis deployment enforces through ACLs.
package memfabric

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"slices"
	"sync"

	"github.com/netmon-foundation/netmon/fabric"
	"github.com/netmon-foundation/netmon/lib/schema"
)

// Principal is who a connection acts as before any Authenticate call.
type Principal int

const (
	// Admin may do anything. The server and netmon-ctl connect as
	// Admin.
	Admin Principal = iota

	// Public may only publish on the connecting channel and
	// authenticate. Clients connect as Public.
	Public
)

// Hub is the shared state of an in-memory fabric.
type Hub struct {
	mu sync.Mutex

	keys   map[string]string
	sets   map[string]map[string]struct{}
	grants map[string]storedGrant
	subs   map[*subscription]struct{}

	mutations int
	faults    map[string]error
}

type storedGrant struct {
	grant fabric.Grant
	hash  string
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{
		keys:   make(map[string]string),
		sets:   make(map[string]map[string]struct{}),
		grants: make(map[string]storedGrant),
		subs:   make(map[*subscription]struct{}),
		faults: make(map[string]error),
	}
}

// Connect opens a connection acting as principal.
func (h *Hub) Connect(principal Principal) *Conn {
	return &Conn{hub: h, principal: principal}
}

// Grant returns the current grant of identity with its secret cleared.
func (h *Hub) Grant(identity string) (fabric.Grant, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	stored, ok := h.grants[identity]
	if !ok {
		return fabric.Grant{}, false
	}
	g := stored.grant
	g.Secret = ""
	g.Publish = slices.Clone(g.Publish)
	g.Subscribe = slices.Clone(g.Subscribe)
	return g, true
}

// Mutations returns how many store writes the hub has applied. Reads
// and publishes do not count.
func (h *Hub) Mutations() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mutations
}

// Subscribers returns the number of open subscriptions covering
// channel.
func (h *Hub) Subscribers(channel string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.subscribersLocked(channel)
}

// Fail makes every later call of the named operation return err, until
// Fail is called again with a nil err. Operation names are the method
// names of [Conn] ("Get", "Publish", "Grant", ...).
func (h *Hub) Fail(operation string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err == nil {
		delete(h.faults, operation)
		return
	}
	h.faults[operation] = err
}

func (h *Hub) faultLocked(operation string) error {
	if err := h.faults[operation]; err != nil {
		return fmt.Errorf("memfabric: %s: %w", operation, err)
	}
	return nil
}

func (h *Hub) subscribersLocked(channel string) int {
	count := 0
	for sub := range h.subs {
		if slices.Contains(sub.channels, channel) {
			count++
		}
	}
	return count
}

// closeSubscriptionsLocked ends every subscription held by a connection
// authenticated as identity, or by any client when identity is empty.
// Redis likewise disconnects the clients of a deleted ACL user.
func (h *Hub) closeSubscriptionsLocked(identity string) {
	for sub := range h.subs {
		if sub.identity == "" {
			continue
		}
		if identity == "" || sub.identity == identity {
			delete(h.subs, sub)
			sub.shutdown()
		}
	}
}

// randomHex returns bits of entropy as lowercase hex, rounding up to a
// whole hex digit the way ACL GENPASS does.
func randomHex(bits int) (string, error) {
	if bits <= 0 || bits > 4096 {
		return "", fmt.Errorf("memfabric: random string of %d bits out of range 1..4096", bits)
	}
	digits := (bits + 3) / 4
	raw := make([]byte, (digits+1)/2)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("memfabric: reading randomness: %w", err)
	}
	return hex.EncodeToString(raw)[:digits], nil
}

func secretMatches(stored storedGrant, secret string) bool {
	return subtle.ConstantTimeCompare([]byte(stored.hash), []byte(fabric.HashSecret(secret))) == 1
}

// publicMayPublish is the whole of the public principal's capability.
func publicMayPublish(channel string) bool {
	return channel == schema.ChannelConnecting
}
