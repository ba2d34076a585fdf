// Copyright 2026 The Netmon Authors
// SPDX-License-Identifier: Apache-2.0

package memfabric

import (
	"context"
	"slices"
	"sync"

	"github.com/netmon-foundation/netmon/fabric"
)

// Conn is one principal's connection to a [Hub]. It implements
// fabric.Bus, fabric.Store and fabric.Authenticator.
type Conn struct {
	hub *Hub

	mu        sync.Mutex
	principal Principal
	identity  string // set once Authenticate succeeds
	closed    bool
	owned     []*subscription
}

var (
	_ fabric.Bus           = (*Conn)(nil)
	_ fabric.Store         = (*Conn)(nil)
	_ fabric.Authenticator = (*Conn)(nil)
)

// Identity returns the client identity the connection authenticated
// as, or "" before that.
func (c *Conn) Identity() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

// Close ends the connection and every subscription it opened.
func (c *Conn) Close() error {
	c.mu.Lock()
	owned := c.owned
	c.owned = nil
	c.closed = true
	c.mu.Unlock()
	for _, sub := range owned {
		sub.Close()
	}
	return nil
}

// snapshot returns who the connection acts as. Called without hub.mu.
func (c *Conn) snapshot() (Principal, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, "", fabric.ErrClosed
	}
	return c.principal, c.identity, nil
}

// requireAdmin guards store operations. Client and public principals
// have no store access at all.
func (c *Conn) requireAdmin() error {
	principal, identity, err := c.snapshot()
	if err != nil {
		return err
	}
	if principal != Admin || identity != "" {
		return fabric.ErrPermissionDenied
	}
	return nil
}

func (c *Conn) Authenticate(ctx context.Context, identity, secret string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, _, err := c.snapshot(); err != nil {
		return err
	}

	h := c.hub
	h.mu.Lock()
	if err := h.faultLocked("Authenticate"); err != nil {
		h.mu.Unlock()
		return err
	}
	stored, ok := h.grants[identity]
	h.mu.Unlock()
	if !ok || !secretMatches(stored, secret) {
		return fabric.ErrNotAuthorized
	}

	c.mu.Lock()
	c.identity = identity
	c.mu.Unlock()
	return nil
}

func (c *Conn) Publish(ctx context.Context, channel string, payload []byte) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	principal, identity, err := c.snapshot()
	if err != nil {
		return 0, err
	}

	h := c.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.faultLocked("Publish"); err != nil {
		return 0, err
	}
	if !h.allowedLocked(principal, identity, fabric.OpPublish, channel) {
		return 0, fabric.ErrPermissionDenied
	}

	var delivered int64
	for sub := range h.subs {
		if slices.Contains(sub.channels, channel) {
			sub.push(slices.Clone(payload))
			delivered++
		}
	}
	return delivered, nil
}

func (c *Conn) Subscribe(ctx context.Context, channels ...string) (fabric.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	principal, identity, err := c.snapshot()
	if err != nil {
		return nil, err
	}

	h := c.hub
	h.mu.Lock()
	if err := h.faultLocked("Subscribe"); err != nil {
		h.mu.Unlock()
		return nil, err
	}
	for _, channel := range channels {
		if !h.allowedLocked(principal, identity, fabric.OpSubscribe, channel) {
			h.mu.Unlock()
			return nil, fabric.ErrPermissionDenied
		}
	}
	sub := newSubscription(h, identity, slices.Clone(channels))
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	c.mu.Lock()
	c.owned = append(c.owned, sub)
	c.mu.Unlock()
	return sub, nil
}

// allowedLocked evaluates a bus permission. An authenticated
// connection is judged by its identity's current grant, so a revoked
// client loses its capabilities immediately.
func (h *Hub) allowedLocked(principal Principal, identity string, op fabric.Op, channel string) bool {
	if identity != "" {
		stored, ok := h.grants[identity]
		return ok && stored.grant.Allows(op, channel)
	}
	switch principal {
	case Admin:
		return true
	case Public:
		return op == fabric.OpPublish && publicMayPublish(channel)
	}
	return false
}

func (c *Conn) Get(ctx context.Context, key string) (string, bool, error) {
	if err := c.storeCall(ctx, "Get"); err != nil {
		return "", false, err
	}
	h := c.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	value, ok := h.keys[key]
	return value, ok, nil
}

func (c *Conn) Set(ctx context.Context, key, value string) error {
	if err := c.storeCall(ctx, "Set"); err != nil {
		return err
	}
	h := c.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	h.keys[key] = value
	h.mutations++
	return nil
}

func (c *Conn) SetNX(ctx context.Context, key, value string) (bool, error) {
	if err := c.storeCall(ctx, "SetNX"); err != nil {
		return false, err
	}
	h := c.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.keys[key]; exists {
		return false, nil
	}
	h.keys[key] = value
	h.mutations++
	return true, nil
}

func (c *Conn) Delete(ctx context.Context, key string) error {
	if err := c.storeCall(ctx, "Delete"); err != nil {
		return err
	}
	h := c.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.keys, key)
	h.mutations++
	return nil
}

// RandomString is open to every principal; clients generate their
// credentials with it before they are admitted.
func (c *Conn) RandomString(ctx context.Context, bits int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if _, _, err := c.snapshot(); err != nil {
		return "", err
	}
	h := c.hub
	h.mu.Lock()
	err := h.faultLocked("RandomString")
	h.mu.Unlock()
	if err != nil {
		return "", err
	}
	return randomHex(bits)
}

func (c *Conn) AddMember(ctx context.Context, set, member string) error {
	if err := c.storeCall(ctx, "AddMember"); err != nil {
		return err
	}
	h := c.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.sets[set]
	if !ok {
		members = make(map[string]struct{})
		h.sets[set] = members
	}
	members[member] = struct{}{}
	h.mutations++
	return nil
}

func (c *Conn) RemoveMember(ctx context.Context, set, member string) error {
	if err := c.storeCall(ctx, "RemoveMember"); err != nil {
		return err
	}
	h := c.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.sets[set]; ok {
		delete(members, member)
		if len(members) == 0 {
			delete(h.sets, set)
		}
	}
	h.mutations++
	return nil
}

func (c *Conn) Members(ctx context.Context, set string) ([]string, error) {
	if err := c.storeCall(ctx, "Members"); err != nil {
		return nil, err
	}
	h := c.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	members := make([]string, 0, len(h.sets[set]))
	for member := range h.sets[set] {
		members = append(members, member)
	}
	slices.Sort(members)
	return members, nil
}

func (c *Conn) Grant(ctx context.Context, g fabric.Grant) error {
	if err := c.storeCall(ctx, "Grant"); err != nil {
		return err
	}
	stored := storedGrant{hash: g.SecretHash()}
	stored.grant = fabric.Grant{
		Identity:  g.Identity,
		Publish:   slices.Clone(g.Publish),
		Subscribe: slices.Clone(g.Subscribe),
	}

	h := c.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	h.grants[g.Identity] = stored
	h.mutations++
	return nil
}

func (c *Conn) Revoke(ctx context.Context, identity string) error {
	if err := c.storeCall(ctx, "Revoke"); err != nil {
		return err
	}
	h := c.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.grants, identity)
	h.closeSubscriptionsLocked(identity)
	h.mutations++
	return nil
}

func (c *Conn) ReloadACL(ctx context.Context) error {
	if err := c.storeCall(ctx, "ReloadACL"); err != nil {
		return err
	}
	h := c.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	clear(h.grants)
	h.closeSubscriptionsLocked("")
	h.mutations++
	return nil
}

func (c *Conn) FlushAll(ctx context.Context) error {
	if err := c.storeCall(ctx, "FlushAll"); err != nil {
		return err
	}
	h := c.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	clear(h.keys)
	clear(h.sets)
	h.mutations++
	return nil
}

// storeCall runs the checks shared by every store operation.
func (c *Conn) storeCall(ctx context.Context, operation string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.requireAdmin(); err != nil {
		return err
	}
	h := c.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.faultLocked(operation)
}
