// Copyright 2026 The Netmon Authors
// SPDX-License-Identifier: Apache-2.0

package liveness

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/netmon-foundation/netmon/fabric"
	"github.com/netmon-foundation/netmon/lib/clock"
	"github.com/netmon-foundation/netmon/lib/schema"
)

// Auditor reconciles stored identities when the audit flag fires.
type Auditor interface {
	Audit(ctx context.Context) error
}

// DeadPolicy decides whether a registered identity should lose its
// grant. found is false when the identity has no readable session
// record; record then carries only the identity.
type DeadPolicy func(now time.Time, record schema.SessionRecord, found bool) bool

// KeepAll never declares an identity dead.
func KeepAll(time.Time, schema.SessionRecord, bool) bool { return false }

// AdmittedBefore declares identities dead once their last admission is
// older than maxAge, and identities with no session record at all.
func AdmittedBefore(maxAge time.Duration) DeadPolicy {
	return func(now time.Time, record schema.SessionRecord, found bool) bool {
		if !found {
			return true
		}
		return now.Sub(time.Unix(record.AdmittedAt, 0)) > maxAge
	}
}

// Reaper revokes the grants of identities its Policy declares dead and
// forgets them.
type Reaper struct {
	Store  fabric.Store
	Policy DeadPolicy
	Clock  clock.Clock
	Logger *slog.Logger
}

func (r *Reaper) Audit(ctx context.Context) error {
	policy := r.Policy
	if policy == nil {
		policy = KeepAll
	}
	identities, err := r.Store.Members(ctx, schema.KeyClients)
	if err != nil {
		return fmt.Errorf("listing identities: %w", err)
	}

	now := r.Clock.Now()
	reaped := 0
	for _, identity := range identities {
		record, found, err := r.session(ctx, identity)
		if err != nil {
			return err
		}
		if !policy(now, record, found) {
			continue
		}
		if err := r.reap(ctx, identity); err != nil {
			return err
		}
		reaped++
	}
	r.Logger.Info("audit finished", "identities", len(identities), "revoked", reaped)
	return nil
}

func (r *Reaper) session(ctx context.Context, identity string) (schema.SessionRecord, bool, error) {
	value, ok, err := r.Store.Get(ctx, schema.SessionKey(identity))
	if err != nil {
		return schema.SessionRecord{}, false, fmt.Errorf("reading session of %s: %w", identity, err)
	}
	if !ok {
		return schema.SessionRecord{Identity: identity}, false, nil
	}
	record, err := schema.DecodeSession(value)
	if err != nil {
		r.Logger.Warn("unreadable session record", "identity", identity, "error", err)
		return schema.SessionRecord{Identity: identity}, false, nil
	}
	return record, true, nil
}

func (r *Reaper) reap(ctx context.Context, identity string) error {
	if err := r.Store.Revoke(ctx, identity); err != nil {
		return fmt.Errorf("revoking %s: %w", identity, err)
	}
	if err := r.Store.Delete(ctx, schema.SessionKey(identity)); err != nil {
		return fmt.Errorf("deleting session of %s: %w", identity, err)
	}
	if err := r.Store.RemoveMember(ctx, schema.KeyClients, identity); err != nil {
		return fmt.Errorf("forgetting %s: %w", identity, err)
	}
	r.Logger.Info("revoked identity", "identity", identity)
	return nil
}
