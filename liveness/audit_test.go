// Copyright 2026 The Netmon Authors
// SPDX-License-Identifier: Apache-2.0

package liveness

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/netmon-foundation/netmon/fabric"
	"github.com/netmon-foundation/netmon/fabric/memfabric"
	"github.com/netmon-foundation/netmon/lib/clock"
	"github.com/netmon-foundation/netmon/lib/schema"
)

func admit(t *testing.T, store fabric.Store, identity string, admittedAt time.Time) {
	t.Helper()
	ctx := context.Background()
	grant := fabric.ClientGrant(identity, "secret-"+identity)
	record, err := schema.EncodeSession(schema.SessionRecord{
		Identity:    identity,
		AdmittedAt:  admittedAt.Unix(),
		Fingerprint: grant.Fingerprint(),
	})
	if err != nil {
		t.Fatalf("EncodeSession: %v", err)
	}
	if err := store.AddMember(ctx, schema.KeyClients, identity); err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if err := store.Set(ctx, schema.SessionKey(identity), record); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Grant(ctx, grant); err != nil {
		t.Fatalf("Grant: %v", err)
	}
}

func TestReaperKeepAll(t *testing.T) {
	hub := memfabric.NewHub()
	admin := hub.Connect(memfabric.Admin)
	admit(t, admin, "abc", epoch.Add(-48*time.Hour))

	reaper := &Reaper{Store: admin, Clock: clock.Fake(epoch), Logger: discardLogger()}
	if err := reaper.Audit(context.Background()); err != nil {
		t.Fatalf("Audit: %v", err)
	}
	if _, ok := hub.Grant("abc"); !ok {
		t.Error("default policy revoked a grant")
	}
}

func TestReaperAdmittedBefore(t *testing.T) {
	ctx := context.Background()
	hub := memfabric.NewHub()
	admin := hub.Connect(memfabric.Admin)
	admit(t, admin, "fresh", epoch.Add(-time.Minute))
	admit(t, admin, "stale", epoch.Add(-2*time.Hour))
	// Registered but never recorded.
	if err := admin.AddMember(ctx, schema.KeyClients, "orphan"); err != nil {
		t.Fatalf("AddMember: %v", err)
	}

	reaper := &Reaper{
		Store:  admin,
		Policy: AdmittedBefore(time.Hour),
		Clock:  clock.Fake(epoch),
		Logger: discardLogger(),
	}
	if err := reaper.Audit(ctx); err != nil {
		t.Fatalf("Audit: %v", err)
	}

	if _, ok := hub.Grant("fresh"); !ok {
		t.Error("fresh identity was revoked")
	}
	if _, ok := hub.Grant("stale"); ok {
		t.Error("stale identity kept its grant")
	}
	if _, ok, _ := admin.Get(ctx, schema.SessionKey("stale")); ok {
		t.Error("stale session record kept")
	}
	members, err := admin.Members(ctx, schema.KeyClients)
	if err != nil {
		t.Fatalf("Members: %v", err)
	}
	if !slices.Equal(members, []string{"fresh"}) {
		t.Errorf("remaining identities = %v, want [fresh]", members)
	}
}

func TestAdmittedBeforeBoundary(t *testing.T) {
	policy := AdmittedBefore(time.Hour)
	record := schema.SessionRecord{Identity: "abc", AdmittedAt: epoch.Unix()}
	if policy(epoch.Add(time.Hour), record, true) {
		t.Error("identity exactly maxAge old declared dead")
	}
	if !policy(epoch.Add(time.Hour+time.Second), record, true) {
		t.Error("identity older than maxAge kept")
	}
	if !policy(epoch, schema.SessionRecord{Identity: "abc"}, false) {
		t.Error("identity without a record kept")
	}
}
