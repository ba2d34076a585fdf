// Copyright 2026 The Netmon Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/netmon-foundation/netmon/fabric/memfabric"
	"github.com/netmon-foundation/netmon/lib/clock"
	"github.com/netmon-foundation/netmon/lib/config"
	"github.com/netmon-foundation/netmon/lib/logging"
	"github.com/netmon-foundation/netmon/lib/schema"
	"github.com/netmon-foundation/netmon/lib/testutil"
)

const wait = 5 * time.Second

var epoch = time.Unix(1700000000, 0)

func startServer(ctx context.Context, hub *memfabric.Hub, fake *clock.FakeClock) <-chan error {
	s := &server{
		backend: hub.Connect(memfabric.Admin),
		config:  config.Default(),
		clock:   fake,
		logger:  logging.Discard(),
	}
	done := make(chan error, 1)
	go func() { done <- s.run(ctx) }()
	return done
}

func TestServerAdmitsClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := memfabric.NewHub()
	admin := hub.Connect(memfabric.Admin)
	fake := clock.Fake(epoch)
	done := startServer(ctx, hub, fake)

	// The watchdog ticker plus the monitor's sleep after its first
	// tick. That tick fires the reset flag, so it must finish before
	// any client is admitted.
	fake.WaitForTimers(2)
	if value, found, _ := admin.Get(ctx, schema.KeyHeartbeat); !found || value != "1700000000" {
		t.Fatalf("heartbeat after first tick = %q, %v", value, found)
	}
	testutil.Eventually(t, wait, func() bool {
		return hub.Subscribers(schema.ChannelConnecting) == 1
	}, "admission subscription")

	request, err := schema.Marshal(schema.NewConnectRequest(epoch.Unix(), "abc", "xyz"))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	client := hub.Connect(memfabric.Public)
	if subscribers, err := client.Publish(ctx, schema.ChannelConnecting, request); err != nil || subscribers != 1 {
		t.Fatalf("Publish = %d, %v; want one subscriber", subscribers, err)
	}
	testutil.Eventually(t, wait, func() bool {
		_, granted := hub.Grant("abc")
		return granted
	}, "grant for abc")
	if err := client.Authenticate(ctx, "abc", "xyz"); err != nil {
		t.Fatalf("Authenticate after admission: %v", err)
	}

	cancel()
	if err := testutil.RequireReceive(t, done, wait, "server result"); !errors.Is(err, context.Canceled) {
		t.Errorf("run = %v, want context.Canceled", err)
	}
}

func TestServerStopsOnStoreFailure(t *testing.T) {
	hub := memfabric.NewHub()
	broken := errors.New("store offline")
	hub.Fail("Set", broken)

	done := startServer(context.Background(), hub, clock.Fake(epoch))
	err := testutil.RequireReceive(t, done, wait, "server result")
	if !errors.Is(err, broken) {
		t.Errorf("run = %v, want the store error", err)
	}
}

func TestAuditPolicy(t *testing.T) {
	cfg := config.Default()
	s := &server{config: cfg}
	record := schema.SessionRecord{Identity: "abc", AdmittedAt: epoch.Unix()}
	if s.auditPolicy()(epoch.Add(1000*time.Hour), record, true) {
		t.Error("default policy reaped a live session")
	}

	cfg.Server.SessionMaxAge = config.Duration(time.Hour)
	policy := s.auditPolicy()
	if policy(epoch.Add(30*time.Minute), record, true) {
		t.Error("session reaped before session_max_age")
	}
	if !policy(epoch.Add(2*time.Hour), record, true) {
		t.Error("session kept past session_max_age")
	}
	if !policy(epoch, schema.SessionRecord{}, false) {
		t.Error("member without a session record kept")
	}
}
