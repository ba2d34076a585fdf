// Copyright 2026 The Netmon Authors
// SPDX-License-Identifier: Apache-2.0

package admission

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"testing"
	"time"

	"github.com/netmon-foundation/netmon/dispatch"
	"github.com/netmon-foundation/netmon/fabric"
	"github.com/netmon-foundation/netmon/fabric/memfabric"
	"github.com/netmon-foundation/netmon/lib/clock"
	"github.com/netmon-foundation/netmon/lib/schema"
	"github.com/netmon-foundation/netmon/lib/testutil"
)

var epoch = time.Unix(1700000000, 0)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHandler(hub *memfabric.Hub) *Handler {
	return &Handler{
		Store:  hub.Connect(memfabric.Admin),
		Clock:  clock.Fake(epoch),
		Logger: discardLogger(),
	}
}

func TestHandlerGrantsExactlyThreeCapabilities(t *testing.T) {
	ctx := context.Background()
	hub := memfabric.NewHub()
	handler := newHandler(hub)

	if err := handler.Handle(ctx, schema.NewConnectRequest(epoch.Unix(), "abc", "xyz")); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	g, ok := hub.Grant("abc")
	if !ok {
		t.Fatal("no grant provisioned")
	}
	if !slices.Equal(g.Publish, []string{"clients:msg:abc"}) {
		t.Errorf("publish capabilities = %v", g.Publish)
	}
	if !slices.Equal(g.Subscribe, []string{"clients:msg:abc", "clients:msg:all"}) {
		t.Errorf("subscribe capabilities = %v", g.Subscribe)
	}

	admin := hub.Connect(memfabric.Admin)
	members, err := admin.Members(ctx, schema.KeyClients)
	if err != nil {
		t.Fatalf("Members: %v", err)
	}
	if !slices.Equal(members, []string{"abc"}) {
		t.Errorf("registered identities = %v", members)
	}

	value, ok, err := admin.Get(ctx, schema.SessionKey("abc"))
	if err != nil || !ok {
		t.Fatalf("session record missing: %v", err)
	}
	record, err := schema.DecodeSession(value)
	if err != nil {
		t.Fatalf("DecodeSession: %v", err)
	}
	want := schema.SessionRecord{
		Identity:    "abc",
		AdmittedAt:  epoch.Unix(),
		Fingerprint: fabric.ClientGrant("abc", "xyz").Fingerprint(),
	}
	if record != want {
		t.Errorf("session record = %+v, want %+v", record, want)
	}
}

func TestHandlerIsIdempotent(t *testing.T) {
	ctx := context.Background()
	once := memfabric.NewHub()
	twice := memfabric.NewHub()
	request := schema.NewConnectRequest(epoch.Unix(), "abc", "xyz")

	if err := newHandler(once).Handle(ctx, request); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	handler := newHandler(twice)
	for range 2 {
		if err := handler.Handle(ctx, request); err != nil {
			t.Fatalf("Handle: %v", err)
		}
	}

	first, _ := once.Grant("abc")
	second, _ := twice.Grant("abc")
	if first.Fingerprint() != second.Fingerprint() {
		t.Errorf("grant after two requests %+v differs from grant after one %+v", second, first)
	}

	client := twice.Connect(memfabric.Public)
	if err := client.Authenticate(ctx, "abc", "xyz"); err != nil {
		t.Errorf("Authenticate after duplicate requests: %v", err)
	}
}

// Minimal clients send sparse documents. Missing keys decode as empty,
// so from, action and data are enough to be admitted, while a document
// without an action is not a connect request at all.
func TestHandlerAdmitsSparseDocuments(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		admit   bool
	}{
		{"from action data", "from = \"abc\"\naction = \"auth_request\"\ndata = \"xyz\"\n", true},
		{"from data", "from = \"abc\"\ndata = \"xyz\"\n", false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ctx := context.Background()
			hub := memfabric.NewHub()
			results := make(chan dispatch.Result, 1)
			dispatcher := &dispatch.Dispatcher{
				Handler: newHandler(hub),
				Logger:  discardLogger(),
				Results: results,
			}

			dispatcher.Dispatch(ctx, []byte(test.payload))
			result := testutil.RequireReceive(t, results, 5*time.Second, "dispatch result")
			dispatcher.Wait()
			if result.Err != nil {
				t.Fatalf("dispatch result error: %v", result.Err)
			}
			if result.Message.From != "abc" || result.Message.Data != "xyz" || result.Message.Stamp != 0 || result.Message.Target != "" {
				t.Errorf("decoded message = %+v", result.Message)
			}

			_, granted := hub.Grant("abc")
			if granted != test.admit {
				t.Fatalf("granted = %v, want %v", granted, test.admit)
			}
			if !test.admit {
				if got := hub.Mutations(); got != 0 {
					t.Errorf("store mutations = %d, want 0", got)
				}
				return
			}
			client := hub.Connect(memfabric.Public)
			if err := client.Authenticate(ctx, "abc", "xyz"); err != nil {
				t.Errorf("Authenticate: %v", err)
			}
		})
	}
}

func TestHandlerDropsInvalidRequests(t *testing.T) {
	tests := []struct {
		name    string
		message schema.Message
	}{
		{"empty from", schema.NewConnectRequest(1, "", "xyz")},
		{"empty data", schema.NewConnectRequest(1, "abc", "")},
		{"glob in identity", schema.NewConnectRequest(1, "a*", "xyz")},
		{"channel separator in identity", schema.NewConnectRequest(1, "abc:def", "xyz")},
		{"broadcast collision", schema.NewConnectRequest(1, "all", "xyz")},
		{"reserved server identity", schema.NewConnectRequest(1, "server", "xyz")},
		{"heartbeat", schema.NewHeartbeat(1)},
		{"unknown action", schema.Message{From: "abc", Action: "reboot", Data: "now"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			hub := memfabric.NewHub()
			if err := newHandler(hub).Handle(context.Background(), test.message); err != nil {
				t.Errorf("Handle returned %v for an ignorable message", err)
			}
			if got := hub.Mutations(); got != 0 {
				t.Errorf("store mutations = %d, want 0", got)
			}
		})
	}
}

func TestHandlerReportsStoreFailure(t *testing.T) {
	hub := memfabric.NewHub()
	broken := errors.New("store offline")
	hub.Fail("Grant", broken)

	err := newHandler(hub).Handle(context.Background(), schema.NewConnectRequest(1, "abc", "xyz"))
	if !errors.Is(err, broken) {
		t.Errorf("Handle error = %v, want %v", err, broken)
	}
	if _, ok := hub.Grant("abc"); ok {
		t.Error("grant exists despite failure")
	}
}
