// Copyright 2026 The Netmon Authors
// SPDX-License-Identifier: Apache-2.0

package admission

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/netmon-foundation/netmon/dispatch"
	"github.com/netmon-foundation/netmon/fabric"
	"github.com/netmon-foundation/netmon/lib/clock"
	"github.com/netmon-foundation/netmon/lib/schema"
)

// Handler is the server side of admission. It implements
// dispatch.Handler for messages from the connecting and handlers
// channels.
type Handler struct {
	Store  fabric.Store
	Clock  clock.Clock
	Logger *slog.Logger
}

var _ dispatch.Handler = (*Handler)(nil)

func (h *Handler) Handle(ctx context.Context, message schema.Message) error {
	switch {
	case message.Action == schema.ActionAuthRequest:
		return h.admit(ctx, message)
	case message.IsServerHeartbeat():
		h.Logger.Debug("observed server heartbeat", "stamp", message.Stamp)
	}
	return nil
}

// admit provisions the grant for a connect request. The connecting
// channel is public: malformed requests are expected and dropped
// without an error or a reply.
func (h *Handler) admit(ctx context.Context, request schema.Message) error {
	if request.From == "" || request.Data == "" || request.From == schema.FromServer || !schema.ValidIdentity(request.From) {
		h.Logger.Debug("ignoring malformed connect request", "from_bytes", len(request.From), "data_bytes", len(request.Data))
		return nil
	}

	identity := request.From
	grant := fabric.ClientGrant(identity, request.Data)

	if err := h.Store.AddMember(ctx, schema.KeyClients, identity); err != nil {
		return fmt.Errorf("registering %s: %w", shortIdentity(identity), err)
	}
	record, err := schema.EncodeSession(schema.SessionRecord{
		Identity:    identity,
		AdmittedAt:  h.Clock.Now().Unix(),
		Fingerprint: grant.Fingerprint(),
	})
	if err != nil {
		return err
	}
	if err := h.Store.Set(ctx, schema.SessionKey(identity), record); err != nil {
		return fmt.Errorf("recording session of %s: %w", shortIdentity(identity), err)
	}
	if err := h.Store.Grant(ctx, grant); err != nil {
		return fmt.Errorf("provisioning grant: %w", err)
	}

	h.Logger.Info("client admitted",
		"identity", shortIdentity(identity),
		"fingerprint", grant.Fingerprint()[:16],
	)
	return nil
}

// Serve subscribes to the connecting and handlers channels and feeds
// them to dispatcher until receiving fails.
func Serve(ctx context.Context, bus fabric.Bus, dispatcher *dispatch.Dispatcher) error {
	subscription, err := bus.Subscribe(ctx, schema.ChannelConnecting, schema.ChannelHandlers)
	if err != nil {
		return fmt.Errorf("subscribing to admission channels: %w", err)
	}
	defer subscription.Close()
	return dispatcher.Run(ctx, subscription)
}
