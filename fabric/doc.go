// Copyright 2026 The Netmon Authors
// SPDX-License-Identifier: Apache-2.0

// Package fabric defines the two external capabilities netmon is built
// on: a fan-out message bus and an authorization store.
//
// Neither is implemented by netmon's core. The admission handshake, the
// admission handler, the liveness monitor, and the watchdog only see
// the interfaces in this package:
//
//   - [Bus]: publish to a named channel (reporting how many subscribers
//     received it), and subscribe to channels as one multiplexed
//     [Subscription].
//   - [Authenticator]: re-authenticate the underlying connection as a
//     client identity. Fails with [ErrNotAuthorized] until a grant for
//     that identity exists.
//   - [Store]: scalar keys with set-if-absent, the identity set, the
//     store's random-string facility, and per-identity [Grant]
//     provisioning and revocation.
//
// Two implementations exist. fabric/redisfabric speaks to Redis, where
// channels are pub/sub channels and grants are ACL users.
// fabric/memfabric is an in-process hub with the same permission
// semantics, used by tests and by local development.
//
// A [Grant] is the capability set of one client. [ClientGrant] is the
// only constructor the server uses, and it always yields exactly three
// capabilities: publish and subscribe on the client's own channel, and
// subscribe on the broadcast channel.
package fabric
