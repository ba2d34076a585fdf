// Copyright 2026 The Netmon Authors
// SPDX-License-Identifier: Apache-2.0

// Package admission implements both sides of the netmon admission
// handshake.
//
// The bus offers no request/response, so admission is two polls. A
// client first publishes a connect request carrying its generated
// identity and secret on the public connecting channel, until the
// publish reports at least one subscriber. It then repeatedly tries to
// authenticate as that identity until the server has provisioned the
// grant. Both phases have a fixed delay and a hard attempt budget.
// Exhausting either ends the session with [ErrNoServer] or
// [ErrAuthTimeout]; restarting is the caller's decision.
//
// The policy lives in [Transition], a pure function over [Machine], so
// budgets and delays are testable without I/O. [Handshake] performs
// the I/O the machine asks for.
//
// On the server, [Handler] consumes connect requests. A valid request
// registers the identity, records the session, and provisions a grant
// of exactly three capabilities (fabric.ClientGrant). Provisioning is an
// overwrite, so duplicate requests from a retrying client are harmless.
// Invalid requests are dropped silently; the connecting channel is
// unauthenticated and never receives replies.
package admission
