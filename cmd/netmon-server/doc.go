// Copyright 2026 The Netmon Authors
// SPDX-License-Identifier: Apache-2.0

// Netmon-server is the admission authority. It connects to the
// authorization store with full rights and runs three tasks until one
// of them fails:
//
//   - the admission handler, which grants publish and subscribe
//     capabilities to every well-formed connect request;
//   - the liveness monitor, which writes and broadcasts the heartbeat
//     and consumes the reset and audit flags;
//   - a watchdog, which exits with status 2 if the heartbeat in the
//     store goes stale.
//
// Any failure ends the process. An external supervisor restarts it.
package main
