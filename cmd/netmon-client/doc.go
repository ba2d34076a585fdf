// Copyright 2026 The Netmon Authors
// SPDX-License-Identifier: Apache-2.0

// Netmon-client joins the fleet. Each session connects to the
// authorization store as the public user over TLS, generates a fresh
// identity, and asks the server for admission on the connecting
// channel. Once admitted it listens on the broadcast channel and its
// own channel, answers queries, and watches the server's heartbeat.
//
// Failed sessions are retried after a short delay. Ten failures in a
// row end the process, as does a stale server heartbeat (exit status
// 2).
package main
