// Copyright 2026 The Netmon Authors
// SPDX-License-Identifier: Apache-2.0

// Package liveness keeps the server's authorization state consistent
// over time and lets every process detect a dead server.
//
// The [Monitor] runs on the server. Each tick writes the heartbeat
// key, publishes a heartbeat message on the broadcast and handlers
// channels, and evaluates the control flags. Ticks are spaced by a
// random interval so outside observers cannot predict them.
//
// The control flags "reset" and "audit" are self-clearing booleans in
// the store. [Flags.Evaluate] creates each as true when absent, then
// consumes it: a true flag is set back to false before its action runs,
// so each arming fires once. Reset flushes the store, reloads the ACL
// definitions, and disarms audit. Audit hands the registered identities
// to an [Auditor]; [Reaper] is the stock one and revokes the grants its
// [DeadPolicy] selects.
//
// The [Watchdog] runs in every process that depends on the server. It
// reads a [HeartbeatSource] on a fixed interval and returns
// [ErrHeartbeatStale] once now minus the heartbeat exceeds the
// threshold. Equal to the threshold is still alive. Callers exit
// fatally on that error; a stale watcher must not keep serving.
package liveness
