// Copyright 2026 The Netmon Authors
// SPDX-License-Identifier: Apache-2.0

// Netmon-ctl is the operator tool. It talks to the authorization store
// with the server's credentials to arm the reset and audit flags, query
// admitted clients, and report liveness. It also manages the age
// keypair and sealed credentials file the server reads at startup.
//
//	netmon-ctl status
//	netmon-ctl arm reset
//	netmon-ctl query env_vars_os --target <identity>
//	netmon-ctl keygen > identity.txt
//	netmon-ctl seal --recipient age1... < auth.toml > auth.toml.age
package main
