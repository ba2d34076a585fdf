// Copyright 2026 The Netmon Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the YAML configuration shared by the netmon
// binaries.
//
// Configuration comes from a single file named by the --config flag or
// the NETMON_CONFIG environment variable. There is no file discovery.
// Without either, [Default] is used as is. The one environment override
// is NETMON_SERVER, which replaces client.server so a fleet can share a
// config file while pointing at different servers.
//
// Durations are written as Go duration strings ("10s", "1m30s").
// Path fields accept ${HOME} and ${VAR:-default} expansion.
//
// The authorization store's own credentials live outside the YAML file
// in a small TOML file read by [StoreConfig.LoadCredentials], optionally sealed
// with age.
package config
