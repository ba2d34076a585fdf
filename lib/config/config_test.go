// Copyright 2026 The Netmon Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default() does not validate: %v", err)
	}
	if cfg.Store.Network != "unix" || cfg.Store.Address != "/tmp/redis.sock" {
		t.Errorf("store = %s %s, want unix /tmp/redis.sock", cfg.Store.Network, cfg.Store.Address)
	}
	if cfg.Watchdog.Threshold.Std() != 60*time.Second {
		t.Errorf("watchdog.threshold = %v, want 60s", cfg.Watchdog.Threshold)
	}
	if cfg.Client.PublicUsername != "public" || cfg.Client.PublicPassword != "public" {
		t.Errorf("public credential = %s/%s", cfg.Client.PublicUsername, cfg.Client.PublicPassword)
	}
	policy := cfg.Policy()
	if policy.ConnectAttempts != 10 || policy.AuthInterval != time.Second {
		t.Errorf("Policy() = %+v", policy)
	}
}

func TestLoadRequiresNetmonConfig(t *testing.T) {
	t.Setenv(EnvConfig, "")
	_, err := Load()
	if err == nil {
		t.Fatal("expected error when NETMON_CONFIG is not set")
	}
	if !strings.HasPrefix(err.Error(), "NETMON_CONFIG environment variable not set") {
		t.Errorf("error = %q", err)
	}
}

func TestLoadFile(t *testing.T) {
	t.Setenv(EnvServer, "")
	path := writeFile(t, "netmon.yaml", `
log_level: debug
store:
  network: tcp
  address: 127.0.0.1:6379
  credentials_file: ${HOME}/auth.toml
server:
  heartbeat_min: 5s
  heartbeat_max: 15s
  session_max_age: 24h
client:
  server: monitor.example.net
  auth_attempts: 3
watchdog:
  threshold: 1m30s
`)
	t.Setenv("HOME", "/home/ops")
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.Store.CredentialsFile != "/home/ops/auth.toml" {
		t.Errorf("credentials_file = %q, want ${HOME} expanded", cfg.Store.CredentialsFile)
	}
	if cfg.Server.HeartbeatMin.Std() != 5*time.Second || cfg.Server.SessionMaxAge.Std() != 24*time.Hour {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Watchdog.Threshold.Std() != 90*time.Second {
		t.Errorf("watchdog.threshold = %v, want 1m30s", cfg.Watchdog.Threshold)
	}
	// Unset fields keep their defaults.
	if cfg.Watchdog.Interval.Std() != 10*time.Second || cfg.Client.ConnectAttempts != 10 {
		t.Errorf("defaults lost: interval %v, connect attempts %d", cfg.Watchdog.Interval, cfg.Client.ConnectAttempts)
	}
	if cfg.Client.AuthAttempts != 3 {
		t.Errorf("auth_attempts = %d, want 3", cfg.Client.AuthAttempts)
	}
}

func TestLoadFileRejectsBadDuration(t *testing.T) {
	path := writeFile(t, "netmon.yaml", "watchdog:\n  interval: soon\n")
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected error for an unparseable duration")
	}
}

func TestServerOverride(t *testing.T) {
	path := writeFile(t, "netmon.yaml", "client:\n  server: from-file\n")
	t.Setenv(EnvServer, "from-env")
	cfg, err := Resolve(path)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.Client.Server != "from-env" {
		t.Errorf("client.server = %q, want NETMON_SERVER to win", cfg.Client.Server)
	}
}

func TestResolveOrder(t *testing.T) {
	t.Setenv(EnvServer, "")
	flagPath := writeFile(t, "flag.yaml", "client:\n  server: flag\n")
	envPath := writeFile(t, "env.yaml", "client:\n  server: env\n")

	t.Setenv(EnvConfig, envPath)
	cfg, err := Resolve(flagPath)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.Client.Server != "flag" {
		t.Errorf("with --config: server = %q, want flag", cfg.Client.Server)
	}

	cfg, err = Resolve("")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.Client.Server != "env" {
		t.Errorf("with NETMON_CONFIG: server = %q, want env", cfg.Client.Server)
	}

	t.Setenv(EnvConfig, "")
	cfg, err = Resolve("")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.Client.Server != "localhost" {
		t.Errorf("with nothing: server = %q, want the default", cfg.Client.Server)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"network", func(c *Config) { c.Store.Network = "udp" }, "store.network"},
		{"heartbeat order", func(c *Config) { c.Server.HeartbeatMax = Duration(time.Second) }, "heartbeat_max"},
		{"threshold below heartbeat", func(c *Config) { c.Watchdog.Threshold = Duration(15 * time.Second) }, "watchdog.threshold"},
		{"budgets", func(c *Config) { c.Client.AuthAttempts = 0 }, "budgets"},
		{"supervisor", func(c *Config) { c.Supervisor.MaxFailures = 0 }, "max_failures"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := Default()
			test.modify(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), test.want) {
				t.Errorf("Validate() = %v, want mention of %q", err, test.want)
			}
		})
	}
}

func TestServerAddress(t *testing.T) {
	tests := []struct {
		server, tlsName   string
		address, hostname string
	}{
		{"monitor.example.net", "", "monitor.example.net:10101", "monitor.example.net"},
		{"monitor.example.net:6380", "", "monitor.example.net:6380", "monitor.example.net"},
		{"10.0.0.5", "redis.internal", "10.0.0.5:10101", "redis.internal"},
		{"::1", "", "[::1]:10101", "::1"},
	}
	for _, test := range tests {
		client := ClientConfig{Server: test.server, TLSServerName: test.tlsName}
		if got := client.ServerAddress(); got != test.address {
			t.Errorf("ServerAddress(%q) = %q, want %q", test.server, got, test.address)
		}
		if got := client.ServerName(); got != test.hostname {
			t.Errorf("ServerName(%q) = %q, want %q", test.server, got, test.hostname)
		}
	}
}
