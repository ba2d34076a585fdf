// Copyright 2026 The Netmon Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/netmon-foundation/netmon/admission"
	"github.com/netmon-foundation/netmon/lib/logging"
)

// Environment variables.
const (
	EnvConfig = "NETMON_CONFIG"
	EnvServer = "NETMON_SERVER"
)

// DefaultClientPort is the TLS port of the authorization store as
// exposed to clients.
const DefaultClientPort = 10101

// Config is the master configuration.
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	Store      StoreConfig      `yaml:"store"`
	Server     ServerConfig     `yaml:"server"`
	Client     ClientConfig     `yaml:"client"`
	Watchdog   WatchdogConfig   `yaml:"watchdog"`
	Supervisor SupervisorConfig `yaml:"supervisor"`
}

// StoreConfig is how the server and netmon-ctl reach the store with
// full rights.
type StoreConfig struct {
	// Network is "unix" or "tcp".
	Network string `yaml:"network"`
	Address string `yaml:"address"`

	// CredentialsFile is a TOML file with username and password. A
	// missing file means the default user with no password.
	CredentialsFile string `yaml:"credentials_file"`

	// CredentialsIdentity, when set, is an age identity file and
	// CredentialsFile is sealed to it.
	CredentialsIdentity string `yaml:"credentials_identity"`
}

// ServerConfig tunes the liveness monitor.
type ServerConfig struct {
	HeartbeatMin Duration `yaml:"heartbeat_min"`
	HeartbeatMax Duration `yaml:"heartbeat_max"`

	// SessionMaxAge is how long an admission stays valid before an
	// audit revokes it. Zero keeps every admission.
	SessionMaxAge Duration `yaml:"session_max_age"`
}

// ClientConfig is how a client reaches the store as the public user.
type ClientConfig struct {
	// Server is a host or host:port. Without a port DefaultClientPort
	// is used.
	Server string `yaml:"server"`

	// TLSServerName overrides the name verified against the server
	// certificate. Empty means the host part of Server.
	TLSServerName string `yaml:"tls_server_name"`

	// Plaintext disables TLS, for local development only.
	Plaintext bool `yaml:"plaintext"`

	PublicUsername string `yaml:"public_username"`
	PublicPassword string `yaml:"public_password"`

	ConnectAttempts int      `yaml:"connect_attempts"`
	ConnectDelay    Duration `yaml:"connect_delay"`
	AuthAttempts    int      `yaml:"auth_attempts"`
	AuthInterval    Duration `yaml:"auth_interval"`
}

// WatchdogConfig applies to both the server and client watchdogs.
type WatchdogConfig struct {
	Interval  Duration `yaml:"interval"`
	Threshold Duration `yaml:"threshold"`
}

// SupervisorConfig is the client restart policy.
type SupervisorConfig struct {
	MaxFailures int      `yaml:"max_failures"`
	Delay       Duration `yaml:"delay"`
	ResetAfter  Duration `yaml:"reset_after"`
}

// Default returns a complete configuration. Loaded files are merged
// over it.
func Default() *Config {
	policy := admission.DefaultPolicy()
	return &Config{
		LogLevel: "info",
		Store: StoreConfig{
			Network:         "unix",
			Address:         "/tmp/redis.sock",
			CredentialsFile: "auth.toml",
		},
		Server: ServerConfig{
			HeartbeatMin: Duration(10 * time.Second),
			HeartbeatMax: Duration(20 * time.Second),
		},
		Client: ClientConfig{
			Server:          "localhost",
			PublicUsername:  "public",
			PublicPassword:  "public",
			ConnectAttempts: policy.ConnectAttempts,
			ConnectDelay:    Duration(policy.ConnectDelay),
			AuthAttempts:    policy.AuthAttempts,
			AuthInterval:    Duration(policy.AuthInterval),
		},
		Watchdog: WatchdogConfig{
			Interval:  Duration(10 * time.Second),
			Threshold: Duration(60 * time.Second),
		},
		Supervisor: SupervisorConfig{
			MaxFailures: 10,
			Delay:       Duration(6 * time.Second),
			ResetAfter:  Duration(60 * time.Second),
		},
	}
}

// Load reads the file named by NETMON_CONFIG. It fails when the
// variable is unset.
func Load() (*Config, error) {
	path := os.Getenv(EnvConfig)
	if path == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your netmon.yaml, or use --config", EnvConfig)
	}
	return LoadFile(path)
}

// Resolve is what the binaries call: the --config value if given,
// then NETMON_CONFIG, then Default. The result is validated.
func Resolve(flagPath string) (*Config, error) {
	var (
		cfg *Config
		err error
	)
	switch {
	case flagPath != "":
		cfg, err = LoadFile(flagPath)
	case os.Getenv(EnvConfig) != "":
		cfg, err = Load()
	default:
		cfg = Default()
		cfg.applyEnvironment()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadFile merges the YAML file at path over Default.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.applyEnvironment()
	return cfg, nil
}

func (c *Config) applyEnvironment() {
	if server := os.Getenv(EnvServer); server != "" {
		c.Client.Server = server
	}
	vars := map[string]string{"HOME": os.Getenv("HOME")}
	c.Store.Address = expandVars(c.Store.Address, vars)
	c.Store.CredentialsFile = expandVars(c.Store.CredentialsFile, vars)
	c.Store.CredentialsIdentity = expandVars(c.Store.CredentialsIdentity, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default}.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name, fallback := parts[1], parts[2]
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return fallback
	})
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error

	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}

	if c.Store.Network != "unix" && c.Store.Network != "tcp" {
		errs = append(errs, fmt.Errorf("store.network must be unix or tcp, got %q", c.Store.Network))
	}
	if c.Store.Address == "" {
		errs = append(errs, errors.New("store.address is required"))
	}

	if c.Server.HeartbeatMin <= 0 {
		errs = append(errs, errors.New("server.heartbeat_min must be positive"))
	}
	if c.Server.HeartbeatMax < c.Server.HeartbeatMin {
		errs = append(errs, errors.New("server.heartbeat_max must not be below heartbeat_min"))
	}
	if c.Server.SessionMaxAge < 0 {
		errs = append(errs, errors.New("server.session_max_age must not be negative"))
	}

	if c.Client.Server == "" {
		errs = append(errs, errors.New("client.server is required"))
	}
	if c.Client.ConnectAttempts <= 0 || c.Client.AuthAttempts <= 0 {
		errs = append(errs, errors.New("client attempt budgets must be positive"))
	}

	// Equal values are allowed: staleness is strictly greater than
	// the threshold.
	if c.Watchdog.Interval <= 0 || c.Watchdog.Threshold <= 0 {
		errs = append(errs, errors.New("watchdog.interval and watchdog.threshold must be positive"))
	}
	if c.Watchdog.Threshold < c.Server.HeartbeatMax {
		errs = append(errs, fmt.Errorf("watchdog.threshold (%v) is below server.heartbeat_max (%v)",
			c.Watchdog.Threshold, c.Server.HeartbeatMax))
	}

	if c.Supervisor.MaxFailures <= 0 {
		errs = append(errs, errors.New("supervisor.max_failures must be positive"))
	}

	return errors.Join(errs...)
}

// Policy returns the client's handshake budgets.
func (c *Config) Policy() admission.Policy {
	return admission.Policy{
		ConnectAttempts: c.Client.ConnectAttempts,
		ConnectDelay:    time.Duration(c.Client.ConnectDelay),
		AuthAttempts:    c.Client.AuthAttempts,
		AuthInterval:    time.Duration(c.Client.AuthInterval),
	}
}

// ServerAddress returns client.server as host:port.
func (c *ClientConfig) ServerAddress() string {
	if _, _, err := net.SplitHostPort(c.Server); err == nil {
		return c.Server
	}
	return net.JoinHostPort(c.Server, strconv.Itoa(DefaultClientPort))
}

// ServerName is the name to verify on the server's certificate.
func (c *ClientConfig) ServerName() string {
	if c.TLSServerName != "" {
		return c.TLSServerName
	}
	if host, _, err := net.SplitHostPort(c.Server); err == nil {
		return host
	}
	return c.Server
}

// Duration is a time.Duration written as a Go duration string.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}
