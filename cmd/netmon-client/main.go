// Copyright 2026 The Netmon Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/netmon-foundation/netmon/fabric/redisfabric"
	"github.com/netmon-foundation/netmon/lib/clock"
	"github.com/netmon-foundation/netmon/lib/config"
	"github.com/netmon-foundation/netmon/lib/logging"
	"github.com/netmon-foundation/netmon/lib/process"
	"github.com/netmon-foundation/netmon/lib/supervise"
	"github.com/netmon-foundation/netmon/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath  string
		server      string
		logLevel    string
		showVersion bool
	)
	flagSet := pflag.NewFlagSet("netmon-client", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to netmon.yaml (default: $NETMON_CONFIG, then built-in defaults)")
	flagSet.StringVar(&server, "server", "", "server host or host:port, overriding client.server and $NETMON_SERVER")
	flagSet.StringVar(&logLevel, "log-level", "", "override log_level from the config")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if showVersion {
		version.Print(os.Stdout, "netmon-client")
		return nil
	}
	if flagSet.NArg() > 0 {
		return fmt.Errorf("unexpected argument: %s", flagSet.Arg(0))
	}

	cfg, err := config.Resolve(configPath)
	if err != nil {
		return err
	}
	if server != "" {
		cfg.Client.Server = server
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := logging.New(level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := &client{
		connect: func(ctx context.Context) (endpoint, error) { return dialPublic(ctx, &cfg.Client) },
		config:  cfg,
		clock:   clock.Real(),
		logger:  logger,
	}
	loop := &supervise.Loop{
		MaxFailures: cfg.Supervisor.MaxFailures,
		Delay:       cfg.Supervisor.Delay.Std(),
		ResetAfter:  cfg.Supervisor.ResetAfter.Std(),
		Clock:       c.clock,
		Logger:      logger.With("component", "supervisor"),
	}

	logger.Info("client starting", "server", cfg.Client.ServerAddress())
	err = loop.Run(ctx, c.session)
	if ctx.Err() != nil {
		logger.Info("shutting down")
		return nil
	}
	return err
}

func dialPublic(ctx context.Context, cfg *config.ClientConfig) (endpoint, error) {
	options := redisfabric.Options{
		Network:  "tcp",
		Address:  cfg.ServerAddress(),
		Username: cfg.PublicUsername,
		Password: cfg.PublicPassword,
	}
	if !cfg.Plaintext {
		options.TLS = &tls.Config{
			ServerName: cfg.ServerName(),
			MinVersion: tls.VersionTLS12,
		}
	}
	client, err := redisfabric.Dial(ctx, options)
	if err != nil {
		return nil, err
	}
	return client, nil
}
