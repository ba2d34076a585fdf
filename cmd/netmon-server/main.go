// Copyright 2026 The Netmon Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
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
		logLevel    string
		showVersion bool
	)
	flagSet := pflag.NewFlagSet("netmon-server", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to netmon.yaml (default: $NETMON_CONFIG, then built-in defaults)")
	flagSet.StringVar(&logLevel, "log-level", "", "override log_level from the config")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if showVersion {
		version.Print(os.Stdout, "netmon-server")
		return nil
	}
	if flagSet.NArg() > 0 {
		return fmt.Errorf("unexpected argument: %s", flagSet.Arg(0))
	}

	cfg, err := config.Resolve(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := logging.New(level)

	credentials, err := cfg.Store.LoadCredentials()
	if err != nil {
		return err
	}
	if credentials.Anonymous() {
		logger.Warn("no store credentials, connecting as the default user", "file", cfg.Store.CredentialsFile)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := redisfabric.Dial(ctx, redisfabric.Options{
		Network:  cfg.Store.Network,
		Address:  cfg.Store.Address,
		Username: credentials.Username,
		Password: credentials.Password,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	s := &server{backend: client, config: cfg, clock: clock.Real(), logger: logger}
	err = s.run(ctx)
	if ctx.Err() != nil {
		logger.Info("shutting down")
		return nil
	}
	return err
}
