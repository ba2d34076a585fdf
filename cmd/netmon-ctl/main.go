// Copyright 2026 The Netmon Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"log/slog"
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
		showVersion bool
	)
	flagSet := pflag.NewFlagSet("netmon-ctl", pflag.ContinueOnError)
	flagSet.SetInterspersed(false)
	flagSet.StringVar(&configPath, "config", "", "path to netmon.yaml (default: $NETMON_CONFIG, then built-in defaults)")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if showVersion {
		version.Print(os.Stdout, "netmon-ctl")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := &ctl{
		ctx: ctx,
		connect: func(ctx context.Context) (backend, error) {
			cfg, err := config.Resolve(configPath)
			if err != nil {
				return nil, err
			}
			return dialStore(ctx, &cfg.Store)
		},
		clock:  clock.Real(),
		logger: logging.New(slog.LevelWarn),
		stdin:  os.Stdin,
		stdout: os.Stdout,
	}
	return c.rootCommand().Execute(flagSet.Args(), os.Stderr)
}

func dialStore(ctx context.Context, store *config.StoreConfig) (backend, error) {
	credentials, err := store.LoadCredentials()
	if err != nil {
		return nil, err
	}
	client, err := redisfabric.Dial(ctx, redisfabric.Options{
		Network:  store.Network,
		Address:  store.Address,
		Username: credentials.Username,
		Password: credentials.Password,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}
