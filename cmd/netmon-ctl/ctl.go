// Copyright 2026 The Netmon Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/netmon-foundation/netmon/dispatch"
	"github.com/netmon-foundation/netmon/fabric"
	"github.com/netmon-foundation/netmon/lib/clock"
	"github.com/netmon-foundation/netmon/lib/schema"
	"github.com/netmon-foundation/netmon/lib/sealed"
	"github.com/netmon-foundation/netmon/query"
)

// backend is a store connection with the server's rights.
type backend interface {
	fabric.Bus
	fabric.Store
	Close() error
}

type ctl struct {
	ctx     context.Context
	connect func(context.Context) (backend, error)
	clock   clock.Clock
	logger  *slog.Logger
	stdin   io.Reader
	stdout  io.Writer
}

func (c *ctl) rootCommand() *Command {
	return &Command{
		Name:    "netmon-ctl",
		Summary: "Operate a netmon server and its admitted clients.",
		Subcommands: []*Command{
			c.statusCommand(),
			c.armCommand(),
			c.queryCommand(),
			c.keygenCommand(),
			c.sealCommand(),
		},
	}
}

func (c *ctl) withBackend(run func(backend) error) error {
	store, err := c.connect(c.ctx)
	if err != nil {
		return err
	}
	defer store.Close()
	return run(store)
}

func (c *ctl) statusCommand() *Command {
	return &Command{
		Name:    "status",
		Summary: "Show heartbeat age, control flags and admitted clients",
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			return c.withBackend(c.status)
		},
	}
}

func (c *ctl) status(store backend) error {
	tw := tabwriter.NewWriter(c.stdout, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	raw, found, err := store.Get(c.ctx, schema.KeyHeartbeat)
	if err != nil {
		return fmt.Errorf("reading heartbeat: %w", err)
	}
	switch stamp, parseErr := strconv.ParseInt(raw, 10, 64); {
	case !found:
		fmt.Fprintf(tw, "heartbeat:\tnever\n")
	case parseErr != nil:
		fmt.Fprintf(tw, "heartbeat:\tunreadable %q\n", raw)
	default:
		age := c.clock.Now().Sub(time.Unix(stamp, 0)).Truncate(time.Second)
		fmt.Fprintf(tw, "heartbeat:\t%d (%s ago)\n", stamp, age)
	}

	for _, key := range []string{schema.KeyReset, schema.KeyAudit} {
		value, found, err := store.Get(c.ctx, key)
		if err != nil {
			return fmt.Errorf("reading %s flag: %w", key, err)
		}
		if !found {
			value = "unset"
		}
		fmt.Fprintf(tw, "%s:\t%s\n", key, value)
	}

	members, err := store.Members(c.ctx, schema.KeyClients)
	if err != nil {
		return fmt.Errorf("listing clients: %w", err)
	}
	fmt.Fprintf(tw, "clients:\t%d\n", len(members))
	return nil
}

func (c *ctl) armCommand() *Command {
	arm := func(key string) *Command {
		return &Command{
			Name:    key,
			Summary: fmt.Sprintf("Set the %s flag for the monitor's next tick", key),
			Run: func(args []string) error {
				if len(args) > 0 {
					return fmt.Errorf("unexpected argument: %s", args[0])
				}
				return c.withBackend(func(store backend) error {
					if err := store.Set(c.ctx, key, strconv.FormatBool(true)); err != nil {
						return fmt.Errorf("arming %s: %w", key, err)
					}
					fmt.Fprintf(c.stdout, "%s armed\n", key)
					return nil
				})
			},
		}
	}
	return &Command{
		Name:        "arm",
		Summary:     "Arm a self-clearing control flag",
		Subcommands: []*Command{arm(schema.KeyReset), arm(schema.KeyAudit)},
	}
}

func (c *ctl) queryCommand() *Command {
	var (
		target  string
		timeout time.Duration
	)
	return &Command{
		Name:    "query",
		Summary: "Send a query to admitted clients and print their replies",
		Usage:   "netmon-ctl query <action> [--target <identity>] [--timeout <duration>]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("query", pflag.ContinueOnError)
			flagSet.StringVar(&target, "target", schema.TargetClients, "client identity, or \"clients\" for all")
			flagSet.DurationVar(&timeout, "timeout", 5*time.Second, "how long to collect replies")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("query takes exactly one action (known: %s)", schema.ActionEnvVarsOS)
			}
			if args[0] != schema.ActionEnvVarsOS {
				return fmt.Errorf("unknown query action %q", args[0])
			}
			if target != schema.TargetClients && !schema.ValidIdentity(target) {
				return fmt.Errorf("invalid target %q", target)
			}
			return c.withBackend(func(store backend) error {
				return c.query(store, args[0], target, timeout)
			})
		},
	}
}

// query publishes a query and prints every reply that arrives within
// timeout. A single target ends the wait at its first reply.
func (c *ctl) query(store backend, action, target string, timeout time.Duration) error {
	var identities []string
	if target == schema.TargetClients {
		members, err := store.Members(c.ctx, schema.KeyClients)
		if err != nil {
			return fmt.Errorf("listing clients: %w", err)
		}
		identities = members
	} else {
		identities = []string{target}
	}
	if len(identities) == 0 {
		fmt.Fprintln(c.stdout, "no admitted clients")
		return nil
	}
	slices.Sort(identities)

	channels := make([]string, len(identities))
	for i, identity := range identities {
		channels[i] = schema.ClientChannel(identity)
	}

	ctx, cancel := context.WithTimeout(c.ctx, timeout)
	defer cancel()
	subscription, err := store.Subscribe(ctx, channels...)
	if err != nil {
		return fmt.Errorf("subscribing to replies: %w", err)
	}
	defer subscription.Close()

	results := make(chan dispatch.Result)
	dispatcher := &dispatch.Dispatcher{
		Handler: dispatch.HandlerFunc(func(_ context.Context, message schema.Message) error {
			if !isReply(message, action) {
				return nil
			}
			_, err := query.DecodeEnvironment(message.Data)
			return err
		}),
		Logger:  c.logger,
		Results: results,
	}
	runDone := make(chan error, 1)
	go func() { runDone <- dispatcher.Run(ctx, subscription) }()
	defer func() {
		cancel()
		<-runDone
		dispatcher.Wait()
	}()

	payload, err := schema.Marshal(schema.NewQuery(c.clock.Now().Unix(), action, target))
	if err != nil {
		return err
	}
	channel := schema.ChannelBroadcast
	if target != schema.TargetClients {
		channel = schema.ClientChannel(target)
	}
	if _, err := store.Publish(ctx, channel, payload); err != nil {
		return fmt.Errorf("publishing query: %w", err)
	}

	replies := 0
	for {
		select {
		case result := <-results:
			if result.Err != nil || !isReply(result.Message, action) {
				continue
			}
			replies++
			fmt.Fprintf(c.stdout, "# %s\n%s\n", result.Message.From, result.Message.Data)
			if target != schema.TargetClients {
				return nil
			}
		case <-ctx.Done():
			if c.ctx.Err() != nil {
				return c.ctx.Err()
			}
			fmt.Fprintf(c.stdout, "# %d of %d clients replied\n", replies, len(identities))
			return nil
		}
	}
}

// isReply filters out the query itself, which a single-target query
// hears on the client's channel.
func isReply(message schema.Message, action string) bool {
	return message.Target == schema.TargetServer && message.Action == action && message.From != schema.FromServer
}

func (c *ctl) keygenCommand() *Command {
	return &Command{
		Name:    "keygen",
		Summary: "Generate an age keypair for sealing the credentials file",
		Run: func(args []string) error {
			keypair, err := sealed.GenerateKeypair()
			if err != nil {
				return err
			}
			defer keypair.Close()
			fmt.Fprintf(c.stdout, "# public key: %s\n%s\n", keypair.PublicKey, keypair.PrivateKey.String())
			return nil
		},
	}
}

func (c *ctl) sealCommand() *Command {
	var recipients []string
	return &Command{
		Name:    "seal",
		Summary: "Encrypt a credentials file read from stdin to age recipients",
		Usage:   "netmon-ctl seal --recipient <age1...> [--recipient ...] < auth.toml > auth.toml.age",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("seal", pflag.ContinueOnError)
			flagSet.StringArrayVar(&recipients, "recipient", nil, "age X25519 recipient (repeatable)")
			return flagSet
		},
		Run: func(args []string) error {
			plaintext, err := io.ReadAll(c.stdin)
			if err != nil {
				return fmt.Errorf("reading stdin: %w", err)
			}
			ciphertext, err := sealed.Seal(plaintext, recipients)
			if err != nil {
				return err
			}
			_, err = c.stdout.Write(ciphertext)
			return err
		},
	}
}
