// Copyright 2026 The Netmon Authors
// SPDX-License-Identifier: Apache-2.0

// Package redisfabric implements the fabric capabilities on Redis.
// Channels are Redis pub/sub channels, keys and sets are Redis keys,
// and a grant is an ACL user named by fabric.ACLUser.
package redisfabric

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/netmon-foundation/netmon/fabric"
)

// Options selects the Redis endpoint and the user to connect as.
type Options struct {
	// Network is "tcp" or "unix".
	Network string
	Address string

	Username string
	Password string

	// TLS enables TLS when non-nil.
	TLS *tls.Config

	// DialTimeout bounds each connection attempt. Zero means 5s.
	DialTimeout time.Duration
}

// Client is a connection to Redis. It implements fabric.Bus,
// fabric.Store and fabric.Authenticator.
type Client struct {
	options Options

	mu  sync.RWMutex
	rdb *redis.Client
}

var (
	_ fabric.Bus           = (*Client)(nil)
	_ fabric.Store         = (*Client)(nil)
	_ fabric.Authenticator = (*Client)(nil)
)

// Dial connects and verifies the connection with PING.
func Dial(ctx context.Context, options Options) (*Client, error) {
	if options.Network == "" {
		options.Network = "tcp"
	}
	if options.DialTimeout == 0 {
		options.DialTimeout = 5 * time.Second
	}
	rdb := newRedis(options, options.Username, options.Password)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connecting to redis at %s %s: %w", options.Network, options.Address, classify(err))
	}
	return &Client{options: options, rdb: rdb}, nil
}

func newRedis(options Options, username, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Network:          options.Network,
		Addr:             options.Address,
		Username:         username,
		Password:         password,
		TLSConfig:        options.TLS,
		DialTimeout:      options.DialTimeout,
		DisableIndentity: true,
	})
}

func (c *Client) current() *redis.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rdb
}

// Close closes every pooled connection and open subscription.
func (c *Client) Close() error {
	return c.current().Close()
}

// Authenticate opens a fresh pool as the client's ACL user and, once
// Redis accepts it, replaces the current pool. Subscriptions opened
// before the switch end.
func (c *Client) Authenticate(ctx context.Context, identity, secret string) error {
	candidate := newRedis(c.options, fabric.ACLUser(identity), secret)
	if err := candidate.Ping(ctx).Err(); err != nil {
		candidate.Close()
		return classify(err)
	}

	c.mu.Lock()
	previous := c.rdb
	c.rdb = candidate
	c.mu.Unlock()
	previous.Close()
	return nil
}

func (c *Client) Publish(ctx context.Context, channel string, payload []byte) (int64, error) {
	count, err := c.current().Publish(ctx, channel, payload).Result()
	if err != nil {
		return 0, fmt.Errorf("publishing to %s: %w", channel, classify(err))
	}
	return count, nil
}

func (c *Client) Subscribe(ctx context.Context, channels ...string) (fabric.Subscription, error) {
	pubsub := c.current().Subscribe(ctx, channels...)
	// The first reply confirms the subscription or carries NOPERM.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", strings.Join(channels, ","), classify(err))
	}
	return &subscription{pubsub: pubsub}, nil
}

func (c *Client) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := c.current().Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", key, classify(err))
	}
	return value, true, nil
}

func (c *Client) Set(ctx context.Context, key, value string) error {
	if err := c.current().Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("writing %s: %w", key, classify(err))
	}
	return nil
}

func (c *Client) SetNX(ctx context.Context, key, value string) (bool, error) {
	wrote, err := c.current().SetNX(ctx, key, value, 0).Result()
	if err != nil {
		return false, fmt.Errorf("initializing %s: %w", key, classify(err))
	}
	return wrote, nil
}

func (c *Client) Delete(ctx context.Context, key string) error {
	if err := c.current().Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("deleting %s: %w", key, classify(err))
	}
	return nil
}

func (c *Client) RandomString(ctx context.Context, bits int) (string, error) {
	value, err := c.current().Do(ctx, "ACL", "GENPASS", bits).Text()
	if err != nil {
		return "", fmt.Errorf("generating %d-bit string: %w", bits, classify(err))
	}
	return value, nil
}

func (c *Client) AddMember(ctx context.Context, set, member string) error {
	if err := c.current().SAdd(ctx, set, member).Err(); err != nil {
		return fmt.Errorf("adding %s to %s: %w", member, set, classify(err))
	}
	return nil
}

func (c *Client) RemoveMember(ctx context.Context, set, member string) error {
	if err := c.current().SRem(ctx, set, member).Err(); err != nil {
		return fmt.Errorf("removing %s from %s: %w", member, set, classify(err))
	}
	return nil
}

func (c *Client) Members(ctx context.Context, set string) ([]string, error) {
	members, err := c.current().SMembers(ctx, set).Result()
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", set, classify(err))
	}
	return members, nil
}

func (c *Client) Grant(ctx context.Context, g fabric.Grant) error {
	if err := c.current().Do(ctx, setUserArgs(g)...).Err(); err != nil {
		return fmt.Errorf("granting %s: %w", g.Identity, classify(err))
	}
	return nil
}

func (c *Client) Revoke(ctx context.Context, identity string) error {
	if err := c.current().Do(ctx, "ACL", "DELUSER", fabric.ACLUser(identity)).Err(); err != nil {
		return fmt.Errorf("revoking %s: %w", identity, classify(err))
	}
	return nil
}

func (c *Client) ReloadACL(ctx context.Context) error {
	if err := c.current().Do(ctx, "ACL", "LOAD").Err(); err != nil {
		return fmt.Errorf("reloading ACL file: %w", classify(err))
	}
	return nil
}

func (c *Client) FlushAll(ctx context.Context) error {
	if err := c.current().FlushAll(ctx).Err(); err != nil {
		return fmt.Errorf("flushing store: %w", classify(err))
	}
	return nil
}

// setUserArgs builds the ACL SETUSER command for g. The root rule set
// allows SUBSCRIBE on the subscribe channels. Publishing lives in its
// own selector so publish and subscribe channel lists stay independent.
// The password is sent as its SHA-256 so the plaintext never reaches
// the ACL file.
func setUserArgs(g fabric.Grant) []any {
	args := []any{
		"ACL", "SETUSER", fabric.ACLUser(g.Identity),
		"reset", "on", "#" + g.SecretHash(),
		"nocommands", "+ping", "resetchannels",
	}
	if len(g.Subscribe) > 0 {
		args = append(args, "+subscribe", "+unsubscribe")
		for _, channel := range g.Subscribe {
			args = append(args, "&"+channel)
		}
	}
	if len(g.Publish) > 0 {
		selector := []string{"+publish", "resetchannels"}
		for _, channel := range g.Publish {
			selector = append(selector, "&"+channel)
		}
		args = append(args, "("+strings.Join(selector, " ")+")")
	}
	return args
}

// classify maps Redis reply errors onto the fabric sentinels.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.ErrClosed) {
		return fmt.Errorf("%w: %v", fabric.ErrClosed, err)
	}
	message := err.Error()
	switch {
	case strings.HasPrefix(message, "NOPERM"):
		return fmt.Errorf("%w: %v", fabric.ErrPermissionDenied, err)
	case strings.HasPrefix(message, "WRONGPASS"), strings.HasPrefix(message, "NOAUTH"):
		return fmt.Errorf("%w: %v", fabric.ErrNotAuthorized, err)
	}
	return err
}

type subscription struct {
	pubsub *redis.PubSub
}

func (s *subscription) Receive(ctx context.Context) ([]byte, error) {
	message, err := s.pubsub.ReceiveMessage(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, classify(err)
	}
	return []byte(message.Payload), nil
}

func (s *subscription) Close() error {
	return s.pubsub.Close()
}
