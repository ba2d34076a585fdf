// Copyright 2026 The Netmon Authors
// SPDX-License-Identifier: Apache-2.0

package memfabric

import (
	"context"
	"sync"

	"github.com/netmon-foundation/netmon/fabric"
)

// subscription queues payloads without bound so a slow reader never
// blocks a publisher holding the hub lock.
type subscription struct {
	hub      *Hub
	identity string
	channels []string

	mu    sync.Mutex
	queue [][]byte
	ready chan struct{}

	done     chan struct{}
	doneOnce sync.Once
}

func newSubscription(h *Hub, identity string, channels []string) *subscription {
	return &subscription{
		hub:      h,
		identity: identity,
		channels: channels,
		ready:    make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

func (s *subscription) push(payload []byte) {
	s.mu.Lock()
	s.queue = append(s.queue, payload)
	s.mu.Unlock()
	select {
	case s.ready <- struct{}{}:
	default:
	}
}

func (s *subscription) Receive(ctx context.Context) ([]byte, error) {
	for {
		select {
		case <-s.done:
			return nil, fabric.ErrClosed
		default:
		}

		s.mu.Lock()
		if len(s.queue) > 0 {
			payload := s.queue[0]
			s.queue[0] = nil
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return payload, nil
		}
		s.mu.Unlock()

		select {
		case <-s.ready:
		case <-s.done:
			return nil, fabric.ErrClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (s *subscription) Close() error {
	s.hub.mu.Lock()
	delete(s.hub.subs, s)
	s.hub.mu.Unlock()
	s.shutdown()
	return nil
}

func (s *subscription) shutdown() {
	s.doneOnce.Do(func() { close(s.done) })
}
