// Copyright 2026 The Netmon Authors
// SPDX-License-Identifier: Apache-2.0

package admission

import (
	"fmt"
	"time"
)

// State is a phase of the client handshake.
type State int

const (
	// Connecting publishes the connect request until some handler is
	// subscribed to receive it.
	Connecting State = iota

	// Authenticating polls the authenticator until the grant exists.
	Authenticating

	// Listening is the steady state: the client is admitted.
	Listening

	// Failed is terminal for the session. Failure says why.
	Failed
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Authenticating:
		return "authenticating"
	case Listening:
		return "listening"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Failure is the reason a handshake reached Failed.
type Failure int

const (
	FailureNone Failure = iota
	FailureNoServer
	FailureAuthTimeout
)

func (f Failure) String() string {
	switch f {
	case FailureNone:
		return "none"
	case FailureNoServer:
		return "no-server"
	case FailureAuthTimeout:
		return "auth-timeout"
	}
	return fmt.Sprintf("failure(%d)", int(f))
}

// Policy bounds the two retry phases. Each phase has its own budget.
type Policy struct {
	// ConnectAttempts is how many connect requests may go unheard
	// before the handshake fails with no-server.
	ConnectAttempts int
	ConnectDelay    time.Duration

	// AuthAttempts is how many authentication polls may fail before
	// the handshake fails with auth-timeout. Each poll waits
	// AuthInterval first, giving the server time to provision.
	AuthAttempts int
	AuthInterval time.Duration
}

// DefaultPolicy returns the stock retry budgets.
func DefaultPolicy() Policy {
	return Policy{
		ConnectAttempts: 10,
		ConnectDelay:    time.Second,
		AuthAttempts:    10,
		AuthInterval:    time.Second,
	}
}

// withDefaults fills zero fields from DefaultPolicy.
func (p Policy) withDefaults() Policy {
	defaults := DefaultPolicy()
	if p.ConnectAttempts <= 0 {
		p.ConnectAttempts = defaults.ConnectAttempts
	}
	if p.ConnectDelay <= 0 {
		p.ConnectDelay = defaults.ConnectDelay
	}
	if p.AuthAttempts <= 0 {
		p.AuthAttempts = defaults.AuthAttempts
	}
	if p.AuthInterval <= 0 {
		p.AuthInterval = defaults.AuthInterval
	}
	return p
}

// Machine is the handshake's complete state. The zero value is a fresh
// handshake in Connecting.
type Machine struct {
	State State

	// Attempts counts attempts in the current phase.
	Attempts int

	Failure Failure
}

// Event is an observation fed into Transition.
type Event interface {
	isEvent()
}

// Published reports how many subscribers received a connect request.
type Published struct {
	Subscribers int64
}

// Authenticated reports whether an authentication attempt succeeded.
type Authenticated struct {
	OK bool
}

func (Published) isEvent()     {}
func (Authenticated) isEvent() {}

// Transition applies event to m and returns the next machine and how
// long to wait before acting on it. Events that do not apply to the
// current state leave it unchanged.
func Transition(policy Policy, m Machine, event Event) (Machine, time.Duration) {
	policy = policy.withDefaults()

	switch m.State {
	case Connecting:
		published, ok := event.(Published)
		if !ok {
			return m, 0
		}
		m.Attempts++
		switch {
		case published.Subscribers > 0:
			return Machine{State: Authenticating}, policy.AuthInterval
		case m.Attempts >= policy.ConnectAttempts:
			return Machine{State: Failed, Attempts: m.Attempts, Failure: FailureNoServer}, 0
		default:
			return m, policy.ConnectDelay
		}

	case Authenticating:
		authenticated, ok := event.(Authenticated)
		if !ok {
			return m, 0
		}
		m.Attempts++
		switch {
		case authenticated.OK:
			return Machine{State: Listening, Attempts: m.Attempts}, 0
		case m.Attempts >= policy.AuthAttempts:
			return Machine{State: Failed, Attempts: m.Attempts, Failure: FailureAuthTimeout}, 0
		default:
			return m, policy.AuthInterval
		}
	}
	return m, 0
}
