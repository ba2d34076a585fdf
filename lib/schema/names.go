// Copyright 2026 The Netmon Authors
// SPDX-License-Identifier: Apache-2.0

package schema

// Channel names.
const (
	// ChannelBroadcast reaches every admitted client.
	ChannelBroadcast = "clients:msg:all"

	// ChannelConnecting is the public, unauthenticated channel that
	// carries admission requests.
	ChannelConnecting = "clients:msg:connecting"

	// ChannelHandlers reaches every server-side handler process.
	ChannelHandlers = "handlers:msg:all"

	clientChannelPrefix = "clients:msg:"
)

// ClientChannel returns the private channel of identity.
func ClientChannel(identity string) string {
	return clientChannelPrefix + identity
}

// Store keys.
const (
	// KeyHeartbeat holds the Unix seconds of the last monitor tick.
	KeyHeartbeat = "heartbeat"

	// KeyReset and KeyAudit are the self-clearing control flags.
	KeyReset = "reset"
	KeyAudit = "audit"

	// KeyClients is the set of every identity that has requested
	// admission.
	KeyClients = "clients"
)

// SessionKey returns the store key of the admission record for
// identity.
func SessionKey(identity string) string {
	return "client:" + identity + ":session"
}

// MaxIdentityLength bounds the size of an accepted identity. Generated
// identities are 256 hex characters.
const MaxIdentityLength = 512

// ValidIdentity reports whether identity is acceptable as a client name
// and channel suffix: non-empty, at most MaxIdentityLength bytes, and
// limited to ASCII letters, digits, '-' and '_'. Anything else could
// act as a pattern in a channel grant. Identities whose private channel
// would collide with a shared channel ("all", "connecting") are
// rejected too.
func ValidIdentity(identity string) bool {
	if identity == "" || len(identity) > MaxIdentityLength {
		return false
	}
	switch ClientChannel(identity) {
	case ChannelBroadcast, ChannelConnecting:
		return false
	}
	for i := 0; i < len(identity); i++ {
		switch c := identity[i]; {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}
