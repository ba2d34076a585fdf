// Copyright 2026 The Netmon Authors
// SPDX-License-Identifier: Apache-2.0

// Package schema defines the netmon wire protocol: the single
// [Message] record exchanged on every channel, the channel and store
// key names, and the event/action vocabulary.
//
// A Message is encoded as a flat TOML document with exactly six keys:
//
//	stamp = 1760000000
//	from = "server"
//	event = "heartbeat"
//	action = ""
//	target = ""
//	data = ""
//
// Every key is written on every encode, including empty strings and a
// zero stamp. Consumers treat an empty string as "unset". There is no
// version field; the format evolves only by adding new actions, never
// by removing or retyping keys, and decoders ignore keys they do not
// know.
//
// Channel names follow scope:msg:audience. A client identity doubles as
// the audience suffix of its private channel, which is why
// [ValidIdentity] restricts identities to characters that carry no
// meaning in the authorization store's channel patterns.
//
// This package depends on no other netmon packages.
package schema
