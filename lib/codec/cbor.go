// Copyright 2026 The Netmon Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds netmon's CBOR configuration for records the
// server keeps in the authorization store next to each grant.
//
// The wire protocol between clients and the server is TOML (see
// lib/schema) because it must stay readable by any tool that can
// subscribe to a channel. Records that only the server reads back, such
// as per-client admission records, are CBOR: compact, typed, and
// deterministic (RFC 8949 §4.2 Core Deterministic Encoding), so the same
// record always produces the same bytes and rewriting it is a true
// idempotent overwrite.
//
//	data, err := codec.Marshal(record)
//	err = codec.Unmarshal(data, &record)
//
// Types encoded here use `cbor` struct tags.
package codec

import (
	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	// Unknown fields are ignored so older servers can read records
	// written by newer ones.
	decMode, err = cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v with Core Deterministic Encoding.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// Diagnose renders data in CBOR diagnostic notation, for operator
// tooling that dumps stored records.
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}
