// Copyright 2026 The Netmon Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"fmt"

	"github.com/netmon-foundation/netmon/lib/codec"
)

// SessionRecord is what the server stores under SessionKey when it
// admits a client. It never holds the secret.
type SessionRecord struct {
	Identity string `cbor:"identity"`

	// AdmittedAt is the Unix seconds of the most recent grant.
	AdmittedAt int64 `cbor:"admitted_at"`

	// Fingerprint is the grant fingerprint, comparable across
	// re-admissions of the same identity.
	Fingerprint string `cbor:"fingerprint"`
}

// EncodeSession returns the CBOR form of record.
func EncodeSession(record SessionRecord) (string, error) {
	data, err := codec.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("encoding session record for %s: %w", record.Identity, err)
	}
	return string(data), nil
}

// DecodeSession parses a value written by EncodeSession.
func DecodeSession(value string) (SessionRecord, error) {
	var record SessionRecord
	if err := codec.Unmarshal([]byte(value), &record); err != nil {
		return SessionRecord{}, fmt.Errorf("decoding session record: %w", err)
	}
	return record, nil
}
