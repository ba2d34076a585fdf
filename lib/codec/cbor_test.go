// Copyright 2026 The Netmon Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"strings"
	"testing"
)

type sampleRecord struct {
	Identity   string            `cbor:"identity"`
	AdmittedAt int64             `cbor:"admitted_at"`
	Tags       map[string]string `cbor:"tags,omitempty"`
}

func TestRoundTrip(t *testing.T) {
	original := sampleRecord{Identity: "abc", AdmittedAt: 1760000000}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded sampleRecord
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Identity != original.Identity || decoded.AdmittedAt != original.AdmittedAt {
		t.Errorf("round trip = %+v, want %+v", decoded, original)
	}
}

func TestDeterministicMapOrder(t *testing.T) {
	record := sampleRecord{
		Identity: "abc",
		Tags:     map[string]string{"zone": "b", "arch": "x86_64", "os": "linux"},
	}
	first, err := Marshal(record)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := Marshal(record)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("encoding %d differs: %x != %x", i, again, first)
		}
	}
}

func TestUnmarshalIgnoresUnknownFields(t *testing.T) {
	type newerRecord struct {
		Identity string `cbor:"identity"`
		Region   string `cbor:"region"`
	}
	data, err := Marshal(newerRecord{Identity: "abc", Region: "eu"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded sampleRecord
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Identity != "abc" {
		t.Errorf("Identity = %q, want abc", decoded.Identity)
	}
}

func TestDiagnose(t *testing.T) {
	data, err := Marshal(sampleRecord{Identity: "abc"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	text, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if !strings.Contains(text, `"abc"`) {
		t.Errorf("Diagnose = %s, want it to mention the identity", text)
	}
}
