// Copyright 2026 The Netmon Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"errors"
	"strings"
	"testing"
)

func TestMessageRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		message Message
	}{
		{"zero value", Message{}},
		{"connect request", NewConnectRequest(1760000000, "abc", "xyz")},
		{"heartbeat", NewHeartbeat(1760000001)},
		{"negative stamp", Message{Stamp: -5, From: "abc"}},
		{"multiline data", Message{
			From:   "abc",
			Target: TargetServer,
			Event:  EventQuery,
			Action: ActionEnvVarsOS,
			Data:   "HOME = \"/root\"\nPATH = \"/usr/bin\"\n",
		}},
		{"quotes and unicode", Message{From: "abc", Data: `say "héllo" \ bye`}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			encoded, err := Marshal(test.message)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			decoded, err := Unmarshal(encoded)
			if err != nil {
				t.Fatalf("Unmarshal(%q): %v", encoded, err)
			}
			if decoded != test.message {
				t.Errorf("round trip = %+v, want %+v", decoded, test.message)
			}
		})
	}
}

func TestMarshalRejectsInvalidUTF8(t *testing.T) {
	tests := []struct {
		name    string
		message Message
	}{
		{"data", Message{From: "abc", Data: "bad\xffutf8"}},
		{"from", Message{From: "\xfe"}},
		{"target", Message{Target: "abc\xc3"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			encoded, err := Marshal(test.message)
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("Marshal = %q, %v; want ErrMalformed", encoded, err)
			}
		})
	}
}

func TestMarshalWritesEveryField(t *testing.T) {
	encoded, err := Marshal(Message{})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for _, key := range []string{"stamp", "from", "event", "action", "target", "data"} {
		if !strings.Contains(string(encoded), key+" = ") {
			t.Errorf("encoded zero message is missing %q:\n%s", key, encoded)
		}
	}
}

func TestUnmarshalMissingAndUnknownKeys(t *testing.T) {
	decoded, err := Unmarshal([]byte("from = \"abc\"\npriority = 3\n"))
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	want := Message{From: "abc"}
	if decoded != want {
		t.Errorf("decoded = %+v, want %+v", decoded, want)
	}
}

func TestUnmarshalMalformed(t *testing.T) {
	for _, payload := range []string{
		"this is not toml",
		"stamp = \"yesterday\"",
		"from = ",
		"[[[",
	} {
		if _, err := Unmarshal([]byte(payload)); !errors.Is(err, ErrMalformed) {
			t.Errorf("Unmarshal(%q) error = %v, want ErrMalformed", payload, err)
		}
	}
}

func TestIsServerHeartbeat(t *testing.T) {
	if !NewHeartbeat(1).IsServerHeartbeat() {
		t.Error("NewHeartbeat is not recognized as a server heartbeat")
	}
	forged := Message{From: "abc", Event: EventHeartbeat}
	if forged.IsServerHeartbeat() {
		t.Error("heartbeat from a client identity accepted as server heartbeat")
	}
}

func TestValidIdentity(t *testing.T) {
	tests := []struct {
		identity string
		want     bool
	}{
		{"abc", true},
		{"A-b_9", true},
		{strings.Repeat("f", 256), true},
		{strings.Repeat("f", MaxIdentityLength+1), false},
		{"", false},
		{"*", false},
		{"abc*", false},
		{"a?c", false},
		{"[abc]", false},
		{"a b", false},
		{"a:b", false},
		{"all", false},
		{"connecting", false},
	}
	for _, test := range tests {
		if got := ValidIdentity(test.identity); got != test.want {
			t.Errorf("ValidIdentity(%q) = %v, want %v", test.identity, got, test.want)
		}
	}
}

func TestChannelNames(t *testing.T) {
	if got := ClientChannel("abc"); got != "clients:msg:abc" {
		t.Errorf("ClientChannel = %q", got)
	}
	if got := SessionKey("abc"); got != "client:abc:session" {
		t.Errorf("SessionKey = %q", got)
	}
}
