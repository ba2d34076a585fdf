// Copyright 2026 The Netmon Authors
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		raw     string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{" warning ", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, test := range tests {
		got, err := ParseLevel(test.raw)
		if (err != nil) != test.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", test.raw, err, test.wantErr)
		}
		if got != test.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", test.raw, got, test.want)
		}
	}
}

func TestNonTerminalWritesJSON(t *testing.T) {
	var output bytes.Buffer
	logger := newLogger(&output, false, slog.LevelInfo)
	logger.Info("client admitted", "identity", "abc")

	var record map[string]any
	if err := json.Unmarshal(output.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, output.String())
	}
	if record["identity"] != "abc" {
		t.Errorf("identity = %v, want abc", record["identity"])
	}
}

func TestTerminalWritesText(t *testing.T) {
	var output bytes.Buffer
	logger := newLogger(&output, true, slog.LevelInfo)
	logger.Debug("hidden")
	logger.Info("shown", "identity", "abc")

	text := output.String()
	if strings.Contains(text, "hidden") {
		t.Error("debug record written at info level")
	}
	if !strings.Contains(text, "identity=abc") {
		t.Errorf("text output = %q", text)
	}
}
