// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"DEBUG":   zerolog.DebugLevel,
		"info":    zerolog.InfoLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestInit_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Debug().Str("category", "posts").Msg("hello")

	out := buf.String()
	if !strings.Contains(out, `"category":"posts"`) || !strings.Contains(out, `"message":"hello"`) {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestInit_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "warn", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Info().Msg("dropped")
	Warn().Msg("kept")

	if strings.Contains(buf.String(), "dropped") {
		t.Error("info message written at warn level")
	}
	if !strings.Contains(buf.String(), "kept") {
		t.Error("warn message missing")
	}
}

func TestInit_RotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "instakpi.log")
	var buf bytes.Buffer
	Init(Config{Level: "info", Format: "console", Output: &buf, File: path, MaxSizeMB: 1})
	t.Cleanup(func() {
		_ = Close()
		Init(DefaultConfig())
	})

	Info().Str("backend", "duckdb").Msg("store opened")
	if err := Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"backend":"duckdb"`) {
		t.Errorf("log file missing JSON event: %s", data)
	}
	if !strings.Contains(buf.String(), "store opened") {
		t.Error("console output missing event")
	}
}

func TestCloseWithoutFile(t *testing.T) {
	Init(DefaultConfig())
	if err := Close(); err != nil {
		t.Errorf("Close() = %v, want nil", err)
	}
}
