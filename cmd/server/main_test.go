// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tomtom215/instakpi/internal/config"
	"github.com/tomtom215/instakpi/internal/publish"
	"github.com/tomtom215/instakpi/internal/seed"
	"github.com/tomtom215/instakpi/internal/store/memstore"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()

	want := []string{"serve", "cycle", "refresh-token", "seed", "version"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd == root {
			t.Errorf("subcommand %q not registered", name)
		}
	}
	if root.RunE == nil {
		t.Error("root command should default to serve")
	}
}

func TestVersionCmd(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	if err := root.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := out.String(); got != "instakpi "+version+"\n" {
		t.Errorf("output = %q", got)
	}
}

func TestSeedCmd_GrowFlag(t *testing.T) {
	cmd := newSeedCmd()
	if cmd.Flags().Lookup("grow") == nil {
		t.Fatal("seed should have a --grow flag")
	}
}

func TestNeedsBadger(t *testing.T) {
	tests := []struct {
		backend, secrets string
		want             bool
	}{
		{"duckdb", "env", false},
		{"memory", "env", false},
		{"badger", "env", true},
		{"duckdb", "badger", true},
		{"badger", "badger", true},
	}

	for _, tt := range tests {
		cfg := &config.Config{
			Store: config.StoreConfig{Backend: tt.backend},
			Token: config.TokenConfig{SecretStore: tt.secrets},
		}
		if got := needsBadger(cfg); got != tt.want {
			t.Errorf("needsBadger(%s, %s) = %v, want %v", tt.backend, tt.secrets, got, tt.want)
		}
	}
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		st, err := openStore(ctx, &config.Config{Store: config.StoreConfig{Backend: "memory"}}, nil)
		if err != nil {
			t.Fatalf("openStore: %v", err)
		}
		defer st.Close()
		if _, ok := st.(*memstore.Store); !ok {
			t.Errorf("store = %T, want *memstore.Store", st)
		}
	})

	t.Run("badger without database", func(t *testing.T) {
		if _, err := openStore(ctx, &config.Config{Store: config.StoreConfig{Backend: "badger"}}, nil); err == nil {
			t.Error("badger backend without a database should fail")
		}
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := openStore(ctx, &config.Config{Store: config.StoreConfig{Backend: "sqlite"}}, nil)
		if err == nil || !strings.Contains(err.Error(), "sqlite") {
			t.Errorf("err = %v, want unknown backend error", err)
		}
	})
}

func testAppConfig(t *testing.T, backend, secretStore string) *config.Config {
	t.Helper()
	return &config.Config{
		Graph: config.GraphConfig{AccessToken: "configured-token"},
		Store: config.StoreConfig{Backend: backend},
		Token: config.TokenConfig{
			SecretStore:      secretStore,
			EnvFile:          filepath.Join(t.TempDir(), ".env"),
			Key:              config.DefaultTokenKey,
			EncryptionSecret: "0123456789abcdef0123456789abcdef",
		},
		Badger: config.BadgerConfig{InMemory: true},
	}
}

func TestOpenApp_Memory(t *testing.T) {
	ctx := context.Background()
	a, err := openApp(ctx, testAppConfig(t, "memory", "env"))
	if err != nil {
		t.Fatalf("openApp: %v", err)
	}
	defer a.Close()

	if a.badgerDB != nil {
		t.Error("memory backend with env secrets should not open Badger")
	}
	tok, err := a.tokens.Current(ctx)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if tok != "configured-token" {
		t.Errorf("token = %q, want configured fallback", tok)
	}
}

func TestOpenApp_SharedBadger(t *testing.T) {
	ctx := context.Background()
	a, err := openApp(ctx, testAppConfig(t, "badger", "badger"))
	if err != nil {
		t.Fatalf("openApp: %v", err)
	}
	defer a.Close()

	if a.badgerDB == nil {
		t.Fatal("Badger should be open")
	}
	if err := a.secrets.Set(ctx, config.DefaultTokenKey, "stored-token"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	tok, err := a.tokens.Current(ctx)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if tok != "stored-token" {
		t.Errorf("token = %q, want the stored one", tok)
	}
}

func TestOpenApp_UnknownBackendClosesBadger(t *testing.T) {
	a, err := openApp(context.Background(), testAppConfig(t, "sqlite", "badger"))
	if err == nil {
		a.Close()
		t.Fatal("openApp should fail for an unknown backend")
	}
	if a != nil {
		t.Error("openApp should return a nil app on error")
	}
}

func TestRunSeed(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	s := seed.New(st)

	t.Run("grow before seed", func(t *testing.T) {
		var out bytes.Buffer
		if err := runSeed(ctx, s, true, &out); err != nil {
			t.Fatalf("runSeed: %v", err)
		}
		if out.Len() != 0 {
			t.Errorf("output = %q, want nothing", out.String())
		}
	})

	t.Run("seed", func(t *testing.T) {
		var out bytes.Buffer
		if err := runSeed(ctx, s, false, &out); err != nil {
			t.Fatalf("runSeed: %v", err)
		}
		if lines := strings.Count(out.String(), "\n"); lines != 5 {
			t.Errorf("lines = %d, want 5", lines)
		}
		if !strings.HasPrefix(out.String(), seed.PostIDPrefix+"1") {
			t.Errorf("output = %q, want TEST_1 first", out.String())
		}
	})

	t.Run("grow", func(t *testing.T) {
		var out bytes.Buffer
		if err := runSeed(ctx, s, true, &out); err != nil {
			t.Fatalf("runSeed: %v", err)
		}
		if lines := strings.Count(out.String(), "\n"); lines != 5 {
			t.Errorf("lines = %d, want 5", lines)
		}
	})
}

func TestInitNATS_Disabled(t *testing.T) {
	c, err := InitNATS(context.Background(), &config.NATSConfig{Enabled: false}, &publish.Recorder{})
	if err != nil {
		t.Fatalf("InitNATS: %v", err)
	}
	if c != nil {
		t.Error("components should be nil when NATS is disabled")
	}
	if c.Channel() != nil {
		t.Error("nil components should have no channel")
	}
	c.Shutdown(context.Background())
}

func TestInitNATS_Embedded(t *testing.T) {
	if testing.Short() {
		t.Skip("starts an embedded NATS server")
	}

	ctx := context.Background()
	cfg := &config.NATSConfig{
		Enabled:        true,
		EmbeddedServer: true,
		Host:           "127.0.0.1",
		Port:           -1,
		StoreDir:       t.TempDir(),
		SubjectPrefix:  "instakpi-test",
		MaxReconnects:  -1,
	}

	c, err := InitNATS(ctx, cfg, &publish.Recorder{})
	if err != nil {
		t.Fatalf("InitNATS: %v", err)
	}
	t.Cleanup(func() {
		c.Shutdown(ctx)
		_ = c.server.Shutdown(ctx)
	})

	if c.server == nil || c.relay == nil || c.Channel() == nil {
		t.Fatalf("components incomplete: %+v", c)
	}
	if c.url != c.server.ClientURL() {
		t.Errorf("url = %q, want embedded %q", c.url, c.server.ClientURL())
	}
}
