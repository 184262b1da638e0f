// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/instakpi/config.yaml",
	"/etc/instakpi/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// DotEnvPathEnvVar overrides the .env file location.
const DotEnvPathEnvVar = "DOTENV_PATH"

// DefaultDotEnvPath is read when DOTENV_PATH is unset.
const DefaultDotEnvPath = ".env"

// DefaultTokenKey is the secret store key holding the Graph API access token.
const DefaultTokenKey = "IG_ACCESS_TOKEN"

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Graph: GraphConfig{
			BaseURL:           "https://graph.facebook.com",
			APIVersion:        "v21.0",
			Timeout:           30 * time.Second,
			MaxRetries:        5,
			RequestsPerSecond: 5,
		},
		Sync: SyncConfig{
			Enabled:            true,
			Interval:           time.Hour,
			RunOnStartup:       true,
			CycleTimeout:       10 * time.Minute,
			MediaLimit:         25,
			ReelWindow:         10,
			ReachWindowDays:    30,
			ParallelCategories: false,
			Timezone:           "UTC",
		},
		Token: TokenConfig{
			Enabled:         true,
			RefreshInterval: 50 * 24 * time.Hour,
			SecretStore:     "env",
			EnvFile:         DefaultDotEnvPath,
			Key:             DefaultTokenKey,
		},
		Store: StoreConfig{
			Backend: "duckdb",
		},
		Database: DatabaseConfig{
			Path:                   "/data/instakpi.duckdb",
			MaxMemory:              "1GB",
			Threads:                0,
			PreserveInsertionOrder: true,
		},
		Badger: BadgerConfig{
			Path: "/data/badger",
		},
		Mongo: MongoConfig{
			URI:      "mongodb://localhost:27017",
			Database: "instakpi",
			Timeout:  10 * time.Second,
		},
		Postgres: PostgresConfig{
			DSN:      "",
			MaxConns: 10,
		},
		NATS: NATSConfig{
			Enabled:        false,
			URL:            "nats://127.0.0.1:4222",
			EmbeddedServer: false,
			Host:           "127.0.0.1",
			Port:           4222,
			StoreDir:       "/data/nats",
			JetStream:      false,
			SubjectPrefix:  "instakpi",
			MaxReconnects:  -1,
			ReconnectWait:  2 * time.Second,
		},
		Server: ServerConfig{
			Port:        8080,
			Host:        "0.0.0.0",
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Security: SecurityConfig{
			CORSOrigins:     []string{"http://localhost:3000"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			Caller:     false,
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting, including values from .env
func LoadWithKoanf() (*Config, error) {
	if err := LoadDotEnv(dotEnvPath()); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadDotEnv loads a .env file into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func dotEnvPath() string {
	if p := os.Getenv(DotEnvPathEnvVar); p != "" {
		return p
	}
	return DefaultDotEnvPath
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars arrive as strings while the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lower-cased) to koanf paths.
// Unmapped variables are ignored so unrelated environment does not leak in.
var envMappings = map[string]string{
	// Graph API
	"graph_base_url":            "graph.base_url",
	"graph_api_version":         "graph.api_version",
	"graph_timeout":             "graph.timeout",
	"graph_max_retries":         "graph.max_retries",
	"graph_requests_per_second": "graph.requests_per_second",
	"ig_account_id":             "graph.account_id",
	"ig_access_token":           "graph.access_token",
	"ig_app_id":                 "graph.app_id",
	"ig_app_secret":             "graph.app_secret",

	// Sync
	"sync_enabled":             "sync.enabled",
	"sync_interval":            "sync.interval",
	"sync_run_on_startup":      "sync.run_on_startup",
	"sync_cycle_timeout":       "sync.cycle_timeout",
	"sync_media_limit":         "sync.media_limit",
	"sync_reel_window":         "sync.reel_window",
	"sync_reach_window_days":   "sync.reach_window_days",
	"sync_parallel_categories": "sync.parallel_categories",
	"sync_timezone":            "sync.timezone",

	// Token refresh
	"token_refresh_enabled":   "token.enabled",
	"token_refresh_interval":  "token.refresh_interval",
	"token_secret_store":      "token.secret_store",
	"token_env_file":          "token.env_file",
	"token_key":               "token.key",
	"token_encryption_secret": "token.encryption_secret",

	// Storage
	"store_backend":      "store.backend",
	"duckdb_path":        "database.path",
	"duckdb_max_memory":  "database.max_memory",
	"duckdb_threads":     "database.threads",
	"badger_path":        "badger.path",
	"badger_in_memory":   "badger.in_memory",
	"mongo_uri":          "mongo.uri",
	"mongo_database":     "mongo.database",
	"mongo_timeout":      "mongo.timeout",
	"postgres_dsn":       "postgres.dsn",
	"postgres_max_conns": "postgres.max_conns",

	// NATS
	"nats_enabled":        "nats.enabled",
	"nats_url":            "nats.url",
	"nats_embedded":       "nats.embedded_server",
	"nats_host":           "nats.host",
	"nats_port":           "nats.port",
	"nats_store_dir":      "nats.store_dir",
	"nats_jetstream":      "nats.jetstream",
	"nats_subject_prefix": "nats.subject_prefix",

	// Server
	"http_port":    "server.port",
	"http_host":    "server.host",
	"http_timeout": "server.timeout",
	"environment":  "server.environment",

	// Security
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",

	// Logging
	"log_level":        "logging.level",
	"log_format":       "logging.format",
	"log_caller":       "logging.caller",
	"log_file":         "logging.file",
	"log_max_size_mb":  "logging.max_size_mb",
	"log_max_backups":  "logging.max_backups",
	"log_max_age_days": "logging.max_age_days",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - IG_ACCESS_TOKEN -> graph.access_token
//   - SYNC_INTERVAL -> sync.interval
//   - DUCKDB_PATH -> database.path
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
