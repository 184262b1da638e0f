// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration loaded from defaults, an
// optional YAML file, a .env file and the process environment.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in values from defaultConfig()
//  2. Config File: optional config.yaml
//  3. Environment Variables: .env is loaded into the environment first,
//     then every mapped variable overrides the layers below
//
// Example:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal("Failed to load config:", err)
//	}
//	client := graph.NewClient(&cfg.Graph)
type Config struct {
	Graph    GraphConfig    `koanf:"graph"`
	Sync     SyncConfig     `koanf:"sync"`
	Token    TokenConfig    `koanf:"token"`
	Store    StoreConfig    `koanf:"store"`
	Database DatabaseConfig `koanf:"database"`
	Badger   BadgerConfig   `koanf:"badger"`
	Mongo    MongoConfig    `koanf:"mongo"`
	Postgres PostgresConfig `koanf:"postgres"`
	NATS     NATSConfig     `koanf:"nats"`
	Server   ServerConfig   `koanf:"server"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// GraphConfig holds Instagram Graph API connection settings.
type GraphConfig struct {
	BaseURL           string        `koanf:"base_url" validate:"required,url"`
	APIVersion        string        `koanf:"api_version" validate:"required"`
	AccountID         string        `koanf:"account_id"`
	AccessToken       string        `koanf:"access_token"`
	AppID             string        `koanf:"app_id"`
	AppSecret         string        `koanf:"app_secret"`
	Timeout           time.Duration `koanf:"timeout" validate:"gt=0"`
	MaxRetries        int           `koanf:"max_retries" validate:"min=0,max=10"`
	RequestsPerSecond float64       `koanf:"requests_per_second" validate:"gte=0"` // 0 = unlimited
}

// SyncConfig holds reconciliation cycle settings
type SyncConfig struct {
	Enabled            bool          `koanf:"enabled"`
	Interval           time.Duration `koanf:"interval" validate:"gt=0"`
	RunOnStartup       bool          `koanf:"run_on_startup"`
	CycleTimeout       time.Duration `koanf:"cycle_timeout" validate:"gt=0"`
	MediaLimit         int           `koanf:"media_limit" validate:"min=1,max=100"`
	ReelWindow         int           `koanf:"reel_window" validate:"min=1,max=100"`
	ReachWindowDays    int           `koanf:"reach_window_days" validate:"min=1,max=30"`
	ParallelCategories bool          `koanf:"parallel_categories"`
	Timezone           string        `koanf:"timezone"`
}

// Location resolves the configured timezone, falling back to UTC for
// unknown names.
func (s *SyncConfig) Location() *time.Location {
	if s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// TokenConfig holds long-lived token refresh settings.
type TokenConfig struct {
	Enabled          bool          `koanf:"enabled"`
	RefreshInterval  time.Duration `koanf:"refresh_interval" validate:"gt=0"`
	SecretStore      string        `koanf:"secret_store" validate:"oneof=env badger"`
	EnvFile          string        `koanf:"env_file"`
	Key              string        `koanf:"key" validate:"required"`
	EncryptionSecret string        `koanf:"encryption_secret"`
}

// StoreConfig selects the RecordStore backend.
type StoreConfig struct {
	Backend string `koanf:"backend" validate:"oneof=duckdb badger mongo postgres memory"`
}

// DatabaseConfig holds DuckDB settings
type DatabaseConfig struct {
	Path                   string `koanf:"path"`
	MaxMemory              string `koanf:"max_memory"`
	Threads                int    `koanf:"threads"`                  // 0 = runtime.NumCPU()
	PreserveInsertionOrder bool   `koanf:"preserve_insertion_order"` // DuckDB default is true
}

// BadgerConfig holds the Badger directory shared by the badger record store
// and the badger secret store.
type BadgerConfig struct {
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"`
}

// MongoConfig holds MongoDB settings
type MongoConfig struct {
	URI      string        `koanf:"uri"`
	Database string        `koanf:"database"`
	Timeout  time.Duration `koanf:"timeout"`
}

// PostgresConfig holds PostgreSQL settings
type PostgresConfig struct {
	DSN      string `koanf:"dsn"`
	MaxConns int32  `koanf:"max_conns"`
}

// NATSConfig holds the optional NATS fan-out for update messages.
type NATSConfig struct {
	Enabled        bool          `koanf:"enabled"`
	URL            string        `koanf:"url"`
	EmbeddedServer bool          `koanf:"embedded_server"`
	Host           string        `koanf:"host"`
	Port           int           `koanf:"port"`
	StoreDir       string        `koanf:"store_dir"`
	JetStream      bool          `koanf:"jetstream"`
	SubjectPrefix  string        `koanf:"subject_prefix"`
	MaxReconnects  int           `koanf:"max_reconnects"`
	ReconnectWait  time.Duration `koanf:"reconnect_wait"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port        int           `koanf:"port" validate:"min=1,max=65535"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"` // development, staging, production
}

// Addr returns the listen address.
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SecurityConfig holds CORS and rate limit settings
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level      string `koanf:"level"`
	Format     string `koanf:"format"`
	Caller     bool   `koanf:"caller"`
	File       string `koanf:"file"` // empty = stderr only
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
}

// Load reads configuration from all sources and validates it.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
