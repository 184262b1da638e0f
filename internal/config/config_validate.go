// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/instakpi/internal/validation"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}

	validators := []func() error{
		c.validateGraph,
		c.validateSync,
		c.validateToken,
		c.validateStore,
		c.validateNATS,
		c.validateSecurity,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}

	return c.validateLogging()
}

// validateGraph validates the Graph API base URL and version
func (c *Config) validateGraph() error {
	if err := validateHTTPURL(c.Graph.BaseURL, "GRAPH_BASE_URL"); err != nil {
		return fmt.Errorf("GRAPH_BASE_URL is invalid: %w", err)
	}
	if !strings.HasPrefix(c.Graph.APIVersion, "v") {
		return fmt.Errorf("GRAPH_API_VERSION must look like v21.0, got: %s", c.Graph.APIVersion)
	}
	return nil
}

// validateSync validates cycle settings. Credentials are checked per cycle,
// not here, so the server can start before a token is provisioned.
func (c *Config) validateSync() error {
	if c.Sync.Timezone != "" {
		if _, err := time.LoadLocation(c.Sync.Timezone); err != nil {
			return fmt.Errorf("SYNC_TIMEZONE is invalid: %w", err)
		}
	}
	if c.Sync.Enabled && c.Sync.Interval < time.Minute {
		return fmt.Errorf("SYNC_INTERVAL must be at least 1m, got: %v", c.Sync.Interval)
	}
	return nil
}

// validateToken validates the refresh job and its secret store
func (c *Config) validateToken() error {
	if !c.Token.Enabled {
		return nil
	}
	if c.Graph.AppID == "" || c.Graph.AppSecret == "" {
		return fmt.Errorf("IG_APP_ID and IG_APP_SECRET are required when TOKEN_REFRESH_ENABLED=true")
	}

	switch c.Token.SecretStore {
	case "env":
		if c.Token.EnvFile == "" {
			return fmt.Errorf("TOKEN_ENV_FILE is required when TOKEN_SECRET_STORE=env")
		}
	case "badger":
		if c.Token.EncryptionSecret == "" {
			return fmt.Errorf("TOKEN_ENCRYPTION_SECRET is required when TOKEN_SECRET_STORE=badger")
		}
		if len(c.Token.EncryptionSecret) < 16 {
			return fmt.Errorf("TOKEN_ENCRYPTION_SECRET must be at least 16 characters")
		}
		if c.Badger.Path == "" && !c.Badger.InMemory {
			return fmt.Errorf("BADGER_PATH is required when TOKEN_SECRET_STORE=badger")
		}
	}
	return nil
}

// validateStore validates that the selected backend has its connection settings
func (c *Config) validateStore() error {
	switch c.Store.Backend {
	case "duckdb":
		if c.Database.Path == "" {
			return fmt.Errorf("DUCKDB_PATH is required when STORE_BACKEND=duckdb")
		}
	case "badger":
		if c.Badger.Path == "" && !c.Badger.InMemory {
			return fmt.Errorf("BADGER_PATH is required when STORE_BACKEND=badger")
		}
	case "mongo":
		if !strings.HasPrefix(c.Mongo.URI, "mongodb://") && !strings.HasPrefix(c.Mongo.URI, "mongodb+srv://") {
			return fmt.Errorf("MONGO_URI must start with mongodb:// or mongodb+srv://")
		}
		if c.Mongo.Database == "" {
			return fmt.Errorf("MONGO_DATABASE is required when STORE_BACKEND=mongo")
		}
	case "postgres":
		if c.Postgres.DSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required when STORE_BACKEND=postgres")
		}
		if c.Postgres.MaxConns < 1 {
			return fmt.Errorf("POSTGRES_MAX_CONNS must be at least 1")
		}
	}
	return nil
}

// validateNATS validates NATS configuration (only if enabled)
func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}
	if err := validateNATSURL(c.NATS.URL); err != nil {
		return fmt.Errorf("NATS_URL is invalid: %w", err)
	}
	if c.NATS.SubjectPrefix == "" {
		return fmt.Errorf("NATS_SUBJECT_PREFIX must not be empty")
	}
	if c.NATS.EmbeddedServer {
		if c.NATS.Port < 1 || c.NATS.Port > 65535 {
			return fmt.Errorf("NATS_PORT must be between 1 and 65535, got: %d", c.NATS.Port)
		}
		if c.NATS.JetStream && c.NATS.StoreDir == "" {
			return fmt.Errorf("NATS_STORE_DIR is required for an embedded JetStream server")
		}
	}
	return nil
}

// validateSecurity validates CORS origins and rate limits
func (c *Config) validateSecurity() error {
	if err := c.validateCORS(); err != nil {
		return err
	}
	return c.validateRateLimits()
}

// validateCORS rejects the wildcard in production
func (c *Config) validateCORS() error {
	if c.Server.Environment == "production" && c.hasWildcardCORS() {
		return fmt.Errorf("CORS_ORIGINS cannot be * in production")
	}
	return nil
}

func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// IsDevelopment reports whether development-only routes should be mounted.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "" || c.Server.Environment == "development"
}

func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1, got: %d", c.Security.RateLimitReqs)
	}
	if c.Security.RateLimitWindow < time.Second {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be at least 1s, got: %v", c.Security.RateLimitWindow)
	}
	return nil
}

// validateLogging validates level and format names
func (c *Config) validateLogging() error {
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, got: %s", c.Logging.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("LOG_FORMAT must be json or console, got: %s", c.Logging.Format)
	}
	if c.Logging.File != "" && c.Logging.MaxSizeMB < 1 {
		return fmt.Errorf("LOG_MAX_SIZE_MB must be at least 1 when LOG_FILE is set")
	}
	return nil
}
