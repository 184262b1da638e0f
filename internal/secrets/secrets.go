// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

// Package secrets persists individual credentials.
//
// Two backends implement Store:
//
//   - EnvFileStore rewrites one KEY=value line of a dotenv file, the same
//     file the config loader reads at startup
//   - BadgerStore keeps AES-256-GCM encrypted values in the Badger directory
//     shared with the badger record store
//
// Set replaces exactly one key. Other keys are never modified, and a failed
// Set leaves the previous value readable.
package secrets

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/instakpi/internal/config"
)

// ErrNotFound is returned by Get for a key that was never set.
var ErrNotFound = errors.New("secret not found")

// ErrEmptyKey is returned for an empty key.
var ErrEmptyKey = errors.New("secret key is empty")

// Store reads and writes single secrets.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Open builds the backend selected by cfg.SecretStore. db is required for
// the badger backend and ignored otherwise.
func Open(cfg *config.TokenConfig, db *badger.DB) (Store, error) {
	switch cfg.SecretStore {
	case "", "env":
		return NewEnvFileStore(cfg.EnvFile), nil
	case "badger":
		if db == nil {
			return nil, errors.New("badger secret store requires an open Badger database")
		}
		enc, err := config.NewCredentialEncryptor(cfg.EncryptionSecret)
		if err != nil {
			return nil, fmt.Errorf("badger secret store: %w", err)
		}
		return NewBadgerStore(db, enc), nil
	default:
		return nil, fmt.Errorf("unknown secret store %q", cfg.SecretStore)
	}
}
