// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/instakpi/internal/config"
	"github.com/tomtom215/instakpi/internal/database"
	"github.com/tomtom215/instakpi/internal/logging"
	"github.com/tomtom215/instakpi/internal/secrets"
	"github.com/tomtom215/instakpi/internal/store"
	"github.com/tomtom215/instakpi/internal/store/badgerstore"
	"github.com/tomtom215/instakpi/internal/store/memstore"
	"github.com/tomtom215/instakpi/internal/store/mongostore"
	"github.com/tomtom215/instakpi/internal/store/pgstore"
	"github.com/tomtom215/instakpi/internal/token"
)

// app holds the components every command needs: the record store, the
// secret store and the token source built on it.
type app struct {
	cfg      *config.Config
	store    store.RecordStore
	secrets  secrets.Store
	tokens   *token.Source
	badgerDB *badger.DB
}

// needsBadger reports whether any component reads the shared Badger
// directory. Badger allows one process per directory, so the record store
// and the secret store share a single handle.
func needsBadger(cfg *config.Config) bool {
	return cfg.Store.Backend == "badger" || cfg.Token.SecretStore == "badger"
}

// openApp opens the stores selected by cfg. On error everything opened so
// far is closed again.
func openApp(ctx context.Context, cfg *config.Config) (a *app, err error) {
	a = &app{cfg: cfg}
	defer func() {
		if err != nil {
			a.Close()
			a = nil
		}
	}()

	if needsBadger(cfg) {
		if a.badgerDB, err = badgerstore.OpenDB(&cfg.Badger); err != nil {
			return a, err
		}
	}

	backend, err := openStore(ctx, cfg, a.badgerDB)
	if err != nil {
		return a, err
	}
	a.store = store.NewInstrumented(cfg.Store.Backend, backend)

	if a.secrets, err = secrets.Open(&cfg.Token, a.badgerDB); err != nil {
		return a, fmt.Errorf("open secret store: %w", err)
	}
	a.tokens = token.NewSource(a.secrets, cfg.Token.Key, cfg.Graph.AccessToken)

	logging.Info().
		Str("store_backend", cfg.Store.Backend).
		Str("secret_store", cfg.Token.SecretStore).
		Msg("Stores opened")
	return a, nil
}

// openStore builds the RecordStore named by cfg.Store.Backend. db must be
// non-nil for the badger backend.
func openStore(ctx context.Context, cfg *config.Config, db *badger.DB) (store.RecordStore, error) {
	switch cfg.Store.Backend {
	case "", "duckdb":
		return database.New(&cfg.Database)
	case "badger":
		if db == nil {
			return nil, errors.New("badger record store requires an open Badger database")
		}
		return badgerstore.New(db), nil
	case "mongo":
		return mongostore.Open(ctx, &cfg.Mongo)
	case "postgres":
		return pgstore.Open(ctx, &cfg.Postgres)
	case "memory":
		return memstore.New(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// Close closes the record store before the Badger handle it may share.
func (a *app) Close() {
	if a == nil {
		return
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing record store")
		}
	}
	if a.badgerDB != nil {
		if err := a.badgerDB.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing Badger database")
		}
	}
}
