// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package secrets

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/instakpi/internal/config"
)

const secretKeyPrefix = "secret:"

// BadgerStore keeps encrypted secrets under the secret: prefix.
type BadgerStore struct {
	db  *badger.DB
	enc *config.CredentialEncryptor
}

// NewBadgerStore wraps an open database. The caller owns db.
func NewBadgerStore(db *badger.DB, enc *config.CredentialEncryptor) *BadgerStore {
	return &BadgerStore{db: db, enc: enc}
}

// Get decrypts and returns the value of key.
func (s *BadgerStore) Get(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var ciphertext string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(secretKeyPrefix + key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			ciphertext = string(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read secret %s: %w", key, err)
	}

	plaintext, err := s.enc.Decrypt(ciphertext)
	if err != nil {
		return "", fmt.Errorf("decrypt secret %s: %w", key, err)
	}
	return plaintext, nil
}

// Set encrypts value and stores it under key in a single transaction.
func (s *BadgerStore) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	ciphertext, err := s.enc.Encrypt(value)
	if err != nil {
		return fmt.Errorf("encrypt secret %s: %w", key, err)
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(secretKeyPrefix+key), []byte(ciphertext))
	}); err != nil {
		return fmt.Errorf("write secret %s: %w", key, err)
	}
	return nil
}
