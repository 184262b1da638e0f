// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package sync

import (
	"context"
	"errors"

	"github.com/tomtom215/instakpi/internal/logging"
	"github.com/tomtom215/instakpi/internal/reconcile"
	"github.com/tomtom215/instakpi/internal/token"
)

// TokenSource resolves the current access token. Implemented by
// *token.Source.
type TokenSource interface {
	Current(ctx context.Context) (string, error)
}

// SnapshotSource builds the immutable per-cycle input.
type SnapshotSource struct {
	accountID string
	tokens    TokenSource
}

// NewSnapshotSource returns a source for accountID.
func NewSnapshotSource(accountID string, tokens TokenSource) *SnapshotSource {
	return &SnapshotSource{accountID: accountID, tokens: tokens}
}

// Snapshot returns the current account id and token. A missing token yields
// a snapshot with an empty token; the engine skips such cycles.
func (s *SnapshotSource) Snapshot(ctx context.Context) reconcile.Snapshot {
	snap := reconcile.Snapshot{AccountID: s.accountID}
	if s.tokens == nil {
		return snap
	}
	tok, err := s.tokens.Current(ctx)
	if err != nil {
		if !errors.Is(err, token.ErrNoToken) {
			logging.Warn().Err(err).Msg("Resolving access token failed")
		}
		return snap
	}
	snap.AccessToken = tok
	return snap
}
