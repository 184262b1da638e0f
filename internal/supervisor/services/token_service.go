// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package services

import (
	"context"
	"time"

	"github.com/tomtom215/instakpi/internal/logging"
)

const defaultRefreshInterval = 1200 * time.Hour

// Refresher is implemented by *token.Refresher.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// TokenRefreshService exchanges the access token once at startup and then
// every interval. Refresh errors are logged and never returned, so a failed
// exchange does not restart the service or affect any other one.
type TokenRefreshService struct {
	refresher Refresher
	interval  time.Duration
	name      string
}

// NewTokenRefreshService wraps refresher. A non-positive interval means 50
// days.
func NewTokenRefreshService(refresher Refresher, interval time.Duration) *TokenRefreshService {
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	return &TokenRefreshService{
		refresher: refresher,
		interval:  interval,
		name:      "token-refresh",
	}
}

// Serve implements suture.Service.
func (s *TokenRefreshService) Serve(ctx context.Context) error {
	log := logging.WithComponent(s.name)
	log.Info().Dur("interval", s.interval).Msg("Token refresh loop started")

	s.refresh(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

func (s *TokenRefreshService) refresh(ctx context.Context) {
	if err := s.refresher.Refresh(ctx); err != nil {
		log := logging.WithComponent(s.name)
		log.Error().
			Str("error", logging.SanitizeError(err)).
			Msg("Token refresh failed, keeping the current token")
	}
}

func (s *TokenRefreshService) String() string {
	return s.name
}
