// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

// Package token exchanges the Graph access token for a long-lived one and
// persists it in the secret store.
package token

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/tomtom215/instakpi/internal/config"
	"github.com/tomtom215/instakpi/internal/graph"
	"github.com/tomtom215/instakpi/internal/logging"
	"github.com/tomtom215/instakpi/internal/metrics"
	"github.com/tomtom215/instakpi/internal/secrets"
)

// ExchangePath is the Graph endpoint that issues long-lived tokens.
const ExchangePath = "/oauth/access_token"

// BreakerName names the refresher's circuit breaker, separate from the
// cycle client's.
const BreakerName = "graph-token"

// Refresh outcomes recorded in instakpi_token_refresh_total.
const (
	outcomeSuccess       = "success"
	outcomeExchangeError = "exchange_error"
	outcomeStoreError    = "store_error"
)

var (
	// ErrNoToken means neither the secret store nor the config holds a token.
	ErrNoToken = errors.New("no access token to exchange")

	// ErrEmptyExchange means the exchange answered without an access_token.
	ErrEmptyExchange = errors.New("token exchange returned no access_token")
)

// Source resolves the current access token: the secret store first, the
// configured token second.
type Source struct {
	secrets  secrets.Store
	key      string
	fallback string
}

// NewSource returns a Source reading key from st.
func NewSource(st secrets.Store, key, fallback string) *Source {
	return &Source{secrets: st, key: key, fallback: fallback}
}

// Current returns the active token. A secret store read failure other than
// not-found is logged and the fallback is used.
func (s *Source) Current(ctx context.Context) (string, error) {
	if s.secrets != nil {
		v, err := s.secrets.Get(ctx, s.key)
		switch {
		case err == nil && v != "":
			return v, nil
		case err != nil && !errors.Is(err, secrets.ErrNotFound):
			logging.Warn().Err(err).Str("key", s.key).Msg("Secret store read failed, using configured token")
		}
	}
	if s.fallback == "" {
		return "", ErrNoToken
	}
	return s.fallback, nil
}

// Refresher performs one exchange-and-persist step per Refresh call.
type Refresher struct {
	client    graph.MetricClient
	source    *Source
	secrets   secrets.Store
	key       string
	appID     string
	appSecret string
}

// NewRefresher creates a refresher. client should be a dedicated instance
// (see NewClient) so refresh failures never trip the cycle breaker.
func NewRefresher(client graph.MetricClient, st secrets.Store, graphCfg *config.GraphConfig, tokenCfg *config.TokenConfig) *Refresher {
	return &Refresher{
		client:    client,
		source:    NewSource(st, tokenCfg.Key, graphCfg.AccessToken),
		secrets:   st,
		key:       tokenCfg.Key,
		appID:     graphCfg.AppID,
		appSecret: graphCfg.AppSecret,
	}
}

// NewClient builds the breaker-wrapped Graph client the refresher uses.
func NewClient(graphCfg *config.GraphConfig) graph.MetricClient {
	return graph.NewCircuitBreakerClient(BreakerName, graph.NewClient(graphCfg))
}

// Refresh exchanges the current token and stores the result under the
// configured key. On any error the stored value is left as it was.
func (r *Refresher) Refresh(ctx context.Context) error {
	current, err := r.source.Current(ctx)
	if err != nil {
		metrics.RecordTokenRefresh(outcomeExchangeError)
		return err
	}

	params := url.Values{}
	params.Set("grant_type", "fb_exchange_token")
	params.Set("client_id", r.appID)
	params.Set("client_secret", r.appSecret)
	params.Set("fb_exchange_token", current)

	resp, err := r.client.Get(ctx, ExchangePath, params)
	if err != nil {
		metrics.RecordTokenRefresh(outcomeExchangeError)
		return fmt.Errorf("exchange token: %w", err)
	}

	var longLived string
	if resp != nil {
		longLived, _ = resp.Record.String("access_token")
	}
	if longLived == "" {
		metrics.RecordTokenRefresh(outcomeExchangeError)
		return ErrEmptyExchange
	}

	if err := r.secrets.Set(ctx, r.key, longLived); err != nil {
		metrics.RecordTokenRefresh(outcomeStoreError)
		return fmt.Errorf("persist token: %w", err)
	}

	metrics.RecordTokenRefresh(outcomeSuccess)
	event := logging.Info().
		Str("key", r.key).
		Str("token", logging.SanitizeToken(longLived))
	if expires, ok := resp.Record.Int("expires_in"); ok {
		event = event.Int64("expires_in_seconds", expires)
	}
	event.Msg("Access token refreshed")
	return nil
}
