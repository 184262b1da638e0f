// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tomtom215/instakpi/internal/config"
	"github.com/tomtom215/instakpi/internal/logging"
	"github.com/tomtom215/instakpi/internal/publish"
)

// NATSComponents holds the NATS pieces for lifecycle management. The
// server and relay run under the supervisor; the channel is closed by
// Shutdown after the supervisor has stopped.
type NATSComponents struct {
	server  *publish.EmbeddedServer
	channel *publish.NATSChannel
	relay   *publish.Relay
	url     string
}

// InitNATS starts the embedded server when configured, connects the
// publishing channel and subscribes the relay that feeds updates from other
// instances into local. It returns nil when NATS is disabled.
func InitNATS(ctx context.Context, cfg *config.NATSConfig, local publish.Channel) (*NATSComponents, error) {
	if !cfg.Enabled {
		logging.Info().Msg("NATS update fan-out disabled (NATS_ENABLED=false)")
		return nil, nil
	}

	c := &NATSComponents{url: cfg.URL}

	if cfg.EmbeddedServer {
		srv, err := publish.NewEmbeddedServer(cfg)
		if err != nil {
			return nil, err
		}
		c.server = srv
		c.url = srv.ClientURL()
	} else {
		logging.Info().Str("url", c.url).Msg("Using external NATS server")
	}

	// Each process tags its publishes so its own relay can drop the echo.
	origin := uuid.NewString()

	channel, err := publish.NewNATSChannel(ctx, cfg, c.url, origin)
	if err != nil {
		c.Shutdown(ctx)
		return nil, fmt.Errorf("connect NATS channel: %w", err)
	}
	c.channel = channel

	relay, err := publish.NewRelay(cfg, c.url, origin, local, publish.TopicKpiUpdates)
	if err != nil {
		c.Shutdown(ctx)
		return nil, fmt.Errorf("create NATS relay: %w", err)
	}
	c.relay = relay

	return c, nil
}

// Channel returns the publishing side, or nil for nil components.
func (c *NATSComponents) Channel() publish.Channel {
	if c == nil || c.channel == nil {
		return nil
	}
	return c.channel
}

// Shutdown closes the publisher and stops an embedded server that was never
// handed to the supervisor. Safe on nil components.
func (c *NATSComponents) Shutdown(ctx context.Context) {
	if c == nil {
		return
	}
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing NATS channel")
		}
		c.channel = nil
	}
	if c.server != nil && c.relay == nil {
		if err := c.server.Shutdown(ctx); err != nil {
			logging.Error().Err(err).Msg("Error stopping embedded NATS server")
		}
	}
}
