// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package services

import (
	"context"
)

// ContextServer serves until its context ends. Implemented by
// *publish.EmbeddedServer and *publish.Relay.
type ContextServer interface {
	Serve(ctx context.Context) error
}

// NATSService supervises one NATS component under a fixed name.
type NATSService struct {
	server ContextServer
	name   string
}

// NewNATSServerService wraps the embedded NATS server.
func NewNATSServerService(server ContextServer) *NATSService {
	return &NATSService{server: server, name: "nats-server"}
}

// NewNATSRelayService wraps the NATS to websocket relay.
func NewNATSRelayService(relay ContextServer) *NATSService {
	return &NATSService{server: relay, name: "nats-relay"}
}

// Serve implements suture.Service.
func (s *NATSService) Serve(ctx context.Context) error {
	return s.server.Serve(ctx)
}

func (s *NATSService) String() string {
	return s.name
}
