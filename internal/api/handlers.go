// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package api

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/tomtom215/instakpi/internal/cache"
	"github.com/tomtom215/instakpi/internal/config"
	"github.com/tomtom215/instakpi/internal/logging"
	"github.com/tomtom215/instakpi/internal/publish"
	"github.com/tomtom215/instakpi/internal/seed"
	"github.com/tomtom215/instakpi/internal/store"
	ws "github.com/tomtom215/instakpi/internal/websocket"
)

// ListCacheTTL is how long an encoded list response is served from cache.
// Every completed cycle clears the cache, so this only bounds staleness
// for writes made outside a cycle.
const ListCacheTTL = 30 * time.Second

// CycleTrigger runs an on-demand reconciliation cycle. Implemented by
// *sync.Manager.
type CycleTrigger interface {
	TriggerSync(ctx context.Context) error
	LastSyncTime() time.Time
}

// Handler contains dependencies for API handlers.
//
// Handler methods are split across files:
//   - handlers.go: Handler struct, constructor, cache hooks (this file)
//   - handlers_instagram.go: read endpoints and the refresh trigger
//   - handlers_health.go: health, liveness and readiness probes
//   - handlers_websocket.go: live update upgrade
//   - handlers_test_routes.go: development-only data routes
type Handler struct {
	store     store.RecordStore
	sync      CycleTrigger
	wsHub     *ws.Hub
	channel   publish.Channel
	seeder    *seed.Seeder
	config    *config.Config
	cache     *cache.Cache
	startTime time.Time
	version   string

	testCounter atomic.Int64
}

// NewHandler creates the API handler.
//
// channel receives messages posted to the development send route; in
// production wiring it is the same fan-out the reconcile engine publishes
// to. syncMgr may be nil when the scheduler is disabled, in which case the
// refresh route answers 503.
func NewHandler(st store.RecordStore, syncMgr CycleTrigger, wsHub *ws.Hub, channel publish.Channel, cfg *config.Config) *Handler {
	c, err := cache.New(ListCacheTTL, 0)
	if err != nil {
		logging.Warn().Err(err).Msg("Response cache disabled")
		c = nil
	}

	return &Handler{
		store:     st,
		sync:      syncMgr,
		wsHub:     wsHub,
		channel:   channel,
		seeder:    seed.New(st),
		config:    cfg,
		cache:     c,
		startTime: time.Now(),
		version:   "dev",
	}
}

// SetVersion sets the build version reported by the health endpoint.
// Call it once during startup.
func (h *Handler) SetVersion(version string) {
	h.version = version
}

// ClearCache drops every cached list response.
func (h *Handler) ClearCache() {
	if h.cache != nil {
		h.cache.Clear()
		logging.Debug().Msg("Response cache cleared")
	}
}

// Close releases the response cache.
func (h *Handler) Close() {
	if h.cache != nil {
		h.cache.Close()
	}
}

// OnCycleCompleted is registered with the sync manager and runs after every
// cycle, so list reads never outlive the records they were built from.
func (h *Handler) OnCycleCompleted(duration time.Duration) {
	h.ClearCache()
	logging.Debug().Dur("duration", duration).Msg("Cycle completed, cached lists invalidated")
}

func (h *Handler) isProduction() bool {
	return h.config != nil && h.config.Server.Environment == "production"
}
