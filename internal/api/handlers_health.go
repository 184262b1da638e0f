// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/instakpi/internal/store"
)

const pingTimeout = 2 * time.Second

// HealthStatus is the body of GET /api/v1/health.
type HealthStatus struct {
	Status           string     `json:"status"`
	Version          string     `json:"version"`
	StoreConnected   bool       `json:"storeConnected"`
	SchedulerEnabled bool       `json:"schedulerEnabled"`
	LastSyncTime     *time.Time `json:"lastSyncTime,omitempty"`
	WebSocketClients int        `json:"webSocketClients"`
	Uptime           float64    `json:"uptime"`
}

func (h *Handler) storeConnected(ctx context.Context) bool {
	if h.store == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return store.Ping(ctx, h.store) == nil
}

// Health handles GET /api/v1/health. It always answers 200; Status is
// "degraded" while the record store is unreachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	connected := h.storeConnected(r.Context())

	status := "healthy"
	if !connected {
		status = "degraded"
	}

	var lastSyncPtr *time.Time
	if h.sync != nil {
		lastSync := h.sync.LastSyncTime()
		if !lastSync.IsZero() {
			lastSyncPtr = &lastSync
		}
	}

	clients := 0
	if h.wsHub != nil {
		clients = h.wsHub.GetClientCount()
	}

	WriteSuccess(w, r, HealthStatus{
		Status:           status,
		Version:          h.version,
		StoreConnected:   connected,
		SchedulerEnabled: h.sync != nil,
		LastSyncTime:     lastSyncPtr,
		WebSocketClients: clients,
		Uptime:           time.Since(h.startTime).Seconds(),
	})
}

// HealthLive handles GET /api/v1/health/live. It answers 200 while the process
// is serving, regardless of dependencies.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady handles GET /api/v1/health/ready: 200 when the record store
// answers, 503 otherwise.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if !h.storeConnected(r.Context()) {
		rw.ErrorWithDetails(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Record store unreachable",
			map[string]interface{}{"storeConnected": false})
		return
	}
	rw.Success(map[string]interface{}{
		"storeConnected": true,
		"readyToServe":   true,
		"uptime":         time.Since(h.startTime).Seconds(),
	})
}
