// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package api

import (
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/instakpi/internal/logging"
	"github.com/tomtom215/instakpi/internal/models"
	"github.com/tomtom215/instakpi/internal/publish"
	"github.com/tomtom215/instakpi/internal/reconcile"
)

// maxTestMessageBytes bounds the body of POST /api/test/send.
const maxTestMessageBytes = 8 << 10

// TestData is the body of GET /api/test/data.
type TestData struct {
	Message   string    `json:"message"`
	Count     int64     `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

// TestDataHandler handles GET /api/test/data. Count increments on every
// call, starting at zero.
func (h *Handler) TestDataHandler(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(TestData{
		Message:   "Test message",
		Count:     h.testCounter.Add(1) - 1,
		Timestamp: time.Now().UTC(),
	})
}

// TestSend handles POST /api/test/send. Any JSON body is published unchanged
// on the kpi-updates topic.
func (h *Handler) TestSend(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxTestMessageBytes))
	if err != nil {
		rw.BadRequest("Request body too large")
		return
	}
	if !json.Valid(body) {
		rw.BadRequest("Request body must be JSON")
		return
	}
	if h.channel == nil {
		rw.ServiceUnavailable("No update channel configured")
		return
	}

	h.channel.Publish(publish.TopicKpiUpdates, json.RawMessage(body))
	logging.Ctx(r.Context()).Debug().Int("bytes", len(body)).Msg("Test message published")
	rw.NoContent()
}

// TestSeed handles POST /api/test/seed: stores the five TEST_ posts and
// broadcasts them as a posts update.
func (h *Handler) TestSeed(w http.ResponseWriter, r *http.Request) {
	posts, err := h.seeder.Seed(r.Context())
	h.afterSeed(posts)
	if err != nil {
		NewResponseWriter(w, r).StoreError(err)
		return
	}
	NewResponseWriter(w, r).List(posts, len(posts), false)
}

// TestGrow handles POST /api/test/grow: adds random engagement to the seeded
// posts that exist.
func (h *Handler) TestGrow(w http.ResponseWriter, r *http.Request) {
	posts, err := h.seeder.Grow(r.Context())
	h.afterSeed(posts)
	if err != nil {
		NewResponseWriter(w, r).StoreError(err)
		return
	}
	NewResponseWriter(w, r).List(posts, len(posts), false)
}

func (h *Handler) afterSeed(posts []*models.Post) {
	h.ClearCache()
	if h.channel == nil || len(posts) == 0 {
		return
	}
	h.channel.Publish(publish.TopicKpiUpdates, models.Update{
		Category: reconcile.CategoryPosts,
		Data:     posts,
		SentAt:   time.Now().UTC(),
	})
}
