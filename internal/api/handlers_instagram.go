// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/instakpi/internal/cache"
	"github.com/tomtom215/instakpi/internal/logging"
	"github.com/tomtom215/instakpi/internal/models"
	syncpkg "github.com/tomtom215/instakpi/internal/sync"
	"github.com/tomtom215/instakpi/internal/validation"
)

// PostQuery is the path parameter of GET /posts/{postId}.
type PostQuery struct {
	PostID string `validate:"required,max=128"`
}

// KpiRangeQuery bounds GET /account-kpis. Both ends are inclusive and
// optional.
type KpiRangeQuery struct {
	From string `validate:"omitempty,datekey"`
	To   string `validate:"omitempty,datekey"`
}

// cachedList is the cache entry of a list endpoint.
type cachedList struct {
	Count int             `json:"count"`
	Items json.RawMessage `json:"items"`
}

// serveList answers from the response cache when possible, otherwise calls
// load, caches its encoding and writes it.
func (h *Handler) serveList(w http.ResponseWriter, r *http.Request, key string, load func(ctx context.Context) (interface{}, int, error)) {
	rw := NewResponseWriter(w, r)

	if h.cache != nil {
		if body, ok := h.cache.Get(key); ok {
			var entry cachedList
			if err := json.Unmarshal(body, &entry); err == nil {
				rw.List(entry.Items, entry.Count, true)
				return
			}
			h.cache.Delete(key)
		}
	}

	items, count, err := load(r.Context())
	if err != nil {
		rw.StoreError(err)
		return
	}

	if h.cache != nil {
		if encoded, err := json.Marshal(items); err == nil {
			if body, err := json.Marshal(cachedList{Count: count, Items: encoded}); err == nil {
				h.cache.Set(key, body)
			}
		}
	}
	rw.List(items, count, false)
}

// Posts handles GET /api/instagram/posts: every stored post, newest first.
func (h *Handler) Posts(w http.ResponseWriter, r *http.Request) {
	h.serveList(w, r, "posts", func(ctx context.Context) (interface{}, int, error) {
		posts, err := h.store.ListPosts(ctx)
		if err != nil {
			return nil, 0, err
		}
		if posts == nil {
			posts = []*models.Post{}
		}
		return posts, len(posts), nil
	})
}

// PostByID handles GET /api/instagram/posts/{postId}.
func (h *Handler) PostByID(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	query := PostQuery{PostID: chi.URLParam(r, "postId")}
	if verr := validation.ValidateStruct(&query); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	post, err := h.store.FindPost(r.Context(), query.PostID)
	if err != nil {
		rw.StoreError(err)
		return
	}
	if post == nil {
		rw.NotFound("Post not found")
		return
	}
	rw.Success(post)
}

// Refresh handles POST /api/instagram/refresh. It runs one cycle before
// answering. The cycle is detached from the request so a client hanging up
// does not abort it halfway.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if h.sync == nil {
		rw.Error(http.StatusServiceUnavailable, ErrCodeNotConfigured, "Scheduler is disabled")
		return
	}

	ctx := context.WithoutCancel(r.Context())
	err := h.sync.TriggerSync(ctx)
	h.ClearCache()

	if errors.Is(err, syncpkg.ErrSnapshotIncomplete) {
		rw.Error(http.StatusServiceUnavailable, ErrCodeNotConfigured, "Account id or access token not configured")
		return
	}
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Manual refresh failed")
		rw.InternalError("Refresh failed")
		return
	}

	rw.Success(map[string]interface{}{
		"refreshed": true,
		"lastSync":  h.sync.LastSyncTime(),
	})
}

// LatestStory handles GET /api/instagram/latest-story. It answers 404 while
// no story has been stored.
func (h *Handler) LatestStory(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	story, err := h.store.LatestStory(r.Context())
	if err != nil {
		rw.StoreError(err)
		return
	}
	if story == nil {
		rw.NotFound("No story found")
		return
	}
	rw.Success(story)
}

// AccountKpis handles GET /api/instagram/account-kpis[?from=&to=], dates
// ascending.
func (h *Handler) AccountKpis(w http.ResponseWriter, r *http.Request) {
	query := KpiRangeQuery{
		From: r.URL.Query().Get("from"),
		To:   r.URL.Query().Get("to"),
	}
	if verr := validation.ValidateStruct(&query); verr != nil {
		apiErr := verr.ToAPIError()
		NewResponseWriter(w, r).ValidationError(apiErr.Message, apiErr.Details)
		return
	}
	// YYYY-MM-DD keys order lexically.
	if query.From != "" && query.To != "" && query.From > query.To {
		NewResponseWriter(w, r).BadRequest("from must not be after to")
		return
	}

	h.serveList(w, r, cache.GenerateKey("account-kpis", query), func(ctx context.Context) (interface{}, int, error) {
		kpis, err := h.store.ListKpis(ctx)
		if err != nil {
			return nil, 0, err
		}
		filtered := make([]*models.AccountKpi, 0, len(kpis))
		for _, k := range kpis {
			key := models.DateKey(k.Date)
			if query.From != "" && key < query.From {
				continue
			}
			if query.To != "" && key > query.To {
				continue
			}
			filtered = append(filtered, k)
		}
		return filtered, len(filtered), nil
	})
}

// LatestAccountKpi handles GET /api/instagram/account-kpis/latest.
func (h *Handler) LatestAccountKpi(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	kpi, err := h.store.LatestKpi(r.Context())
	if err != nil {
		rw.StoreError(err)
		return
	}
	if kpi == nil {
		rw.NotFound("No account snapshot found")
		return
	}
	rw.Success(kpi)
}
