// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package reconcile

import (
	"context"
	"fmt"
	"net/url"
	"runtime/debug"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/instakpi/internal/config"
	"github.com/tomtom215/instakpi/internal/graph"
	"github.com/tomtom215/instakpi/internal/logging"
	"github.com/tomtom215/instakpi/internal/metrics"
	"github.com/tomtom215/instakpi/internal/models"
	"github.com/tomtom215/instakpi/internal/publish"
	"github.com/tomtom215/instakpi/internal/store"
)

// Category names, used in logs, metric labels and Update.Category.
const (
	CategoryPosts       = "posts"
	CategoryPinnedReel  = "pinned-reel"
	CategoryLatestStory = "latest-story"
	CategoryAccountKpis = "account-kpis"
)

// Defaults applied when the sync config leaves a window unset.
const (
	defaultMediaLimit      = 25
	defaultReelWindow      = 10
	defaultReachWindowDays = 30
)

// Snapshot is the immutable per-cycle input.
type Snapshot struct {
	AccountID   string
	AccessToken string
}

// Valid reports whether the snapshot can drive a cycle.
func (s Snapshot) Valid() bool {
	return s.AccountID != "" && s.AccessToken != ""
}

// Engine reconciles Graph API data into a RecordStore and publishes the
// results. It is safe for concurrent use; overlapping RunCycle calls share
// nothing but the store and channel.
type Engine struct {
	client  graph.MetricClient
	store   store.RecordStore
	channel publish.Channel

	mediaLimit      int
	reelWindow      int
	reachWindowDays int
	parallel        bool
	cycleTimeout    time.Duration
	loc             *time.Location
	now             func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now. Tests pin "today" with it.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an engine. cfg is copied.
func NewEngine(client graph.MetricClient, st store.RecordStore, ch publish.Channel, cfg *config.SyncConfig, opts ...Option) *Engine {
	e := &Engine{
		client:          client,
		store:           st,
		channel:         ch,
		mediaLimit:      cfg.MediaLimit,
		reelWindow:      cfg.ReelWindow,
		reachWindowDays: cfg.ReachWindowDays,
		parallel:        cfg.ParallelCategories,
		cycleTimeout:    cfg.CycleTimeout,
		loc:             cfg.Location(),
		now:             time.Now,
	}
	if e.mediaLimit <= 0 {
		e.mediaLimit = defaultMediaLimit
	}
	if e.reelWindow <= 0 {
		e.reelWindow = defaultReelWindow
	}
	if e.reachWindowDays <= 0 {
		e.reachWindowDays = defaultReachWindowDays
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// cycle carries the per-invocation state of RunCycle.
type cycle struct {
	*Engine
	snap     Snapshot
	failures atomic.Int32
}

type categoryFunc func(ctx context.Context) error

// RunCycle runs every category once. It never panics and never returns an
// error: failures are logged and counted per category.
func (e *Engine) RunCycle(ctx context.Context, snap Snapshot) {
	ctx = logging.ContextWithNewCycleID(ctx)
	log := logging.Ctx(ctx)

	if !snap.Valid() {
		metrics.CyclesTotal.WithLabelValues("skipped").Inc()
		log.Warn().
			Bool("has_account_id", snap.AccountID != "").
			Bool("has_token", snap.AccessToken != "").
			Msg("Skipping reconciliation cycle: account id or access token missing")
		return
	}

	if e.cycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cycleTimeout)
		defer cancel()
	}

	start := time.Now()
	c := &cycle{Engine: e, snap: snap}
	log.Info().Bool("parallel", e.parallel).Msg("Reconciliation cycle started")

	categories := []struct {
		name string
		fn   categoryFunc
	}{
		{CategoryPosts, c.reconcilePosts},
		{CategoryPinnedReel, c.reconcilePinnedReel},
		{CategoryLatestStory, c.reconcileLatestStory},
		{CategoryAccountKpis, c.reconcileAccountKpis},
	}

	if e.parallel {
		var wg sync.WaitGroup
		for _, cat := range categories {
			wg.Add(1)
			go func(name string, fn categoryFunc) {
				defer wg.Done()
				c.runCategory(ctx, name, fn)
			}(cat.name, cat.fn)
		}
		wg.Wait()
	} else {
		for _, cat := range categories {
			c.runCategory(ctx, cat.name, cat.fn)
		}
	}

	failures := int(c.failures.Load())
	duration := time.Since(start)
	metrics.RecordCycle(duration, failures)
	log.Info().
		Dur("duration", duration).
		Int("failures", failures).
		Msg("Reconciliation cycle finished")
}

// runCategory isolates one category: a returned error or a panic is logged,
// counted and swallowed.
func (c *cycle) runCategory(ctx context.Context, name string, fn categoryFunc) {
	start := time.Now()
	defer func() {
		metrics.CategoryDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}()
	defer func() {
		if r := recover(); r != nil {
			logging.Ctx(ctx).Error().
				Str("category", name).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("Category panicked")
			c.fail(ctx, name, fmt.Errorf("%w: %v", ErrPanic, r))
		}
	}()

	if err := fn(ctx); err != nil {
		c.fail(ctx, name, err)
		return
	}
	logging.Ctx(ctx).Debug().
		Str("category", name).
		Dur("duration", time.Since(start)).
		Msg("Category reconciled")
}

// fail logs and counts a failure inside category without aborting anything.
func (c *cycle) fail(ctx context.Context, category string, err error) {
	kind := errorType(err)
	c.failures.Add(1)
	metrics.RecordCategoryError(category, kind)
	logging.Ctx(ctx).Error().
		Str("category", category).
		Str("error_type", kind).
		Str("error", logging.SanitizeError(err)).
		Msg("Category step failed")
}

// params builds query parameters carrying the snapshot token.
func (c *cycle) params(kv ...string) url.Values {
	v := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		v.Set(kv[i], kv[i+1])
	}
	v.Set("access_token", c.snap.AccessToken)
	return v
}

// get wraps MetricClient.Get with transport classification.
func (c *cycle) get(ctx context.Context, path string, params url.Values) (*graph.Response, error) {
	resp, err := c.client.Get(ctx, path, params)
	if err != nil {
		return nil, transportErr("GET "+path, err)
	}
	if resp == nil {
		return nil, transportErr("GET "+path, fmt.Errorf("empty response"))
	}
	return resp, nil
}

// publish sends one update for category on the KPI topic.
func (c *cycle) publish(ctx context.Context, category string, data interface{}) {
	c.channel.Publish(publish.TopicKpiUpdates, models.Update{
		Category: category,
		Data:     data,
		SentAt:   c.now().UTC(),
	})
	logging.Ctx(ctx).Debug().Str("category", category).Msg("Update published")
}

// today returns the snapshot date of the current day in the engine timezone.
func (c *cycle) today() time.Time {
	return models.Day(c.now(), c.loc)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
