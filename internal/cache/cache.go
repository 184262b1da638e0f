// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package cache

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/goccy/go-json"
)

// DefaultMaxBytes bounds the cache when New is given a non-positive size.
const DefaultMaxBytes = 16 << 20

// Cache is a byte-bounded TTL cache for encoded responses.
type Cache struct {
	store *ristretto.Cache[string, []byte]
	ttl   time.Duration
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits        uint64
	Misses      uint64
	KeysAdded   uint64
	KeysEvicted uint64
}

// New creates a cache whose entries live for ttl.
func New(ttl time.Duration, maxBytes int64) (*Cache, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	store, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		// ~10x the expected number of entries.
		NumCounters: 10_000,
		MaxCost:     maxBytes,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("create response cache: %w", err)
	}
	return &Cache{store: store, ttl: ttl}, nil
}

// Get returns the cached body for key.
func (c *Cache) Get(key string) ([]byte, bool) {
	return c.store.Get(key)
}

// Set stores body under key with the default TTL. The write is visible to
// Get once it returns.
func (c *Cache) Set(key string, body []byte) {
	c.SetWithTTL(key, body, c.ttl)
}

// SetWithTTL stores body with a custom TTL. Admission is best effort: an
// entry may be rejected under memory pressure.
func (c *Cache) SetWithTTL(key string, body []byte, ttl time.Duration) {
	if c.store.SetWithTTL(key, body, int64(len(body)), ttl) {
		c.store.Wait()
	}
}

// Delete removes one entry.
func (c *Cache) Delete(key string) {
	c.store.Del(key)
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.store.Clear()
}

// Close stops the cache's background goroutines.
func (c *Cache) Close() {
	c.store.Close()
}

// GetStats returns the current counters.
func (c *Cache) GetStats() Stats {
	m := c.store.Metrics
	return Stats{
		Hits:        m.Hits(),
		Misses:      m.Misses(),
		KeysAdded:   m.KeysAdded(),
		KeysEvicted: m.KeysEvicted(),
	}
}

// HitRate returns hits as a percentage of lookups.
func (c *Cache) HitRate() float64 {
	s := c.GetStats()
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// GenerateKey builds a compact key from a route name and its parameters.
func GenerateKey(route string, params interface{}) string {
	if params == nil {
		return route
	}
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Sprintf("%s:%v", route, params)
	}
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%x", route, hash[:16])
}
