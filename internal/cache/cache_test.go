// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package cache

import (
	"strings"
	"testing"
	"time"
)

func newTestCache(t *testing.T, ttl time.Duration) *Cache {
	t.Helper()
	c, err := New(ttl, 1<<20)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestCacheSetGet(t *testing.T) {
	c := newTestCache(t, time.Minute)

	c.Set("posts", []byte(`[{"postId":"p1"}]`))
	got, ok := c.Get("posts")
	if !ok {
		t.Fatal("posts not cached")
	}
	if string(got) != `[{"postId":"p1"}]` {
		t.Errorf("Get = %s", got)
	}

	if _, ok := c.Get("latest-story"); ok {
		t.Error("unexpected hit for missing key")
	}
}

func TestCacheExpiration(t *testing.T) {
	c := newTestCache(t, time.Minute)

	c.SetWithTTL("short", []byte("x"), 50*time.Millisecond)
	if _, ok := c.Get("short"); !ok {
		t.Fatal("entry missing before expiry")
	}
	time.Sleep(100 * time.Millisecond)
	if _, ok := c.Get("short"); ok {
		t.Error("entry still present after TTL")
	}
}

func TestCacheDeleteAndClear(t *testing.T) {
	c := newTestCache(t, time.Minute)

	c.Set("a", []byte("1"))
	c.Set("b", []byte("2"))
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("a present after Delete")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("b removed by Delete(a)")
	}

	c.Clear()
	if _, ok := c.Get("b"); ok {
		t.Error("b present after Clear")
	}
}

func TestCacheStats(t *testing.T) {
	c := newTestCache(t, time.Minute)

	c.Set("k", []byte("v"))
	c.Get("k")
	c.Get("missing")

	s := c.GetStats()
	if s.Hits < 1 || s.Misses < 1 {
		t.Errorf("stats = %+v, want at least one hit and one miss", s)
	}
	if r := c.HitRate(); r <= 0 || r >= 100 {
		t.Errorf("HitRate = %v, want between 0 and 100", r)
	}
}

func TestGenerateKey(t *testing.T) {
	if got := GenerateKey("posts", nil); got != "posts" {
		t.Errorf("GenerateKey(nil) = %q", got)
	}

	a := GenerateKey("post", map[string]string{"id": "p1"})
	b := GenerateKey("post", map[string]string{"id": "p1"})
	c := GenerateKey("post", map[string]string{"id": "p2"})
	if a != b {
		t.Error("same params produced different keys")
	}
	if a == c {
		t.Error("different params produced the same key")
	}
	if !strings.HasPrefix(a, "post:") {
		t.Errorf("key %q lacks route prefix", a)
	}
}
