// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/instakpi/internal/config"
	"github.com/tomtom215/instakpi/internal/metrics"
)

// =====================================================
// ChiMiddleware Configuration Tests
// =====================================================

func TestNewChiMiddleware_DefaultConfig(t *testing.T) {
	m := NewChiMiddleware(nil)

	if m == nil || m.config == nil {
		t.Fatal("NewChiMiddleware returned no config")
	}
	if len(m.config.CORSAllowedOrigins) != 1 || m.config.CORSAllowedOrigins[0] != DefaultCORSOrigin {
		t.Errorf("CORSAllowedOrigins = %v, want [%s]", m.config.CORSAllowedOrigins, DefaultCORSOrigin)
	}
	if m.config.CORSMaxAge != 86400 {
		t.Errorf("CORSMaxAge = %d, want 86400", m.config.CORSMaxAge)
	}
	if m.config.RateLimitRequests != 100 || m.config.RateLimitWindow != time.Minute {
		t.Errorf("rate limit = %d/%v, want 100/1m", m.config.RateLimitRequests, m.config.RateLimitWindow)
	}
}

func TestChiMiddlewareConfigFromSecurity(t *testing.T) {
	tests := []struct {
		name        string
		sec         *config.SecurityConfig
		wantOrigins []string
		wantReqs    int
		wantWindow  time.Duration
		wantOff     bool
	}{
		{
			name:        "nil keeps defaults",
			sec:         nil,
			wantOrigins: []string{DefaultCORSOrigin},
			wantReqs:    100,
			wantWindow:  time.Minute,
		},
		{
			name:        "zero values keep defaults",
			sec:         &config.SecurityConfig{},
			wantOrigins: []string{DefaultCORSOrigin},
			wantReqs:    100,
			wantWindow:  time.Minute,
		},
		{
			name: "overrides",
			sec: &config.SecurityConfig{
				CORSOrigins:       []string{"https://a.example", "https://b.example"},
				RateLimitReqs:     20,
				RateLimitWindow:   30 * time.Second,
				RateLimitDisabled: true,
			},
			wantOrigins: []string{"https://a.example", "https://b.example"},
			wantReqs:    20,
			wantWindow:  30 * time.Second,
			wantOff:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ChiMiddlewareConfigFromSecurity(tt.sec)
			if len(c.CORSAllowedOrigins) != len(tt.wantOrigins) {
				t.Fatalf("origins = %v, want %v", c.CORSAllowedOrigins, tt.wantOrigins)
			}
			for i := range tt.wantOrigins {
				if c.CORSAllowedOrigins[i] != tt.wantOrigins[i] {
					t.Errorf("origins[%d] = %q, want %q", i, c.CORSAllowedOrigins[i], tt.wantOrigins[i])
				}
			}
			if c.RateLimitRequests != tt.wantReqs {
				t.Errorf("RateLimitRequests = %d, want %d", c.RateLimitRequests, tt.wantReqs)
			}
			if c.RateLimitWindow != tt.wantWindow {
				t.Errorf("RateLimitWindow = %v, want %v", c.RateLimitWindow, tt.wantWindow)
			}
			if c.RateLimitDisabled != tt.wantOff {
				t.Errorf("RateLimitDisabled = %v, want %v", c.RateLimitDisabled, tt.wantOff)
			}
		})
	}
}

// =====================================================
// CORS Middleware Tests
// =====================================================

func TestChiMiddleware_CORS_DashboardOrigin(t *testing.T) {
	m := NewChiMiddleware(nil)

	handlerCalled := false
	handler := m.CORS()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/instagram/posts", nil)
	req.Header.Set("Origin", DefaultCORSOrigin)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if !handlerCalled {
		t.Error("Handler should be called")
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != DefaultCORSOrigin {
		t.Errorf("Access-Control-Allow-Origin = %q, want %s", got, DefaultCORSOrigin)
	}
	if w.Header().Get("Vary") == "" {
		t.Error("Vary header should be set for specific origins")
	}
}

func TestChiMiddleware_CORS_DisallowedOrigin(t *testing.T) {
	m := NewChiMiddleware(nil)

	handler := m.CORS()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Access-Control-Allow-Origin = %q, want empty", got)
	}
}

func TestChiMiddleware_CORS_PreflightRequest(t *testing.T) {
	m := NewChiMiddleware(nil)

	handlerCalled := false
	handler := m.CORS()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
	}))

	req := httptest.NewRequest("OPTIONS", "/api/instagram/refresh", nil)
	req.Header.Set("Origin", DefaultCORSOrigin)
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if handlerCalled {
		t.Error("Handler should not be called for preflight")
	}
	if w.Code != http.StatusOK && w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 200 or 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); got == "" {
		t.Error("Access-Control-Allow-Methods should be set")
	}
}

// =====================================================
// Rate Limiting Tests
// =====================================================

func TestChiMiddleware_RateLimit_Disabled(t *testing.T) {
	m := NewChiMiddleware(&ChiMiddlewareConfig{
		RateLimitDisabled: true,
		RateLimitRequests: 1,
		RateLimitWindow:   time.Minute,
	})

	handler := m.RateLimit()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 10; i++ {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, w.Code)
		}
	}
}

func TestChiMiddleware_RateLimit_Enabled(t *testing.T) {
	m := NewChiMiddleware(&ChiMiddlewareConfig{
		RateLimitRequests: 3,
		RateLimitWindow:   time.Minute, // long window for test stability
	})

	handler := m.RateLimit()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	hits := metrics.APIRateLimitHits.WithLabelValues("api")
	before := testutil.ToFloat64(hits)

	successCount := 0
	limitedCount := 0
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		switch w.Code {
		case http.StatusOK:
			successCount++
		case http.StatusTooManyRequests:
			limitedCount++
			if resp := decodeResponse(t, w); resp.Error == nil || resp.Error.Code != ErrCodeTooManyRequests {
				t.Errorf("429 body error = %+v", resp.Error)
			}
		}
	}

	if successCount != 3 {
		t.Errorf("successCount = %d, want 3", successCount)
	}
	if limitedCount != 2 {
		t.Errorf("limitedCount = %d, want 2", limitedCount)
	}
	if got := testutil.ToFloat64(hits) - before; got != 2 {
		t.Errorf("rate limit hits delta = %v, want 2", got)
	}
}

func TestChiMiddleware_RateLimit_DifferentIPs(t *testing.T) {
	m := NewChiMiddleware(&ChiMiddlewareConfig{
		RateLimitRequests: 2,
		RateLimitWindow:   time.Minute,
	})

	handler := m.RateLimit()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	ips := []string{"192.168.1.1:12345", "192.168.1.2:12345", "192.168.1.3:12345"}
	for _, ip := range ips {
		for i := 0; i < 2; i++ {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = ip
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Errorf("IP %s request %d: status = %d, want %d", ip, i, w.Code, http.StatusOK)
			}
		}
	}
}

func TestChiMiddleware_RateLimitRefresh(t *testing.T) {
	m := NewChiMiddleware(nil)

	handler := m.RateLimitRefresh()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	limited := 0
	for i := 0; i < RateLimitRefresh.Requests+2; i++ {
		req := httptest.NewRequest("POST", "/api/instagram/refresh", nil)
		req.RemoteAddr = "10.0.0.9:5555"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code == http.StatusTooManyRequests {
			limited++
		}
	}

	if limited != 2 {
		t.Errorf("limited = %d, want 2", limited)
	}
}

// =====================================================
// Security Headers Tests
// =====================================================

func TestAPISecurityHeaders(t *testing.T) {
	tests := []struct {
		name     string
		proto    string
		wantHSTS bool
	}{
		{"plain http", "", false},
		{"behind https proxy", "https", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := APISecurityHeaders()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

			req := httptest.NewRequest("GET", "/", nil)
			if tt.proto != "" {
				req.Header.Set("X-Forwarded-Proto", tt.proto)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Header().Get("X-Content-Type-Options") != "nosniff" {
				t.Error("X-Content-Type-Options should be nosniff")
			}
			if w.Header().Get("X-Frame-Options") != "DENY" {
				t.Error("X-Frame-Options should be DENY")
			}
			if hsts := w.Header().Get("Strict-Transport-Security") != ""; hsts != tt.wantHSTS {
				t.Errorf("HSTS set = %v, want %v", hsts, tt.wantHSTS)
			}
		})
	}
}
