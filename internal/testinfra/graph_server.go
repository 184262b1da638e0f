// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package testinfra

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
)

// GraphAPIVersion is the version segment the fake server strips from paths.
const GraphAPIVersion = "v21.0"

// GraphRequest is a captured request to the fake Graph API.
type GraphRequest struct {
	Method string
	Path   string // without the version prefix
	Query  url.Values
}

// GraphHandlerFunc computes a response from the captured request.
type GraphHandlerFunc func(r GraphRequest) (status int, body string)

// GraphServer is a fake Instagram Graph API. Responses are registered per
// path; unregistered paths answer with a Graph error object and 404.
type GraphServer struct {
	Server *httptest.Server

	mu       sync.Mutex
	routes   map[string]GraphHandlerFunc
	requests []GraphRequest
}

// NewGraphServer starts a fake Graph API that is closed when the test ends.
func NewGraphServer(t *testing.T) *GraphServer {
	t.Helper()

	g := &GraphServer{routes: make(map[string]GraphHandlerFunc)}
	g.Server = httptest.NewServer(http.HandlerFunc(g.serve))
	t.Cleanup(g.Server.Close)
	return g
}

func (g *GraphServer) serve(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/"+GraphAPIVersion)

	req := GraphRequest{
		Method: r.Method,
		Path:   path,
		Query:  r.URL.Query(),
	}

	g.mu.Lock()
	g.requests = append(g.requests, req)
	route, ok := g.routes[path]
	g.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, `{"error":{"message":"unknown path %s","type":"GraphMethodException","code":100}}`, path)
		return
	}
	status, body := route(req)
	w.WriteHeader(status)
	fmt.Fprint(w, body)
}

// URL returns the base URL to put in config.GraphConfig.BaseURL.
func (g *GraphServer) URL() string {
	return g.Server.URL
}

// Handle answers path with 200 and body.
func (g *GraphServer) Handle(path, body string) {
	g.HandleStatus(path, http.StatusOK, body)
}

// HandleStatus answers path with status and body.
func (g *GraphServer) HandleStatus(path string, status int, body string) {
	g.HandleFunc(path, func(GraphRequest) (int, string) { return status, body })
}

// HandleFunc answers path with fn. Use it when one path serves several
// queries, e.g. /{account}/insights for different metrics.
func (g *GraphServer) HandleFunc(path string, fn GraphHandlerFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.routes[path] = fn
}

// Fail answers path with a non-retryable Graph error.
func (g *GraphServer) Fail(path, message string) {
	g.HandleStatus(path, http.StatusBadRequest,
		fmt.Sprintf(`{"error":{"message":%q,"type":"OAuthException","code":190}}`, message))
}

// Requests returns every captured request in arrival order.
func (g *GraphServer) Requests() []GraphRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]GraphRequest, len(g.requests))
	copy(out, g.requests)
	return out
}

// Count returns how many requests hit path.
func (g *GraphServer) Count(path string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, r := range g.requests {
		if r.Path == path {
			n++
		}
	}
	return n
}
