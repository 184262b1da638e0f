// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func serveCompressed(t *testing.T, acceptGzip bool, handler http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/instagram/posts", nil)
	if acceptGzip {
		req.Header.Set("Accept-Encoding", "gzip, deflate")
	}
	rec := httptest.NewRecorder()
	Compression(handler)(rec, req)
	return rec
}

func TestCompression_LargeBody(t *testing.T) {
	t.Parallel()

	body := strings.Repeat(`{"postId":"1"},`, 200)
	rec := serveCompressed(t, true, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		// Written in small chunks to cross the threshold mid-stream.
		for i := 0; i < len(body); i += 100 {
			end := i + 100
			if end > len(body) {
				end = len(body)
			}
			_, _ = w.Write([]byte(body[i:end]))
		}
	})

	if rec.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("Content-Encoding = %q, want gzip", rec.Header().Get("Content-Encoding"))
	}
	if rec.Header().Get("Vary") != "Accept-Encoding" {
		t.Errorf("Vary = %q", rec.Header().Get("Vary"))
	}

	reader, err := gzip.NewReader(rec.Body)
	if err != nil {
		t.Fatalf("gzip.NewReader: %v", err)
	}
	defer reader.Close()
	decompressed, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(decompressed) != body {
		t.Error("decompressed body differs from original")
	}
}

func TestCompression_SmallBodyUncompressed(t *testing.T) {
	t.Parallel()

	rec := serveCompressed(t, true, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success":false}`))
	})

	if rec.Header().Get("Content-Encoding") != "" {
		t.Errorf("small body should not be compressed")
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if rec.Body.String() != `{"success":false}` {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestCompression_NoContent(t *testing.T) {
	t.Parallel()

	rec := serveCompressed(t, true, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", rec.Body.String())
	}
}

func TestCompression_ClientWithoutGzip(t *testing.T) {
	t.Parallel()

	body := strings.Repeat("x", 4*CompressMinBytes)
	rec := serveCompressed(t, false, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	})

	if rec.Header().Get("Content-Encoding") != "" {
		t.Error("response should not be compressed")
	}
	if rec.Body.String() != body {
		t.Error("body altered")
	}
}

func TestCompression_WebSocketPassthrough(t *testing.T) {
	t.Parallel()

	var wrapped bool
	handler := Compression(func(w http.ResponseWriter, r *http.Request) {
		_, wrapped = w.(*gzipResponseWriter)
	})

	req := httptest.NewRequest(http.MethodGet, "/ws/kpi", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("Upgrade", "websocket")
	handler(httptest.NewRecorder(), req)

	if wrapped {
		t.Error("websocket upgrade must receive the original writer")
	}
}
