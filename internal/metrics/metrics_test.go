// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordCycle(t *testing.T) {
	cleanBefore := testutil.ToFloat64(CyclesTotal.WithLabelValues("clean"))
	degradedBefore := testutil.ToFloat64(CyclesTotal.WithLabelValues("degraded"))

	RecordCycle(2*time.Second, 0)
	RecordCycle(time.Second, 2)

	if got := testutil.ToFloat64(CyclesTotal.WithLabelValues("clean")) - cleanBefore; got != 1 {
		t.Errorf("clean cycles delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(CyclesTotal.WithLabelValues("degraded")) - degradedBefore; got != 1 {
		t.Errorf("degraded cycles delta = %v, want 1", got)
	}
	if testutil.ToFloat64(CycleLastSuccess) == 0 {
		t.Error("last success timestamp not set after a clean cycle")
	}
}

func TestRecordCategoryError(t *testing.T) {
	tests := []struct {
		category  string
		errorType string
	}{
		{"posts", "transport"},
		{"account-kpis", "persistence"},
		{"latest-story", "panic"},
	}
	for _, tt := range tests {
		t.Run(tt.category+"/"+tt.errorType, func(t *testing.T) {
			before := testutil.ToFloat64(CategoryErrors.WithLabelValues(tt.category, tt.errorType))
			RecordCategoryError(tt.category, tt.errorType)
			after := testutil.ToFloat64(CategoryErrors.WithLabelValues(tt.category, tt.errorType))
			if after-before != 1 {
				t.Errorf("delta = %v, want 1", after-before)
			}
		})
	}
}

func TestRecordStoreOperation(t *testing.T) {
	before := testutil.ToFloat64(StoreOperationErrors.WithLabelValues("memory", "upsert_post"))
	RecordStoreOperation("memory", "upsert_post", time.Millisecond, nil)
	RecordStoreOperation("memory", "upsert_post", time.Millisecond, errors.New("disk full"))

	if got := testutil.ToFloat64(StoreOperationErrors.WithLabelValues("memory", "upsert_post")) - before; got != 1 {
		t.Errorf("error delta = %v, want 1", got)
	}
}

func TestRecordTokenRefresh(t *testing.T) {
	RecordTokenRefresh("exchange_error")
	if testutil.ToFloat64(TokenRefreshes.WithLabelValues("exchange_error")) < 1 {
		t.Error("exchange_error not counted")
	}
	RecordTokenRefresh("success")
	if testutil.ToFloat64(TokenLastRefresh) == 0 {
		t.Error("last refresh timestamp not set")
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	TrackActiveRequest(true)
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests) - before; got != 1 {
		t.Errorf("active requests delta = %v, want 1", got)
	}
	TrackActiveRequest(false)
}

func TestConcurrentMetricRecording(t *testing.T) {
	before := testutil.ToFloat64(RecordsUpserted.WithLabelValues("post"))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			RecordsUpserted.WithLabelValues("post").Inc()
			RecordAPIRequest("GET", "/api/instagram/posts", "200", time.Millisecond)
		}()
	}
	wg.Wait()

	if got := testutil.ToFloat64(RecordsUpserted.WithLabelValues("post")) - before; got != 50 {
		t.Errorf("upsert delta = %v, want 50", got)
	}
}
