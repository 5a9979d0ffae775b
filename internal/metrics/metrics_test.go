// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/tarkov/tasks", "200"))
	RecordAPIRequest("GET", "/api/tarkov/tasks", "200", 15*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/tarkov/tasks", "200"))
	if after-before != 1 {
		t.Errorf("expected counter to increase by 1, got %v", after-before)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests); got != before+1 {
		t.Errorf("active = %v, want %v", got, before+1)
	}
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != before {
		t.Errorf("active = %v, want %v", got, before)
	}
}

func TestRecordCacheStatus(t *testing.T) {
	for _, status := range []string{"HIT", "MISS", "BYPASS"} {
		before := testutil.ToFloat64(EdgeCacheRequests.WithLabelValues("test-prefix", status))
		RecordCacheStatus("test-prefix", status)
		after := testutil.ToFloat64(EdgeCacheRequests.WithLabelValues("test-prefix", status))
		if after-before != 1 {
			t.Errorf("%s: expected +1, got %v", status, after-before)
		}
	}
}

func TestRecordRepairs(t *testing.T) {
	before := testutil.ToFloat64(ProgressRepairs.WithLabelValues("failed_task"))
	RecordRepairs("failed_task", 0)
	RecordRepairs("failed_task", -2)
	RecordRepairs("failed_task", 3)
	after := testutil.ToFloat64(ProgressRepairs.WithLabelValues("failed_task"))
	if after-before != 3 {
		t.Errorf("expected +3, got %v", after-before)
	}
}

func TestRecordStoreOp(t *testing.T) {
	okBefore := testutil.ToFloat64(StoreOperations.WithLabelValues("user_progress", "get", "success"))
	errBefore := testutil.ToFloat64(StoreOperations.WithLabelValues("user_progress", "get", "error"))

	RecordStoreOp("user_progress", "get", nil)
	RecordStoreOp("user_progress", "get", errors.New("boom"))

	if got := testutil.ToFloat64(StoreOperations.WithLabelValues("user_progress", "get", "success")); got-okBefore != 1 {
		t.Errorf("success delta = %v", got-okBefore)
	}
	if got := testutil.ToFloat64(StoreOperations.WithLabelValues("user_progress", "get", "error")); got-errBefore != 1 {
		t.Errorf("error delta = %v", got-errBefore)
	}
}
