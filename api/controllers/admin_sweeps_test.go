package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kalamandir/kalamandir-backend/internal/sweep"
)

type fakeOrphanSweeper struct {
	limit      int
	maxRetries int
	stats      sweep.OrphanStats
	err        error
}

func (f *fakeOrphanSweeper) Sweep(ctx context.Context, limit, maxRetries int) (sweep.OrphanStats, error) {
	f.limit = limit
	f.maxRetries = maxRetries
	return f.stats, f.err
}

type fakeTimeoutSweeper struct {
	timeout time.Duration
	limit   int
	stats   sweep.TimeoutStats
	err     error
}

func (f *fakeTimeoutSweeper) Sweep(ctx context.Context, timeout time.Duration, limit int) (sweep.TimeoutStats, error) {
	f.timeout = timeout
	f.limit = limit
	return f.stats, f.err
}

func TestAdminSweepOrphansPassesParams(t *testing.T) {
	sweeper := &fakeOrphanSweeper{stats: sweep.OrphanStats{Processed: 2, NotFound: 1}}
	handler := AdminSweepOrphans(sweeper, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/sweeps/orphans?limit=10&maxRetries=5", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if sweeper.limit != 10 || sweeper.maxRetries != 5 {
		t.Fatalf("params not passed: limit=%d maxRetries=%d", sweeper.limit, sweeper.maxRetries)
	}
	var envelope struct {
		Data sweep.OrphanStats `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Processed != 2 || envelope.Data.NotFound != 1 {
		t.Fatalf("unexpected stats %+v", envelope.Data)
	}
}

func TestAdminSweepOrphansDefaultsWhenUnset(t *testing.T) {
	sweeper := &fakeOrphanSweeper{}
	handler := AdminSweepOrphans(sweeper, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/sweeps/orphans", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	// Zero values let the sweeper fall back to its configured defaults.
	if sweeper.limit != 0 || sweeper.maxRetries != 0 {
		t.Fatalf("expected zero params, got limit=%d maxRetries=%d", sweeper.limit, sweeper.maxRetries)
	}
}

func TestAdminSweepOrphansRejectsBadLimit(t *testing.T) {
	handler := AdminSweepOrphans(&fakeOrphanSweeper{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/sweeps/orphans?limit=abc", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAdminSweepTimeoutsPassesParams(t *testing.T) {
	sweeper := &fakeTimeoutSweeper{stats: sweep.TimeoutStats{Cancelled: 3, Skipped: 1}}
	handler := AdminSweepTimeouts(sweeper, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/sweeps/timeouts?limit=50&timeoutMinutes=45", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if sweeper.limit != 50 || sweeper.timeout != 45*time.Minute {
		t.Fatalf("params not passed: limit=%d timeout=%s", sweeper.limit, sweeper.timeout)
	}
}
