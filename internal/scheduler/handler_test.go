package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dreschagin/sre-monitor/internal/application/dto"
)

func newTestMux(r *Runner) *http.ServeMux {
	mux := http.NewServeMux()
	NewHandler(r).Register(mux, nil)
	return mux
}

func TestReadyz(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("not ready before first cycle", func(t *testing.T) {
		r := newTestRunner(&fakeCycle{}, now)
		rec := httptest.NewRecorder()
		newTestMux(r).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", rec.Code)
		}
	})

	t.Run("ready after cycle", func(t *testing.T) {
		r := newTestRunner(&fakeCycle{}, now)
		if _, err := r.RunOnce(context.Background()); err != nil {
			t.Fatalf("RunOnce() error = %v", err)
		}
		rec := httptest.NewRecorder()
		newTestMux(r).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("stale cycle", func(t *testing.T) {
		r := newTestRunner(&fakeCycle{}, now)
		if _, err := r.RunOnce(context.Background()); err != nil {
			t.Fatalf("RunOnce() error = %v", err)
		}
		r.now = func() time.Time { return now.Add(4 * time.Hour) }

		rec := httptest.NewRecorder()
		newTestMux(r).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", rec.Code)
		}
	})

	t.Run("failed cycle", func(t *testing.T) {
		r := newTestRunner(&fakeCycle{err: errors.New("boom")}, now)
		_, _ = r.RunOnce(context.Background())

		rec := httptest.NewRecorder()
		newTestMux(r).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", rec.Code)
		}
	})
}

func TestRunNow(t *testing.T) {
	r := newTestRunner(&fakeCycle{}, time.Now())
	mux := newTestMux(r)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/scheduler/run", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d, want 405", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/scheduler/run", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("POST status = %d, want 200", rec.Code)
	}

	var result dto.WorkflowResultDTO
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Status != "success" {
		t.Errorf("result status = %q", result.Status)
	}
}

func TestRunNowConflict(t *testing.T) {
	cycle := &fakeCycle{started: make(chan struct{}, 1), release: make(chan struct{})}
	r := newTestRunner(cycle, time.Now())
	mux := newTestMux(r)

	go func() { _, _ = r.RunOnce(context.Background()) }()
	<-cycle.started
	defer close(cycle.release)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/scheduler/run", nil))
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestStatus(t *testing.T) {
	r := newTestRunner(&fakeCycle{}, time.Now())
	if _, err := r.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	rec := httptest.NewRecorder()
	newTestMux(r).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/scheduler/status", nil))

	var snapshot Snapshot
	if err := json.NewDecoder(rec.Body).Decode(&snapshot); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snapshot.State != StateWaiting || snapshot.CycleCount != 1 || snapshot.LastResult == nil {
		t.Errorf("unexpected snapshot: %+v", snapshot)
	}
}

func TestRunNowSurvivesClientDisconnect(t *testing.T) {
	cycle := &fakeCycle{started: make(chan struct{}, 1), release: make(chan struct{})}
	r := newTestRunner(cycle, time.Now())
	mux := newTestMux(r)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scheduler/run", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		mux.ServeHTTP(rec, req)
		close(done)
	}()

	<-cycle.started
	cancel()
	close(cycle.release)
	<-done

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if snapshot := r.Snapshot(); snapshot.CycleCount != 1 || snapshot.LastError != "" {
		t.Errorf("cycle aborted by disconnect: %+v", snapshot)
	}
}
