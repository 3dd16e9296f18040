package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dreschagin/sre-monitor/internal/application/port"
)

func TestHTTPLatencyProber_Success(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Method != http.MethodHead {
			t.Errorf("method = %s, want HEAD", r.Method)
		}
		if ua := r.Header.Get("User-Agent"); ua != probeUserAgent {
			t.Errorf("user agent = %q", ua)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	prober := NewHTTPLatencyProber(server.Client())
	sample, err := prober.Probe(context.Background(), port.LatencyProbeConfig{
		URL: server.URL, Attempts: 3, Timeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}

	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
	if len(sample.Samples) != 3 || sample.SuccessCount != 3 {
		t.Errorf("samples = %v, success = %d", sample.Samples, sample.SuccessCount)
	}
	if len(sample.Errors) != 0 {
		t.Errorf("unexpected errors: %v", sample.Errors)
	}
	for _, ms := range sample.Samples {
		if ms >= sample.TimeoutMs {
			t.Errorf("sample %v should be below timeout", ms)
		}
	}
}

func TestHTTPLatencyProber_HTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	prober := NewHTTPLatencyProber(server.Client())
	sample, err := prober.Probe(context.Background(), port.LatencyProbeConfig{
		URL: server.URL, Attempts: 2, Timeout: time.Second,
	})
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}

	want := []string{"Attempt 1: HTTP 503: Service Unavailable", "Attempt 2: HTTP 503: Service Unavailable"}
	if len(sample.Errors) != len(want) {
		t.Fatalf("errors = %v, want %v", sample.Errors, want)
	}
	for i := range want {
		if sample.Errors[i] != want[i] {
			t.Errorf("errors[%d] = %q, want %q", i, sample.Errors[i], want[i])
		}
	}
	if sample.SuccessCount != 0 {
		t.Errorf("success = %d, want 0", sample.SuccessCount)
	}
	for _, ms := range sample.Samples {
		if ms != 1000 {
			t.Errorf("failed attempt sample = %v, want timeout 1000", ms)
		}
	}
}

func TestHTTPLatencyProber_TimeoutRecordsNoError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	prober := NewHTTPLatencyProber(server.Client())
	sample, err := prober.Probe(context.Background(), port.LatencyProbeConfig{
		URL: server.URL, Attempts: 2, Timeout: 100 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}

	if len(sample.Errors) != 0 {
		t.Errorf("timeouts must not be recorded as errors: %v", sample.Errors)
	}
	if sample.SuccessCount != 0 {
		t.Errorf("success = %d, want 0", sample.SuccessCount)
	}
	if len(sample.Samples) != 2 || sample.Samples[0] != 100 || sample.Samples[1] != 100 {
		t.Errorf("samples = %v, want [100 100]", sample.Samples)
	}
}

func TestHTTPLatencyProber_CanceledContextFillsSamples(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	prober := NewHTTPLatencyProber(server.Client())
	sample, err := prober.Probe(ctx, port.LatencyProbeConfig{
		URL: server.URL, Attempts: 4, Timeout: 500 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}

	if len(sample.Samples) != 4 {
		t.Fatalf("samples = %v, want 4 entries", sample.Samples)
	}
	for _, ms := range sample.Samples {
		if ms != 500 {
			t.Errorf("sample = %v, want 500", ms)
		}
	}
}

func TestHTTPLatencyProber_InvalidConfig(t *testing.T) {
	prober := NewHTTPLatencyProber(nil)

	tests := []struct {
		name string
		cfg  port.LatencyProbeConfig
	}{
		{"relative url", port.LatencyProbeConfig{URL: "/health", Attempts: 1, Timeout: time.Second}},
		{"ftp scheme", port.LatencyProbeConfig{URL: "ftp://example.com", Attempts: 1, Timeout: time.Second}},
		{"zero attempts", port.LatencyProbeConfig{URL: "https://example.com", Attempts: 0, Timeout: time.Second}},
		{"too many attempts", port.LatencyProbeConfig{URL: "https://example.com", Attempts: 21, Timeout: time.Second}},
		{"short timeout", port.LatencyProbeConfig{URL: "https://example.com", Attempts: 1, Timeout: 50 * time.Millisecond}},
		{"long timeout", port.LatencyProbeConfig{URL: "https://example.com", Attempts: 1, Timeout: time.Minute + time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := prober.Probe(context.Background(), tt.cfg)
			if !errors.Is(err, port.ErrInvalidProbeConfig) {
				t.Fatalf("expected ErrInvalidProbeConfig, got %v", err)
			}
		})
	}
}
