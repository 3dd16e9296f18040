package cloudwatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/dreschagin/sre-monitor/internal/domain/entity"
	"github.com/dreschagin/sre-monitor/internal/domain/valueobject"
	"github.com/dreschagin/sre-monitor/pkg/logger"
)

type fakeCloudWatch struct {
	mu       sync.Mutex
	inputs   []*cloudwatch.PutMetricDataInput
	failures int
}

func (f *fakeCloudWatch) PutMetricData(_ context.Context, params *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failures > 0 {
		f.failures--
		return nil, errors.New("throttled")
	}
	f.inputs = append(f.inputs, params)
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func (f *fakeCloudWatch) data() []types.MetricDatum {
	f.mu.Lock()
	defer f.mu.Unlock()

	var all []types.MetricDatum
	for _, in := range f.inputs {
		all = append(all, in.MetricData...)
	}
	return all
}

func testSnapshot(t *testing.T) *entity.CycleSnapshot {
	t.Helper()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var reports []*entity.MetricReport
	for _, mt := range valueobject.AllMetricTypes() {
		if mt == valueobject.Latency {
			reports = append(reports, entity.NewUnknownReport(mt, "probe failed", now))
			continue
		}
		value, err := valueobject.NewMetricValue(75.5, mt.Unit())
		if err != nil {
			t.Fatalf("NewMetricValue: %v", err)
		}
		report, err := entity.NewMetricReport(mt, valueobject.StatusWarn, value, now)
		if err != nil {
			t.Fatalf("NewMetricReport: %v", err)
		}
		reports = append(reports, report)
	}

	snapshot, err := entity.NewCycleSnapshot(now, reports)
	if err != nil {
		t.Fatalf("NewCycleSnapshot: %v", err)
	}
	return snapshot
}

func newTestPublisher(client putMetricDataAPI, bufferSize int) *MetricsPublisher {
	cfg := MetricsPublisherConfig{
		Namespace:         "Test/Namespace",
		Region:            "us-east-1",
		DefaultDimensions: map[string]string{"Host": "web-1"},
		BufferSize:        bufferSize,
		StorageResolution: 60,
	}
	return newMetricsPublisher(client, cfg, logger.New("error"))
}

func TestMapUnit(t *testing.T) {
	tests := []struct {
		name     string
		unit     string
		expected string
	}{
		{"percentage", "%", "Percent"},
		{"milliseconds", "ms", "Milliseconds"},
		{"seconds", "s", "Seconds"},
		{"count", "count", "Count"},
		{"errors", "errors", "Count"},
		{"unknown", "custom", "None"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := mapUnit(tt.unit)
			if string(result) != tt.expected {
				t.Errorf("mapUnit(%q) = %v, want %v", tt.unit, result, tt.expected)
			}
		})
	}
}

func TestPublishCycleBuffersUntilFlush(t *testing.T) {
	client := &fakeCloudWatch{}
	p := newTestPublisher(client, 100)
	snapshot := testSnapshot(t)

	if err := p.PublishCycle(context.Background(), snapshot, nil); err != nil {
		t.Fatalf("PublishCycle() error = %v", err)
	}
	if len(client.data()) != 0 {
		t.Fatal("expected data to stay buffered")
	}

	if err := p.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	data := client.data()
	// 5 known domains x2 + 1 unknown status + overall
	if len(data) != 12 {
		t.Fatalf("expected 12 datums, got %d", len(data))
	}

	counts := map[string]int{}
	for _, d := range data {
		counts[*d.MetricName]++
		if d.StorageResolution == nil || *d.StorageResolution != 60 {
			t.Errorf("StorageResolution = %v", d.StorageResolution)
		}
		if d.Dimensions[0].Name == nil || *d.Dimensions[0].Name != "Host" {
			t.Errorf("missing default dimension on %s", *d.MetricName)
		}
	}
	if counts[MetricDomainValue] != 5 || counts[MetricDomainStatus] != 6 || counts[MetricOverallStatus] != 1 {
		t.Errorf("unexpected metric mix: %v", counts)
	}

	last := data[len(data)-1]
	if *last.MetricName != MetricOverallStatus || *last.Value != 1 {
		t.Errorf("overall datum = %s %v, want WARN severity 1", *last.MetricName, *last.Value)
	}
}

func TestPublishCycleDegradedAnalysis(t *testing.T) {
	client := &fakeCloudWatch{}
	p := newTestPublisher(client, 100)
	analysis := entity.NewAnalysis(entity.AnalysisParams{OverallStatus: valueobject.StatusWarn, Degraded: true})

	if err := p.PublishCycle(context.Background(), testSnapshot(t), analysis); err != nil {
		t.Fatalf("PublishCycle() error = %v", err)
	}
	if err := p.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	found := false
	for _, d := range client.data() {
		if *d.MetricName == MetricDegradedAnalysis {
			found = true
		}
	}
	if !found {
		t.Error("expected DegradedAnalysis datum")
	}
}

func TestPublishCycleAutoFlushAndRetry(t *testing.T) {
	client := &fakeCloudWatch{failures: 1}
	p := newTestPublisher(client, 4)

	if err := p.PublishCycle(context.Background(), testSnapshot(t), nil); err != nil {
		t.Fatalf("PublishCycle() error = %v", err)
	}

	if got := len(client.data()); got != 12 {
		t.Errorf("expected 12 auto-flushed datums, got %d", got)
	}
}

func TestPublishCycleNilSnapshot(t *testing.T) {
	p := newTestPublisher(&fakeCloudWatch{}, 10)
	if err := p.PublishCycle(context.Background(), nil, nil); err == nil {
		t.Error("expected error for nil snapshot")
	}
}

func TestMetricsConfigNormalize(t *testing.T) {
	tests := []struct {
		name      string
		config    MetricsPublisherConfig
		expectErr bool
	}{
		{"valid config", MetricsPublisherConfig{Namespace: "Test", Region: "us-east-1"}, false},
		{"missing namespace", MetricsPublisherConfig{Region: "us-east-1"}, true},
		{"missing region", MetricsPublisherConfig{Namespace: "Test"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.config
			err := cfg.normalize()
			if (err != nil) != tt.expectErr {
				t.Fatalf("normalize() error = %v, expectErr %v", err, tt.expectErr)
			}
		})
	}

	cfg := MetricsPublisherConfig{Namespace: "Test", Region: "us-east-1", StorageResolution: 30}
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize() error = %v", err)
	}
	if cfg.StorageResolution != 60 || cfg.BufferSize != 100 || cfg.FlushInterval != 10*time.Second {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}
