package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/dreschagin/sre-monitor/internal/application/dto"
	"github.com/dreschagin/sre-monitor/internal/application/port"
	"github.com/dreschagin/sre-monitor/internal/domain/entity"
	"github.com/dreschagin/sre-monitor/internal/domain/repository"
	"github.com/dreschagin/sre-monitor/internal/domain/service"
	"github.com/dreschagin/sre-monitor/internal/domain/valueobject"
	"github.com/dreschagin/sre-monitor/pkg/logger"
)

type mockProvider struct {
	disk      valueobject.DiskReading
	memory    valueobject.MemoryReading
	cpu       valueobject.CPUReading
	network   valueobject.NetworkReading
	processes valueobject.ProcessReading

	errs  map[valueobject.MetricType]error
	block map[valueobject.MetricType]bool
}

func healthyProvider() *mockProvider {
	return &mockProvider{
		disk: valueobject.DiskReading{Mounts: []valueobject.MountUsage{
			{Mountpoint: "/", TotalBytes: 100, UsedBytes: 40, FreeBytes: 60, UsedPercent: 40},
		}},
		memory:    valueobject.MemoryReading{TotalBytes: 100, UsedBytes: 50, AvailableBytes: 50},
		cpu:       valueobject.CPUReading{UsagePercent: 20, Cores: 4},
		processes: valueobject.ProcessReading{Total: 120},
		errs:      map[valueobject.MetricType]error{},
		block:     map[valueobject.MetricType]bool{},
	}
}

func (m *mockProvider) wait(ctx context.Context, metricType valueobject.MetricType) error {
	if m.block[metricType] {
		<-ctx.Done()
		return ctx.Err()
	}
	return m.errs[metricType]
}

func (m *mockProvider) CollectDisk(ctx context.Context) (valueobject.DiskReading, error) {
	return m.disk, m.wait(ctx, valueobject.Disk)
}

func (m *mockProvider) CollectMemory(ctx context.Context) (valueobject.MemoryReading, error) {
	return m.memory, m.wait(ctx, valueobject.Memory)
}

func (m *mockProvider) CollectCPU(ctx context.Context) (valueobject.CPUReading, error) {
	return m.cpu, m.wait(ctx, valueobject.CPU)
}

func (m *mockProvider) CollectNetwork(ctx context.Context) (valueobject.NetworkReading, error) {
	return m.network, m.wait(ctx, valueobject.Network)
}

func (m *mockProvider) CollectProcesses(ctx context.Context) (valueobject.ProcessReading, error) {
	return m.processes, m.wait(ctx, valueobject.Processes)
}

type mockProber struct {
	sample valueobject.LatencySample
	err    error
}

func healthyProber() *mockProber {
	return &mockProber{sample: valueobject.LatencySample{
		URL: "https://example.com", Attempts: 5, TimeoutMs: 10000, SuccessCount: 5,
		Samples: []float64{100, 110, 120, 130, 140},
	}}
}

func (m *mockProber) Probe(_ context.Context, _ port.LatencyProbeConfig) (valueobject.LatencySample, error) {
	return m.sample, m.err
}

type mockPipelineMetrics struct {
	mu            sync.Mutex
	cycles        int
	probeFailures []string
	notifications map[string]bool
}

func (m *mockPipelineMetrics) ObserveCycle(_ *entity.CycleSnapshot, _ *entity.Analysis, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cycles++
}

func (m *mockPipelineMetrics) ObserveProbeFailure(domain string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probeFailures = append(m.probeFailures, domain)
}

func (m *mockPipelineMetrics) ObserveNotification(channel string, sent bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.notifications == nil {
		m.notifications = map[string]bool{}
	}
	m.notifications[channel] = sent
}

type mockSink struct {
	name    string
	err     error
	intents []port.NotificationIntent
}

func (m *mockSink) Name() string { return m.name }

func (m *mockSink) Notify(_ context.Context, intent port.NotificationIntent) error {
	m.intents = append(m.intents, intent)
	return m.err
}

// mockCache хранит JSON, как Redis
type mockCache struct {
	mu      sync.Mutex
	items   map[string][]byte
	deleted []string
}

func newMockCache() *mockCache {
	return &mockCache{items: map[string][]byte{}}
}

func (m *mockCache) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.items[key]
	if !ok {
		return port.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *mockCache) Set(_ context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = raw
	return nil
}

func (m *mockCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

func (m *mockCache) DeletePattern(_ context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.items {
		if strings.HasPrefix(key, prefix) {
			delete(m.items, key)
		}
	}
	return nil
}

func (m *mockCache) Close() error { return nil }

type mockCycleRepository struct {
	records   []repository.CycleRecord
	saveErr   error
	findCalls int
	deleted   int
}

func (m *mockCycleRepository) Save(_ context.Context, record repository.CycleRecord) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.records = append(m.records, record)
	return nil
}

func (m *mockCycleRepository) FindByID(_ context.Context, id string) (*repository.CycleRecord, error) {
	for i := range m.records {
		if m.records[i].Snapshot.ID() == id {
			return &m.records[i], nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockCycleRepository) FindLatest(_ context.Context) (*repository.CycleRecord, error) {
	m.findCalls++
	if len(m.records) == 0 {
		return nil, repository.ErrNotFound
	}
	return &m.records[len(m.records)-1], nil
}

func (m *mockCycleRepository) FindByTimeRange(_ context.Context, tr valueobject.TimeRange, limit int) ([]*repository.CycleRecord, error) {
	m.findCalls++
	result := make([]*repository.CycleRecord, 0)
	for i := len(m.records) - 1; i >= 0 && len(result) < limit; i-- {
		if tr.Contains(m.records[i].Snapshot.Timestamp()) {
			result = append(result, &m.records[i])
		}
	}
	return result, nil
}

func (m *mockCycleRepository) DeleteOlderThan(_ context.Context, tr valueobject.TimeRange) (int64, error) {
	kept := m.records[:0]
	var deleted int64
	for _, record := range m.records {
		if record.Snapshot.Timestamp().Before(tr.Start()) {
			deleted++
			continue
		}
		kept = append(kept, record)
	}
	m.records = kept
	m.deleted += int(deleted)
	return deleted, nil
}

type publishedEvent struct {
	subject string
	event   interface{}
}

type mockEventPublisher struct {
	events []publishedEvent
	err    error
}

func (m *mockEventPublisher) PublishEvent(_ context.Context, subject string, event interface{}) error {
	m.events = append(m.events, publishedEvent{subject: subject, event: event})
	return m.err
}

func (m *mockEventPublisher) Close() error { return nil }

func (m *mockEventPublisher) subjects() []string {
	subjects := make([]string, len(m.events))
	for i, e := range m.events {
		subjects[i] = e.subject
	}
	return subjects
}

type putCall struct {
	key         string
	contentType string
	body        []byte
}

type mockReportStorage struct {
	calls  []putCall
	putErr error
}

func (m *mockReportStorage) PutObject(_ context.Context, key, contentType string, body []byte) (string, error) {
	m.calls = append(m.calls, putCall{key: key, contentType: contentType, body: body})
	if m.putErr != nil {
		return "", m.putErr
	}
	return "https://example.com/" + key, nil
}

func (m *mockReportStorage) GetObjectURL(_ context.Context, key string) (string, error) {
	return "https://example.com/fresh/" + key, nil
}

type mockReportIndex struct {
	records []port.ReportMetadata
	putErr  error
	listErr error
	queries []port.ReportListQuery
	next    string
}

func (m *mockReportIndex) Put(_ context.Context, record port.ReportMetadata) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.records = append(m.records, record)
	return nil
}

func (m *mockReportIndex) List(_ context.Context, query port.ReportListQuery) (port.ReportListPage, error) {
	m.queries = append(m.queries, query)
	if m.listErr != nil {
		return port.ReportListPage{}, m.listErr
	}
	return port.ReportListPage{Items: append([]port.ReportMetadata{}, m.records...), NextCursor: m.next}, nil
}

type mockLiveFeed struct {
	broadcasts int
}

func (m *mockLiveFeed) BroadcastCycle(_ *dto.CycleReportDTO) { m.broadcasts++ }

func (m *mockLiveFeed) ClientCount() int { return 0 }

var errBoom = errors.New("boom")

func testLogger() *logger.Logger {
	return logger.New("error")
}

func newTestCollector(provider *mockProvider, prober *mockProber, metrics port.PipelineMetrics, domainTimeout time.Duration) *CollectCycleUseCase {
	aggregator := service.NewSampleAggregator()
	classifier := service.NewClassifier(service.DefaultThresholds(), aggregator, service.NewMetricValidator())
	return NewCollectCycleUseCase(
		provider,
		prober,
		classifier,
		service.NewSnapshotAggregator(),
		metrics,
		CollectCycleConfig{
			Probe:         port.LatencyProbeConfig{URL: "https://example.com", Attempts: 1, Timeout: 100 * time.Millisecond},
			DomainTimeout: domainTimeout,
		},
		testLogger(),
	)
}
