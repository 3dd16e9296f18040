package port

import (
	"context"

	"github.com/dreschagin/sre-monitor/internal/domain/entity"
)

// MetricsPublisher defines the interface for publishing cycle results to external observability platforms.
type MetricsPublisher interface {
	// PublishCycle buffers one datum per domain report plus the overall status.
	PublishCycle(ctx context.Context, snapshot *entity.CycleSnapshot, analysis *entity.Analysis) error

	// Flush forces immediate publication of any buffered metrics.
	// Should be called during graceful shutdown to prevent data loss.
	Flush(ctx context.Context) error
}

// PipelineMetrics records in-process pipeline measurements (Prometheus).
type PipelineMetrics interface {
	ObserveCycle(snapshot *entity.CycleSnapshot, analysis *entity.Analysis, durationSeconds float64)
	ObserveProbeFailure(domain string)
	ObserveNotification(channel string, sent bool)
}
