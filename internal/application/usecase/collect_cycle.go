package usecase

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dreschagin/sre-monitor/internal/application/port"
	"github.com/dreschagin/sre-monitor/internal/domain/entity"
	"github.com/dreschagin/sre-monitor/internal/domain/service"
	"github.com/dreschagin/sre-monitor/internal/domain/valueobject"
	"github.com/dreschagin/sre-monitor/pkg/logger"
)

// probePause пауза между попытками latency пробы
const probePause = 100 * time.Millisecond

// CollectCycleConfig параметры сбора одного цикла
type CollectCycleConfig struct {
	Probe         port.LatencyProbeConfig
	DomainTimeout time.Duration
}

// CollectCycleUseCase параллельно опрашивает шесть доменов и собирает snapshot
type CollectCycleUseCase struct {
	provider   port.MetricsProvider
	prober     port.LatencyProber
	classifier *service.Classifier
	aggregator *service.SnapshotAggregator
	metrics    port.PipelineMetrics
	config     CollectCycleConfig
	logger     *logger.Logger
	now        func() time.Time
}

// NewCollectCycleUseCase создает новый use case
func NewCollectCycleUseCase(
	provider port.MetricsProvider,
	prober port.LatencyProber,
	classifier *service.Classifier,
	aggregator *service.SnapshotAggregator,
	metrics port.PipelineMetrics,
	config CollectCycleConfig,
	logger *logger.Logger,
) *CollectCycleUseCase {
	if config.DomainTimeout <= 0 {
		config.DomainTimeout = 15 * time.Second
	}

	return &CollectCycleUseCase{
		provider:   provider,
		prober:     prober,
		classifier: classifier,
		aggregator: aggregator,
		metrics:    metrics,
		config:     config,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Execute запускает все домены одновременно и ждет завершения каждого.
// Сбой или таймаут домена превращается в UNKNOWN отчет.
// Ошибка возвращается только при отмене родительского контекста.
func (uc *CollectCycleUseCase) Execute(ctx context.Context) (*entity.CycleSnapshot, error) {
	startedAt := uc.now()
	domains := valueobject.AllMetricTypes()
	reports := make([]*entity.MetricReport, len(domains))

	g, gctx := errgroup.WithContext(ctx)
	for i, metricType := range domains {
		g.Go(func() error {
			reports[i] = uc.collect(gctx, metricType)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("cycle canceled: %w", err)
	}

	snapshot, err := uc.aggregator.Aggregate(startedAt, reports)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate snapshot: %w", err)
	}

	uc.logger.Debug("Cycle collected",
		"cycle_id", snapshot.ID(),
		"overall_status", snapshot.OverallStatus(),
		"unknown_domains", len(snapshot.UnknownDomains()),
		"duration", uc.now().Sub(startedAt).String(),
	)

	return snapshot, nil
}

type collectOutcome struct {
	report *entity.MetricReport
	err    error
}

// collect ограничивает домен собственным таймаутом.
// Провайдер, игнорирующий контекст, не задерживает цикл дольше таймаута.
func (uc *CollectCycleUseCase) collect(ctx context.Context, metricType valueobject.MetricType) *entity.MetricReport {
	taskCtx, cancel := context.WithTimeout(ctx, uc.timeoutFor(metricType))
	defer cancel()

	done := make(chan collectOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- collectOutcome{err: fmt.Errorf("provider panicked: %v", r)}
			}
		}()
		report, err := uc.read(taskCtx, metricType)
		done <- collectOutcome{report: report, err: err}
	}()

	var outcome collectOutcome
	select {
	case outcome = <-done:
	case <-taskCtx.Done():
		outcome = collectOutcome{err: fmt.Errorf("%s probe timed out: %w", metricType, taskCtx.Err())}
	}

	if outcome.err != nil {
		uc.logger.Warn("Metric probe failed", "type", metricType, "error", outcome.err.Error())
		uc.observeFailure(metricType)
		return uc.classifier.Unknown(metricType, outcome.err.Error(), uc.now())
	}

	if outcome.report.IsUnknown() {
		uc.logger.Warn("Metric reading rejected", "type", metricType, "reason", outcome.report.Reason())
		uc.observeFailure(metricType)
	}

	return outcome.report
}

func (uc *CollectCycleUseCase) read(ctx context.Context, metricType valueobject.MetricType) (*entity.MetricReport, error) {
	switch metricType {
	case valueobject.Disk:
		reading, err := uc.provider.CollectDisk(ctx)
		if err != nil {
			return nil, err
		}
		return uc.classifier.ClassifyDisk(reading, uc.now()), nil
	case valueobject.Memory:
		reading, err := uc.provider.CollectMemory(ctx)
		if err != nil {
			return nil, err
		}
		return uc.classifier.ClassifyMemory(reading, uc.now()), nil
	case valueobject.CPU:
		reading, err := uc.provider.CollectCPU(ctx)
		if err != nil {
			return nil, err
		}
		return uc.classifier.ClassifyCPU(reading, uc.now()), nil
	case valueobject.Network:
		reading, err := uc.provider.CollectNetwork(ctx)
		if err != nil {
			return nil, err
		}
		return uc.classifier.ClassifyNetwork(reading, uc.now()), nil
	case valueobject.Processes:
		reading, err := uc.provider.CollectProcesses(ctx)
		if err != nil {
			return nil, err
		}
		return uc.classifier.ClassifyProcesses(reading, uc.now()), nil
	case valueobject.Latency:
		sample, err := uc.prober.Probe(ctx, uc.config.Probe)
		if err != nil {
			return nil, err
		}
		return uc.classifier.ClassifyLatency(sample, uc.now()), nil
	default:
		return nil, fmt.Errorf("unsupported metric type: %s", metricType)
	}
}

// timeoutFor для latency учитывает все попытки и паузы между ними
func (uc *CollectCycleUseCase) timeoutFor(metricType valueobject.MetricType) time.Duration {
	if metricType != valueobject.Latency {
		return uc.config.DomainTimeout
	}

	attempts := time.Duration(uc.config.Probe.Attempts)
	return attempts*(uc.config.Probe.Timeout+probePause) + time.Second
}

func (uc *CollectCycleUseCase) observeFailure(metricType valueobject.MetricType) {
	if uc.metrics != nil {
		uc.metrics.ObserveProbeFailure(metricType.String())
	}
}
