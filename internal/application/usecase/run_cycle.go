package usecase

import (
	"context"
	"fmt"
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

// Ключи кеша
const (
	CacheKeyCurrentAnalysis = "sremon:analysis:current"
	cacheKeyHistoryPrefix   = "sremon:cycles:"
)

// RunCycleOption подключает необязательные побочные эффекты цикла
type RunCycleOption func(*RunCycleUseCase)

// WithCycleRepository сохраняет историю циклов; retention > 0 включает очистку
func WithCycleRepository(repo repository.CycleRepository, retention time.Duration) RunCycleOption {
	return func(uc *RunCycleUseCase) {
		uc.repository = repo
		uc.retention = retention
	}
}

// WithCache кеширует последний отчет и сбрасывает кеш истории
func WithCache(cache port.Cache) RunCycleOption {
	return func(uc *RunCycleUseCase) { uc.cache = cache }
}

// WithEventPublisher публикует события завершения цикла и смены статуса
func WithEventPublisher(events port.EventPublisher) RunCycleOption {
	return func(uc *RunCycleUseCase) { uc.events = events }
}

// WithMetricsPublisher экспортирует значения доменов во внешнюю систему метрик
func WithMetricsPublisher(publisher port.MetricsPublisher) RunCycleOption {
	return func(uc *RunCycleUseCase) { uc.publisher = publisher }
}

// WithPipelineMetrics записывает длительность и статусы циклов
func WithPipelineMetrics(metrics port.PipelineMetrics) RunCycleOption {
	return func(uc *RunCycleUseCase) { uc.metrics = metrics }
}

// WithArchive архивирует отчет каждого цикла
func WithArchive(archive *ArchiveReportUseCase) RunCycleOption {
	return func(uc *RunCycleUseCase) { uc.archive = archive }
}

// WithLiveFeed рассылает отчет подключенным клиентам
func WithLiveFeed(feed port.LiveFeed) RunCycleOption {
	return func(uc *RunCycleUseCase) { uc.feed = feed }
}

// RunCycleUseCase выполняет один полный цикл:
// сбор -> анализ -> побочные эффекты -> уведомление
type RunCycleUseCase struct {
	collect  *CollectCycleUseCase
	analyzer *service.IncidentAnalyzer
	notify   *NotifyUseCase

	repository repository.CycleRepository
	retention  time.Duration
	cache      port.Cache
	events     port.EventPublisher
	publisher  port.MetricsPublisher
	metrics    port.PipelineMetrics
	archive    *ArchiveReportUseCase
	feed       port.LiveFeed

	logger *logger.Logger
	now    func() time.Time

	mu         sync.Mutex
	lastStatus valueobject.Status
}

// NewRunCycleUseCase создает новый use case
func NewRunCycleUseCase(
	collect *CollectCycleUseCase,
	analyzer *service.IncidentAnalyzer,
	notify *NotifyUseCase,
	logger *logger.Logger,
	opts ...RunCycleOption,
) *RunCycleUseCase {
	uc := &RunCycleUseCase{
		collect:  collect,
		analyzer: analyzer,
		notify:   notify,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Execute выполняет цикл. Сбои побочных эффектов логируются и не прерывают цикл.
// Ошибка возвращается только если сбор был отменен.
func (uc *RunCycleUseCase) Execute(ctx context.Context) (*dto.WorkflowResultDTO, error) {
	startedAt := uc.now()

	snapshot, err := uc.collect.Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to collect cycle: %w", err)
	}

	result := uc.analyzer.Analyze(snapshot, uc.now())
	if result.Degraded() {
		uc.logger.Error("Analysis degraded", result.Failure(), "cycle_id", snapshot.ID())
	}
	analysis := result.Analysis()

	report := dto.NewCycleReportDTO(snapshot, analysis)

	uc.persist(ctx, snapshot, analysis)
	uc.refreshCache(ctx, report)
	uc.publishEvents(ctx, report)
	uc.publishMetrics(ctx, snapshot, analysis)
	uc.archiveReport(ctx, report)

	if uc.feed != nil {
		uc.feed.BroadcastCycle(report)
	}

	notification := uc.notify.Execute(ctx, analysis, report)

	duration := uc.now().Sub(startedAt)
	if uc.metrics != nil {
		uc.metrics.ObserveCycle(snapshot, analysis, duration.Seconds())
	}

	workflow := dto.NewWorkflowResultDTO(report, analysis, notification)
	uc.logger.Info("Monitoring cycle completed",
		"cycle_id", snapshot.ID(),
		"status", analysis.OverallStatus(),
		"result", workflow.Status,
		"critical_issues", len(analysis.CriticalIssues()),
		"warnings", len(analysis.Warnings()),
		"notification_sent", notification.Sent,
		"duration", duration.String(),
		"next_check_in", analysis.NextCheckIn().Format(time.RFC3339),
	)

	return workflow, nil
}

func (uc *RunCycleUseCase) persist(ctx context.Context, snapshot *entity.CycleSnapshot, analysis *entity.Analysis) {
	if uc.repository == nil {
		return
	}

	if err := uc.repository.Save(ctx, repository.CycleRecord{Snapshot: snapshot, Analysis: analysis}); err != nil {
		uc.logger.Error("Failed to save cycle", err, "cycle_id", snapshot.ID())
		return
	}

	if uc.retention <= 0 {
		return
	}

	cutoff, err := valueobject.NewTimeRange(snapshot.Timestamp().Add(-uc.retention), snapshot.Timestamp())
	if err != nil {
		uc.logger.Error("Failed to build retention range", err)
		return
	}

	deleted, err := uc.repository.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		uc.logger.Error("Failed to prune cycle history", err)
		return
	}
	if deleted > 0 {
		uc.logger.Debug("Pruned cycle history", "deleted", deleted)
	}
}

func (uc *RunCycleUseCase) refreshCache(ctx context.Context, report *dto.CycleReportDTO) {
	if uc.cache == nil {
		return
	}

	if err := uc.cache.Set(ctx, CacheKeyCurrentAnalysis, report); err != nil {
		uc.logger.Error("Failed to cache current analysis", err)
	}
	if err := uc.cache.DeletePattern(ctx, cacheKeyHistoryPrefix+"*"); err != nil {
		uc.logger.Error("Failed to invalidate history cache", err)
	}
}

func (uc *RunCycleUseCase) publishEvents(ctx context.Context, report *dto.CycleReportDTO) {
	uc.mu.Lock()
	previous := uc.lastStatus
	uc.lastStatus = valueobject.Status(report.OverallStatus)
	uc.mu.Unlock()

	if uc.events == nil {
		return
	}

	if err := uc.events.PublishEvent(ctx, port.SubjectCycleCompleted, report); err != nil {
		uc.logger.Error("Failed to publish cycle event", err, "cycle_id", report.CycleID)
	}

	if previous == "" || string(previous) == report.OverallStatus {
		return
	}

	event := port.StatusChangedEvent{
		CycleID:        report.CycleID,
		PreviousStatus: previous.String(),
		CurrentStatus:  report.OverallStatus,
		Timestamp:      report.Timestamp.Format(time.RFC3339),
	}
	if err := uc.events.PublishEvent(ctx, port.SubjectStatusChanged, event); err != nil {
		uc.logger.Error("Failed to publish status change event", err, "cycle_id", report.CycleID)
	}
}

func (uc *RunCycleUseCase) publishMetrics(ctx context.Context, snapshot *entity.CycleSnapshot, analysis *entity.Analysis) {
	if uc.publisher == nil {
		return
	}
	if err := uc.publisher.PublishCycle(ctx, snapshot, analysis); err != nil {
		uc.logger.Error("Failed to publish cycle metrics", err, "cycle_id", snapshot.ID())
	}
}

func (uc *RunCycleUseCase) archiveReport(ctx context.Context, report *dto.CycleReportDTO) {
	if uc.archive == nil {
		return
	}
	if _, err := uc.archive.Execute(ctx, report); err != nil {
		uc.logger.Error("Failed to archive cycle report", err, "cycle_id", report.CycleID)
	}
}
