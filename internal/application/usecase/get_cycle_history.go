package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dreschagin/sre-monitor/internal/application/dto"
	"github.com/dreschagin/sre-monitor/internal/application/port"
	"github.com/dreschagin/sre-monitor/internal/domain/repository"
	"github.com/dreschagin/sre-monitor/internal/domain/valueobject"
	"github.com/dreschagin/sre-monitor/pkg/logger"
)

// Ограничения выборки истории
const (
	DefaultHistoryLimit = 100
	MaxHistoryLimit     = 1000
)

// ErrHistoryUnavailable возвращается, если хранилище истории не настроено
var ErrHistoryUnavailable = errors.New("cycle history is not configured")

// GetCycleHistoryUseCase возвращает историю циклов с агрегатами и кешированием
type GetCycleHistoryUseCase struct {
	repository repository.CycleRepository
	cache      port.Cache
	logger     *logger.Logger
}

// NewGetCycleHistoryUseCase создает новый use case
func NewGetCycleHistoryUseCase(
	repository repository.CycleRepository,
	cache port.Cache,
	logger *logger.Logger,
) *GetCycleHistoryUseCase {
	return &GetCycleHistoryUseCase{
		repository: repository,
		cache:      cache,
		logger:     logger,
	}
}

// Execute выполняет получение истории за диапазон
func (uc *GetCycleHistoryUseCase) Execute(
	ctx context.Context,
	timeRange valueobject.TimeRange,
	limit int,
) (*dto.CycleHistoryDTO, error) {
	if uc.repository == nil {
		return nil, ErrHistoryUnavailable
	}

	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	// Если кеш не настроен, используем стандартный путь
	if uc.cache == nil {
		return uc.executeWithoutCache(ctx, timeRange, limit)
	}

	cacheKey := historyCacheKey(timeRange, limit)

	var cached dto.CycleHistoryDTO
	if err := uc.cache.Get(ctx, cacheKey, &cached); err == nil {
		uc.logger.Debug("Cache hit for cycle history", "key", cacheKey, "count", len(cached.Cycles))
		return &cached, nil
	}

	history, err := uc.executeWithoutCache(ctx, timeRange, limit)
	if err != nil {
		return nil, err
	}

	if err := uc.cache.Set(ctx, cacheKey, history); err != nil {
		uc.logger.Warn("Failed to cache cycle history", "error", err.Error())
	}

	return history, nil
}

func (uc *GetCycleHistoryUseCase) executeWithoutCache(
	ctx context.Context,
	timeRange valueobject.TimeRange,
	limit int,
) (*dto.CycleHistoryDTO, error) {
	records, err := uc.repository.FindByTimeRange(ctx, timeRange, limit)
	if err != nil {
		uc.logger.Error("Failed to fetch cycle history", err)
		return nil, fmt.Errorf("failed to fetch cycle history: %w", err)
	}

	history := &dto.CycleHistoryDTO{
		From:         timeRange.Start(),
		To:           timeRange.End(),
		Cycles:       make([]*dto.CycleReportDTO, 0, len(records)),
		StatusCounts: make(map[string]int),
	}

	for _, record := range records {
		report := dto.NewCycleReportDTO(record.Snapshot, record.Analysis)
		history.Cycles = append(history.Cycles, report)
		history.StatusCounts[report.OverallStatus]++
	}

	if len(records) > 0 {
		crit := history.StatusCounts[valueobject.StatusCrit.String()]
		history.CriticalRatio = float64(crit) / float64(len(records))
	}

	uc.logger.Debug("Fetched cycle history", "count", len(records))

	return history, nil
}

// historyCacheKey округляет границы до минуты, чтобы близкие запросы попадали в кеш
func historyCacheKey(timeRange valueobject.TimeRange, limit int) string {
	return fmt.Sprintf("%s%d:%d:%d",
		cacheKeyHistoryPrefix,
		timeRange.Start().Truncate(time.Minute).Unix(),
		timeRange.End().Truncate(time.Minute).Unix(),
		limit,
	)
}
