package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/dreschagin/sre-monitor/internal/application/dto"
	"github.com/dreschagin/sre-monitor/internal/application/port"
	"github.com/dreschagin/sre-monitor/internal/domain/repository"
	"github.com/dreschagin/sre-monitor/pkg/logger"
)

// GetCurrentAnalysisUseCase возвращает отчет последнего цикла
type GetCurrentAnalysisUseCase struct {
	repository repository.CycleRepository
	cache      port.Cache
	logger     *logger.Logger
}

// NewGetCurrentAnalysisUseCase создает новый use case
func NewGetCurrentAnalysisUseCase(
	repository repository.CycleRepository,
	cache port.Cache,
	logger *logger.Logger,
) *GetCurrentAnalysisUseCase {
	return &GetCurrentAnalysisUseCase{
		repository: repository,
		cache:      cache,
		logger:     logger,
	}
}

// Execute сначала читает кеш, затем последний цикл из истории.
// Возвращает repository.ErrNotFound, если циклов еще не было.
func (uc *GetCurrentAnalysisUseCase) Execute(ctx context.Context) (*dto.CycleReportDTO, error) {
	if uc.cache != nil {
		var cached dto.CycleReportDTO
		err := uc.cache.Get(ctx, CacheKeyCurrentAnalysis, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, port.ErrCacheMiss) {
			uc.logger.Warn("Failed to read current analysis from cache", "error", err.Error())
		}
	}

	if uc.repository == nil {
		return nil, repository.ErrNotFound
	}

	record, err := uc.repository.FindLatest(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		uc.logger.Error("Failed to fetch latest cycle", err)
		return nil, fmt.Errorf("failed to fetch latest cycle: %w", err)
	}

	report := dto.NewCycleReportDTO(record.Snapshot, record.Analysis)

	if uc.cache != nil {
		if err := uc.cache.Set(ctx, CacheKeyCurrentAnalysis, report); err != nil {
			uc.logger.Warn("Failed to cache current analysis", "error", err.Error())
		}
	}

	return report, nil
}
