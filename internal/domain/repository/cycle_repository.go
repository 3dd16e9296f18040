package repository

import (
	"context"
	"errors"

	"github.com/dreschagin/sre-monitor/internal/domain/entity"
	"github.com/dreschagin/sre-monitor/internal/domain/valueobject"
)

// ErrNotFound возвращается, если запись не найдена
var ErrNotFound = errors.New("not found")

// CycleRecord связывает snapshot цикла и его анализ
type CycleRecord struct {
	Snapshot *entity.CycleSnapshot
	Analysis *entity.Analysis
}

// CycleRepository определяет интерфейс хранилища истории циклов (Port)
// Реализация будет в Infrastructure слое
type CycleRepository interface {
	// Save сохраняет snapshot и анализ одной транзакцией
	Save(ctx context.Context, record CycleRecord) error

	// FindByID находит цикл по идентификатору
	FindByID(ctx context.Context, id string) (*CycleRecord, error)

	// FindLatest возвращает последний сохраненный цикл
	FindLatest(ctx context.Context) (*CycleRecord, error)

	// FindByTimeRange возвращает циклы в диапазоне (новые первыми)
	FindByTimeRange(ctx context.Context, timeRange valueobject.TimeRange, limit int) ([]*CycleRecord, error)

	// DeleteOlderThan удаляет циклы до начала диапазона
	DeleteOlderThan(ctx context.Context, timeRange valueobject.TimeRange) (int64, error)
}
