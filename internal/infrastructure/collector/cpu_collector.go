package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dreschagin/sre-monitor/internal/domain/valueobject"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/load"
)

// CPUCollector собирает метрики CPU
type CPUCollector struct {
	interval time.Duration
}

// NewCPUCollector создает новый CPU collector
func NewCPUCollector() *CPUCollector {
	return &CPUCollector{interval: time.Second}
}

// Collect собирает загрузку CPU, количество ядер и load average
func (c *CPUCollector) Collect(ctx context.Context) (valueobject.CPUReading, error) {
	// Получаем процент использования CPU за интервал
	percentages, err := cpu.PercentWithContext(ctx, c.interval, false)
	if err != nil {
		return valueobject.CPUReading{}, fmt.Errorf("failed to read cpu usage: %w", err)
	}
	if len(percentages) == 0 {
		return valueobject.CPUReading{}, errors.New("cpu usage is not available")
	}

	reading := valueobject.CPUReading{UsagePercent: percentages[0]}

	// Дополнительные данные не обязательны для классификации
	if counts, err := cpu.CountsWithContext(ctx, true); err == nil {
		reading.Cores = counts
	}
	if info, err := cpu.InfoWithContext(ctx); err == nil && len(info) > 0 {
		reading.ModelName = info[0].ModelName
	}
	if avg, err := load.AvgWithContext(ctx); err == nil {
		reading.Load1 = avg.Load1
		reading.Load5 = avg.Load5
		reading.Load15 = avg.Load15
	}

	return reading, nil
}
