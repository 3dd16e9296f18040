package collector

import (
	"context"
	"fmt"

	"github.com/dreschagin/sre-monitor/internal/domain/valueobject"
	"github.com/shirou/gopsutil/v3/mem"
)

// MemoryCollector собирает метрики памяти
type MemoryCollector struct{}

// NewMemoryCollector создает новый Memory collector
func NewMemoryCollector() *MemoryCollector {
	return &MemoryCollector{}
}

// Collect собирает использование памяти и swap
func (c *MemoryCollector) Collect(ctx context.Context) (valueobject.MemoryReading, error) {
	vmStat, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return valueobject.MemoryReading{}, fmt.Errorf("failed to read memory: %w", err)
	}

	reading := valueobject.MemoryReading{
		TotalBytes:     vmStat.Total,
		UsedBytes:      vmStat.Used,
		AvailableBytes: vmStat.Available,
	}

	// swap может отсутствовать (контейнеры)
	if swap, err := mem.SwapMemoryWithContext(ctx); err == nil {
		reading.SwapTotalBytes = swap.Total
		reading.SwapUsedBytes = swap.Used
	}

	return reading, nil
}
