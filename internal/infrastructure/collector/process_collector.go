package collector

import (
	"context"
	"fmt"

	"github.com/dreschagin/sre-monitor/internal/domain/valueobject"
	"github.com/shirou/gopsutil/v3/process"
)

// ProcessCollector собирает таблицу процессов
type ProcessCollector struct{}

// NewProcessCollector создает новый Process collector
func NewProcessCollector() *ProcessCollector {
	return &ProcessCollector{}
}

// Collect собирает количество процессов и их потребление ресурсов.
// Процессы, завершившиеся во время обхода, пропускаются.
func (c *ProcessCollector) Collect(ctx context.Context) (valueobject.ProcessReading, error) {
	processes, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return valueobject.ProcessReading{}, fmt.Errorf("failed to list processes: %w", err)
	}

	reading := valueobject.ProcessReading{
		Total:     len(processes),
		Processes: make([]valueobject.ProcessInfo, 0, len(processes)),
	}

	for _, p := range processes {
		if ctx.Err() != nil {
			return valueobject.ProcessReading{}, ctx.Err()
		}

		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}

		info := valueobject.ProcessInfo{PID: p.Pid, Name: name}
		if cpuPercent, err := p.CPUPercentWithContext(ctx); err == nil {
			info.CPUPercent = cpuPercent
		}
		if memPercent, err := p.MemoryPercentWithContext(ctx); err == nil {
			info.MemoryPercent = float64(memPercent)
		}

		reading.Processes = append(reading.Processes, info)
	}

	return reading, nil
}
