package collector

import (
	"context"

	"github.com/dreschagin/sre-monitor/internal/domain/valueobject"
)

// SystemMetricsCollector читает метрики хоста через gopsutil
// Реализует интерфейс port.MetricsProvider
type SystemMetricsCollector struct {
	cpuCollector     *CPUCollector
	memoryCollector  *MemoryCollector
	diskCollector    *DiskCollector
	networkCollector *NetworkCollector
	processCollector *ProcessCollector
}

// NewSystemMetricsCollector создает новый системный collector
func NewSystemMetricsCollector() *SystemMetricsCollector {
	return &SystemMetricsCollector{
		cpuCollector:     NewCPUCollector(),
		memoryCollector:  NewMemoryCollector(),
		diskCollector:    NewDiskCollector(),
		networkCollector: NewNetworkCollector(),
		processCollector: NewProcessCollector(),
	}
}

// CollectCPU собирает только CPU метрики
func (c *SystemMetricsCollector) CollectCPU(ctx context.Context) (valueobject.CPUReading, error) {
	return c.cpuCollector.Collect(ctx)
}

// CollectMemory собирает только Memory метрики
func (c *SystemMetricsCollector) CollectMemory(ctx context.Context) (valueobject.MemoryReading, error) {
	return c.memoryCollector.Collect(ctx)
}

// CollectDisk собирает только Disk метрики
func (c *SystemMetricsCollector) CollectDisk(ctx context.Context) (valueobject.DiskReading, error) {
	return c.diskCollector.Collect(ctx)
}

// CollectNetwork собирает только Network метрики
func (c *SystemMetricsCollector) CollectNetwork(ctx context.Context) (valueobject.NetworkReading, error) {
	return c.networkCollector.Collect(ctx)
}

// CollectProcesses собирает только таблицу процессов
func (c *SystemMetricsCollector) CollectProcesses(ctx context.Context) (valueobject.ProcessReading, error) {
	return c.processCollector.Collect(ctx)
}
