package collector

import (
	"context"
	"errors"
	"fmt"

	"github.com/dreschagin/sre-monitor/internal/domain/valueobject"
	"github.com/shirou/gopsutil/v3/disk"
)

// Виртуальные файловые системы не участвуют в проверке заполненности
var pseudoFilesystems = map[string]bool{
	"proc": true, "sysfs": true, "devfs": true, "devtmpfs": true, "tmpfs": true,
	"overlay": true, "squashfs": true, "cgroup": true, "cgroup2": true,
	"autofs": true, "nsfs": true, "tracefs": true, "debugfs": true,
}

// DiskCollector собирает метрики дисков
type DiskCollector struct{}

// NewDiskCollector создает новый Disk collector
func NewDiskCollector() *DiskCollector {
	return &DiskCollector{}
}

// Collect собирает заполненность всех физических разделов
func (c *DiskCollector) Collect(ctx context.Context) (valueobject.DiskReading, error) {
	partitions, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return valueobject.DiskReading{}, fmt.Errorf("failed to list partitions: %w", err)
	}

	seen := make(map[string]bool, len(partitions))
	reading := valueobject.DiskReading{}
	var lastErr error

	for _, partition := range partitions {
		if pseudoFilesystems[partition.Fstype] || seen[partition.Mountpoint] {
			continue
		}
		seen[partition.Mountpoint] = true

		usage, err := disk.UsageWithContext(ctx, partition.Mountpoint)
		if err != nil {
			lastErr = err
			continue
		}
		if usage.Total == 0 {
			continue
		}

		reading.Mounts = append(reading.Mounts, valueobject.MountUsage{
			Mountpoint:  partition.Mountpoint,
			Device:      partition.Device,
			Fstype:      partition.Fstype,
			TotalBytes:  usage.Total,
			UsedBytes:   usage.Used,
			FreeBytes:   usage.Free,
			UsedPercent: usage.UsedPercent,
		})
	}

	if len(reading.Mounts) > 0 {
		return reading, nil
	}

	// Нет разделов (контейнер без /proc/mounts): проверяем корень
	usage, err := disk.UsageWithContext(ctx, "/")
	if err != nil {
		return valueobject.DiskReading{}, fmt.Errorf("failed to read disk usage: %w", errors.Join(err, lastErr))
	}

	reading.Mounts = append(reading.Mounts, valueobject.MountUsage{
		Mountpoint:  usage.Path,
		Fstype:      usage.Fstype,
		TotalBytes:  usage.Total,
		UsedBytes:   usage.Used,
		FreeBytes:   usage.Free,
		UsedPercent: usage.UsedPercent,
	})

	return reading, nil
}
