package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dreschagin/sre-monitor/internal/domain/entity"
	"github.com/dreschagin/sre-monitor/internal/domain/valueobject"
)

const bytesInGB = 1024 * 1024 * 1024

// Thresholds содержит пороги всех доменов
type Thresholds struct {
	Disk       valueobject.Threshold
	Memory     valueobject.Threshold
	CPU        valueobject.Threshold
	Processes  valueobject.Threshold
	Network    valueobject.Threshold
	LatencyAvg valueobject.Threshold
	LatencyP95 valueobject.Threshold

	// ConnectionWarn поднимает OK статус сети до WARN, если открытых
	// соединений больше указанного числа. 0 отключает проверку.
	ConnectionWarn int
}

// DefaultThresholds возвращает пороги по умолчанию
func DefaultThresholds() Thresholds {
	return Thresholds{
		Disk:       valueobject.MustThreshold(80, 90),
		Memory:     valueobject.MustThreshold(85, 95),
		CPU:        valueobject.MustThreshold(80, 95),
		Processes:  valueobject.MustThreshold(200, 500),
		Network:    valueobject.MustThreshold(10, 100),
		LatencyAvg: valueobject.MustThreshold(1000, 5000),
		LatencyP95: valueobject.MustThreshold(5000, 10000),
	}
}

// MountStatus описывает статус одной точки монтирования
type MountStatus struct {
	Mount       string             `json:"mount"`
	Device      string             `json:"device,omitempty"`
	Fstype      string             `json:"fstype,omitempty"`
	SizeGB      float64            `json:"size_gb"`
	UsedGB      float64            `json:"used_gb"`
	AvailableGB float64            `json:"available_gb"`
	UsePercent  float64            `json:"use_percent"`
	Status      valueobject.Status `json:"status"`
}

// ProcessSummary описывает процесс в топе потребления
type ProcessSummary struct {
	PID           int32   `json:"pid"`
	Name          string  `json:"name"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
}

// Classifier переводит сырые данные доменов в отчеты со статусом (Domain Service).
// Классификатор никогда не возвращает ошибку: отсутствие или некорректность
// данных дают UNKNOWN.
type Classifier struct {
	thresholds Thresholds
	aggregator *SampleAggregator
	validator  *MetricValidator
}

// NewClassifier создает новый Classifier
func NewClassifier(thresholds Thresholds, aggregator *SampleAggregator, validator *MetricValidator) *Classifier {
	return &Classifier{
		thresholds: thresholds,
		aggregator: aggregator,
		validator:  validator,
	}
}

// Thresholds возвращает используемые пороги
func (c *Classifier) Thresholds() Thresholds {
	return c.thresholds
}

// Unknown создает UNKNOWN отчет для домена
func (c *Classifier) Unknown(metricType valueobject.MetricType, reason string, now time.Time) *entity.MetricReport {
	return entity.NewUnknownReport(metricType, reason, now)
}

// ClassifyDisk классифицирует каждую точку монтирования отдельно;
// статус домена равен статусу самой заполненной
func (c *Classifier) ClassifyDisk(reading valueobject.DiskReading, now time.Time) *entity.MetricReport {
	if len(reading.Mounts) == 0 {
		return c.Unknown(valueobject.Disk, "no mounted volumes reported", now)
	}

	mounts := make([]MountStatus, 0, len(reading.Mounts))
	var highest float64
	var totalBytes, usedBytes, freeBytes uint64
	var criticalMounts []string
	warnMounts := 0

	for _, m := range reading.Mounts {
		if err := c.validator.CheckPercent("disk usage of "+m.Mountpoint, m.UsedPercent); err != nil {
			return c.Unknown(valueobject.Disk, err.Error(), now)
		}

		status := c.thresholds.Disk.Classify(m.UsedPercent)
		mounts = append(mounts, MountStatus{
			Mount:       m.Mountpoint,
			Device:      m.Device,
			Fstype:      m.Fstype,
			SizeGB:      Round(float64(m.TotalBytes)/bytesInGB, 2),
			UsedGB:      Round(float64(m.UsedBytes)/bytesInGB, 2),
			AvailableGB: Round(float64(m.FreeBytes)/bytesInGB, 2),
			UsePercent:  Round(m.UsedPercent, 2),
			Status:      status,
		})

		if m.UsedPercent > highest {
			highest = m.UsedPercent
		}
		totalBytes += m.TotalBytes
		usedBytes += m.UsedBytes
		freeBytes += m.FreeBytes

		switch status {
		case valueobject.StatusCrit:
			criticalMounts = append(criticalMounts, m.Mountpoint)
		case valueobject.StatusWarn:
			warnMounts++
		}
	}

	var recommendations []string
	if len(criticalMounts) > 0 {
		recommendations = append(recommendations, "Critical disk usage on: "+strings.Join(criticalMounts, ", "))
	}
	if warnMounts > 0 {
		recommendations = append(recommendations, "Some mounts are approaching critical usage")
	}
	if totalBytes > 0 && float64(freeBytes) < float64(totalBytes)*0.1 {
		recommendations = append(recommendations, "Total available space is less than 10% of total capacity")
	}

	return c.build(valueobject.Disk, c.thresholds.Disk.Classify(highest), highest, now,
		entity.WithDetails(map[string]interface{}{
			"mounts":          mounts,
			"highest_usage":   Round(highest, 2),
			"total_gb":        Round(float64(totalBytes)/bytesInGB, 2),
			"used_gb":         Round(float64(usedBytes)/bytesInGB, 2),
			"available_gb":    Round(float64(freeBytes)/bytesInGB, 2),
			"critical_mounts": criticalMounts,
		}),
		entity.WithRecommendations(recommendations...),
	)
}

// ClassifyMemory классифицирует used/total
func (c *Classifier) ClassifyMemory(reading valueobject.MemoryReading, now time.Time) *entity.MetricReport {
	if reading.TotalBytes == 0 {
		return c.Unknown(valueobject.Memory, "total memory is zero", now)
	}

	usage := float64(reading.UsedBytes) * 100 / float64(reading.TotalBytes)
	details := map[string]interface{}{
		"total_gb":     Round(float64(reading.TotalBytes)/bytesInGB, 2),
		"used_gb":      Round(float64(reading.UsedBytes)/bytesInGB, 2),
		"available_gb": Round(float64(reading.AvailableBytes)/bytesInGB, 2),
		"usage":        Round(usage, 2),
	}
	if reading.SwapTotalBytes > 0 {
		details["swap_total_gb"] = Round(float64(reading.SwapTotalBytes)/bytesInGB, 2)
		details["swap_used_gb"] = Round(float64(reading.SwapUsedBytes)/bytesInGB, 2)
		details["swap_usage"] = Round(float64(reading.SwapUsedBytes)/float64(reading.SwapTotalBytes)*100, 2)
	}

	return c.build(valueobject.Memory, c.thresholds.Memory.Classify(usage), usage, now, entity.WithDetails(details))
}

// ClassifyCPU классифицирует мгновенную загрузку
func (c *Classifier) ClassifyCPU(reading valueobject.CPUReading, now time.Time) *entity.MetricReport {
	if err := c.validator.CheckPercent("cpu usage", reading.UsagePercent); err != nil {
		return c.Unknown(valueobject.CPU, err.Error(), now)
	}

	return c.build(valueobject.CPU, c.thresholds.CPU.Classify(reading.UsagePercent), reading.UsagePercent, now,
		entity.WithDetails(map[string]interface{}{
			"usage":  Round(reading.UsagePercent, 2),
			"cores":  reading.Cores,
			"model":  reading.ModelName,
			"load1":  Round(reading.Load1, 2),
			"load5":  Round(reading.Load5, 2),
			"load15": Round(reading.Load15, 2),
		}),
	)
}

// ClassifyNetwork классифицирует сумму rx+tx ошибок
func (c *Classifier) ClassifyNetwork(reading valueobject.NetworkReading, now time.Time) *entity.MetricReport {
	errorsTotal := float64(reading.RxErrors + reading.TxErrors)
	status := c.thresholds.Network.Classify(errorsTotal)

	var recommendations []string
	switch status {
	case valueobject.StatusCrit:
		recommendations = append(recommendations, "High network error rate detected")
	case valueobject.StatusWarn:
		recommendations = append(recommendations, "Elevated network error rate")
	}

	if c.thresholds.ConnectionWarn > 0 && reading.Connections.Total > c.thresholds.ConnectionWarn {
		if status == valueobject.StatusOK {
			status = valueobject.StatusWarn
		}
		recommendations = append(recommendations, "High number of network connections")
	}

	interfaces := make([]string, 0, len(reading.Interfaces))
	for _, iface := range reading.Interfaces {
		interfaces = append(interfaces, iface.Name)
	}

	return c.build(valueobject.Network, status, errorsTotal, now,
		entity.WithDetails(map[string]interface{}{
			"rx_errors":   reading.RxErrors,
			"tx_errors":   reading.TxErrors,
			"rx_dropped":  reading.RxDropped,
			"tx_dropped":  reading.TxDropped,
			"has_errors":  errorsTotal > 0,
			"connections": reading.Connections,
			"interfaces":  interfaces,
		}),
		entity.WithRecommendations(recommendations...),
	)
}

// ClassifyProcesses классифицирует общее число процессов
func (c *Classifier) ClassifyProcesses(reading valueobject.ProcessReading, now time.Time) *entity.MetricReport {
	total := float64(reading.Total)

	return c.build(valueobject.Processes, c.thresholds.Processes.Classify(total), total, now,
		entity.WithDetails(map[string]interface{}{
			"total":      reading.Total,
			"top_by_cpu": topProcesses(reading.Processes, func(p valueobject.ProcessInfo) float64 { return p.CPUPercent }),
			"top_by_mem": topProcesses(reading.Processes, func(p valueobject.ProcessInfo) float64 { return p.MemoryPercent }),
			"critical":   criticalProcesses(reading.Processes),
		}),
	)
}

// ClassifyLatency применяет составное правило: CRIT если avg или p95
// пересекли CRIT порог, WARN если любой из них пересек WARN порог
func (c *Classifier) ClassifyLatency(sample valueobject.LatencySample, now time.Time) *entity.MetricReport {
	if len(sample.Samples) == 0 {
		return c.Unknown(valueobject.Latency, "no latency samples", now)
	}

	stats := c.aggregator.Summarize(sample.Samples)

	status := valueobject.StatusOK
	switch {
	case stats.Avg >= c.thresholds.LatencyAvg.Crit() || stats.P95 >= c.thresholds.LatencyP95.Crit():
		status = valueobject.StatusCrit
	case stats.Avg >= c.thresholds.LatencyAvg.Warn() || stats.P95 >= c.thresholds.LatencyP95.Warn():
		status = valueobject.StatusWarn
	}

	attempts := sample.Attempts
	if attempts <= 0 {
		attempts = len(sample.Samples)
	}
	successRate := float64(sample.SuccessCount) / float64(attempts) * 100

	var recommendations []string
	switch status {
	case valueobject.StatusCrit:
		recommendations = append(recommendations, "Latency is critically high - immediate investigation required")
	case valueobject.StatusWarn:
		recommendations = append(recommendations, "Latency is elevated - monitor closely")
	}
	if successRate < 100 {
		recommendations = append(recommendations, fmt.Sprintf("Success rate is %.1f%% - check network connectivity", successRate))
	}
	if !stats.IsStable {
		recommendations = append(recommendations, "Latency is unstable with high variance")
	}
	if stats.HasOutliers {
		recommendations = append(recommendations, "High latency outliers detected - investigate network issues")
	}
	if len(sample.Errors) > 0 {
		recommendations = append(recommendations, fmt.Sprintf("Multiple errors occurred: %d out of %d attempts", len(sample.Errors), attempts))
	}

	rounded := make([]float64, len(sample.Samples))
	for i, s := range sample.Samples {
		rounded[i] = Round(s, 0)
	}

	return c.build(valueobject.Latency, status, stats.Avg, now,
		entity.WithRawSample(sample.Samples),
		entity.WithDetails(map[string]interface{}{
			"url":          sample.URL,
			"samples":      rounded,
			"avg_ms":       Round(stats.Avg, 0),
			"p95_ms":       Round(stats.P95, 0),
			"p99_ms":       Round(stats.P99, 0),
			"min_ms":       Round(stats.Min, 0),
			"max_ms":       Round(stats.Max, 0),
			"success_rate": Round(successRate, 2),
			"errors":       append([]string{}, sample.Errors...),
			"is_stable":    stats.IsStable,
			"has_outliers": stats.HasOutliers,
		}),
		entity.WithRecommendations(recommendations...),
	)
}

func (c *Classifier) build(
	metricType valueobject.MetricType,
	status valueobject.Status,
	raw float64,
	now time.Time,
	opts ...entity.ReportOption,
) *entity.MetricReport {
	value, err := valueobject.NewMetricValue(raw, metricType.Unit())
	if err != nil {
		return c.Unknown(metricType, err.Error(), now)
	}

	report, err := entity.NewMetricReport(metricType, status, value, now, opts...)
	if err != nil {
		return c.Unknown(metricType, err.Error(), now)
	}

	if !c.validator.IsReasonable(report) {
		return c.Unknown(metricType, fmt.Sprintf("unreasonable value %.2f", raw), now)
	}

	return report
}

func topProcesses(processes []valueobject.ProcessInfo, key func(valueobject.ProcessInfo) float64) []ProcessSummary {
	filtered := make([]valueobject.ProcessInfo, 0, len(processes))
	for _, p := range processes {
		if key(p) > 0 {
			filtered = append(filtered, p)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return key(filtered[i]) > key(filtered[j])
	})

	if len(filtered) > 10 {
		filtered = filtered[:10]
	}

	return toSummaries(filtered)
}

func criticalProcesses(processes []valueobject.ProcessInfo) []ProcessSummary {
	critical := make([]valueobject.ProcessInfo, 0)
	for _, p := range processes {
		if p.CPUPercent > 50 || p.MemoryPercent > 20 {
			critical = append(critical, p)
		}
		if len(critical) == 5 {
			break
		}
	}
	return toSummaries(critical)
}

func toSummaries(processes []valueobject.ProcessInfo) []ProcessSummary {
	result := make([]ProcessSummary, 0, len(processes))
	for _, p := range processes {
		result = append(result, ProcessSummary{
			PID:           p.PID,
			Name:          p.Name,
			CPUPercent:    Round(p.CPUPercent, 2),
			MemoryPercent: Round(p.MemoryPercent, 2),
		})
	}
	return result
}
