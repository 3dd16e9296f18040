package dto

import (
	"fmt"
	"time"

	"github.com/dreschagin/sre-monitor/internal/domain/entity"
	"github.com/dreschagin/sre-monitor/internal/domain/valueobject"
)

// CycleReportDTO представляет полный результат цикла
// Используется для WebSocket, кеша, архива и HTTP API
type CycleReportDTO struct {
	CycleID        string            `json:"cycle_id"`
	Timestamp      time.Time         `json:"timestamp"`
	OverallStatus  string            `json:"overall_status"`
	Reports        []MetricReportDTO `json:"reports"`
	UnknownDomains []string          `json:"unknown_domains,omitempty"`
	Analysis       *AnalysisDTO      `json:"analysis,omitempty"`
	Summary        *CycleSummaryDTO  `json:"summary"`
}

// CycleSummaryDTO содержит сводную информацию
type CycleSummaryDTO struct {
	TotalMetrics  int    `json:"total_metrics"`
	CriticalCount int    `json:"critical_count"`
	WarningCount  int    `json:"warning_count"`
	UnknownCount  int    `json:"unknown_count"`
	OverallStatus string `json:"overall_status"`
}

// NewCycleReportDTO создает DTO из snapshot и анализа
func NewCycleReportDTO(snapshot *entity.CycleSnapshot, analysis *entity.Analysis) *CycleReportDTO {
	report := &CycleReportDTO{
		CycleID:       snapshot.ID(),
		Timestamp:     snapshot.Timestamp(),
		OverallStatus: snapshot.OverallStatus().String(),
		Analysis:      FromAnalysis(analysis),
		Summary:       &CycleSummaryDTO{OverallStatus: snapshot.OverallStatus().String()},
	}

	for _, r := range snapshot.Reports() {
		report.Reports = append(report.Reports, FromReport(r))
		report.Summary.TotalMetrics++

		switch r.Status() {
		case valueobject.StatusCrit:
			report.Summary.CriticalCount++
		case valueobject.StatusWarn:
			report.Summary.WarningCount++
		case valueobject.StatusUnknown:
			report.Summary.UnknownCount++
		}
	}

	for _, metricType := range snapshot.UnknownDomains() {
		report.UnknownDomains = append(report.UnknownDomains, metricType.String())
	}

	// Анализ может понизить статус (деградированный анализ всегда WARN)
	if analysis != nil {
		report.Summary.OverallStatus = analysis.OverallStatus().String()
	}

	return report
}

// NotificationResultDTO представляет результат отправки уведомлений
type NotificationResultDTO struct {
	Sent    bool   `json:"sent"`
	Channel string `json:"channel"`
	Error   string `json:"error,omitempty"`
}

// WorkflowResultDTO итог выполнения одного цикла
type WorkflowResultDTO struct {
	Status        string                 `json:"status"`
	Summary       string                 `json:"summary"`
	NextExecution time.Time              `json:"next_execution"`
	Report        *CycleReportDTO        `json:"report"`
	Notification  *NotificationResultDTO `json:"notification,omitempty"`
}

// NewWorkflowResultDTO формирует итог цикла по статусу анализа
func NewWorkflowResultDTO(report *CycleReportDTO, analysis *entity.Analysis, notification *NotificationResultDTO) *WorkflowResultDTO {
	status := analysis.OverallStatus()
	return &WorkflowResultDTO{
		Status:        status.Outcome(),
		Summary:       fmt.Sprintf("System monitoring completed with status: %s", status),
		NextExecution: analysis.NextCheckIn(),
		Report:        report,
		Notification:  notification,
	}
}

// CycleHistoryDTO представляет историю циклов с агрегатами
type CycleHistoryDTO struct {
	From          time.Time         `json:"from"`
	To            time.Time         `json:"to"`
	Cycles        []*CycleReportDTO `json:"cycles"`
	StatusCounts  map[string]int    `json:"status_counts"`
	CriticalRatio float64           `json:"critical_ratio"`
}
