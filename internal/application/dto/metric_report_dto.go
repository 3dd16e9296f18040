package dto

import (
	"time"

	"github.com/dreschagin/sre-monitor/internal/domain/entity"
)

// MetricReportDTO представляет отчет домена для передачи между слоями
type MetricReportDTO struct {
	Type            string                 `json:"type"`
	Status          string                 `json:"status"`
	Value           float64                `json:"value"`
	Unit            string                 `json:"unit,omitempty"`
	Details         map[string]interface{} `json:"details,omitempty"`
	RawSample       []float64              `json:"raw_sample,omitempty"`
	Recommendations []string               `json:"recommendations,omitempty"`
	Reason          string                 `json:"reason,omitempty"`
	CollectedAt     time.Time              `json:"collected_at"`
}

// FromReport конвертирует Domain Entity в DTO
func FromReport(report *entity.MetricReport) MetricReportDTO {
	return MetricReportDTO{
		Type:            report.Type().String(),
		Status:          report.Status().String(),
		Value:           report.Value().Rounded(),
		Unit:            report.Value().Unit(),
		Details:         report.Details(),
		RawSample:       report.RawSample(),
		Recommendations: report.Recommendations(),
		Reason:          report.Reason(),
		CollectedAt:     report.CollectedAt(),
	}
}

// IssueDTO представляет найденную проблему
type IssueDTO struct {
	Severity       string `json:"severity,omitempty"`
	Component      string `json:"component"`
	Description    string `json:"description"`
	Recommendation string `json:"recommendation"`
}

// AnalysisDTO представляет результат анализа
type AnalysisDTO struct {
	SnapshotID      string     `json:"snapshot_id,omitempty"`
	OverallStatus   string     `json:"overall_status"`
	CriticalIssues  []IssueDTO `json:"critical_issues"`
	Warnings        []IssueDTO `json:"warnings"`
	Recommendations []string   `json:"recommendations"`
	AnalyzedAt      time.Time  `json:"analyzed_at"`
	NextCheckIn     time.Time  `json:"next_check_in"`
	Degraded        bool       `json:"degraded"`
	FailureReason   string     `json:"failure_reason,omitempty"`
}

// FromAnalysis конвертирует анализ в DTO
func FromAnalysis(analysis *entity.Analysis) *AnalysisDTO {
	if analysis == nil {
		return nil
	}

	return &AnalysisDTO{
		SnapshotID:      analysis.SnapshotID(),
		OverallStatus:   analysis.OverallStatus().String(),
		CriticalIssues:  toIssueDTOs(analysis.CriticalIssues()),
		Warnings:        toIssueDTOs(analysis.Warnings()),
		Recommendations: analysis.Recommendations(),
		AnalyzedAt:      analysis.AnalyzedAt(),
		NextCheckIn:     analysis.NextCheckIn(),
		Degraded:        analysis.IsDegraded(),
		FailureReason:   analysis.FailureReason(),
	}
}

func toIssueDTOs(issues []entity.Issue) []IssueDTO {
	dtos := make([]IssueDTO, len(issues))
	for i, issue := range issues {
		dtos[i] = IssueDTO{
			Severity:       issue.Severity.String(),
			Component:      issue.Component,
			Description:    issue.Description,
			Recommendation: issue.Recommendation,
		}
	}
	return dtos
}
