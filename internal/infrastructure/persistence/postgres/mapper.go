package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dreschagin/sre-monitor/internal/application/dto"
	"github.com/dreschagin/sre-monitor/internal/domain/entity"
	"github.com/dreschagin/sre-monitor/internal/domain/repository"
	"github.com/dreschagin/sre-monitor/internal/domain/valueobject"
)

// CycleDBModel представляет цикл в БД
type CycleDBModel struct {
	ID            string
	OverallStatus string
	Analysis      []byte // JSONB
	CollectedAt   time.Time
	CreatedAt     time.Time
}

// ReportDBModel представляет отчет домена в БД
type ReportDBModel struct {
	CycleID         string
	MetricType      string
	Status          string
	Value           sql.NullFloat64
	Unit            sql.NullString
	Details         []byte // JSONB
	RawSample       []byte // JSONB
	Recommendations []byte // JSONB
	Reason          sql.NullString
	CollectedAt     time.Time
}

// ToDBModels конвертирует запись цикла в DB Models
func ToDBModels(record repository.CycleRecord) (*CycleDBModel, []*ReportDBModel, error) {
	snapshot := record.Snapshot
	if snapshot == nil {
		return nil, nil, fmt.Errorf("%w: snapshot is nil", entity.ErrInvalidSnapshot)
	}

	cycle := &CycleDBModel{
		ID:            snapshot.ID(),
		OverallStatus: snapshot.OverallStatus().String(),
		CollectedAt:   snapshot.Timestamp(),
		CreatedAt:     time.Now().UTC(),
	}

	if record.Analysis != nil {
		analysis, err := json.Marshal(dto.FromAnalysis(record.Analysis))
		if err != nil {
			return nil, nil, fmt.Errorf("marshal analysis: %w", err)
		}
		cycle.Analysis = analysis
	}

	reports := make([]*ReportDBModel, 0, len(snapshot.Reports()))
	for _, report := range snapshot.Reports() {
		model, err := toReportModel(snapshot.ID(), report)
		if err != nil {
			return nil, nil, err
		}
		reports = append(reports, model)
	}

	return cycle, reports, nil
}

func toReportModel(cycleID string, report *entity.MetricReport) (*ReportDBModel, error) {
	model := &ReportDBModel{
		CycleID:     cycleID,
		MetricType:  report.Type().String(),
		Status:      report.Status().String(),
		CollectedAt: report.CollectedAt(),
	}

	if !report.Value().IsZero() {
		model.Value = sql.NullFloat64{Float64: report.Value().Raw(), Valid: true}
		model.Unit = sql.NullString{String: report.Value().Unit(), Valid: true}
	}
	if report.Reason() != "" {
		model.Reason = sql.NullString{String: report.Reason(), Valid: true}
	}

	var err error
	if model.Details, err = marshalOptional(report.Details(), len(report.Details()) > 0); err != nil {
		return nil, fmt.Errorf("marshal details of %s: %w", report.Type(), err)
	}
	if model.RawSample, err = marshalOptional(report.RawSample(), len(report.RawSample()) > 0); err != nil {
		return nil, fmt.Errorf("marshal raw sample of %s: %w", report.Type(), err)
	}
	if model.Recommendations, err = marshalOptional(report.Recommendations(), len(report.Recommendations()) > 0); err != nil {
		return nil, fmt.Errorf("marshal recommendations of %s: %w", report.Type(), err)
	}

	return model, nil
}

func marshalOptional(v interface{}, present bool) ([]byte, error) {
	if !present {
		return nil, nil
	}
	return json.Marshal(v)
}

// ToRecord конвертирует DB Models обратно в запись цикла
func ToRecord(cycle *CycleDBModel, reports []*ReportDBModel) (*repository.CycleRecord, error) {
	entities := make([]*entity.MetricReport, 0, len(reports))
	for _, model := range reports {
		report, err := toReportEntity(model)
		if err != nil {
			return nil, err
		}
		entities = append(entities, report)
	}

	snapshot, err := entity.ReconstructCycleSnapshot(cycle.ID, cycle.CollectedAt, entities)
	if err != nil {
		return nil, fmt.Errorf("reconstruct snapshot %s: %w", cycle.ID, err)
	}

	record := &repository.CycleRecord{Snapshot: snapshot}
	if len(cycle.Analysis) > 0 {
		var analysis dto.AnalysisDTO
		if err := json.Unmarshal(cycle.Analysis, &analysis); err != nil {
			return nil, fmt.Errorf("unmarshal analysis of %s: %w", cycle.ID, err)
		}
		if record.Analysis, err = toAnalysisEntity(analysis); err != nil {
			return nil, err
		}
	}

	return record, nil
}

func toReportEntity(model *ReportDBModel) (*entity.MetricReport, error) {
	status, err := valueobject.ParseStatus(model.Status)
	if err != nil {
		return nil, err
	}

	var value valueobject.MetricValue
	if model.Value.Valid {
		value, err = valueobject.NewMetricValue(model.Value.Float64, model.Unit.String)
		if err != nil {
			return nil, fmt.Errorf("restore value of %s: %w", model.MetricType, err)
		}
	}

	var (
		details         map[string]interface{}
		rawSample       []float64
		recommendations []string
	)
	if len(model.Details) > 0 {
		if err := json.Unmarshal(model.Details, &details); err != nil {
			return nil, fmt.Errorf("unmarshal details of %s: %w", model.MetricType, err)
		}
	}
	if len(model.RawSample) > 0 {
		if err := json.Unmarshal(model.RawSample, &rawSample); err != nil {
			return nil, fmt.Errorf("unmarshal raw sample of %s: %w", model.MetricType, err)
		}
	}
	if len(model.Recommendations) > 0 {
		if err := json.Unmarshal(model.Recommendations, &recommendations); err != nil {
			return nil, fmt.Errorf("unmarshal recommendations of %s: %w", model.MetricType, err)
		}
	}

	return entity.ReconstructMetricReport(
		valueobject.MetricType(model.MetricType),
		status,
		value,
		details,
		rawSample,
		recommendations,
		model.Reason.String,
		model.CollectedAt.UTC(),
	), nil
}

func toAnalysisEntity(a dto.AnalysisDTO) (*entity.Analysis, error) {
	status, err := valueobject.ParseStatus(a.OverallStatus)
	if err != nil {
		return nil, err
	}

	return entity.NewAnalysis(entity.AnalysisParams{
		SnapshotID:      a.SnapshotID,
		OverallStatus:   status,
		CriticalIssues:  toIssues(a.CriticalIssues),
		Warnings:        toIssues(a.Warnings),
		Recommendations: a.Recommendations,
		AnalyzedAt:      a.AnalyzedAt,
		NextCheckIn:     a.NextCheckIn,
		Degraded:        a.Degraded,
		FailureReason:   a.FailureReason,
	}), nil
}

func toIssues(dtos []dto.IssueDTO) []entity.Issue {
	issues := make([]entity.Issue, len(dtos))
	for i, d := range dtos {
		issues[i] = entity.Issue{
			Severity:       valueobject.IssueSeverity(d.Severity),
			Component:      d.Component,
			Description:    d.Description,
			Recommendation: d.Recommendation,
		}
	}
	return issues
}

// ScanCycleRow сканирует строку БД в CycleDBModel
func ScanCycleRow(row interface {
	Scan(dest ...interface{}) error
}) (*CycleDBModel, error) {
	var model CycleDBModel
	var analysis sql.NullString

	if err := row.Scan(&model.ID, &model.OverallStatus, &analysis, &model.CollectedAt, &model.CreatedAt); err != nil {
		return nil, err
	}

	if analysis.Valid {
		model.Analysis = []byte(analysis.String)
	}

	return &model, nil
}

// ScanReportRow сканирует строку БД в ReportDBModel
func ScanReportRow(row interface {
	Scan(dest ...interface{}) error
}) (*ReportDBModel, error) {
	var model ReportDBModel
	var details, rawSample, recommendations sql.NullString

	err := row.Scan(
		&model.CycleID,
		&model.MetricType,
		&model.Status,
		&model.Value,
		&model.Unit,
		&details,
		&rawSample,
		&recommendations,
		&model.Reason,
		&model.CollectedAt,
	)
	if err != nil {
		return nil, err
	}

	if details.Valid {
		model.Details = []byte(details.String)
	}
	if rawSample.Valid {
		model.RawSample = []byte(rawSample.String)
	}
	if recommendations.Valid {
		model.Recommendations = []byte(recommendations.String)
	}

	return &model, nil
}
