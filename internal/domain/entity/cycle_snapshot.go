package entity

import (
	"errors"
	"fmt"
	"time"

	"github.com/dreschagin/sre-monitor/internal/domain/valueobject"
	"github.com/google/uuid"
)

// ErrInvalidSnapshot возвращается, если набор отчетов не покрывает все домены
var ErrInvalidSnapshot = errors.New("invalid cycle snapshot")

// CycleSnapshot представляет результат одного цикла сбора (Aggregate Root).
// Содержит ровно один отчет на домен; общий статус вычисляется при создании.
type CycleSnapshot struct {
	id            string
	timestamp     time.Time
	reports       map[valueobject.MetricType]*MetricReport
	overallStatus valueobject.Status
}

// NewCycleSnapshot создает snapshot цикла (Factory Method)
func NewCycleSnapshot(timestamp time.Time, reports []*MetricReport) (*CycleSnapshot, error) {
	return buildSnapshot(uuid.New().String(), timestamp, reports)
}

// ReconstructCycleSnapshot восстанавливает snapshot из хранилища (для Repository)
func ReconstructCycleSnapshot(id string, timestamp time.Time, reports []*MetricReport) (*CycleSnapshot, error) {
	return buildSnapshot(id, timestamp, reports)
}

func buildSnapshot(id string, timestamp time.Time, reports []*MetricReport) (*CycleSnapshot, error) {
	if timestamp.IsZero() {
		return nil, fmt.Errorf("%w: timestamp is zero", ErrInvalidSnapshot)
	}

	byType := make(map[valueobject.MetricType]*MetricReport, len(reports))
	for _, report := range reports {
		if report == nil {
			return nil, fmt.Errorf("%w: nil report", ErrInvalidSnapshot)
		}
		if _, exists := byType[report.Type()]; exists {
			return nil, fmt.Errorf("%w: duplicate report for %s", ErrInvalidSnapshot, report.Type())
		}
		byType[report.Type()] = report
	}

	statuses := make([]valueobject.Status, 0, len(byType))
	for _, metricType := range valueobject.AllMetricTypes() {
		report, ok := byType[metricType]
		if !ok {
			return nil, fmt.Errorf("%w: missing report for %s", ErrInvalidSnapshot, metricType)
		}
		statuses = append(statuses, report.Status())
	}

	return &CycleSnapshot{
		id:            id,
		timestamp:     timestamp.UTC(),
		reports:       byType,
		overallStatus: valueobject.WorstStatus(statuses...),
	}, nil
}

// ID возвращает идентификатор цикла
func (s *CycleSnapshot) ID() string {
	return s.id
}

// Timestamp возвращает время цикла
func (s *CycleSnapshot) Timestamp() time.Time {
	return s.timestamp
}

// OverallStatus возвращает худший статус среди известных отчетов
func (s *CycleSnapshot) OverallStatus() valueobject.Status {
	return s.overallStatus
}

// Report возвращает отчет домена
func (s *CycleSnapshot) Report(metricType valueobject.MetricType) *MetricReport {
	return s.reports[metricType]
}

// Reports возвращает отчеты в фиксированном порядке доменов
func (s *CycleSnapshot) Reports() []*MetricReport {
	result := make([]*MetricReport, 0, len(s.reports))
	for _, metricType := range valueobject.AllMetricTypes() {
		result = append(result, s.reports[metricType])
	}
	return result
}

// UnknownDomains возвращает домены без данных
func (s *CycleSnapshot) UnknownDomains() []valueobject.MetricType {
	var unknown []valueobject.MetricType
	for _, metricType := range valueobject.AllMetricTypes() {
		if s.reports[metricType].IsUnknown() {
			unknown = append(unknown, metricType)
		}
	}
	return unknown
}
