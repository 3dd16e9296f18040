package service

import (
	"time"

	"github.com/dreschagin/sre-monitor/internal/domain/entity"
	"github.com/dreschagin/sre-monitor/internal/domain/valueobject"
)

// SnapshotAggregator собирает отчеты одного цикла в CycleSnapshot (Domain Service)
type SnapshotAggregator struct{}

// NewSnapshotAggregator создает новый SnapshotAggregator
func NewSnapshotAggregator() *SnapshotAggregator {
	return &SnapshotAggregator{}
}

// Aggregate создает snapshot. Отсутствующие домены получают UNKNOWN,
// поэтому частичные данные все равно дают snapshot.
func (a *SnapshotAggregator) Aggregate(timestamp time.Time, reports []*entity.MetricReport) (*entity.CycleSnapshot, error) {
	byType := make(map[valueobject.MetricType]*entity.MetricReport, len(reports))
	for _, r := range reports {
		if r == nil {
			continue
		}
		byType[r.Type()] = r
	}

	complete := make([]*entity.MetricReport, 0, len(valueobject.AllMetricTypes()))
	for _, metricType := range valueobject.AllMetricTypes() {
		r, ok := byType[metricType]
		if !ok {
			r = entity.NewUnknownReport(metricType, "no report collected", timestamp)
		}
		complete = append(complete, r)
	}

	return entity.NewCycleSnapshot(timestamp, complete)
}

// OverallStatus возвращает худший статус среди известных отчетов
func (a *SnapshotAggregator) OverallStatus(reports []*entity.MetricReport) valueobject.Status {
	statuses := make([]valueobject.Status, 0, len(reports))
	for _, r := range reports {
		if r != nil {
			statuses = append(statuses, r.Status())
		}
	}
	return valueobject.WorstStatus(statuses...)
}
