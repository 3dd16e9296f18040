package entity

import (
	"errors"
	"time"

	"github.com/dreschagin/sre-monitor/internal/domain/valueobject"
)

// MetricReport представляет результат классификации одного домена за цикл.
// Создается классификатором и больше не изменяется.
type MetricReport struct {
	metricType      valueobject.MetricType
	status          valueobject.Status
	value           valueobject.MetricValue
	details         map[string]interface{}
	rawSample       []float64
	recommendations []string
	reason          string
	collectedAt     time.Time
}

// ReportOption дополняет отчет при создании
type ReportOption func(*MetricReport)

// WithDetails добавляет доменные поля отчета (точки монтирования, топ процессов и т.д.)
func WithDetails(details map[string]interface{}) ReportOption {
	return func(r *MetricReport) {
		for k, v := range details {
			r.details[k] = v
		}
	}
}

// WithRawSample сохраняет сырую выборку (для latency)
func WithRawSample(sample []float64) ReportOption {
	return func(r *MetricReport) {
		r.rawSample = append([]float64(nil), sample...)
	}
}

// WithRecommendations добавляет доменные рекомендации
func WithRecommendations(recommendations ...string) ReportOption {
	return func(r *MetricReport) {
		r.recommendations = append(r.recommendations, recommendations...)
	}
}

// NewMetricReport создает отчет (Factory Method)
func NewMetricReport(
	metricType valueobject.MetricType,
	status valueobject.Status,
	value valueobject.MetricValue,
	collectedAt time.Time,
	opts ...ReportOption,
) (*MetricReport, error) {
	if err := metricType.Validate(); err != nil {
		return nil, err
	}

	if err := status.Validate(); err != nil {
		return nil, err
	}

	if status.IsKnown() && value.IsZero() {
		return nil, errors.New("known status requires a value")
	}

	if collectedAt.IsZero() {
		collectedAt = time.Now()
	}

	report := &MetricReport{
		metricType:  metricType,
		status:      status,
		value:       value,
		details:     make(map[string]interface{}),
		collectedAt: collectedAt.UTC(),
	}

	for _, opt := range opts {
		opt(report)
	}

	return report, nil
}

// NewUnknownReport создает отчет для домена, данные которого получить не удалось
func NewUnknownReport(metricType valueobject.MetricType, reason string, collectedAt time.Time) *MetricReport {
	if collectedAt.IsZero() {
		collectedAt = time.Now()
	}

	return &MetricReport{
		metricType:  metricType,
		status:      valueobject.StatusUnknown,
		details:     make(map[string]interface{}),
		reason:      reason,
		collectedAt: collectedAt.UTC(),
	}
}

// ReconstructMetricReport восстанавливает отчет из хранилища (для Repository)
func ReconstructMetricReport(
	metricType valueobject.MetricType,
	status valueobject.Status,
	value valueobject.MetricValue,
	details map[string]interface{},
	rawSample []float64,
	recommendations []string,
	reason string,
	collectedAt time.Time,
) *MetricReport {
	if details == nil {
		details = make(map[string]interface{})
	}

	return &MetricReport{
		metricType:      metricType,
		status:          status,
		value:           value,
		details:         details,
		rawSample:       rawSample,
		recommendations: recommendations,
		reason:          reason,
		collectedAt:     collectedAt,
	}
}

// Type возвращает домен отчета
func (r *MetricReport) Type() valueobject.MetricType {
	return r.metricType
}

// Status возвращает статус домена
func (r *MetricReport) Status() valueobject.Status {
	return r.status
}

// Value возвращает значение, по которому вычислен статус
func (r *MetricReport) Value() valueobject.MetricValue {
	return r.value
}

// Details возвращает копию доменных полей
func (r *MetricReport) Details() map[string]interface{} {
	result := make(map[string]interface{}, len(r.details))
	for k, v := range r.details {
		result[k] = v
	}
	return result
}

// RawSample возвращает копию сырой выборки
func (r *MetricReport) RawSample() []float64 {
	if r.rawSample == nil {
		return nil
	}
	return append([]float64(nil), r.rawSample...)
}

// Recommendations возвращает доменные рекомендации
func (r *MetricReport) Recommendations() []string {
	return append([]string(nil), r.recommendations...)
}

// Reason возвращает причину UNKNOWN статуса
func (r *MetricReport) Reason() string {
	return r.reason
}

// CollectedAt возвращает время сбора
func (r *MetricReport) CollectedAt() time.Time {
	return r.collectedAt
}

// IsUnknown проверяет, удалось ли получить данные
func (r *MetricReport) IsUnknown() bool {
	return r.status == valueobject.StatusUnknown
}
