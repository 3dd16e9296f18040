package service

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dreschagin/sre-monitor/internal/domain/entity"
	"github.com/dreschagin/sre-monitor/internal/domain/valueobject"
)

// MetricValidator предоставляет сервисы для валидации отчетов (Domain Service)
type MetricValidator struct {
	clockSkew time.Duration
}

// NewMetricValidator создает новый MetricValidator
func NewMetricValidator() *MetricValidator {
	return &MetricValidator{clockSkew: 5 * time.Second}
}

// Validate выполняет полную валидацию отчета
func (v *MetricValidator) Validate(report *entity.MetricReport) error {
	if report == nil {
		return errors.New("report cannot be nil")
	}

	// Проверка типа метрики
	if err := report.Type().Validate(); err != nil {
		return err
	}

	if err := report.Status().Validate(); err != nil {
		return err
	}

	// Проверка времени
	if report.CollectedAt().IsZero() {
		return errors.New("collected_at cannot be zero")
	}

	// Проверка, что отчет не из будущего (с допуском на рассинхрон часов)
	if report.CollectedAt().After(time.Now().Add(v.clockSkew)) {
		return errors.New("collected_at cannot be in the future")
	}

	// UNKNOWN отчеты не содержат значения
	if report.IsUnknown() {
		return nil
	}

	return v.ValidateUnit(report.Type(), report.Value().Unit())
}

// ValidateUnit проверяет, соответствует ли единица измерения домену
func (v *MetricValidator) ValidateUnit(metricType valueobject.MetricType, unit string) error {
	if metricType.Unit() == "" {
		return errors.New("unknown metric type")
	}

	if unit != metricType.Unit() {
		return fmt.Errorf("invalid unit %q for metric type %s", unit, metricType)
	}

	return nil
}

// IsReasonable проверяет, находится ли значение в разумных пределах
func (v *MetricValidator) IsReasonable(report *entity.MetricReport) bool {
	if report.IsUnknown() {
		return true
	}

	val := report.Value().Raw()
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return false
	}

	switch report.Type() {
	case valueobject.Disk, valueobject.Memory, valueobject.CPU:
		// Процентные значения должны быть от 0 до 100
		return val >= 0 && val <= 100

	case valueobject.Latency:
		// Задержка не может превышать максимальный таймаут попытки (60s)
		return val >= 0 && val <= 60000

	default:
		return val >= 0
	}
}

// CheckPercent проверяет сырое процентное значение до создания отчета
func (v *MetricValidator) CheckPercent(name string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("%s is not a finite number", name)
	}
	if value < 0 || value > 100 {
		return fmt.Errorf("%s out of range: %.2f", name, value)
	}
	return nil
}
