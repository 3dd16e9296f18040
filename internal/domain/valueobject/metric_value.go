package valueobject

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidMetricValue некорректное измерение (NaN, Inf, отрицательное, без единицы)
var ErrInvalidMetricValue = errors.New("invalid metric value")

// MetricValue измеренное значение домена с единицей (%, ms, count).
// Нулевое значение означает отсутствие измерения (UNKNOWN отчет).
type MetricValue struct {
	value float64
	unit  string
}

func NewMetricValue(value float64, unit string) (MetricValue, error) {
	switch {
	case math.IsNaN(value) || math.IsInf(value, 0):
		return MetricValue{}, fmt.Errorf("%w: %v is not finite", ErrInvalidMetricValue, value)
	case value < 0:
		return MetricValue{}, fmt.Errorf("%w: %v is negative", ErrInvalidMetricValue, value)
	case unit == "":
		return MetricValue{}, fmt.Errorf("%w: unit is empty", ErrInvalidMetricValue)
	}

	return MetricValue{value: value, unit: unit}, nil
}

func (mv MetricValue) Raw() float64 {
	return mv.value
}

// Rounded округляет до двух знаков, как в отчетах
func (mv MetricValue) Rounded() float64 {
	return math.Round(mv.value*100) / 100
}

func (mv MetricValue) Unit() string {
	return mv.unit
}

// IsZero сообщает, что измерения не было
func (mv MetricValue) IsZero() bool {
	return mv.unit == ""
}

func (mv MetricValue) String() string {
	if mv.IsZero() {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%s", mv.value, mv.unit)
}
