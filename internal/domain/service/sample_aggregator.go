package service

import (
	"errors"
	"math"
	"sort"
)

// ErrEmptySample возвращается при агрегации пустой выборки
var ErrEmptySample = errors.New("no samples to aggregate")

// SampleStats содержит статистику по выборке
type SampleStats struct {
	Count       int
	Avg         float64
	Min         float64
	Max         float64
	P95         float64
	P99         float64
	IsStable    bool
	HasOutliers bool
}

// SampleAggregator предоставляет сервисы для агрегации выборок (Domain Service)
type SampleAggregator struct{}

// NewSampleAggregator создает новый SampleAggregator
func NewSampleAggregator() *SampleAggregator {
	return &SampleAggregator{}
}

// CalculateAverage вычисляет среднее арифметическое
func (a *SampleAggregator) CalculateAverage(samples []float64) (float64, error) {
	if len(samples) == 0 {
		return 0, ErrEmptySample
	}

	var sum float64
	for _, s := range samples {
		sum += s
	}

	return sum / float64(len(samples)), nil
}

// SortAscending возвращает отсортированную копию выборки
func (a *SampleAggregator) SortAscending(samples []float64) []float64 {
	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)
	return sorted
}

// CalculatePercentile возвращает элемент отсортированной выборки с индексом
// floor(percentile/100 * (n-1)), без интерполяции
func (a *SampleAggregator) CalculatePercentile(sorted []float64, percentile float64) (float64, error) {
	if len(sorted) == 0 {
		return 0, ErrEmptySample
	}

	if percentile < 0 || percentile > 100 {
		return 0, errors.New("percentile must be between 0 and 100")
	}

	index := int(math.Floor(percentile / 100 * float64(len(sorted)-1)))

	return sorted[index], nil
}

// Summarize вычисляет полную статистику выборки.
// Для пустой выборки возвращается нулевая статистика.
func (a *SampleAggregator) Summarize(samples []float64) SampleStats {
	if len(samples) == 0 {
		return SampleStats{}
	}

	sorted := a.SortAscending(samples)
	avg, _ := a.CalculateAverage(samples)
	p95, _ := a.CalculatePercentile(sorted, 95)
	p99, _ := a.CalculatePercentile(sorted, 99)

	stats := SampleStats{
		Count: len(samples),
		Avg:   avg,
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		P95:   p95,
		P99:   p99,
	}
	stats.IsStable = stats.Max-stats.Min < stats.Avg*0.5
	stats.HasOutliers = stats.Max > stats.Avg*3

	return stats
}

// Round округляет значение до указанного числа знаков
func Round(value float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(value*factor) / factor
}
