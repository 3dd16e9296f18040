package valueobject

import "errors"

// MetricType представляет домен мониторинга (Value Object)
type MetricType string

const (
	Disk      MetricType = "disk"
	Memory    MetricType = "memory"
	CPU       MetricType = "cpu"
	Network   MetricType = "network"
	Processes MetricType = "processes"
	Latency   MetricType = "latency"
)

// Validate проверяет валидность типа метрики
func (mt MetricType) Validate() error {
	switch mt {
	case Disk, Memory, CPU, Network, Processes, Latency:
		return nil
	default:
		return errors.New("invalid metric type")
	}
}

// String возвращает строковое представление типа метрики
func (mt MetricType) String() string {
	return string(mt)
}

// Unit возвращает единицу измерения основного значения домена
func (mt MetricType) Unit() string {
	switch mt {
	case Disk, Memory, CPU:
		return "%"
	case Network:
		return "errors"
	case Processes:
		return "count"
	case Latency:
		return "ms"
	default:
		return ""
	}
}

// AllMetricTypes возвращает список всех доменов в порядке отчета
func AllMetricTypes() []MetricType {
	return []MetricType{Disk, Memory, CPU, Network, Processes, Latency}
}
