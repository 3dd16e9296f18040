package port

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/dreschagin/sre-monitor/internal/domain/valueobject"
)

// Границы конфигурации latency пробы
const (
	MinProbeAttempts = 1
	MaxProbeAttempts = 20
	MinProbeTimeout  = 100 * time.Millisecond
	MaxProbeTimeout  = 60 * time.Second
)

// ErrInvalidProbeConfig возвращается при некорректной конфигурации пробы
var ErrInvalidProbeConfig = errors.New("invalid probe config")

// LatencyProbeConfig определяет параметры серии HTTP проб
type LatencyProbeConfig struct {
	URL      string
	Attempts int
	Timeout  time.Duration
}

// Validate проверяет URL и границы attempts/timeout
func (c LatencyProbeConfig) Validate() error {
	parsed, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("%w: malformed url: %v", ErrInvalidProbeConfig, err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("%w: url must be absolute http(s): %q", ErrInvalidProbeConfig, c.URL)
	}
	if c.Attempts < MinProbeAttempts || c.Attempts > MaxProbeAttempts {
		return fmt.Errorf("%w: attempts must be between %d and %d, got %d",
			ErrInvalidProbeConfig, MinProbeAttempts, MaxProbeAttempts, c.Attempts)
	}
	if c.Timeout < MinProbeTimeout || c.Timeout > MaxProbeTimeout {
		return fmt.Errorf("%w: timeout must be between %s and %s, got %s",
			ErrInvalidProbeConfig, MinProbeTimeout, MaxProbeTimeout, c.Timeout)
	}
	return nil
}

// MetricsProvider определяет интерфейс чтения сырых данных хоста (Port)
// Реализация будет в Infrastructure слое
type MetricsProvider interface {
	// CollectDisk читает заполненность всех смонтированных томов
	CollectDisk(ctx context.Context) (valueobject.DiskReading, error)

	// CollectMemory читает использование памяти и swap
	CollectMemory(ctx context.Context) (valueobject.MemoryReading, error)

	// CollectCPU читает мгновенную загрузку CPU
	CollectCPU(ctx context.Context) (valueobject.CPUReading, error)

	// CollectNetwork читает счетчики ошибок и соединения
	CollectNetwork(ctx context.Context) (valueobject.NetworkReading, error)

	// CollectProcesses читает таблицу процессов
	CollectProcesses(ctx context.Context) (valueobject.ProcessReading, error)
}

// LatencyProber выполняет серию HTTP проб (Port).
// Сетевые ошибки не возвращаются: они записываются в sample.
// Ошибка возвращается только для некорректной конфигурации.
type LatencyProber interface {
	Probe(ctx context.Context, cfg LatencyProbeConfig) (valueobject.LatencySample, error)
}
