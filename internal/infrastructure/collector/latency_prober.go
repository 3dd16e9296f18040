package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dreschagin/sre-monitor/internal/application/port"
	"github.com/dreschagin/sre-monitor/internal/domain/valueobject"
)

const (
	probeUserAgent = "SRE-Monitoring-Tool/1.0"
	probePause     = 100 * time.Millisecond
)

// HTTPLatencyProber измеряет время ответа серией HEAD запросов
// Реализует интерфейс port.LatencyProber
type HTTPLatencyProber struct {
	client *http.Client
	pause  time.Duration
}

// NewHTTPLatencyProber создает prober. nil client заменяется клиентом по умолчанию.
func NewHTTPLatencyProber(client *http.Client) *HTTPLatencyProber {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPLatencyProber{client: client, pause: probePause}
}

// Probe выполняет cfg.Attempts последовательных запросов.
// Таймаут попытки записывается значением таймаута без ошибки;
// не-2xx ответ или сетевая ошибка записываются как ошибка попытки.
func (p *HTTPLatencyProber) Probe(ctx context.Context, cfg port.LatencyProbeConfig) (valueobject.LatencySample, error) {
	if err := cfg.Validate(); err != nil {
		return valueobject.LatencySample{}, err
	}

	timeoutMs := float64(cfg.Timeout) / float64(time.Millisecond)
	sample := valueobject.LatencySample{
		URL:       cfg.URL,
		Attempts:  cfg.Attempts,
		TimeoutMs: timeoutMs,
		Samples:   make([]float64, 0, cfg.Attempts),
		Errors:    []string{},
	}

	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		if ctx.Err() != nil {
			break
		}

		elapsedMs, errMsg := p.attempt(ctx, cfg)
		if errMsg != "" {
			sample.Errors = append(sample.Errors, fmt.Sprintf("Attempt %d: %s", attempt, errMsg))
		}
		sample.Samples = append(sample.Samples, elapsedMs)
		if elapsedMs < timeoutMs {
			sample.SuccessCount++
		}

		if attempt < cfg.Attempts {
			select {
			case <-ctx.Done():
			case <-time.After(p.pause):
			}
		}
	}

	// отмененная серия дополняется таймаутами до полной длины
	for len(sample.Samples) < cfg.Attempts {
		sample.Samples = append(sample.Samples, timeoutMs)
	}

	return sample, nil
}

// attempt возвращает задержку в мс и текст ошибки (пустой при успехе и таймауте)
func (p *HTTPLatencyProber) attempt(ctx context.Context, cfg port.LatencyProbeConfig) (float64, string) {
	timeoutMs := float64(cfg.Timeout) / float64(time.Millisecond)

	attemptCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodHead, cfg.URL, nil)
	if err != nil {
		return timeoutMs, err.Error()
	}
	req.Header.Set("User-Agent", probeUserAgent)

	start := time.Now()
	resp, err := p.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return timeoutMs, ""
		}
		return timeoutMs, err.Error()
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return timeoutMs, fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	return float64(elapsed) / float64(time.Millisecond), ""
}
