package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dreschagin/sre-monitor/internal/application/dto"
	"github.com/dreschagin/sre-monitor/pkg/logger"
)

const (
	defaultMinInterval = 30 * time.Second
	defaultMaxInterval = 3600 * time.Second
	defaultInterval    = 300 * time.Second
)

// CycleExecutor выполняет один полный цикл мониторинга
type CycleExecutor interface {
	Execute(ctx context.Context) (*dto.WorkflowResultDTO, error)
}

type Config struct {
	// FallbackInterval используется, если цикл завершился ошибкой
	FallbackInterval time.Duration
	MinInterval      time.Duration
	MaxInterval      time.Duration
}

// Runner запускает циклы по таймеру, который взводится по NextCheckIn анализа.
// Циклы никогда не пересекаются.
type Runner struct {
	cycle  CycleExecutor
	log    *logger.Logger
	config Config
	now    func() time.Time

	runMu sync.Mutex

	mu         sync.RWMutex
	state      State
	startedAt  time.Time
	lastRunAt  time.Time
	nextRunAt  time.Time
	lastError  string
	lastResult *dto.WorkflowResultDTO
	cycles     int64

	rearm    chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewRunner(cycle CycleExecutor, log *logger.Logger, cfg Config) *Runner {
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = defaultMinInterval
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = defaultMaxInterval
	}
	if cfg.MaxInterval < cfg.MinInterval {
		cfg.MaxInterval = cfg.MinInterval
	}
	if cfg.FallbackInterval <= 0 {
		cfg.FallbackInterval = defaultInterval
	}

	return &Runner{
		cycle:     cycle,
		log:       log,
		config:    cfg,
		now:       time.Now,
		state:     StateIdle,
		startedAt: time.Now(),
		rearm:     make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
}

// Start выполняет первый цикл сразу, затем следует таймеру.
// Возвращается при отмене ctx или вызове Stop.
func (r *Runner) Start(ctx context.Context) {
	defer r.markIdle()

	_, err := r.RunOnce(ctx)
	if err != nil && ctx.Err() != nil {
		return
	}
	if errors.Is(err, ErrCycleInProgress) && !r.waitRearm(ctx) {
		return
	}

	for {
		timer := time.NewTimer(r.delayUntilNext())

		select {
		case <-timer.C:
			if _, err := r.RunOnce(ctx); errors.Is(err, ErrCycleInProgress) {
				// ручной запуск уже идет; таймер перевзведется по его завершении
				if !r.waitRearm(ctx) {
					return
				}
			}
		case <-r.rearm:
			timer.Stop()
		case <-r.stopCh:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

// waitRearm ждет завершения чужого цикла. false при Stop или отмене ctx.
func (r *Runner) waitRearm(ctx context.Context) bool {
	select {
	case <-r.rearm:
		return true
	case <-r.stopCh:
		return false
	case <-ctx.Done():
		return false
	}
}

// Stop отменяет ожидающий таймер. Цикл в процессе выполнения завершится.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
	})
}

// Trigger запускает внеочередной цикл (ручной запуск)
func (r *Runner) Trigger(ctx context.Context) (*dto.WorkflowResultDTO, error) {
	return r.RunOnce(ctx)
}

// RunOnce выполняет один цикл. Во время выполнения другого цикла возвращает ErrCycleInProgress.
// Отмена ctx не прерывает начатый цикл: он ограничен собственными таймаутами проб.
func (r *Runner) RunOnce(ctx context.Context) (*dto.WorkflowResultDTO, error) {
	if !r.runMu.TryLock() {
		return nil, ErrCycleInProgress
	}
	defer r.runMu.Unlock()

	r.setState(StateRunning)

	result, err := r.cycle.Execute(context.WithoutCancel(ctx))
	runAt := r.now()

	if err != nil {
		wrappedErr := fmt.Errorf("monitoring cycle failed: %w", err)
		r.updateFailure(runAt, wrappedErr)
		r.log.Error("Monitoring cycle failed", wrappedErr,
			"next_run_at", r.Snapshot().NextRunAt.Format(time.RFC3339),
		)
		return nil, wrappedErr
	}

	r.updateSuccess(runAt, result)

	r.log.Info("Monitoring cycle scheduled",
		"status", result.Status,
		"next_run_at", r.Snapshot().NextRunAt.Format(time.RFC3339),
	)

	return result, nil
}

// Snapshot возвращает копию текущего состояния
func (r *Runner) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := Snapshot{
		State:       r.state,
		StartedAt:   r.startedAt,
		LastRunAt:   r.lastRunAt,
		NextRunAt:   r.nextRunAt,
		LastError:   r.lastError,
		CycleCount:  r.cycles,
		MinInterval: r.config.MinInterval,
		MaxInterval: r.config.MaxInterval,
	}

	if r.lastResult != nil {
		copied := *r.lastResult
		snapshot.LastResult = &copied
	}

	return snapshot
}

// Clamp ограничивает задержку до следующего цикла границами интервала
func (r *Runner) Clamp(delay time.Duration) time.Duration {
	if delay < r.config.MinInterval {
		return r.config.MinInterval
	}
	if delay > r.config.MaxInterval {
		return r.config.MaxInterval
	}
	return delay
}

func (r *Runner) delayUntilNext() time.Duration {
	r.mu.RLock()
	next := r.nextRunAt
	r.mu.RUnlock()

	delay := next.Sub(r.now())
	if delay < 0 {
		return 0
	}
	return delay
}

func (r *Runner) setState(state State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = state
}

func (r *Runner) markIdle() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateRunning {
		r.state = StateIdle
	}
}

func (r *Runner) updateFailure(runAt time.Time, err error) {
	r.mu.Lock()
	r.state = StateWaiting
	r.lastRunAt = runAt
	r.lastError = err.Error()
	r.nextRunAt = runAt.Add(r.Clamp(r.config.FallbackInterval))
	r.mu.Unlock()

	r.signalRearm()
}

func (r *Runner) updateSuccess(runAt time.Time, result *dto.WorkflowResultDTO) {
	delay := r.config.FallbackInterval
	if result != nil && !result.NextExecution.IsZero() {
		delay = result.NextExecution.Sub(runAt)
	}

	r.mu.Lock()
	r.state = StateWaiting
	r.lastRunAt = runAt
	r.lastError = ""
	r.lastResult = result
	r.cycles++
	r.nextRunAt = runAt.Add(r.Clamp(delay))
	r.mu.Unlock()

	r.signalRearm()
}

func (r *Runner) signalRearm() {
	select {
	case r.rearm <- struct{}{}:
	default:
	}
}
