package scheduler

import (
	"errors"
	"time"

	"github.com/dreschagin/sre-monitor/internal/application/dto"
)

// ErrCycleInProgress возвращается при попытке запустить цикл во время выполнения другого
var ErrCycleInProgress = errors.New("cycle already in progress")

type State string

const (
	StateIdle    State = "Idle"
	StateRunning State = "Running"
	StateWaiting State = "Waiting"
)

// Snapshot состояние планировщика для /status и readiness
type Snapshot struct {
	State       State                  `json:"state"`
	StartedAt   time.Time              `json:"started_at"`
	LastRunAt   time.Time              `json:"last_run_at,omitempty"`
	NextRunAt   time.Time              `json:"next_run_at,omitempty"`
	LastError   string                 `json:"last_error,omitempty"`
	LastResult  *dto.WorkflowResultDTO `json:"last_result,omitempty"`
	CycleCount  int64                  `json:"cycle_count"`
	MinInterval time.Duration          `json:"min_interval"`
	MaxInterval time.Duration          `json:"max_interval"`
}
