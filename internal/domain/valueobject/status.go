package valueobject

import (
	"errors"
	"strings"
)

// Status представляет статус метрики или всей системы (Value Object)
type Status string

const (
	StatusOK      Status = "OK"
	StatusWarn    Status = "WARN"
	StatusCrit    Status = "CRIT"
	StatusUnknown Status = "UNKNOWN"
)

// ErrInvalidStatus возвращается при разборе неизвестного статуса
var ErrInvalidStatus = errors.New("invalid status")

// ParseStatus разбирает строковое представление статуса
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if err := s.Validate(); err != nil {
		return "", err
	}
	return s, nil
}

// Validate проверяет валидность статуса
func (s Status) Validate() error {
	switch s {
	case StatusOK, StatusWarn, StatusCrit, StatusUnknown:
		return nil
	default:
		return ErrInvalidStatus
	}
}

// String возвращает строковое представление статуса
func (s Status) String() string {
	return string(s)
}

// Severity возвращает ранг статуса: OK(0) < WARN(1) < CRIT(2).
// UNKNOWN не участвует в сравнении и имеет ранг -1.
func (s Status) Severity() int {
	switch s {
	case StatusOK:
		return 0
	case StatusWarn:
		return 1
	case StatusCrit:
		return 2
	default:
		return -1
	}
}

// IsKnown возвращает false для UNKNOWN
func (s Status) IsKnown() bool {
	return s.Severity() >= 0
}

// Outcome переводит статус системы в итог выполнения цикла
func (s Status) Outcome() string {
	switch s {
	case StatusCrit:
		return "FAILED"
	case StatusWarn:
		return "PARTIAL"
	default:
		return "SUCCESS"
	}
}

// WorstStatus возвращает максимальный по severity статус.
// UNKNOWN пропускается; пустой набор или только UNKNOWN дают OK.
func WorstStatus(statuses ...Status) Status {
	worst := StatusOK
	for _, s := range statuses {
		if !s.IsKnown() {
			continue
		}
		if s.Severity() > worst.Severity() {
			worst = s
		}
	}
	return worst
}
