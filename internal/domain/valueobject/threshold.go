package valueobject

import (
	"errors"
	"fmt"
	"math"
)

// Threshold задает пару порогов WARN/CRIT для одного домена (Value Object).
// Сравнение включающее: значение на границе получает более высокий статус.
type Threshold struct {
	warn float64
	crit float64
}

// NewThreshold создает Threshold с валидацией
func NewThreshold(warn, crit float64) (Threshold, error) {
	if math.IsNaN(warn) || math.IsNaN(crit) {
		return Threshold{}, errors.New("threshold cannot be NaN")
	}
	if warn < 0 || crit < 0 {
		return Threshold{}, errors.New("threshold cannot be negative")
	}
	if warn > crit {
		return Threshold{}, fmt.Errorf("warn threshold %.2f exceeds crit threshold %.2f", warn, crit)
	}
	return Threshold{warn: warn, crit: crit}, nil
}

// MustThreshold используется для статических значений по умолчанию
func MustThreshold(warn, crit float64) Threshold {
	t, err := NewThreshold(warn, crit)
	if err != nil {
		panic(err)
	}
	return t
}

func (t Threshold) Warn() float64 {
	return t.warn
}

func (t Threshold) Crit() float64 {
	return t.crit
}

// Classify сравнивает значение с порогами, начиная с CRIT
func (t Threshold) Classify(value float64) Status {
	switch {
	case value >= t.crit:
		return StatusCrit
	case value >= t.warn:
		return StatusWarn
	default:
		return StatusOK
	}
}

// String возвращает строковое представление
func (t Threshold) String() string {
	return fmt.Sprintf("warn=%.2f crit=%.2f", t.warn, t.crit)
}
