package entity

import (
	"time"

	"github.com/dreschagin/sre-monitor/internal/domain/valueobject"
)

// Issue описывает одну найденную проблему
type Issue struct {
	Severity       valueobject.IssueSeverity
	Component      string
	Description    string
	Recommendation string
}

// AnalysisParams содержит поля для создания Analysis
type AnalysisParams struct {
	SnapshotID      string
	OverallStatus   valueobject.Status
	CriticalIssues  []Issue
	Warnings        []Issue
	Recommendations []string
	AnalyzedAt      time.Time
	NextCheckIn     time.Time
	Degraded        bool
	FailureReason   string
}

// Analysis представляет результат анализа одного snapshot.
// Деградированный анализ имеет ту же форму и отличается только флагом.
type Analysis struct {
	snapshotID      string
	overallStatus   valueobject.Status
	criticalIssues  []Issue
	warnings        []Issue
	recommendations []string
	analyzedAt      time.Time
	nextCheckIn     time.Time
	degraded        bool
	failureReason   string
}

// NewAnalysis создает Analysis (Factory Method)
func NewAnalysis(p AnalysisParams) *Analysis {
	return &Analysis{
		snapshotID:      p.SnapshotID,
		overallStatus:   p.OverallStatus,
		criticalIssues:  append([]Issue{}, p.CriticalIssues...),
		warnings:        append([]Issue{}, p.Warnings...),
		recommendations: append([]string{}, p.Recommendations...),
		analyzedAt:      p.AnalyzedAt.UTC(),
		nextCheckIn:     p.NextCheckIn.UTC(),
		degraded:        p.Degraded,
		failureReason:   p.FailureReason,
	}
}

func (a *Analysis) SnapshotID() string {
	return a.snapshotID
}

func (a *Analysis) OverallStatus() valueobject.Status {
	return a.overallStatus
}

// CriticalIssues возвращает копию списка критических проблем
func (a *Analysis) CriticalIssues() []Issue {
	return append([]Issue{}, a.criticalIssues...)
}

// Warnings возвращает копию списка предупреждений
func (a *Analysis) Warnings() []Issue {
	return append([]Issue{}, a.warnings...)
}

// Recommendations возвращает общие рекомендации
func (a *Analysis) Recommendations() []string {
	return append([]string{}, a.recommendations...)
}

func (a *Analysis) AnalyzedAt() time.Time {
	return a.analyzedAt
}

// NextCheckIn возвращает абсолютное время следующей проверки
func (a *Analysis) NextCheckIn() time.Time {
	return a.nextCheckIn
}

// Delay возвращает интервал до следующей проверки относительно now
func (a *Analysis) Delay(now time.Time) time.Duration {
	return a.nextCheckIn.Sub(now)
}

func (a *Analysis) IsDegraded() bool {
	return a.degraded
}

func (a *Analysis) FailureReason() string {
	return a.failureReason
}
