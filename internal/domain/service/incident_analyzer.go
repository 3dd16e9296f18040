package service

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dreschagin/sre-monitor/internal/domain/entity"
	"github.com/dreschagin/sre-monitor/internal/domain/valueobject"
)

const (
	critCheckIn     = 5 * time.Minute
	warnCheckIn     = 15 * time.Minute
	okCheckIn       = 30 * time.Minute
	degradedCheckIn = 5 * time.Minute
)

// NextCheckInDelay возвращает интервал до следующей проверки для статуса
func NextCheckInDelay(status valueobject.Status) time.Duration {
	switch status {
	case valueobject.StatusCrit:
		return critCheckIn
	case valueobject.StatusWarn:
		return warnCheckIn
	default:
		return okCheckIn
	}
}

// issueRule описывает тексты и серьезность проблем одного домена
type issueRule struct {
	component string
	severity  valueobject.IssueSeverity
	critText  func(value float64) string
	critHint  string
	warnText  func(value float64) string
	warnHint  string
}

// analysisOrder задает порядок проблем в отчете
var analysisOrder = []valueobject.MetricType{
	valueobject.Disk,
	valueobject.Memory,
	valueobject.Latency,
	valueobject.CPU,
	valueobject.Network,
	valueobject.Processes,
}

var issueRules = map[valueobject.MetricType]issueRule{
	valueobject.Disk: {
		component: "Disk",
		severity:  valueobject.SeverityCritical,
		critText:  func(v float64) string { return "Critical disk usage: " + formatNumber(v) + "%" },
		critHint:  "Immediate action required: Clean up disk space or expand storage",
		warnText:  func(v float64) string { return "High disk usage: " + formatNumber(v) + "%" },
		warnHint:  "Monitor closely and plan for storage cleanup",
	},
	valueobject.Memory: {
		component: "Memory",
		severity:  valueobject.SeverityCritical,
		critText:  func(v float64) string { return "Critical memory usage: " + formatNumber(v) + "%" },
		critHint:  "Immediate action: Restart services or add more RAM",
		warnText:  func(v float64) string { return "High memory usage: " + formatNumber(v) + "%" },
		warnHint:  "Investigate memory leaks and optimize applications",
	},
	valueobject.Latency: {
		component: "Network Latency",
		severity:  valueobject.SeverityHigh,
		critText:  func(v float64) string { return "Critical latency: " + formatNumber(Round(v, 0)) + "ms average" },
		critHint:  "Check network infrastructure and server performance",
		warnText:  func(v float64) string { return "High latency: " + formatNumber(Round(v, 0)) + "ms average" },
		warnHint:  "Monitor network performance and optimize routing",
	},
	valueobject.CPU: {
		component: "CPU",
		severity:  valueobject.SeverityHigh,
		critText:  func(v float64) string { return "Critical CPU usage: " + formatNumber(v) + "%" },
		critHint:  "Investigate high-CPU processes and consider scaling",
		warnText:  func(v float64) string { return "High CPU usage: " + formatNumber(v) + "%" },
		warnHint:  "Monitor CPU trends and optimize resource usage",
	},
	valueobject.Network: {
		component: "Network",
		severity:  valueobject.SeverityHigh,
		critText:  func(v float64) string { return "Network errors detected: " + formatNumber(v) },
		critHint:  "Check network interfaces and resolve connectivity issues",
		warnText:  func(float64) string { return "Network warnings detected" },
		warnHint:  "Monitor network performance and check for packet loss",
	},
	valueobject.Processes: {
		component: "Processes",
		severity:  valueobject.SeverityMedium,
		critText:  func(v float64) string { return "Critical process count: " + formatNumber(v) },
		critHint:  "Investigate process proliferation and clean up zombies",
		warnText:  func(v float64) string { return "High process count: " + formatNumber(v) },
		warnHint:  "Monitor process trends and optimize resource usage",
	},
}

var generalRecommendations = map[valueobject.Status][]string{
	valueobject.StatusOK: {
		"System is healthy, continue monitoring",
		"Schedule regular maintenance windows",
	},
	valueobject.StatusWarn: {
		"Address warnings before they become critical",
		"Increase monitoring frequency",
	},
	valueobject.StatusCrit: {
		"Immediate attention required for critical issues",
		"Consider emergency maintenance window",
		"Notify on-call engineers",
	},
}

// AnalysisResult содержит либо обычный, либо деградированный анализ.
// Analysis() никогда не возвращает nil.
type AnalysisResult struct {
	analysis *entity.Analysis
	failure  error
}

// Analysis возвращает результат анализа
func (r AnalysisResult) Analysis() *entity.Analysis {
	return r.analysis
}

// Degraded возвращает true, если анализ не удался и результат синтетический
func (r AnalysisResult) Degraded() bool {
	return r.failure != nil
}

// Failure возвращает причину деградации
func (r AnalysisResult) Failure() error {
	return r.failure
}

// IncidentAnalyzer превращает snapshot цикла в анализ инцидентов (Domain Service)
type IncidentAnalyzer struct{}

// NewIncidentAnalyzer создает новый IncidentAnalyzer
func NewIncidentAnalyzer() *IncidentAnalyzer {
	return &IncidentAnalyzer{}
}

// Analyze выполняет анализ. Внутренние ошибки не пробрасываются:
// вместо них возвращается деградированный анализ со статусом WARN.
func (a *IncidentAnalyzer) Analyze(snapshot *entity.CycleSnapshot, now time.Time) (result AnalysisResult) {
	defer func() {
		if r := recover(); r != nil {
			result = degradedResult(snapshotID(snapshot), fmt.Errorf("analysis panicked: %v", r), now)
		}
	}()

	if snapshot == nil {
		return degradedResult("", fmt.Errorf("%w: snapshot is nil", entity.ErrInvalidSnapshot), now)
	}

	var criticalIssues, warnings []entity.Issue
	for _, metricType := range analysisOrder {
		report := snapshot.Report(metricType)
		rule := issueRules[metricType]

		value := report.Value().Raw()
		switch report.Status() {
		case valueobject.StatusCrit:
			criticalIssues = append(criticalIssues, entity.Issue{
				Severity:       rule.severity,
				Component:      rule.component,
				Description:    rule.critText(value),
				Recommendation: rule.critHint,
			})
		case valueobject.StatusWarn:
			warnings = append(warnings, entity.Issue{
				Component:      rule.component,
				Description:    rule.warnText(value),
				Recommendation: rule.warnHint,
			})
		}
	}

	overall := valueobject.StatusOK
	if len(criticalIssues) > 0 {
		overall = valueobject.StatusCrit
	} else if len(warnings) > 0 {
		overall = valueobject.StatusWarn
	}

	if overall != snapshot.OverallStatus() {
		return degradedResult(snapshot.ID(),
			fmt.Errorf("analysis status %s disagrees with snapshot status %s", overall, snapshot.OverallStatus()), now)
	}

	return AnalysisResult{
		analysis: entity.NewAnalysis(entity.AnalysisParams{
			SnapshotID:      snapshot.ID(),
			OverallStatus:   overall,
			CriticalIssues:  criticalIssues,
			Warnings:        warnings,
			Recommendations: generalRecommendations[overall],
			AnalyzedAt:      now,
			NextCheckIn:     now.Add(NextCheckInDelay(overall)),
		}),
	}
}

func degradedResult(id string, failure error, now time.Time) AnalysisResult {
	return AnalysisResult{
		analysis: entity.NewAnalysis(entity.AnalysisParams{
			SnapshotID:    id,
			OverallStatus: valueobject.StatusWarn,
			CriticalIssues: []entity.Issue{{
				Severity:       valueobject.SeverityHigh,
				Component:      "Analysis Engine",
				Description:    "Failed to analyze metrics",
				Recommendation: "Check analysis step implementation and logs",
			}},
			Recommendations: []string{
				"Review analysis step logs",
				"Verify data format",
			},
			AnalyzedAt:    now,
			NextCheckIn:   now.Add(degradedCheckIn),
			Degraded:      true,
			FailureReason: failure.Error(),
		}),
		failure: failure,
	}
}

func snapshotID(snapshot *entity.CycleSnapshot) string {
	if snapshot == nil {
		return ""
	}
	return snapshot.ID()
}

// formatNumber печатает число без лишних нулей: 95, 95.5, 95.25
func formatNumber(v float64) string {
	return strconv.FormatFloat(Round(v, 2), 'f', -1, 64)
}
