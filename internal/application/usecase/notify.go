package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dreschagin/sre-monitor/internal/application/dto"
	"github.com/dreschagin/sre-monitor/internal/application/port"
	"github.com/dreschagin/sre-monitor/internal/domain/entity"
	"github.com/dreschagin/sre-monitor/internal/domain/valueobject"
	"github.com/dreschagin/sre-monitor/pkg/logger"
)

// Каналы уведомлений
const (
	ChannelAlerts     = "alerts"
	ChannelMonitoring = "monitoring"
)

var oncallRecipients = []string{"sre-team", "oncall"}

// BuildNotificationIntent строит уведомление из анализа без побочных эффектов
func BuildNotificationIntent(analysis *entity.Analysis) port.NotificationIntent {
	status := analysis.OverallStatus()
	nextCheckIn := analysis.NextCheckIn().Format(time.RFC3339)

	var b strings.Builder
	intent := port.NotificationIntent{
		Channel:      ChannelMonitoring,
		SeverityBand: status.String(),
		Recipients:   []string{},
	}

	switch status {
	case valueobject.StatusCrit:
		intent.Channel = ChannelAlerts
		intent.Recipients = append([]string{}, oncallRecipients...)

		b.WriteString("🚨 *CRITICAL ALERT* - System health check failed\n\n")
		b.WriteString("*Critical Issues:*\n")
		writeIssues(&b, analysis.CriticalIssues())
		fmt.Fprintf(&b, "*Next Check-in:* %s\n", nextCheckIn)
		b.WriteString("*Immediate Action Required*")
	case valueobject.StatusWarn:
		b.WriteString("⚠️ *WARNING* - System health check warnings\n\n")
		b.WriteString("*Warnings:*\n")
		writeIssues(&b, analysis.Warnings())
		// деградированный анализ несет свою проблему в critical issues
		if analysis.IsDegraded() {
			writeIssues(&b, analysis.CriticalIssues())
		}
		fmt.Fprintf(&b, "*Next Check-in:* %s\n", nextCheckIn)
		b.WriteString("*Monitor closely*")
	default:
		b.WriteString("✅ *System Healthy* - All systems operational\n\n")
		b.WriteString("*Status:* All metrics within normal ranges\n")
		fmt.Fprintf(&b, "*Next Check-in:* %s\n", nextCheckIn)
		b.WriteString("*Continue monitoring*")
	}

	if recommendations := analysis.Recommendations(); len(recommendations) > 0 {
		b.WriteString("\n\n*Recommendations:*\n")
		for _, rec := range recommendations {
			fmt.Fprintf(&b, "• %s\n", rec)
		}
	}

	intent.Message = b.String()
	return intent
}

func writeIssues(b *strings.Builder, issues []entity.Issue) {
	for _, issue := range issues {
		fmt.Fprintf(b, "• %s: %s\n", issue.Component, issue.Description)
		fmt.Fprintf(b, "  Recommendation: %s\n\n", issue.Recommendation)
	}
}

// NotifyUseCase доставляет уведомление во все настроенные каналы
type NotifyUseCase struct {
	sinks   []port.NotificationService
	enabled bool
	metrics port.PipelineMetrics
	logger  *logger.Logger
}

// NewNotifyUseCase создает новый use case
func NewNotifyUseCase(
	sinks []port.NotificationService,
	enabled bool,
	metrics port.PipelineMetrics,
	logger *logger.Logger,
) *NotifyUseCase {
	return &NotifyUseCase{
		sinks:   sinks,
		enabled: enabled,
		metrics: metrics,
		logger:  logger,
	}
}

// Execute никогда не возвращает ошибку: любой сбой канала дает Sent=false
func (uc *NotifyUseCase) Execute(
	ctx context.Context,
	analysis *entity.Analysis,
	report *dto.CycleReportDTO,
) *dto.NotificationResultDTO {
	intent := BuildNotificationIntent(analysis)
	intent.Report = report

	result := &dto.NotificationResultDTO{Channel: intent.Channel}

	if !uc.enabled {
		result.Error = "notifications disabled"
		return result
	}
	if len(uc.sinks) == 0 {
		result.Error = "no notification sinks configured"
		return result
	}

	var errs []error
	for _, sink := range uc.sinks {
		err := uc.dispatch(ctx, sink, intent)
		if uc.metrics != nil {
			uc.metrics.ObserveNotification(sink.Name(), err == nil)
		}
		if err != nil {
			uc.logger.Error("Notification delivery failed", err,
				"sink", sink.Name(),
				"channel", intent.Channel,
			)
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
		}
	}

	if len(errs) > 0 {
		result.Error = errors.Join(errs...).Error()
		return result
	}

	result.Sent = true
	uc.logger.Info("Notification sent",
		"channel", intent.Channel,
		"severity", intent.SeverityBand,
		"sinks", len(uc.sinks),
		"message_length", len(intent.Message),
	)

	return result
}

func (uc *NotifyUseCase) dispatch(ctx context.Context, sink port.NotificationService, intent port.NotificationIntent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("notification sink panicked: %v", r)
		}
	}()
	return sink.Notify(ctx, intent)
}
