package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dreschagin/sre-monitor/internal/application/dto"
	"github.com/dreschagin/sre-monitor/internal/application/port"
	"github.com/dreschagin/sre-monitor/pkg/logger"
)

var hostRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]{1,64}$`)

type ArchiveReportConfig struct {
	Host      string
	KeyPrefix string
	TTL       time.Duration
}

type ArchiveReportUseCase struct {
	storage port.ReportStorage
	index   port.ReportIndex
	config  ArchiveReportConfig
	logger  *logger.Logger
}

func NewArchiveReportUseCase(
	storage port.ReportStorage,
	index port.ReportIndex,
	config ArchiveReportConfig,
	log *logger.Logger,
) (*ArchiveReportUseCase, error) {
	config.Host = strings.TrimSpace(config.Host)
	if !hostRegex.MatchString(config.Host) {
		return nil, fmt.Errorf("invalid archive host: %q", config.Host)
	}

	return &ArchiveReportUseCase{
		storage: storage,
		index:   index,
		config:  config,
		logger:  log,
	}, nil
}

// Execute загружает JSON отчет в хранилище и записывает его в индекс.
// Сбой индекса не отменяет загрузку.
func (uc *ArchiveReportUseCase) Execute(ctx context.Context, report *dto.CycleReportDTO) (*port.ReportMetadata, error) {
	if uc.storage == nil {
		return nil, fmt.Errorf("report storage is not configured")
	}
	if report == nil || report.CycleID == "" {
		return nil, fmt.Errorf("report with cycle_id is required")
	}

	body, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}

	capturedAt := report.Timestamp.UTC()
	if capturedAt.IsZero() {
		capturedAt = time.Now().UTC()
	}

	key := uc.buildS3Key(report.CycleID, capturedAt)
	url, err := uc.storage.PutObject(ctx, key, "application/json", body)
	if err != nil {
		return nil, fmt.Errorf("failed to upload report %s: %w", report.CycleID, err)
	}

	record := port.ReportMetadata{
		CycleID:       report.CycleID,
		Host:          uc.config.Host,
		OverallStatus: report.OverallStatus,
		S3Key:         key,
		URL:           url,
		SizeBytes:     int64(len(body)),
		CapturedAt:    capturedAt,
	}
	if report.Analysis != nil {
		record.IssueCount = len(report.Analysis.CriticalIssues)
		record.WarningCount = len(report.Analysis.Warnings)
	}
	if uc.config.TTL > 0 {
		record.ExpiresAt = capturedAt.Add(uc.config.TTL)
	}

	if uc.index != nil {
		if err := uc.index.Put(ctx, record); err != nil {
			uc.logger.Error("Failed to index archived report", err,
				"cycle_id", report.CycleID,
				"s3_key", key,
			)
		}
	}

	uc.logger.Debug("Cycle report archived", "cycle_id", report.CycleID, "s3_key", key, "size", len(body))

	return &record, nil
}

func (uc *ArchiveReportUseCase) buildS3Key(cycleID string, capturedAt time.Time) string {
	prefix := strings.Trim(uc.config.KeyPrefix, "/")
	if prefix == "" {
		prefix = "reports"
	}

	timestamp := capturedAt.Format("20060102T150405Z")
	datePrefix := capturedAt.Format("2006/01/02")

	return fmt.Sprintf("%s/%s/%s/%s_%s.json", prefix, uc.config.Host, datePrefix, timestamp, cycleID)
}
