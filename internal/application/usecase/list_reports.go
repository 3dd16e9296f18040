package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dreschagin/sre-monitor/internal/application/port"
	"github.com/dreschagin/sre-monitor/internal/domain/valueobject"
	"github.com/dreschagin/sre-monitor/pkg/logger"
)

// ErrArchiveUnavailable возвращается, если индекс архива не настроен
var ErrArchiveUnavailable = errors.New("report archive is not configured")

type ListReportsCommand struct {
	Host   string
	Status string
	Limit  int
	Cursor string
	From   time.Time
	To     time.Time
}

type ListReportsResult struct {
	Items      []port.ReportMetadata
	NextCursor string
}

type ListReportsConfig struct {
	DefaultHost  string
	DefaultLimit int
	MaxLimit     int
}

type ListReportsUseCase struct {
	storage port.ReportStorage
	index   port.ReportIndex
	config  ListReportsConfig
	logger  *logger.Logger
}

func NewListReportsUseCase(
	storage port.ReportStorage,
	index port.ReportIndex,
	config ListReportsConfig,
	log *logger.Logger,
) *ListReportsUseCase {
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = 24
	}
	if config.MaxLimit <= 0 {
		config.MaxLimit = 100
	}
	return &ListReportsUseCase{
		storage: storage,
		index:   index,
		config:  config,
		logger:  log,
	}
}

func (uc *ListReportsUseCase) Execute(ctx context.Context, cmd ListReportsCommand) (*ListReportsResult, error) {
	if uc.index == nil {
		return nil, ErrArchiveUnavailable
	}

	host := strings.TrimSpace(cmd.Host)
	if host == "" {
		host = uc.config.DefaultHost
	}
	if !hostRegex.MatchString(host) {
		return nil, fmt.Errorf("%w: invalid host", port.ErrInvalidReportQuery)
	}

	status := strings.TrimSpace(cmd.Status)
	if status != "" {
		parsed, err := valueobject.ParseStatus(status)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", port.ErrInvalidReportQuery, err)
		}
		status = parsed.String()
	}

	limit := cmd.Limit
	if limit <= 0 {
		limit = uc.config.DefaultLimit
	}
	if limit > uc.config.MaxLimit {
		limit = uc.config.MaxLimit
	}

	if !cmd.From.IsZero() && !cmd.To.IsZero() && cmd.From.After(cmd.To) {
		return nil, fmt.Errorf("%w: from must be less than or equal to to", port.ErrInvalidReportQuery)
	}

	page, err := uc.index.List(ctx, port.ReportListQuery{
		Host:   host,
		Status: status,
		Limit:  limit,
		Cursor: strings.TrimSpace(cmd.Cursor),
		From:   cmd.From.UTC(),
		To:     cmd.To.UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	items := make([]port.ReportMetadata, 0, len(page.Items))
	for _, record := range page.Items {
		// presigned URL в индексе мог истечь
		if uc.storage != nil {
			if url, err := uc.storage.GetObjectURL(ctx, record.S3Key); err == nil {
				record.URL = url
			} else if uc.logger != nil {
				uc.logger.Warn("Failed to refresh report URL", "s3_key", record.S3Key, "error", err.Error())
			}
		}
		items = append(items, record)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].CapturedAt.After(items[j].CapturedAt)
	})

	return &ListReportsResult{
		Items:      items,
		NextCursor: page.NextCursor,
	}, nil
}
