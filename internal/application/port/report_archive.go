package port

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidReportQuery ошибка параметров выборки архива (фильтры, курсор)
var ErrInvalidReportQuery = errors.New("invalid report query")

// ReportStorage определяет интерфейс хранения архивных отчетов циклов.
type ReportStorage interface {
	// PutObject загружает объект и возвращает URL для чтения.
	PutObject(ctx context.Context, key, contentType string, body []byte) (string, error)

	// GetObjectURL возвращает URL для чтения объекта.
	GetObjectURL(ctx context.Context, key string) (string, error)
}

// ReportMetadata представляет метаданные архивного отчета.
type ReportMetadata struct {
	CycleID       string
	Host          string
	OverallStatus string
	S3Key         string
	URL           string
	SizeBytes     int64
	IssueCount    int
	WarningCount  int
	CapturedAt    time.Time
	ExpiresAt     time.Time
}

// ReportListQuery определяет параметры выборки архива.
type ReportListQuery struct {
	Host   string
	Status string
	Limit  int
	Cursor string
	From   time.Time
	To     time.Time
}

// ReportListPage содержит результат выборки и курсор следующей страницы.
type ReportListPage struct {
	Items      []ReportMetadata
	NextCursor string
}

// ReportIndex определяет интерфейс индекса архивных отчетов.
type ReportIndex interface {
	Put(ctx context.Context, record ReportMetadata) error
	List(ctx context.Context, query ReportListQuery) (ReportListPage, error)
}
