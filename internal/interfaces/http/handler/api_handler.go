package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dreschagin/sre-monitor/internal/application/dto"
	"github.com/dreschagin/sre-monitor/internal/application/port"
	"github.com/dreschagin/sre-monitor/internal/application/usecase"
	"github.com/dreschagin/sre-monitor/internal/domain/repository"
	"github.com/dreschagin/sre-monitor/internal/domain/valueobject"
	"github.com/dreschagin/sre-monitor/internal/interfaces/http/middleware"
	"github.com/dreschagin/sre-monitor/pkg/logger"
)

const defaultHistoryWindow = 24 * time.Hour

type currentAnalysisReader interface {
	Execute(ctx context.Context) (*dto.CycleReportDTO, error)
}

type cycleHistoryReader interface {
	Execute(ctx context.Context, timeRange valueobject.TimeRange, limit int) (*dto.CycleHistoryDTO, error)
}

type reportLister interface {
	Execute(ctx context.Context, cmd usecase.ListReportsCommand) (*usecase.ListReportsResult, error)
}

// APIHandler обрабатывает read-only API: текущий анализ, история, архив
type APIHandler struct {
	current     currentAnalysisReader
	history     cycleHistoryReader
	reports     reportLister
	maxDuration time.Duration
	logger      *logger.Logger
	now         func() time.Time
}

// NewAPIHandler создает новый handler
func NewAPIHandler(
	current currentAnalysisReader,
	history cycleHistoryReader,
	reports reportLister,
	maxDuration time.Duration,
	logger *logger.Logger,
) *APIHandler {
	if maxDuration <= 0 {
		maxDuration = 30 * 24 * time.Hour
	}

	return &APIHandler{
		current:     current,
		history:     history,
		reports:     reports,
		maxDuration: maxDuration,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// GetCurrentAnalysis возвращает отчет последнего цикла
func (h *APIHandler) GetCurrentAnalysis(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	report, err := h.current.Execute(r.Context())
	if errors.Is(err, repository.ErrNotFound) {
		http.Error(w, "No monitoring cycle completed yet", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("Failed to get current analysis", err)
		http.Error(w, "Failed to fetch current analysis", http.StatusInternalServerError)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, report)
}

// GetCycles возвращает историю циклов за диапазон from..to (RFC3339).
// Без параметров берутся последние 24 часа.
func (h *APIHandler) GetCycles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()

	to := h.now()
	from := to.Add(-defaultHistoryWindow)
	var err error
	if raw := query.Get("to"); raw != "" {
		if to, err = time.Parse(time.RFC3339, raw); err != nil {
			http.Error(w, "Invalid 'to' parameter, expected RFC3339", http.StatusBadRequest)
			return
		}
		if query.Get("from") == "" {
			from = to.Add(-defaultHistoryWindow)
		}
	}
	if raw := query.Get("from"); raw != "" {
		if from, err = time.Parse(time.RFC3339, raw); err != nil {
			http.Error(w, "Invalid 'from' parameter, expected RFC3339", http.StatusBadRequest)
			return
		}
	}

	timeRange, err := valueobject.NewTimeRange(from, to)
	if err != nil {
		http.Error(w, "Invalid time range", http.StatusBadRequest)
		return
	}
	if timeRange.Duration() > h.maxDuration {
		http.Error(w, "Time range out of allowed range", http.StatusBadRequest)
		return
	}

	limit, err := parseLimit(query.Get("limit"))
	if err != nil {
		http.Error(w, "Invalid 'limit' parameter", http.StatusBadRequest)
		return
	}

	history, err := h.history.Execute(r.Context(), timeRange, limit)
	if errors.Is(err, usecase.ErrHistoryUnavailable) {
		http.Error(w, "Cycle history is not configured", http.StatusServiceUnavailable)
		return
	}
	if err != nil {
		h.logger.Error("Failed to get cycle history", err)
		http.Error(w, "Failed to fetch cycle history", http.StatusInternalServerError)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, history)
}

type reportItemResponse struct {
	CycleID       string    `json:"cycle_id"`
	Host          string    `json:"host"`
	OverallStatus string    `json:"overall_status"`
	URL           string    `json:"url"`
	SizeBytes     int64     `json:"size_bytes"`
	IssueCount    int       `json:"issue_count"`
	WarningCount  int       `json:"warning_count"`
	CapturedAt    time.Time `json:"captured_at"`
}

type reportListResponse struct {
	Items      []reportItemResponse `json:"items"`
	NextCursor string               `json:"next_cursor,omitempty"`
}

// ListReports возвращает страницу архивных отчетов из индекса
func (h *APIHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()

	limit, err := parseLimit(query.Get("limit"))
	if err != nil {
		http.Error(w, "Invalid 'limit' parameter", http.StatusBadRequest)
		return
	}

	cmd := usecase.ListReportsCommand{
		Host:   query.Get("host"),
		Status: query.Get("status"),
		Limit:  limit,
		Cursor: query.Get("cursor"),
	}
	if raw := query.Get("from"); raw != "" {
		if cmd.From, err = time.Parse(time.RFC3339, raw); err != nil {
			http.Error(w, "Invalid 'from' parameter, expected RFC3339", http.StatusBadRequest)
			return
		}
	}
	if raw := query.Get("to"); raw != "" {
		if cmd.To, err = time.Parse(time.RFC3339, raw); err != nil {
			http.Error(w, "Invalid 'to' parameter, expected RFC3339", http.StatusBadRequest)
			return
		}
	}

	result, err := h.reports.Execute(r.Context(), cmd)
	switch {
	case errors.Is(err, usecase.ErrArchiveUnavailable):
		http.Error(w, "Report archive is not configured", http.StatusServiceUnavailable)
		return
	case errors.Is(err, port.ErrInvalidReportQuery):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		h.logger.Error("Failed to list reports", err)
		http.Error(w, "Failed to list reports", http.StatusInternalServerError)
		return
	}

	response := reportListResponse{
		Items:      make([]reportItemResponse, 0, len(result.Items)),
		NextCursor: result.NextCursor,
	}
	for _, item := range result.Items {
		response.Items = append(response.Items, reportItemResponse{
			CycleID:       item.CycleID,
			Host:          item.Host,
			OverallStatus: item.OverallStatus,
			URL:           item.URL,
			SizeBytes:     item.SizeBytes,
			IssueCount:    item.IssueCount,
			WarningCount:  item.WarningCount,
			CapturedAt:    item.CapturedAt,
		})
	}

	middleware.WriteJSON(w, http.StatusOK, response)
}

func parseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, errors.New("invalid limit")
	}
	return limit, nil
}
