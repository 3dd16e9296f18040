package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/dreschagin/sre-monitor/internal/domain/repository"
	"github.com/dreschagin/sre-monitor/internal/domain/valueobject"
)

const (
	cycleColumns  = `id, overall_status, analysis, collected_at, created_at`
	reportColumns = `cycle_id, metric_type, status, value, unit, details, raw_sample, recommendations, reason, collected_at`
)

// PostgresCycleRepository реализует repository.CycleRepository для PostgreSQL
type PostgresCycleRepository struct {
	db *sql.DB
}

// NewPostgresCycleRepository создает новый PostgreSQL repository
func NewPostgresCycleRepository(db *sql.DB) *PostgresCycleRepository {
	return &PostgresCycleRepository{
		db: db,
	}
}

// Save сохраняет цикл и все отчеты одной транзакцией
func (r *PostgresCycleRepository) Save(ctx context.Context, record repository.CycleRecord) error {
	cycle, reports, err := ToDBModels(record)
	if err != nil {
		return fmt.Errorf("failed to convert to DB model: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO cycles (`+cycleColumns+`)
		VALUES ($1, $2, $3, $4, $5)
	`,
		cycle.ID,
		cycle.OverallStatus,
		jsonParam(cycle.Analysis),
		cycle.CollectedAt,
		cycle.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert cycle: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO metric_reports (`+reportColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, report := range reports {
		_, err = stmt.ExecContext(ctx,
			report.CycleID,
			report.MetricType,
			report.Status,
			report.Value,
			report.Unit,
			jsonParam(report.Details),
			jsonParam(report.RawSample),
			jsonParam(report.Recommendations),
			report.Reason,
			report.CollectedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert %s report: %w", report.MetricType, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// FindByID находит цикл по идентификатору
func (r *PostgresCycleRepository) FindByID(ctx context.Context, id string) (*repository.CycleRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+cycleColumns+` FROM cycles WHERE id = $1`, id)
	return r.loadOne(ctx, row, id)
}

// FindLatest возвращает последний сохраненный цикл
func (r *PostgresCycleRepository) FindLatest(ctx context.Context) (*repository.CycleRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+cycleColumns+`
		FROM cycles
		ORDER BY collected_at DESC
		LIMIT 1
	`)
	return r.loadOne(ctx, row, "latest")
}

// FindByTimeRange возвращает циклы в диапазоне, новые первыми
func (r *PostgresCycleRepository) FindByTimeRange(
	ctx context.Context,
	timeRange valueobject.TimeRange,
	limit int,
) ([]*repository.CycleRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+cycleColumns+`
		FROM cycles
		WHERE collected_at BETWEEN $1 AND $2
		ORDER BY collected_at DESC
		LIMIT $3
	`, timeRange.Start(), timeRange.End(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query cycles: %w", err)
	}
	defer rows.Close()

	var cycles []*CycleDBModel
	for rows.Next() {
		model, err := ScanCycleRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cycle row: %w", err)
		}
		cycles = append(cycles, model)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	if len(cycles) == 0 {
		return nil, nil
	}

	ids := make([]string, len(cycles))
	for i, c := range cycles {
		ids[i] = c.ID
	}
	reports, err := r.findReports(ctx, ids)
	if err != nil {
		return nil, err
	}

	records := make([]*repository.CycleRecord, 0, len(cycles))
	for _, c := range cycles {
		record, err := ToRecord(c, reports[c.ID])
		if err != nil {
			return nil, fmt.Errorf("failed to convert to entity: %w", err)
		}
		records = append(records, record)
	}

	return records, nil
}

// DeleteOlderThan удаляет циклы до начала диапазона (отчеты удаляются каскадно)
func (r *PostgresCycleRepository) DeleteOlderThan(ctx context.Context, timeRange valueobject.TimeRange) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM cycles WHERE collected_at < $1`, timeRange.Start())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old cycles: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return deleted, nil
}

// Count возвращает количество сохраненных циклов
func (r *PostgresCycleRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cycles`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count cycles: %w", err)
	}
	return count, nil
}

func (r *PostgresCycleRepository) loadOne(ctx context.Context, row *sql.Row, key string) (*repository.CycleRecord, error) {
	cycle, err := ScanCycleRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("cycle %s: %w", key, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to scan cycle: %w", err)
	}

	reports, err := r.findReports(ctx, []string{cycle.ID})
	if err != nil {
		return nil, err
	}

	return ToRecord(cycle, reports[cycle.ID])
}

func (r *PostgresCycleRepository) findReports(ctx context.Context, cycleIDs []string) (map[string][]*ReportDBModel, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+reportColumns+`
		FROM metric_reports
		WHERE cycle_id = ANY($1)
	`, pq.Array(cycleIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]*ReportDBModel, len(cycleIDs))
	for rows.Next() {
		model, err := ScanReportRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		result[model.CycleID] = append(result[model.CycleID], model)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// jsonParam передает JSONB как текст; nil превращается в NULL
func jsonParam(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
