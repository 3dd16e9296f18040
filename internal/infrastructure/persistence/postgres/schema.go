package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dreschagin/sre-monitor/pkg/config"
)

const schema = `
CREATE TABLE IF NOT EXISTS cycles (
	id             TEXT PRIMARY KEY,
	overall_status TEXT NOT NULL,
	analysis       JSONB,
	collected_at   TIMESTAMPTZ NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_cycles_collected_at ON cycles (collected_at DESC);

CREATE TABLE IF NOT EXISTS metric_reports (
	cycle_id        TEXT NOT NULL REFERENCES cycles (id) ON DELETE CASCADE,
	metric_type     TEXT NOT NULL,
	status          TEXT NOT NULL,
	value           DOUBLE PRECISION,
	unit            TEXT,
	details         JSONB,
	raw_sample      JSONB,
	recommendations JSONB,
	reason          TEXT,
	collected_at    TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (cycle_id, metric_type)
);
`

// Open открывает пул соединений и проверяет подключение
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Migrate создает таблицы истории циклов, если их нет
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
