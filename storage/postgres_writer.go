package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"dvf-mart/models"
	"dvf-mart/utils"
)

const pgBatchSize = 500

// PostgresWriter persists the clean table, level summaries and a run
// ledger to PostgreSQL. Each write replaces the previous contents.
type PostgresWriter struct {
	db    *sql.DB
	runID string
	psql  sq.StatementBuilderType
}

// NewPostgresWriter connects with retries, runs migrations, and returns a
// writer tagging rows with runID.
func NewPostgresWriter(ctx context.Context, dsn, runID string, retry *utils.RetryConfig) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	if err := retry.Do(ctx, "postgres ping", func(ctx context.Context) error {
		return db.PingContext(ctx)
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	pw := &PostgresWriter{
		db:    db,
		runID: runID,
		psql:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
	if err := pw.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return pw, nil
}

func (pw *PostgresWriter) migrate(ctx context.Context) error {
	_, err := pw.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS dvf_transactions (
			id              BIGSERIAL PRIMARY KEY,
			run_id          UUID             NOT NULL,
			seq             INTEGER          NOT NULL,
			mutation_id     TEXT             NOT NULL,
			document_id     TEXT             NOT NULL DEFAULT '',
			property_type   VARCHAR(16)      NOT NULL,
			price_eur       DOUBLE PRECISION NOT NULL,
			surface_final   DOUBLE PRECISION NOT NULL,
			surface_source  VARCHAR(8)       NOT NULL,
			surface_terrain DOUBLE PRECISION,
			price_m2        DOUBLE PRECISION NOT NULL,
			mutation_date   DATE,
			department      TEXT             NOT NULL DEFAULT '',
			commune         TEXT             NOT NULL DEFAULT '',
			postal_code     TEXT             NOT NULL DEFAULT '',
			region          TEXT,
			neighborhood    TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_dvf_transactions_department ON dvf_transactions(department);
		CREATE INDEX IF NOT EXISTS idx_dvf_transactions_commune    ON dvf_transactions(department, commune);

		CREATE TABLE IF NOT EXISTS dvf_level_summaries (
			id              BIGSERIAL PRIMARY KEY,
			run_id          UUID             NOT NULL,
			level           VARCHAR(16)      NOT NULL,
			area_key        TEXT             NOT NULL,
			region          TEXT,
			department      TEXT,
			commune         TEXT,
			postal_code     TEXT,
			neighborhood    TEXT,
			property_type   VARCHAR(16)      NOT NULL,
			n_sales         INTEGER          NOT NULL,
			median_price_m2 DOUBLE PRECISION NOT NULL,
			p25_price_m2    DOUBLE PRECISION NOT NULL,
			p75_price_m2    DOUBLE PRECISION NOT NULL,
			last_tx_date    DATE
		);

		CREATE INDEX IF NOT EXISTS idx_dvf_level_summaries_level ON dvf_level_summaries(level, area_key);

		CREATE TABLE IF NOT EXISTS pipeline_runs (
			run_id        UUID PRIMARY KEY,
			finished_at   TIMESTAMPTZ      NOT NULL DEFAULT NOW(),
			rows_read     INTEGER          NOT NULL DEFAULT 0,
			rows_skipped  INTEGER          NOT NULL DEFAULT 0,
			transactions  INTEGER          NOT NULL DEFAULT 0,
			price_low     DOUBLE PRECISION,
			price_upper   DOUBLE PRECISION,
			p10_price_m2  DOUBLE PRECISION,
			p90_price_m2  DOUBLE PRECISION,
			region_status TEXT             NOT NULL DEFAULT '',
			levels        TEXT             NOT NULL DEFAULT ''
		);
	`)
	return err
}

// WriteTransactions replaces the stored clean table.
func (pw *PostgresWriter) WriteTransactions(ctx context.Context, table *models.CleanTable) error {
	cols := []string{"run_id"}
	cols = append(cols, transactionColumns...)
	cols = append(cols, neighborhoodColumn)

	rows := make([][]any, len(table.Transactions))
	for i, tx := range table.Transactions {
		vals := append([]any{pw.runID}, transactionValues(tx, false)...)
		if table.HasNeighborhood {
			vals = append(vals, tx.Neighborhood)
		} else {
			vals = append(vals, nil)
		}
		rows[i] = vals
	}
	return pw.replace(ctx, "dvf_transactions", sq.Delete("dvf_transactions"), cols, rows)
}

// WriteSummaries replaces the stored summaries of every computed level.
func (pw *PostgresWriter) WriteSummaries(ctx context.Context, results []*models.LevelResult) error {
	cols := []string{
		"run_id", "level", "area_key",
		models.FieldRegion, models.FieldDepartment, models.FieldCommune,
		models.FieldPostalCode, models.FieldNeighborhood,
	}
	cols = append(cols, summaryStatColumns...)

	for _, lr := range results {
		if lr.Skipped {
			continue
		}
		rows := make([][]any, len(lr.Rows))
		for i, s := range lr.Rows {
			geo := map[string]any{}
			for j, field := range lr.Level.Keys {
				geo[field] = nullableString(s.Keys[j])
			}
			rows[i] = []any{
				pw.runID, lr.Level.Name, strings.Join(s.Keys, "|"),
				geo[models.FieldRegion], geo[models.FieldDepartment], geo[models.FieldCommune],
				geo[models.FieldPostalCode], geo[models.FieldNeighborhood],
				string(s.PropertyType), s.Count, s.Median, s.P25, s.P75, nullableDate(s.LastDate),
			}
		}
		del := sq.Delete("dvf_level_summaries").Where(sq.Eq{"level": lr.Level.Name})
		if err := pw.replace(ctx, "dvf_level_summaries", del, cols, rows); err != nil {
			return err
		}
	}
	return nil
}

// RecordRun upserts the run ledger entry for this writer's run id.
func (pw *PostgresWriter) RecordRun(ctx context.Context, clean *models.CleanReport, agg *models.AggregationReport) error {
	q := pw.psql.Insert("pipeline_runs").
		Columns("run_id", "finished_at", "rows_read", "rows_skipped", "transactions",
			"price_low", "price_upper", "p10_price_m2", "p90_price_m2", "region_status", "levels")

	var (
		read, skipped, final       int
		low, upper, p10, p90       any
		regionStatus, levelSummary string
	)
	if clean != nil {
		read, skipped, final = clean.Load.RowsRead, clean.Load.RowsSkipped, clean.Final
		if clean.BoundsApplied {
			low, upper, p10, p90 = clean.Bounds.Low, clean.Bounds.Upper, clean.Bounds.P10, clean.Bounds.P90
		}
	}
	if agg != nil {
		switch {
		case agg.Region.Skipped:
			regionStatus = "skipped: " + agg.Region.Reason
		case agg.Region.Unmapped > 0:
			regionStatus = fmt.Sprintf("partial: %d unmapped", agg.Region.Unmapped)
		default:
			regionStatus = "ok"
		}
		parts := make([]string, 0, len(agg.Levels))
		for _, lr := range agg.Levels {
			if lr.Skipped {
				parts = append(parts, lr.Level.Name+"=skipped")
			} else {
				parts = append(parts, fmt.Sprintf("%s=%d", lr.Level.Name, len(lr.Rows)))
			}
		}
		levelSummary = strings.Join(parts, ",")
	}

	query, args, err := q.Values(pw.runID, time.Now(), read, skipped, final,
		low, upper, p10, p90, regionStatus, levelSummary).
		Suffix(`ON CONFLICT (run_id) DO UPDATE SET
			finished_at = EXCLUDED.finished_at,
			rows_read = EXCLUDED.rows_read,
			rows_skipped = EXCLUDED.rows_skipped,
			transactions = EXCLUDED.transactions,
			price_low = EXCLUDED.price_low,
			price_upper = EXCLUDED.price_upper,
			p10_price_m2 = EXCLUDED.p10_price_m2,
			p90_price_m2 = EXCLUDED.p90_price_m2,
			region_status = EXCLUDED.region_status,
			levels = EXCLUDED.levels`).
		ToSql()
	if err != nil {
		return fmt.Errorf("postgres: build run insert: %w", err)
	}
	if _, err := pw.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("postgres: record run: %w", err)
	}
	return nil
}

// replace clears with del and batch-inserts rows in one transaction.
func (pw *PostgresWriter) replace(ctx context.Context, table string, del sq.DeleteBuilder, cols []string, rows [][]any) error {
	tx, err := pw.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback()

	query, args, err := del.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return fmt.Errorf("postgres: build clear %s: %w", table, err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("postgres: clear %s: %w", table, err)
	}

	for i := 0; i < len(rows); i += pgBatchSize {
		end := i + pgBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		ins := pw.psql.Insert(table).Columns(cols...)
		for _, r := range rows[i:end] {
			ins = ins.Values(r...)
		}
		query, args, err := ins.ToSql()
		if err != nil {
			return fmt.Errorf("postgres: build insert %s: %w", table, err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("postgres: insert %s: %w", table, err)
		}
	}
	return tx.Commit()
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}
