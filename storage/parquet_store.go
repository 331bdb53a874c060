package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dvf-mart/models"
)

// ParquetStore writes the clean table and level summaries as parquet files
// through an in-memory DuckDB, and reads the clean table back.
type ParquetStore struct {
	db  *sql.DB
	dir string
}

// NewParquetStore opens an in-memory DuckDB for files under dir.
func NewParquetStore(dir string) (*ParquetStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("parquet: create output dir: %w", err)
	}
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("parquet: open duckdb: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("parquet: ping duckdb: %w", err)
	}
	return &ParquetStore{db: db, dir: dir}, nil
}

// TransactionsPath is the clean table file.
func (p *ParquetStore) TransactionsPath() string {
	return filepath.Join(p.dir, "dvf_clean.parquet")
}

// SummaryPath is the summary file of a level.
func (p *ParquetStore) SummaryPath(level string) string {
	return filepath.Join(p.dir, summaryDataset(level)+".parquet")
}

// WriteTransactions stages the clean table in DuckDB and copies it out.
func (p *ParquetStore) WriteTransactions(ctx context.Context, table *models.CleanTable) error {
	const staging = "clean_transactions"
	if err := appendTable(ctx, p.db, staging, transactionHeader(table), transactionRows(table)); err != nil {
		return fmt.Errorf("parquet: %w", err)
	}
	return p.copyOut(ctx, staging, p.TransactionsPath())
}

// WriteSummaries writes one parquet file per computed level. An empty
// level yields a file with no rows.
func (p *ParquetStore) WriteSummaries(ctx context.Context, results []*models.LevelResult) error {
	for _, lr := range results {
		if lr.Skipped {
			continue
		}
		staging := summaryDataset(lr.Level.Name)
		if err := appendTable(ctx, p.db, staging, summaryHeader(lr.Level), summaryRows(lr)); err != nil {
			return fmt.Errorf("parquet: %w", err)
		}
		if err := p.copyOut(ctx, staging, p.SummaryPath(lr.Level.Name)); err != nil {
			return err
		}
	}
	return nil
}

func (p *ParquetStore) copyOut(ctx context.Context, table, path string) error {
	q := fmt.Sprintf(`COPY %q TO %s (FORMAT PARQUET)`, table, sqlString(path))
	if _, err := p.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("parquet: copy %s to %s: %w", table, path, err)
	}
	return nil
}

// ReadTransactions loads the clean table file in input order. The
// neighborhood column is read only when the file carries it.
func (p *ParquetStore) ReadTransactions(ctx context.Context) (*models.CleanTable, error) {
	path := p.TransactionsPath()
	src := fmt.Sprintf("read_parquet(%s)", sqlString(path))

	cols, err := p.columns(ctx, src)
	if err != nil {
		return nil, err
	}
	table := &models.CleanTable{}
	for _, c := range cols {
		if c == neighborhoodColumn {
			table.HasNeighborhood = true
		}
	}

	rows, err := p.db.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM %s ORDER BY seq`,
		selectList(transactionHeader(table)), src))
	if err != nil {
		return nil, fmt.Errorf("parquet: read %s: %w", path, err)
	}
	txs, err := scanTransactions(rows, table.HasNeighborhood)
	if err != nil {
		return nil, fmt.Errorf("parquet: %w", err)
	}
	table.Transactions = txs
	return table, nil
}

// ReadSummaries loads the summary file of a level in stored order.
func (p *ParquetStore) ReadSummaries(ctx context.Context, level models.Level) ([]*models.LevelSummary, error) {
	path := p.SummaryPath(level.Name)
	rows, err := p.db.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM read_parquet(%s)`,
		selectList(summaryHeader(level)), sqlString(path)))
	if err != nil {
		return nil, fmt.Errorf("parquet: read %s: %w", path, err)
	}
	out, err := scanSummaries(rows, level)
	if err != nil {
		return nil, fmt.Errorf("parquet: %w", err)
	}
	return out, nil
}

func (p *ParquetStore) columns(ctx context.Context, src string) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, fmt.Sprintf(`SELECT column_name FROM (DESCRIBE SELECT * FROM %s)`, src))
	if err != nil {
		return nil, fmt.Errorf("parquet: describe %s: %w", src, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("parquet: scan column name: %w", err)
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

// Close closes the DuckDB handle.
func (p *ParquetStore) Close() error {
	return p.db.Close()
}

// sqlString quotes s as a SQL string literal.
func sqlString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
