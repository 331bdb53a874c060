package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "modernc.org/sqlite"

	"dvf-mart/models"
)

const (
	sqliteTransactionsTable = "clean_transactions"
	sqliteMetaTable         = "store_meta"
)

// SQLiteStore keeps the clean table and level summaries in one SQLite file.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (or creates) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("sqlite: create output dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}
	// A single writer avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping %q: %w", path, err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS ` + sqliteMetaTable + ` (key TEXT PRIMARY KEY, value TEXT NOT NULL)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: create meta table: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// WriteTransactions replaces the clean table.
func (s *SQLiteStore) WriteTransactions(ctx context.Context, table *models.CleanTable) error {
	if err := replaceTable(ctx, s.db, sqliteTransactionsTable, transactionHeader(table), sqliteTypes, transactionRows(table)); err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO `+sqliteMetaTable+` (key, value) VALUES ('has_neighborhood', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		strconv.FormatBool(table.HasNeighborhood)); err != nil {
		return fmt.Errorf("sqlite: write meta: %w", err)
	}
	for _, idx := range []string{
		`CREATE INDEX IF NOT EXISTS idx_clean_transactions_department ON clean_transactions(department)`,
		`CREATE INDEX IF NOT EXISTS idx_clean_transactions_commune ON clean_transactions(department, commune)`,
		`CREATE INDEX IF NOT EXISTS idx_clean_transactions_postal_code ON clean_transactions(postal_code)`,
	} {
		if _, err := s.db.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("sqlite: index: %w", err)
		}
	}
	return nil
}

// WriteSummaries replaces one table per computed level.
func (s *SQLiteStore) WriteSummaries(ctx context.Context, results []*models.LevelResult) error {
	for _, lr := range results {
		if lr.Skipped {
			continue
		}
		name := summaryDataset(lr.Level.Name)
		if err := replaceTable(ctx, s.db, name, summaryHeader(lr.Level), sqliteTypes, summaryRows(lr)); err != nil {
			return fmt.Errorf("sqlite: %w", err)
		}
	}
	return nil
}

// ReadTransactions loads the clean table in input order.
func (s *SQLiteStore) ReadTransactions(ctx context.Context) (*models.CleanTable, error) {
	var flag string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM `+sqliteMetaTable+` WHERE key = 'has_neighborhood'`).Scan(&flag)
	if err != nil {
		return nil, fmt.Errorf("sqlite: read meta: %w", err)
	}
	table := &models.CleanTable{HasNeighborhood: flag == "true"}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM %s ORDER BY seq`,
		selectList(transactionHeader(table)), sqliteTransactionsTable))
	if err != nil {
		return nil, fmt.Errorf("sqlite: query transactions: %w", err)
	}
	txs, err := scanTransactions(rows, table.HasNeighborhood)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}
	table.Transactions = txs
	return table, nil
}

// ReadSummaries loads the stored summaries of a level in stored order.
func (s *SQLiteStore) ReadSummaries(ctx context.Context, level models.Level) ([]*models.LevelSummary, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM %q ORDER BY rowid`,
		selectList(summaryHeader(level)), summaryDataset(level.Name)))
	if err != nil {
		return nil, fmt.Errorf("sqlite: query %s: %w", level.Name, err)
	}
	out, err := scanSummaries(rows, level)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}
	return out, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
