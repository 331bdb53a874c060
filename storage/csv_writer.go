package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"dvf-mart/models"
)

// CSVWriter writes the clean table and level summaries as CSV files under a
// directory. It is safe for concurrent use.
type CSVWriter struct {
	mu  sync.Mutex
	dir string
}

// NewCSVWriter creates the output directory if needed.
func NewCSVWriter(dir string) (*CSVWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}
	return &CSVWriter{dir: dir}, nil
}

// TransactionsPath is the file WriteTransactions produces.
func (c *CSVWriter) TransactionsPath() string {
	return filepath.Join(c.dir, "dvf_clean.csv")
}

// SummaryPath is the file WriteSummaries produces for a level.
func (c *CSVWriter) SummaryPath(level string) string {
	return filepath.Join(c.dir, summaryDataset(level)+".csv")
}

// WriteTransactions writes the clean table, truncating any previous file.
func (c *CSVWriter) WriteTransactions(ctx context.Context, table *models.CleanTable) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows := make([][]string, 0, len(table.Transactions))
	for _, tx := range table.Transactions {
		row := []string{
			strconv.Itoa(tx.Seq), tx.Key, tx.DocumentID, string(tx.PropertyType),
			formatFloat(tx.Price), formatFloat(tx.Surface), tx.SurfaceSource, formatNumber(tx.LandSurface),
			formatFloat(tx.PricePerM2), formatDate(tx.Date),
			tx.Department, tx.Commune, tx.PostalCode, tx.Region,
		}
		if table.HasNeighborhood {
			row = append(row, tx.Neighborhood)
		}
		rows = append(rows, row)
	}
	return writeCSV(ctx, c.TransactionsPath(), transactionHeader(table), rows)
}

// WriteSummaries writes one file per computed level.
func (c *CSVWriter) WriteSummaries(ctx context.Context, results []*models.LevelResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, lr := range results {
		if lr.Skipped {
			continue
		}
		rows := make([][]string, 0, len(lr.Rows))
		for _, s := range lr.Rows {
			row := append([]string{}, s.Keys...)
			row = append(row,
				string(s.PropertyType), strconv.Itoa(s.Count),
				formatFloat(s.Median), formatFloat(s.P25), formatFloat(s.P75),
				formatDate(s.LastDate))
			rows = append(rows, row)
		}
		if err := writeCSV(ctx, c.SummaryPath(lr.Level.Name), summaryHeader(lr.Level), rows); err != nil {
			return err
		}
	}
	return nil
}

// Close is a no-op; every write opens and closes its own file.
func (c *CSVWriter) Close() error { return nil }

func writeCSV(ctx context.Context, path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("csv: create file %q: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	for i, row := range rows {
		if i%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("csv: flush %q: %w", path, err)
	}
	return f.Close()
}
