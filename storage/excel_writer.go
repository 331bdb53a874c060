package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"dvf-mart/models"
)

const overviewSheet = "Overview"

// ExcelWriter writes the level summaries of a run to a workbook: an
// overview sheet, then one sheet per computed level. The clean table is not
// exported here since it can exceed a sheet's row limit.
type ExcelWriter struct {
	path string
}

// NewExcelWriter prepares a writer for path.
func NewExcelWriter(path string) (*ExcelWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("xlsx: create output dir: %w", err)
	}
	return &ExcelWriter{path: path}, nil
}

// Path is the workbook file.
func (e *ExcelWriter) Path() string { return e.path }

// WriteSummaries builds the workbook and saves it, replacing any previous file.
func (e *ExcelWriter) WriteSummaries(ctx context.Context, results []*models.LevelResult) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", overviewSheet); err != nil {
		return fmt.Errorf("xlsx: rename sheet: %w", err)
	}
	if err := f.SetSheetRow(overviewSheet, "A1", &[]any{"level", "min_sales", "rows", "status"}); err != nil {
		return fmt.Errorf("xlsx: overview header: %w", err)
	}

	for i, lr := range results {
		if err := ctx.Err(); err != nil {
			return err
		}
		status := "ok"
		if lr.Skipped {
			status = "skipped: " + lr.Reason
		} else if len(lr.Rows) == 0 {
			status = "empty"
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(overviewSheet, cell, &[]any{lr.Level.Name, lr.Level.MinSales, len(lr.Rows), status}); err != nil {
			return fmt.Errorf("xlsx: overview row: %w", err)
		}
		if lr.Skipped {
			continue
		}
		if err := writeLevelSheet(f, lr); err != nil {
			return err
		}
	}

	if err := f.SaveAs(e.path); err != nil {
		return fmt.Errorf("xlsx: save %q: %w", e.path, err)
	}
	return nil
}

func writeLevelSheet(f *excelize.File, lr *models.LevelResult) error {
	sheet := lr.Level.Name
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("xlsx: new sheet %s: %w", sheet, err)
	}

	header := summaryHeader(lr.Level)
	hdr := make([]any, len(header))
	for i, h := range header {
		hdr[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &hdr); err != nil {
		return fmt.Errorf("xlsx: %s header: %w", sheet, err)
	}

	for i, s := range lr.Rows {
		row := make([]any, 0, len(header))
		for _, k := range s.Keys {
			row = append(row, k)
		}
		row = append(row, string(s.PropertyType), s.Count, s.Median, s.P25, s.P75, formatDate(s.LastDate))
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("xlsx: %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}

// Close is a no-op; the workbook is closed after each write.
func (e *ExcelWriter) Close() error { return nil }
