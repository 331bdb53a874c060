package storage

import (
	"fmt"
	"strconv"
	"time"

	"dvf-mart/models"
)

const dateLayout = "2006-01-02"

// transactionColumns is the column order of every clean-table sink.
// The neighborhood column is appended only when the table carries it.
var transactionColumns = []string{
	"seq", "mutation_id", "document_id", "property_type",
	"price_eur", "surface_final", "surface_source", "surface_terrain",
	"price_m2", "mutation_date",
	"department", "commune", "postal_code", "region",
}

const neighborhoodColumn = "neighborhood"

// summaryStatColumns follow the level's key columns in every summary sink.
var summaryStatColumns = []string{
	"property_type", "n_sales", "median_price_m2", "p25_price_m2", "p75_price_m2", "last_tx_date",
}

func transactionHeader(table *models.CleanTable) []string {
	cols := append([]string{}, transactionColumns...)
	if table.HasNeighborhood {
		cols = append(cols, neighborhoodColumn)
	}
	return cols
}

func summaryHeader(level models.Level) []string {
	return append(append([]string{}, level.Keys...), summaryStatColumns...)
}

// summaryDataset is the file or table name of a level's summaries.
func summaryDataset(level string) string {
	return "mart_" + level
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatNumber(n models.Number) string {
	if !n.Valid {
		return ""
	}
	return formatFloat(n.Value)
}

// nullableDate returns nil for a zero date so SQL sinks store NULL.
func nullableDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(dateLayout)
}

func nullableNumber(n models.Number) any {
	if !n.Valid {
		return nil
	}
	return n.Value
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// transactionValues renders tx in transactionHeader order for SQL sinks.
func transactionValues(tx *models.Transaction, withNeighborhood bool) []any {
	vals := []any{
		tx.Seq, tx.Key, tx.DocumentID, string(tx.PropertyType),
		tx.Price, tx.Surface, tx.SurfaceSource, nullableNumber(tx.LandSurface),
		tx.PricePerM2, nullableDate(tx.Date),
		tx.Department, tx.Commune, tx.PostalCode, nullableString(tx.Region),
	}
	if withNeighborhood {
		vals = append(vals, tx.Neighborhood)
	}
	return vals
}

// summaryValues renders row in summaryHeader order for SQL sinks.
func summaryValues(row *models.LevelSummary) []any {
	vals := make([]any, 0, len(row.Keys)+len(summaryStatColumns))
	for _, k := range row.Keys {
		vals = append(vals, nullableString(k))
	}
	return append(vals,
		string(row.PropertyType), row.Count, row.Median, row.P25, row.P75, nullableDate(row.LastDate))
}
