package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"dvf-mart/models"
)

// columnTypes maps a column name to its SQL type for one engine.
type columnTypes struct {
	integer string
	real    string
	date    string
	text    string
}

var (
	sqliteTypes = columnTypes{integer: "INTEGER", real: "REAL", date: "TEXT", text: "TEXT"}
	duckdbTypes = columnTypes{integer: "BIGINT", real: "DOUBLE", date: "DATE", text: "VARCHAR"}
)

func (ct columnTypes) of(col string) string {
	switch col {
	case "seq", "n_sales":
		return ct.integer
	case "price_eur", "surface_final", "surface_terrain", "price_m2",
		"median_price_m2", "p25_price_m2", "p75_price_m2":
		return ct.real
	case "mutation_date", "last_tx_date":
		return ct.date
	}
	return ct.text
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// recreateTable drops table and creates it empty with cols typed by types.
// It returns the quoted column names.
func recreateTable(ctx context.Context, db execer, table string, cols []string, types columnTypes) ([]string, error) {
	defs := make([]string, len(cols))
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = fmt.Sprintf("%q", c)
		defs[i] = quoted[i] + " " + types.of(c)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %q`, table)); err != nil {
		return nil, fmt.Errorf("drop %s: %w", table, err)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE %q (%s)`, table, strings.Join(defs, ", "))); err != nil {
		return nil, fmt.Errorf("create %s: %w", table, err)
	}
	return quoted, nil
}

// replaceTable drops and recreates table, then inserts rows inside one
// transaction.
func replaceTable(ctx context.Context, db *sql.DB, table string, cols []string, types columnTypes, rows [][]any) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	quoted, err := recreateTable(ctx, tx, table, cols, types)
	if err != nil {
		return err
	}

	ph := strings.TrimRight(strings.Repeat("?,", len(cols)), ",")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %q (%s) VALUES (%s)`,
		table, strings.Join(quoted, ", "), ph))
	if err != nil {
		return fmt.Errorf("prepare insert %s: %w", table, err)
	}
	defer stmt.Close()

	for _, args := range rows {
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}
	return tx.Commit()
}

func transactionRows(table *models.CleanTable) [][]any {
	rows := make([][]any, len(table.Transactions))
	for i, tx := range table.Transactions {
		rows[i] = transactionValues(tx, table.HasNeighborhood)
	}
	return rows
}

func summaryRows(lr *models.LevelResult) [][]any {
	rows := make([][]any, len(lr.Rows))
	for i, s := range lr.Rows {
		rows[i] = summaryValues(s)
	}
	return rows
}

// scanTransactions reads rows selected in transactionHeader order.
func scanTransactions(rows *sql.Rows, withNeighborhood bool) ([]*models.Transaction, error) {
	defer rows.Close()

	var out []*models.Transaction
	for rows.Next() {
		var (
			tx           models.Transaction
			ptype        string
			land         sql.NullFloat64
			date         any
			region       sql.NullString
			neighborhood sql.NullString
		)
		dest := []any{
			&tx.Seq, &tx.Key, &tx.DocumentID, &ptype,
			&tx.Price, &tx.Surface, &tx.SurfaceSource, &land,
			&tx.PricePerM2, &date,
			&tx.Department, &tx.Commune, &tx.PostalCode, &region,
		}
		if withNeighborhood {
			dest = append(dest, &neighborhood)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		d, err := scannedDate(date)
		if err != nil {
			return nil, err
		}
		tx.PropertyType = models.PropertyType(ptype)
		tx.LandSurface = models.Number{Value: land.Float64, Valid: land.Valid}
		tx.Date = d
		tx.Region = region.String
		tx.Neighborhood = neighborhood.String
		out = append(out, &tx)
	}
	return out, rows.Err()
}

// scanSummaries reads rows selected in summaryHeader order.
func scanSummaries(rows *sql.Rows, level models.Level) ([]*models.LevelSummary, error) {
	defer rows.Close()

	out := []*models.LevelSummary{}
	for rows.Next() {
		var (
			s     = models.LevelSummary{Level: level.Name}
			keys  = make([]sql.NullString, len(level.Keys))
			ptype string
			date  any
		)
		dest := make([]any, 0, len(keys)+len(summaryStatColumns))
		for i := range keys {
			dest = append(dest, &keys[i])
		}
		dest = append(dest, &ptype, &s.Count, &s.Median, &s.P25, &s.P75, &date)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		s.Keys = make([]string, len(keys))
		for i, k := range keys {
			s.Keys[i] = k.String
		}
		d, err := scannedDate(date)
		if err != nil {
			return nil, err
		}
		s.PropertyType = models.PropertyType(ptype)
		s.LastDate = d
		out = append(out, &s)
	}
	return out, rows.Err()
}

// scannedDate accepts a DATE scanned natively or as text.
func scannedDate(v any) (time.Time, error) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	case string:
		return parseDate(t)
	case []byte:
		return parseDate(string(t))
	}
	return time.Time{}, fmt.Errorf("unexpected date value %T", v)
}

func selectList(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = fmt.Sprintf("%q", c)
	}
	return strings.Join(quoted, ", ")
}
