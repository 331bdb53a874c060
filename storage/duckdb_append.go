package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/marcboeker/go-duckdb/v2"
)

// appendTable recreates table in DuckDB and bulk-loads rows through the
// driver's appender.
func appendTable(ctx context.Context, db *sql.DB, table string, cols []string, rows [][]any) error {
	if _, err := recreateTable(ctx, db, table, cols, duckdbTypes); err != nil {
		return err
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("conn: %w", err)
	}
	defer conn.Close()

	return conn.Raw(func(raw any) error {
		dc, ok := raw.(driver.Conn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", raw)
		}
		app, err := duckdb.NewAppenderFromConn(dc, "", table)
		if err != nil {
			return fmt.Errorf("appender %s: %w", table, err)
		}
		for i, r := range rows {
			if i%10000 == 0 {
				if err := ctx.Err(); err != nil {
					app.Close()
					return err
				}
			}
			vals, err := duckdbRow(cols, r)
			if err != nil {
				app.Close()
				return fmt.Errorf("append %s: %w", table, err)
			}
			if err := app.AppendRow(vals...); err != nil {
				app.Close()
				return fmt.Errorf("append %s: %w", table, err)
			}
		}
		if err := app.Close(); err != nil {
			return fmt.Errorf("flush %s: %w", table, err)
		}
		return nil
	})
}

// duckdbRow converts SQL-sink values to the Go types the appender expects
// for each column: int64 for BIGINT and time.Time for DATE.
func duckdbRow(cols []string, row []any) ([]driver.Value, error) {
	vals := make([]driver.Value, len(row))
	for i, v := range row {
		switch t := v.(type) {
		case nil:
			vals[i] = nil
		case int:
			vals[i] = int64(t)
		case string:
			if duckdbTypes.of(cols[i]) == duckdbTypes.date {
				d, err := parseDate(t)
				if err != nil {
					return nil, err
				}
				vals[i] = d
			} else {
				vals[i] = t
			}
		default:
			vals[i] = v
		}
	}
	return vals, nil
}
