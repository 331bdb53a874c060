package storage

import (
	"database/sql/driver"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuckDBRowConvertsForAppender(t *testing.T) {
	cols := []string{"seq", "price_m2", "mutation_date", "commune", "region"}
	got, err := duckdbRow(cols, []any{3, 5000.5, "2024-03-02", "101", nil})
	require.NoError(t, err)
	assert.Equal(t, []driver.Value{
		int64(3), 5000.5, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), "101", nil,
	}, got)

	_, err = duckdbRow([]string{"mutation_date"}, []any{"02/03/2024"})
	assert.Error(t, err)
}
