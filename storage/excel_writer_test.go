package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"dvf-mart/models"
)

func TestExcelWriterSummaries(t *testing.T) {
	w, err := NewExcelWriter(filepath.Join(t.TempDir(), "out", "mart.xlsx"))
	require.NoError(t, err)
	require.NoError(t, w.WriteSummaries(context.Background(), sampleResults()))

	f, err := excelize.OpenFile(w.Path())
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{overviewSheet, models.LevelCommune, models.LevelNation}, f.GetSheetList())

	overview, err := f.GetRows(overviewSheet)
	require.NoError(t, err)
	require.Len(t, overview, 4)
	assert.Equal(t, []string{"commune", "2", "1", "ok"}, overview[1])
	assert.Equal(t, []string{"nation", "100", "0", "empty"}, overview[2])
	assert.Equal(t, []string{"neighborhood", "0", "0", "skipped: no codes"}, overview[3])

	commune, err := f.GetRows(models.LevelCommune)
	require.NoError(t, err)
	require.Len(t, commune, 2)
	assert.Equal(t, []string{"75", "101", "Apartment", "3", "7000", "6500", "7500", "2024-03-02"}, commune[1])
}
