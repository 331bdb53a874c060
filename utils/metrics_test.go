package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dvf-mart/models"
)

func TestMetricsObserveClean(t *testing.T) {
	m := NewMetrics()
	m.ObserveClean(&models.CleanReport{
		Load:          models.LoadReport{RowsRead: 100, RowsSkipped: 3, Nulled: map[string]int{"Valeur fonciere": 4}, DatesNulled: 2},
		Residential:   60,
		Deduplicated:  50,
		WithinSanity:  48,
		Final:         45,
		BoundsApplied: true,
		Bounds:        models.PriceBounds{Low: 300, Upper: 9200, P10: 5200, P90: 6800},
	})

	assert.Equal(t, 100.0, testutil.ToFloat64(m.rowsRead))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.rowsSkipped))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.valuesNulled.WithLabelValues("Valeur fonciere")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.valuesNulled.WithLabelValues("date")))
	assert.Equal(t, 45.0, testutil.ToFloat64(m.stageRows.WithLabelValues("final")))
	assert.Equal(t, 9200.0, testutil.ToFloat64(m.priceBounds.WithLabelValues("upper")))
}

func TestMetricsObserveAggregation(t *testing.T) {
	m := NewMetrics()
	m.ObserveAggregation(&models.AggregationReport{Levels: []*models.LevelResult{
		{Level: models.Level{Name: models.LevelCommune}, Rows: make([]*models.LevelSummary, 7)},
		{Level: models.Level{Name: models.LevelNeighborhood}, Skipped: true},
	}})
	assert.Equal(t, 7.0, testutil.ToFloat64(m.levelRows.WithLabelValues(models.LevelCommune)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.levelSkipped.WithLabelValues(models.LevelNeighborhood)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.levelSkipped.WithLabelValues(models.LevelCommune)))
}

func TestMetricsWriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.MarkSuccess()
	path := filepath.Join(t.TempDir(), "dvf.prom")
	require.NoError(t, m.WriteTextfile(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "dvf_last_success_timestamp_seconds")
}
