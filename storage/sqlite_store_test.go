package storage_test

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dvf-mart/config"
	"dvf-mart/models"
	"dvf-mart/services"
	"dvf-mart/storage"
	"dvf-mart/utils"
)

const rawHeader = "Identifiant de document|Date mutation|Nature mutation|Valeur fonciere|No plan|Section|" +
	"Code postal|Code commune|Code departement|Type local|Surface reelle bati|Surface Carrez du 1er lot|Surface terrain|CODE_IRIS"

// rawFixture builds a small DVF extract over two departments, with
// secondary lots, decimal commas and a few unusable rows.
func rawFixture() string {
	var b strings.Builder
	b.WriteString(rawHeader + "\n")
	for i := 0; i < 40; i++ {
		dept, commune, postal := "75", "101", "75001"
		if i%4 == 0 {
			dept, commune, postal = "13", "055", "13001"
		}
		ptype := "Appartement"
		if i%5 == 0 {
			ptype = "Maison"
		}
		surface := 30 + i
		price := fmt.Sprintf("%d,50", surface*(4000+97*i))
		land := ""
		if ptype == "Maison" {
			land = fmt.Sprintf("%d", 200+i)
		}
		fmt.Fprintf(&b, "DOC%d|%02d/03/2024|Vente|%s|%d|AB|%s|%s|%s|%s|%d||%s|%s01010%d\n",
			i, 1+i%28, price, i, postal, commune, dept, ptype, surface, land, dept, i%3)
		if i%6 == 0 {
			fmt.Fprintf(&b, "DOC%d|%02d/03/2024|Vente|%s|%d|AB|%s|%s|%s|Dépendance|||NA|\n",
				i, 1+i%28, price, i, postal, commune, dept)
		}
	}
	b.WriteString("DOCX|01/03/2024|Vente|5000|1|AB|75001|101|75|Appartement|40|||\n")
	b.WriteString("broken|row\n")
	return b.String()
}

func testConfig() config.PipelineConfig {
	cfg := config.DefaultPipeline()
	for k := range cfg.MinSales {
		cfg.MinSales[k] = 2
	}
	return cfg
}

func levelsByName(r *models.AggregationReport) map[string]*models.LevelResult {
	out := map[string]*models.LevelResult{}
	for _, lr := range r.Levels {
		out[lr.Level.Name] = lr
	}
	return out
}

func TestSQLiteRoundTripIsDeterministic(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	logger := utils.Discard()

	table, _, err := services.NewCleaner(cfg, logger).Clean(strings.NewReader(rawFixture()))
	require.NoError(t, err)
	require.NotEmpty(t, table.Transactions)
	require.True(t, table.HasNeighborhood)

	agg := services.NewAggregator(cfg, logger)
	direct, err := agg.AggregateAll(ctx, table, nil)
	require.NoError(t, err)

	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "mart.sqlite"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.WriteTransactions(ctx, table))
	reread, err := store.ReadTransactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, table, reread)

	again, err := agg.AggregateAll(ctx, reread, nil)
	require.NoError(t, err)

	want, got := levelsByName(direct), levelsByName(again)
	for name, lr := range want {
		assert.Equal(t, lr.Rows, got[name].Rows, name)
		assert.Equal(t, lr.Skipped, got[name].Skipped, name)
	}

	require.NoError(t, store.WriteSummaries(ctx, direct.Levels))
	for _, lr := range direct.Levels {
		stored, err := store.ReadSummaries(ctx, lr.Level)
		require.NoError(t, err)
		assert.Equal(t, lr.Rows, stored, lr.Level.Name)
		for _, row := range stored {
			assert.GreaterOrEqual(t, row.Count, lr.Level.MinSales)
		}
	}
}

func TestSQLiteWithoutNeighborhood(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "mart.sqlite"))
	require.NoError(t, err)
	defer store.Close()

	table := &models.CleanTable{Transactions: []*models.Transaction{{
		Seq: 3, Key: "k", PropertyType: models.House, Price: 200000, Surface: 80,
		SurfaceSource: models.SurfaceBuilt, PricePerM2: 2500, Department: "01", Commune: "053", PostalCode: "01000",
	}}}
	require.NoError(t, store.WriteTransactions(ctx, table))

	got, err := store.ReadTransactions(ctx)
	require.NoError(t, err)
	assert.False(t, got.HasNeighborhood)
	assert.Equal(t, table.Transactions, got.Transactions)
}
