package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	"dvf-mart/config"
	"dvf-mart/models"
	"dvf-mart/utils"
)

// Aggregator rolls the clean transaction table up into per-level summaries.
type Aggregator struct {
	cfg    config.PipelineConfig
	logger *utils.Logger
}

// NewAggregator creates an Aggregator.
func NewAggregator(cfg config.PipelineConfig, logger *utils.Logger) *Aggregator {
	return &Aggregator{cfg: cfg, logger: logger}
}

// Levels returns the geography hierarchy from nation down to neighborhood,
// each with its configured minimum sale count. Commune codes repeat across
// departments, so the commune level groups on both.
func (a *Aggregator) Levels() []models.Level {
	mk := func(name string, keys ...string) models.Level {
		return models.Level{Name: name, Keys: keys, MinSales: a.cfg.MinSalesFor(name)}
	}
	return []models.Level{
		mk(models.LevelNation),
		mk(models.LevelRegion, models.FieldRegion),
		mk(models.LevelDepartment, models.FieldDepartment),
		mk(models.LevelCommune, models.FieldDepartment, models.FieldCommune),
		mk(models.LevelPostcode, models.FieldPostalCode),
		mk(models.LevelNeighborhood, models.FieldNeighborhood),
	}
}

type group struct {
	keys   []string
	ptype  models.PropertyType
	values []float64
	last   time.Time
}

// Aggregate groups txs by the level's keys and property type, and returns
// the groups holding at least level.MinSales sales, sorted by keys then
// property type. txs is only read.
func (a *Aggregator) Aggregate(txs []*models.Transaction, level models.Level) []*models.LevelSummary {
	groups := make(map[string]*group)
	var order []*group

	for _, tx := range txs {
		keys := make([]string, len(level.Keys))
		for i, field := range level.Keys {
			keys[i] = tx.Field(field)
		}
		id := strings.Join(keys, "\x1f") + "\x1e" + string(tx.PropertyType)

		g, ok := groups[id]
		if !ok {
			g = &group{keys: keys, ptype: tx.PropertyType}
			groups[id] = g
			order = append(order, g)
		}
		g.values = append(g.values, tx.PricePerM2)
		if !tx.Date.IsZero() && tx.Date.After(g.last) {
			g.last = tx.Date
		}
	}

	rows := make([]*models.LevelSummary, 0, len(order))
	for _, g := range order {
		if len(g.values) < level.MinSales {
			continue
		}
		sorted := sortedCopy(g.values)
		rows = append(rows, &models.LevelSummary{
			Level:        level.Name,
			Keys:         g.keys,
			PropertyType: g.ptype,
			Count:        len(sorted),
			Median:       Percentile(sorted, 0.5),
			P25:          Percentile(sorted, 0.25),
			P75:          Percentile(sorted, 0.75),
			LastDate:     g.last,
		})
	}

	slices.SortFunc(rows, compareSummaries)
	return rows
}

func compareSummaries(a, b *models.LevelSummary) int {
	for i := range a.Keys {
		if c := strings.Compare(a.Keys[i], b.Keys[i]); c != 0 {
			return c
		}
	}
	return strings.Compare(string(a.PropertyType), string(b.PropertyType))
}

// AggregateAll enriches the table with regions and computes every level in
// parallel. The neighborhood level is skipped when the table has no
// neighborhood codes. Only cancellation of ctx produces an error.
func (a *Aggregator) AggregateAll(ctx context.Context, table *models.CleanTable, lookup RegionLookup) (*models.AggregationReport, error) {
	enrichedTable, enriched := EnrichTable(table, lookup, a.logger)
	txs := enrichedTable.Transactions
	levels := a.Levels()
	results := make([]*models.LevelResult, len(levels))

	g, ctx := errgroup.WithContext(ctx)
	for i, level := range levels {
		if level.Name == models.LevelNeighborhood && !table.HasNeighborhood {
			results[i] = &models.LevelResult{
				Level:   level,
				Rows:    []*models.LevelSummary{},
				Skipped: true,
				Reason:  "neighborhood codes not present in the clean table",
			}
			a.logger.Warn("[aggregator] %s level skipped: no neighborhood codes, run the geo-join first", level.Name)
			continue
		}

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("aggregator: %s: %w", level.Name, err)
			}
			rows := a.Aggregate(txs, level)
			results[i] = &models.LevelResult{Level: level, Rows: rows}
			if len(rows) == 0 {
				a.logger.Warn("[aggregator] %s level: no group reaches %d sales", level.Name, level.MinSales)
			} else {
				a.logger.Info("[aggregator] %s level: %d rows (min %d sales)", level.Name, len(rows), level.MinSales)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &models.AggregationReport{
		GeneratedAt: time.Now(),
		Region: models.Enrichment{
			Skipped:  enriched.Skipped,
			Reason:   enriched.Reason,
			Unmapped: enriched.Unmapped,
		},
		Levels: results,
	}, nil
}
