package services

import (
	"fmt"
	"io"

	"dvf-mart/config"
	"dvf-mart/models"
	"dvf-mart/utils"
)

// Cleaner runs the raw-to-clean stages in order: load, identity, residential
// filter, deduplication, price normalization.
type Cleaner struct {
	cfg        config.PipelineConfig
	logger     *utils.Logger
	normalizer *Normalizer
	identity   *IdentityResolver
	filter     *ResidentialFilter
	pricer     *PriceNormalizer
}

// NewCleaner creates a Cleaner with the given parameters and logger.
func NewCleaner(cfg config.PipelineConfig, logger *utils.Logger) *Cleaner {
	return &Cleaner{
		cfg:        cfg,
		logger:     logger,
		normalizer: NewNormalizer(cfg, logger),
		identity:   NewIdentityResolver(cfg.Columns),
		filter:     NewResidentialFilter(cfg),
		pricer:     NewPriceNormalizer(cfg, logger),
	}
}

// CleanFile loads path and cleans it.
func (c *Cleaner) CleanFile(path string) (*models.CleanTable, *models.CleanReport, error) {
	table, load, err := c.normalizer.LoadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return c.CleanTable(table, load)
}

// Clean loads raw delimited text from r and cleans it.
func (c *Cleaner) Clean(r io.Reader) (*models.CleanTable, *models.CleanReport, error) {
	table, load, err := c.normalizer.Load(r)
	if err != nil {
		return nil, nil, err
	}
	return c.CleanTable(table, load)
}

// CleanTable runs every stage after loading. Any error returned is fatal
// for the run; row-level problems are only counted in the report.
func (c *Cleaner) CleanTable(table *models.RawTable, load models.LoadReport) (*models.CleanTable, *models.CleanReport, error) {
	report := &models.CleanReport{Load: load}

	keys, err := c.identity.Keys(table)
	if err != nil {
		return nil, nil, fmt.Errorf("cleaner: %w", err)
	}

	residential, err := c.filter.Filter(table, keys)
	if err != nil {
		return nil, nil, fmt.Errorf("cleaner: %w", err)
	}
	report.Residential = len(residential)
	c.logger.Info("[cleaner] Residential sales kept: %d of %d rows", len(residential), table.Len())

	deduped := Deduplicate(residential)
	report.Deduplicated = len(deduped)
	if dropped := len(residential) - len(deduped); dropped > 0 {
		c.logger.Debug("[cleaner] Collapsed %d secondary lots into their main local", dropped)
	}

	priced := c.pricer.Normalize(deduped)
	report.WithinSanity = priced.WithinSanity
	report.Bounds = priced.Bounds
	report.BoundsApplied = priced.Applied
	report.Final = len(priced.Transactions)

	if report.Final > 0 {
		values := make([]float64, len(priced.Transactions))
		for i, tx := range priced.Transactions {
			values[i] = tx.PricePerM2
		}
		sorted := sortedCopy(values)
		report.MedianPerM2 = round2(Percentile(sorted, 0.5))
		report.P90PerM2 = round2(Percentile(sorted, 0.9))
	}

	c.logger.Info("[cleaner] Cleaned %d → %d transactions (dropped %d)",
		table.Len(), report.Final, table.Len()-report.Final)

	return &models.CleanTable{
		Transactions:    priced.Transactions,
		HasNeighborhood: table.Has(c.cfg.Columns.Neighborhood),
	}, report, nil
}
