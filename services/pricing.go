package services

import (
	"math"

	"dvf-mart/config"
	"dvf-mart/models"
	"dvf-mart/utils"
)

// PriceResult is the outcome of price-per-m² filtering.
type PriceResult struct {
	Transactions []*models.Transaction
	Bounds       models.PriceBounds
	WithinSanity int
	// Applied is false when no row survived the sanity bounds and the
	// distribution bound could not be computed.
	Applied bool
}

// PriceNormalizer computes price per m² and removes implausible values in
// two stages: fixed sanity bounds, then a percentile-derived upper bound
// capped by an absolute ceiling.
type PriceNormalizer struct {
	cfg    config.PipelineConfig
	logger *utils.Logger
}

// NewPriceNormalizer creates a PriceNormalizer.
func NewPriceNormalizer(cfg config.PipelineConfig, logger *utils.Logger) *PriceNormalizer {
	return &PriceNormalizer{cfg: cfg, logger: logger}
}

// Normalize sets PricePerM2 on each transaction and returns the survivors in
// input order.
func (p *PriceNormalizer) Normalize(txs []*models.Transaction) PriceResult {
	low, high := p.cfg.PriceBounds.Low, p.cfg.PriceBounds.High
	res := PriceResult{Bounds: models.PriceBounds{Low: low, High: high}}

	sane := make([]*models.Transaction, 0, len(txs))
	for _, tx := range txs {
		tx.PricePerM2 = tx.Price / tx.Surface
		if tx.PricePerM2 >= low && tx.PricePerM2 <= high {
			sane = append(sane, tx)
		}
	}
	res.WithinSanity = len(sane)

	if len(sane) == 0 {
		p.logger.Warn("[pricing] No transaction within [%.0f, %.0f] €/m², skipping distribution bound", low, high)
		res.Transactions = []*models.Transaction{}
		return res
	}

	values := make([]float64, len(sane))
	for i, tx := range sane {
		values[i] = tx.PricePerM2
	}
	sorted := sortedCopy(values)
	p10 := Percentile(sorted, p.cfg.LowerPercentile)
	p90 := Percentile(sorted, p.cfg.UpperPercentile)
	iqr := p90 - p10
	upper := math.Min(p90+p.cfg.IQRMultiplier*iqr, p.cfg.UpperCeiling)

	res.Bounds.P10, res.Bounds.P90 = p10, p90
	res.Bounds.IQR, res.Bounds.Upper = iqr, upper
	res.Applied = true

	p.logger.Info("[pricing] p%.0f=%.2f p%.0f=%.2f IQR=%.2f €/m²",
		p.cfg.LowerPercentile*100, p10, p.cfg.UpperPercentile*100, p90, iqr)
	p.logger.Info("[pricing] Price bounds: %.2f to %.2f €/m² (ceiling %.0f)", low, upper, p.cfg.UpperCeiling)

	kept := make([]*models.Transaction, 0, len(sane))
	for _, tx := range sane {
		if tx.PricePerM2 <= upper {
			kept = append(kept, tx)
		}
	}
	res.Transactions = kept
	return res
}
