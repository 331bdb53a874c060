package services

import (
	"dvf-mart/config"
	"dvf-mart/models"
)

// ResidentialFilter keeps completed sales of houses and apartments and picks
// the surface each sale is priced against.
type ResidentialFilter struct {
	cfg config.PipelineConfig
}

// NewResidentialFilter creates a ResidentialFilter.
func NewResidentialFilter(cfg config.PipelineConfig) *ResidentialFilter {
	return &ResidentialFilter{cfg: cfg}
}

// SelectSurface returns the built surface when present and positive,
// otherwise the Carrez surface (which may itself be missing).
func SelectSurface(built, carrez models.Number) (models.Number, string) {
	if built.Valid && built.Value > 0 {
		return built, models.SurfaceBuilt
	}
	return carrez, models.SurfaceCarrez
}

// Filter turns the qualifying rows of t into transactions. keys must hold
// one transaction key per row of t.
func (f *ResidentialFilter) Filter(t *models.RawTable, keys []string) ([]*models.Transaction, error) {
	c := f.cfg.Columns
	if err := requireColumns(t, "residential filter",
		c.Nature, c.PropertyType, c.Price, c.BuiltSurface, c.CarrezSurface,
		c.MutationDate, c.Department, c.Commune, c.PostalCode,
	); err != nil {
		return nil, err
	}
	hasLand := c.LandSurface != "" && t.Has(c.LandSurface)
	hasNeighborhood := t.Has(c.Neighborhood)

	var out []*models.Transaction
	for i := range t.Rows {
		if t.Value(i, c.Nature) != f.cfg.CompletedSaleNature {
			continue
		}
		ptype, ok := f.cfg.ResidentialTypes[t.Value(i, c.PropertyType)]
		if !ok {
			continue
		}

		surface, source := SelectSurface(t.Num(i, c.BuiltSurface), t.Num(i, c.CarrezSurface))
		if !surface.Valid || surface.Value <= f.cfg.MinSurface {
			continue
		}
		price := t.Num(i, c.Price)
		if !price.Valid || price.Value <= f.cfg.MinPrice {
			continue
		}

		tx := &models.Transaction{
			Seq:           i,
			Key:           keys[i],
			DocumentID:    t.Value(i, c.DocumentID),
			PropertyType:  ptype,
			Price:         price.Value,
			Surface:       surface.Value,
			SurfaceSource: source,
			Date:          t.Date(i),
			Department:    t.Value(i, c.Department),
			Commune:       t.Value(i, c.Commune),
			PostalCode:    t.Value(i, c.PostalCode),
		}
		if hasLand {
			tx.LandSurface = t.Num(i, c.LandSurface)
		}
		if hasNeighborhood {
			tx.Neighborhood = t.Value(i, c.Neighborhood)
		}
		out = append(out, tx)
	}
	return out, nil
}
