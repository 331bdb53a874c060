package models

import "time"

// LoadReport counts what the schema normalizer recovered from.
type LoadReport struct {
	RowsRead    int
	RowsSkipped int
	Nulled      map[string]int
	DatesNulled int
}

// PriceBounds records the price-per-m² cutoffs applied to a run.
type PriceBounds struct {
	Low   float64
	High  float64
	P10   float64
	P90   float64
	IQR   float64
	Upper float64
}

// CleanReport holds row counts after each cleaning stage.
type CleanReport struct {
	Load          LoadReport
	Residential   int
	Deduplicated  int
	WithinSanity  int
	Final         int
	Bounds        PriceBounds
	BoundsApplied bool
	MedianPerM2   float64
	P90PerM2      float64
}

// AggregationReport collects every level computed in one run.
type AggregationReport struct {
	RunID       string
	GeneratedAt time.Time
	Region      Enrichment
	Levels      []*LevelResult
}
