package models

import "time"

// Level names, ordered from broadest to finest.
const (
	LevelNation       = "nation"
	LevelRegion       = "region"
	LevelDepartment   = "department"
	LevelCommune      = "commune"
	LevelPostcode     = "postcode"
	LevelNeighborhood = "neighborhood"
)

// Level is one tier of the geography hierarchy. Keys names the Transaction
// fields grouped on; the nation level has none.
type Level struct {
	Name     string
	Keys     []string
	MinSales int
}

// LevelSummary is one (area, property type) row of a level. Keys holds the
// values of Level.Keys in the same order; "" stands for a missing identifier.
type LevelSummary struct {
	Level        string
	Keys         []string
	PropertyType PropertyType
	Count        int
	Median       float64
	P25          float64
	P75          float64
	LastDate     time.Time
}

// LevelResult is the outcome of aggregating one level. A skipped level has
// no rows and a Reason; an empty Rows slice on a non-skipped level is a valid
// result.
type LevelResult struct {
	Level   Level
	Rows    []*LevelSummary
	Skipped bool
	Reason  string
}

// Enrichment is the result of attaching region codes to transactions.
type Enrichment struct {
	Transactions []*Transaction
	Skipped      bool
	Reason       string
	Unmapped     int
}
