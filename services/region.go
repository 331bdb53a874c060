package services

import (
	"golang.org/x/exp/slices"

	"dvf-mart/models"
	"dvf-mart/utils"
)

// RegionLookup maps a department code to its region code.
type RegionLookup interface {
	RegionOf(department string) (string, bool)
}

// EnrichRegions returns copies of txs with Region set from lookup. The input
// transactions are not modified. A nil lookup yields a skipped enrichment in
// which every region is missing.
func EnrichRegions(txs []*models.Transaction, lookup RegionLookup, logger *utils.Logger) models.Enrichment {
	out := make([]*models.Transaction, len(txs))
	for i, tx := range txs {
		cp := *tx
		cp.Region = ""
		out[i] = &cp
	}

	if lookup == nil {
		logger.Warn("[region] No department→region mapping available, region level collapses to one unknown group")
		return models.Enrichment{
			Transactions: out,
			Skipped:      true,
			Reason:       "department to region mapping unavailable",
		}
	}

	unmapped := make(map[string]int)
	for _, tx := range out {
		if region, ok := lookup.RegionOf(tx.Department); ok {
			tx.Region = region
		} else {
			unmapped[tx.Department]++
		}
	}

	total := 0
	depts := make([]string, 0, len(unmapped))
	for dept, n := range unmapped {
		total += n
		depts = append(depts, dept)
	}
	if total > 0 {
		slices.Sort(depts)
		logger.Warn("[region] %d transactions in %d departments have no region: %v",
			total, len(depts), depts)
	}
	return models.Enrichment{Transactions: out, Unmapped: total}
}

// EnrichTable is EnrichRegions over a clean table. The returned table shares
// nothing mutable with table.
func EnrichTable(table *models.CleanTable, lookup RegionLookup, logger *utils.Logger) (*models.CleanTable, models.Enrichment) {
	e := EnrichRegions(table.Transactions, lookup, logger)
	return &models.CleanTable{
		Transactions:    e.Transactions,
		HasNeighborhood: table.HasNeighborhood,
	}, e
}
