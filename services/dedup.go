package services

import (
	"golang.org/x/exp/slices"

	"dvf-mart/models"
)

// Deduplicate keeps one transaction per key: the one with the largest
// surface, ties going to the earliest input row. The result is ordered by
// input row so repeated runs produce identical output.
func Deduplicate(txs []*models.Transaction) []*models.Transaction {
	bySurface := slices.Clone(txs)
	slices.SortStableFunc(bySurface, func(a, b *models.Transaction) int {
		switch {
		case a.Surface > b.Surface:
			return -1
		case a.Surface < b.Surface:
			return 1
		}
		return a.Seq - b.Seq
	})

	seen := make(map[string]struct{}, len(bySurface))
	kept := make([]*models.Transaction, 0, len(bySurface))
	for _, tx := range bySurface {
		if _, dup := seen[tx.Key]; dup {
			continue
		}
		seen[tx.Key] = struct{}{}
		kept = append(kept, tx)
	}

	slices.SortFunc(kept, func(a, b *models.Transaction) int {
		return a.Seq - b.Seq
	})
	return kept
}
