package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"dvf-mart/models"
)

func seqs(txs []*models.Transaction) []int {
	out := make([]int, len(txs))
	for i, tx := range txs {
		out[i] = tx.Seq
	}
	return out
}

func TestDeduplicateKeepsLargestSurface(t *testing.T) {
	in := []*models.Transaction{
		tx(0, "A", 12, 3000),
		tx(1, "B", 60, 3000),
		tx(2, "A", 85, 3000),
		tx(3, "A", 20, 3000),
	}
	out := Deduplicate(in)
	assert.Equal(t, []int{1, 2}, seqs(out), "one row per key, in input order")
}

func TestDeduplicateTieGoesToFirstRow(t *testing.T) {
	in := []*models.Transaction{
		tx(4, "A", 50, 3000),
		tx(7, "A", 50, 3000),
		tx(9, "A", 30, 3000),
	}
	out := Deduplicate(in)
	assert.Equal(t, []int{4}, seqs(out))
}

func TestDeduplicateIdempotent(t *testing.T) {
	in := []*models.Transaction{
		tx(0, "A", 12, 3000), tx(1, "B", 60, 3000), tx(2, "A", 85, 3000),
		tx(3, "C", 20, 3000), tx(4, "C", 20, 3000), tx(5, "B", 61, 3000),
	}
	once := Deduplicate(in)
	twice := Deduplicate(once)
	assert.Equal(t, once, twice)

	keys := map[string]bool{}
	for _, tx := range once {
		assert.False(t, keys[tx.Key], "duplicate key %s", tx.Key)
		keys[tx.Key] = true
	}
	assert.Len(t, keys, 3)
}

func TestDeduplicateDoesNotReorderInput(t *testing.T) {
	in := []*models.Transaction{tx(0, "A", 10, 3000), tx(1, "A", 90, 3000)}
	Deduplicate(in)
	assert.Equal(t, []int{0, 1}, seqs(in))
}
