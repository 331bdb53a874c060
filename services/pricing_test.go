package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dvf-mart/models"
)

func TestPriceNormalizerBounds(t *testing.T) {
	p := NewPriceNormalizer(testPipeline(), quietLogger())

	var in []*models.Transaction
	for i := 0; i < 20; i++ {
		in = append(in, tx(i, "k", 50, float64(4000+100*i)))
	}
	in = append(in,
		tx(20, "low", 50, 100),
		tx(21, "gross", 50, 45000),
		tx(22, "luxury", 50, 14000),
	)

	res := p.Normalize(in)
	require.True(t, res.Applied)
	assert.Equal(t, 21, res.WithinSanity)

	// 21 values in [300, 30000]; p10 = 4200, p90 = 5800, upper = 5800 + 1.5*1600.
	assert.InDelta(t, 4200, res.Bounds.P10, 1e-9)
	assert.InDelta(t, 5800, res.Bounds.P90, 1e-9)
	assert.InDelta(t, 8200, res.Bounds.Upper, 1e-9)
	assert.Equal(t, 300.0, res.Bounds.Low)

	assert.Len(t, res.Transactions, 20)
	for _, tx := range res.Transactions {
		assert.GreaterOrEqual(t, tx.PricePerM2, res.Bounds.Low)
		assert.LessOrEqual(t, tx.PricePerM2, res.Bounds.Upper)
	}
}

func TestPriceNormalizerCeiling(t *testing.T) {
	p := NewPriceNormalizer(testPipeline(), quietLogger())
	in := []*models.Transaction{
		tx(0, "a", 10, 1000), tx(1, "b", 10, 9000), tx(2, "c", 10, 14000),
		tx(3, "d", 10, 16000), tx(4, "e", 10, 29000),
	}
	res := p.Normalize(in)
	assert.Equal(t, 15000.0, res.Bounds.Upper, "distribution bound capped at the ceiling")
	for _, tx := range res.Transactions {
		assert.LessOrEqual(t, tx.PricePerM2, 15000.0)
	}
	assert.Equal(t, []int{0, 1, 2}, seqs(res.Transactions))
}

func TestPriceNormalizerSanityBoundsInclusive(t *testing.T) {
	p := NewPriceNormalizer(testPipeline(), quietLogger())
	res := p.Normalize([]*models.Transaction{tx(0, "a", 100, 300), tx(1, "b", 100, 299.99)})
	assert.Equal(t, []int{0}, seqs(res.Transactions))
}

func TestPriceNormalizerComputesPricePerM2(t *testing.T) {
	p := NewPriceNormalizer(testPipeline(), quietLogger())
	in := &models.Transaction{Seq: 0, Key: "a", Price: 250000, Surface: 50}
	res := p.Normalize([]*models.Transaction{in})
	require.Len(t, res.Transactions, 1)
	assert.Equal(t, 5000.0, res.Transactions[0].PricePerM2)
}

func TestPriceNormalizerNothingWithinSanity(t *testing.T) {
	p := NewPriceNormalizer(testPipeline(), quietLogger())
	res := p.Normalize([]*models.Transaction{tx(0, "a", 50, 50), tx(1, "b", 50, 40000)})
	assert.False(t, res.Applied)
	assert.NotNil(t, res.Transactions)
	assert.Empty(t, res.Transactions)
}
