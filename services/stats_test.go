package services

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercentileLinear(t *testing.T) {
	v := []float64{6000, 7000, 8000}
	assert.Equal(t, 7000.0, Percentile(v, 0.5))
	assert.Equal(t, 6500.0, Percentile(v, 0.25))
	assert.Equal(t, 7500.0, Percentile(v, 0.75))
	assert.InDelta(t, 6200.0, Percentile(v, 0.10), 1e-9)
	assert.InDelta(t, 7800.0, Percentile(v, 0.90), 1e-9)

	assert.Equal(t, 6000.0, Percentile(v, 0))
	assert.Equal(t, 8000.0, Percentile(v, 1))
	assert.Equal(t, 42.0, Percentile([]float64{42}, 0.3))
	assert.True(t, math.IsNaN(Percentile(nil, 0.5)))
}

func TestPercentileEvenCount(t *testing.T) {
	assert.Equal(t, 2.5, Percentile([]float64{1, 2, 3, 4}, 0.5))
}
