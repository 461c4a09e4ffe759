package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateCost(t *testing.T) {
	pricing := map[string]float64{"gpt-4": 0.03}

	assert.InDelta(t, 0.03, EstimateCost(1000, "gpt-4", pricing), 1e-12)
	assert.InDelta(t, 0.015, EstimateCost(500, "gpt-4", pricing), 1e-12)
	assert.InDelta(t, DefaultPricePer1k*2, EstimateCost(2000, "unknown-model", pricing), 1e-12)
	assert.InDelta(t, DefaultPricePer1k, EstimateCost(1000, "gpt-4", nil), 1e-12)
	assert.Zero(t, EstimateCost(0, "gpt-4", pricing))
}
