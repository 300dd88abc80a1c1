package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func fixedLoad(v float64) LoadFunc {
	return func() float64 { return v }
}

func TestAdaptiveController_Tiers(t *testing.T) {
	tests := []struct {
		name string
		load float64
		base int
		want int
	}{
		{"idle", 0.1, 100, 100},
		{"just below low water", 0.49, 100, 100},
		{"moderate load halves", 0.5, 100, 50},
		{"between watermarks", 0.7, 100, 50},
		{"severe load", 0.8, 100, 20},
		{"severe load tier", 0.85, 100, 20},
		{"saturated", 1.0, 100, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ac := &adaptiveController{load: fixedLoad(tt.load), lowWater: 0.5, highWater: 0.8}
			assert.Equal(t, tt.want, ac.effectiveLimit(tt.base))
		})
	}
}

func TestAdaptiveController_AlwaysPositiveAndBounded(t *testing.T) {
	ac := &adaptiveController{load: fixedLoad(1.0), lowWater: 0.5, highWater: 0.8}

	assert.Equal(t, 1, ac.effectiveLimit(1))
	assert.Equal(t, 1, ac.effectiveLimit(3))

	for _, base := range []int{1, 2, 5, 10, 100, 1000} {
		limit := ac.effectiveLimit(base)
		assert.GreaterOrEqual(t, limit, 1)
		assert.LessOrEqual(t, limit, base)
	}
}

func TestAdaptiveController_NoSamplerMeansFullLimit(t *testing.T) {
	ac := &adaptiveController{lowWater: 0.5, highWater: 0.8}
	assert.Equal(t, 100, ac.effectiveLimit(100))
}
