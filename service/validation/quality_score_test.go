package validation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQualityScore(t *testing.T) {
	tests := []struct {
		name     string
		passRate float64
		total    int
		variety  int
		expected float64
	}{
		{"perfect", 100, 500, 0, 100},
		{"penalized by variety", 95, 1000, 3, 93.5},
		{"single sample", 100, 1, 1, 100 - 2/(1+math.Log10(2))},
		{"no data", 0, 0, 0, 0},
		{"floor at zero", 1, 0, 5, 0},
		{"pass rate above range", 140, 10, 0, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, QualityScore(tt.passRate, tt.total, tt.variety), 0.01)
		})
	}
}

func TestQualityScore_LargerSamplesPenalizeLess(t *testing.T) {
	small := QualityScore(90, 10, 2)
	large := QualityScore(90, 100000, 2)

	assert.Greater(t, large, small)
	assert.Less(t, large, 90.0)
}

func TestPassRate(t *testing.T) {
	assert.Equal(t, 0.0, PassRate(0, 0))
	assert.Equal(t, 50.0, PassRate(1, 2))
	assert.Equal(t, 66.67, Round2(PassRate(2, 3)))
}
