package fft

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPyramidLevelCount(t *testing.T) {
	resultSize := 8
	spectrum := make([]complex64, resultSize)
	for i := range spectrum {
		spectrum[i] = complex(float32(i+1), 0)
	}
	levels := 3
	pyr := buildPyramid(spectrum, resultSize, 8, 3, levels, 2)
	require.Len(t, pyr, levels)
	assert.Len(t, pyr[0], 8)
	assert.Len(t, pyr[1], 4)
	assert.Len(t, pyr[2], 2)
}

func TestBuildPyramidSumsAdjacentPower(t *testing.T) {
	// Two bins of equal magnitude, fftSize=2 so normalized power is
	// 1/fftSize^2 = 0.25 each; level 1 sums the normalized power
	// (0.5) and is brightness-shifted by one fewer size_log2 step, so
	// both levels land on the same quantized value here.
	spectrum := []complex64{complex(1, 0), complex(1, 0)}
	pyr := buildPyramid(spectrum, 2, 2, 0, 2, 1)
	require.Len(t, pyr, 2)
	// level0: normalized power=0.25 -> 20*log10(0.25)+127 ~ 114.96 -> 115
	assert.Equal(t, int8(115), pyr[0][0])
	assert.Equal(t, int8(115), pyr[0][1])
	// level1 offset = 127+6*(sizeLog2-1) = 121; summed power=0.5 ->
	// 20*log10(0.5)+121 ~ 114.98 -> 115
	assert.Equal(t, int8(115), pyr[1][0])
}

func TestQuantizeLevelClipsRange(t *testing.T) {
	low := quantizeLevel([]float64{1e-20}, -10)
	assert.Equal(t, int8(-128), low[0])

	high := quantizeLevel([]float64{1}, 10)
	assert.Equal(t, int8(127), high[0])
}

func TestQuantizeLevelFloorsPower(t *testing.T) {
	// 20*log10(powerFloor)+127 = -273, clipped to the int8 floor.
	out := quantizeLevel([]float64{0}, 0)
	assert.Equal(t, int8(-128), out[0])
}
