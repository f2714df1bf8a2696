package fft

import "math"

// buildPyramid derives downsample_levels log-power arrays from one
// master spectrum (spec.md §3/§4.2). Bin magnitudes are normalized by
// fftSize before squaring (linear = |z|^2/fftSize^2), matching
// original_source/src/fft_impl.cpp's power_and_quantize, then converted
// with 20*log10 (power in dB, 20 dB/decade) rather than 10*log10. Level
// 0 is the full-resolution spectrum; each following level sums adjacent
// power pairs from the previous level's un-quantized power (not its
// already-quantized int8 output, which would compound rounding error
// across levels) and is independently brightness-scaled by sizeLog2-i,
// matching PhantomSDR's per-level brightness compensation so that
// zoomed-out waterfall tiles don't dim disproportionately
// (original_source/src/fft_impl.cpp's pyramid builder).
func buildPyramid(spectrum []complex64, resultSize int, fftSize, sizeLog2 float64, levels, minWaterfallFFT int) [][]int8 {
	norm := 1 / (fftSize * fftSize)
	power := make([]float64, resultSize)
	for i, c := range spectrum {
		re, im := float64(real(c)), float64(imag(c))
		power[i] = (re*re + im*im) * norm
	}

	out := make([][]int8, levels)
	out[0] = quantizeLevel(power, sizeLog2)

	cur := power
	for lvl := 1; lvl < levels; lvl++ {
		next := make([]float64, len(cur)/2)
		for i := range next {
			next[i] = cur[2*i] + cur[2*i+1]
		}
		out[lvl] = quantizeLevel(next, sizeLog2-float64(lvl))
		cur = next
	}
	return out
}

const powerFloor = 1e-20

func quantizeLevel(power []float64, sizeLog2 float64) []int8 {
	out := make([]int8, len(power))
	offset := 127 + 6*sizeLog2
	for i, p := range power {
		if p < powerFloor {
			p = powerFloor
		}
		v := math.Round(20*math.Log10(p) + offset)
		if v > 127 {
			v = 127
		} else if v < -128 {
			v = -128
		}
		out[i] = int8(v)
	}
	return out
}
