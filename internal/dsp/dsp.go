// Package dsp holds the small numerical primitives shared by the FFT
// engine and the per-subscriber audio pipeline: window functions,
// vectorised negate/add, the FM/AM demodulators, 16-bit quantization,
// the DC blocker and the look-ahead peak AGC.
//
// Grounded on original_source/src/utils/dsp.cpp and
// original_source/src/utils/audioprocessing.cpp (PhantomSDR), the C++
// project this spec distills; reworked into idiomatic Go (value
// receivers where state is small, explicit slices instead of raw
// pointers, no manual alignment).
package dsp

import "math"

// HannWindow returns a Hann window of length n: w[i] = 0.5*(1-cos(2*pi*i/n)).
func HannWindow(n int) []float32 {
	w := make([]float32, n)
	for i := 0; i < n; i++ {
		w[i] = float32(0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n))))
	}
	return w
}

// NegateFloat negates every element of x in place.
func NegateFloat(x []float32) {
	for i := range x {
		x[i] = -x[i]
	}
}

// NegateComplex negates every element of x in place.
func NegateComplex(x []complex64) {
	for i := range x {
		x[i] = -x[i]
	}
}

// AddFloat adds src into dst elementwise, dst[i] += src[i], over the
// shorter of the two slices.
func AddFloat(dst, src []float32) {
	n := len(dst)
	if len(src) < n {
		n = len(src)
	}
	for i := 0; i < n; i++ {
		dst[i] += src[i]
	}
}

// AddComplex adds src into dst elementwise, dst[i] += src[i].
func AddComplex(dst, src []complex64) {
	n := len(dst)
	if len(src) < n {
		n = len(src)
	}
	for i := 0; i < n; i++ {
		dst[i] += src[i]
	}
}

// AMEnvelope writes the magnitude of each complex sample to out.
func AMEnvelope(x []complex64, out []float32) {
	for i, v := range x {
		out[i] = float32(math.Hypot(float64(real(v)), float64(imag(v))))
	}
}

// FMDiscriminator computes the polar discriminator out[i] = arg(x[i] *
// conj(prev)), prev advancing to x[i] after each sample, and returns
// the final prev so the caller can thread it into the next block.
func FMDiscriminator(x []complex64, prev complex64, out []float32) complex64 {
	for i, v := range x {
		d := v * complex64(complex(real(prev), -imag(prev)))
		out[i] = float32(math.Atan2(float64(imag(d)), float64(real(d))))
		prev = v
	}
	return prev
}

// QuantizeInt16 converts x to 16-bit PCM: out[i] = clip(round(x[i]*mult),
// -32768, 32767), following the PhantomSDR convention of rounding via
// a +32768.5 bias before truncation (dsp_float_to_int16).
func QuantizeInt16(x []float32, mult float32, out []int16) {
	for i, v := range x {
		s := int32(v*mult+32768.5) - 32768
		if s > 32767 {
			s = 32767
		} else if s < -32768 {
			s = -32768
		}
		out[i] = int16(s)
	}
}
