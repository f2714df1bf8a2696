package dsp

// MovingAverage is a fixed-length ring-buffer moving average with a
// Neumaier-compensated running sum, so long-running accumulation
// (minutes of audio at tens of kHz) doesn't drift from float rounding.
// Grounded on original_source/src/utils.h's MovingAverage<T> template,
// generalised with compensated summation per DSPPrimitives (spec.md §4.8).
type MovingAverage struct {
	buf    []float64
	idx    int
	filled bool
	sum    float64
	comp   float64 // Neumaier compensation term
}

// NewMovingAverage creates a moving average over the last n samples.
// n must be >= 1.
func NewMovingAverage(n int) *MovingAverage {
	if n < 1 {
		n = 1
	}
	return &MovingAverage{buf: make([]float64, n)}
}

func (m *MovingAverage) add(x float64) {
	t := m.sum + x
	if abs64(m.sum) >= abs64(x) {
		m.comp += (m.sum - t) + x
	} else {
		m.comp += (x - t) + m.sum
	}
	m.sum = t
}

func (m *MovingAverage) sub(x float64) {
	m.add(-x)
}

// Insert pushes x into the window, evicting the oldest sample once
// the window is full, and returns the new mean.
func (m *MovingAverage) Insert(x float64) float64 {
	n := len(m.buf)
	old := m.buf[m.idx]
	m.buf[m.idx] = x
	if m.filled {
		m.sub(old)
	}
	m.add(x)
	m.idx++
	if m.idx == n {
		m.idx = 0
		m.filled = true
	}
	count := m.idx
	if m.filled {
		count = n
	}
	if count == 0 {
		return 0
	}
	return (m.sum + m.comp) / float64(count)
}

func abs64(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
