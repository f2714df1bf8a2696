package dsp

import "math"

// AGC is a look-ahead peak automatic gain control: it tracks the
// maximum absolute sample over a look-ahead window using a monotonic
// deque, then smooths the implied gain toward a target level with
// separate attack/release time constants (spec.md §4.4/§4.8).
// Grounded on original_source/src/utils/audioprocessing.cpp's AGC
// class, translated from std::deque<float> to two slice-backed ring
// buffers since Go has no built-in deque.
type AGC struct {
	desiredLevel float64
	attackCoeff  float64
	releaseCoeff float64
	lookAhead    int
	gain         float64

	buf    []float64 // look-ahead sample ring buffer
	bufLen int
	bufAt  int

	maxVals []float64 // monotonic deque of |sample|, largest first
	maxAt   []float64 // parallel deque of the raw sample, for removal matching
}

// NewAGC creates an AGC with the given target level (0..1), attack and
// release time constants in ms, look-ahead window in ms, and sample rate.
func NewAGC(desiredLevel, attackMs, releaseMs, lookAheadMs, sampleRate float64) *AGC {
	n := int(lookAheadMs * sampleRate / 1000.0)
	if n < 1 {
		n = 1
	}
	return &AGC{
		desiredLevel: desiredLevel,
		attackCoeff:  1 - math.Exp(-1.0/(attackMs*0.001*sampleRate)),
		releaseCoeff: 1 - math.Exp(-1.0/(releaseMs*0.001*sampleRate)),
		lookAhead:    n,
		buf:          make([]float64, 0, n),
	}
}

func (a *AGC) push(sample float64) {
	for len(a.maxVals) > 0 && a.maxVals[len(a.maxVals)-1] < absf(sample) {
		a.maxVals = a.maxVals[:len(a.maxVals)-1]
		a.maxAt = a.maxAt[:len(a.maxAt)-1]
	}
	a.maxVals = append(a.maxVals, absf(sample))
	a.maxAt = append(a.maxAt, sample)
	a.buf = append(a.buf, sample)

	if len(a.buf) > a.lookAhead {
		a.pop()
	}
}

func (a *AGC) pop() {
	front := a.buf[0]
	a.buf = a.buf[1:]
	if len(a.maxAt) > 0 && a.maxAt[0] == front {
		a.maxAt = a.maxAt[1:]
		a.maxVals = a.maxVals[1:]
	}
}

func (a *AGC) peak() float64 {
	if len(a.maxVals) == 0 {
		return 0
	}
	return a.maxVals[0]
}

// Process runs the AGC over x in place, emitting silence until the
// look-ahead buffer fills for the first time.
func (a *AGC) Process(x []float32) {
	for i, v := range x {
		a.push(float64(v))
		if len(a.buf) == a.lookAhead {
			current := a.buf[0]
			peak := a.peak()
			desired := a.desiredLevel / (peak + 1e-15)
			if desired < a.gain {
				a.gain -= a.attackCoeff * (a.gain - desired)
			} else {
				a.gain += a.releaseCoeff * (desired - a.gain)
			}
			x[i] = float32(current * a.gain)
		} else {
			x[i] = 0
		}
	}
}

// Reset clears AGC state back to its freshly constructed condition.
func (a *AGC) Reset() {
	a.gain = 0
	a.buf = a.buf[:0]
	a.maxVals = a.maxVals[:0]
	a.maxAt = a.maxAt[:0]
}

func absf(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
