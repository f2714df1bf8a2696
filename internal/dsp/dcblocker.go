package dsp

// DCBlocker removes DC bias with two cascaded moving averages of delay
// d: the output is the d-sample-delayed output of the first stage
// minus the doubly-smoothed signal, ma1.buffer[d-1] - ma2(ma1(x)),
// per spec.md §4.4/§4.8. Grounded on PhantomSDR's DCBlocker<float>
// (original_source/src/signal.h, signal.cpp:53), reworked as an
// explicit ring buffer since the original's delay line is implicit in
// its moving-average's internal queue.
type DCBlocker struct {
	ma1, ma2 *MovingAverage
	delay    []float64
	idx      int
}

// NewDCBlocker creates a blocker with cascade delay d (samples).
func NewDCBlocker(d int) *DCBlocker {
	if d < 1 {
		d = 1
	}
	return &DCBlocker{
		ma1:   NewMovingAverage(d),
		ma2:   NewMovingAverage(d),
		delay: make([]float64, d),
	}
}

// Process runs one sample through the blocker.
func (b *DCBlocker) Process(x float32) float32 {
	y1 := b.ma1.Insert(float64(x))
	delayed := b.delay[b.idx]
	b.delay[b.idx] = y1
	b.idx++
	if b.idx == len(b.delay) {
		b.idx = 0
	}
	y2 := b.ma2.Insert(y1)
	return float32(delayed - y2)
}

// ProcessInPlace runs Process over every element of x.
func (b *DCBlocker) ProcessInPlace(x []float32) {
	for i, v := range x {
		x[i] = b.Process(v)
	}
}
