// Package audiopipeline implements the per-subscriber demodulation
// stage (spec.md C4/§4.4): extract a subscriber's tuned bin range from
// the master spectrum, inverse-transform it to a narrowband time
// series with 50% overlap-add, demodulate per mode, then DC-block, AGC
// and quantize to 16-bit PCM.
//
// Grounded on original_source/src/signal.cpp (AudioProcessor::process)
// for the per-mode demodulation algorithm and original_source/src/
// utils/audioprocessing.cpp for the post-filter chain; USB/LSB bin
// extraction is keyed off the subscriber's tuned carrier (mid), and the
// odd-frame sign-alternation predicate (spec.md §9.3 Open Question)
// uses the mirrored form for LSB, swapping the parity test USB uses.
package audiopipeline

import (
	"errors"
	"math"
	"sync"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/cwsl/sdrbroadcast/internal/dsp"
	"github.com/cwsl/sdrbroadcast/internal/fft"
	"github.com/cwsl/sdrbroadcast/internal/subscriber"
)

// ErrNaN is returned when a demodulated block contains a non-finite
// sample; spec.md §7 treats this as a per-subscriber DSPError that
// drops the frame for that subscriber without affecting anyone else.
var ErrNaN = errors.New("audiopipeline: non-finite sample")

// perSubState is the subscriber-specific DSP chain kept across frames.
type perSubState struct {
	mu       sync.Mutex
	ifftSize int
	ifft     *fourier.CmplxFFT
	overlap  []float32
	lastFM   complex64
	dc       *dsp.DCBlocker
	agc      *dsp.AGC
}

// Pipeline demodulates audio for every registered subscriber.
type Pipeline struct {
	sampleRate float64

	mu    sync.Mutex
	state map[uuid.UUID]*perSubState
}

// New creates a Pipeline. sampleRate is the output PCM rate used to
// size the DC blocker and AGC time constants.
func New(sampleRate float64) *Pipeline {
	return &Pipeline{sampleRate: sampleRate, state: make(map[uuid.UUID]*perSubState)}
}

func (p *Pipeline) stateFor(id uuid.UUID, ifftSize int) *perSubState {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, ok := p.state[id]
	if !ok || st.ifftSize != ifftSize {
		st = &perSubState{
			ifftSize: ifftSize,
			ifft:     fourier.NewCmplxFFT(ifftSize),
			dc:       dsp.NewDCBlocker(int(p.sampleRate / 375)),
			agc:      dsp.NewAGC(0.7, 5, 300, 3, p.sampleRate),
		}
		p.state[id] = st
	}
	return st
}

// Forget drops per-subscriber state, called when a subscriber disconnects.
func (p *Pipeline) Forget(id uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.state, id)
}

// Process demodulates frame for sub and returns quantized PCM plus the
// average power of the extracted spectrum slice (used in the audio
// wire header, spec.md §6).
func (p *Pipeline) Process(frame *fft.Frame, sub *subscriber.AudioSubscriber) ([]int16, float64, error) {
	as := sub.State()
	ifftSize := as.AudioFFT
	if ifftSize < 2 {
		ifftSize = 512
	}

	l, r := as.L, as.R
	// A malformed or stale (l, r) must never reach frame.Spectrum[l:r] as
	// a slice-bounds panic (spec.md §7 ClientError: dropped silently, not
	// one subscriber taking the whole process down). HandleAudio already
	// validates window bounds before calling Retune, but retuning and
	// processing run concurrently, so this is checked again here.
	if l < 0 || r < l || r > frame.ResultSize {
		return nil, 0, nil
	}
	if r == l {
		return nil, 0, nil
	}
	if r-l > ifftSize {
		r = l + ifftSize
	}
	mid := as.Mid

	st := p.stateFor(sub.ID, ifftSize)
	st.mu.Lock()
	defer st.mu.Unlock()

	slice := frame.Spectrum[l:r]
	avgPower := averagePower(slice)

	// RAW skips demodulation entirely: the client gets the subscribed
	// spectrum slice itself, as interleaved I/Q, with no IFFT/overlap-add/
	// DC-block/AGC applied (original_source/src/signal.cpp's SIGNAL branch).
	if as.Mode == subscriber.ModeRAW {
		pcm := make([]int16, len(slice)*2)
		iq := make([]float32, len(slice)*2)
		for i, c := range slice {
			iq[2*i] = real(c)
			iq[2*i+1] = imag(c)
		}
		dsp.QuantizeInt16(iq, 32000, pcm)
		return pcm, avgPower, nil
	}

	// midInt positions each copied bin by its distance from the tuned
	// carrier rather than the slice's geometric middle: the IFFT then
	// does the actual frequency shift down to baseband (spec.md §4.4).
	midInt := int(math.Round(mid))
	spectrum := make([]complex128, ifftSize)

	switch as.Mode {
	case subscriber.ModeUSB:
		lo, hi := l, r
		if lo < midInt {
			lo = midInt
		}
		if hi > midInt+ifftSize {
			hi = midInt + ifftSize
		}
		for i := lo; i < hi; i++ {
			spectrum[i-midInt] = complex128(frame.Spectrum[i])
		}
	case subscriber.ModeLSB:
		lo, hi := l, r
		if lo < midInt-ifftSize+1 {
			lo = midInt - ifftSize + 1
		}
		if hi > midInt+1 {
			hi = midInt + 1
		}
		for i := lo; i < hi; i++ {
			spectrum[midInt-i] = complex128(frame.Spectrum[i])
		}
	default: // AM, FM, WBFM: complex baseband, positive and negative offsets from mid both kept
		for i := l; i < r; i++ {
			off := i - midInt
			idx := ((off % ifftSize) + ifftSize) % ifftSize
			spectrum[idx] = complex128(frame.Spectrum[i])
		}
	}

	if signFlip(midInt, frame.IsReal, as.Mode, frame.Num) {
		for i := range spectrum {
			spectrum[i] = -spectrum[i]
		}
	}

	timeDomain := st.ifft.Sequence(nil, spectrum)

	pcmFloat := make([]float32, ifftSize)
	switch as.Mode {
	case subscriber.ModeUSB, subscriber.ModeLSB:
		for i, c := range timeDomain {
			pcmFloat[i] = float32(real(c))
		}
		if as.Mode == subscriber.ModeLSB {
			reverseFloat32(pcmFloat)
		}
	case subscriber.ModeAM:
		baseband := make([]complex64, ifftSize)
		for i, c := range timeDomain {
			baseband[i] = complex64(c)
		}
		dsp.AMEnvelope(baseband, pcmFloat)
	case subscriber.ModeFM, subscriber.ModeWBFM:
		baseband := make([]complex64, ifftSize)
		for i, c := range timeDomain {
			baseband[i] = complex64(c)
		}
		st.lastFM = dsp.FMDiscriminator(baseband, st.lastFM, pcmFloat)
	}

	out := overlapAdd(st, pcmFloat)

	st.dc.ProcessInPlace(out)
	st.agc.Process(out)

	for _, v := range out {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil, 0, ErrNaN
		}
	}

	pcm := make([]int16, len(out))
	dsp.QuantizeInt16(out, 32000, pcm)
	return pcm, avgPower, nil
}

// signFlip implements spec.md §4.4's sign-alternation contract: 50%
// overlap between consecutive frames inverts the reconstructed waveform
// whenever the tuned carrier bin's parity is opposite the frame's. USB
// uses the base predicate; LSB uses the mirrored form DESIGN.md's
// Open Question resolution (OQ-2) adopts (swap the parity test); AM/FM apply
// the same condition as USB to their complex baseband.
func signFlip(midInt int, isReal bool, mode subscriber.Mode, frameNum uint64) bool {
	if frameNum%2 == 0 {
		return false
	}
	if mode == subscriber.ModeLSB {
		if isReal {
			return midInt%2 == 0
		}
		return midInt%2 != 0
	}
	if isReal {
		return midInt%2 != 0
	}
	return midInt%2 == 0
}

func reverseFloat32(x []float32) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}

func averagePower(slice []complex64) float64 {
	if len(slice) == 0 {
		return 0
	}
	var sum float64
	for _, c := range slice {
		re, im := float64(real(c)), float64(imag(c))
		sum += re*re + im*im
	}
	return sum / float64(len(slice))
}

// overlapAdd combines this block's first half with the previous
// block's saved tail (spec.md §4.4's 50% overlap-add reconstruction)
// and returns the audioFFT/2 samples ready for output.
func overlapAdd(st *perSubState, block []float32) []float32 {
	half := len(block) / 2
	out := make([]float32, half)
	if len(st.overlap) != half {
		st.overlap = make([]float32, half)
	}
	for i := 0; i < half; i++ {
		out[i] = block[i] + st.overlap[i]
	}
	copy(st.overlap, block[half:])
	return out
}
