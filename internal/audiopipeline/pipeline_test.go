package audiopipeline

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwsl/sdrbroadcast/internal/fft"
	"github.com/cwsl/sdrbroadcast/internal/subscriber"
)

func TestAveragePowerEmptyIsZero(t *testing.T) {
	assert.Equal(t, 0.0, averagePower(nil))
}

func TestAveragePowerComputesMeanSquaredMagnitude(t *testing.T) {
	slice := []complex64{complex(3, 4), complex(0, 0)} // |.|^2 = 25, 0
	assert.InDelta(t, 12.5, averagePower(slice), 1e-9)
}

func TestSignFlipNeverAppliesOnEvenFrames(t *testing.T) {
	assert.False(t, signFlip(1, true, subscriber.ModeUSB, 2))
	assert.False(t, signFlip(1, false, subscriber.ModeUSB, 0))
}

func TestSignFlipUSBParityPredicate(t *testing.T) {
	assert.True(t, signFlip(1, true, subscriber.ModeUSB, 1))   // real input, mid odd
	assert.False(t, signFlip(2, true, subscriber.ModeUSB, 1))  // real input, mid even
	assert.True(t, signFlip(2, false, subscriber.ModeUSB, 1))  // IQ input, mid even
	assert.False(t, signFlip(1, false, subscriber.ModeUSB, 1)) // IQ input, mid odd
}

func TestSignFlipLSBIsMirroredAgainstUSB(t *testing.T) {
	// Same (midInt, isReal) pairs as TestSignFlipUSBParityPredicate; LSB
	// inverts every outcome (DESIGN.md's mirrored-form resolution, OQ-2).
	assert.False(t, signFlip(1, true, subscriber.ModeLSB, 1))
	assert.True(t, signFlip(2, true, subscriber.ModeLSB, 1))
	assert.False(t, signFlip(2, false, subscriber.ModeLSB, 1))
	assert.True(t, signFlip(1, false, subscriber.ModeLSB, 1))
}

func TestSignFlipAMFMMatchesUSBPredicate(t *testing.T) {
	assert.Equal(t, signFlip(1, true, subscriber.ModeUSB, 1), signFlip(1, true, subscriber.ModeAM, 1))
	assert.Equal(t, signFlip(2, false, subscriber.ModeUSB, 1), signFlip(2, false, subscriber.ModeFM, 1))
}

func TestReverseFloat32(t *testing.T) {
	x := []float32{1, 2, 3, 4, 5}
	reverseFloat32(x)
	assert.Equal(t, []float32{5, 4, 3, 2, 1}, x)
}

func TestProcessRejectsOutOfRangeWindow(t *testing.T) {
	p := New(48000)
	sub := subscriber.NewAudioSubscriber(uuid.New(), func([]byte, bool) bool { return false })
	sub.SetAudioFFT(8)
	sub.Retune(-5, 10, 0) // malformed: negative l must not slice-bounds panic
	frame := &fft.Frame{Spectrum: make([]complex64, 32), ResultSize: 32}

	pcm, avgPower, err := p.Process(frame, sub)
	require.NoError(t, err)
	assert.Nil(t, pcm)
	assert.Equal(t, 0.0, avgPower)
}

func TestOverlapAddCombinesPreviousTail(t *testing.T) {
	st := &perSubState{}
	first := overlapAdd(st, []float32{1, 2, 3, 4})
	assert.Equal(t, []float32{1, 2}, first) // no previous tail yet
	second := overlapAdd(st, []float32{10, 20, 30, 40})
	// second block's first half (10,20) + first block's saved tail (3,4)
	assert.Equal(t, []float32{13, 24}, second)
}

func TestProcessReturnsEmptyWhenUntuned(t *testing.T) {
	p := New(48000)
	sub := subscriber.NewAudioSubscriber(uuid.New(), func([]byte, bool) bool { return false })
	frame := &fft.Frame{Spectrum: make([]complex64, 32), ResultSize: 32}

	pcm, avgPower, err := p.Process(frame, sub)
	require.NoError(t, err)
	assert.Nil(t, pcm)
	assert.Equal(t, 0.0, avgPower)
}

func TestProcessRawModeSkipsIFFTAndPassesIQThrough(t *testing.T) {
	p := New(48000)
	sub := subscriber.NewAudioSubscriber(uuid.New(), func([]byte, bool) bool { return false })
	sub.SetMode(subscriber.ModeRAW)
	sub.SetAudioFFT(8)
	sub.Retune(0, 4, 2)

	spectrum := make([]complex64, 32)
	spectrum[0] = complex(0.5, -0.25)
	frame := &fft.Frame{Spectrum: spectrum, ResultSize: 32}

	pcm, _, err := p.Process(frame, sub)
	require.NoError(t, err)
	// 4 bins, interleaved I/Q -> 8 int16 samples, no overlap-add halving.
	require.Len(t, pcm, 8)
	assert.InDelta(t, 0.5*32000, float64(pcm[0]), 2)
	assert.InDelta(t, -0.25*32000, float64(pcm[1]), 2)
}

func TestForgetDropsState(t *testing.T) {
	p := New(48000)
	id := uuid.New()
	p.stateFor(id, 8)
	assert.Len(t, p.state, 1)
	p.Forget(id)
	assert.Len(t, p.state, 0)
}
