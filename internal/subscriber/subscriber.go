// Package subscriber defines the per-client state the scheduler and
// pipelines operate on: waterfall viewport subscribers, audio
// demodulation subscribers, and the control-event subscriber set
// (spec.md §3 DATA MODEL, §4.5/§4.6/§4.7).
package subscriber

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Mode is the audio demodulation mode. RAW and WBFM are supplemented
// beyond spec.md's USB/LSB/AM/FM core set (SPEC_FULL.md §4).
type Mode int

const (
	ModeUSB Mode = iota
	ModeLSB
	ModeAM
	ModeFM
	ModeRAW
	ModeWBFM
)

// String returns the wire name ParseMode accepts for this Mode, used
// when reporting the default mode in the InitialInfo handshake.
func (m Mode) String() string {
	switch m {
	case ModeUSB:
		return "usb"
	case ModeLSB:
		return "lsb"
	case ModeAM:
		return "am"
	case ModeFM:
		return "fm"
	case ModeRAW:
		return "raw"
	case ModeWBFM:
		return "wbfm"
	default:
		return "usb"
	}
}

// ParseMode maps a control-message "demodulation" field to a Mode.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "usb":
		return ModeUSB, true
	case "lsb":
		return ModeLSB, true
	case "am":
		return ModeAM, true
	case "fm":
		return ModeFM, true
	case "raw":
		return ModeRAW, true
	case "wbfm":
		return ModeWBFM, true
	default:
		return 0, false
	}
}

// AudioState carries a subscriber's tuning and mode. Overlap and
// LastSample are cleared by SetMode and left alone by Retune; the DSP
// chain that actually runs per frame (overlap-add tail, DC blocker, AGC,
// FM discriminator memory) is kept by audiopipeline.Pipeline, keyed by
// subscriber ID.
type AudioState struct {
	Mode       Mode
	AudioFFT   int     // client-chosen IFFT size, <= audio_max_fft_size
	L, R       int     // subscribed bin range into the master spectrum
	Mid        float64 // tuned carrier bin: the demodulation reference, not necessarily (L+R)/2
	LastSample complex64
	Overlap    []float32
}

// AudioSubscriber is one /audio WebSocket connection.
type AudioSubscriber struct {
	ID     uuid.UUID
	UserID string

	mu     sync.Mutex
	state  AudioState
	muted  atomic.Bool

	// Processing guards against overlapping delivery of two frames to
	// the same connection; a single atomic swap replaces the
	// strand+processing_flag pair spec.md describes (DESIGN.md
	// Open Question decisions), since both the mutual exclusion and
	// the in-order delivery it protects reduce to "don't start frame
	// n+1's work for this subscriber until frame n's finished".
	Processing atomic.Bool

	// Send delivers an encoded frame to the connection's writer
	// goroutine; it must never block (spec.md §5 backpressure rule).
	Send func(data []byte, isWaterfall bool) (dropped bool)
}

// NewAudioSubscriber creates a subscriber with default USB demodulation.
func NewAudioSubscriber(id uuid.UUID, send func([]byte, bool) bool) *AudioSubscriber {
	return &AudioSubscriber{ID: id, Send: send, state: AudioState{Mode: ModeUSB}}
}

// State returns a copy of the current tuning/mode state.
func (s *AudioSubscriber) State() AudioState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Retune updates the bin range and tuned carrier without resetting
// demodulator state (continuous tuning should not click).
func (s *AudioSubscriber) Retune(l, r int, mid float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.L, s.state.R, s.state.Mid = l, r, mid
}

// SetMode changes demodulation mode and clears the Overlap and
// LastSample fields of the subscriber's AudioState.
func (s *AudioSubscriber) SetMode(m Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Mode = m
	s.state.Overlap = nil
	s.state.LastSample = 0
}

// SetAudioFFT sets the client's requested IFFT size.
func (s *AudioSubscriber) SetAudioFFT(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.AudioFFT = n
}

// Muted reports whether the subscriber asked to suppress audio
// delivery while keeping its tuning (spec.md §6 control message "mute").
func (s *AudioSubscriber) Muted() bool { return s.muted.Load() }

// SetMuted sets the mute flag.
func (s *AudioSubscriber) SetMuted(v bool) { s.muted.Store(v) }

// WaterfallSubscriber is one /waterfall WebSocket connection viewing a
// single pyramid level and bin range.
type WaterfallSubscriber struct {
	ID uuid.UUID

	mu      sync.Mutex
	Level   int
	L, R    int
	SkipNum int // throttle: deliver every SkipNum-th frame
	skipAt  int

	Processing atomic.Bool
	Send       func(data []byte) (dropped bool)
}

// NewWaterfallSubscriber creates a subscriber viewing level 0 by default.
func NewWaterfallSubscriber(id uuid.UUID, send func([]byte) bool) *WaterfallSubscriber {
	return &WaterfallSubscriber{ID: id, Send: send, SkipNum: 1}
}

// Retune updates the viewport.
func (w *WaterfallSubscriber) Retune(level, l, r int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Level, w.L, w.R = level, l, r
}

// Viewport returns the current level and bin range.
func (w *WaterfallSubscriber) Viewport() (level, l, r int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Level, w.L, w.R
}

// ShouldDeliver advances the skip counter and reports whether this
// frame should be encoded and sent, implementing the waterfall
// throttling described in spec.md §4.7/§9.2 (skip_num).
func (w *WaterfallSubscriber) ShouldDeliver() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.skipAt++
	if w.skipAt < w.SkipNum {
		return false
	}
	w.skipAt = 0
	return true
}

// EventSubscriber is one /events WebSocket connection receiving
// periodic signal_changes broadcasts (spec.md §4.6).
type EventSubscriber struct {
	ID   uuid.UUID
	Send func(data []byte) (dropped bool)
}
