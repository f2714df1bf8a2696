// Package encode implements the wire encoders for audio and waterfall
// frames (spec.md §6). Every format is self-describing with a small
// fixed binary header, following the teacher's pcm_binary.go framing
// convention (magic + version + fields, big-endian), generalised to
// the demodulator/pyramid outputs this server actually produces.
package encode

// AudioEncoder turns one subscriber's demodulated PCM block into wire
// bytes, given the frame metadata spec.md §6 requires clients be able
// to recover: frame number, subscribed bin range, and average power.
type AudioEncoder interface {
	Encode(pcm []int16, frameNum uint64, l, r int, mid, avgPower float64) ([]byte, error)
	// Name identifies the encoder for the InitialInfo handshake ("pcm", "opus").
	Name() string
}

// WaterfallEncoder turns one pyramid level segment into wire bytes.
type WaterfallEncoder interface {
	Encode(segment []int8, frameNum uint64, l, r int) ([]byte, error)
	Name() string
}
