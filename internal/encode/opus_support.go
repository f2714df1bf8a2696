//go:build opus
// +build opus

package encode

import (
	"fmt"

	opus "gopkg.in/hraban/opus.v2"
)

// OpusEncoder wraps libopus, matching the teacher's build-tag-gated
// opus_support.go/opus_stub.go pair exactly: the real encoder only
// compiles in with `-tags opus` (it needs libopus/pkg-config present),
// everything else always builds against the stub in opus_stub.go.
type OpusEncoder struct {
	enc        *opus.Encoder
	bitrate    int
	complexity int
}

// NewOpusEncoder creates a real Opus encoder for the given sample rate.
func NewOpusEncoder(sampleRate, bitrate, complexity int) (*OpusEncoder, error) {
	enc, err := opus.NewEncoder(sampleRate, 1, opus.AppVoIP)
	if err != nil {
		return nil, fmt.Errorf("encode: opus encoder init: %w", err)
	}
	if err := enc.SetBitrate(bitrate); err != nil {
		return nil, fmt.Errorf("encode: opus set bitrate: %w", err)
	}
	if err := enc.SetComplexity(complexity); err != nil {
		return nil, fmt.Errorf("encode: opus set complexity: %w", err)
	}
	return &OpusEncoder{enc: enc, bitrate: bitrate, complexity: complexity}, nil
}

func (OpusEncoder) Name() string { return "opus" }

func (o *OpusEncoder) Encode(pcm []int16, frameNum uint64, l, r int, mid, avgPower float64) ([]byte, error) {
	buf := make([]byte, 4000)
	n, err := o.enc.Encode(pcm, buf)
	if err != nil {
		return nil, fmt.Errorf("encode: opus encode: %w", err)
	}
	return encodeOpusHeader(buf[:n], frameNum, l, r, mid, avgPower), nil
}
