//go:build !opus
// +build !opus

package encode

import (
	"fmt"
	"log"
)

// OpusEncoder is the stub used by ordinary (non `-tags opus`) builds.
// It always reports failure from NewOpusEncoder so callers fall back
// to PCM, exactly as the teacher's opus_stub.go does.
type OpusEncoder struct{}

// NewOpusEncoder always fails in a stub build.
func NewOpusEncoder(sampleRate, bitrate, complexity int) (*OpusEncoder, error) {
	log.Printf("encode: opus requested but not compiled in (build with -tags opus); falling back to pcm")
	return nil, fmt.Errorf("encode: opus support not compiled in")
}

func (OpusEncoder) Name() string { return "opus" }

func (*OpusEncoder) Encode(pcm []int16, frameNum uint64, l, r int, mid, avgPower float64) ([]byte, error) {
	return nil, fmt.Errorf("encode: opus support not compiled in")
}
