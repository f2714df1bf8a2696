package encode

import (
	"log"
	"sync"
)

// AV1WaterfallEncoder is requested by spec.md as a possible waterfall
// transport but no AV1 encoder library exists anywhere in the
// available dependency set; rather than hand-roll a bitstream encoder
// it degrades to the Zstd encoder and logs once, the same graceful
// degradation shape as the teacher's opus_stub.go.
type AV1WaterfallEncoder struct {
	fallback *ZstdWaterfallEncoder
	warnOnce sync.Once
}

func NewAV1WaterfallEncoder() *AV1WaterfallEncoder {
	return &AV1WaterfallEncoder{fallback: NewZstdWaterfallEncoder()}
}

func (AV1WaterfallEncoder) Name() string { return "zstd" }

func (a *AV1WaterfallEncoder) Encode(segment []int8, frameNum uint64, l, r int) ([]byte, error) {
	a.warnOnce.Do(func() {
		log.Printf("encode: av1 waterfall encoding requested but no av1 encoder is available; using zstd")
	})
	return a.fallback.Encode(segment, frameNum, l, r)
}

// FLACAudioEncoder: no FLAC encoder library is available either;
// degrades to Opus when compiled with -tags opus, otherwise PCM.
type FLACAudioEncoder struct {
	fallback AudioEncoder
	warnOnce sync.Once
}

func NewFLACAudioEncoder(fallback AudioEncoder) *FLACAudioEncoder {
	return &FLACAudioEncoder{fallback: fallback}
}

func (f *FLACAudioEncoder) Name() string { return f.fallback.Name() }

func (f *FLACAudioEncoder) Encode(pcm []int16, frameNum uint64, l, r int, mid, avgPower float64) ([]byte, error) {
	f.warnOnce.Do(func() {
		log.Printf("encode: flac audio encoding requested but no flac encoder is available; using %s", f.fallback.Name())
	})
	return f.fallback.Encode(pcm, frameNum, l, r, mid, avgPower)
}
