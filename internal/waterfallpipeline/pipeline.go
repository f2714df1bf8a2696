// Package waterfallpipeline implements the per-subscriber waterfall
// fan-out stage (spec.md C5): slice the requested pyramid level and
// bin range out of the published frame and hand it to the configured
// WaterfallEncoder. There is no per-subscriber state to carry across
// frames (unlike audiopipeline), so this package is just extraction.
package waterfallpipeline

import (
	"fmt"

	"github.com/cwsl/sdrbroadcast/internal/encode"
	"github.com/cwsl/sdrbroadcast/internal/fft"
	"github.com/cwsl/sdrbroadcast/internal/subscriber"
)

// Pipeline extracts and encodes waterfall segments.
type Pipeline struct {
	enc encode.WaterfallEncoder
}

func New(enc encode.WaterfallEncoder) *Pipeline {
	return &Pipeline{enc: enc}
}

// EncoderName reports the wire encoder in use, for the InitialInfo handshake.
func (p *Pipeline) EncoderName() string { return p.enc.Name() }

// Process extracts sub's viewport from frame's pyramid and encodes it.
func (p *Pipeline) Process(frame *fft.Frame, sub *subscriber.WaterfallSubscriber) ([]byte, error) {
	level, l, r := sub.Viewport()
	if level < 0 || level >= len(frame.Pyramid) {
		return nil, fmt.Errorf("waterfallpipeline: level %d out of range (0..%d)", level, len(frame.Pyramid)-1)
	}
	levelData := frame.Pyramid[level]
	if r > len(levelData) {
		r = len(levelData)
	}
	if l < 0 || l >= r {
		return nil, nil
	}
	return p.enc.Encode(levelData[l:r], frame.Num, l, r)
}
