package encode

import (
	"encoding/binary"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// ZstdMagic identifies a zstd-compressed waterfall packet.
const ZstdMagic uint16 = 0x5A57 // "ZW"

// ZstdHeaderSize is the fixed header: magic(2) version(1) frame_num(8)
// l(4) r(4) = 19 bytes, matching the teacher's pcm_binary.go framing
// style but sized for waterfall segments instead of PCM.
const ZstdHeaderSize = 19

// ZstdWaterfallEncoder compresses each int8 pyramid segment with a
// pooled zstd encoder (grounded on the teacher's pcm_binary.go, which
// uses the same klauspost/compress/zstd package for PCM compression).
type ZstdWaterfallEncoder struct {
	pool sync.Pool
}

// NewZstdWaterfallEncoder creates an encoder with a small pool of
// reusable *zstd.Encoder instances (construction is not free).
func NewZstdWaterfallEncoder() *ZstdWaterfallEncoder {
	return &ZstdWaterfallEncoder{
		pool: sync.Pool{
			New: func() any {
				enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
				return enc
			},
		},
	}
}

func (ZstdWaterfallEncoder) Name() string { return "zstd" }

func (z *ZstdWaterfallEncoder) Encode(segment []int8, frameNum uint64, l, r int) ([]byte, error) {
	raw := make([]byte, len(segment))
	for i, v := range segment {
		raw[i] = byte(v)
	}

	enc := z.pool.Get().(*zstd.Encoder)
	compressed := enc.EncodeAll(raw, nil)
	z.pool.Put(enc)

	out := make([]byte, ZstdHeaderSize+len(compressed))
	binary.BigEndian.PutUint16(out[0:], ZstdMagic)
	out[2] = 1
	binary.BigEndian.PutUint64(out[3:], frameNum)
	binary.BigEndian.PutUint32(out[11:], uint32(int32(l)))
	binary.BigEndian.PutUint32(out[15:], uint32(int32(r)))
	copy(out[ZstdHeaderSize:], compressed)
	return out, nil
}
