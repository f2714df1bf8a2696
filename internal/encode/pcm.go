package encode

import (
	"encoding/binary"
	"math"
)

// PCMMagic identifies a raw-PCM audio packet (spec.md §6 wire format).
const PCMMagic uint16 = 0x5043 // "PC"

// PCMHeaderSize is the fixed header: magic(2) version(1) frame_num(8)
// l(4) mid(4) r(4) avg_power(4, float32 bits) = 27 bytes.
const PCMHeaderSize = 27

// PCMEncoder emits big-endian int16 PCM with the header spec.md §6
// requires. It holds no state and is safe for concurrent use.
type PCMEncoder struct{}

func NewPCMEncoder() *PCMEncoder { return &PCMEncoder{} }

func (PCMEncoder) Name() string { return "pcm" }

func (PCMEncoder) Encode(pcm []int16, frameNum uint64, l, r int, mid, avgPower float64) ([]byte, error) {
	out := make([]byte, PCMHeaderSize+len(pcm)*2)
	binary.BigEndian.PutUint16(out[0:], PCMMagic)
	out[2] = 1
	binary.BigEndian.PutUint64(out[3:], frameNum)
	binary.BigEndian.PutUint32(out[11:], uint32(int32(l)))
	binary.BigEndian.PutUint32(out[15:], uint32(int32(math.Round(mid))))
	binary.BigEndian.PutUint32(out[19:], uint32(int32(r)))
	binary.BigEndian.PutUint32(out[23:], math.Float32bits(float32(avgPower)))
	for i, s := range pcm {
		binary.BigEndian.PutUint16(out[PCMHeaderSize+i*2:], uint16(s))
	}
	return out, nil
}
