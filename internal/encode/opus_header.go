package encode

import (
	"encoding/binary"
	"math"
)

// OpusMagic identifies an Opus-encoded audio packet.
const OpusMagic uint16 = 0x4F50 // "OP"

// OpusHeaderSize is the fixed header preceding the Opus payload,
// mirroring PCMHeaderSize's layout so clients share one parser shape.
const OpusHeaderSize = 27

func encodeOpusHeader(payload []byte, frameNum uint64, l, r int, mid, avgPower float64) []byte {
	out := make([]byte, OpusHeaderSize+len(payload))
	binary.BigEndian.PutUint16(out[0:], OpusMagic)
	out[2] = 1
	binary.BigEndian.PutUint64(out[3:], frameNum)
	binary.BigEndian.PutUint32(out[11:], uint32(int32(l)))
	binary.BigEndian.PutUint32(out[15:], uint32(int32(math.Round(mid))))
	binary.BigEndian.PutUint32(out[19:], uint32(int32(r)))
	binary.BigEndian.PutUint32(out[23:], math.Float32bits(float32(avgPower)))
	copy(out[OpusHeaderSize:], payload)
	return out
}
