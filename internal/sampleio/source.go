// Package sampleio adapts an opaque byte stream (stdin, in this
// server) into aligned blocks of normalised float32 samples, real or
// interleaved IQ. Grounded on spec.md §4.1; the sample-format
// conversion matches original_source/src/samplereader.cpp's per-format
// scaling, written as one switch over Format instead of the C++ template
// explosion the spec's redesign notes (§9.1) call out.
package sampleio

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
)

// ErrEndOfStream is returned when the underlying reader can't fill a
// full block; per spec.md §4.1/§7 this is fatal and terminates the server.
var ErrEndOfStream = errors.New("sampleio: end of stream")

// Format identifies the wire representation of one sample.
type Format int

const (
	FormatU8 Format = iota
	FormatS8
	FormatU16
	FormatS16
	FormatU32
	FormatS32
	FormatU64
	FormatS64
	FormatF32
	FormatF64
)

// ParseFormat maps a config string (§9.2 input.driver.format) to a Format.
func ParseFormat(s string) (Format, bool) {
	switch s {
	case "u8":
		return FormatU8, true
	case "s8":
		return FormatS8, true
	case "u16":
		return FormatU16, true
	case "s16":
		return FormatS16, true
	case "u32":
		return FormatU32, true
	case "s32":
		return FormatS32, true
	case "u64":
		return FormatU64, true
	case "s64":
		return FormatS64, true
	case "f32":
		return FormatF32, true
	case "f64":
		return FormatF64, true
	default:
		return 0, false
	}
}

func (f Format) bytesPerSample() int {
	switch f {
	case FormatU8, FormatS8:
		return 1
	case FormatU16, FormatS16:
		return 2
	case FormatU32, FormatS32, FormatF32:
		return 4
	case FormatU64, FormatS64, FormatF64:
		return 8
	}
	return 0
}

// Source pulls aligned, normalised float32 sample blocks from an
// underlying byte stream.
type Source interface {
	// Read fills buf with exactly len(buf) floats (real: 1 float per
	// sample; IQ: 2 floats per sample, interleaved I,Q). Blocks until
	// full or returns ErrEndOfStream.
	Read(buf []float32) error
}

// ByteSource is a Source backed by an io.Reader and a wire Format.
type ByteSource struct {
	r      io.Reader
	format Format
	raw    []byte // scratch buffer reused across Read calls
}

// NewByteSource wraps r, decoding each sample as format.
func NewByteSource(r io.Reader, format Format) *ByteSource {
	return &ByteSource{r: r, format: format}
}

// Read implements Source.
func (s *ByteSource) Read(buf []float32) error {
	n := len(buf)
	bps := s.format.bytesPerSample()
	need := n * bps
	if cap(s.raw) < need {
		s.raw = make([]byte, need)
	}
	raw := s.raw[:need]
	if _, err := io.ReadFull(s.r, raw); err != nil {
		return ErrEndOfStream
	}
	decodeInto(s.format, raw, buf)
	return nil
}

// decodeInto converts a raw byte block to normalised float32 samples
// per format, following the signed-centred scaling rule of spec.md
// §4.1: f32 = (x XOR sign_bit_if_unsigned) / 2^(bitwidth-1).
func decodeInto(format Format, raw []byte, out []float32) {
	switch format {
	case FormatU8:
		for i, b := range raw {
			out[i] = float32(int8(b^0x80)) / 128.0
		}
	case FormatS8:
		for i, b := range raw {
			out[i] = float32(int8(b)) / 128.0
		}
	case FormatU16:
		for i := range out {
			v := binary.LittleEndian.Uint16(raw[i*2:])
			out[i] = float32(int16(v^0x8000)) / 32768.0
		}
	case FormatS16:
		for i := range out {
			v := binary.LittleEndian.Uint16(raw[i*2:])
			out[i] = float32(int16(v)) / 32768.0
		}
	case FormatU32:
		for i := range out {
			v := binary.LittleEndian.Uint32(raw[i*4:])
			out[i] = float32(int32(v^0x80000000)) / 2147483648.0
		}
	case FormatS32:
		for i := range out {
			v := binary.LittleEndian.Uint32(raw[i*4:])
			out[i] = float32(int32(v)) / 2147483648.0
		}
	case FormatU64:
		for i := range out {
			v := binary.LittleEndian.Uint64(raw[i*8:])
			out[i] = float32(int64(v^0x8000000000000000)) / 9223372036854775808.0
		}
	case FormatS64:
		for i := range out {
			v := binary.LittleEndian.Uint64(raw[i*8:])
			out[i] = float32(int64(v)) / 9223372036854775808.0
		}
	case FormatF32:
		for i := range out {
			bits := binary.LittleEndian.Uint32(raw[i*4:])
			out[i] = math.Float32frombits(bits)
		}
	case FormatF64:
		for i := range out {
			bits := binary.LittleEndian.Uint64(raw[i*8:])
			out[i] = float32(math.Float64frombits(bits))
		}
	}
}
