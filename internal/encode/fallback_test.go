package encode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAV1WaterfallEncoderFallsBackToZstd(t *testing.T) {
	enc := NewAV1WaterfallEncoder()
	assert.Equal(t, "zstd", enc.Name())

	out, err := enc.Encode([]int8{1, 2, 3}, 1, 0, 3)
	require.NoError(t, err)
	assert.Greater(t, len(out), ZstdHeaderSize)
}

func TestFLACAudioEncoderFallsBackToPCM(t *testing.T) {
	pcmEnc := NewPCMEncoder()
	enc := NewFLACAudioEncoder(pcmEnc)
	assert.Equal(t, "pcm", enc.Name())

	out, err := enc.Encode([]int16{1, 2, 3}, 1, 0, 3, 1.5, 0.1)
	require.NoError(t, err)
	assert.Equal(t, PCMHeaderSize+6, len(out))
}
