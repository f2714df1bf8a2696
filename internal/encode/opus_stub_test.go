//go:build !opus
// +build !opus

package encode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewOpusEncoderFailsWithoutBuildTag(t *testing.T) {
	enc, err := NewOpusEncoder(48000, 24000, 5)
	assert.Nil(t, enc)
	assert.Error(t, err)
}
