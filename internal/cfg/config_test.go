package cfg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
[input]
format = "s16"
sample_rate = 48000
frequency = 7100000
`)
	c, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", c.Server.Listen)
	assert.Equal(t, "static", c.Server.StaticDir)
	assert.Equal(t, "real", c.Input.Kind)
	assert.Equal(t, 4096, c.Input.FFTSize)
	assert.Equal(t, 12000, c.Input.AudioSampleRate)
	assert.Equal(t, 1024, c.Audio.MaxFFTSize)
	assert.Equal(t, 512, c.Audio.DefaultFFTSize)
	assert.Equal(t, "usb", c.Audio.DefaultModulation)
	assert.Equal(t, "pcm", c.Audio.Compression)
	assert.Equal(t, 64, c.Waterfall.MinFFTSize)
	assert.Equal(t, "zstd", c.Waterfall.Compression)
	assert.Equal(t, 1, c.Waterfall.SkipNum)
	assert.Equal(t, ":9090", c.Prometheus.Listen)
}

func TestLoadConfigHonoursExplicitValues(t *testing.T) {
	path := writeConfig(t, `
[server]
listen = ":9999"

[input]
kind = "iq"
fft_size = 2048
sample_rate = 2000000
frequency = 14070000
audio_sps = 8000

[audio]
compression = "opus"
`)
	c, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", c.Server.Listen)
	assert.Equal(t, "iq", c.Input.Kind)
	assert.Equal(t, 2048, c.Input.FFTSize)
	assert.Equal(t, 8000, c.Input.AudioSampleRate)
	assert.Equal(t, "opus", c.Audio.Compression)
}

func TestLoadConfigRejectsMissingSampleRate(t *testing.T) {
	path := writeConfig(t, `
[input]
frequency = 7100000
`)
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigRejectsMissingFrequency(t *testing.T) {
	path := writeConfig(t, `
[input]
sample_rate = 48000
`)
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigRejectsOddFFTSize(t *testing.T) {
	path := writeConfig(t, `
[input]
fft_size = 1023
`)
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigRejectsBadKind(t *testing.T) {
	path := writeConfig(t, `
[input]
kind = "quadrature"
`)
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestValidateRequiresListen(t *testing.T) {
	c := &Config{}
	c.applyDefaults()
	c.Server.Listen = ""
	assert.Error(t, c.Validate())
}
