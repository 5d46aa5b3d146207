package core

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, uint32(256), cfg.ConstBuffer.BytesPerSlot)
	assert.Equal(t, DefaultMaxConstBufferSize, cfg.ConstBuffer.MaxBufferSize)
}

func TestParseConfigOverridesDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
[logging]
level = "debug"

[const_buffer]
bytes_per_slot = 128

[materials]
directory = "mats"
watch = true
`))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, uint32(128), cfg.ConstBuffer.BytesPerSlot)
	// untouched keys keep their default
	assert.Equal(t, DefaultMaxConstBufferSize, cfg.ConstBuffer.MaxBufferSize)
	assert.Equal(t, "mats", cfg.Materials.Directory)
	assert.True(t, cfg.Materials.Watch)
}

func TestParseConfigRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"zero slot size", "[const_buffer]\nbytes_per_slot = 0\n"},
		{"buffer smaller than slot", "[const_buffer]\nbytes_per_slot = 512\nmax_buffer_size = 256\n"},
		{"buffer above ceiling", "[const_buffer]\nmax_buffer_size = 131072\n"},
		{"malformed", "[const_buffer\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.data))
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.toml")
	require.NoError(t, os.WriteFile(path, []byte("[const_buffer]\nbytes_per_slot = 64\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(64), cfg.ConstBuffer.BytesPerSlot)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestSetLogLevel(t *testing.T) {
	require.NoError(t, SetLogLevel("debug"))
	require.ErrorIs(t, SetLogLevel("loud"), ErrInvalidConfig)
	require.NoError(t, SetLogLevel("info"))
}

func TestSetLogOutput(t *testing.T) {
	var buf bytes.Buffer
	SetLogOutput(&buf)
	t.Cleanup(func() { SetLogOutput(os.Stderr) })

	LogWarn("pool %d is full", 3)
	assert.Contains(t, buf.String(), "pool 3 is full")
}
