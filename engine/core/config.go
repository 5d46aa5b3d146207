package core

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// DefaultMaxConstBufferSize is the ceiling applied to a single const buffer
// pool, regardless of what the device reports.
const DefaultMaxConstBufferSize uint64 = 64 * 1024

type LoggingConfig struct {
	Level string `toml:"level"`
}

type ConstBufferConfig struct {
	/** @brief Size in bytes of a single slot. Every user of a pool occupies exactly one slot. */
	BytesPerSlot uint32 `toml:"bytes_per_slot"`
	/** @brief Upper bound for the size of one pool buffer. */
	MaxBufferSize uint64 `toml:"max_buffer_size"`
}

type MaterialsConfig struct {
	/** @brief Directory scanned for material definitions at startup. */
	Directory string `toml:"directory"`
	/** @brief Reload material definitions when they change on disk. */
	Watch bool `toml:"watch"`
}

type EngineConfig struct {
	Logging     LoggingConfig     `toml:"logging"`
	ConstBuffer ConstBufferConfig `toml:"const_buffer"`
	Materials   MaterialsConfig   `toml:"materials"`
}

func DefaultConfig() *EngineConfig {
	return &EngineConfig{
		Logging: LoggingConfig{
			Level: "info",
		},
		ConstBuffer: ConstBufferConfig{
			BytesPerSlot:  256,
			MaxBufferSize: DefaultMaxConstBufferSize,
		},
		Materials: MaterialsConfig{
			Directory: "assets/materials",
			Watch:     false,
		},
	}
}

// LoadConfig reads a TOML file on top of the defaults.
func LoadConfig(path string) (*EngineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (*EngineConfig, error) {
	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *EngineConfig) Validate() error {
	if c.ConstBuffer.BytesPerSlot == 0 {
		return fmt.Errorf("%w: const_buffer.bytes_per_slot must be > 0", ErrInvalidConfig)
	}
	if c.ConstBuffer.MaxBufferSize < uint64(c.ConstBuffer.BytesPerSlot) {
		return fmt.Errorf("%w: const_buffer.max_buffer_size (%d) is smaller than bytes_per_slot (%d)",
			ErrInvalidConfig, c.ConstBuffer.MaxBufferSize, c.ConstBuffer.BytesPerSlot)
	}
	if c.ConstBuffer.MaxBufferSize > DefaultMaxConstBufferSize {
		return fmt.Errorf("%w: const_buffer.max_buffer_size (%d) is above the %d byte ceiling",
			ErrInvalidConfig, c.ConstBuffer.MaxBufferSize, DefaultMaxConstBufferSize)
	}
	return nil
}
