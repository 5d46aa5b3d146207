package loaders

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/anima-constbuffers/engine/core"
	"github.com/spaghettifunk/anima-constbuffers/engine/math"
	"github.com/spaghettifunk/anima-constbuffers/engine/renderer/metadata"
)

// MaterialFileExtension is the extension of material definition files.
const MaterialFileExtension = ".toml"

// materialFile mirrors the on-disk layout; colours are plain arrays.
type materialFile struct {
	metadata.MaterialConfig
	DiffuseColour  []float32 `toml:"diffuse_colour"`
	SpecularColour []float32 `toml:"specular_colour"`
}

func LoadMaterialFile(path string) (*metadata.MaterialConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("func LoadMaterialFile - %w", err)
	}
	cfg, err := ParseMaterial(data)
	if err != nil {
		return nil, fmt.Errorf("func LoadMaterialFile - %s: %w", path, err)
	}
	return cfg, nil
}

// ParseMaterial decodes a material definition. Colours that are not given
// default to white.
func ParseMaterial(data []byte) (*metadata.MaterialConfig, error) {
	defaults := metadata.DefaultMaterialConfig()
	file := materialFile{
		MaterialConfig: metadata.MaterialConfig{Shininess: defaults.Shininess},
	}
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidConfig, err)
	}

	cfg := file.MaterialConfig
	cfg.DiffuseColour = defaults.DiffuseColour
	cfg.SpecularColour = defaults.SpecularColour

	if file.DiffuseColour != nil {
		v, ok := math.Vec4FromSlice(file.DiffuseColour)
		if !ok {
			return nil, fmt.Errorf("%w: invalid diffuse_colour, expected 4 values, got %d", core.ErrInvalidConfig, len(file.DiffuseColour))
		}
		cfg.DiffuseColour = v
	}
	if file.SpecularColour != nil {
		v, ok := math.Vec4FromSlice(file.SpecularColour)
		if !ok {
			return nil, fmt.Errorf("%w: invalid specular_colour, expected 4 values, got %d", core.ErrInvalidConfig, len(file.SpecularColour))
		}
		cfg.SpecularColour = v
	}

	if err := validateMaterial(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidConfig, err)
	}
	return &cfg, nil
}

func validateMaterial(material *metadata.MaterialConfig) error {
	if material.Name == "" {
		return fmt.Errorf("material name is required")
	}
	if material.ShaderName == "" {
		return fmt.Errorf("shader name is required")
	}
	if !isValidColour(material.DiffuseColour) {
		return fmt.Errorf("diffuse_colour values must be between 0.0 and 1.0")
	}
	if !isValidColour(material.SpecularColour) {
		return fmt.Errorf("specular_colour values must be between 0.0 and 1.0")
	}
	if material.Shininess < 0 {
		return fmt.Errorf("shininess must be a non-negative value")
	}
	if !math.InRange(material.AlphaTest, 0, 1) {
		return fmt.Errorf("alpha_test must be between 0.0 and 1.0")
	}
	return nil
}

func isValidColour(v math.Vec4) bool {
	for _, c := range v.Elements() {
		if !math.InRange(c, 0, 1) {
			return false
		}
	}
	return true
}
