package metadata

import "github.com/spaghettifunk/anima-constbuffers/engine/math"

/** @brief The name of the default material. */
const DefaultMaterialName string = "default"

/** @brief The shader used by the default material. */
const DefaultMaterialShader string = "builtin.material"

/**
 * @brief Material configuration typically loaded from
 * a file or created in code to load a material from.
 */
type MaterialConfig struct {
	/** @brief The name of the material. */
	Name string `toml:"name"`
	/** @brief The shader the material is rendered with. Materials sharing a shader share const buffers. */
	ShaderName string `toml:"shader"`
	/** @brief The diffuse colour of the material. */
	DiffuseColour math.Vec4 `toml:"-"`
	/** @brief The specular colour of the material. */
	SpecularColour math.Vec4 `toml:"-"`
	/** @brief The shininess of the material. */
	Shininess float32 `toml:"shininess"`
	/** @brief Fragments with alpha below this value are discarded. */
	AlphaTest float32 `toml:"alpha_test"`
}

func DefaultMaterialConfig() MaterialConfig {
	return MaterialConfig{
		Name:           DefaultMaterialName,
		ShaderName:     DefaultMaterialShader,
		DiffuseColour:  math.NewVec4(1, 1, 1, 1),
		SpecularColour: math.NewVec4(1, 1, 1, 1),
		Shininess:      8,
	}
}
