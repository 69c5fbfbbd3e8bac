package metadata

import "github.com/spaghettifunk/quadcore/engine/math"

const (
	/** @brief The size in bytes of the light constant buffer. */
	LightSize uint32 = 48
	/** @brief The size in bytes of the material constant buffer. */
	MaterialSize uint32 = 64
)

/**
 * @brief A single point light as seen by the pixel shader (cb0).
 */
type Light struct {
	/** @brief World position of the light, w = 1. */
	Position math.Vec4
	/** @brief Light colour. */
	Colour math.Vec4
	/** @brief The eye position used for specular highlights. */
	ViewPosition math.Vec3
	_            float32
}

/**
 * @brief Surface response of the quad as seen by the pixel shader (cb1).
 */
type Material struct {
	AmbientColour  math.Vec4
	DiffuseColour  math.Vec4
	SpecularColour math.Vec4
	/** @brief Determines how concentrated the specular highlight is. */
	Shininess float32
	_         [3]float32
}

func NewDefaultLight() Light {
	return Light{
		Position:     math.NewVec4(-0.5, 0.5, -2.0, 1.0),
		Colour:       math.NewVec4(1.0, 1.0, 1.0, 1.0),
		ViewPosition: math.NewVec3(0.0, 0.0, -1.0),
	}
}

func NewDefaultMaterial() Material {
	return Material{
		AmbientColour:  math.NewVec4(0.2, 0.2, 0.2, 0.0),
		DiffuseColour:  math.NewVec4(0.6, 0.6, 0.6, 0.0),
		SpecularColour: math.NewVec4(1.0, 1.0, 1.0, 0.0),
		Shininess:      32.0,
	}
}

func (l *Light) Bytes() []byte {
	return pack(l)
}

func (mt *Material) Bytes() []byte {
	return pack(mt)
}
