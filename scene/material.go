package scene

import (
	"fmt"

	"github.com/achilleasa/progressive-pt/types"
)

type MaterialType uint8

const (
	DiffuseMaterial MaterialType = iota
	SpecularMaterial
	RefractiveMaterial
	MetallicRoughnessMaterial
)

func (t MaterialType) String() string {
	switch t {
	case DiffuseMaterial:
		return "diffuse"
	case SpecularMaterial:
		return "specular"
	case RefractiveMaterial:
		return "refractive"
	case MetallicRoughnessMaterial:
		return "metallic-roughness"
	}
	return fmt.Sprintf("MaterialType(%d)", uint8(t))
}

// Parse a material type name.
func ParseMaterialType(name string) (MaterialType, error) {
	switch name {
	case "diffuse", "":
		return DiffuseMaterial, nil
	case "specular", "mirror":
		return SpecularMaterial, nil
	case "refractive", "glass":
		return RefractiveMaterial, nil
	case "metallic-roughness", "mr":
		return MetallicRoughnessMaterial, nil
	}
	return DiffuseMaterial, fmt.Errorf("scene: unknown material type %q", name)
}

// A texture that can be sampled using uv coordinates.
type TextureSampler interface {
	Sample(uv types.Vec2) types.Vec3
}

// Defines a scene material. Materials are shared by reference between
// primitives and must not be modified while a render is in progress.
type Material struct {
	Name string
	Type MaterialType

	Emission      types.Vec3
	Albedo        types.Vec3
	SpecularColor types.Vec3

	Roughness    float32
	Metalness    float32
	IOR          float32
	Transparency float32

	// Optional texture maps. If set, they override the matching constant.
	AlbedoMap    TextureSampler
	MetalnessMap TextureSampler
	RoughnessMap TextureSampler
}

// Get albedo at uv.
func (m *Material) AlbedoAt(uv types.Vec2) types.Vec3 {
	if m.AlbedoMap != nil {
		return m.AlbedoMap.Sample(uv)
	}
	return m.Albedo
}

// Get metalness at uv. Maps store the value in their first channel.
func (m *Material) MetalnessAt(uv types.Vec2) float32 {
	if m.MetalnessMap != nil {
		return m.MetalnessMap.Sample(uv)[0]
	}
	return m.Metalness
}

// Get roughness at uv. Maps store the value in their first channel.
func (m *Material) RoughnessAt(uv types.Vec2) float32 {
	if m.RoughnessMap != nil {
		return m.RoughnessMap.Sample(uv)[0]
	}
	return m.Roughness
}

// Create a diffuse material.
func NewDiffuse(name string, albedo types.Vec3) *Material {
	return &Material{Name: name, Type: DiffuseMaterial, Albedo: albedo, IOR: 1}
}

// Create a diffuse light-emitting material.
func NewEmissive(name string, emission types.Vec3) *Material {
	return &Material{Name: name, Type: DiffuseMaterial, Emission: emission, IOR: 1}
}

// Create an ideal mirror.
func NewMirror(name string) *Material {
	return &Material{Name: name, Type: SpecularMaterial, SpecularColor: types.XYZ(1, 1, 1), IOR: 1}
}

// Create a dielectric with the given index of refraction.
func NewGlass(name string, ior float32) *Material {
	return &Material{Name: name, Type: RefractiveMaterial, IOR: ior, Transparency: 1}
}

// Create a metallic-roughness material.
func NewMetallicRoughness(name string, metalness, roughness float32, albedo types.Vec3) *Material {
	return &Material{
		Name:          name,
		Type:          MetallicRoughnessMaterial,
		Albedo:        albedo,
		SpecularColor: albedo,
		Metalness:     metalness,
		Roughness:     roughness,
		IOR:           1.5,
	}
}

// Lookup a named material preset.
func MaterialPreset(name string) (*Material, error) {
	switch name {
	case "light":
		return NewEmissive(name, types.XYZ(1, 1, 1)), nil
	case "red":
		return NewDiffuse(name, types.XYZ(1, 0, 0)), nil
	case "green":
		return NewDiffuse(name, types.XYZ(0, 1, 0)), nil
	case "blue":
		return NewDiffuse(name, types.XYZ(0, 0, 1)), nil
	case "yellow":
		return NewDiffuse(name, types.XYZ(1, 1, 0)), nil
	case "magenta":
		return NewDiffuse(name, types.XYZ(1, 0, 1)), nil
	case "cyan":
		return NewDiffuse(name, types.XYZ(0, 1, 1)), nil
	case "white":
		return NewDiffuse(name, types.XYZ(1, 1, 1)), nil
	case "gray":
		return NewDiffuse(name, types.XYZ(.5, .5, .5)), nil
	case "mirror":
		return NewMirror(name), nil
	case "glass":
		return NewGlass(name, 1.5), nil
	}
	return nil, fmt.Errorf("scene: unknown material preset %q", name)
}
