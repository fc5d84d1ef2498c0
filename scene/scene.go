package scene

import (
	"bytes"
	"fmt"
	"unsafe"

	"github.com/achilleasa/progressive-pt/types"
	"github.com/olekukonko/tablewriter"
)

// A rectangular radiance map sampled by rays that escape the scene.
type Environment interface {
	Width() uint32
	Height() uint32
	Pixel(x, y uint32) types.Vec3
}

type Scene struct {
	Camera *Camera

	Materials  []*Material
	Primitives []Primitive

	// Optional; a nil environment contributes no radiance.
	Environment Environment
}

func NewScene() *Scene {
	return &Scene{
		Materials:  make([]*Material, 0),
		Primitives: make([]Primitive, 0),
	}
}

// Attach a camera to the scene.
func (s *Scene) SetCamera(camera *Camera) {
	s.Camera = camera
}

// Add a material to the scene.
func (s *Scene) AddMaterial(material *Material) error {
	for _, mat := range s.Materials {
		if mat == material {
			return fmt.Errorf("scene: material already added")
		}
	}
	s.Materials = append(s.Materials, material)
	return nil
}

// Add a primitive to the scene. Its material must already be registered.
func (s *Scene) AddPrimitive(primitive Primitive) error {
	var material *Material
	switch p := primitive.(type) {
	case *Sphere:
		material = p.Material
	case *Triangle:
		material = p.Material
	default:
		s.Primitives = append(s.Primitives, primitive)
		return nil
	}

	if material == nil {
		return fmt.Errorf("scene: no material assigned to primitive")
	}
	for _, mat := range s.Materials {
		if mat == material {
			s.Primitives = append(s.Primitives, primitive)
			return nil
		}
	}

	return fmt.Errorf("scene: primitive references unknown material; ensure that the material is added to the scene before adding the primitive")
}

// Get the bounding box of all scene primitives.
func (s *Scene) BBox() AABB {
	box := EmptyAABB()
	for _, prim := range s.Primitives {
		box.Expand(prim.BBox())
	}
	return box
}

// Generate a table with scene asset statistics.
func (s *Scene) Stats() string {
	var spheres, triangles, other int
	for _, prim := range s.Primitives {
		switch prim.(type) {
		case *Sphere:
			spheres++
		case *Triangle:
			triangles++
		default:
			other++
		}
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Asset Type", "Asset", "Count", "Size"})
	table.Append([]string{"Geometry", "Spheres", fmt.Sprint(spheres), fmtSize(spheres * int(unsafe.Sizeof(Sphere{})))})
	table.Append([]string{"", "Triangles", fmt.Sprint(triangles), fmtSize(triangles * int(unsafe.Sizeof(Triangle{})))})
	if other > 0 {
		table.Append([]string{"", "Other", fmt.Sprint(other), "-"})
	}
	table.Append([]string{"Materials", "---", fmt.Sprint(len(s.Materials)), fmtSize(len(s.Materials) * int(unsafe.Sizeof(Material{})))})
	if s.Environment != nil {
		w, h := s.Environment.Width(), s.Environment.Height()
		table.Append([]string{"Environment", fmt.Sprintf("%dx%d", w, h), "1", fmtSize(int(w*h) * int(unsafe.Sizeof(types.Vec3{})))})
	} else {
		table.Append([]string{"Environment", "none", "0", "-"})
	}
	table.Render()
	return buf.String()
}

func fmtSize(totalBytes int) string {
	if totalBytes < 1e3 {
		return fmt.Sprintf("%3d bytes", totalBytes)
	} else if totalBytes < 1e6 {
		return fmt.Sprintf("%3.1f kb", float32(totalBytes)/1e3)
	}
	return fmt.Sprintf("%3.1f mb", float32(totalBytes)/1e6)
}
