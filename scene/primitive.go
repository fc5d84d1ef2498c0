package scene

import (
	"math"

	"github.com/achilleasa/progressive-pt/types"
)

// Triangles whose determinant falls below this threshold are parallel to
// the ray and are treated as a miss.
const detEpsilon = 1e-8

// The capabilities required by the acceleration structure and the
// integrator. Implementations must be safe for concurrent use.
type Primitive interface {
	// Get the primitive bounding box.
	BBox() AABB

	// Intersect the primitive with a ray. Returns NoHit on a miss.
	Intersect(r Ray) Hit
}

// A sphere primitive.
type Sphere struct {
	Center   types.Vec3
	Radius   float32
	Material *Material
}

// Create new sphere primitive.
func NewSphere(center types.Vec3, radius float32, material *Material) *Sphere {
	return &Sphere{
		Center:   center,
		Radius:   radius,
		Material: material,
	}
}

func (s *Sphere) BBox() AABB {
	r := types.XYZ(s.Radius, s.Radius, s.Radius)
	return AABB{Min: s.Center.Sub(r), Max: s.Center.Add(r)}
}

func (s *Sphere) Intersect(r Ray) Hit {
	oc := r.Origin.Sub(s.Center)
	b := oc.Dot(r.Dir)
	c := oc.Dot(oc) - s.Radius*s.Radius
	dis := b*b - c
	if dis <= 0 {
		return NoHit
	}

	e := float32(math.Sqrt(float64(dis)))
	t := -b - e
	if t <= HitEpsilon {
		t = -b + e
		if t <= HitEpsilon {
			return NoHit
		}
	}

	pt := r.Point(t)
	n := pt.Sub(s.Center).Normalize()
	return Hit{
		Distance: t,
		Position: pt,
		Normal:   n,
		Material: s.Material,
		UV:       sphereUV(n),
	}
}

// Map a unit normal to equirectangular texture coordinates.
func sphereUV(n types.Vec3) types.Vec2 {
	u := .5 + math.Atan2(float64(n[2]), float64(n[0]))/(2*math.Pi)
	v := .5 - math.Asin(clampUnit(float64(n[1])))/math.Pi
	return types.XY(float32(u), float32(v))
}

func clampUnit(v float64) float64 {
	if v < -1 {
		return -1
	} else if v > 1 {
		return 1
	}
	return v
}

// A triangle primitive.
type Triangle struct {
	Vertices [3]types.Vec3
	UV       [3]types.Vec2
	Material *Material

	edge1  types.Vec3
	edge2  types.Vec3
	normal types.Vec3
}

// Create new triangle primitive. The face normal follows the counter-clockwise
// winding of the supplied vertices.
func NewTriangle(vertices [3]types.Vec3, uv [3]types.Vec2, material *Material) *Triangle {
	tri := &Triangle{
		Vertices: vertices,
		UV:       uv,
		Material: material,
		edge1:    vertices[1].Sub(vertices[0]),
		edge2:    vertices[2].Sub(vertices[0]),
	}
	tri.normal = tri.edge1.Cross(tri.edge2).Normalize()
	return tri
}

func (tri *Triangle) BBox() AABB {
	box := EmptyAABB()
	for _, v := range tri.Vertices {
		box.ExpandPoint(v)
	}
	return box
}

func (tri *Triangle) Intersect(r Ray) Hit {
	pvec := r.Dir.Cross(tri.edge2)
	det := tri.edge1.Dot(pvec)
	if math.Abs(float64(det)) < detEpsilon {
		return NoHit
	}
	invDet := 1 / det

	tvec := r.Origin.Sub(tri.Vertices[0])
	u := tvec.Dot(pvec) * invDet
	if u < 0 || u > 1 {
		return NoHit
	}

	qvec := tvec.Cross(tri.edge1)
	v := r.Dir.Dot(qvec) * invDet
	if v < 0 || u+v > 1 {
		return NoHit
	}

	t := tri.edge2.Dot(qvec) * invDet
	if t <= HitEpsilon {
		return NoHit
	}

	w := 1 - u - v
	return Hit{
		Distance: t,
		Position: r.Point(t),
		Normal:   tri.normal,
		Material: tri.Material,
		UV:       tri.UV[0].Mul(w).Add(tri.UV[1].Mul(u)).Add(tri.UV[2].Mul(v)),
	}
}
