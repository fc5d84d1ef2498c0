package scene

import (
	"math"

	"github.com/achilleasa/progressive-pt/types"
)

// An axis-aligned bounding box.
type AABB struct {
	Min types.Vec3
	Max types.Vec3
}

// Create an empty box. Its bounds are inverted so that the first call to one
// of the Expand methods establishes valid bounds.
func EmptyAABB() AABB {
	inf := float32(math.Inf(1))
	return AABB{
		Min: types.XYZ(inf, inf, inf),
		Max: types.XYZ(-inf, -inf, -inf),
	}
}

// Create a box from two corner points.
func NewAABB(p1, p2 types.Vec3) AABB {
	return AABB{
		Min: types.MinVec3(p1, p2),
		Max: types.MaxVec3(p1, p2),
	}
}

// Returns true if the box does not enclose any point.
func (b AABB) IsEmpty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2]
}

// Grow the box so that it includes point p.
func (b *AABB) ExpandPoint(p types.Vec3) {
	b.Min = types.MinVec3(b.Min, p)
	b.Max = types.MaxVec3(b.Max, p)
}

// Grow the box so that it includes other.
func (b *AABB) Expand(other AABB) {
	b.Min = types.MinVec3(b.Min, other.Min)
	b.Max = types.MaxVec3(b.Max, other.Max)
}

// Get the box extents along each axis.
func (b AABB) Extent() types.Vec3 {
	return b.Max.Sub(b.Min)
}

// Get the box center.
func (b AABB) Centroid() types.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Get the box surface area. Empty boxes report a zero area.
func (b AABB) SurfaceArea() float32 {
	if b.IsEmpty() {
		return 0
	}
	e := b.Extent()
	return 2 * (e[0]*e[1] + e[1]*e[2] + e[0]*e[2])
}

// Clip the [tEnter, tExit] interval against the box slabs. The narrowed
// interval is returned along with a flag indicating whether it is non-empty.
func (b AABB) Intersect(r Ray, tEnter, tExit float32) (float32, float32, bool) {
	bounds := [2]types.Vec3{b.Min, b.Max}
	for axis := 0; axis < 3; axis++ {
		tNear := (bounds[r.Sign[axis]][axis] - r.Origin[axis]) * r.InvDir[axis]
		tFar := (bounds[1-r.Sign[axis]][axis] - r.Origin[axis]) * r.InvDir[axis]

		// A NaN slab distance (origin on a slab plane of a parallel ray)
		// fails both comparisons and leaves the interval untouched.
		if tNear > tEnter {
			tEnter = tNear
		}
		if tFar < tExit {
			tExit = tFar
		}
		if tEnter > tExit {
			return tEnter, tExit, false
		}
	}

	return tEnter, tExit, true
}
