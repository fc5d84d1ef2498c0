package scene

import (
	"math"

	"github.com/achilleasa/progressive-pt/types"
)

// Offset applied to secondary ray origins and the minimum distance accepted
// for a hit. Both guard against surfaces shadowing themselves.
const HitEpsilon float32 = 1e-4

// A ray with a normalized direction. The inverse direction and its per-axis
// sign are precomputed for slab tests.
type Ray struct {
	Origin types.Vec3
	Dir    types.Vec3
	InvDir types.Vec3
	Sign   [3]int
}

// Create a new ray. The direction is normalized.
func NewRay(origin, dir types.Vec3) Ray {
	r := Ray{
		Origin: origin,
		Dir:    dir.Normalize(),
	}
	for axis := 0; axis < 3; axis++ {
		r.InvDir[axis] = float32(1.0 / float64(r.Dir[axis]))
		if math.Signbit(float64(r.InvDir[axis])) {
			r.Sign[axis] = 1
		}
	}
	return r
}

// Get the point at distance t along the ray.
func (r Ray) Point(t float32) types.Vec3 {
	return r.Origin.Add(r.Dir.Mul(t))
}
