package scene

import (
	"math"

	"github.com/achilleasa/progressive-pt/types"
)

// The result of a ray/primitive intersection query.
type Hit struct {
	// Distance along the ray; +Inf if nothing was hit.
	Distance float32

	Position types.Vec3
	Normal   types.Vec3
	Material *Material

	// Texture coordinates in the [0, 1] range.
	UV types.Vec2
}

// The no-hit sentinel.
var NoHit = Hit{Distance: float32(math.Inf(1))}

// Returns true if the hit refers to an actual intersection.
func (h Hit) IsHit() bool {
	return !math.IsInf(float64(h.Distance), 1)
}
