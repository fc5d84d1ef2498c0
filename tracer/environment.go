package tracer

import (
	"math"

	"github.com/achilleasa/progressive-pt/scene"
	"github.com/achilleasa/progressive-pt/types"
)

// Look up the radiance arriving from direction dir using an equirectangular
// mapping with nearest-pixel sampling. A nil environment is black.
func SampleEnvironment(env scene.Environment, dir types.Vec3) types.Vec3 {
	if env == nil {
		return types.Vec3{}
	}
	w, h := env.Width(), env.Height()
	if w == 0 || h == 0 {
		return types.Vec3{}
	}

	y := math.Max(-1, math.Min(1, float64(dir[1])))
	u := .5 + math.Atan2(float64(dir[2]), float64(dir[0]))/(2*math.Pi)
	v := .5 - math.Asin(y)/math.Pi
	if math.IsNaN(u) || math.IsNaN(v) {
		return types.Vec3{}
	}

	return env.Pixel(pixelIndex(u, w), pixelIndex(v, h))
}

// Map a [0, 1] texture coordinate to the pixel containing it.
func pixelIndex(t float64, size uint32) uint32 {
	index := uint32(t * float64(size))
	if index >= size {
		return size - 1
	}
	return index
}
