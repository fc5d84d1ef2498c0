package renderer

import (
	"image"
	"math"

	"github.com/achilleasa/progressive-pt/types"
	"gonum.org/v1/gonum/stat"
)

// The accumulation buffer keeps a running radiance sum for every pixel. Each
// pixel is only ever touched by the worker that owns the tile it belongs to
// so no locking is required.
type accumBuffer struct {
	width uint32
	sums  []types.Vec3
}

func newAccumBuffer(width, height uint32) *accumBuffer {
	return &accumBuffer{
		width: width,
		sums:  make([]types.Vec3, width*height),
	}
}

// Add a sample to pixel (x, y) and return the updated sum.
func (b *accumBuffer) Add(x, y uint32, sample types.Vec3) types.Vec3 {
	offset := y*b.width + x
	b.sums[offset] = b.sums[offset].Add(sample)
	return b.sums[offset]
}

// Get the accumulated sum for pixel (x, y).
func (b *accumBuffer) Sum(x, y uint32) types.Vec3 {
	return b.sums[y*b.width+x]
}

func (b *accumBuffer) Clear() {
	for i := range b.sums {
		b.sums[i] = types.Vec3{}
	}
}

// Converts averaged radiance values into displayable 8-bit colors.
type displayMapper struct {
	exposure float64
	invGamma float64
}

func newDisplayMapper(exposure, gamma float32) displayMapper {
	return displayMapper{
		exposure: float64(exposure),
		invGamma: 1.0 / float64(gamma),
	}
}

// Write the display value for radiance v into the pixel at offset.
func (m displayMapper) write(pix []uint8, offset int, v types.Vec3) {
	v = v.Clamp(0, 1)
	pix[offset+0] = m.channel(v[0])
	pix[offset+1] = m.channel(v[1])
	pix[offset+2] = m.channel(v[2])
	pix[offset+3] = 255
}

func (m displayMapper) channel(c float32) uint8 {
	val := math.Pow(float64(c)*m.exposure, m.invGamma)
	if val >= 1 {
		return 255
	} else if val <= 0 || math.IsNaN(val) {
		return 0
	}
	return uint8(val*255 + .5)
}

func clearImage(img *image.RGBA) {
	for i := range img.Pix {
		img.Pix[i] = 0
	}
}

// Calculate the mean and standard deviation of the per-pixel luminance.
func luminanceStats(img *image.RGBA) (mean, stdDev float64) {
	bounds := img.Bounds()
	lum := make([]float64, 0, bounds.Dx()*bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			offset := img.PixOffset(x, y)
			c := types.XYZ(
				float32(img.Pix[offset+0])/255,
				float32(img.Pix[offset+1])/255,
				float32(img.Pix[offset+2])/255,
			)
			lum = append(lum, float64(c.Luminance()))
		}
	}
	switch len(lum) {
	case 0:
		return 0, 0
	case 1:
		return lum[0], 0
	}
	return stat.MeanStdDev(lum, nil)
}
