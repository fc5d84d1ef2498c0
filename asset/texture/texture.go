package texture

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"github.com/achilleasa/progressive-pt/asset"
	"github.com/achilleasa/progressive-pt/log"
	"github.com/achilleasa/progressive-pt/types"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// Gamma used to linearize LDR sources.
const ldrGamma = 2.2

var (
	ErrUnsupportedChannelCount = errors.New("texture: unsupported channel count")
	ErrPixelCountMismatch      = errors.New("texture: pixel data does not match texture dimensions")

	logger = log.New("texture")
)

// A texture image stored as linear float RGB. Textures are read-only once
// created and may be sampled concurrently.
type Texture struct {
	Format Format

	width  uint32
	height uint32
	data   []types.Vec3
}

// Create a new texture by decoding a Resource. PNG, JPEG, GIF, BMP and TIFF
// sources are supported; LDR data is converted to linear space.
func New(res *asset.Resource) (*Texture, error) {
	img, imgFmt, err := image.Decode(res)
	if err != nil {
		return nil, errors.Wrapf(err, "texture: could not decode %s", res.Path())
	}

	texFmt, channels := detectFormat(img)
	if channels == 0 {
		return nil, errors.Wrapf(ErrUnsupportedChannelCount, "%T image while loading %s", img, res.Path())
	}

	bounds := img.Bounds()
	tex := &Texture{
		Format: texFmt,
		width:  uint32(bounds.Dx()),
		height: uint32(bounds.Dy()),
		data:   make([]types.Vec3, bounds.Dx()*bounds.Dy()),
	}

	offset := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBA64Model.Convert(img.At(x, y)).(color.NRGBA64)
			p := types.XYZ(float32(c.R)/0xffff, float32(c.G)/0xffff, float32(c.B)/0xffff)
			if texFmt.isLDR() {
				p = types.XYZ(linearize(p[0]), linearize(p[1]), linearize(p[2]))
			}
			tex.data[offset] = p
			offset++
		}
	}

	logger.Debugf("loaded %s texture %s (%dx%d, %s)", imgFmt, res.Path(), tex.width, tex.height, tex.Format)
	return tex, nil
}

// Create a texture from a raw float pixel array with the given channel count.
// Single channel data is replicated to all color channels; a fourth (alpha)
// channel is ignored.
func FromPixels(width, height uint32, channels int, pixels []float32) (*Texture, error) {
	var texFmt Format
	switch channels {
	case 1:
		texFmt = Luminance32F
	case 3:
		texFmt = Rgb32F
	case 4:
		texFmt = Rgba32F
	default:
		return nil, errors.Wrapf(ErrUnsupportedChannelCount, "%d channels", channels)
	}

	if uint64(len(pixels)) != uint64(width)*uint64(height)*uint64(channels) {
		return nil, errors.Wrapf(ErrPixelCountMismatch, "got %d values for %dx%dx%d", len(pixels), width, height, channels)
	}

	tex := &Texture{
		Format: texFmt,
		width:  width,
		height: height,
		data:   make([]types.Vec3, width*height),
	}
	for i := range tex.data {
		p := pixels[i*channels:]
		if channels == 1 {
			tex.data[i] = types.XYZ(p[0], p[0], p[0])
		} else {
			tex.data[i] = types.XYZ(p[0], p[1], p[2])
		}
	}
	return tex, nil
}

// Get texture width.
func (t *Texture) Width() uint32 {
	return t.width
}

// Get texture height.
func (t *Texture) Height() uint32 {
	return t.height
}

// Get the pixel at (x, y). Coordinates outside the texture are clamped to
// the nearest edge.
func (t *Texture) Pixel(x, y uint32) types.Vec3 {
	if len(t.data) == 0 {
		return types.Vec3{}
	}
	if x >= t.width {
		x = t.width - 1
	}
	if y >= t.height {
		y = t.height - 1
	}
	return t.data[y*t.width+x]
}

// Sample the texture at uv using nearest-pixel lookup. A u coordinate outside
// [0, 1] wraps around while v is clamped to [0, 1].
func (t *Texture) Sample(uv types.Vec2) types.Vec3 {
	u, v := float64(uv[0]), float64(uv[1])
	if len(t.data) == 0 || math.IsNaN(u) || math.IsNaN(v) || math.IsInf(u, 0) {
		return types.Vec3{}
	}

	if u < 0 || u > 1 {
		u -= math.Floor(u)
	}
	v = math.Max(0, math.Min(1, v))
	return t.Pixel(uint32(u*float64(t.width-1)), uint32(v*float64(t.height-1)))
}

// Create a downscaled copy of the texture whose width does not exceed
// maxWidth. The aspect ratio is preserved. If the texture is already small
// enough it is returned unchanged.
func (t *Texture) Downsample(maxWidth uint32) *Texture {
	if maxWidth == 0 || t.width <= maxWidth {
		return t
	}

	// Normalize HDR values into the 16-bit range so that the resampler
	// can operate on a standard image type.
	var maxValue float32
	for _, p := range t.data {
		if m := p.MaxComponent(); m > maxValue {
			maxValue = m
		}
	}
	if maxValue <= 0 {
		maxValue = 1
	}

	src := image.NewNRGBA64(image.Rect(0, 0, int(t.width), int(t.height)))
	for y := uint32(0); y < t.height; y++ {
		for x := uint32(0); x < t.width; x++ {
			p := t.data[y*t.width+x].Mul(1 / maxValue).Clamp(0, 1)
			src.SetNRGBA64(int(x), int(y), color.NRGBA64{
				R: uint16(p[0] * 0xffff),
				G: uint16(p[1] * 0xffff),
				B: uint16(p[2] * 0xffff),
				A: 0xffff,
			})
		}
	}

	dst := resize.Resize(uint(maxWidth), 0, src, resize.Bilinear)
	bounds := dst.Bounds()
	out := &Texture{
		Format: t.Format,
		width:  uint32(bounds.Dx()),
		height: uint32(bounds.Dy()),
		data:   make([]types.Vec3, bounds.Dx()*bounds.Dy()),
	}

	offset := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBA64Model.Convert(dst.At(x, y)).(color.NRGBA64)
			out.data[offset] = types.XYZ(
				float32(c.R)/0xffff*maxValue,
				float32(c.G)/0xffff*maxValue,
				float32(c.B)/0xffff*maxValue,
			)
			offset++
		}
	}

	logger.Debugf("downsampled texture from %dx%d to %dx%d", t.width, t.height, out.width, out.height)
	return out
}

func (t *Texture) String() string {
	return fmt.Sprintf("texture(%dx%d, %s)", t.width, t.height, t.Format)
}

// Convert a gamma-encoded [0, 1] value to linear space.
func linearize(v float32) float32 {
	return float32(math.Pow(float64(v), ldrGamma))
}
