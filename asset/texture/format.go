package texture

import (
	"fmt"
	"image"
)

// The pixel format of the source a texture was loaded from. Texture data
// is always stored as linear float RGB regardless of the source format.
type Format uint32

const (
	Luminance8 Format = iota
	Luminance16
	Rgba8
	Rgba16
	Rgb32F
	Luminance32F
	Rgba32F
)

func (f Format) String() string {
	switch f {
	case Luminance8:
		return "L8"
	case Luminance16:
		return "L16"
	case Rgba8:
		return "RGBA8"
	case Rgba16:
		return "RGBA16"
	case Rgb32F:
		return "RGB32F"
	case Luminance32F:
		return "L32F"
	case Rgba32F:
		return "RGBA32F"
	}
	return fmt.Sprintf("Format(%d)", uint32(f))
}

// Returns true for formats that store low dynamic range gamma-encoded data.
func (f Format) isLDR() bool {
	switch f {
	case Luminance8, Luminance16, Rgba8, Rgba16:
		return true
	}
	return false
}

// Detect the source format and channel count of a decoded image. Images
// without color channels (alpha-only) or with a subtractive color model
// report a zero channel count.
func detectFormat(img image.Image) (Format, int) {
	switch img.(type) {
	case *image.Gray:
		return Luminance8, 1
	case *image.Gray16:
		return Luminance16, 1
	case *image.RGBA64, *image.NRGBA64:
		return Rgba16, 4
	case *image.Alpha, *image.Alpha16, *image.CMYK:
		return 0, 0
	case *image.YCbCr:
		return Rgba8, 3
	}
	return Rgba8, 4
}
