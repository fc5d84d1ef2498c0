package renderer

import (
	"fmt"
	"runtime"

	"github.com/achilleasa/progressive-pt/scene/bvh"
	"github.com/achilleasa/progressive-pt/tracer"
)

const (
	// Upper bound for automatically selected tile sizes.
	maxAutoTileSize = 32

	defaultGamma    = 2.2
	defaultExposure = 1.0
)

type Options struct {
	// Frame dims.
	FrameW uint32
	FrameH uint32

	// Tile edge length. It must divide the frame width; if zero, the
	// largest divisor of the frame width up to 32 is used.
	TileSize uint32

	// Number of render workers; defaults to the number of CPUs.
	Workers int

	// Max bounces per path.
	MaxDepth uint32

	// Depth of field. Setting DofSamples or LensRadius to zero disables it.
	DofSamples  uint32
	LensRadius  float32
	FocalLength float32

	// BVH construction.
	LeafSize int
	Buckets  int

	// Stop after this many samples per pixel; zero renders until stopped.
	MaxSamples uint32

	// Base seed for the per-worker random number generators. Zero selects
	// a time-based seed on every restart.
	Seed int64

	// Display conversion; the clamped running average is scaled by Exposure
	// and gamma-encoded.
	Exposure float32
	Gamma    float32
}

// Get the default renderer options for a frame.
func DefaultOptions(frameW, frameH uint32) Options {
	return Options{
		FrameW:   frameW,
		FrameH:   frameH,
		TileSize: autoTileSize(frameW),
		Workers:  runtime.NumCPU(),
		MaxDepth: tracer.DefaultMaxDepth,
		LeafSize: bvh.DefaultLeafSize,
		Buckets:  bvh.DefaultBuckets,
		Exposure: defaultExposure,
		Gamma:    defaultGamma,
	}
}

// Fill unset fields with their defaults and check for invalid settings.
func (o *Options) Validate() error {
	if o.FrameW == 0 || o.FrameH == 0 {
		return fmt.Errorf("renderer: invalid frame dims %dx%d", o.FrameW, o.FrameH)
	}

	if o.TileSize == 0 {
		o.TileSize = autoTileSize(o.FrameW)
	}
	if o.FrameW%o.TileSize != 0 {
		return fmt.Errorf("renderer: tile size %d does not divide frame width %d", o.TileSize, o.FrameW)
	}

	if o.Workers < 0 {
		return fmt.Errorf("renderer: invalid worker count %d", o.Workers)
	} else if o.Workers == 0 {
		o.Workers = runtime.NumCPU()
	}

	if o.MaxDepth == 0 {
		o.MaxDepth = tracer.DefaultMaxDepth
	}

	if o.LensRadius < 0 {
		return fmt.Errorf("renderer: invalid lens radius %f", o.LensRadius)
	}
	if o.DofEnabled() && o.FocalLength <= 0 {
		return fmt.Errorf("renderer: depth of field requires a positive focal length; got %f", o.FocalLength)
	}

	if o.LeafSize == 0 {
		o.LeafSize = bvh.DefaultLeafSize
	}
	if o.Buckets == 0 {
		o.Buckets = bvh.DefaultBuckets
	}
	if o.LeafSize < 1 || o.Buckets < 2 {
		return fmt.Errorf("renderer: invalid bvh settings (leaf size %d, buckets %d)", o.LeafSize, o.Buckets)
	}

	if o.Exposure <= 0 {
		o.Exposure = defaultExposure
	}
	if o.Gamma <= 0 {
		o.Gamma = defaultGamma
	}

	return nil
}

// Returns true if depth of field sampling is enabled.
func (o *Options) DofEnabled() bool {
	return o.DofSamples > 0 && o.LensRadius > 0
}

// Pick the largest divisor of frameW that does not exceed maxAutoTileSize.
func autoTileSize(frameW uint32) uint32 {
	for size := uint32(maxAutoTileSize); size > 1; size-- {
		if frameW%size == 0 {
			return size
		}
	}
	return 1
}
