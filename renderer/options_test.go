package renderer

import (
	"runtime"
	"testing"

	"github.com/achilleasa/progressive-pt/scene/bvh"
	"github.com/achilleasa/progressive-pt/tracer"
)

func TestOptionsValidate(t *testing.T) {
	type spec struct {
		opts   Options
		expErr bool
	}
	specs := []spec{
		{Options{FrameW: 0, FrameH: 4}, true},
		{Options{FrameW: 4, FrameH: 0}, true},
		{Options{FrameW: 10, FrameH: 4, TileSize: 4}, true},
		{Options{FrameW: 8, FrameH: 4, Workers: -1}, true},
		{Options{FrameW: 8, FrameH: 4, LensRadius: -1}, true},
		{Options{FrameW: 8, FrameH: 4, DofSamples: 4, LensRadius: .1}, true},
		{Options{FrameW: 8, FrameH: 4, LeafSize: -1}, true},
		{Options{FrameW: 8, FrameH: 4, Buckets: 1}, true},
		{Options{FrameW: 8, FrameH: 4, DofSamples: 4, LensRadius: .1, FocalLength: 3}, false},
		{Options{FrameW: 10, FrameH: 3, TileSize: 5}, false},
		{Options{FrameW: 64, FrameH: 48}, false},
	}

	for index, s := range specs {
		opts := s.opts
		err := opts.Validate()
		if s.expErr {
			if err == nil {
				t.Fatalf("[spec %d] expected validation error", index)
			}
			continue
		}
		if err != nil {
			t.Fatalf("[spec %d] unexpected error: %v", index, err)
		}
		if opts.FrameW%opts.TileSize != 0 {
			t.Fatalf("[spec %d] expected tile size %d to divide frame width %d", index, opts.TileSize, opts.FrameW)
		}
	}
}

func TestOptionsDefaults(t *testing.T) {
	opts := Options{FrameW: 64, FrameH: 48}
	if err := opts.Validate(); err != nil {
		t.Fatal(err)
	}

	if opts.TileSize != 32 {
		t.Fatalf("expected tile size 32; got %d", opts.TileSize)
	}
	if opts.Workers != runtime.NumCPU() {
		t.Fatalf("expected %d workers; got %d", runtime.NumCPU(), opts.Workers)
	}
	if opts.MaxDepth != tracer.DefaultMaxDepth {
		t.Fatalf("expected max depth %d; got %d", tracer.DefaultMaxDepth, opts.MaxDepth)
	}
	if opts.LeafSize != bvh.DefaultLeafSize || opts.Buckets != bvh.DefaultBuckets {
		t.Fatalf("expected default bvh settings; got leaf size %d, buckets %d", opts.LeafSize, opts.Buckets)
	}
	if opts.Exposure != defaultExposure || opts.Gamma != defaultGamma {
		t.Fatalf("expected default display settings; got exposure %f, gamma %f", opts.Exposure, opts.Gamma)
	}
	if opts.DofEnabled() {
		t.Fatal("expected depth of field to be disabled by default")
	}

	def := DefaultOptions(64, 48)
	if err := def.Validate(); err != nil {
		t.Fatalf("expected default options to be valid; got %v", err)
	}
}

func TestAutoTileSize(t *testing.T) {
	type spec struct {
		frameW uint32
		exp    uint32
	}
	specs := []spec{
		{1024, 32},
		{48, 24},
		{17, 17},
		{37, 1},
		{640, 32},
		{100, 25},
	}

	for index, s := range specs {
		if got := autoTileSize(s.frameW); got != s.exp {
			t.Fatalf("[spec %d] expected tile size %d for width %d; got %d", index, s.exp, s.frameW, got)
		}
	}
}
