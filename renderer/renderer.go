package renderer

import (
	"context"
	"image"
	"math/rand"

	"github.com/achilleasa/progressive-pt/scene"
)

type State uint8

const (
	Idle State = iota
	Rendering
	SyncWorkers
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Rendering:
		return "rendering"
	case SyncWorkers:
		return "sync workers"
	case Done:
		return "done"
	}
	return "unknown"
}

// The Camera interface is implemented by objects that can generate primary rays.
type Camera interface {
	GeneratePrimaryRay(x, y, frameW, frameH uint32, rng *rand.Rand) scene.Ray
}

type Renderer interface {
	// Attach a scene and build its acceleration structure. Any in-flight
	// render is stopped.
	AttachScene(sc *scene.Scene) error

	// Override the camera used for generating primary rays. Any in-flight
	// render is stopped.
	SetCamera(cam Camera)

	// Start or restart the progressive render and return a snapshot of the
	// last published frame. Passing true discards all accumulated samples.
	Render(sceneChanged bool) (*image.RGBA, error)

	// Get a snapshot of the last published frame.
	Frame() *image.RGBA

	// Block until the current render reaches its sample limit, gets stopped
	// or the context expires.
	Wait(ctx context.Context) error

	// Stop all render workers and wait for them to exit.
	Stop()

	// Shutdown renderer.
	Close()

	// Get render statistics.
	Stats() FrameStats
}
