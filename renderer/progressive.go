package renderer

import (
	"context"
	"image"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/achilleasa/progressive-pt/log"
	"github.com/achilleasa/progressive-pt/scene"
	"github.com/achilleasa/progressive-pt/scene/bvh"
	"github.com/achilleasa/progressive-pt/tracer"
	"github.com/achilleasa/progressive-pt/types"
)

// Tracks the outcome of a single run between two restarts.
type renderRun struct {
	done chan struct{}
	err  error
}

// A CPU renderer that keeps refining the frame by accumulating one sample
// per pixel on every pass. Frame tiles are handed out to a fixed pool of
// workers via a shared work queue; once the queue drains, the workers meet
// at a barrier where the last one to arrive publishes the frame and queues
// up the next pass.
type progressiveRenderer struct {
	logger log.Logger

	// Serializes AttachScene, SetCamera, Render, Stop and Close calls.
	ctrlMutex sync.Mutex

	opts   Options
	closed bool

	// Set when the attached scene or camera changed since the last restart.
	pendingRestart bool

	tree       *bvh.Tree
	integrator *tracer.Integrator
	camera     Camera

	tiles   []tracer.Tile
	queue   tracer.WorkQueue
	display displayMapper

	accum *accumBuffer
	back  *image.RGBA

	// The published frame.
	frameMutex sync.RWMutex
	front      *image.RGBA

	// Set while workers are allowed to run. Cleared by Stop and left that
	// way until the next restart.
	raytracing    atomic.Bool
	activeWorkers atomic.Int32
	wg            sync.WaitGroup

	// Index of the sample currently being rendered (1-based).
	currentSample atomic.Uint32

	// Barrier state; guarded by syncMutex.
	syncMutex   sync.Mutex
	syncCond    *sync.Cond
	state       State
	arrived     int
	generation  uint64
	shuffleRng  *rand.Rand
	run         *renderRun
	workerStats []WorkerStat
	renderStart time.Time
	passStart   time.Time
	lastPass    time.Duration
}

// Create a new progressive renderer.
func NewProgressive(opts Options) (Renderer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	r := &progressiveRenderer{
		logger:  log.New("renderer"),
		opts:    opts,
		tiles:   tracer.SplitFrame(opts.FrameW, opts.FrameH, opts.TileSize),
		display: newDisplayMapper(opts.Exposure, opts.Gamma),
		accum:   newAccumBuffer(opts.FrameW, opts.FrameH),
		back:    image.NewRGBA(image.Rect(0, 0, int(opts.FrameW), int(opts.FrameH))),
		front:   image.NewRGBA(image.Rect(0, 0, int(opts.FrameW), int(opts.FrameH))),
	}
	r.syncCond = sync.NewCond(&r.syncMutex)
	r.currentSample.Store(1)

	r.logger.Debugf("frame %dx%d, %d tiles of size %d, %d workers", opts.FrameW, opts.FrameH, len(r.tiles), opts.TileSize, opts.Workers)
	return r, nil
}

func (r *progressiveRenderer) AttachScene(sc *scene.Scene) error {
	r.ctrlMutex.Lock()
	defer r.ctrlMutex.Unlock()

	if r.closed {
		return ErrClosed
	}
	if sc == nil {
		return ErrNoScene
	}

	r.stopWorkers()

	tree, err := bvh.Build(sc.Primitives, bvh.Options{LeafSize: r.opts.LeafSize, Buckets: r.opts.Buckets})
	if err != nil {
		return err
	}

	r.tree = tree
	r.integrator = tracer.NewIntegrator(tree, sc.Environment)
	if sc.Camera != nil {
		sc.Camera.SetupProjection(float32(r.opts.FrameW) / float32(r.opts.FrameH))
		sc.Camera.Update()
		r.camera = sc.Camera
	}
	r.pendingRestart = true

	r.logger.Infof("attached scene with %d primitives (bvh: %d nodes, %d leaves, depth %d)",
		tree.Stats.Primitives, tree.Stats.Nodes, tree.Stats.Leaves, tree.Stats.MaxDepth)
	return nil
}

func (r *progressiveRenderer) SetCamera(cam Camera) {
	r.ctrlMutex.Lock()
	defer r.ctrlMutex.Unlock()

	r.stopWorkers()
	r.camera = cam
	r.pendingRestart = true
}

func (r *progressiveRenderer) Render(sceneChanged bool) (*image.RGBA, error) {
	r.ctrlMutex.Lock()
	defer r.ctrlMutex.Unlock()

	if r.closed {
		return nil, ErrClosed
	}
	if r.integrator == nil {
		return nil, ErrNoScene
	}
	if r.camera == nil {
		return nil, ErrCameraNotDefined
	}

	if sceneChanged || r.pendingRestart {
		r.restart()
	}

	return r.Frame(), nil
}

func (r *progressiveRenderer) Frame() *image.RGBA {
	r.frameMutex.RLock()
	defer r.frameMutex.RUnlock()

	frame := image.NewRGBA(r.front.Rect)
	copy(frame.Pix, r.front.Pix)
	return frame
}

func (r *progressiveRenderer) Wait(ctx context.Context) error {
	r.syncMutex.Lock()
	run := r.run
	r.syncMutex.Unlock()

	if run == nil {
		return ErrNotStarted
	}

	select {
	case <-run.done:
		return run.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *progressiveRenderer) Stop() {
	r.ctrlMutex.Lock()
	defer r.ctrlMutex.Unlock()

	r.stopWorkers()
	r.pendingRestart = false
	r.logger.Info("render stopped")
}

func (r *progressiveRenderer) Close() {
	r.ctrlMutex.Lock()
	defer r.ctrlMutex.Unlock()

	if r.closed {
		return
	}
	r.stopWorkers()
	r.closed = true
	r.logger.Debug("renderer closed")
}

func (r *progressiveRenderer) Stats() FrameStats {
	r.syncMutex.Lock()
	stats := FrameStats{
		State:        r.state,
		Samples:      r.completedSamples(),
		LastPassTime: r.lastPass,
		Workers:      make([]WorkerStat, len(r.workerStats)),
	}
	copy(stats.Workers, r.workerStats)
	if !r.renderStart.IsZero() {
		stats.RenderTime = time.Since(r.renderStart)
	}
	r.syncMutex.Unlock()

	r.frameMutex.RLock()
	stats.MeanLuminance, stats.StdDevLuminance = luminanceStats(r.front)
	r.frameMutex.RUnlock()

	return stats
}

// Number of fully rendered samples. Must be called while holding syncMutex.
func (r *progressiveRenderer) completedSamples() uint32 {
	if r.run == nil {
		return 0
	}
	sample := r.currentSample.Load()
	if r.state == Done {
		return sample
	}
	return sample - 1
}

// Join all workers, discard accumulated samples and start a new run.
func (r *progressiveRenderer) restart() {
	r.stopWorkers()
	r.pendingRestart = false

	r.queue.Clear()
	r.accum.Clear()
	clearImage(r.back)
	r.frameMutex.Lock()
	clearImage(r.front)
	r.frameMutex.Unlock()
	r.currentSample.Store(1)

	seed := r.opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	r.syncMutex.Lock()
	r.arrived = 0
	r.generation = 0
	r.shuffleRng = rand.New(rand.NewSource(seed))
	r.workerStats = make([]WorkerStat, r.opts.Workers)
	for id := range r.workerStats {
		r.workerStats[id].Id = id
	}
	r.run = &renderRun{done: make(chan struct{})}
	r.renderStart = time.Now()
	r.passStart = r.renderStart
	r.lastPass = 0
	r.queue.Fill(r.tiles, r.shuffleRng)
	r.state = Rendering
	r.syncMutex.Unlock()

	r.raytracing.Store(true)
	for id := 0; id < r.opts.Workers; id++ {
		r.wg.Add(1)
		r.activeWorkers.Add(1)
		go r.worker(id, rand.New(rand.NewSource(seed+int64(id)+1)))
	}

	r.logger.Infof("render restarted with %d workers (seed %d)", r.opts.Workers, seed)
}

// Signal all workers to exit and wait for them. Calling it without any
// running workers is a no-op.
func (r *progressiveRenderer) stopWorkers() {
	r.raytracing.Store(false)

	// Wake up any workers parked at the barrier
	r.syncMutex.Lock()
	r.syncCond.Broadcast()
	r.syncMutex.Unlock()

	r.wg.Wait()

	r.syncMutex.Lock()
	if r.state != Done {
		r.state = Idle
	}
	r.finishRun(ErrInterrupted)
	r.syncMutex.Unlock()
}

// Complete the current run. Must be called while holding syncMutex.
func (r *progressiveRenderer) finishRun(err error) {
	if r.run == nil {
		return
	}
	select {
	case <-r.run.done:
	default:
		r.run.err = err
		close(r.run.done)
	}
}

func (r *progressiveRenderer) worker(id int, rng *rand.Rand) {
	defer func() {
		r.activeWorkers.Add(-1)
		r.wg.Done()
	}()

	var local WorkerStat
	for r.raytracing.Load() {
		if tile, ok := r.queue.TryPop(); ok {
			start := time.Now()
			local.Pixels += r.renderTile(tile, rng)
			local.Tiles++
			local.RenderTime += time.Since(start)
			continue
		}

		// Queue drained; wait for the other workers to finish their tiles
		r.syncMutex.Lock()
		ws := &r.workerStats[id]
		ws.Tiles += local.Tiles
		ws.Pixels += local.Pixels
		ws.RenderTime += local.RenderTime
		local = WorkerStat{}

		if !r.raytracing.Load() {
			r.syncMutex.Unlock()
			return
		}

		r.state = SyncWorkers
		r.arrived++
		if r.arrived == r.opts.Workers {
			r.completePass()
			r.syncCond.Broadcast()
		} else {
			gen := r.generation
			for gen == r.generation && r.raytracing.Load() {
				r.syncCond.Wait()
			}
		}
		done := r.state == Done
		r.syncMutex.Unlock()

		if done {
			return
		}
	}
}

// Publish the back frame and set up the next pass. Called by the last worker
// to reach the barrier while holding syncMutex; all other workers are parked.
func (r *progressiveRenderer) completePass() {
	r.arrived = 0

	r.frameMutex.Lock()
	copy(r.front.Pix, r.back.Pix)
	r.frameMutex.Unlock()

	now := time.Now()
	r.lastPass = now.Sub(r.passStart)
	r.passStart = now

	sample := r.currentSample.Load()
	if r.opts.MaxSamples > 0 && sample >= r.opts.MaxSamples {
		r.state = Done
		r.finishRun(nil)
		r.logger.Noticef("render complete after %d samples in %s", sample, now.Sub(r.renderStart))
	} else {
		r.currentSample.Store(sample + 1)
		r.queue.Fill(r.tiles, r.shuffleRng)
		r.state = Rendering
		r.logger.Debugf("pass %d completed in %s", sample, r.lastPass)
	}
	r.generation++
}

// Render one sample for every pixel in tile and return the number of pixels
// processed. Rendering is aborted as soon as the raytracing flag is cleared.
func (r *progressiveRenderer) renderTile(tile tracer.Tile, rng *rand.Rand) uint64 {
	invSamples := 1.0 / float32(r.currentSample.Load())

	var pixels uint64
	for y := tile.Y; y < tile.Y+tile.H; y++ {
		for x := tile.X; x < tile.X+tile.W; x++ {
			if !r.raytracing.Load() {
				return pixels
			}

			sample := r.samplePixel(x, y, rng)
			if !sample.IsFinite() {
				sample = types.Vec3{}
			}

			sum := r.accum.Add(x, y, sample)
			r.display.write(r.back.Pix, r.back.PixOffset(int(x), int(y)), sum.Mul(invSamples))
			pixels++
		}
	}

	return pixels
}

// Trace a single pixel sample. When depth of field is enabled, the primary
// ray origin is jittered on a disk of radius LensRadius perpendicular to the
// primary ray while its focus point stays fixed.
func (r *progressiveRenderer) samplePixel(x, y uint32, rng *rand.Rand) types.Vec3 {
	ray := r.camera.GeneratePrimaryRay(x, y, r.opts.FrameW, r.opts.FrameH, rng)
	if !r.opts.DofEnabled() {
		return r.integrator.Trace(ray, r.opts.MaxDepth, rng)
	}

	var acc types.Vec3
	for i := uint32(0); i < r.opts.DofSamples; i++ {
		acc = acc.Add(r.integrator.Trace(lensRay(ray, r.opts.LensRadius, r.opts.FocalLength, rng), r.opts.MaxDepth, rng))
	}
	return acc.Div(float32(r.opts.DofSamples))
}

// Jitter the origin of primary on the lens disk spanned by the two axes
// orthogonal to its direction and aim the result at the focal point.
func lensRay(primary scene.Ray, lensRadius, focalLength float32, rng *rand.Rand) scene.Ray {
	focus := primary.Point(focalLength)
	right, up := tracer.OrthonormalBasis(primary.Dir)

	radius := lensRadius * float32(math.Sqrt(rng.Float64()))
	theta := 2 * math.Pi * rng.Float64()
	origin := primary.Origin.
		Add(right.Mul(radius * float32(math.Cos(theta)))).
		Add(up.Mul(radius * float32(math.Sin(theta))))
	return scene.NewRay(origin, focus.Sub(origin))
}
