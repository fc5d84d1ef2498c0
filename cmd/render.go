package cmd

import (
	"context"
	"image"
	"image/png"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/achilleasa/progressive-pt/asset/texture"
	"github.com/achilleasa/progressive-pt/renderer"
	"github.com/achilleasa/progressive-pt/scene"
	"github.com/achilleasa/progressive-pt/scene/reader"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
	"golang.org/x/sync/errgroup"
)

// Render a still frame.
func RenderFrame(ctx *cli.Context) error {
	setupLogging(ctx)

	opts := optionsFromFlags(ctx)

	if ctx.NArg() != 1 && ctx.Int("grid") == 0 {
		return errors.New("missing scene file argument")
	}

	sigCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	sc, err := loadScene(sigCtx, ctx.Args().First(), ctx.Int("grid"), ctx.String("env"), uint32(ctx.Int("env-max-width")))
	if err != nil {
		return err
	}

	r, err := renderer.NewProgressive(opts)
	if err != nil {
		return err
	}
	defer r.Close()

	if err = r.AttachScene(sc); err != nil {
		return err
	}

	logger.Noticef("rendering %dx%d frame with %d samples per pixel", opts.FrameW, opts.FrameH, opts.MaxSamples)
	start := time.Now()
	if _, err = r.Render(false); err != nil {
		return err
	}

	err = r.Wait(sigCtx)
	switch {
	case err == context.Canceled:
		logger.Warning("render interrupted; exporting partially refined frame")
		r.Stop()
	case err != nil:
		return err
	default:
		logger.Noticef("rendered frame in %d ms", time.Since(start).Nanoseconds()/1000000)
	}

	if err = exportFrame(ctx.String("out"), r.Frame(), uint(ctx.Int("thumbnail"))); err != nil {
		return err
	}

	displayFrameStats(r.Stats())
	return nil
}

// Populate renderer options from the command flags.
func optionsFromFlags(ctx *cli.Context) renderer.Options {
	return renderer.Options{
		FrameW:      uint32(ctx.Int("width")),
		FrameH:      uint32(ctx.Int("height")),
		TileSize:    uint32(ctx.Int("tile-size")),
		Workers:     ctx.Int("workers"),
		MaxDepth:    uint32(ctx.Int("max-depth")),
		DofSamples:  uint32(ctx.Int("dof-samples")),
		LensRadius:  float32(ctx.Float64("lens-radius")),
		FocalLength: float32(ctx.Float64("focal-length")),
		LeafSize:    ctx.Int("leaf-size"),
		Buckets:     ctx.Int("buckets"),
		MaxSamples:  uint32(ctx.Int("spp")),
		Seed:        ctx.Int64("seed"),
		Exposure:    float32(ctx.Float64("exposure")),
		Gamma:       float32(ctx.Float64("gamma")),
	}
}

// Load the scene and an optional environment map override in parallel. If
// gridSize is non-zero, the built-in sphere grid scene is used instead of
// reading a scene file.
func loadScene(ctx context.Context, scenePath string, gridSize int, envPath string, envMaxWidth uint32) (*scene.Scene, error) {
	var (
		sc  *scene.Scene
		env *texture.Texture
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if gridSize > 0 {
			sc = scene.GridScene(gridSize)
			return nil
		}

		var err error
		sc, err = reader.ReadFile(gctx, scenePath)
		return err
	})
	if envPath != "" {
		g.Go(func() error {
			var err error
			env, err = reader.LoadEnvironment(gctx, envPath, envMaxWidth)
			return errors.Wrapf(err, "could not load environment map")
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if env != nil {
		logger.Infof("using environment map %s", env)
		sc.Environment = env
	}

	logger.Infof("scene information:\n%s", sc.Stats())
	return sc, nil
}

// Write frame as a png file. If thumbWidth is non-zero, a downscaled copy is
// also written next to it.
func exportFrame(imgFile string, frame image.Image, thumbWidth uint) error {
	start := time.Now()
	if err := writePNG(imgFile, frame); err != nil {
		return err
	}
	logger.Noticef("wrote frame to %s in %d ms", imgFile, time.Since(start).Nanoseconds()/1000000)

	if thumbWidth == 0 || thumbWidth >= uint(frame.Bounds().Dx()) {
		return nil
	}

	thumbFile := thumbnailPath(imgFile)
	thumb := resize.Resize(thumbWidth, 0, frame, resize.Lanczos3)
	if err := writePNG(thumbFile, thumb); err != nil {
		return err
	}
	logger.Noticef("wrote %dx%d thumbnail to %s", thumb.Bounds().Dx(), thumb.Bounds().Dy(), thumbFile)
	return nil
}

func thumbnailPath(imgFile string) string {
	if strings.HasSuffix(imgFile, ".png") {
		return strings.TrimSuffix(imgFile, ".png") + "-thumb.png"
	}
	return imgFile + "-thumb.png"
}

func writePNG(imgFile string, img image.Image) error {
	f, err := os.Create(imgFile)
	if err != nil {
		return errors.Wrapf(err, "could not create %s", imgFile)
	}
	defer f.Close()

	if err = png.Encode(f, img); err != nil {
		return errors.Wrapf(err, "could not encode png file %s", imgFile)
	}
	return nil
}

func displayFrameStats(stats renderer.FrameStats) {
	logger.Noticef("frame statistics\n%s", stats.Table())
}
