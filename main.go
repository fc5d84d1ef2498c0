package main

import (
	"os"

	"github.com/achilleasa/progressive-pt/cmd"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	sceneFlags := []cli.Flag{
		cli.IntFlag{
			Name:  "grid",
			Value: 0,
			Usage: "use the built-in NxN sphere grid scene instead of a scene file",
		},
	}
	bvhFlags := []cli.Flag{
		cli.IntFlag{
			Name:  "leaf-size",
			Value: 5,
			Usage: "max primitives per bvh leaf",
		},
		cli.IntFlag{
			Name:  "buckets",
			Value: 12,
			Usage: "number of SAH buckets used when partitioning bvh nodes",
		},
	}

	app := cli.NewApp()
	app.Name = "progressive-pt"
	app.Usage = "render scenes using progressive path tracing"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
		cli.StringFlag{
			Name:  "log-level",
			Value: "",
			Usage: "set log level (debug, info, notice, warning, error)",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "render",
			Usage: "render scene",
			Subcommands: []cli.Command{
				{
					Name:  "frame",
					Usage: "render single frame",
					Description: `
Render a single frame by progressively refining it until the requested number
of samples per pixel has been accumulated. Sending an interrupt signal stops
rendering and exports the partially refined frame.`,
					ArgsUsage: "scene.yaml",
					Flags: append(append([]cli.Flag{
						cli.IntFlag{
							Name:  "width",
							Value: 512,
							Usage: "frame width",
						},
						cli.IntFlag{
							Name:  "height",
							Value: 512,
							Usage: "frame height",
						},
						cli.IntFlag{
							Name:  "spp",
							Value: 16,
							Usage: "samples per pixel; 0 renders until interrupted",
						},
						cli.IntFlag{
							Name:  "tile-size",
							Value: 0,
							Usage: "tile size; must divide the frame width (0 = auto)",
						},
						cli.IntFlag{
							Name:  "workers",
							Value: 0,
							Usage: "number of render workers (0 = number of CPUs)",
						},
						cli.IntFlag{
							Name:  "max-depth",
							Value: 5,
							Usage: "max number of bounces per path",
						},
						cli.IntFlag{
							Name:  "dof-samples",
							Value: 0,
							Usage: "depth of field samples per pixel (0 disables depth of field)",
						},
						cli.Float64Flag{
							Name:  "lens-radius",
							Value: 0,
							Usage: "camera lens radius for depth of field",
						},
						cli.Float64Flag{
							Name:  "focal-length",
							Value: 0,
							Usage: "distance to the focal plane for depth of field",
						},
						cli.Int64Flag{
							Name:  "seed",
							Value: 0,
							Usage: "random seed (0 = time based)",
						},
						cli.Float64Flag{
							Name:  "exposure",
							Value: 1.0,
							Usage: "camera exposure for tone-mapping",
						},
						cli.Float64Flag{
							Name:  "gamma",
							Value: 2.2,
							Usage: "display gamma",
						},
						cli.StringFlag{
							Name:  "env",
							Value: "",
							Usage: "environment map file or URL overriding the scene environment",
						},
						cli.IntFlag{
							Name:  "env-max-width",
							Value: 0,
							Usage: "downsample the environment map to this width (0 = keep original size)",
						},
						cli.StringFlag{
							Name:  "out, o",
							Value: "frame.png",
							Usage: "image filename for the rendered frame",
						},
						cli.IntFlag{
							Name:  "thumbnail",
							Value: 0,
							Usage: "also export a thumbnail with this width (0 disables thumbnails)",
						},
					}, sceneFlags...), bvhFlags...),
					Action: cmd.RenderFrame,
				},
			},
		},
		{
			Name:  "scene",
			Usage: "inspect scenes",
			Subcommands: []cli.Command{
				{
					Name:      "info",
					Usage:     "display scene information",
					ArgsUsage: "scene.yaml",
					Flags:     sceneFlags,
					Action:    cmd.ShowSceneInfo,
				},
			},
		},
		{
			Name:  "bvh",
			Usage: "inspect scene acceleration structures",
			Subcommands: []cli.Command{
				{
					Name:      "stats",
					Usage:     "build the scene bvh and display its statistics",
					ArgsUsage: "scene.yaml",
					Flags:     append(append([]cli.Flag{}, sceneFlags...), bvhFlags...),
					Action:    cmd.ShowBVHStats,
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}
