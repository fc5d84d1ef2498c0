package cmd

import (
	"context"

	"github.com/achilleasa/progressive-pt/scene/bvh"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

// Display scene info.
func ShowSceneInfo(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 1 && ctx.Int("grid") == 0 {
		return errors.New("missing scene file argument")
	}

	sc, err := loadScene(context.Background(), ctx.Args().First(), ctx.Int("grid"), "", 0)
	if err != nil {
		return err
	}

	logger.Noticef("scene information:\n%s", sc.Stats())
	return nil
}

// Build the BVH for a scene and display its statistics.
func ShowBVHStats(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 1 && ctx.Int("grid") == 0 {
		return errors.New("missing scene file argument")
	}

	sc, err := loadScene(context.Background(), ctx.Args().First(), ctx.Int("grid"), "", 0)
	if err != nil {
		return err
	}

	tree, err := bvh.Build(sc.Primitives, bvh.Options{
		LeafSize: ctx.Int("leaf-size"),
		Buckets:  ctx.Int("buckets"),
	})
	if err != nil {
		return err
	}

	logger.Noticef("bvh statistics\n%s", tree.Stats.Table())
	return nil
}
