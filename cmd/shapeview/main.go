// Package main is the shapeview command itself.
package main

import (
	"fmt"
	"log"
	"math"
	"os"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/mpicque/grid-sensor/detection"
	"github.com/mpicque/grid-sensor/gizmo"
	"github.com/mpicque/grid-sensor/scan"
	"github.com/mpicque/grid-sensor/spatialmath"
)

const (
	// Flags.
	flagVolume     = "volume"
	flagX          = "x"
	flagY          = "y"
	flagZ          = "z"
	flagRadius     = "radius"
	flagLength     = "length"
	flagResolution = "resolution"
	flagMaxLOD     = "max-lod"
	flagMerge      = "merge"
	flagFlatten    = "flatten"
	flagProjection = "projection"
	flagScanLOD    = "scan-lod"
	flagDistance   = "distance"
	flagGrid       = "grid"
	flagOut        = "out"
	flagSize       = "size"
	flagSave       = "save"
)

func main() {
	var logger golog.Logger

	app := &cli.App{
		Name:  "shapeview",
		Usage: "scan a volume and render its detection shape to a PNG",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  flagVolume,
				Value: "box",
				Usage: "volume to scan: box, sphere or capsule",
			},
			&cli.Float64Flag{
				Name:  flagX,
				Value: 1,
				Usage: "box extent along X",
			},
			&cli.Float64Flag{
				Name:  flagY,
				Value: 1,
				Usage: "box extent along Y",
			},
			&cli.Float64Flag{
				Name:  flagZ,
				Value: 1,
				Usage: "box extent along Z",
			},
			&cli.Float64Flag{
				Name:  flagRadius,
				Value: 0.5,
				Usage: "sphere and capsule radius",
			},
			&cli.Float64Flag{
				Name:  flagLength,
				Value: 2,
				Usage: "capsule total length, at least twice the radius",
			},
			&cli.Float64Flag{
				Name:  flagResolution,
				Value: 0.1,
				Usage: "edge length of the finest sampling cell",
			},
			&cli.IntFlag{
				Name:  flagMaxLOD,
				Value: 3,
				Usage: "number of detail levels above the coarsest",
			},
			&cli.BoolFlag{
				Name:  flagMerge,
				Usage: "sample all volumes into a single octree",
			},
			&cli.BoolFlag{
				Name:  flagFlatten,
				Usage: "always render the coarsest level",
			},
			&cli.Float64Flag{
				Name:  flagProjection,
				Value: 0,
				Usage: "compression of sampled Z toward the mid-plane, in [0,1]",
			},
			&cli.IntFlag{
				Name:        flagScanLOD,
				Usage:       "cap on the level selectable by LOD",
				DefaultText: "max-lod",
			},
			&cli.Float64Flag{
				Name:  flagDistance,
				Value: 0.5,
				Usage: "normalized observer distance in [0,1], 0 near, 1 far",
			},
			&cli.Float64Flag{
				Name:  flagGrid,
				Value: 0.25,
				Usage: "cell size of the dedup grid overlay, 0 disables",
			},
			&cli.PathFlag{
				Name:  flagOut,
				Value: "shape.png",
				Usage: "output image path",
			},
			&cli.IntFlag{
				Name:  flagSize,
				Value: 512,
				Usage: "output image width and height in pixels",
			},
			&cli.PathFlag{
				Name:  flagSave,
				Usage: "also write the scanned shape to `FILE` in ascii form",
			},
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("debug") {
				logger = golog.NewDebugLogger("shapeview")
			} else {
				logger = zap.NewNop().Sugar()
			}

			return nil
		},
		Action: func(c *cli.Context) error {
			return viewShape(c, logger)
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// viewShape runs the whole pipeline: build the volume, scan it into a shape,
// select a level by distance, and render the overlay to a PNG.
func viewShape(c *cli.Context, logger golog.Logger) error {
	vol, err := buildVolume(c)
	if err != nil {
		return err
	}

	scanner, err := scan.NewScanner(scan.ScannerConfig{
		Resolution: c.Float64(flagResolution),
		MaxLOD:     c.Int(flagMaxLOD),
	}, logger)
	if err != nil {
		return err
	}

	scanLOD := c.Int(flagScanLOD)
	if !c.IsSet(flagScanLOD) {
		scanLOD = c.Int(flagMaxLOD)
	}
	shape, err := detection.NewShape(detection.Config{
		Merge:      c.Bool(flagMerge),
		Flatten:    c.Bool(flagFlatten),
		Projection: c.Float64(flagProjection),
		ScanLOD:    scanLOD,
	}, logger)
	if err != nil {
		return err
	}

	result, err := scanner.Scan([]spatialmath.Volume{vol}, shape.Config())
	if err != nil {
		return errors.Wrap(err, "error scanning volume")
	}
	if err := shape.SetScanResult(result); err != nil {
		return err
	}
	shape.SelectByDistance(c.Float64(flagDistance))

	drawer := newDrawerFor(vol, c.Int(flagSize))
	overlay := gizmo.NewOverlay(c.Float64(flagGrid), logger)
	overlay.Draw(shape, spatialmath.NewIdentityTransform(), drawer)

	outPath := c.Path(flagOut)
	if err := drawer.SavePNG(outPath); err != nil {
		return errors.Wrap(err, "error writing image")
	}

	fmt.Fprintf(c.App.Writer, "scanned %s at resolution %g\n", vol, scanner.Resolution())
	for lod := 0; lod <= shape.MaxLOD(); lod++ {
		fmt.Fprintf(c.App.Writer, "  level %d: %d points\n", lod, shape.Level(lod).Size())
	}
	fmt.Fprintf(
		c.App.Writer,
		"selected level %d (%d points) at distance %g\n",
		shape.SelectedLOD(),
		shape.PointCount(),
		c.Float64(flagDistance),
	)
	fmt.Fprintf(c.App.Writer, "wrote %s\n", outPath)

	if save := c.Path(flagSave); save != "" {
		if err := detection.WriteShapeToFile(shape, save, detection.FormatAscii); err != nil {
			return errors.Wrap(err, "error writing shape file")
		}
		fmt.Fprintf(c.App.Writer, "saved shape to %s\n", save)
	}

	return nil
}

// buildVolume turns the volume flags into the Volume the scanner samples.
func buildVolume(c *cli.Context) (spatialmath.Volume, error) {
	config := spatialmath.VolumeConfig{
		Type:  spatialmath.VolumeType(c.String(flagVolume)),
		X:     c.Float64(flagX),
		Y:     c.Float64(flagY),
		Z:     c.Float64(flagZ),
		R:     c.Float64(flagRadius),
		L:     c.Float64(flagLength),
		Label: "shapeview",
	}
	return config.ParseConfig()
}

// newDrawerFor sizes an image drawer so the volume's bounds fill most of the
// frame, whatever the volume's world position.
func newDrawerFor(vol spatialmath.Volume, size int) *gizmo.ImageDrawer {
	boundsMin, boundsMax := vol.Bounds()
	span := math.Max(boundsMax.X-boundsMin.X, boundsMax.Y-boundsMin.Y)
	if span <= 0 {
		span = 1
	}
	pixelsPerUnit := 0.85 * float64(size) / span
	center := boundsMin.Add(boundsMax).Mul(0.5)
	return gizmo.NewImageDrawer(size, size, pixelsPerUnit, center)
}
