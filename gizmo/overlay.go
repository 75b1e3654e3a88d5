// Package gizmo renders debug overlays for detection shapes. The overlay is
// a read-only consumer of the shape's selection and projection API, so
// shapes stay fully usable headless.
package gizmo

import (
	"image/color"
	"math"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/mpicque/grid-sensor/detection"
	"github.com/mpicque/grid-sensor/spatialmath"
)

// Drawer receives the overlay's draw calls. Backends decide how a world
// point or an axis-aligned cube of a given side length appears.
type Drawer interface {
	// Point draws a marker at a world point.
	Point(p r3.Vector, c color.NRGBA)
	// FilledBox draws a solid axis-aligned cube centered at center.
	FilledBox(center r3.Vector, size float64, c color.NRGBA)
	// WireBox draws the edges of an axis-aligned cube centered at center.
	WireBox(center r3.Vector, size float64, c color.NRGBA)
}

// minGridSize is the smallest usable dedup cell side. Grid sizes at or
// below it disable the grid passes rather than erroring.
const minGridSize = 1e-9

// Overlay draws the world points of a shape's selected level plus a
// deduplicated cell grid that collapses near-duplicate samples.
type Overlay struct {
	// GridSize is the world-space side length of a dedup cell.
	GridSize float64
	// CellFill and CellWire color the dedup cell cubes.
	CellFill color.NRGBA
	CellWire color.NRGBA

	logger golog.Logger
}

// NewOverlay returns an overlay with the default cell colors.
func NewOverlay(gridSize float64, logger golog.Logger) *Overlay {
	if logger == nil {
		logger = golog.Global()
	}
	return &Overlay{
		GridSize: gridSize,
		CellFill: color.NRGBA{R: 255, G: 196, B: 0, A: 48},
		CellWire: color.NRGBA{R: 255, G: 196, B: 0, A: 255},
		logger:   logger,
	}
}

// Draw projects the shape's selected level through tf and renders it: one
// marker per world point, then one cell cube per occupied grid cell. A
// shape with no points draws nothing. Drawing never changes which level is
// selected.
func (o *Overlay) Draw(s *detection.Shape, tf *spatialmath.Transform, d Drawer) {
	if !s.HasPoints() {
		return
	}
	world := s.ProjectToWorld(tf)
	marker := lodColor(s.SelectedLOD(), s.MaxLOD())
	for _, p := range world {
		d.Point(p, marker)
	}
	o.drawGrid(world, d)
}

// drawGrid snaps each world point to the nearest grid cell and draws each
// occupied cell once, in first-occurrence order.
func (o *Overlay) drawGrid(world []r3.Vector, d Drawer) {
	g := o.GridSize
	if g <= minGridSize {
		return
	}
	seen := make(map[r3.Vector]bool, len(world))
	for _, p := range world {
		cell := snapToGrid(p, g)
		if seen[cell] {
			continue
		}
		seen[cell] = true
		d.FilledBox(cell, g, o.CellFill)
		d.WireBox(cell, g, o.CellWire)
	}
	o.logger.Debugw("grid cells drawn", "points", len(world), "cells", len(seen))
}

// snapToGrid snaps each coordinate to the nearest multiple of g. Cells are
// keyed by exact float equality; snapped coordinates that differ only by
// floating-point noise land in distinct cells, an accepted limitation.
func snapToGrid(p r3.Vector, g float64) r3.Vector {
	return r3.Vector{
		X: math.Round(p.X/g) * g,
		Y: math.Round(p.Y/g) * g,
		Z: math.Round(p.Z/g) * g,
	}
}

// lodColor maps a level index to a marker color, coarse levels cold and
// fine levels warm.
func lodColor(lod, maxLOD int) color.NRGBA {
	frac := 0.0
	if maxLOD > 0 {
		frac = float64(lod) / float64(maxLOD)
	}
	c := colorful.Hsv(240*(1-frac), 0.85, 0.95)
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}
