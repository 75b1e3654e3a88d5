package gizmo

import (
	"image"
	"image/color"
	"io"

	"github.com/fogleman/gg"
	"github.com/golang/geo/r3"
)

// ImageDrawer renders overlay draw calls into an image through an
// orthographic top-down projection: world X maps to image X, world Y to
// image Y (flipped so +Y is up), world Z is discarded.
type ImageDrawer struct {
	dc            *gg.Context
	width, height int
	pixelsPerUnit float64
	center        r3.Vector
}

// NewImageDrawer returns a drawer rendering into a width x height image
// with the given world point at the image center and pixelsPerUnit world
// scale. The background is filled dark so overlay colors stand out.
func NewImageDrawer(width, height int, pixelsPerUnit float64, center r3.Vector) *ImageDrawer {
	dc := gg.NewContext(width, height)
	dc.SetColor(color.NRGBA{R: 16, G: 16, B: 24, A: 255})
	dc.Clear()
	return &ImageDrawer{
		dc:            dc,
		width:         width,
		height:        height,
		pixelsPerUnit: pixelsPerUnit,
		center:        center,
	}
}

func (id *ImageDrawer) toPixel(p r3.Vector) (float64, float64) {
	x := float64(id.width)/2 + (p.X-id.center.X)*id.pixelsPerUnit
	y := float64(id.height)/2 - (p.Y-id.center.Y)*id.pixelsPerUnit
	return x, y
}

// Point draws a world point as a small filled dot.
func (id *ImageDrawer) Point(p r3.Vector, c color.NRGBA) {
	x, y := id.toPixel(p)
	id.dc.SetColor(c)
	id.dc.DrawPoint(x, y, 2)
	id.dc.Fill()
}

// FilledBox draws a cube as a solid square of the cube's footprint.
func (id *ImageDrawer) FilledBox(center r3.Vector, size float64, c color.NRGBA) {
	x, y := id.toPixel(center)
	side := size * id.pixelsPerUnit
	id.dc.SetColor(c)
	id.dc.DrawRectangle(x-side/2, y-side/2, side, side)
	id.dc.Fill()
}

// WireBox draws a cube as the outline of the cube's footprint.
func (id *ImageDrawer) WireBox(center r3.Vector, size float64, c color.NRGBA) {
	x, y := id.toPixel(center)
	side := size * id.pixelsPerUnit
	id.dc.SetColor(c)
	id.dc.DrawRectangle(x-side/2, y-side/2, side, side)
	id.dc.SetLineWidth(1)
	id.dc.Stroke()
}

// Image returns the rendered image.
func (id *ImageDrawer) Image() image.Image {
	return id.dc.Image()
}

// EncodePNG writes the rendered image to w as a PNG.
func (id *ImageDrawer) EncodePNG(w io.Writer) error {
	return id.dc.EncodePNG(w)
}

// SavePNG writes the rendered image to the named file.
func (id *ImageDrawer) SavePNG(path string) error {
	return id.dc.SavePNG(path)
}
