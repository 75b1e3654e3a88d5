// Package pointset defines an ordered collection of 3D sample points and
// provides bookkeeping metadata for one.
//
// Unlike a map-backed point cloud, insertion order is preserved, so a Set can
// serve as one level of a multi-resolution stack where callers index into
// levels and iterate points deterministically.
package pointset

import (
	"math"

	"github.com/golang/geo/r3"
)

// MetaData is data about what's stored in the point set.
type MetaData struct {
	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64

	totalX, totalY, totalZ float64
}

// NewMetaData creates a new MetaData.
func NewMetaData() MetaData {
	return MetaData{
		MinX: math.MaxFloat64,
		MinY: math.MaxFloat64,
		MinZ: math.MaxFloat64,
		MaxX: -math.MaxFloat64,
		MaxY: -math.MaxFloat64,
		MaxZ: -math.MaxFloat64,
	}
}

// Merge updates the meta data with the new point.
func (meta *MetaData) Merge(v r3.Vector) {
	if v.X > meta.MaxX {
		meta.MaxX = v.X
	}
	if v.Y > meta.MaxY {
		meta.MaxY = v.Y
	}
	if v.Z > meta.MaxZ {
		meta.MaxZ = v.Z
	}

	if v.X < meta.MinX {
		meta.MinX = v.X
	}
	if v.Y < meta.MinY {
		meta.MinY = v.Y
	}
	if v.Z < meta.MinZ {
		meta.MinZ = v.Z
	}

	meta.totalX += v.X
	meta.totalY += v.Y
	meta.totalZ += v.Z
}

// TotalX returns the totalX stored in metadata.
func (meta *MetaData) TotalX() float64 {
	return meta.totalX
}

// TotalY returns the totalY stored in metadata.
func (meta *MetaData) TotalY() float64 {
	return meta.totalY
}

// TotalZ returns the totalZ stored in metadata.
func (meta *MetaData) TotalZ() float64 {
	return meta.totalZ
}

// Set is an ordered collection of 3D points.
type Set struct {
	points []r3.Vector
	meta   MetaData
}

// New returns an empty Set.
func New() *Set {
	return NewWithCapacity(0)
}

// NewWithCapacity returns an empty Set preallocated for the given number of
// points.
func NewWithCapacity(size int) *Set {
	return &Set{
		points: make([]r3.Vector, 0, size),
		meta:   NewMetaData(),
	}
}

// FromSlice builds a Set from a slice of points, preserving order. The slice
// is copied, not retained.
func FromSlice(pts []r3.Vector) *Set {
	s := NewWithCapacity(len(pts))
	for _, p := range pts {
		s.Add(p)
	}
	return s
}

// Add appends the given point to the set.
func (s *Set) Add(p r3.Vector) {
	s.points = append(s.points, p)
	s.meta.Merge(p)
}

// Size returns the number of points in the set.
func (s *Set) Size() int {
	return len(s.points)
}

// At returns the point at the given index. Index bounds are the caller's
// responsibility, as with a slice.
func (s *Set) At(i int) r3.Vector {
	return s.points[i]
}

// Points returns the underlying point slice. Callers must treat it as
// read-only.
func (s *Set) Points() []r3.Vector {
	return s.points
}

// MetaData returns the meta data.
func (s *Set) MetaData() MetaData {
	return s.meta
}

// Iterate iterates over all points in the set in order and calls the given
// function for each point. If the supplied function returns false, iteration
// stops.
func (s *Set) Iterate(fn func(i int, p r3.Vector) bool) {
	for i, p := range s.points {
		if !fn(i, p) {
			return
		}
	}
}

// Clone returns a deep copy of the set.
func (s *Set) Clone() *Set {
	clone := &Set{
		points: make([]r3.Vector, len(s.points)),
		meta:   s.meta,
	}
	copy(clone.points, s.points)
	return clone
}

// Centroid returns the centroid of the set, or the zero vector for an empty
// set.
func Centroid(s *Set) r3.Vector {
	if s.Size() == 0 {
		return r3.Vector{}
	}
	n := float64(s.Size())
	return r3.Vector{
		X: s.meta.totalX / n,
		Y: s.meta.totalY / n,
		Z: s.meta.totalZ / n,
	}
}
