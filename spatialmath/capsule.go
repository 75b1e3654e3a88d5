package spatialmath

import (
	"encoding/json"
	"fmt"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// capsule is a scannable volume that represents a capsule, it has a pose, a
// radius and a length that fully define it.
//
// ....___________________
// .../                   \
// .x|  |-------O-------|  |x
// ...\___________________/
//
// Length is the distance between the x's, or internal segment length + 2*radius.
// The capsule extends along the Z axis of its pose.
type capsule struct {
	pose   Pose
	radius float64
	length float64 // total length of the capsule, tip to tip
	label  string

	// segA and segB are the endpoints of the central line segment, generated
	// at creation time because they are useful and expensive to calculate.
	segA r3.Vector
	segB r3.Vector
}

// NewCapsule instantiates a new capsule Volume.
func NewCapsule(offset Pose, radius, length float64, label string) (Volume, error) {
	if radius <= 0 || length <= 0 {
		return nil, newBadVolumeDimensionsError(&capsule{})
	}
	if length < radius*2 {
		return nil, newBadCapsuleLengthError(length, radius)
	}
	if offset == nil {
		offset = NewZeroPose()
	}
	if length == radius*2 {
		return NewSphere(offset, radius, label)
	}
	return newCapsuleWithSegPoints(offset, radius, length, label), nil
}

// Precalculates the central segment endpoints for a capsule.
func newCapsuleWithSegPoints(offset Pose, radius, length float64, label string) Volume {
	segA := Compose(offset, NewPoseFromPoint(r3.Vector{Z: -length/2 + radius})).Point()
	segB := Compose(offset, NewPoseFromPoint(r3.Vector{Z: length/2 - radius})).Point()
	return &capsule{
		pose:   offset,
		radius: radius,
		length: length,
		label:  label,
		segA:   segA,
		segB:   segB,
	}
}

// String returns a human readable string that represents the capsule.
func (c *capsule) String() string {
	return fmt.Sprintf("Type: Capsule | Radius: %.1f | Length: %.1f", c.radius, c.length)
}

func (c *capsule) MarshalJSON() ([]byte, error) {
	config, err := NewVolumeConfig(c)
	if err != nil {
		return nil, err
	}
	return json.Marshal(config)
}

// Label returns the label of this capsule.
func (c *capsule) Label() string {
	return c.label
}

// SetLabel sets the label of this capsule.
func (c *capsule) SetLabel(label string) {
	c.label = label
}

// Pose returns the pose of the capsule.
func (c *capsule) Pose() Pose {
	return c.pose
}

// AlmostEqual compares the capsule with another volume and checks if they are equivalent.
func (c *capsule) AlmostEqual(v Volume) bool {
	other, ok := v.(*capsule)
	if !ok {
		return false
	}
	return PoseAlmostEqualEps(c.pose, other.pose, 1e-6) &&
		Float64AlmostEqual(c.radius, other.radius, 1e-8) &&
		Float64AlmostEqual(c.length, other.length, 1e-8)
}

// Transform premultiplies the capsule pose with a pose, allowing the capsule to be moved in space.
func (c *capsule) Transform(toPremultiply Pose) Volume {
	return &capsule{
		pose:   Compose(toPremultiply, c.pose),
		radius: c.radius,
		length: c.length,
		label:  c.label,
		segA:   Compose(toPremultiply, NewPoseFromPoint(c.segA)).Point(),
		segB:   Compose(toPremultiply, NewPoseFromPoint(c.segB)).Point(),
	}
}

// Contains reports whether the given world-space point lies inside the
// capsule, boundary included. A point is inside when it is within radius of
// the central line segment.
func (c *capsule) Contains(pt r3.Vector) bool {
	return DistToLineSegment(c.segA, c.segB, pt) <= c.radius
}

// Bounds returns the world axis aligned bounding box of the capsule by
// padding the extent of the segment endpoints with the radius.
func (c *capsule) Bounds() (r3.Vector, r3.Vector) {
	r := r3.Vector{X: c.radius, Y: c.radius, Z: c.radius}
	return vecMin(c.segA, c.segB).Sub(r), vecMax(c.segA, c.segB).Add(r)
}

func newBadCapsuleLengthError(length, radius float64) error {
	return errors.Errorf("capsule length %f cannot be less than twice the radius %f", length, radius)
}
