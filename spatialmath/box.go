package spatialmath

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Ordered list of box vertices, as signs on the half size.
var boxVertices = [8]r3.Vector{
	{X: 1, Y: 1, Z: 1},
	{X: 1, Y: 1, Z: -1},
	{X: 1, Y: -1, Z: 1},
	{X: 1, Y: -1, Z: -1},
	{X: -1, Y: 1, Z: 1},
	{X: -1, Y: 1, Z: -1},
	{X: -1, Y: -1, Z: 1},
	{X: -1, Y: -1, Z: -1},
}

// box is a scannable volume that represents a 3D rectangular prism, it has a
// pose and half size that fully define it.
type box struct {
	pose     Pose
	centerPt r3.Vector
	halfSize r3.Vector
	label    string
}

// NewBox instantiates a new box Volume.
func NewBox(pose Pose, dims r3.Vector, label string) (Volume, error) {
	// Negative and zero dimensions not allowed, a box with no extent cannot be sampled.
	if dims.X <= 0 || dims.Y <= 0 || dims.Z <= 0 {
		return nil, newBadVolumeDimensionsError(&box{})
	}
	if pose == nil {
		pose = NewZeroPose()
	}
	return &box{
		pose:     pose,
		centerPt: pose.Point(),
		halfSize: dims.Mul(0.5),
		label:    label,
	}, nil
}

// String returns a human readable string that represents the box.
func (b *box) String() string {
	return fmt.Sprintf("Type: Box | Position: X:%.1f, Y:%.1f, Z:%.1f | Dims: X:%.1f, Y:%.1f, Z:%.1f",
		b.centerPt.X, b.centerPt.Y, b.centerPt.Z, 2*b.halfSize.X, 2*b.halfSize.Y, 2*b.halfSize.Z)
}

func (b *box) MarshalJSON() ([]byte, error) {
	config, err := NewVolumeConfig(b)
	if err != nil {
		return nil, err
	}
	return json.Marshal(config)
}

// Label returns the label of this box.
func (b *box) Label() string {
	return b.label
}

// SetLabel sets the label of this box.
func (b *box) SetLabel(label string) {
	b.label = label
}

// Pose returns the pose of the box.
func (b *box) Pose() Pose {
	return b.pose
}

// AlmostEqual compares the box with another volume and checks if they are equivalent.
func (b *box) AlmostEqual(v Volume) bool {
	other, ok := v.(*box)
	if !ok {
		return false
	}
	return PoseAlmostEqualEps(b.pose, other.pose, 1e-6) &&
		R3VectorAlmostEqual(b.halfSize, other.halfSize, 1e-8)
}

// Transform premultiplies the box pose with a pose, allowing the box to be moved in space.
func (b *box) Transform(toPremultiply Pose) Volume {
	p := Compose(toPremultiply, b.pose)
	return &box{
		pose:     p,
		centerPt: p.Point(),
		halfSize: b.halfSize,
		label:    b.label,
	}
}

// Contains reports whether the given world-space point lies inside the box,
// boundary included. The point is rotated into the box frame and tested
// against the half size per axis.
func (b *box) Contains(pt r3.Vector) bool {
	q := b.pose.Orientation().Quaternion()
	local := rotateVector(quat.Conj(q), pt.Sub(b.centerPt))
	return math.Abs(local.X) <= b.halfSize.X &&
		math.Abs(local.Y) <= b.halfSize.Y &&
		math.Abs(local.Z) <= b.halfSize.Z
}

// Bounds returns the world axis aligned bounding box of the box by taking the
// extent of its eight transformed vertices.
func (b *box) Bounds() (r3.Vector, r3.Vector) {
	min := r3.Vector{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	max := min.Mul(-1)
	for _, vert := range boxVertices {
		offset := NewPoseFromPoint(r3.Vector{X: vert.X * b.halfSize.X, Y: vert.Y * b.halfSize.Y, Z: vert.Z * b.halfSize.Z})
		pt := Compose(b.pose, offset).Point()
		min = vecMin(min, pt)
		max = vecMax(max, pt)
	}
	return min, max
}
