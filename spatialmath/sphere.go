package spatialmath

import (
	"encoding/json"
	"fmt"

	"github.com/golang/geo/r3"
)

// sphere is a scannable volume that represents a sphere, it has a pose and a
// radius that fully define it.
type sphere struct {
	pose   Pose
	radius float64
	label  string
}

// NewSphere instantiates a new sphere Volume.
func NewSphere(pose Pose, radius float64, label string) (Volume, error) {
	if radius <= 0 {
		return nil, newBadVolumeDimensionsError(&sphere{})
	}
	if pose == nil {
		pose = NewZeroPose()
	}
	return &sphere{pose: pose, radius: radius, label: label}, nil
}

// String returns a human readable string that represents the sphere.
func (s *sphere) String() string {
	pt := s.pose.Point()
	return fmt.Sprintf("Type: Sphere | Position: X:%.1f, Y:%.1f, Z:%.1f | Radius: %.1f", pt.X, pt.Y, pt.Z, s.radius)
}

func (s *sphere) MarshalJSON() ([]byte, error) {
	config, err := NewVolumeConfig(s)
	if err != nil {
		return nil, err
	}
	return json.Marshal(config)
}

// Label returns the label of this sphere.
func (s *sphere) Label() string {
	return s.label
}

// SetLabel sets the label of this sphere.
func (s *sphere) SetLabel(label string) {
	s.label = label
}

// Pose returns the pose of the sphere.
func (s *sphere) Pose() Pose {
	return s.pose
}

// AlmostEqual compares the sphere with another volume and checks if they are equivalent.
func (s *sphere) AlmostEqual(v Volume) bool {
	other, ok := v.(*sphere)
	if !ok {
		return false
	}
	return PoseAlmostEqualEps(s.pose, other.pose, 1e-6) &&
		Float64AlmostEqual(s.radius, other.radius, 1e-8)
}

// Transform premultiplies the sphere pose with a pose, allowing the sphere to be moved in space.
func (s *sphere) Transform(toPremultiply Pose) Volume {
	return &sphere{pose: Compose(toPremultiply, s.pose), radius: s.radius, label: s.label}
}

// Contains reports whether the given world-space point lies inside the
// sphere, boundary included.
func (s *sphere) Contains(pt r3.Vector) bool {
	return pt.Sub(s.pose.Point()).Norm() <= s.radius
}

// Bounds returns the world axis aligned bounding box of the sphere.
func (s *sphere) Bounds() (r3.Vector, r3.Vector) {
	center := s.pose.Point()
	r := r3.Vector{X: s.radius, Y: s.radius, Z: s.radius}
	return center.Sub(r), center.Add(r)
}
