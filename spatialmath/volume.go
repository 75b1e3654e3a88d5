package spatialmath

import (
	"fmt"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// VolumeType defines what volume types are supported.
type VolumeType string

// The set of allowed volume types.
const (
	UnknownType = VolumeType("")
	BoxType     = VolumeType("box")
	SphereType  = VolumeType("sphere")
	CapsuleType = VolumeType("capsule")
)

// Volume is an entry point with which to access all types of scannable
// volumes. A volume describes a solid region of space that a scanner samples
// for occupancy.
type Volume interface {
	Pose() Pose
	Label() string
	SetLabel(string)

	// Contains reports whether the given world-space point lies inside the
	// volume, boundary included.
	Contains(r3.Vector) bool

	// Bounds returns an axis aligned bounding box around the volume in world
	// space, as a min and max corner.
	Bounds() (r3.Vector, r3.Vector)

	// Transform premultiplies the volume pose with a pose, allowing the
	// volume to be moved in space, and returns the moved volume.
	Transform(Pose) Volume

	AlmostEqual(Volume) bool
	String() string
}

// VolumeConfig specifies the format of volumes specified through JSON
// configuration.
type VolumeConfig struct {
	Type VolumeType `json:"type"`

	// parameters used for defining a box's rectangular cross section
	X float64 `json:"x,omitempty"`
	Y float64 `json:"y,omitempty"`
	Z float64 `json:"z,omitempty"`

	// parameter used for defining a sphere's and capsule's radius
	R float64 `json:"r,omitempty"`

	// parameter used for defining a capsule's total length
	L float64 `json:"l,omitempty"`

	// optional offset to position the volume
	TranslationOffset r3.Vector `json:"translation,omitempty"`
	OrientationOffset *R4AA     `json:"orientation,omitempty"`

	Label string `json:"label,omitempty"`
}

// NewVolumeConfig creates a config for a Volume from a Volume, for
// marshaling back to JSON.
func NewVolumeConfig(v Volume) (*VolumeConfig, error) {
	config := &VolumeConfig{}
	switch vType := v.(type) {
	case *box:
		config.Type = BoxType
		config.X = 2 * vType.halfSize.X
		config.Y = 2 * vType.halfSize.Y
		config.Z = 2 * vType.halfSize.Z
	case *sphere:
		config.Type = SphereType
		config.R = vType.radius
	case *capsule:
		config.Type = CapsuleType
		config.R = vType.radius
		config.L = vType.length
	default:
		return nil, newVolumeTypeUnsupportedError(fmt.Sprintf("%T", v))
	}
	config.TranslationOffset = v.Pose().Point()
	config.OrientationOffset = v.Pose().Orientation().AxisAngles()
	config.Label = v.Label()
	return config, nil
}

// ParseConfig converts a VolumeConfig into the Volume it describes.
func (config *VolumeConfig) ParseConfig() (Volume, error) {
	offset := offsetPose(config)
	switch config.Type {
	case BoxType:
		return NewBox(offset, r3.Vector{X: config.X, Y: config.Y, Z: config.Z}, config.Label)
	case SphereType:
		return NewSphere(offset, config.R, config.Label)
	case CapsuleType:
		return NewCapsule(offset, config.R, config.L, config.Label)
	case UnknownType:
		// no type specified, iterate through supported types and try to infer the type
		if v, err := NewBox(offset, r3.Vector{X: config.X, Y: config.Y, Z: config.Z}, config.Label); err == nil {
			return v, nil
		}
		if v, err := NewSphere(offset, config.R, config.Label); err == nil {
			return v, nil
		}
	}
	return nil, newVolumeTypeUnsupportedError(string(config.Type))
}

func offsetPose(config *VolumeConfig) Pose {
	var o Orientation
	if config.OrientationOffset != nil {
		o = config.OrientationOffset
	}
	return NewPose(config.TranslationOffset, o)
}

func newVolumeTypeUnsupportedError(volumeType string) error {
	return errors.Errorf("unsupported volume type %q", volumeType)
}

func newBadVolumeDimensionsError(v Volume) error {
	return errors.Errorf("invalid dimensions for volume type %T", v)
}
