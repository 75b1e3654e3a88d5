package spatialmath

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
)

// Transform represents the placement of an entity in world space: a rigid
// pose plus a per-axis scale. The full 4x4 matrix is precomputed at
// construction so projecting many points costs one matrix multiply each.
type Transform struct {
	pose  Pose
	scale r3.Vector
	mat   mgl64.Mat4
}

// NewTransform assembles a transform from a pose and a per-axis scale. A nil
// pose is treated as the zero pose. The resulting matrix applies scale first,
// then rotation, then translation.
func NewTransform(pose Pose, scale r3.Vector) *Transform {
	if pose == nil {
		pose = NewZeroPose()
	}
	pt := pose.Point()
	q := pose.Orientation().Quaternion()
	rot := mgl64.Quat{W: q.Real, V: mgl64.Vec3{q.Imag, q.Jmag, q.Kmag}}.Mat4()
	mat := mgl64.Translate3D(pt.X, pt.Y, pt.Z).Mul4(rot).Mul4(mgl64.Scale3D(scale.X, scale.Y, scale.Z))
	return &Transform{pose: pose, scale: scale, mat: mat}
}

// NewTransformFromPose assembles a transform from a pose with unit scale.
func NewTransformFromPose(pose Pose) *Transform {
	return NewTransform(pose, r3.Vector{X: 1, Y: 1, Z: 1})
}

// NewIdentityTransform returns a transform that maps every point to itself.
func NewIdentityTransform() *Transform {
	return NewTransformFromPose(NewZeroPose())
}

// Pose returns the rigid part of the transform.
func (t *Transform) Pose() Pose {
	return t.pose
}

// Scale returns the per-axis scale of the transform.
func (t *Transform) Scale() r3.Vector {
	return t.scale
}

// Mat4 returns the transform as a 4x4 column-major matrix.
func (t *Transform) Mat4() mgl64.Mat4 {
	return t.mat
}

// TransformPoint applies the transform to a single point.
func (t *Transform) TransformPoint(p r3.Vector) r3.Vector {
	v := t.mat.Mul4x1(mgl64.Vec4{p.X, p.Y, p.Z, 1})
	return r3.Vector{X: v.X(), Y: v.Y(), Z: v.Z()}
}

// TransformPoints applies the transform to each point in pts, appending the
// results to dst and returning it. Passing a reused dst[:0] avoids
// reallocating the output on every call.
func (t *Transform) TransformPoints(dst []r3.Vector, pts []r3.Vector) []r3.Vector {
	for _, p := range pts {
		dst = append(dst, t.TransformPoint(p))
	}
	return dst
}
