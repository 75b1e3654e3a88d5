package detection

import (
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/mpicque/grid-sensor/pointset"
	"github.com/mpicque/grid-sensor/spatialmath"
)

// testScanResult builds maxLOD+1 levels where level k holds k+1 points, so
// the point-count readout identifies the selected level.
func testScanResult(maxLOD int) ScanResult {
	levels := make([]*pointset.Set, maxLOD+1)
	for lod := range levels {
		level := pointset.New()
		for i := 0; i <= lod; i++ {
			level.Add(r3.Vector{X: float64(lod), Y: float64(i)})
		}
		levels[lod] = level
	}
	return ScanResult{MaxLOD: maxLOD, Levels: levels}
}

func populatedShape(t *testing.T, maxLOD int) *Shape {
	t.Helper()
	logger := golog.NewTestLogger(t)
	s, err := NewShape(Config{ScanLOD: maxLOD}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.SetScanResult(testScanResult(maxLOD)), test.ShouldBeNil)
	return s
}

func TestConfigValidate(t *testing.T) {
	test.That(t, (&Config{}).Validate(""), test.ShouldBeNil)
	test.That(t, (&Config{Projection: 1, ScanLOD: 5}).Validate(""), test.ShouldBeNil)

	err := (&Config{Projection: -0.1}).Validate("")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "projection")

	err = (&Config{Projection: 1.5}).Validate("")
	test.That(t, err, test.ShouldNotBeNil)

	err = (&Config{ScanLOD: -1}).Validate("")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "scan_lod")
}

func TestNewShape(t *testing.T) {
	logger := golog.NewTestLogger(t)

	s, err := NewShape(Config{}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.HasPoints(), test.ShouldBeFalse)
	test.That(t, s.MaxLOD(), test.ShouldEqual, 0)
	test.That(t, s.SelectedLOD(), test.ShouldEqual, 0)
	test.That(t, s.PointCount(), test.ShouldEqual, 0)

	_, err = NewShape(Config{Projection: 2}, logger)
	test.That(t, err, test.ShouldNotBeNil)

	s, err = NewShape(Config{}, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s, test.ShouldNotBeNil)
}

func TestSetScanResult(t *testing.T) {
	logger := golog.NewTestLogger(t)

	t.Run("stores levels and rebinds", func(t *testing.T) {
		s := populatedShape(t, 3)
		test.That(t, s.HasPoints(), test.ShouldBeTrue)
		test.That(t, s.MaxLOD(), test.ShouldEqual, 3)
		test.That(t, s.SelectedLOD(), test.ShouldEqual, 0)
		test.That(t, s.PointCount(), test.ShouldEqual, 1)
		test.That(t, s.Level(3).Size(), test.ShouldEqual, 4)
	})

	t.Run("re-clamps selection into new range", func(t *testing.T) {
		s := populatedShape(t, 3)
		s.SelectByDistance(0)
		test.That(t, s.SelectedLOD(), test.ShouldEqual, 3)

		test.That(t, s.SetScanResult(testScanResult(1)), test.ShouldBeNil)
		test.That(t, s.MaxLOD(), test.ShouldEqual, 1)
		test.That(t, s.SelectedLOD(), test.ShouldEqual, 1)
		test.That(t, s.PointCount(), test.ShouldEqual, 2)
	})

	t.Run("drops levels beyond max LOD", func(t *testing.T) {
		s, err := NewShape(Config{ScanLOD: 1}, logger)
		test.That(t, err, test.ShouldBeNil)
		res := testScanResult(3)
		res.MaxLOD = 1
		test.That(t, s.SetScanResult(res), test.ShouldBeNil)
		test.That(t, s.MaxLOD(), test.ShouldEqual, 1)
		test.That(t, s.Level(2), test.ShouldBeNil)
	})

	t.Run("rejects negative max LOD", func(t *testing.T) {
		s, err := NewShape(Config{}, logger)
		test.That(t, err, test.ShouldBeNil)
		err = s.SetScanResult(ScanResult{MaxLOD: -1, Levels: []*pointset.Set{pointset.New()}})
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "invalid max LOD")
	})

	t.Run("rejects too few levels", func(t *testing.T) {
		s, err := NewShape(Config{}, logger)
		test.That(t, err, test.ShouldBeNil)
		res := testScanResult(3)
		res.Levels = res.Levels[:2]
		err = s.SetScanResult(res)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "needs 4 levels, got 2")
	})

	t.Run("rejects nil level", func(t *testing.T) {
		s, err := NewShape(Config{}, logger)
		test.That(t, err, test.ShouldBeNil)
		res := testScanResult(3)
		res.Levels[2] = nil
		err = s.SetScanResult(res)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "level 2 is nil")
	})

	t.Run("failed replacement keeps previous state", func(t *testing.T) {
		s := populatedShape(t, 3)
		s.SelectByDistance(0)

		bad := testScanResult(5)
		bad.Levels = bad.Levels[:3]
		test.That(t, s.SetScanResult(bad), test.ShouldNotBeNil)

		test.That(t, s.HasPoints(), test.ShouldBeTrue)
		test.That(t, s.MaxLOD(), test.ShouldEqual, 3)
		test.That(t, s.SelectedLOD(), test.ShouldEqual, 3)
		test.That(t, s.PointCount(), test.ShouldEqual, 4)
	})
}

func TestSelectByDistance(t *testing.T) {
	t.Run("distance endpoints", func(t *testing.T) {
		s := populatedShape(t, 3)
		test.That(t, s.SelectByDistance(0), test.ShouldEqual, 3)
		test.That(t, s.PointCount(), test.ShouldEqual, 4)
		test.That(t, s.SelectByDistance(1), test.ShouldEqual, 0)
		test.That(t, s.PointCount(), test.ShouldEqual, 1)
	})

	t.Run("midrange rounding", func(t *testing.T) {
		s := populatedShape(t, 4)
		test.That(t, s.SelectByDistance(0.5), test.ShouldEqual, 2)
		test.That(t, s.SelectByDistance(0.75), test.ShouldEqual, 1)
	})

	t.Run("always within range", func(t *testing.T) {
		for maxLOD := 0; maxLOD <= 4; maxLOD++ {
			s := populatedShape(t, maxLOD)
			for i := 0; i <= 10; i++ {
				lod := s.SelectByDistance(float64(i) / 10)
				test.That(t, lod, test.ShouldBeGreaterThanOrEqualTo, 0)
				test.That(t, lod, test.ShouldBeLessThanOrEqualTo, maxLOD)
			}
		}
	})

	t.Run("out of range distances clamp", func(t *testing.T) {
		s := populatedShape(t, 3)
		test.That(t, s.SelectByDistance(-0.5), test.ShouldEqual, 3)
		test.That(t, s.SelectByDistance(2), test.ShouldEqual, 0)
	})

	t.Run("flatten forces coarsest", func(t *testing.T) {
		s := populatedShape(t, 3)
		s.SetFlatten(true)
		test.That(t, s.SelectByDistance(0), test.ShouldEqual, 0)
		test.That(t, s.SelectByDistance(0.3), test.ShouldEqual, 0)
		test.That(t, s.SelectByDistance(1), test.ShouldEqual, 0)
	})
}

func TestSelectByLOD(t *testing.T) {
	logger := golog.NewTestLogger(t)

	t.Run("clamps into level range", func(t *testing.T) {
		s := populatedShape(t, 3)
		test.That(t, s.SelectByLOD(2), test.ShouldEqual, 2)
		test.That(t, s.SelectByLOD(7), test.ShouldEqual, 3)
		test.That(t, s.SelectByLOD(-2), test.ShouldEqual, 0)
	})

	t.Run("never exceeds scan LOD", func(t *testing.T) {
		s, err := NewShape(Config{ScanLOD: 1}, logger)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, s.SetScanResult(testScanResult(3)), test.ShouldBeNil)

		test.That(t, s.SelectByLOD(3), test.ShouldEqual, 1)
		test.That(t, s.SelectByLOD(2), test.ShouldEqual, 1)
		test.That(t, s.SelectByLOD(0), test.ShouldEqual, 0)
	})

	t.Run("flatten forces coarsest", func(t *testing.T) {
		s := populatedShape(t, 3)
		s.SetFlatten(true)
		test.That(t, s.SelectByLOD(3), test.ShouldEqual, 0)
	})

	t.Run("empty shape selects zero", func(t *testing.T) {
		s, err := NewShape(Config{ScanLOD: 5}, logger)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, s.SelectByLOD(5), test.ShouldEqual, 0)
	})
}

func TestScanLODAccessor(t *testing.T) {
	logger := golog.NewTestLogger(t)

	s, err := NewShape(Config{ScanLOD: 10}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.ScanLOD(), test.ShouldEqual, 0)
	test.That(t, s.Config().ScanLOD, test.ShouldEqual, 10)

	test.That(t, s.SetScanResult(testScanResult(3)), test.ShouldBeNil)
	test.That(t, s.ScanLOD(), test.ShouldEqual, 3)
	test.That(t, s.Config().ScanLOD, test.ShouldEqual, 10)
}

func TestProjectToWorld(t *testing.T) {
	t.Run("identity returns local points", func(t *testing.T) {
		s := populatedShape(t, 2)
		s.SelectByDistance(0)
		world := s.ProjectToWorld(spatialmath.NewIdentityTransform())
		test.That(t, world, test.ShouldResemble, s.LocalPoints())
	})

	t.Run("translation offsets every point", func(t *testing.T) {
		s := populatedShape(t, 1)
		s.SelectByLOD(1)
		tf := spatialmath.NewTransformFromPose(
			spatialmath.NewPoseFromPoint(r3.Vector{X: 10, Y: -5, Z: 2}))
		world := s.ProjectToWorld(tf)
		test.That(t, world, test.ShouldResemble, []r3.Vector{
			{X: 11, Y: -5, Z: 2},
			{X: 11, Y: -4, Z: 2},
		})
	})

	t.Run("buffer reused across calls", func(t *testing.T) {
		s := populatedShape(t, 2)
		s.SelectByLOD(2)
		tf := spatialmath.NewIdentityTransform()
		first := s.ProjectToWorld(tf)
		second := s.ProjectToWorld(tf)
		test.That(t, len(second), test.ShouldEqual, len(first))
		test.That(t, &second[0], test.ShouldEqual, &first[0])
	})

	t.Run("empty shape yields nil", func(t *testing.T) {
		s, err := NewShape(Config{}, golog.NewTestLogger(t))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, s.ProjectToWorld(spatialmath.NewIdentityTransform()), test.ShouldBeNil)
	})
}

func TestWorldPointsAtDistance(t *testing.T) {
	s := populatedShape(t, 2)
	tf := spatialmath.NewTransformFromPose(
		spatialmath.NewPoseFromPoint(r3.Vector{X: 100}))

	world := s.WorldPointsAtDistance(tf, 0)
	test.That(t, s.SelectedLOD(), test.ShouldEqual, 2)
	test.That(t, world, test.ShouldResemble, []r3.Vector{
		{X: 102, Y: 0, Z: 0},
		{X: 102, Y: 1, Z: 0},
		{X: 102, Y: 2, Z: 0},
	})

	world = s.WorldPointsAtDistance(tf, 1)
	test.That(t, s.SelectedLOD(), test.ShouldEqual, 0)
	test.That(t, world, test.ShouldResemble, []r3.Vector{{X: 100, Y: 0, Z: 0}})
}

func TestReset(t *testing.T) {
	t.Run("returns to empty with zero counters", func(t *testing.T) {
		s := populatedShape(t, 3)
		s.SelectByDistance(0)
		s.ProjectToWorld(spatialmath.NewIdentityTransform())

		s.Reset()
		test.That(t, s.HasPoints(), test.ShouldBeFalse)
		test.That(t, s.MaxLOD(), test.ShouldEqual, 0)
		test.That(t, s.SelectedLOD(), test.ShouldEqual, 0)
		test.That(t, s.PointCount(), test.ShouldEqual, 0)
		test.That(t, s.LocalPoints(), test.ShouldBeNil)
		test.That(t, s.ProjectToWorld(spatialmath.NewIdentityTransform()), test.ShouldBeNil)
	})

	t.Run("keeps configuration", func(t *testing.T) {
		logger := golog.NewTestLogger(t)
		cfg := Config{Merge: true, Projection: 0.5, ScanLOD: 2}
		s, err := NewShape(cfg, logger)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, s.SetScanResult(testScanResult(2)), test.ShouldBeNil)

		s.Reset()
		test.That(t, s.Config(), test.ShouldResemble, cfg)
	})

	t.Run("reset then repopulate matches single populate", func(t *testing.T) {
		res := testScanResult(3)

		once := populatedShape(t, 3)
		twice := populatedShape(t, 3)
		twice.Reset()
		test.That(t, twice.SetScanResult(res), test.ShouldBeNil)

		test.That(t, twice.MaxLOD(), test.ShouldEqual, once.MaxLOD())
		test.That(t, twice.HasPoints(), test.ShouldEqual, once.HasPoints())
		test.That(t, twice.SelectByDistance(0.5), test.ShouldEqual, once.SelectByDistance(0.5))
		test.That(t, twice.PointCount(), test.ShouldEqual, once.PointCount())

		tf := spatialmath.NewIdentityTransform()
		test.That(t, twice.ProjectToWorld(tf), test.ShouldResemble, once.ProjectToWorld(tf))
	})
}

func TestRescanSignaling(t *testing.T) {
	logger := golog.NewTestLogger(t)
	s, err := NewShape(Config{}, logger)
	test.That(t, err, test.ShouldBeNil)

	rescans := 0
	s.OnRescanNeeded(func() { rescans++ })

	t.Run("merge", func(t *testing.T) {
		test.That(t, s.SetMerge(true), test.ShouldBeTrue)
		test.That(t, rescans, test.ShouldEqual, 1)
		test.That(t, s.SetMerge(true), test.ShouldBeFalse)
		test.That(t, rescans, test.ShouldEqual, 1)
	})

	t.Run("flatten", func(t *testing.T) {
		test.That(t, s.SetFlatten(true), test.ShouldBeTrue)
		test.That(t, rescans, test.ShouldEqual, 2)
		test.That(t, s.Config().Flatten, test.ShouldBeTrue)
	})

	t.Run("projection", func(t *testing.T) {
		changed, err := s.SetProjection(0.5)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, changed, test.ShouldBeTrue)
		test.That(t, rescans, test.ShouldEqual, 3)

		changed, err = s.SetProjection(0.5)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, changed, test.ShouldBeFalse)
		test.That(t, rescans, test.ShouldEqual, 3)

		changed, err = s.SetProjection(1.5)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, changed, test.ShouldBeFalse)
		test.That(t, s.Config().Projection, test.ShouldEqual, 0.5)
		test.That(t, rescans, test.ShouldEqual, 3)
	})

	t.Run("scan LOD", func(t *testing.T) {
		changed, err := s.SetScanLOD(2)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, changed, test.ShouldBeTrue)
		test.That(t, rescans, test.ShouldEqual, 4)

		changed, err = s.SetScanLOD(-1)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, changed, test.ShouldBeFalse)
		test.That(t, s.Config().ScanLOD, test.ShouldEqual, 2)
		test.That(t, rescans, test.ShouldEqual, 4)
	})

	t.Run("callback cleared", func(t *testing.T) {
		s.OnRescanNeeded(nil)
		test.That(t, s.SetMerge(false), test.ShouldBeTrue)
		test.That(t, rescans, test.ShouldEqual, 4)
	})

	t.Run("no subscriber tolerated", func(t *testing.T) {
		fresh, err := NewShape(Config{}, logger)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, fresh.SetMerge(true), test.ShouldBeTrue)
	})
}

func TestSetFlattenReappliesSelection(t *testing.T) {
	s := populatedShape(t, 3)
	s.SelectByDistance(0)
	test.That(t, s.SelectedLOD(), test.ShouldEqual, 3)

	s.SetFlatten(true)
	test.That(t, s.SelectedLOD(), test.ShouldEqual, 0)
	test.That(t, s.PointCount(), test.ShouldEqual, 1)

	s.SetFlatten(false)
	test.That(t, s.SelectByDistance(0), test.ShouldEqual, 3)
}

func TestSetScanLODReclampsSelection(t *testing.T) {
	s := populatedShape(t, 3)
	test.That(t, s.SelectByLOD(3), test.ShouldEqual, 3)

	changed, err := s.SetScanLOD(1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, changed, test.ShouldBeTrue)
	test.That(t, s.SelectedLOD(), test.ShouldEqual, 1)
}

func TestEmptyQueries(t *testing.T) {
	logger := golog.NewTestLogger(t)
	s, err := NewShape(Config{}, logger)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, s.SelectByDistance(0.5), test.ShouldEqual, 0)
	test.That(t, s.PointCount(), test.ShouldEqual, 0)
	test.That(t, s.LocalPoints(), test.ShouldBeNil)
	test.That(t, s.Level(0), test.ShouldBeNil)
	tf := spatialmath.NewIdentityTransform()
	test.That(t, s.WorldPointsAtDistance(tf, 0.5), test.ShouldBeNil)
}
