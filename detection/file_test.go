package detection

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/mpicque/grid-sensor/pointset"
)

// fileTestShape uses coordinates exactly representable as float32 so both
// encodings round-trip without loss.
func fileTestShape(t *testing.T) *Shape {
	t.Helper()
	logger := golog.NewTestLogger(t)
	s, err := NewShape(Config{Merge: true, Projection: 0.25, ScanLOD: 1}, logger)
	test.That(t, err, test.ShouldBeNil)

	coarse := pointset.FromSlice([]r3.Vector{{X: 0.5, Y: -0.25, Z: 2}})
	fine := pointset.FromSlice([]r3.Vector{
		{X: 1.5, Y: 0.75, Z: -3.5},
		{X: -0.125, Y: 4, Z: 0.5},
		{X: 8.25, Y: -1.75, Z: 0.0625},
	})
	err = s.SetScanResult(ScanResult{MaxLOD: 1, Levels: []*pointset.Set{coarse, fine}})
	test.That(t, err, test.ShouldBeNil)
	return s
}

func TestWriteShapeEmpty(t *testing.T) {
	logger := golog.NewTestLogger(t)
	s, err := NewShape(Config{}, logger)
	test.That(t, err, test.ShouldBeNil)

	var buf bytes.Buffer
	err = WriteShape(s, &buf, FormatAscii)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "no scan result")
}

func TestShapeFileRoundTrip(t *testing.T) {
	logger := golog.NewTestLogger(t)

	for _, tc := range []struct {
		name   string
		format Format
	}{
		{"ascii", FormatAscii},
		{"binary", FormatBinary},
	} {
		t.Run(tc.name, func(t *testing.T) {
			orig := fileTestShape(t)

			var buf bytes.Buffer
			test.That(t, WriteShape(orig, &buf, tc.format), test.ShouldBeNil)

			loaded, err := ReadShape(&buf, logger)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, loaded.HasPoints(), test.ShouldBeTrue)
			test.That(t, loaded.Config(), test.ShouldResemble, orig.Config())
			test.That(t, loaded.MaxLOD(), test.ShouldEqual, orig.MaxLOD())
			for lod := 0; lod <= orig.MaxLOD(); lod++ {
				test.That(t, loaded.Level(lod).Points(), test.ShouldResemble, orig.Level(lod).Points())
			}
		})
	}
}

func TestShapeFileHeaderErrors(t *testing.T) {
	logger := golog.NewTestLogger(t)

	for _, tc := range []struct {
		name string
		data string
		want string
	}{
		{
			"unsupported version",
			"VERSION 2\n",
			"unsupported shape file version",
		},
		{
			"wrong field order",
			"CONFIG false false 0.000000 0\n",
			"supposed to start with VERSION",
		},
		{
			"counts mismatch",
			"VERSION 1\nCONFIG false false 0.000000 0\nMAXLOD 1\nCOUNTS 3\n",
			"COUNTS line has 1 fields, want 2",
		},
		{
			"negative max LOD",
			"VERSION 1\nCONFIG false false 0.000000 0\nMAXLOD -2\n",
			"invalid MAXLOD field",
		},
		{
			"unknown data format",
			"VERSION 1\nCONFIG false false 0.000000 0\nMAXLOD 0\nCOUNTS 1\nDATA hex\n",
			"unsupported shape file data format",
		},
		{
			"truncated point data",
			"VERSION 1\nCONFIG false false 0.000000 0\nMAXLOD 0\nCOUNTS 1\nDATA ascii\n",
			"error reading level 0 point 0",
		},
		{
			"stored config invalid",
			"VERSION 1\nCONFIG false false 2.000000 0\nMAXLOD 0\nCOUNTS 1\nDATA ascii\n0.000000 0.000000 0.000000\n",
			"projection",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadShape(bytes.NewBufferString(tc.data), logger)
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.want)
		})
	}
}

func TestShapeFileCommentsAndBlanks(t *testing.T) {
	logger := golog.NewTestLogger(t)
	data := "# shape file\n" +
		"VERSION 1\n" +
		"\n" +
		"CONFIG true false 0.250000 1\n" +
		"MAXLOD 0\n" +
		"# one coarse point\n" +
		"COUNTS 1\n" +
		"DATA ascii\n" +
		"1.500000 -0.500000 2.000000\n"

	s, err := ReadShape(bytes.NewBufferString(data), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Config(), test.ShouldResemble, Config{Merge: true, Projection: 0.25, ScanLOD: 1})
	test.That(t, s.Level(0).Points(), test.ShouldResemble, []r3.Vector{{X: 1.5, Y: -0.5, Z: 2}})
}

func TestShapeFileOnDisk(t *testing.T) {
	logger := golog.NewTestLogger(t)
	orig := fileTestShape(t)
	fn := filepath.Join(t.TempDir(), "shape.lvl")

	test.That(t, WriteShapeToFile(orig, fn, FormatBinary), test.ShouldBeNil)

	loaded, err := NewShapeFromFile(fn, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, loaded.Config(), test.ShouldResemble, orig.Config())
	test.That(t, loaded.MaxLOD(), test.ShouldEqual, 1)
	test.That(t, loaded.Level(1).Size(), test.ShouldEqual, 3)
}
