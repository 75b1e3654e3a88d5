// Package scan turns solid volumes into the layered point sets a detection
// shape consumes. The scanner samples volumes on a regular grid and
// downsamples through an octree; the rescanner keeps a shape current when
// its configuration changes.
package scan

import (
	"math"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	rdkutils "go.viam.com/utils"

	"github.com/mpicque/grid-sensor/detection"
	"github.com/mpicque/grid-sensor/octree"
	"github.com/mpicque/grid-sensor/pointset"
	"github.com/mpicque/grid-sensor/spatialmath"
)

// ScannerConfig is used for configuring a Scanner.
type ScannerConfig struct {
	// Resolution is the world-space distance between neighboring samples.
	Resolution float64 `json:"resolution"`
	// MaxLOD is the finest level of detail the scanner generates.
	MaxLOD int `json:"max_lod"`
}

// Validate ensures all parts of the config are valid.
func (config *ScannerConfig) Validate(path string) error {
	if config.Resolution <= 0 {
		return rdkutils.NewConfigValidationError(path,
			errors.Errorf("resolution must be positive, got %v", config.Resolution))
	}
	if config.MaxLOD < 0 {
		return rdkutils.NewConfigValidationError(path,
			errors.Errorf("max_lod must be nonnegative, got %d", config.MaxLOD))
	}
	return nil
}

// Scanner samples volumes at cell centers of a regular grid and routes the
// occupied centers through an octree, whose depth cuts become the levels of
// a scan result.
type Scanner struct {
	resolution float64
	maxLOD     int
	logger     golog.Logger
}

// NewScanner returns a scanner for the given config.
func NewScanner(config ScannerConfig, logger golog.Logger) (*Scanner, error) {
	if err := config.Validate(""); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = golog.Global()
	}
	return &Scanner{resolution: config.Resolution, maxLOD: config.MaxLOD, logger: logger}, nil
}

// Resolution returns the sampling step.
func (s *Scanner) Resolution() float64 {
	return s.resolution
}

// MaxLOD returns the finest level the scanner generates.
func (s *Scanner) MaxLOD() int {
	return s.maxLOD
}

// Scan samples the volumes and returns one level per LOD in [0, MaxLOD],
// coarsest first; every index has a level. cfg supplies merge, flatten and
// projection; cfg.ScanLOD gates selection on the consuming shape and does
// not change what is generated. Scanning zero volumes is an error.
//
// With merge set, all volumes share one octree so disconnected geometry
// downsamples into combined cells; otherwise each volume gets its own tree
// and the per-volume levels are concatenated. Projection compresses sample
// Z toward the mid-plane of the union bounds by (1 - projection); flatten
// collapses Z entirely, producing the 2D silhouette.
func (s *Scanner) Scan(volumes []spatialmath.Volume, cfg detection.Config) (detection.ScanResult, error) {
	if len(volumes) == 0 {
		return detection.ScanResult{}, errors.New("no volumes to scan")
	}

	unionMin, unionMax := unionBounds(volumes)
	midZ := (unionMin.Z + unionMax.Z) / 2
	squash := 1 - cfg.Projection
	if cfg.Flatten {
		squash = 0
	}

	var trees []*octree.Tree
	if cfg.Merge {
		tree, err := s.sampleTree(volumes, unionMin, unionMax, midZ, squash)
		if err != nil {
			return detection.ScanResult{}, err
		}
		trees = []*octree.Tree{tree}
	} else {
		trees = make([]*octree.Tree, 0, len(volumes))
		for _, vol := range volumes {
			volMin, volMax := vol.Bounds()
			tree, err := s.sampleTree([]spatialmath.Volume{vol}, volMin, volMax, midZ, squash)
			if err != nil {
				return detection.ScanResult{}, err
			}
			trees = append(trees, tree)
		}
	}

	levels := make([]*pointset.Set, s.maxLOD+1)
	for lod := 0; lod <= s.maxLOD; lod++ {
		level := pointset.New()
		for _, tree := range trees {
			for _, p := range tree.LevelPoints(lod + 1) {
				level.Add(p)
			}
		}
		levels[lod] = level
	}
	if levels[s.maxLOD].Size() == 0 {
		s.logger.Warnf("scan of %d volumes produced no points at resolution %v", len(volumes), s.resolution)
	}
	s.logger.Debugw("scan complete",
		"volumes", len(volumes),
		"max_lod", s.maxLOD,
		"finest_points", levels[s.maxLOD].Size())

	return detection.ScanResult{MaxLOD: s.maxLOD, Levels: levels}, nil
}

// sampleTree visits every grid cell center within the given bounds, keeps
// centers contained in any of the volumes, squashes their Z toward midZ and
// inserts them into a fresh octree sized to the squashed extent.
func (s *Scanner) sampleTree(
	volumes []spatialmath.Volume, boundsMin, boundsMax r3.Vector, midZ, squash float64,
) (*octree.Tree, error) {
	zLo := midZ + (boundsMin.Z-midZ)*squash
	zHi := midZ + (boundsMax.Z-midZ)*squash
	treeMin := r3.Vector{X: boundsMin.X, Y: boundsMin.Y, Z: zLo}
	treeMax := r3.Vector{X: boundsMax.X, Y: boundsMax.Y, Z: zHi}
	center := treeMin.Add(treeMax).Mul(0.5)
	ext := treeMax.Sub(treeMin)
	side := math.Max(ext.X, math.Max(ext.Y, ext.Z))

	tree, err := octree.New(center, side, s.maxLOD+1, s.logger)
	if err != nil {
		return nil, err
	}

	half := s.resolution / 2
	for x := boundsMin.X + half; x <= boundsMax.X; x += s.resolution {
		for y := boundsMin.Y + half; y <= boundsMax.Y; y += s.resolution {
			for z := boundsMin.Z + half; z <= boundsMax.Z; z += s.resolution {
				p := r3.Vector{X: x, Y: y, Z: z}
				if !containedInAny(volumes, p) {
					continue
				}
				p.Z = midZ + (p.Z-midZ)*squash
				if err := tree.Insert(p); err != nil {
					return nil, errors.Wrap(err, "error inserting scan sample")
				}
			}
		}
	}
	return tree, nil
}

func containedInAny(volumes []spatialmath.Volume, p r3.Vector) bool {
	for _, vol := range volumes {
		if vol.Contains(p) {
			return true
		}
	}
	return false
}

func unionBounds(volumes []spatialmath.Volume) (r3.Vector, r3.Vector) {
	boundsMin, boundsMax := volumes[0].Bounds()
	for _, vol := range volumes[1:] {
		volMin, volMax := vol.Bounds()
		boundsMin.X = math.Min(boundsMin.X, volMin.X)
		boundsMin.Y = math.Min(boundsMin.Y, volMin.Y)
		boundsMin.Z = math.Min(boundsMin.Z, volMin.Z)
		boundsMax.X = math.Max(boundsMax.X, volMax.X)
		boundsMax.Y = math.Max(boundsMax.Y, volMax.Y)
		boundsMax.Z = math.Max(boundsMax.Z, volMax.Z)
	}
	return boundsMin, boundsMax
}
