// Package detection maintains multi-resolution point representations of
// detectable shapes. A Shape stores one point set per level of detail,
// selects the level appropriate for an observer distance, and projects the
// selected points into world space for detection queries.
package detection

import (
	"math"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	rdkutils "go.viam.com/utils"

	"github.com/mpicque/grid-sensor/pointset"
	"github.com/mpicque/grid-sensor/spatialmath"
)

// Config holds the scan-affecting settings of a Shape. The core stores these
// on behalf of the scanning collaborator; only Flatten changes how the core
// itself selects levels.
type Config struct {
	// Merge merges disconnected source geometry into one point field before
	// scanning. Consumed by the scanner, informational here.
	Merge bool `json:"merge"`
	// Flatten forces all level selection to the coarsest level and collapses
	// scanning to a 2D representation.
	Flatten bool `json:"flatten"`
	// Projection compresses scanned depth toward the shape's mid-plane,
	// 0 leaves points in place and 1 projects them fully flat.
	Projection float64 `json:"projection"`
	// ScanLOD is the finest level of detail requested from the scanner.
	ScanLOD int `json:"scan_lod"`
}

// Validate ensures all parts of the config are valid.
func (config *Config) Validate(path string) error {
	if config.Projection < 0 || config.Projection > 1 {
		return rdkutils.NewConfigValidationError(path,
			errors.Errorf("projection must be within [0, 1], got %v", config.Projection))
	}
	if config.ScanLOD < 0 {
		return rdkutils.NewConfigValidationError(path,
			errors.Errorf("scan_lod must be nonnegative, got %d", config.ScanLOD))
	}
	return nil
}

// ScanResult is what a scanner hands back: one point set per level of
// detail. Levels[0] is the coarsest level and Levels[MaxLOD] the finest.
type ScanResult struct {
	MaxLOD int
	Levels []*pointset.Set
}

// Shape is the aggregate at the center of the package. It owns the layered
// point sets of one detectable object, tracks which level is selected, and
// answers world-space point queries against the selection.
//
// A Shape is either empty (no scan result stored) or populated. Point
// queries on an empty shape return nil rather than failing; callers gate on
// HasPoints. All operations are synchronous and the type is not safe for
// concurrent use, serialization belongs to the scanning collaborator.
type Shape struct {
	logger golog.Logger

	config Config

	maxLOD      int
	selectedLOD int

	levels      []*pointset.Set
	localPoints *pointset.Set
	worldPoints []r3.Vector

	onRescanNeeded func()
}

// NewShape returns an empty Shape with the given configuration.
func NewShape(config Config, logger golog.Logger) (*Shape, error) {
	if err := config.Validate(""); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = golog.Global()
	}
	return &Shape{logger: logger, config: config}, nil
}

// Config returns the current configuration, including the requested scan
// LOD, as the scanner should consume it.
func (s *Shape) Config() Config {
	return s.config
}

// HasPoints reports whether a scan result is currently stored.
func (s *Shape) HasPoints() bool {
	return len(s.levels) > 0
}

// MaxLOD returns the finest stored level index, 0 when empty.
func (s *Shape) MaxLOD() int {
	return s.maxLOD
}

// SelectedLOD returns the currently selected level index.
func (s *Shape) SelectedLOD() int {
	return s.selectedLOD
}

// ScanLOD returns the effective scan LOD, the requested value clamped into
// [0, maxLOD]. While the shape is empty this is 0; the scanner reads the
// requested value from Config instead.
func (s *Shape) ScanLOD() int {
	return clampLOD(s.config.ScanLOD, s.maxLOD)
}

// PointCount returns the number of points in the selected level, the
// readout surfaced for diagnostics.
func (s *Shape) PointCount() int {
	if s.localPoints == nil {
		return 0
	}
	return s.localPoints.Size()
}

// Level returns the stored point set for the given level, nil when the
// level is out of range.
func (s *Shape) Level(lod int) *pointset.Set {
	if lod < 0 || lod >= len(s.levels) {
		return nil
	}
	return s.levels[lod]
}

// SetScanResult replaces the stored point data with the levels of the given
// scan result. The result is validated up front and the previous state is
// left untouched on error. Levels beyond MaxLOD are dropped. The selection
// is re-clamped into the new level range and the local view rebound.
func (s *Shape) SetScanResult(result ScanResult) error {
	if result.MaxLOD < 0 {
		return errors.Errorf("invalid max LOD %d in scan result", result.MaxLOD)
	}
	if len(result.Levels) < result.MaxLOD+1 {
		return errors.Errorf(
			"scan result with max LOD %d needs %d levels, got %d",
			result.MaxLOD, result.MaxLOD+1, len(result.Levels))
	}
	for lod := 0; lod <= result.MaxLOD; lod++ {
		if result.Levels[lod] == nil {
			return errors.Errorf("scan result level %d is nil", lod)
		}
	}

	levels := make([]*pointset.Set, result.MaxLOD+1)
	copy(levels, result.Levels[:result.MaxLOD+1])

	s.levels = levels
	s.maxLOD = result.MaxLOD
	s.worldPoints = s.worldPoints[:0]
	s.selectedLOD = clampLOD(s.selectedLOD, s.maxLOD)
	s.rebind()

	s.logger.Debugw("scan result stored",
		"max_lod", s.maxLOD,
		"selected_lod", s.selectedLOD,
		"finest_points", s.levels[s.maxLOD].Size())
	return nil
}

// SelectByDistance selects the level for a normalized observer distance and
// returns it. Distance 0 means observer adjacent and selects the finest
// level, distance 1 the coarsest. Out-of-range distances and rounding
// overshoot are recovered by clamping, never reported as failures.
func (s *Shape) SelectByDistance(normalizedDistance float64) int {
	raw := int(math.Round((1 - normalizedDistance) * float64(s.maxLOD)))
	return s.applySelection(clampLOD(raw, s.maxLOD))
}

// SelectByLOD selects an explicitly requested level, for callers such as
// debug level controls. The request is clamped into [0, maxLOD] and
// additionally capped at the effective scan LOD, levels finer than what was
// scanned do not exist.
func (s *Shape) SelectByLOD(requested int) int {
	lod := clampLOD(requested, s.maxLOD)
	if scan := s.ScanLOD(); lod > scan {
		lod = scan
	}
	return s.applySelection(lod)
}

// applySelection commits a clamped level choice. Flatten is a hard override
// to the coarsest level.
func (s *Shape) applySelection(lod int) int {
	if s.config.Flatten {
		lod = 0
	}
	s.selectedLOD = lod
	s.rebind()
	return lod
}

// rebind points the local view at the selected level.
func (s *Shape) rebind() {
	if len(s.levels) == 0 {
		s.localPoints = nil
		return
	}
	s.localPoints = s.levels[s.selectedLOD]
}

// LocalPoints returns the points of the selected level in the shape's local
// frame, nil when empty. The returned slice is owned by the stored level
// and must not be mutated.
func (s *Shape) LocalPoints() []r3.Vector {
	if s.localPoints == nil {
		return nil
	}
	return s.localPoints.Points()
}

// ProjectToWorld transforms the selected level into world space and returns
// the result. The returned slice is a buffer reused across calls and is
// only valid until the next projection. An empty shape yields nil.
func (s *Shape) ProjectToWorld(tf *spatialmath.Transform) []r3.Vector {
	if s.localPoints == nil {
		return nil
	}
	s.worldPoints = tf.TransformPoints(s.worldPoints[:0], s.localPoints.Points())
	return s.worldPoints
}

// WorldPointsAtDistance is the primary detection query: select the level for
// the given normalized distance, then project it into world space.
func (s *Shape) WorldPointsAtDistance(tf *spatialmath.Transform, normalizedDistance float64) []r3.Vector {
	s.SelectByDistance(normalizedDistance)
	return s.ProjectToWorld(tf)
}

// Reset discards all stored point data and returns the shape to the empty
// state with all level counters zeroed. Configuration is caller-owned input
// rather than scan output and is kept.
func (s *Shape) Reset() {
	s.levels = nil
	s.localPoints = nil
	s.worldPoints = nil
	s.maxLOD = 0
	s.selectedLOD = 0
	s.logger.Debug("shape reset to empty")
}

// OnRescanNeeded registers the callback fired when a configuration change
// invalidates the stored scan result. At most one callback is registered at
// a time and passing nil clears it; having none registered is fine, the
// setters report the same condition through their return values.
func (s *Shape) OnRescanNeeded(fn func()) {
	s.onRescanNeeded = fn
}

// SetMerge sets the merge flag and reports whether a rescan is now required.
func (s *Shape) SetMerge(merge bool) bool {
	if s.config.Merge == merge {
		return false
	}
	s.config.Merge = merge
	s.signalRescan()
	return true
}

// SetFlatten sets the flatten flag and reports whether a rescan is now
// required. The current selection is re-applied immediately so that
// flattening takes effect without waiting for the next query.
func (s *Shape) SetFlatten(flatten bool) bool {
	if s.config.Flatten == flatten {
		return false
	}
	s.config.Flatten = flatten
	s.applySelection(s.selectedLOD)
	s.signalRescan()
	return true
}

// SetProjection sets the projection amount and reports whether a rescan is
// now required. Values outside [0, 1] are rejected without changing state.
func (s *Shape) SetProjection(projection float64) (bool, error) {
	if projection < 0 || projection > 1 {
		return false, errors.Errorf("projection must be within [0, 1], got %v", projection)
	}
	if s.config.Projection == projection {
		return false, nil
	}
	s.config.Projection = projection
	s.signalRescan()
	return true, nil
}

// SetScanLOD sets the requested scan LOD and reports whether a rescan is now
// required. Negative values are rejected without changing state. The current
// selection is re-clamped so it never exceeds the new effective scan LOD.
func (s *Shape) SetScanLOD(scanLOD int) (bool, error) {
	if scanLOD < 0 {
		return false, errors.Errorf("scan LOD must be nonnegative, got %d", scanLOD)
	}
	if s.config.ScanLOD == scanLOD {
		return false, nil
	}
	s.config.ScanLOD = scanLOD
	if s.selectedLOD > s.ScanLOD() {
		s.applySelection(s.ScanLOD())
	}
	s.signalRescan()
	return true, nil
}

func (s *Shape) signalRescan() {
	if s.onRescanNeeded != nil {
		s.onRescanNeeded()
	}
}

// clampLOD clamps a requested level into [0, maxLOD].
func clampLOD(requested, maxLOD int) int {
	if requested < 0 {
		return 0
	}
	if requested > maxLOD {
		return maxLOD
	}
	return requested
}
