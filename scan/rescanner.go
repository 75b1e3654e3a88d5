package scan

import (
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/edaniels/golog"

	"github.com/mpicque/grid-sensor/detection"
	"github.com/mpicque/grid-sensor/spatialmath"
)

// Rescanner keeps one shape's scan result current. It registers itself as
// the shape's rescan subscriber, coalesces bursts of configuration changes
// through a debounce window and reruns the scanner once per burst.
//
// The shape itself stays single-threaded: the internal mutex only
// serializes rescans against each other. An owner that touches the shape
// from another goroutine while a debounced rescan is pending coordinates
// that access itself.
type Rescanner struct {
	mu      sync.Mutex
	shape   *detection.Shape
	scanner *Scanner
	volumes []spatialmath.Volume
	bounce  func(func())
	rescans int
	logger  golog.Logger
}

// NewRescanner wires a rescanner to the shape's rescan signal. wait is the
// debounce window for coalescing bursts of configuration changes; the
// initial population is the caller's Rescan call.
func NewRescanner(
	shape *detection.Shape,
	scanner *Scanner,
	volumes []spatialmath.Volume,
	wait time.Duration,
	logger golog.Logger,
) *Rescanner {
	if logger == nil {
		logger = golog.Global()
	}
	r := &Rescanner{
		shape:   shape,
		scanner: scanner,
		volumes: volumes,
		bounce:  debounce.New(wait),
		logger:  logger,
	}
	shape.OnRescanNeeded(r.RequestRescan)
	return r
}

// RequestRescan schedules a rescan after the debounce window. Further
// requests within the window coalesce into the one pending rescan.
func (r *Rescanner) RequestRescan() {
	r.bounce(func() {
		if err := r.Rescan(); err != nil {
			r.logger.Errorw("rescan failed", "error", err)
		}
	})
}

// Rescan synchronously scans the volumes with the shape's current
// configuration and stores the result on the shape.
func (r *Rescanner) Rescan() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	result, err := r.scanner.Scan(r.volumes, r.shape.Config())
	if err != nil {
		return err
	}
	if err := r.shape.SetScanResult(result); err != nil {
		return err
	}
	r.rescans++
	return nil
}

// Rescans returns the number of completed rescans, a readout for
// diagnostics and for observing debounce coalescing.
func (r *Rescanner) Rescans() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rescans
}

// SetVolumes replaces the scanned volume set and schedules a rescan.
func (r *Rescanner) SetVolumes(volumes []spatialmath.Volume) {
	r.mu.Lock()
	r.volumes = volumes
	r.mu.Unlock()
	r.RequestRescan()
}

// Close detaches the rescanner from the shape's rescan signal.
func (r *Rescanner) Close() {
	r.shape.OnRescanNeeded(nil)
}
