package upload

import (
	"sync"

	"github.com/beamup-io/beamup/upload/network"
)

// ProgressFunc receives the attempt's cumulative progress fraction, 0..100.
type ProgressFunc = network.ProgressFunc

// progressTracker folds per-segment transfer fractions into one cumulative
// fraction for the whole attempt: bytes of completed segments plus the bytes
// of the in-flight segment, over the total. The reported value never
// decreases within one attempt.
type progressTracker struct {
	totalBytes     int64
	completedBytes int64
	reported       float64
	onProgress     ProgressFunc
	mu             sync.Mutex
}

func newProgressTracker(totalBytes int64, onProgress ProgressFunc) *progressTracker {
	return &progressTracker{
		totalBytes: totalBytes,
		onProgress: onProgress,
	}
}

// segmentProgress records that fraction percent of an in-flight segment of
// segmentBytes has been sent.
func (p *progressTracker) segmentProgress(segmentBytes int64, fraction float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	inFlight := float64(segmentBytes) * fraction / 100
	p.report((float64(p.completedBytes) + inFlight) * 100 / float64(p.totalBytes))
}

// segmentDone folds a fully transferred segment into the running total.
func (p *progressTracker) segmentDone(segmentBytes int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completedBytes += segmentBytes
	p.report(float64(p.completedBytes) / float64(p.totalBytes) * 100)
}

// wholeFileProgress mirrors a single-shot transfer's own fraction.
func (p *progressTracker) wholeFileProgress(fraction float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.report(fraction)
}

// current returns the last reported fraction.
func (p *progressTracker) current() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reported
}

// report clamps to 0..100, enforces monotonicity and invokes the callback.
// Callers hold p.mu.
func (p *progressTracker) report(fraction float64) {
	if fraction > 100 {
		fraction = 100
	}
	if fraction < p.reported {
		return
	}
	p.reported = fraction
	if p.onProgress != nil {
		p.onProgress(fraction)
	}
}
