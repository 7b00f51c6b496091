package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Presence gate tuning.
const (
	// PresenceBlurSize is the Gaussian kernel used to suppress sensor noise.
	PresenceBlurSize = 21
	// PresencePixelDelta is the grey-level change that marks a pixel as changed.
	PresencePixelDelta = 25
	// DefaultPresenceThreshold is the percentage of changed pixels that
	// counts as someone stepping into view.
	DefaultPresenceThreshold = 2.0
)

// PresenceGate reports when the scene in front of the camera changes
// enough to suggest a subject has arrived. It compares each frame with the
// previous one by blurred grey-level differencing.
type PresenceGate struct {
	threshold float64
	prev      gocv.Mat
	primed    bool
	mu        sync.Mutex
}

// NewPresenceGate creates a gate firing when more than threshold percent
// of pixels change between consecutive frames.
func NewPresenceGate(threshold float64) *PresenceGate {
	if threshold <= 0 {
		threshold = DefaultPresenceThreshold
	}
	return &PresenceGate{
		threshold: threshold,
		prev:      gocv.NewMat(),
	}
}

// Observe feeds one frame and returns whether it differs from the previous
// frame by more than the threshold, along with the changed percentage.
// The first frame after construction or Reset only primes the gate.
func (g *PresenceGate) Observe(frame *gocv.Mat) (bool, float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: PresenceBlurSize, Y: PresenceBlurSize}, 0, 0, gocv.BorderDefault)

	if !g.primed || blurred.Rows() != g.prev.Rows() || blurred.Cols() != g.prev.Cols() {
		blurred.CopyTo(&g.prev)
		g.primed = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, g.prev, &diff)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(diff, &mask, PresencePixelDelta, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(mask)) / float64(mask.Rows()*mask.Cols()) * 100.0
	blurred.CopyTo(&g.prev)

	return changed > g.threshold, changed
}

// Threshold returns the configured change percentage.
func (g *PresenceGate) Threshold() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.threshold
}

// Reset drops the reference frame; the next Observe primes again.
func (g *PresenceGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.primed = false
}

// Close releases the reference frame.
func (g *PresenceGate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prev.Close()
	g.prev = gocv.NewMat()
	g.primed = false
}
