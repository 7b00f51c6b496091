package liveness

import "github.com/ayusman/livecheck/internal/geometry"

// BlinkDetector recognises an open → closed → open eye cycle.
type BlinkDetector struct {
	threshold float64
	minClosed int
	closed    int
}

// NewBlinkDetector creates a BlinkDetector from cfg.
func NewBlinkDetector(cfg Config) *BlinkDetector {
	return &BlinkDetector{
		threshold: cfg.BlinkEARThreshold,
		minClosed: cfg.BlinkMinClosedFrames,
	}
}

// Observe feeds one frame and reports whether a blink just finished.
// The closed-frame counter restarts on every open frame.
func (d *BlinkDetector) Observe(lm *geometry.Landmarks) bool {
	if lm.AverageEAR() < d.threshold {
		d.closed++
		return false
	}

	blinked := d.closed >= d.minClosed
	d.closed = 0
	return blinked
}

// ClosedFrames returns the current run of closed frames.
func (d *BlinkDetector) ClosedFrames() int {
	return d.closed
}

// Reset clears the counter.
func (d *BlinkDetector) Reset() {
	d.closed = 0
}
