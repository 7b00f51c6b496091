package liveness

import "github.com/ayusman/livecheck/internal/geometry"

// ShakeDetector recognises a left turn and a right turn, in either order,
// within a time window.
//
// The last left and right timestamps are kept for the whole challenge, so an
// old turn can pair with a fresh one in the other direction as long as the
// two are within the window.
type ShakeDetector struct {
	low, high   float64
	windowMs    int64
	leftSeenAt  int64
	rightSeenAt int64
}

// NewShakeDetector creates a ShakeDetector from cfg.
func NewShakeDetector(cfg Config) *ShakeDetector {
	return &ShakeDetector{
		low:      cfg.HeadTurnLowRatio,
		high:     cfg.HeadTurnHighRatio,
		windowMs: cfg.HeadTurnWindowMs,
	}
}

// Observe feeds one frame taken at nowMs and reports whether both turns
// have been seen within the window.
func (d *ShakeDetector) Observe(lm *geometry.Landmarks, nowMs int64) bool {
	ratio, _ := lm.NoseRelX()

	if ratio < d.low {
		d.leftSeenAt = nowMs
	}
	if ratio > d.high {
		d.rightSeenAt = nowMs
	}

	return d.Paired()
}

// Paired reports whether the recorded turns satisfy the window.
func (d *ShakeDetector) Paired() bool {
	if d.leftSeenAt == 0 || d.rightSeenAt == 0 {
		return false
	}
	gap := d.leftSeenAt - d.rightSeenAt
	if gap < 0 {
		gap = -gap
	}
	return gap < d.windowMs
}

// Seen returns the last left and right turn timestamps (0 when unseen).
func (d *ShakeDetector) Seen() (leftMs, rightMs int64) {
	return d.leftSeenAt, d.rightSeenAt
}

// Reset forgets both turns.
func (d *ShakeDetector) Reset() {
	d.leftSeenAt = 0
	d.rightSeenAt = 0
}
