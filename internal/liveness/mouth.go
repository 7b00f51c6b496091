package liveness

import "github.com/ayusman/livecheck/internal/geometry"

// MouthDetector recognises a mouth held open for several frames and then closed.
type MouthDetector struct {
	threshold float64
	hold      int
	open      int
}

// NewMouthDetector creates a MouthDetector from cfg.
func NewMouthDetector(cfg Config) *MouthDetector {
	return &MouthDetector{
		threshold: cfg.MouthMARThreshold,
		hold:      cfg.MouthHoldFrames,
	}
}

// Observe feeds one frame and reports whether an open-mouth hold just ended.
func (d *MouthDetector) Observe(lm *geometry.Landmarks) bool {
	if lm.MAR() > d.threshold {
		d.open++
		return false
	}

	held := d.open >= d.hold
	d.open = 0
	return held
}

// OpenFrames returns the current run of open frames.
func (d *MouthDetector) OpenFrames() int {
	return d.open
}

// Reset clears the counter.
func (d *MouthDetector) Reset() {
	d.open = 0
}
