package liveness

// Capture is the best frontal still seen during a session.
type Capture struct {
	Image        []byte  `json:"-"`
	Score        float64 `json:"score"`
	CapturedAtMs int64   `json:"captured_at_ms"`
}

// Empty reports whether no image has been captured.
func (c *Capture) Empty() bool {
	return c == nil || len(c.Image) == 0
}

// SnapshotFunc encodes the frame currently being processed.
type SnapshotFunc func() ([]byte, error)

// CaptureTracker keeps the highest-scoring frontal frame.
type CaptureTracker struct {
	min, max float64
	best     Capture
}

// NewCaptureTracker creates a CaptureTracker using the frontal band of cfg.
func NewCaptureTracker(cfg Config) *CaptureTracker {
	return &CaptureTracker{
		min: cfg.FrontalMin,
		max: cfg.FrontalMax,
	}
}

// Frontal reports whether the sample's pose is inside the frontal band.
func (t *CaptureTracker) Frontal(s *Sample) bool {
	ratio, ok := s.Landmarks.NoseRelX()
	return ok && ratio >= t.min && ratio <= t.max
}

// Update replaces the held capture when s is frontal and scores strictly
// higher than it. snap is only called in that case. It reports whether the
// capture was replaced; on a snapshot error the capture is left untouched.
func (t *CaptureTracker) Update(s *Sample, snap SnapshotFunc) (bool, error) {
	if !t.Frontal(s) || s.Score <= t.best.Score {
		return false, nil
	}
	if snap == nil {
		return false, nil
	}

	img, err := snap()
	if err != nil {
		return false, err
	}
	if len(img) == 0 {
		return false, nil
	}

	t.best = Capture{
		Image:        img,
		Score:        s.Score,
		CapturedAtMs: s.TimestampMs,
	}
	return true, nil
}

// Best returns the held capture.
func (t *CaptureTracker) Best() Capture {
	return t.best
}

// Reset drops the held capture.
func (t *CaptureTracker) Reset() {
	t.best = Capture{}
}
