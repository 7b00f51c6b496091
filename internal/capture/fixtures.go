package capture

import "gocv.io/x/gocv"

// SolidFrames returns n BGR frames of the given size filled with shade,
// for driving a MockCamera. Release them with CloseFrames.
func SolidFrames(n, width, height int, shade uint8) []*gocv.Mat {
	frames := make([]*gocv.Mat, 0, n)
	for i := 0; i < n; i++ {
		m := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
		m.SetTo(gocv.NewScalar(float64(shade), float64(shade), float64(shade), 0))
		frames = append(frames, &m)
	}
	return frames
}

// SubjectFrames returns a black frame followed by a white one, enough
// change for a PresenceGate to fire.
func SubjectFrames(width, height int) []*gocv.Mat {
	return append(SolidFrames(1, width, height, 0), SolidFrames(1, width, height, 255)...)
}

// CloseFrames releases frames created by SolidFrames or SubjectFrames.
func CloseFrames(frames []*gocv.Mat) {
	for _, f := range frames {
		f.Close()
	}
}
