// Package geometry computes the shape ratios used by the liveness challenges.
// All functions are pure and never return NaN.
package geometry

import "math"

// Epsilon is the smallest horizontal span treated as non-degenerate.
const Epsilon = 1e-6

// Point is a 2D landmark position in frame coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// EAR returns the eye aspect ratio of a 6-point eye contour ordered
// outer corner, top lid (2), inner corner, bottom lid (2).
// Lower values mean a more closed eye. A contour whose corners coincide
// returns +Inf so it always reads as open.
func EAR(eye [6]Point) float64 {
	horizontal := Distance(eye[0], eye[3])
	if horizontal < Epsilon {
		return math.Inf(1)
	}
	return (Distance(eye[1], eye[5]) + Distance(eye[2], eye[4])) / (2 * horizontal)
}

// MAR returns the mouth aspect ratio of the 20-point mouth contour:
// lip height (3 to 9) over mouth width (0 to 6). A zero-width mouth
// returns 0 so it reads as closed.
func MAR(mouth [20]Point) float64 {
	width := Distance(mouth[MouthLeft], mouth[MouthRight])
	if width < Epsilon {
		return 0
	}
	return Distance(mouth[MouthTop], mouth[MouthBottom]) / width
}

// NoseRelX returns the nose tip's horizontal position relative to the jaw
// extremes: about 0.5 when frontal, lower when the head turns left and
// higher when it turns right. The value is not clamped.
//
// When the jaw has no horizontal extent the ratio is meaningless, so
// NoseRelX returns 0.5 and ok=false.
func NoseRelX(jawLeft, jawRight, noseTip Point) (ratio float64, ok bool) {
	span := jawRight.X - jawLeft.X
	if math.Abs(span) < Epsilon {
		return 0.5, false
	}
	return (noseTip.X - jawLeft.X) / span, true
}
