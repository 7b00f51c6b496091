package geometry

import "math"

// SyntheticFace returns landmarks of a 200px-wide face whose average eye
// aspect ratio, mouth aspect ratio and nose position are exactly ear, mar
// and noseRelX. It is used by tests and the mock detector.
func SyntheticFace(ear, mar, noseRelX float64) Landmarks {
	var lm Landmarks

	const (
		jawLeft  = 100.0
		jawRight = 300.0
		jawTop   = 140.0
	)

	// Jaw: a half ellipse from the left temple, under the chin, to the right temple.
	for i := 0; i < JawPoints; i++ {
		theta := math.Pi * float64(i) / float64(JawPoints-1)
		lm.Jaw[i] = Point{
			X: 200 - 100*math.Cos(theta),
			Y: jawTop + 160*math.Sin(theta),
		}
	}
	lm.Jaw[JawLeft].X = jawLeft
	lm.Jaw[JawRight].X = jawRight

	noseX := jawLeft + (jawRight-jawLeft)*noseRelX
	for i := 0; i < NoseRidgePoints; i++ {
		lm.NoseRidge[i] = Point{X: noseX, Y: 150 + 20*float64(i)}
	}

	lm.LeftEye = syntheticEye(160, 150, ear)
	lm.RightEye = syntheticEye(240, 150, ear)
	lm.Mouth = syntheticMouth(200, 250, mar)

	return lm
}

// OpenFace is a frontal face with open eyes and a closed mouth.
func OpenFace() Landmarks {
	return SyntheticFace(0.35, 0.1, 0.5)
}

// syntheticEye builds a 40px-wide eye whose aspect ratio is ear.
func syntheticEye(cx, cy, ear float64) [EyePoints]Point {
	h := 20 * ear
	return [EyePoints]Point{
		{X: cx - 20, Y: cy},
		{X: cx - 7, Y: cy - h},
		{X: cx + 7, Y: cy - h},
		{X: cx + 20, Y: cy},
		{X: cx + 7, Y: cy + h},
		{X: cx - 7, Y: cy + h},
	}
}

// syntheticMouth builds an 80px-wide mouth whose aspect ratio is mar.
// Outer ring points 0..11 run clockwise from the left corner; inner ring
// points 12..19 follow the same order.
func syntheticMouth(cx, cy, mar float64) [MouthPoints]Point {
	var m [MouthPoints]Point
	v := 40 * mar

	for i := 0; i < 12; i++ {
		theta := math.Pi + 2*math.Pi*float64(i)/12
		m[i] = Point{X: cx + 40*math.Cos(theta), Y: cy + v*math.Sin(theta)}
	}
	m[MouthLeft] = Point{X: cx - 40, Y: cy}
	m[MouthTop] = Point{X: cx, Y: cy - v}
	m[MouthRight] = Point{X: cx + 40, Y: cy}
	m[MouthBottom] = Point{X: cx, Y: cy + v}

	for i := 0; i < 8; i++ {
		theta := math.Pi + 2*math.Pi*float64(i)/8
		m[12+i] = Point{X: cx + 30*math.Cos(theta), Y: cy + 0.8*v*math.Sin(theta)}
	}

	return m
}
