package geometry

import (
	"errors"
	"fmt"
)

// Group sizes and offsets of the 68-point facial landmark layout
// (iBUG 300-W ordering, as produced by dlib and face-api.js).
const (
	NumLandmarks = 68

	JawPoints       = 17
	NoseRidgePoints = 4
	EyePoints       = 6
	MouthPoints     = 20

	jawStart       = 0
	noseRidgeStart = 27
	leftEyeStart   = 36
	rightEyeStart  = 42
	mouthStart     = 48
)

// Indices within a group that the metrics depend on.
const (
	JawLeft     = 0
	JawRight    = 16
	NoseTip     = 3
	MouthLeft   = 0
	MouthTop    = 3
	MouthRight  = 6
	MouthBottom = 9
)

// Group names accepted by FromGroups.
const (
	GroupJaw       = "jaw"
	GroupNoseRidge = "nose_ridge"
	GroupLeftEye   = "left_eye"
	GroupRightEye  = "right_eye"
	GroupMouth     = "mouth"
)

var (
	// ErrLandmarkCount is returned when a flat landmark list is not 68 points long.
	ErrLandmarkCount = errors.New("landmark count mismatch")
	// ErrGroupArity is returned when a named group is missing or has the wrong size.
	ErrGroupArity = errors.New("landmark group arity mismatch")
)

// Landmarks holds the facial point groups the liveness metrics read.
// Fixed-size arrays make every positional index used by the metrics valid
// once a Landmarks value exists.
type Landmarks struct {
	Jaw       [JawPoints]Point       `json:"jaw"`
	NoseRidge [NoseRidgePoints]Point `json:"nose_ridge"`
	LeftEye   [EyePoints]Point       `json:"left_eye"`
	RightEye  [EyePoints]Point       `json:"right_eye"`
	Mouth     [MouthPoints]Point     `json:"mouth"`
}

// FromPoints builds Landmarks from a flat 68-point list.
func FromPoints(pts []Point) (Landmarks, error) {
	var lm Landmarks
	if len(pts) != NumLandmarks {
		return lm, fmt.Errorf("%w: got %d, want %d", ErrLandmarkCount, len(pts), NumLandmarks)
	}

	copy(lm.Jaw[:], pts[jawStart:jawStart+JawPoints])
	copy(lm.NoseRidge[:], pts[noseRidgeStart:noseRidgeStart+NoseRidgePoints])
	copy(lm.LeftEye[:], pts[leftEyeStart:leftEyeStart+EyePoints])
	copy(lm.RightEye[:], pts[rightEyeStart:rightEyeStart+EyePoints])
	copy(lm.Mouth[:], pts[mouthStart:mouthStart+MouthPoints])

	return lm, nil
}

// FromGroups builds Landmarks from named point groups. Every group must be
// present with exactly its expected number of points.
func FromGroups(groups map[string][]Point) (Landmarks, error) {
	var lm Landmarks

	fill := func(name string, dst []Point) error {
		src, ok := groups[name]
		if !ok {
			return fmt.Errorf("%w: %s missing", ErrGroupArity, name)
		}
		if len(src) != len(dst) {
			return fmt.Errorf("%w: %s has %d points, want %d", ErrGroupArity, name, len(src), len(dst))
		}
		copy(dst, src)
		return nil
	}

	if err := fill(GroupJaw, lm.Jaw[:]); err != nil {
		return lm, err
	}
	if err := fill(GroupNoseRidge, lm.NoseRidge[:]); err != nil {
		return lm, err
	}
	if err := fill(GroupLeftEye, lm.LeftEye[:]); err != nil {
		return lm, err
	}
	if err := fill(GroupRightEye, lm.RightEye[:]); err != nil {
		return lm, err
	}
	if err := fill(GroupMouth, lm.Mouth[:]); err != nil {
		return lm, err
	}

	return lm, nil
}

// AverageEAR returns the mean eye aspect ratio of both eyes.
func (l *Landmarks) AverageEAR() float64 {
	return (EAR(l.LeftEye) + EAR(l.RightEye)) / 2
}

// MAR returns the mouth aspect ratio.
func (l *Landmarks) MAR() float64 {
	return MAR(l.Mouth)
}

// NoseRelX returns the head-yaw proxy for this face. See NoseRelX.
func (l *Landmarks) NoseRelX() (float64, bool) {
	return NoseRelX(l.Jaw[JawLeft], l.Jaw[JawRight], l.NoseRidge[NoseTip])
}

// Points flattens l back into the 68-point layout. Indices outside the
// tracked groups (eyebrows, lower nose) are left zero.
func (l *Landmarks) Points() []Point {
	pts := make([]Point, NumLandmarks)
	copy(pts[jawStart:], l.Jaw[:])
	copy(pts[noseRidgeStart:], l.NoseRidge[:])
	copy(pts[leftEyeStart:], l.LeftEye[:])
	copy(pts[rightEyeStart:], l.RightEye[:])
	copy(pts[mouthStart:], l.Mouth[:])
	return pts
}
