// Package liveness implements the blink / open-mouth / head-turn challenge
// protocol and the best-frame capture policy.
package liveness

// Config holds the detection thresholds. The zero value is not usable;
// start from DefaultConfig.
type Config struct {
	// BlinkEARThreshold is the average eye aspect ratio below which the eyes
	// count as closed. Lower is stricter.
	BlinkEARThreshold float64 `json:"blink_ear_threshold" validate:"gt=0,lt=1"`
	// BlinkMinClosedFrames is the number of closed frames that must precede
	// an open frame for a blink to count.
	BlinkMinClosedFrames int `json:"blink_min_closed_frames" validate:"min=1"`

	// MouthMARThreshold is the mouth aspect ratio above which the mouth
	// counts as open. Higher is stricter.
	MouthMARThreshold float64 `json:"mouth_mar_threshold" validate:"gt=0,lt=2"`
	// MouthHoldFrames is the number of consecutive open frames required.
	MouthHoldFrames int `json:"mouth_hold_frames" validate:"min=1"`

	// HeadTurnLowRatio and HeadTurnHighRatio bound the nose position that
	// counts as a left or right turn.
	HeadTurnLowRatio  float64 `json:"head_turn_low_ratio" validate:"gt=0,lt=1"`
	HeadTurnHighRatio float64 `json:"head_turn_high_ratio" validate:"gt=0,lt=1,gtfield=HeadTurnLowRatio"`
	// HeadTurnWindowMs is the maximum gap between the left and right turn.
	HeadTurnWindowMs int64 `json:"head_turn_window_ms" validate:"gt=0"`

	// FrontalMin and FrontalMax bound the nose position of a frontal pose,
	// the only pose eligible for the best capture.
	FrontalMin float64 `json:"frontal_min" validate:"gt=0,lt=1"`
	FrontalMax float64 `json:"frontal_max" validate:"gt=0,lt=1,gtfield=FrontalMin"`
}

// DefaultConfig returns the reference thresholds.
func DefaultConfig() Config {
	return Config{
		BlinkEARThreshold:    0.30,
		BlinkMinClosedFrames: 1,
		MouthMARThreshold:    0.30,
		MouthHoldFrames:      3,
		HeadTurnLowRatio:     0.4,
		HeadTurnHighRatio:    0.6,
		HeadTurnWindowMs:     2000,
		FrontalMin:           0.45,
		FrontalMax:           0.55,
	}
}
