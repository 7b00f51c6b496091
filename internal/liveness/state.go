package liveness

import "github.com/ayusman/livecheck/internal/geometry"

// State is the position of a session in the challenge sequence.
type State string

const (
	// StateLoading means the landmark model is still being prepared.
	StateLoading State = "loading"
	// StateReady means the host is ready but the session has not started.
	StateReady State = "ready"
	// StateBlink waits for a blink.
	StateBlink State = "blink"
	// StateMouth waits for the mouth to be held open.
	StateMouth State = "mouth"
	// StateShake waits for a left and a right head turn.
	StateShake State = "shake"
	// StateCompleted is terminal until the next Start or Restart.
	StateCompleted State = "completed"
)

// Active reports whether frames are evaluated in this state.
func (s State) Active() bool {
	return s == StateBlink || s == StateMouth || s == StateShake
}

// Challenge names one liveness gesture.
type Challenge string

const (
	ChallengeBlink Challenge = "blink"
	ChallengeMouth Challenge = "mouth"
	ChallengeShake Challenge = "shake"
)

// Challenge returns the gesture awaited in s, or "" outside the challenges.
func (s State) Challenge() Challenge {
	switch s {
	case StateBlink:
		return ChallengeBlink
	case StateMouth:
		return ChallengeMouth
	case StateShake:
		return ChallengeShake
	default:
		return ""
	}
}

// Sample is one frame's face observation.
type Sample struct {
	Score       float64
	Landmarks   geometry.Landmarks
	TimestampMs int64
}
