package liveness

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Session runs one subject through the blink, mouth and shake challenges.
//
// A Session is not safe for concurrent use: Tick, Start, Restart, Ready and
// Fail must all be called from the goroutine that drives it.
type Session struct {
	id       string
	state    State
	listener Listener

	blink   *BlinkDetector
	mouth   *MouthDetector
	shake   *ShakeDetector
	tracker *CaptureTracker

	startedAt time.Time
	now       func() time.Time
}

// NewSession creates a session in StateLoading. l may be nil.
func NewSession(cfg Config, l Listener) *Session {
	return &Session{
		state:    StateLoading,
		listener: l,
		blink:    NewBlinkDetector(cfg),
		mouth:    NewMouthDetector(cfg),
		shake:    NewShakeDetector(cfg),
		tracker:  NewCaptureTracker(cfg),
		now:      time.Now,
	}
}

// ID returns the current attempt's identifier. A new one is assigned on
// every Start and Restart; it is empty before the first Start.
func (s *Session) ID() string {
	return s.id
}

// State returns the current state.
func (s *Session) State() State {
	return s.state
}

// Ready marks the bootstrap as finished. It only moves LOADING to READY.
func (s *Session) Ready() {
	if s.state != StateLoading {
		return
	}
	s.enter(StateReady)
}

// Start begins a fresh attempt in StateBlink with clean trackers and no capture.
func (s *Session) Start() {
	s.id = uuid.NewString()
	s.startedAt = s.now()
	s.blink.Reset()
	s.mouth.Reset()
	s.shake.Reset()
	s.tracker.Reset()
	s.enter(StateBlink)
}

// Restart abandons the current attempt and starts again. It is valid from any state.
func (s *Session) Restart() {
	s.Start()
}

// Tick evaluates one frame. A nil sample means no face was found and
// changes nothing. snap is called at most once, and only when the frame
// improves the best capture.
func (s *Session) Tick(sample *Sample, snap SnapshotFunc) {
	if sample == nil || !s.state.Active() {
		return
	}

	if _, err := s.tracker.Update(sample, snap); err != nil {
		s.Fail(&SnapshotError{Err: err})
	}

	switch s.state {
	case StateBlink:
		if s.blink.Observe(&sample.Landmarks) {
			s.satisfy(ChallengeBlink, StateMouth)
		}
	case StateMouth:
		if s.mouth.Observe(&sample.Landmarks) {
			s.satisfy(ChallengeMouth, StateShake)
		}
	case StateShake:
		if s.shake.Observe(&sample.Landmarks, sample.TimestampMs) {
			s.satisfy(ChallengeShake, StateCompleted)
		}
	}
}

// Fail reports a collaborator failure. The state does not change.
func (s *Session) Fail(err error) {
	if err == nil {
		return
	}
	s.emit(Event{
		Type:    EventError,
		Message: err.Error(),
		Err:     err,
	})
}

// Capture returns the best capture held so far.
func (s *Session) Capture() Capture {
	return s.tracker.Best()
}

// Status is a point-in-time view of a session, safe to hand to other goroutines.
type Status struct {
	SessionID         string    `json:"session_id"`
	State             State     `json:"state"`
	Challenge         Challenge `json:"challenge,omitempty"`
	BlinkClosedFrames int       `json:"blink_closed_frames"`
	MouthOpenFrames   int       `json:"mouth_open_frames"`
	LeftSeenAtMs      int64     `json:"left_seen_at_ms"`
	RightSeenAtMs     int64     `json:"right_seen_at_ms"`
	BestScore         float64   `json:"best_score"`
	HasCapture        bool      `json:"has_capture"`
	StartedAt         time.Time `json:"started_at"`
}

// Status returns a snapshot of the session.
func (s *Session) Status() Status {
	left, right := s.shake.Seen()
	best := s.tracker.Best()
	return Status{
		SessionID:         s.id,
		State:             s.state,
		Challenge:         s.state.Challenge(),
		BlinkClosedFrames: s.blink.ClosedFrames(),
		MouthOpenFrames:   s.mouth.OpenFrames(),
		LeftSeenAtMs:      left,
		RightSeenAtMs:     right,
		BestScore:         best.Score,
		HasCapture:        !best.Empty(),
		StartedAt:         s.startedAt,
	}
}

func (s *Session) satisfy(c Challenge, next State) {
	s.emit(Event{Type: EventChallengeSatisfied, Challenge: c})
	s.enter(next)
}

// enter switches state, zeroing the tracker of the state being entered.
func (s *Session) enter(next State) {
	switch next {
	case StateBlink:
		s.blink.Reset()
	case StateMouth:
		s.mouth.Reset()
	case StateShake:
		s.shake.Reset()
	}

	s.state = next
	s.emit(Event{Type: EventStateChanged, Challenge: next.Challenge()})

	if next == StateCompleted {
		s.complete()
	}
}

func (s *Session) complete() {
	best := s.tracker.Best()
	e := Event{Type: EventCompleted, Outcome: OutcomeNoCapture}
	if !best.Empty() {
		e.Outcome = OutcomeCaptured
		e.Score = best.Score
		e.Capture = &best
	}
	s.emit(e)
}

func (s *Session) emit(e Event) {
	if s.listener == nil {
		return
	}
	e.SessionID = s.id
	e.State = s.state
	e.At = s.now()
	s.listener.HandleEvent(e)
}

// SnapshotError wraps a failure to encode the best-capture frame.
type SnapshotError struct {
	Err error
}

func (e *SnapshotError) Error() string {
	return "snapshot: " + e.Err.Error()
}

func (e *SnapshotError) Unwrap() error {
	return e.Err
}

// IsSnapshotError reports whether err came from the capture snapshot.
func IsSnapshotError(err error) bool {
	var se *SnapshotError
	return errors.As(err, &se)
}
