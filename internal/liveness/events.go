package liveness

import "time"

// EventType identifies what happened in a session.
type EventType string

const (
	EventStateChanged       EventType = "state_changed"
	EventChallengeSatisfied EventType = "challenge_satisfied"
	EventCompleted          EventType = "completed"
	EventError              EventType = "error"
)

// Outcome describes how a completed session ended.
type Outcome string

const (
	OutcomeCaptured  Outcome = "captured"
	OutcomeNoCapture Outcome = "no_capture"
)

// Event is emitted synchronously by a Session.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
	State     State     `json:"state"`
	Challenge Challenge `json:"challenge,omitempty"`
	Outcome   Outcome   `json:"outcome,omitempty"`
	Score     float64   `json:"score,omitempty"`
	Message   string    `json:"message,omitempty"`
	At        time.Time `json:"at"`

	// Capture is set on EventCompleted when Outcome is OutcomeCaptured.
	Capture *Capture `json:"-"`
	// Err is set on EventError.
	Err error `json:"-"`
}

// Listener receives session events. HandleEvent runs on the goroutine
// driving the session and must not call back into it.
type Listener interface {
	HandleEvent(Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(Event)

// HandleEvent calls f(e).
func (f ListenerFunc) HandleEvent(e Event) {
	f(e)
}

// Listeners fans an event out to several listeners in order.
type Listeners []Listener

// HandleEvent forwards e to every listener.
func (ls Listeners) HandleEvent(e Event) {
	for _, l := range ls {
		if l != nil {
			l.HandleEvent(e)
		}
	}
}
