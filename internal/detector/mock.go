package detector

import (
	"context"
	"image"
	"sync"

	"github.com/ayusman/livecheck/internal/geometry"
	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu       sync.Mutex
	face     *Face
	sequence []*Face
	err      error
	calls    int
	closed   bool
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetFace sets the face returned by every subsequent Detect call.
// A nil face means no face in frame.
func (m *MockDetector) SetFace(face *Face) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.face = face
	m.sequence = nil
}

// SetSequence queues faces to be returned one per Detect call. Once the
// queue drains, the last face keeps being returned.
func (m *MockDetector) SetSequence(faces ...*Face) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequence = append([]*Face(nil), faces...)
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Closed reports whether Close has been called.
func (m *MockDetector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Detect returns the pre-configured face or error.
func (m *MockDetector) Detect(ctx context.Context, frame *gocv.Mat) (*Face, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.err != nil {
		return nil, m.err
	}
	if len(m.sequence) > 0 {
		m.face = m.sequence[0]
		m.sequence = m.sequence[1:]
	}
	if m.face == nil {
		return nil, nil
	}
	f := *m.face
	return &f, nil
}

// Close marks the mock as closed.
func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// NewFace wraps landmarks into a Face with the given confidence.
func NewFace(score float64, lm geometry.Landmarks) *Face {
	return &Face{
		Score:     score,
		Box:       image.Rect(100, 100, 300, 300),
		Landmarks: lm,
	}
}

// OpenFace returns a frontal face with open eyes and a closed mouth.
func OpenFace(score float64) *Face {
	return NewFace(score, geometry.OpenFace())
}

// BlinkFace returns a frontal face with closed eyes.
func BlinkFace(score float64) *Face {
	return NewFace(score, geometry.SyntheticFace(0.1, 0.1, 0.5))
}

// MouthOpenFace returns a frontal face with a wide open mouth.
func MouthOpenFace(score float64) *Face {
	return NewFace(score, geometry.SyntheticFace(0.35, 0.6, 0.5))
}

// TurnedFace returns a face with open eyes, closed mouth and the given
// nose position ratio.
func TurnedFace(score, noseRelX float64) *Face {
	return NewFace(score, geometry.SyntheticFace(0.35, 0.1, noseRelX))
}
