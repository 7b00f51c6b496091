// Package detector provides face detection and 68-point landmark extraction
// behind a Detector interface.
package detector

import (
	"context"
	"image"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/livecheck/internal/geometry"
)

// Face is the single face chosen from a frame.
type Face struct {
	// Score is the detector's bounding-box confidence in [0, 1].
	Score     float64            `json:"score"`
	Box       image.Rectangle    `json:"box"`
	Landmarks geometry.Landmarks `json:"landmarks"`
}

// Detector defines the interface for face landmark detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns the most confident face,
	// or nil when no face passes the confidence threshold.
	Detect(ctx context.Context, frame *gocv.Mat) (*Face, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for face detection.
type Config struct {
	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// ScriptPath is the landmark service script. Empty means search the
	// default locations.
	ScriptPath string

	// PythonPath is the interpreter. Empty means a virtualenv python if one
	// is found, else python3.
	PythonPath string

	// IdleTimeout shuts the service down after this long without a request.
	IdleTimeout time.Duration
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MinConfidence: 0.5,
		IdleTimeout:   30 * time.Second,
	}
}
