// Package capture provides camera capture functionality using GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"gocv.io/x/gocv"
)

// Default camera settings
const (
	DefaultFPS    = 20
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrNoFrames is returned when a frame source has nothing left to read.
	ErrNoFrames = errors.New("no frames available")
	// ErrReadFailed is returned when a capture device fails to deliver a frame.
	ErrReadFailed = errors.New("failed to read frame")
)

// Source identifies where a camera reads frames from.
type Source struct {
	// Device is the capture device index, or -1 for files and streams.
	Device int
	// Path is the file path or stream URL when Device is -1.
	Path string
}

// ParseSource interprets s as a device index when it is a non-negative
// integer and as a file path or stream URL otherwise.
func ParseSource(s string) Source {
	s = strings.TrimSpace(s)
	if id, err := strconv.Atoi(s); err == nil && id >= 0 {
		return Source{Device: id}
	}
	return Source{Device: -1, Path: s}
}

// IsDevice reports whether the source is a capture device.
func (s Source) IsDevice() bool { return s.Device >= 0 }

// IsStream reports whether the source is a network URL.
func (s Source) IsStream() bool { return strings.Contains(s.Path, "://") }

func (s Source) String() string {
	if s.IsDevice() {
		return "device " + strconv.Itoa(s.Device)
	}
	return s.Path
}

// Camera defines the interface for camera capture implementations.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
	Source() Source
}

// videoCamera reads frames through an OpenCV VideoCapture. A device keeps
// delivering frames; a file runs out and then reports ErrNoFrames.
type videoCamera struct {
	source  Source
	capture *gocv.VideoCapture
	mu      sync.Mutex
	running bool
	fps     int
}

// NewCamera creates a new Camera for source. See ParseSource.
func NewCamera(source string) Camera {
	return &videoCamera{
		source: ParseSource(source),
		fps:    DefaultFPS,
	}
}

func (c *videoCamera) Source() Source {
	return c.source
}

// Open starts capturing. Devices are asked for 640x480 at the configured
// rate; files play at their native size.
func (c *videoCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	var device interface{} = c.source.Device
	if !c.source.IsDevice() {
		if c.source.Path == "" {
			return errors.New("open camera: empty source")
		}
		if !c.source.IsStream() {
			if _, err := os.Stat(c.source.Path); err != nil {
				return fmt.Errorf("open camera %s: %w", c.source, err)
			}
		}
		device = c.source.Path
	}

	capture, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return fmt.Errorf("open camera %s: %w", c.source, err)
	}

	if c.source.IsDevice() {
		capture.Set(gocv.VideoCaptureFrameWidth, DefaultWidth)
		capture.Set(gocv.VideoCaptureFrameHeight, DefaultHeight)
		capture.Set(gocv.VideoCaptureFPS, float64(c.fps))
	}

	c.capture = capture
	c.running = true

	return nil
}

func (c *videoCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.running = false
	if c.capture == nil {
		return nil
	}
	err := c.capture.Close()
	c.capture = nil
	return err
}

// ReadFrame reads a single frame. The caller owns the returned Mat.
func (c *videoCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		if c.source.IsDevice() {
			return nil, fmt.Errorf("%s: %w", c.source, ErrReadFailed)
		}
		return nil, fmt.Errorf("%s: %w", c.source, ErrNoFrames)
	}

	return &mat, nil
}

// SetFPS ignores non-positive values. Only devices are asked to change rate.
func (c *videoCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fps = fps
	if c.capture != nil && c.source.IsDevice() {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

func (c *videoCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *videoCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
