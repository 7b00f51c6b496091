// Package app wires the camera, the landmark detector and the liveness
// session into a running check driven by a frame pump.
package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/livecheck/internal/capture"
	"github.com/ayusman/livecheck/internal/detector"
	"github.com/ayusman/livecheck/internal/liveness"
	"github.com/ayusman/livecheck/internal/pump"
	"github.com/ayusman/livecheck/internal/server/api"
	"github.com/ayusman/livecheck/internal/store"
)

// Config holds the collaborators and settings of an App.
type Config struct {
	Camera   capture.Camera
	Detector detector.Detector

	// Store, Exporter, Frames and Listener are optional.
	Store    *store.Store
	Exporter api.Exporter
	Frames   *capture.FrameBuffer
	Listener liveness.Listener

	Liveness     liveness.Config
	TickInterval time.Duration

	// AutoStart waits in READY until the presence gate fires instead of
	// starting the first session immediately.
	AutoStart         bool
	PresenceThreshold float64

	JPEGQuality int
	Logger      *zap.Logger
}

// App runs one liveness session at a time. It implements api.Controller.
type App struct {
	config   Config
	camera   capture.Camera
	detector detector.Detector
	presence *capture.PresenceGate
	frames   *capture.FrameBuffer
	session  *liveness.Session
	recorder *recorder
	pump     *pump.Pump
	logger   *zap.Logger
	now      func() time.Time

	// failedSession is the session already told about the current run of
	// camera read failures. Only the pump goroutine touches it.
	failedSession string

	mu      sync.RWMutex
	status  liveness.Status
	started bool
}

// New creates an App. The session starts in LOADING until Start.
func New(config Config) *App {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.JPEGQuality <= 0 {
		config.JPEGQuality = capture.DefaultJPEGQuality
	}

	a := &App{
		config:   config,
		camera:   config.Camera,
		detector: config.Detector,
		presence: capture.NewPresenceGate(config.PresenceThreshold),
		frames:   config.Frames,
		logger:   logger.Named("app"),
		now:      time.Now,
	}

	a.recorder = newRecorder(config.Store, config.Exporter, logger)
	a.session = liveness.NewSession(config.Liveness, liveness.Listeners{
		liveness.ListenerFunc(a.logEvent),
		a.recorder,
		config.Listener,
	})
	a.pump = pump.New(config.TickInterval, a.tick)
	a.status = a.session.Status()

	return a
}

// Start opens the camera and begins pumping frames. Without AutoStart the
// first session begins immediately. Starting a running App does nothing.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return nil
	}
	a.mu.Unlock()

	if err := a.camera.Open(); err != nil {
		return err
	}
	a.camera.SetFPS(int(time.Second / a.pump.Interval()))

	// The pump is not running yet, so this goroutine is the session's only writer.
	a.session.Ready()
	if !a.config.AutoStart {
		a.session.Start()
	}
	a.refreshStatus()

	a.mu.Lock()
	a.started = true
	a.mu.Unlock()

	a.pump.Start(ctx)
	a.logger.Info("pipeline started",
		zap.Stringer("camera", a.camera.Source()),
		zap.Duration("interval", a.pump.Interval()),
		zap.Bool("auto_start", a.config.AutoStart))
	return nil
}

// Stop halts the pump, waits for pending exports and releases the camera
// and detector. Stopping a stopped App does nothing.
func (a *App) Stop() {
	a.mu.Lock()
	if !a.started {
		a.mu.Unlock()
		return
	}
	a.started = false
	a.mu.Unlock()

	a.pump.Stop()
	a.recorder.wait()

	if err := a.camera.Close(); err != nil {
		a.logger.Warn("close camera", zap.Error(err))
	}
	if err := a.detector.Close(); err != nil {
		a.logger.Warn("close detector", zap.Error(err))
	}
	a.presence.Close()

	a.logger.Info("pipeline stopped")
}

// Status returns the session state as of the last tick or command.
func (a *App) Status() liveness.Status {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.status
}

// Restart abandons the current attempt and starts a new one. The restart
// runs on the pump goroutine between ticks.
func (a *App) Restart() error {
	if !a.pump.Running() {
		return api.ErrNotRunning
	}
	ok := a.pump.Do(func() {
		a.session.Restart()
		a.presence.Reset()
		a.refreshStatus()
	})
	if !ok {
		return api.ErrNotRunning
	}
	return nil
}

func (a *App) refreshStatus() {
	st := a.session.Status()
	a.mu.Lock()
	a.status = st
	a.mu.Unlock()
}

func (a *App) logEvent(e liveness.Event) {
	fields := []zap.Field{
		zap.String("session", e.SessionID),
		zap.String("state", string(e.State)),
	}
	switch e.Type {
	case liveness.EventError:
		a.logger.Warn("session error", append(fields, zap.Error(e.Err))...)
	case liveness.EventCompleted:
		a.logger.Info("session completed", append(fields,
			zap.String("outcome", string(e.Outcome)),
			zap.Float64("score", e.Score))...)
	case liveness.EventChallengeSatisfied:
		a.logger.Info("challenge satisfied", append(fields, zap.String("challenge", string(e.Challenge)))...)
	default:
		a.logger.Debug(string(e.Type), fields...)
	}
}
