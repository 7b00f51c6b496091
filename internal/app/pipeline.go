package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/livecheck/internal/capture"
	"github.com/ayusman/livecheck/internal/liveness"
)

// tick processes one frame:
//
//  1. Read a frame from the camera
//  2. Publish a preview if anyone is watching the stream
//  3. In READY with auto-start, wait for the presence gate
//  4. Outside the challenge states, stop here
//  5. Detect the face and feed the session, offering the frame as a capture
func (a *App) tick(ctx context.Context) {
	defer a.refreshStatus()

	frame, err := a.camera.ReadFrame()
	if err != nil {
		a.readFailed(err)
		return
	}
	defer frame.Close()
	a.failedSession = ""

	a.publish(frame)

	if a.session.State() == liveness.StateReady && a.config.AutoStart {
		present, changed := a.presence.Observe(frame)
		if !present {
			return
		}
		a.logger.Info("subject present, starting session", zap.Float64("changed_pct", changed))
		a.session.Start()
	}

	if !a.session.State().Active() {
		return
	}

	face, err := a.detector.Detect(ctx, frame)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		a.session.Fail(fmt.Errorf("detect: %w", err))
		return
	}
	if face == nil {
		a.session.Tick(nil, nil)
		return
	}

	sample := &liveness.Sample{
		Score:       face.Score,
		Landmarks:   face.Landmarks,
		TimestampMs: a.now().UnixMilli(),
	}
	a.session.Tick(sample, func() ([]byte, error) {
		return capture.EncodeJPEG(frame, a.config.JPEGQuality)
	})
}

// readFailed reports a camera failure to the active session once per run of
// failed reads. Repeats, and failures outside a challenge, are only logged.
func (a *App) readFailed(err error) {
	id := a.session.ID()
	if a.session.State().Active() && a.failedSession != id {
		a.failedSession = id
		a.session.Fail(fmt.Errorf("read frame: %w", err))
		return
	}
	a.logger.Debug("read frame", zap.Error(err))
}

func (a *App) publish(frame *gocv.Mat) {
	if a.frames == nil || !a.frames.Watching() {
		return
	}
	jpeg, err := capture.EncodeJPEG(frame, a.config.JPEGQuality)
	if err != nil {
		a.logger.Debug("encode preview", zap.Error(err))
		return
	}
	a.frames.Publish(jpeg)
}
