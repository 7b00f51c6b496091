package app

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/ayusman/livecheck/internal/liveness"
	"github.com/ayusman/livecheck/internal/plugin"
	"github.com/ayusman/livecheck/internal/server/api"
	"github.com/ayusman/livecheck/internal/store"
)

// recorder persists session events and hands completed captures to the
// export plugin. It runs on the pump goroutine; exports run in the
// background so a slow plugin never stalls the frame loop.
type recorder struct {
	store    *store.Store
	exporter api.Exporter
	logger   *zap.Logger

	exports sync.WaitGroup
}

func newRecorder(s *store.Store, exporter api.Exporter, logger *zap.Logger) *recorder {
	return &recorder{
		store:    s,
		exporter: exporter,
		logger:   logger.Named("recorder"),
	}
}

// HandleEvent implements liveness.Listener.
func (r *recorder) HandleEvent(e liveness.Event) {
	// Bootstrap transitions happen before any attempt exists.
	if e.SessionID == "" {
		return
	}

	if r.store != nil {
		r.persist(e)
	}

	if e.Type == liveness.EventCompleted && e.Capture != nil && r.exporter != nil {
		r.export(e.SessionID, *e.Capture)
	}
}

func (r *recorder) persist(e liveness.Event) {
	log := r.logger.With(zap.String("session", e.SessionID), zap.String("event", string(e.Type)))

	switch e.Type {
	case liveness.EventStateChanged:
		var err error
		if e.State == liveness.StateBlink {
			err = r.store.Sessions().Create(&store.Session{
				ID:        e.SessionID,
				State:     string(e.State),
				StartedAt: e.At,
			})
		} else {
			err = r.store.Sessions().UpdateState(e.SessionID, string(e.State))
		}
		if err != nil {
			log.Error("save session state", zap.Error(err))
			return
		}

	case liveness.EventCompleted:
		if e.Capture != nil {
			if err := r.store.Captures().Save(&store.Capture{
				SessionID:    e.SessionID,
				Score:        e.Capture.Score,
				CapturedAtMs: e.Capture.CapturedAtMs,
				Image:        e.Capture.Image,
			}); err != nil {
				log.Error("save capture", zap.Error(err))
			}
		}
		if err := r.store.Sessions().Complete(e.SessionID, string(e.Outcome), e.Score, e.At); err != nil {
			log.Error("complete session", zap.Error(err))
		}
	}

	message := e.Message
	if e.Type == liveness.EventCompleted {
		message = string(e.Outcome)
	}
	if err := r.store.Events().Append(&store.Event{
		SessionID: e.SessionID,
		Type:      string(e.Type),
		State:     string(e.State),
		Challenge: string(e.Challenge),
		Message:   message,
		CreatedAt: e.At,
	}); err != nil {
		log.Error("append event", zap.Error(err))
	}
}

func (r *recorder) export(sessionID string, c liveness.Capture) {
	r.exports.Add(1)
	go func() {
		defer r.exports.Done()

		_, err := r.exporter.Export(context.Background(), plugin.Export{
			SessionID:    sessionID,
			Score:        c.Score,
			CapturedAtMs: c.CapturedAtMs,
			Image:        c.Image,
		})
		if err != nil {
			r.logger.Warn("export capture",
				zap.String("session", sessionID),
				zap.String("plugin", r.exporter.Name()),
				zap.Error(err))
		}
	}()
}

// wait blocks until background exports finish.
func (r *recorder) wait() {
	r.exports.Wait()
}
