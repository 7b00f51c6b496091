package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrActionUnsupported is returned when the configured plugin does not
// declare the export action.
var ErrActionUnsupported = errors.New("plugin does not support action")

// Export is the payload handed to an export plugin.
type Export struct {
	SessionID    string
	Score        float64
	CapturedAtMs int64
	Image        []byte
}

// Exporter sends completed captures to a named plugin.
type Exporter struct {
	manager  *Manager
	executor *Executor
	name     string
	config   json.RawMessage
	logger   *zap.Logger
}

// NewExporter creates an Exporter for the plugin called name. config is
// passed through to the plugin untouched. logger may be nil.
func NewExporter(manager *Manager, executor *Executor, name string, config json.RawMessage, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{
		manager:  manager,
		executor: executor,
		name:     name,
		config:   config,
		logger:   logger.Named("export"),
	}
}

// Name returns the target plugin name.
func (x *Exporter) Name() string {
	return x.name
}

// Export runs the plugin with e and fails if the plugin reports failure.
func (x *Exporter) Export(ctx context.Context, e Export) (*Response, error) {
	if len(e.Image) == 0 {
		return nil, errors.New("export has no image")
	}

	p, err := x.manager.Get(x.name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", x.name, err)
	}
	if !p.Manifest.Supports(ActionExport) {
		return nil, fmt.Errorf("%s: %w %q", x.name, ErrActionUnsupported, ActionExport)
	}

	resp, err := x.executor.Execute(ctx, p, &Request{
		Action:       ActionExport,
		Session:      e.SessionID,
		Score:        e.Score,
		CapturedAtMs: e.CapturedAtMs,
		Image:        e.Image,
		Config:       x.config,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", x.name, err)
	}
	if !resp.Success {
		return resp, fmt.Errorf("%s: %s", x.name, resp.Error)
	}

	x.logger.Info("capture exported",
		zap.String("plugin", x.name),
		zap.String("session", e.SessionID),
		zap.Float64("score", e.Score),
		zap.Int("bytes", len(e.Image)),
	)
	return resp, nil
}
