// Package plugin discovers and runs export plugins: external executables
// that receive a completed session's capture as JSON on stdin.
package plugin

import "encoding/json"

// ActionExport is the action sent when a session completes with a capture.
const ActionExport = "export"

// Manifest describes a plugin's metadata and capabilities.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	Actions      []string        `json:"actions"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Supports reports whether the manifest lists action.
func (m *Manifest) Supports(action string) bool {
	for _, a := range m.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// Request represents a request sent to a plugin for execution.
// Image is base64-encoded on the wire.
type Request struct {
	Action       string          `json:"action"`
	Session      string          `json:"session"`
	Score        float64         `json:"score"`
	CapturedAtMs int64           `json:"captured_at_ms"`
	Image        []byte          `json:"image,omitempty"`
	Config       json.RawMessage `json:"config,omitempty"`
}

// Response represents the response from a plugin execution.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
