package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/livecheck/internal/liveness"
)

// ErrNotRunning is returned by a Controller that cannot accept commands.
var ErrNotRunning = errors.New("session is not running")

// Controller exposes the live session to HTTP.
type Controller interface {
	Status() liveness.Status
	Restart() error
}

// LiveHandler serves /api/session and /api/session/restart.
type LiveHandler struct {
	controller Controller
}

// NewLiveHandler creates a new LiveHandler.
func NewLiveHandler(c Controller) *LiveHandler {
	return &LiveHandler{controller: c}
}

// ServeHTTP implements the http.Handler interface.
func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/session")
	path = strings.TrimPrefix(path, "/")

	switch path {
	case "":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, h.controller.Status())
	case "restart":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.restart(w)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// restart handles POST /api/session/restart and returns the fresh status.
func (h *LiveHandler) restart(w http.ResponseWriter) {
	if err := h.controller.Restart(); err != nil {
		if errors.Is(err, ErrNotRunning) {
			writeError(w, http.StatusServiceUnavailable, "Session is not running")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to restart session")
		return
	}
	writeJSON(w, http.StatusAccepted, h.controller.Status())
}
