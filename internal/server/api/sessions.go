package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ayusman/livecheck/internal/plugin"
	"github.com/ayusman/livecheck/internal/store"
)

// DefaultListLimit caps GET /api/sessions when no limit is given.
const DefaultListLimit = 50

// Exporter sends a stored capture to an export plugin.
type Exporter interface {
	Name() string
	Export(ctx context.Context, e plugin.Export) (*plugin.Response, error)
}

// SessionsHandler handles HTTP requests for persisted sessions.
type SessionsHandler struct {
	store    *store.Store
	exporter Exporter
}

// NewSessionsHandler creates a new SessionsHandler. exporter may be nil,
// in which case the export endpoint answers 503.
func NewSessionsHandler(s *store.Store, exporter Exporter) *SessionsHandler {
	return &SessionsHandler{store: s, exporter: exporter}
}

// ServeHTTP routes:
//
//	GET    /api/sessions
//	GET    /api/sessions/{id}
//	DELETE /api/sessions/{id}
//	GET    /api/sessions/{id}/events
//	GET    /api/sessions/{id}/capture
//	POST   /api/sessions/{id}/export
func (h *SessionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions")
	path = strings.Trim(path, "/")

	if path == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	}

	parts := strings.Split(path, "/")
	id := parts[0]

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			h.get(w, id)
		case http.MethodDelete:
			h.delete(w, id)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	if len(parts) != 2 {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	switch parts[1] {
	case "events":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.events(w, id)
	case "capture":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.capture(w, id)
	case "export":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.export(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

type sessionResponse struct {
	ID          string  `json:"id"`
	State       string  `json:"state"`
	Outcome     string  `json:"outcome"`
	BestScore   float64 `json:"best_score"`
	StartedAt   string  `json:"started_at"`
	CompletedAt string  `json:"completed_at,omitempty"`
	UpdatedAt   string  `json:"updated_at"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

type eventResponse struct {
	ID        int64  `json:"id"`
	Type      string `json:"type"`
	State     string `json:"state"`
	Challenge string `json:"challenge,omitempty"`
	Message   string `json:"message,omitempty"`
	CreatedAt string `json:"created_at"`
}

type listEventsResponse struct {
	SessionID string          `json:"session_id"`
	Events    []eventResponse `json:"events"`
}

type exportResponse struct {
	SessionID string `json:"session_id"`
	Plugin    string `json:"plugin"`
	Success   bool   `json:"success"`
}

func toSessionResponse(s *store.Session) sessionResponse {
	resp := sessionResponse{
		ID:        s.ID,
		State:     s.State,
		Outcome:   s.Outcome,
		BestScore: s.BestScore,
		StartedAt: formatTime(s.StartedAt),
		UpdatedAt: formatTime(s.UpdatedAt),
	}
	if s.CompletedAt != nil {
		resp.CompletedAt = formatTime(*s.CompletedAt)
	}
	return resp
}

// list handles GET /api/sessions?limit=N.
func (h *SessionsHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	sessions, err := h.store.Sessions().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	response := listSessionsResponse{
		Sessions: make([]sessionResponse, 0, len(sessions)),
	}
	for _, s := range sessions {
		response.Sessions = append(response.Sessions, toSessionResponse(s))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/sessions/{id}.
func (h *SessionsHandler) get(w http.ResponseWriter, id string) {
	s, ok := h.lookup(w, id)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(s))
}

// delete handles DELETE /api/sessions/{id}.
func (h *SessionsHandler) delete(w http.ResponseWriter, id string) {
	if err := h.store.Sessions().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// events handles GET /api/sessions/{id}/events.
func (h *SessionsHandler) events(w http.ResponseWriter, id string) {
	if _, ok := h.lookup(w, id); !ok {
		return
	}

	events, err := h.store.Events().ListBySession(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}

	response := listEventsResponse{
		SessionID: id,
		Events:    make([]eventResponse, 0, len(events)),
	}
	for _, e := range events {
		response.Events = append(response.Events, eventResponse{
			ID:        e.ID,
			Type:      e.Type,
			State:     e.State,
			Challenge: e.Challenge,
			Message:   e.Message,
			CreatedAt: formatTime(e.CreatedAt),
		})
	}

	writeJSON(w, http.StatusOK, response)
}

// capture handles GET /api/sessions/{id}/capture and returns the JPEG.
func (h *SessionsHandler) capture(w http.ResponseWriter, id string) {
	c, err := h.store.Captures().GetBySessionID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Capture not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get capture")
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(c.Image)))
	w.Header().Set("X-Capture-Score", strconv.FormatFloat(c.Score, 'f', -1, 64))
	w.WriteHeader(http.StatusOK)
	w.Write(c.Image)
}

// export handles POST /api/sessions/{id}/export, re-sending a stored
// capture to the configured export plugin.
func (h *SessionsHandler) export(w http.ResponseWriter, r *http.Request, id string) {
	if h.exporter == nil {
		writeError(w, http.StatusServiceUnavailable, "No export plugin configured")
		return
	}

	c, err := h.store.Captures().GetBySessionID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Capture not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get capture")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), time.Minute)
	defer cancel()

	if _, err := h.exporter.Export(ctx, plugin.Export{
		SessionID:    c.SessionID,
		Score:        c.Score,
		CapturedAtMs: c.CapturedAtMs,
		Image:        c.Image,
	}); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, exportResponse{
		SessionID: id,
		Plugin:    h.exporter.Name(),
		Success:   true,
	})
}

func (h *SessionsHandler) lookup(w http.ResponseWriter, id string) (*store.Session, bool) {
	s, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return nil, false
	}
	return s, true
}
