package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/livecheck/internal/plugin"
	"github.com/ayusman/livecheck/internal/store"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

// seedSession stores a completed session with two events and a capture.
func seedSession(t *testing.T, s *store.Store, id string, image []byte) {
	t.Helper()

	if err := s.Sessions().Create(&store.Session{ID: id, State: "blink"}); err != nil {
		t.Fatalf("create session: %v", err)
	}
	for _, e := range []*store.Event{
		{SessionID: id, Type: "state_changed", State: "blink", Challenge: "blink"},
		{SessionID: id, Type: "challenge_satisfied", State: "blink", Challenge: "blink"},
	} {
		if err := s.Events().Append(e); err != nil {
			t.Fatalf("append event: %v", err)
		}
	}
	if image != nil {
		if err := s.Captures().Save(&store.Capture{SessionID: id, Score: 0.91, CapturedAtMs: 800, Image: image}); err != nil {
			t.Fatalf("save capture: %v", err)
		}
		if err := s.Sessions().Complete(id, store.OutcomeCaptured, 0.91, time.Now()); err != nil {
			t.Fatalf("complete session: %v", err)
		}
	}
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestSessionsHandler_List(t *testing.T) {
	s := newTestStore(t)
	seedSession(t, s, "sess-1", []byte{0xFF, 0xD8})
	seedSession(t, s, "sess-2", nil)
	handler := NewSessionsHandler(s, nil)

	rec := serve(handler, http.MethodGet, "/api/sessions")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}

	var response listSessionsResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(response.Sessions))
	}

	rec = serve(handler, http.MethodGet, "/api/sessions?limit=1")
	response = listSessionsResponse{}
	json.NewDecoder(rec.Body).Decode(&response)
	if len(response.Sessions) != 1 {
		t.Errorf("expected 1 session with limit, got %d", len(response.Sessions))
	}

	rec = serve(handler, http.MethodGet, "/api/sessions?limit=abc")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d for bad limit, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestSessionsHandler_List_Empty(t *testing.T) {
	handler := NewSessionsHandler(newTestStore(t), nil)

	rec := serve(handler, http.MethodGet, "/api/sessions")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if body := rec.Body.String(); body != "{\"sessions\":[]}\n" {
		t.Errorf("expected empty array, got %q", body)
	}
}

func TestSessionsHandler_Get(t *testing.T) {
	s := newTestStore(t)
	seedSession(t, s, "sess-1", []byte{0xFF, 0xD8})
	handler := NewSessionsHandler(s, nil)

	rec := serve(handler, http.MethodGet, "/api/sessions/sess-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response sessionResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.ID != "sess-1" || response.Outcome != store.OutcomeCaptured {
		t.Errorf("unexpected session %+v", response)
	}
	if response.CompletedAt == "" {
		t.Error("expected completed_at to be set")
	}

	rec = serve(handler, http.MethodGet, "/api/sessions/missing")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestSessionsHandler_Events(t *testing.T) {
	s := newTestStore(t)
	seedSession(t, s, "sess-1", nil)
	handler := NewSessionsHandler(s, nil)

	rec := serve(handler, http.MethodGet, "/api/sessions/sess-1/events")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response listEventsResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(response.Events))
	}
	if response.Events[1].Type != "challenge_satisfied" {
		t.Errorf("unexpected second event %+v", response.Events[1])
	}

	rec = serve(handler, http.MethodGet, "/api/sessions/missing/events")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestSessionsHandler_Capture(t *testing.T) {
	s := newTestStore(t)
	image := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	seedSession(t, s, "with", image)
	seedSession(t, s, "without", nil)
	handler := NewSessionsHandler(s, nil)

	rec := serve(handler, http.MethodGet, "/api/sessions/with/capture")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %s", ct)
	}
	if !bytes.Equal(rec.Body.Bytes(), image) {
		t.Errorf("unexpected body % x", rec.Body.Bytes())
	}
	if rec.Header().Get("X-Capture-Score") != "0.91" {
		t.Errorf("unexpected score header %q", rec.Header().Get("X-Capture-Score"))
	}

	rec = serve(handler, http.MethodGet, "/api/sessions/without/capture")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d without capture, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestSessionsHandler_Delete(t *testing.T) {
	s := newTestStore(t)
	seedSession(t, s, "sess-1", []byte{1})
	handler := NewSessionsHandler(s, nil)

	rec := serve(handler, http.MethodDelete, "/api/sessions/sess-1")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}

	rec = serve(handler, http.MethodDelete, "/api/sessions/sess-1")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d on second delete, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestSessionsHandler_Routing(t *testing.T) {
	handler := NewSessionsHandler(newTestStore(t), nil)

	tests := []struct {
		method string
		target string
		want   int
	}{
		{http.MethodPost, "/api/sessions", http.StatusMethodNotAllowed},
		{http.MethodPut, "/api/sessions/x", http.StatusMethodNotAllowed},
		{http.MethodPost, "/api/sessions/x/events", http.StatusMethodNotAllowed},
		{http.MethodDelete, "/api/sessions/x/capture", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/sessions/x/export", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/sessions/x/unknown", http.StatusNotFound},
		{http.MethodGet, "/api/sessions/x/events/extra", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			if rec := serve(handler, tt.method, tt.target); rec.Code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

type fakeExporter struct {
	got plugin.Export
	err error
}

func (f *fakeExporter) Name() string { return "fake" }

func (f *fakeExporter) Export(ctx context.Context, e plugin.Export) (*plugin.Response, error) {
	f.got = e
	if f.err != nil {
		return nil, f.err
	}
	return &plugin.Response{Success: true}, nil
}

func TestSessionsHandler_Export(t *testing.T) {
	s := newTestStore(t)
	image := []byte{0xFF, 0xD8, 0x01}
	seedSession(t, s, "sess-1", image)
	seedSession(t, s, "bare", nil)

	t.Run("no exporter", func(t *testing.T) {
		rec := serve(NewSessionsHandler(s, nil), http.MethodPost, "/api/sessions/sess-1/export")
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
		}
	})

	t.Run("exports stored capture", func(t *testing.T) {
		fx := &fakeExporter{}
		rec := serve(NewSessionsHandler(s, fx), http.MethodPost, "/api/sessions/sess-1/export")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
		}
		if fx.got.SessionID != "sess-1" || !bytes.Equal(fx.got.Image, image) || fx.got.Score != 0.91 {
			t.Errorf("unexpected export %+v", fx.got)
		}

		var response exportResponse
		json.NewDecoder(rec.Body).Decode(&response)
		if response.Plugin != "fake" || !response.Success {
			t.Errorf("unexpected response %+v", response)
		}
	})

	t.Run("no capture", func(t *testing.T) {
		rec := serve(NewSessionsHandler(s, &fakeExporter{}), http.MethodPost, "/api/sessions/bare/export")
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})

	t.Run("plugin failure", func(t *testing.T) {
		fx := &fakeExporter{err: errors.New("upload refused")}
		rec := serve(NewSessionsHandler(s, fx), http.MethodPost, "/api/sessions/sess-1/export")
		if rec.Code != http.StatusBadGateway {
			t.Errorf("expected status %d, got %d", http.StatusBadGateway, rec.Code)
		}
	})
}
