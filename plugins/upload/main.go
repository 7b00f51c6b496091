// Package main provides an export plugin that uploads a session capture
// to an HTTP endpoint as image/jpeg.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action       string          `json:"action"`
	Session      string          `json:"session"`
	Score        float64         `json:"score"`
	CapturedAtMs int64           `json:"captured_at_ms"`
	Image        []byte          `json:"image"`
	Config       json.RawMessage `json:"config"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Config is read from the request's config object.
type Config struct {
	URL       string `json:"url"`
	Token     string `json:"token"`
	TimeoutMs int    `json:"timeout_ms"`
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	if req.Action != "export" {
		writeErrorResponse(fmt.Sprintf("unknown action: %s", req.Action))
		return
	}

	status, err := upload(req)
	if err != nil {
		writeErrorResponse(fmt.Sprintf("upload failed: %v", err))
		return
	}

	data, _ := json.Marshal(map[string]int{"status": status})
	json.NewEncoder(os.Stdout).Encode(Response{Success: true, Data: data})
}

func upload(req Request) (int, error) {
	var cfg Config
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			return 0, fmt.Errorf("invalid config: %w", err)
		}
	}
	if cfg.URL == "" {
		cfg.URL = os.Getenv("LIVECHECK_UPLOAD_URL")
	}
	if cfg.URL == "" {
		return 0, errors.New("no upload url configured")
	}
	if len(req.Image) == 0 {
		return 0, errors.New("request carries no image")
	}

	timeout := 10 * time.Second
	if cfg.TimeoutMs > 0 {
		timeout = time.Duration(cfg.TimeoutMs) * time.Millisecond
	}

	httpReq, err := http.NewRequest(http.MethodPost, cfg.URL, bytes.NewReader(req.Image))
	if err != nil {
		return 0, err
	}
	httpReq.Header.Set("Content-Type", "image/jpeg")
	httpReq.Header.Set("X-Livecheck-Session", req.Session)
	httpReq.Header.Set("X-Livecheck-Score", strconv.FormatFloat(req.Score, 'f', 4, 64))
	if cfg.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+cfg.Token)
	}

	resp, err := (&http.Client{Timeout: timeout}).Do(httpReq)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("server returned %s", resp.Status)
	}
	return resp.StatusCode, nil
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{
		Success: false,
		Error:   errMsg,
	})
}
