package server

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/livecheck/internal/capture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamHandler_MethodNotAllowed(t *testing.T) {
	h := NewStreamHandler(capture.NewFrameBuffer())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/stream", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStreamHandler_StreamsPublishedFrames(t *testing.T) {
	frames := capture.NewFrameBuffer()
	frames.Publish([]byte("first"))

	ts := httptest.NewServer(NewStreamHandler(frames))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL, nil)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "multipart/x-mixed-replace; boundary=frame", resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)
	assert.Equal(t, "first", readPart(t, r))

	require.Eventually(t, frames.Watching, 2*time.Second, 10*time.Millisecond)
	frames.Publish([]byte("second"))
	assert.Equal(t, "second", readPart(t, r))
}

// readPart reads one multipart section and returns its body.
func readPart(t *testing.T, r *bufio.Reader) string {
	t.Helper()

	var length int
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimSpace(line)
		if line == "" && length > 0 {
			break
		}
		if v, ok := strings.CutPrefix(line, "Content-Length: "); ok {
			n, err := strconv.Atoi(v)
			require.NoError(t, err)
			length = n
		}
	}

	body := make([]byte, length)
	_, err := io.ReadFull(r, body)
	require.NoError(t, err)
	return string(body)
}
