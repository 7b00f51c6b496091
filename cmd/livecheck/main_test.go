package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/livecheck/internal/store"
)

func seedDataDir(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	dir := t.TempDir()
	st, err := store.New(filepath.Join(dir, "livecheck.db"))
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.Sessions().Create(&store.Session{ID: "sess-1", State: "completed"}))
	require.NoError(t, st.Captures().Save(&store.Capture{SessionID: "sess-1", Score: 0.9, Image: []byte{0xFF, 0xD8, 0xFF, 0xD9}}))
	require.NoError(t, st.Sessions().Complete("sess-1", store.OutcomeCaptured, 0.9, time.Now()))
	return dir
}

func run(t *testing.T, args ...string) error {
	t.Helper()
	exportViaPlugin = false
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(context.Background())
}

func TestExportCommand_WritesCapture(t *testing.T) {
	dir := seedDataDir(t)
	out := filepath.Join(t.TempDir(), "capture.jpg")

	require.NoError(t, run(t, "--env-file", "", "--data-dir", dir, "export", "sess-1", out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xD8, 0xFF, 0xD9}, data)
}

func TestExportCommand_Errors(t *testing.T) {
	dir := seedDataDir(t)

	assert.Error(t, run(t, "--env-file", "", "--data-dir", dir, "export", "sess-1"), "needs a file or --plugin")
	assert.Error(t, run(t, "--env-file", "", "--data-dir", dir, "export", "missing", filepath.Join(t.TempDir(), "x.jpg")))
}

func TestSessionsCommands(t *testing.T) {
	dir := seedDataDir(t)

	assert.NoError(t, run(t, "--env-file", "", "--data-dir", dir, "sessions", "list"))
	assert.NoError(t, run(t, "--env-file", "", "--data-dir", dir, "sessions", "show", "sess-1"))
	assert.Error(t, run(t, "--env-file", "", "--data-dir", dir, "sessions", "show", "nope"))

	require.NoError(t, run(t, "--env-file", "", "--data-dir", dir, "sessions", "delete", "sess-1"))
	assert.Error(t, run(t, "--env-file", "", "--data-dir", dir, "sessions", "show", "sess-1"))
}

func TestInvalidConfigFailsEarly(t *testing.T) {
	dir := seedDataDir(t)
	assert.Error(t, run(t, "--env-file", "", "--data-dir", dir, "--mouth-hold-frames", "0", "sessions", "list"))
}
