package detector

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

const serviceScript = "face_landmark_service.py"

// ErrServiceNotFound is returned when the landmark service script cannot be located.
var ErrServiceNotFound = errors.New("face_landmark_service.py not found")

// ServiceDetector implements Detector using a Python landmark subprocess.
//
// Wire protocol: each request is a 4-byte big-endian length followed by a
// JPEG; each response is one JSON line {"faces": [...]}.
type ServiceDetector struct {
	config     Config
	scriptPath string
	cmd        *exec.Cmd
	stdin      io.WriteCloser
	pipe       io.ReadCloser
	stdout     *bufio.Reader
	mu         sync.Mutex
	started    bool
	idleTimer  *time.Timer
	// idleGen invalidates idle callbacks that fired before the service
	// was used again.
	idleGen uint64
}

// NewServiceDetector creates a new subprocess detector.
// The Python process is started lazily on first detection.
func NewServiceDetector(config Config) (*ServiceDetector, error) {
	scriptPath := config.ScriptPath
	if scriptPath == "" {
		scriptPath = findServiceScript()
	}
	if scriptPath == "" {
		return nil, ErrServiceNotFound
	}
	if _, err := os.Stat(scriptPath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceNotFound, err)
	}

	return &ServiceDetector{
		config:     config,
		scriptPath: scriptPath,
	}, nil
}

// Detect sends the frame to the service and returns the best face.
// If ctx is cancelled mid-request the subprocess is shut down, since the
// pipe can no longer be trusted to be in sync.
func (d *ServiceDetector) Detect(ctx context.Context, frame *gocv.Mat) (*Face, error) {
	if frame == nil || frame.Empty() {
		return nil, nil
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	data := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureStarted(); err != nil {
		return nil, err
	}

	type result struct {
		resp jsonResponse
		err  error
	}
	ch := make(chan result, 1)
	stdin, stdout := d.stdin, d.stdout
	go func() {
		resp, err := exchange(stdin, stdout, data)
		ch <- result{resp, err}
	}()

	var res result
	select {
	case res = <-ch:
	case <-ctx.Done():
		// The exchange must return before the process is reaped.
		d.kill()
		<-ch
		d.shutdown()
		return nil, ctx.Err()
	}

	if res.err != nil {
		d.shutdown()
		return nil, res.err
	}
	if res.resp.Error != "" {
		return nil, fmt.Errorf("landmark service: %s", res.resp.Error)
	}

	d.resetIdleTimer()

	return selectFace(res.resp.Faces, d.config.MinConfidence)
}

// Close shuts down the Python process.
func (d *ServiceDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

// exchange writes one length-prefixed frame and reads one JSON line.
func exchange(stdin io.Writer, stdout *bufio.Reader, data []byte) (jsonResponse, error) {
	var resp jsonResponse

	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))

	if _, err := stdin.Write(length); err != nil {
		return resp, fmt.Errorf("write length: %w", err)
	}
	if _, err := stdin.Write(data); err != nil {
		return resp, fmt.Errorf("write data: %w", err)
	}

	line, err := stdout.ReadBytes('\n')
	if err != nil {
		return resp, fmt.Errorf("read response: %w", err)
	}

	if err := json.Unmarshal(line, &resp); err != nil {
		return resp, fmt.Errorf("parse response: %w", err)
	}
	return resp, nil
}

func (d *ServiceDetector) ensureStarted() error {
	if d.started {
		return nil
	}

	pythonPath := d.config.PythonPath
	if pythonPath == "" {
		pythonPath = findVenvPython()
	}
	if pythonPath == "" {
		pythonPath = "python3"
	}

	d.cmd = exec.Command(pythonPath, d.scriptPath)

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	// Service diagnostics go straight to our stderr.
	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("start landmark service: %w", err)
	}

	d.stdin = stdin
	d.pipe = stdout
	d.stdout = bufio.NewReader(stdout)
	d.started = true

	return nil
}

func (d *ServiceDetector) shutdown() error {
	if !d.started {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}
	d.idleGen++

	d.kill()

	err := d.cmd.Wait()
	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.pipe = nil
	d.stdout = nil

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// Killed on purpose.
		return nil
	}
	return err
}

// kill stops the process and closes both pipes so that a pending exchange
// returns. The process is not reaped; shutdown does that.
func (d *ServiceDetector) kill() {
	if d.stdin != nil {
		d.stdin.Close()
	}
	if d.pipe != nil {
		d.pipe.Close()
	}
	if d.cmd != nil && d.cmd.Process != nil {
		d.cmd.Process.Kill()
	}
}

func (d *ServiceDetector) resetIdleTimer() {
	if d.config.IdleTimeout <= 0 {
		return
	}
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleGen++
	gen := d.idleGen
	d.idleTimer = time.AfterFunc(d.config.IdleTimeout, func() {
		d.idleExpired(gen)
	})
}

// idleExpired shuts the service down unless it was used after the timer
// for gen was armed.
func (d *ServiceDetector) idleExpired(gen uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.idleGen {
		return
	}
	d.shutdown()
}

func findServiceScript() string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		filepath.Join("scripts", serviceScript),
		filepath.Join("..", "scripts", serviceScript),
		filepath.Join(execDir, "scripts", serviceScript),
		filepath.Join(os.Getenv("HOME"), ".livecheck", "scripts", serviceScript),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".livecheck/venv/bin/python"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}
