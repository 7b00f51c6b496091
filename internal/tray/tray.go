// Package tray provides a system tray menu showing the current liveness
// challenge with Restart and Quit actions.
package tray

import (
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/livecheck/internal/liveness"
)

// Tray represents the system tray application.
type Tray struct {
	onRestart func()
	onOpen    func()
	onQuit    func()
	status    liveness.Status
	mu        sync.RWMutex

	// Menu items stored for later updates
	menuStatus *systray.MenuItem
}

// New creates a new Tray instance.
func New() *Tray {
	return &Tray{}
}

// OnRestart sets the callback invoked when Restart is clicked.
func (t *Tray) OnRestart(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onRestart = fn
}

// OnOpen sets the callback invoked when the open-in-browser item is clicked.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray, making Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("livecheck")
	systray.SetTooltip("livecheck liveness check")

	t.mu.Lock()
	t.menuStatus = systray.AddMenuItem(Label(t.status), "Current challenge")
	t.menuStatus.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuRestart := systray.AddMenuItem("Restart", "Start a new liveness check")
	menuOpen := systray.AddMenuItem("Open in Browser...", "Open the live view")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit livecheck")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-menuRestart.ClickedCh:
				t.call(func(t *Tray) func() { return t.onRestart })
			case <-menuOpen.ClickedCh:
				t.call(func(t *Tray) func() { return t.onOpen })
			case <-menuQuit.ClickedCh:
				t.call(func(t *Tray) func() { return t.onQuit })
				systray.Quit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {}

// call runs a callback outside the lock to prevent deadlocks.
func (t *Tray) call(pick func(*Tray) func()) {
	t.mu.RLock()
	callback := pick(t)
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// SetStatus updates the status line in the menu.
func (t *Tray) SetStatus(st liveness.Status) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status = st
	if t.menuStatus != nil {
		t.menuStatus.SetTitle(Label(st))
	}
}

// Status returns the last status passed to SetStatus.
func (t *Tray) Status() liveness.Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// Label is the menu text for st.
func Label(st liveness.Status) string {
	switch st.State {
	case liveness.StateLoading, "":
		return "Loading..."
	case liveness.StateReady:
		return "Waiting for subject"
	case liveness.StateBlink:
		return "Blink your eyes"
	case liveness.StateMouth:
		return "Open your mouth"
	case liveness.StateShake:
		return "Turn your head left and right"
	case liveness.StateCompleted:
		if st.HasCapture {
			return "Completed ✓"
		}
		return "Completed (no capture)"
	default:
		return string(st.State)
	}
}
