package capture

import (
	"testing"

	"gocv.io/x/gocv"
)

func TestNewPresenceGate(t *testing.T) {
	tests := []struct {
		name      string
		threshold float64
		want      float64
	}{
		{name: "explicit", threshold: 5.0, want: 5.0},
		{name: "zero falls back", threshold: 0, want: DefaultPresenceThreshold},
		{name: "negative falls back", threshold: -1, want: DefaultPresenceThreshold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewPresenceGate(tt.threshold)
			defer g.Close()

			if got := g.Threshold(); got != tt.want {
				t.Errorf("Threshold() = %f, want %f", got, tt.want)
			}
			if g.primed {
				t.Error("gate should not be primed initially")
			}
		})
	}
}

func TestPresenceGate_StillScene(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	g := NewPresenceGate(1.0)
	defer g.Close()

	frame1 := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame1.Close()
	frame2 := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame2.Close()

	if arrived, changed := g.Observe(&frame1); arrived || changed != 0 {
		t.Errorf("first frame should only prime, got %v %f", arrived, changed)
	}
	if arrived, changed := g.Observe(&frame2); arrived {
		t.Errorf("identical frames should not trigger, changed = %f", changed)
	}
}

func TestPresenceGate_SubjectArrives(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	g := NewPresenceGate(1.0)
	defer g.Close()

	empty := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer empty.Close()
	subject := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer subject.Close()
	subject.SetTo(gocv.NewScalar(255, 255, 255, 0))

	g.Observe(&empty)
	arrived, changed := g.Observe(&subject)
	if !arrived {
		t.Errorf("black to white should trigger, changed = %f", changed)
	}
	if changed < 50.0 {
		t.Errorf("changed = %f, expected > 50%%", changed)
	}
}

func TestPresenceGate_Reset(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	g := NewPresenceGate(1.0)
	defer g.Close()

	black := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	defer black.Close()
	white := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	defer white.Close()
	white.SetTo(gocv.NewScalar(255, 255, 255, 0))

	g.Observe(&black)
	g.Reset()

	// After Reset the next frame primes instead of comparing.
	if arrived, _ := g.Observe(&white); arrived {
		t.Error("first frame after Reset should not trigger")
	}
}

func TestPresenceGate_NilFrame(t *testing.T) {
	g := NewPresenceGate(1.0)
	defer g.Close()

	if arrived, changed := g.Observe(nil); arrived || changed != 0 {
		t.Errorf("nil frame should be ignored, got %v %f", arrived, changed)
	}
}

func TestPresenceGate_CloseTwice(t *testing.T) {
	g := NewPresenceGate(1.0)
	g.Close()
	g.Close()
}
