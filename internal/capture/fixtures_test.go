package capture

import "testing"

func TestSolidFrames(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	frames := SolidFrames(3, 64, 48, 128)
	defer CloseFrames(frames)

	if len(frames) != 3 {
		t.Fatalf("len = %d, want 3", len(frames))
	}
	for i, f := range frames {
		if f.Cols() != 64 || f.Rows() != 48 {
			t.Errorf("frame %d is %dx%d, want 64x48", i, f.Cols(), f.Rows())
		}
		if v := f.GetVecbAt(10, 10); v[0] != 128 {
			t.Errorf("frame %d pixel = %v, want 128", i, v)
		}
	}
}

func TestSubjectFrames_TriggerPresence(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	frames := SubjectFrames(160, 120)
	defer CloseFrames(frames)

	g := NewPresenceGate(DefaultPresenceThreshold)
	defer g.Close()

	g.Observe(frames[0])
	if arrived, changed := g.Observe(frames[1]); !arrived {
		t.Errorf("subject frames should trigger presence, changed = %f", changed)
	}
}
