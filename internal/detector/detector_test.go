package detector

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/ayusman/livecheck/internal/geometry"
	"gocv.io/x/gocv"
)

const epsilon = 1e-9

func flatFace(score float64, lm geometry.Landmarks) jsonFace {
	return jsonFace{Score: score, Box: [4]int{10, 20, 100, 120}, Points: lm.Points()}
}

func TestJSONFace_ToFace(t *testing.T) {
	t.Run("flat points", func(t *testing.T) {
		lm := geometry.SyntheticFace(0.3, 0.2, 0.5)
		face, err := flatFace(0.9, lm).toFace()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if face.Landmarks != lm {
			t.Error("landmarks did not survive conversion")
		}
		if face.Box.Min.X != 10 || face.Box.Min.Y != 20 || face.Box.Dx() != 100 || face.Box.Dy() != 120 {
			t.Errorf("unexpected box %v", face.Box)
		}
		if face.Score != 0.9 {
			t.Errorf("expected score 0.9, got %f", face.Score)
		}
	})

	t.Run("named groups", func(t *testing.T) {
		lm := geometry.OpenFace()
		jf := jsonFace{
			Score: 0.8,
			Groups: map[string][]geometry.Point{
				geometry.GroupJaw:       lm.Jaw[:],
				geometry.GroupNoseRidge: lm.NoseRidge[:],
				geometry.GroupLeftEye:   lm.LeftEye[:],
				geometry.GroupRightEye:  lm.RightEye[:],
				geometry.GroupMouth:     lm.Mouth[:],
			},
		}
		face, err := jf.toFace()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if math.Abs(face.Landmarks.AverageEAR()-0.35) > epsilon {
			t.Errorf("expected EAR 0.35, got %f", face.Landmarks.AverageEAR())
		}
	})

	t.Run("short point list", func(t *testing.T) {
		jf := jsonFace{Score: 0.9, Points: make([]geometry.Point, 10)}
		if _, err := jf.toFace(); !errors.Is(err, geometry.ErrLandmarkCount) {
			t.Errorf("expected ErrLandmarkCount, got %v", err)
		}
	})

	t.Run("missing group", func(t *testing.T) {
		jf := jsonFace{Score: 0.9, Groups: map[string][]geometry.Point{
			geometry.GroupJaw: make([]geometry.Point, geometry.JawPoints),
		}}
		if _, err := jf.toFace(); !errors.Is(err, geometry.ErrGroupArity) {
			t.Errorf("expected ErrGroupArity, got %v", err)
		}
	})
}

func TestSelectFace(t *testing.T) {
	good := geometry.OpenFace()

	t.Run("no faces", func(t *testing.T) {
		face, err := selectFace(nil, 0.5)
		if err != nil || face != nil {
			t.Errorf("expected nil, nil; got %v, %v", face, err)
		}
	})

	t.Run("highest score wins", func(t *testing.T) {
		faces := []jsonFace{flatFace(0.6, good), flatFace(0.9, good), flatFace(0.7, good)}
		face, err := selectFace(faces, 0.5)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if face.Score != 0.9 {
			t.Errorf("expected 0.9, got %f", face.Score)
		}
	})

	t.Run("below confidence dropped", func(t *testing.T) {
		faces := []jsonFace{flatFace(0.3, good), flatFace(0.49, good)}
		face, err := selectFace(faces, 0.5)
		if err != nil || face != nil {
			t.Errorf("expected nil, nil; got %v, %v", face, err)
		}
	})

	t.Run("malformed face skipped", func(t *testing.T) {
		bad := jsonFace{Score: 0.99, Points: make([]geometry.Point, 5)}
		face, err := selectFace([]jsonFace{bad, flatFace(0.7, good)}, 0.5)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if face == nil || face.Score != 0.7 {
			t.Errorf("expected the valid face, got %v", face)
		}
	})

	t.Run("all malformed", func(t *testing.T) {
		bad := jsonFace{Score: 0.99, Points: make([]geometry.Point, 5)}
		_, err := selectFace([]jsonFace{bad}, 0.5)
		if !errors.Is(err, geometry.ErrLandmarkCount) {
			t.Errorf("expected ErrLandmarkCount, got %v", err)
		}
	})
}

func TestJSONResponse_Decode(t *testing.T) {
	lm := geometry.OpenFace()
	raw, err := json.Marshal(jsonResponse{Faces: []jsonFace{flatFace(0.8, lm)}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var resp jsonResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	face, err := selectFace(resp.Faces, 0.5)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if face.Landmarks != lm {
		t.Error("landmarks changed on the wire")
	}
}

func TestMockDetector(t *testing.T) {
	ctx := context.Background()
	frame := gocv.NewMat()
	defer frame.Close()

	t.Run("no face by default", func(t *testing.T) {
		m := NewMockDetector()
		face, err := m.Detect(ctx, &frame)
		if err != nil || face != nil {
			t.Errorf("expected nil, nil; got %v, %v", face, err)
		}
		if m.Calls() != 1 {
			t.Errorf("expected 1 call, got %d", m.Calls())
		}
	})

	t.Run("sequence then sticky last", func(t *testing.T) {
		m := NewMockDetector()
		m.SetSequence(OpenFace(0.5), BlinkFace(0.6))

		scores := []float64{0.5, 0.6, 0.6}
		for i, want := range scores {
			face, err := m.Detect(ctx, &frame)
			if err != nil {
				t.Fatalf("call %d: %v", i, err)
			}
			if face.Score != want {
				t.Errorf("call %d: expected %f, got %f", i, want, face.Score)
			}
		}
	})

	t.Run("error", func(t *testing.T) {
		m := NewMockDetector()
		want := errors.New("boom")
		m.SetError(want)
		if _, err := m.Detect(ctx, &frame); !errors.Is(err, want) {
			t.Errorf("expected %v, got %v", want, err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		m := NewMockDetector()
		m.SetFace(OpenFace(0.9))
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := m.Detect(cctx, &frame); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("returned face is a copy", func(t *testing.T) {
		m := NewMockDetector()
		m.SetFace(OpenFace(0.9))
		face, _ := m.Detect(ctx, &frame)
		face.Score = 0
		again, _ := m.Detect(ctx, &frame)
		if again.Score != 0.9 {
			t.Errorf("mock state leaked, got %f", again.Score)
		}
	})

	t.Run("close", func(t *testing.T) {
		m := NewMockDetector()
		m.Close()
		if !m.Closed() {
			t.Error("expected closed")
		}
	})
}

func TestFixtureFaces(t *testing.T) {
	const threshold = 0.30

	if BlinkFace(1).Landmarks.AverageEAR() >= threshold {
		t.Error("BlinkFace eyes should read closed")
	}
	if OpenFace(1).Landmarks.AverageEAR() < threshold {
		t.Error("OpenFace eyes should read open")
	}
	if MouthOpenFace(1).Landmarks.MAR() <= threshold {
		t.Error("MouthOpenFace mouth should read open")
	}
	ratio, ok := TurnedFace(1, 0.2).Landmarks.NoseRelX()
	if !ok || math.Abs(ratio-0.2) > epsilon {
		t.Errorf("expected ratio 0.2, got %f (ok=%v)", ratio, ok)
	}
}

func TestNewServiceDetector_MissingScript(t *testing.T) {
	_, err := NewServiceDetector(Config{ScriptPath: "/nonexistent/face_landmark_service.py"})
	if !errors.Is(err, ErrServiceNotFound) {
		t.Errorf("expected ErrServiceNotFound, got %v", err)
	}
}

func TestServiceDetector_EmptyFrame(t *testing.T) {
	d := &ServiceDetector{config: DefaultConfig()}
	empty := gocv.NewMat()
	defer empty.Close()

	face, err := d.Detect(context.Background(), &empty)
	if err != nil || face != nil {
		t.Errorf("expected nil, nil for empty frame; got %v, %v", face, err)
	}
	if d.started {
		t.Error("service should not start for an empty frame")
	}
}
