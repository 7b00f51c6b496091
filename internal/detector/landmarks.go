package detector

import (
	"fmt"
	"image"

	"github.com/ayusman/livecheck/internal/geometry"
)

// jsonFace is one face as reported by the landmark service. The service
// sends either a flat 68-point list or named groups.
type jsonFace struct {
	Score  float64                     `json:"score"`
	Box    [4]int                      `json:"box"` // x, y, width, height
	Points []geometry.Point            `json:"points,omitempty"`
	Groups map[string][]geometry.Point `json:"groups,omitempty"`
}

type jsonResponse struct {
	Faces []jsonFace `json:"faces"`
	Error string     `json:"error,omitempty"`
}

// toFace validates the landmark layout and converts it to a Face.
func (f jsonFace) toFace() (*Face, error) {
	var (
		lm  geometry.Landmarks
		err error
	)
	if len(f.Groups) > 0 {
		lm, err = geometry.FromGroups(f.Groups)
	} else {
		lm, err = geometry.FromPoints(f.Points)
	}
	if err != nil {
		return nil, err
	}

	return &Face{
		Score:     f.Score,
		Box:       image.Rect(f.Box[0], f.Box[1], f.Box[0]+f.Box[2], f.Box[1]+f.Box[3]),
		Landmarks: lm,
	}, nil
}

// selectFace returns the highest-scoring face at or above minConfidence.
// Faces with a malformed landmark layout are skipped; if every candidate is
// malformed the last validation error is returned.
func selectFace(faces []jsonFace, minConfidence float64) (*Face, error) {
	var (
		best    *Face
		lastErr error
	)
	for i, jf := range faces {
		if jf.Score < minConfidence {
			continue
		}
		if best != nil && jf.Score <= best.Score {
			continue
		}
		face, err := jf.toFace()
		if err != nil {
			lastErr = fmt.Errorf("face %d: %w", i, err)
			continue
		}
		best = face
	}

	if best == nil && lastErr != nil {
		return nil, lastErr
	}
	return best, nil
}
