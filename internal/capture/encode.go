package capture

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// DefaultJPEGQuality is used for captures and the preview stream.
const DefaultJPEGQuality = 90

// ErrEmptyFrame is returned when encoding a nil or empty frame.
var ErrEmptyFrame = errors.New("frame is empty")

// EncodeJPEG encodes frame as a JPEG at the given quality (1-100).
// The returned slice is owned by the caller.
func EncodeJPEG(frame *gocv.Mat, quality int) ([]byte, error) {
	if frame == nil || frame.Empty() {
		return nil, ErrEmptyFrame
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, *frame, []int{int(gocv.IMWriteJpegQuality), quality})
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()

	return append([]byte(nil), buf.GetBytes()...), nil
}
