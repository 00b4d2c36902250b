package extraction

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/framegrab/framegrab-extraction-service/internal/domain/entity"
)

// CropFrame extracts the region of interest from a decoded frame. A nil roi
// returns the frame unchanged. The rectangle is clamped into the frame's
// actual bounds first; the frame should match the source metadata, but
// clamping guards against any mismatch. Only a zero-area region after
// clamping is an error.
func CropFrame(frame image.Image, roi *entity.Rectangle) (image.Image, error) {
	if roi == nil {
		return frame, nil
	}

	b := frame.Bounds()
	clamped := roi.Clamp(b.Dx(), b.Dy())
	if clamped.Area() == 0 {
		return nil, fmt.Errorf("%w: %s clamped to %dx%d frame", entity.ErrInvalidROI, roi, b.Dx(), b.Dy())
	}

	rect := image.Rect(
		b.Min.X+clamped.X,
		b.Min.Y+clamped.Y,
		b.Min.X+clamped.X+clamped.Width,
		b.Min.Y+clamped.Y+clamped.Height,
	)

	if sub, ok := frame.(interface {
		SubImage(image.Rectangle) image.Image
	}); ok {
		return sub.SubImage(rect), nil
	}

	out := image.NewRGBA(image.Rect(0, 0, clamped.Width, clamped.Height))
	draw.Draw(out, out.Bounds(), frame, rect.Min, draw.Src)
	return out, nil
}
