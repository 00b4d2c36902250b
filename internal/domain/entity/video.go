package entity

import "fmt"

// VideoMetadata describes an opened video stream. It is read once when the
// source is opened and does not change for the lifetime of a job.
type VideoMetadata struct {
	DurationSeconds float64
	FrameRate       float64
	Width           int
	Height          int
}

// Rectangle is a region of interest in source-pixel coordinates. It is
// always normalized: Width and Height are non-negative regardless of the
// drag direction the caller used to define it.
type Rectangle struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// NewRectangle builds a normalized Rectangle from two corner points.
func NewRectangle(x1, y1, x2, y2 int) Rectangle {
	if x2 < x1 {
		x1, x2 = x2, x1
	}
	if y2 < y1 {
		y1, y2 = y2, y1
	}
	return Rectangle{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// Clamp restricts the rectangle to a frameW x frameH frame. The result may
// have zero area when the rectangle lies entirely outside the frame.
func (r Rectangle) Clamp(frameW, frameH int) Rectangle {
	x, y := r.X, r.Y
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	if x > frameW {
		x = frameW
	}
	if y > frameH {
		y = frameH
	}
	w := r.X + r.Width - x
	h := r.Y + r.Height - y
	if x+w > frameW {
		w = frameW - x
	}
	if y+h > frameH {
		h = frameH - y
	}
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return Rectangle{X: x, Y: y, Width: w, Height: h}
}

// Area returns the rectangle's area in pixels.
func (r Rectangle) Area() int {
	return r.Width * r.Height
}

func (r Rectangle) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.X, r.Y)
}

// ExtractionConfig is the full set of inputs for one extraction job.
// The ROI, when present, is already translated to source-pixel coordinates
// by the caller. The config is immutable for the duration of the job.
type ExtractionConfig struct {
	IntervalSeconds float64
	FramesPerSecond int
	ROI             *Rectangle
	OutputDir       string
}

// SampleRequest is one planned decode. Index is the global ordinal across
// the run and equals emission and output order.
type SampleRequest struct {
	Index            int
	TimestampSeconds float64
	IntervalIndex    int
}

// ExtractionResult accumulates over a run and is valid even when the run
// was cancelled partway through.
type ExtractionResult struct {
	FramesWritten int
	SkippedFrames int
	OutputPaths   []string
}
