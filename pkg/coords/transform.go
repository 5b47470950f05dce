// Package coords maps normalized grounding predictions onto the logical
// screen coordinate space used by OS input primitives.
package coords

import (
	"fmt"
	"math"

	"github.com/arnavsurve/deskagent/pkg/types"
)

// DefaultTolerance is the largest per-axis cursor error, in pixels, that is
// not reported as a coordinate mismatch.
const DefaultTolerance = 5

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Mapping is the full trace of one conversion, kept for the step log.
type Mapping struct {
	Normalized   types.PredictedPoint `json:"normalized"`
	ScreenshotX  float64              `json:"screenshot_x"`
	ScreenshotY  float64              `json:"screenshot_y"`
	ScaleX       float64              `json:"scale_x"`
	ScaleY       float64              `json:"scale_y"`
	FrameWidth   int                  `json:"frame_width"`
	FrameHeight  int                  `json:"frame_height"`
	ScreenWidth  int                  `json:"screen_width"`
	ScreenHeight int                  `json:"screen_height"`
	Pixel        Point                `json:"pixel"`
}

// ToLogical converts p, normalized against a frame of frameW x frameH pixels,
// into a logical screen coordinate on a screenW x screenH display.
func ToLogical(p types.PredictedPoint, frameW, frameH, screenW, screenH int) (Mapping, error) {
	if frameW <= 0 || frameH <= 0 {
		return Mapping{}, fmt.Errorf("invalid frame dimensions %dx%d", frameW, frameH)
	}
	if screenW <= 0 || screenH <= 0 {
		return Mapping{}, fmt.Errorf("invalid screen dimensions %dx%d", screenW, screenH)
	}

	x := clamp01(p.X)
	y := clamp01(p.Y)

	m := Mapping{
		Normalized:   p,
		ScreenshotX:  x * float64(frameW),
		ScreenshotY:  y * float64(frameH),
		ScaleX:       float64(screenW) / float64(frameW),
		ScaleY:       float64(screenH) / float64(frameH),
		FrameWidth:   frameW,
		FrameHeight:  frameH,
		ScreenWidth:  screenW,
		ScreenHeight: screenH,
	}
	m.Pixel = Point{
		X: int(math.Round(m.ScreenshotX * m.ScaleX)),
		Y: int(math.Round(m.ScreenshotY * m.ScaleY)),
	}
	return m, nil
}

// Verification compares where the cursor was sent with where it landed.
type Verification struct {
	Target    Point `json:"target"`
	Actual    Point `json:"actual"`
	ErrorX    int   `json:"error_x"`
	ErrorY    int   `json:"error_y"`
	Tolerance int   `json:"tolerance"`
}

// Mismatch reports whether either axis is off by more than the tolerance.
func (v Verification) Mismatch() bool {
	return v.ErrorX > v.Tolerance || v.ErrorY > v.Tolerance
}

// Warning returns the advisory record for a mismatched verification.
func (v Verification) Warning() types.CoordinateMismatch {
	return types.CoordinateMismatch{
		TargetX:   v.Target.X,
		TargetY:   v.Target.Y,
		ActualX:   v.Actual.X,
		ActualY:   v.Actual.Y,
		ErrorX:    v.ErrorX,
		ErrorY:    v.ErrorY,
		Tolerance: v.Tolerance,
	}
}

func Verify(target, actual Point, tolerance int) Verification {
	return Verification{
		Target:    target,
		Actual:    actual,
		ErrorX:    abs(actual.X - target.X),
		ErrorY:    abs(actual.Y - target.Y),
		Tolerance: tolerance,
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
