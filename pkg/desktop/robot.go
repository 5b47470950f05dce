// Package desktop drives the local display through robotgo: screen capture
// for the agent's eyes, mouse and keyboard for its hands.
package desktop

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/arnavsurve/deskagent/pkg/imageutil"
	"github.com/arnavsurve/deskagent/pkg/types"
	"github.com/go-vgo/robotgo"
)

// DefaultMaxScreenshotSize bounds the longest side of frames handed to the
// models.
const DefaultMaxScreenshotSize = 768

// Robot implements types.Desktop and types.Capturer on the real display.
type Robot struct {
	MaxScreenshotSize int
	Logger            types.Logger

	grab  func() (image.Image, error)
	sleep func(time.Duration)
}

func NewRobot(maxScreenshotSize int, logger types.Logger) *Robot {
	return &Robot{
		MaxScreenshotSize: maxScreenshotSize,
		Logger:            logger,
		grab:              grabScreen,
		sleep:             time.Sleep,
	}
}

func grabScreen() (image.Image, error) {
	return robotgo.CaptureImg()
}

// Capture grabs the full display and downscales it so neither side exceeds
// MaxScreenshotSize. The frame reports the downscaled dimensions.
func (r *Robot) Capture(ctx context.Context) (*types.ScreenFrame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := r.grab()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrCaptureFailure, err)
	}
	if img == nil {
		return nil, fmt.Errorf("%w: empty capture", types.ErrCaptureFailure)
	}

	src := img.Bounds()
	scaled := imageutil.FitWithin(img, r.MaxScreenshotSize)
	frame := types.NewScreenFrame(scaled, src.Dx(), src.Dy())

	if r.Logger != nil {
		r.Logger.Debug().
			Int("source_width", frame.SourceWidth).
			Int("source_height", frame.SourceHeight).
			Int("width", frame.Width).
			Int("height", frame.Height).
			Msg("Captured screen")
	}
	return frame, nil
}

func (r *Robot) MoveTo(x, y int) error {
	robotgo.Move(x, y)
	return nil
}

func (r *Robot) Click() error {
	robotgo.Click("left", false)
	return nil
}

// TypeText types text one character at a time, pausing perCharDelay between
// characters.
func (r *Robot) TypeText(text string, perCharDelay time.Duration) error {
	for _, ch := range text {
		robotgo.TypeStr(string(ch))
		if perCharDelay > 0 {
			r.sleep(perCharDelay)
		}
	}
	return nil
}

func (r *Robot) PressKey(key string) error {
	if err := robotgo.KeyTap(key); err != nil {
		return fmt.Errorf("pressing %s: %w", key, err)
	}
	return nil
}

// Hotkey presses the last key while holding the others, so
// Hotkey("cmd", "t") opens a new tab on macOS.
func (r *Robot) Hotkey(keys ...string) error {
	if len(keys) == 0 {
		return fmt.Errorf("hotkey requires at least one key")
	}
	key := keys[len(keys)-1]
	mods := make([]interface{}, 0, len(keys)-1)
	for _, m := range keys[:len(keys)-1] {
		mods = append(mods, m)
	}
	if err := robotgo.KeyTap(key, mods...); err != nil {
		return fmt.Errorf("pressing %v: %w", keys, err)
	}
	return nil
}

func (r *Robot) CursorPosition() (int, int, error) {
	x, y := robotgo.Location()
	return x, y, nil
}

func (r *Robot) ScreenSize() (int, int, error) {
	w, h := robotgo.GetScreenSize()
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("display reported size %dx%d", w, h)
	}
	return w, h, nil
}
