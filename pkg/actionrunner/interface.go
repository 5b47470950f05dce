// Package actionrunner turns parsed actions into OS effects. Each action kind
// has a runner registered under its kind; GetRunner resolves the runner for
// an ExecutionContext.
package actionrunner

import (
	"context"
	"time"

	"github.com/arnavsurve/deskagent/pkg/coords"
	"github.com/arnavsurve/deskagent/pkg/steplog"
	"github.com/arnavsurve/deskagent/pkg/types"
)

type ActionRunner interface {
	Validate() error
	Run(ctx context.Context) (*ActionResult, error)
}

// ActionResult describes a completed action. Details is human readable and
// ends up in the command log.
type ActionResult struct {
	Success  bool
	Details  string
	Mapping  *coords.Mapping
	Actual   *coords.Point
	Mismatch *types.CoordinateMismatch
}

type Settings struct {
	PreActionDelay      time.Duration
	SettleDelay         time.Duration
	KeystrokeDelay      time.Duration
	GroundingTimeout    time.Duration
	TopK                int
	Tolerance           int
	ConfidenceThreshold float64
	// GroundingModel is recorded in the command log only.
	GroundingModel string
}

func DefaultSettings() Settings {
	return Settings{
		PreActionDelay:      500 * time.Millisecond,
		SettleDelay:         time.Second,
		KeystrokeDelay:      50 * time.Millisecond,
		GroundingTimeout:    60 * time.Second,
		TopK:                3,
		Tolerance:           coords.DefaultTolerance,
		ConfidenceThreshold: 0.7,
	}
}

// ExecutionContext carries everything a runner needs for one action.
type ExecutionContext struct {
	Action types.Action
	// Frame is the iteration's capture. Click runners capture a fresh frame
	// when it is nil.
	Frame      *types.ScreenFrame
	Logger     types.Logger
	CommandLog *steplog.CommandLog
	Desktop    types.Desktop
	Grounder   types.Grounder
	Capturer   types.Capturer
	Settings   Settings
	// Sleep defaults to a context-aware time.Sleep. Tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Wait pauses for d, returning early with the context error if ctx ends.
func (ec ExecutionContext) Wait(ctx context.Context, d time.Duration) error {
	if ec.Sleep != nil {
		return ec.Sleep(ctx, d)
	}
	return Sleep(ctx, d)
}

func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
