package runners

import (
	"context"
	"errors"
	"fmt"

	"github.com/arnavsurve/deskagent/pkg/actionrunner"
	"github.com/arnavsurve/deskagent/pkg/coords"
	"github.com/arnavsurve/deskagent/pkg/imageutil"
	"github.com/arnavsurve/deskagent/pkg/steplog"
	"github.com/arnavsurve/deskagent/pkg/types"
)

// annotateLimit is how many candidates are drawn on the debug frame.
const annotateLimit = 3

type ClickRunner struct {
	ActionCtx actionrunner.ExecutionContext
}

func init() {
	actionrunner.RegisterRunnerFactory(types.ActionClick, func(ctx actionrunner.ExecutionContext) (actionrunner.ActionRunner, error) {
		return &ClickRunner{
			ActionCtx: ctx,
		}, nil
	})
}

func (cr *ClickRunner) Validate() error {
	ec := cr.ActionCtx
	if ec.Action.Kind != types.ActionClick {
		return fmt.Errorf("click runner cannot run %s action", ec.Action.Kind)
	}
	if ec.Desktop == nil {
		return fmt.Errorf("click action requires a desktop")
	}
	if ec.Grounder == nil {
		return fmt.Errorf("click action requires a grounding model")
	}
	if ec.Frame == nil && ec.Capturer == nil {
		return fmt.Errorf("click action requires a frame or a screen capturer")
	}
	return nil
}

func (cr *ClickRunner) Run(ctx context.Context) (*actionrunner.ActionResult, error) {
	ec := cr.ActionCtx
	logger := ec.Logger
	cmdLog := ec.CommandLog
	target := ec.Action.Target

	frame := ec.Frame
	if frame == nil {
		var err error
		frame, err = ec.Capturer.Capture(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrCaptureFailure, err)
		}
	}

	if cmdLog != nil {
		if _, err := cmdLog.SaveScreenshot(frame); err != nil {
			logger.Warn().Err(err).Msg("Failed to save command screenshot")
		}
		cmdLog.SetGroundingRequest(steplog.GroundingRequest{
			Instruction:    target,
			ScreenshotSize: fmt.Sprintf("%dx%d", frame.Width, frame.Height),
			Model:          ec.Settings.GroundingModel,
			TopK:           ec.Settings.TopK,
		})
	}

	logger.Info().
		Str("instruction", target).
		Int("frame_width", frame.Width).
		Int("frame_height", frame.Height).
		Msg("Requesting grounding")

	pred, err := cr.predict(ctx, frame, target)
	if err != nil {
		return nil, err
	}
	if cmdLog != nil {
		cmdLog.SetGroundingResponse(pred)
	}

	best, ok := pred.Best()
	if !ok {
		return nil, fmt.Errorf("%w for %q", types.ErrNoTargetFound, target)
	}
	if best.Score < ec.Settings.ConfidenceThreshold {
		logger.Warn().
			Float64("score", best.Score).
			Float64("threshold", ec.Settings.ConfidenceThreshold).
			Msg("Low grounding confidence")
	}

	if cmdLog != nil {
		candidates := pred.Points
		if len(candidates) > annotateLimit {
			candidates = candidates[:annotateLimit]
		}
		if _, err := cmdLog.SaveDebugScreenshot(imageutil.Annotate(frame.Image, candidates)); err != nil {
			logger.Warn().Err(err).Msg("Failed to save annotated screenshot")
		}
	}

	screenW, screenH, err := ec.Desktop.ScreenSize()
	if err != nil {
		return nil, fmt.Errorf("reading screen size: %w", err)
	}
	mapping, err := coords.ToLogical(best, frame.Width, frame.Height, screenW, screenH)
	if err != nil {
		return nil, err
	}

	logger.Debug().
		Float64("norm_x", best.X).
		Float64("norm_y", best.Y).
		Float64("scale_x", mapping.ScaleX).
		Float64("scale_y", mapping.ScaleY).
		Int("pixel_x", mapping.Pixel.X).
		Int("pixel_y", mapping.Pixel.Y).
		Msg("Transformed coordinates")

	if cmdLog != nil {
		cmdLog.SetSelectedPoint(steplog.SelectedPoint{Normalized: best, Pixel: mapping.Pixel})
	}

	if err := ec.Wait(ctx, ec.Settings.PreActionDelay); err != nil {
		return nil, err
	}
	if err := ec.Desktop.MoveTo(mapping.Pixel.X, mapping.Pixel.Y); err != nil {
		return nil, fmt.Errorf("moving cursor: %w", err)
	}
	if err := ec.Wait(ctx, ec.Settings.SettleDelay); err != nil {
		return nil, err
	}

	result := &actionrunner.ActionResult{Mapping: &mapping}

	ax, ay, err := ec.Desktop.CursorPosition()
	if err != nil {
		logger.Warn().Err(err).Msg("Could not read cursor position after move")
	} else {
		actual := coords.Point{X: ax, Y: ay}
		result.Actual = &actual
		if cmdLog != nil {
			cmdLog.SetActualPoint(actual)
		}
		v := coords.Verify(mapping.Pixel, actual, ec.Settings.Tolerance)
		if v.Mismatch() {
			w := v.Warning()
			result.Mismatch = &w
			logger.Warn().
				Int("error_x", w.ErrorX).
				Int("error_y", w.ErrorY).
				Int("tolerance", w.Tolerance).
				Msg("Coordinate mismatch")
			if cmdLog != nil {
				cmdLog.AddWarning(w.String())
			}
		}
	}

	if err := ec.Desktop.Click(); err != nil {
		return nil, fmt.Errorf("clicking: %w", err)
	}

	result.Success = true
	result.Details = fmt.Sprintf("Clicked at (%d, %d) with score %.3f", mapping.Pixel.X, mapping.Pixel.Y, best.Score)
	if result.Actual != nil {
		result.Details = fmt.Sprintf("Clicked at (%d, %d) with score %.3f", result.Actual.X, result.Actual.Y, best.Score)
	}
	return result, nil
}

func (cr *ClickRunner) predict(ctx context.Context, frame *types.ScreenFrame, instruction string) (*types.Prediction, error) {
	ec := cr.ActionCtx
	if ec.Settings.GroundingTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ec.Settings.GroundingTimeout)
		defer cancel()
	}

	pred, err := ec.Grounder.Predict(ctx, frame, instruction, ec.Settings.TopK)
	if err != nil {
		if errors.Is(err, types.ErrGroundingFailure) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", types.ErrGroundingFailure, err)
	}
	if pred == nil {
		pred = &types.Prediction{}
	}
	return pred, nil
}
