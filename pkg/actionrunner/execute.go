package actionrunner

import (
	"context"
	"errors"
	"fmt"

	"github.com/arnavsurve/deskagent/pkg/log"
	"github.com/arnavsurve/deskagent/pkg/types"
	"github.com/rs/zerolog"
)

// Execute resolves, validates and runs the action in ec, recording the
// attempt and its outcome on ec.CommandLog. The returned error is the
// runner's failure; callers decide whether it is fatal.
func Execute(ctx context.Context, ec ExecutionContext) (*ActionResult, error) {
	if ec.Logger == nil {
		ec.Logger = log.NewZerologAdapter(zerolog.Nop())
	}
	logger := ec.Logger

	runner, err := GetRunner(ec)
	if err != nil {
		return nil, err
	}
	if err := runner.Validate(); err != nil {
		return nil, fmt.Errorf("validating %s action: %w", ec.Action.Kind, err)
	}

	if ec.CommandLog != nil {
		ec.CommandLog.AddAttempt()
	}

	result, err := runner.Run(ctx)
	if err != nil {
		if ec.CommandLog != nil {
			ec.CommandLog.AddError(err.Error())
			ec.CommandLog.SetExecutionResult(false, ec.Action.Kind, err.Error())
		}
		var ev types.Event
		if errors.Is(err, context.Canceled) {
			ev = logger.Warn()
		} else {
			ev = logger.Error()
		}
		ev.Err(err).Str("action", ec.Action.String()).Msg("Action failed")
		return result, err
	}

	if ec.CommandLog != nil {
		ec.CommandLog.SetExecutionResult(result.Success, ec.Action.Kind, result.Details)
	}
	logger.Info().Str("action", ec.Action.String()).Bool("success", result.Success).Msg(result.Details)
	return result, nil
}
