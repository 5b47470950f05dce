package runners

import (
	"context"
	"fmt"

	"github.com/arnavsurve/deskagent/pkg/actionrunner"
	"github.com/arnavsurve/deskagent/pkg/types"
)

type TypeRunner struct {
	ActionCtx actionrunner.ExecutionContext
}

func init() {
	actionrunner.RegisterRunnerFactory(types.ActionType, func(ctx actionrunner.ExecutionContext) (actionrunner.ActionRunner, error) {
		return &TypeRunner{
			ActionCtx: ctx,
		}, nil
	})
}

func (tr *TypeRunner) Validate() error {
	ec := tr.ActionCtx
	if ec.Action.Kind != types.ActionType {
		return fmt.Errorf("type runner cannot run %s action", ec.Action.Kind)
	}
	if ec.Desktop == nil {
		return fmt.Errorf("type action requires a desktop")
	}
	return nil
}

func (tr *TypeRunner) Run(ctx context.Context) (*actionrunner.ActionResult, error) {
	ec := tr.ActionCtx
	text := ec.Action.Text

	if err := ec.Wait(ctx, ec.Settings.PreActionDelay); err != nil {
		return nil, err
	}

	ec.Logger.Info().Str("text", text).Msg("Typing text")
	if err := ec.Desktop.TypeText(text, ec.Settings.KeystrokeDelay); err != nil {
		return nil, fmt.Errorf("typing text: %w", err)
	}

	return &actionrunner.ActionResult{
		Success: true,
		Details: fmt.Sprintf("Typed: %s", text),
	}, nil
}
