package runners

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/arnavsurve/deskagent/pkg/actionrunner"
	"github.com/arnavsurve/deskagent/pkg/types"
)

// Shortcut is one entry of the known shortcut table.
type Shortcut struct {
	Name string
	// Specs are matched case-insensitively against the whole instruction
	// with surrounding whitespace removed, or as a contained token.
	Specs []string
	Keys  func() []string
}

// Shortcuts lists every shortcut the agent knows how to press.
var Shortcuts = []Shortcut{
	{
		Name:  "new tab",
		Specs: []string{"command+t", "cmd+t", "ctrl+t", "control+t"},
		Keys:  func() []string { return []string{primaryModifier(), "t"} },
	},
}

func primaryModifier() string {
	if runtime.GOOS == "darwin" {
		return "cmd"
	}
	return "ctrl"
}

// LookupShortcut finds the table entry whose spec appears in instruction.
func LookupShortcut(instruction string) (Shortcut, bool) {
	normalized := strings.ToLower(strings.Join(strings.Fields(instruction), " "))
	normalized = strings.ReplaceAll(normalized, " + ", "+")
	for _, sc := range Shortcuts {
		for _, spec := range sc.Specs {
			if strings.Contains(normalized, spec) {
				return sc, true
			}
		}
	}
	return Shortcut{}, false
}

type ShortcutRunner struct {
	ActionCtx actionrunner.ExecutionContext
}

func init() {
	actionrunner.RegisterRunnerFactory(types.ActionShortcut, func(ctx actionrunner.ExecutionContext) (actionrunner.ActionRunner, error) {
		return &ShortcutRunner{
			ActionCtx: ctx,
		}, nil
	})
}

func (sr *ShortcutRunner) Validate() error {
	ec := sr.ActionCtx
	if ec.Action.Kind != types.ActionShortcut {
		return fmt.Errorf("shortcut runner cannot run %s action", ec.Action.Kind)
	}
	if ec.Desktop == nil {
		return fmt.Errorf("shortcut action requires a desktop")
	}
	return nil
}

func (sr *ShortcutRunner) Run(ctx context.Context) (*actionrunner.ActionResult, error) {
	ec := sr.ActionCtx
	spec := ec.Action.Spec

	sc, ok := LookupShortcut(spec)
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrUnimplementedShortcut, spec)
	}

	if err := ec.Wait(ctx, ec.Settings.PreActionDelay); err != nil {
		return nil, err
	}

	keys := sc.Keys()
	ec.Logger.Info().Str("shortcut", sc.Name).Interface("keys", keys).Msg("Pressing shortcut")
	if err := ec.Desktop.Hotkey(keys...); err != nil {
		return nil, fmt.Errorf("pressing %s: %w", sc.Name, err)
	}

	return &actionrunner.ActionResult{
		Success: true,
		Details: fmt.Sprintf("Executed shortcut: %s (%s)", sc.Name, strings.Join(keys, "+")),
	}, nil
}
