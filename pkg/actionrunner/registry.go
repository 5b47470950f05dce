package actionrunner

import (
	"fmt"

	"github.com/arnavsurve/deskagent/pkg/types"
)

type RunnerFactory func(ctx ExecutionContext) (ActionRunner, error)

// registry stores one factory per action kind. Runners add themselves from
// their init() functions.
var registry = map[types.ActionKind]RunnerFactory{}

func RegisterRunnerFactory(kind types.ActionKind, factory RunnerFactory) {
	registry[kind] = factory
}

// GetRunner returns a runner for the context's action kind.
func GetRunner(ctx ExecutionContext) (ActionRunner, error) {
	kind := ctx.Action.Kind
	factory, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("no runner registered for action type: %s", kind)
	}

	return factory(ctx)
}
