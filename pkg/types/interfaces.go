package types

import (
	"context"
	"time"
)

// Capturer grabs the current display.
type Capturer interface {
	Capture(ctx context.Context) (*ScreenFrame, error)
}

// Grounder maps an instruction to candidate points on a frame.
type Grounder interface {
	Predict(ctx context.Context, frame *ScreenFrame, instruction string, topK int) (*Prediction, error)
}

// PlanRequest carries everything the planning service sees for one iteration.
type PlanRequest struct {
	Frame         *ScreenFrame
	FramePath     string
	Goal          string
	RecentActions []string
}

// Planner returns the next natural-language action for a goal.
type Planner interface {
	NextAction(ctx context.Context, req PlanRequest) (string, error)
}

// Desktop is the set of OS input primitives the executor drives.
type Desktop interface {
	MoveTo(x, y int) error
	Click() error
	TypeText(text string, perCharDelay time.Duration) error
	PressKey(key string) error
	Hotkey(keys ...string) error
	CursorPosition() (int, int, error)
	ScreenSize() (int, int, error)
}
