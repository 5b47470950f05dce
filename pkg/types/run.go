package types

import "time"

type RunState string

const (
	StateRunning              RunState = "RUNNING"
	StateGoalComplete         RunState = "GOAL_COMPLETE"
	StateMaxIterationsReached RunState = "MAX_ITERATIONS_REACHED"
	StateStoppedExternally    RunState = "STOPPED_EXTERNALLY"
	StateFailed               RunState = "FAILED"
)

// Terminal reports whether no further iterations may run from this state.
func (s RunState) Terminal() bool {
	return s != StateRunning && s != ""
}

// IterationRecord is the append-only record of one loop pass.
type IterationRecord struct {
	Index             int       `json:"index"`
	ScreenshotPath    string    `json:"screenshot_path"`
	PlannerActionText string    `json:"planner_action_text"`
	ActionText        string    `json:"action_text"`
	ParsedAction      *Action   `json:"parsed_action,omitempty"`
	ExecutionSuccess  bool      `json:"execution_success"`
	LoopBroken        bool      `json:"loop_broken,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

// RunResult is returned once a goal run reaches a terminal state.
type RunResult struct {
	RunID      string            `json:"run_id"`
	Goal       string            `json:"goal"`
	State      RunState          `json:"state"`
	Iterations int               `json:"iterations"`
	Records    []IterationRecord `json:"records"`
	Error      string            `json:"error,omitempty"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
}

// Succeeded reports whether the goal was reached.
func (r *RunResult) Succeeded() bool {
	return r != nil && r.State == StateGoalComplete
}
