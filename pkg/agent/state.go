package agent

import (
	"strings"
	"sync"
	"time"

	"github.com/arnavsurve/deskagent/pkg/types"
	"github.com/google/uuid"
)

// StopToken is a one-shot cooperative stop signal. The loop polls it at
// iteration boundaries; an in-flight model call is not interrupted.
type StopToken struct {
	once sync.Once
	ch   chan struct{}
}

func NewStopToken() *StopToken {
	return &StopToken{ch: make(chan struct{})}
}

func (t *StopToken) Stop() {
	t.once.Do(func() { close(t.ch) })
}

func (t *StopToken) Stopped() bool {
	select {
	case <-t.ch:
		return true
	default:
		return false
	}
}

func (t *StopToken) Done() <-chan struct{} {
	return t.ch
}

// LoopState is the mutable state of one goal run. It is owned by the loop
// goroutine; other goroutines observe it through Status updates.
type LoopState struct {
	RunID         string
	Goal          string
	Iteration     int
	MaxIterations int
	History       *ActionHistory
	ClickAttempts int
	Records       []types.IterationRecord
	State         types.RunState
	Err           error
	StartedAt     time.Time
	Stop          *StopToken
}

func NewLoopState(goal string, maxIterations int) *LoopState {
	return &LoopState{
		RunID:         uuid.NewString(),
		Goal:          goal,
		MaxIterations: maxIterations,
		History:       NewActionHistory(DefaultHistoryCapacity),
		State:         types.StateRunning,
		StartedAt:     time.Now(),
		Stop:          NewStopToken(),
	}
}

// RecentActions returns the executed action texts of the last n iterations,
// oldest first.
func (s *LoopState) RecentActions(n int) []string {
	start := len(s.Records) - n
	if start < 0 {
		start = 0
	}
	var out []string
	for _, r := range s.Records[start:] {
		out = append(out, r.ActionText)
	}
	return out
}

func (s *LoopState) lastAction() string {
	if len(s.Records) == 0 {
		return ""
	}
	return s.Records[len(s.Records)-1].ActionText
}

// Result snapshots the run as a RunResult.
func (s *LoopState) Result() *types.RunResult {
	res := &types.RunResult{
		RunID:      s.RunID,
		Goal:       s.Goal,
		State:      s.State,
		Iterations: s.Iteration,
		Records:    append([]types.IterationRecord(nil), s.Records...),
		StartedAt:  s.StartedAt,
		FinishedAt: time.Now(),
	}
	if s.Err != nil {
		res.Error = s.Err.Error()
	}
	return res
}

// Status is the read-only view of a run exposed to control surfaces.
type Status struct {
	Running       bool           `json:"running"`
	RunID         string         `json:"run_id,omitempty"`
	Goal          string         `json:"goal,omitempty"`
	Iteration     int            `json:"iteration"`
	MaxIterations int            `json:"max_iterations"`
	LastAction    string         `json:"last_action,omitempty"`
	State         types.RunState `json:"state,omitempty"`
	LastError     string         `json:"last_error,omitempty"`
}

func (s *LoopState) Status() Status {
	st := Status{
		Running:       !s.State.Terminal(),
		RunID:         s.RunID,
		Goal:          s.Goal,
		Iteration:     s.Iteration,
		MaxIterations: s.MaxIterations,
		LastAction:    s.lastAction(),
		State:         s.State,
	}
	if s.Err != nil {
		st.LastError = s.Err.Error()
	}
	return st
}

// IsGoalComplete reports whether a planner response signals that the goal
// has been reached.
func IsGoalComplete(response string) bool {
	return strings.Contains(strings.ToUpper(response), CompletionMarker) ||
		strings.Contains(strings.ToLower(response), completionPhrase)
}

const (
	CompletionMarker = "GOAL_COMPLETE"
	completionPhrase = "goal is achieved"
)
