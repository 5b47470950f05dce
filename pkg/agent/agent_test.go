package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/arnavsurve/deskagent/internal/testutil"
	"github.com/arnavsurve/deskagent/pkg/command"
	"github.com/arnavsurve/deskagent/pkg/steplog"
	"github.com/arnavsurve/deskagent/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/arnavsurve/deskagent/pkg/actionrunner/runners"
)

type harness struct {
	engine   *Engine
	planner  *testutil.Planner
	grounder *testutil.Grounder
	desktop  *testutil.Desktop
	capturer *testutil.Capturer
	logsDir  string
}

func newHarness(t *testing.T, responses ...string) *harness {
	t.Helper()
	h := &harness{
		planner:  &testutil.Planner{Responses: responses},
		grounder: &testutil.Grounder{Points: []types.PredictedPoint{{X: 0.5, Y: 0.5, Score: 0.9}}},
		desktop:  testutil.NewDesktop(1000, 800),
		capturer: testutil.NewCapturer(1000, 800),
		logsDir:  t.TempDir(),
	}

	e := NewEngine(testutil.NopLogger(), DefaultConfig())
	e.Planner = h.planner
	e.Grounder = h.grounder
	e.Desktop = h.desktop
	e.Capturer = h.capturer
	e.Commands = steplog.NewStore(h.logsDir)
	e.Sleep = testutil.NoSleep
	h.engine = e
	return h
}

func (h *harness) run(t *testing.T, goal string, maxIterations int) (*types.RunResult, error) {
	t.Helper()
	return h.engine.ExecuteGoal(context.Background(), NewLoopState(goal, maxIterations))
}

func TestActionHistory(t *testing.T) {
	h := NewActionHistory(3)
	for _, a := range []string{"a", "b", "c", "d", "e"} {
		h.Push(a)
		assert.LessOrEqual(t, h.Len(), 3)
	}
	assert.Equal(t, []string{"c", "d", "e"}, h.Items())
	assert.False(t, h.IsLooping())

	h.Clear()
	h.Push("Click OK")
	h.Push(" click ok ")
	assert.False(t, h.IsLooping(), "never loops with fewer than three entries")

	h.Push("CLICK OK")
	assert.True(t, h.IsLooping())

	h.Clear()
	assert.Zero(t, h.Len())
}

func TestTypeGoalFallback(t *testing.T) {
	tests := []struct {
		goal string
		want string
	}{
		{goal: "Find a YouTube video about Go generics", want: "Go generics"},
		{goal: "Watch a video on how to bake bread", want: "bake bread"},
		{goal: "Play a video for kids", want: "kids"},
		{goal: "Open the YouTube contact page", want: "Open the YouTube contact page"},
		{goal: "Search the web for cats", want: "Search the web for cats"},
		{goal: "  Send an email  ", want: "Send an email"},
	}

	policy := DefaultFallback()
	for _, tt := range tests {
		t.Run(tt.goal, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.Payload(tt.goal))
			assert.Equal(t, types.NewType(tt.want), policy.Fallback(tt.goal))
		})
	}
}

func TestTypeAction_RoundTripsQuotes(t *testing.T) {
	for _, text := range []string{`say "hi"`, "it's here", `C:\tmp`} {
		assert.Equal(t, types.NewType(text), command.Parse(TypeAction(text)))
	}
}

func TestActionText(t *testing.T) {
	assert.Equal(t, `Type "cats"`, ActionText(types.NewType("cats")))
	assert.Equal(t, "Click OK", ActionText(types.NewClick("Click OK")))
	assert.Equal(t, "ctrl+t", ActionText(types.NewShortcut("ctrl+t")))
}

func TestIsGoalComplete(t *testing.T) {
	assert.True(t, IsGoalComplete("GOAL_COMPLETE"))
	assert.True(t, IsGoalComplete("The goal_complete marker"))
	assert.True(t, IsGoalComplete("I think the Goal Is Achieved now"))
	assert.False(t, IsGoalComplete("Click the complete button"))
}

func TestExecuteGoal_ExhaustsIterationBudget(t *testing.T) {
	h := newHarness(t, "Type hello")

	result, err := h.run(t, "Write a greeting", 5)
	require.NoError(t, err)
	assert.Equal(t, types.StateMaxIterationsReached, result.State)
	assert.Equal(t, 5, result.Iterations)
	assert.Len(t, result.Records, 5)
	assert.Equal(t, 5, h.planner.CallCount())
	assert.False(t, result.Succeeded())
}

func TestExecuteGoal_DefaultsIterationBudgetFromConfig(t *testing.T) {
	h := newHarness(t, "Type hello")
	h.engine.Config.MaxIterations = 2

	result, err := h.run(t, "Write a greeting", 0)
	require.NoError(t, err)
	assert.Equal(t, types.StateMaxIterationsReached, result.State)
	assert.Equal(t, 2, result.Iterations)
	assert.Equal(t, 2, h.planner.CallCount())
}

func TestExecuteGoal_CompletesOnMarker(t *testing.T) {
	h := newHarness(t, "Click the search bar", "Type cats", "Everything is done. GOAL_COMPLETE")

	result, err := h.run(t, "Search for cats", 30)
	require.NoError(t, err)
	assert.Equal(t, types.StateGoalComplete, result.State)
	assert.Equal(t, 3, result.Iterations)
	assert.Equal(t, 3, h.planner.CallCount())
	assert.True(t, result.Succeeded())
	assert.Nil(t, result.Records[2].ParsedAction)
}

func TestExecuteGoal_BreaksLoops(t *testing.T) {
	h := newHarness(t, "Click the search button")

	result, err := h.run(t, "Find a youtube video about cats", 5)
	require.NoError(t, err)

	require.Len(t, result.Records, 5)
	assert.False(t, result.Records[1].LoopBroken)
	assert.True(t, result.Records[2].LoopBroken)
	assert.Equal(t, `Type "cats"`, result.Records[2].ActionText)
	assert.Equal(t, "Click the search button", result.Records[2].PlannerActionText)
	assert.Equal(t, types.NewType("cats"), *result.Records[2].ParsedAction)

	// History was cleared, so the next two repeats are not yet a loop.
	assert.False(t, result.Records[3].LoopBroken)
	assert.False(t, result.Records[4].LoopBroken)
	assert.Equal(t, []string{"cats"}, h.desktop.Typed)
}

func TestExecuteGoal_FallbackTypesClickKeywords(t *testing.T) {
	h := newHarness(t, "Click the search button")

	result, err := h.run(t, "Watch a youtube video on how to press flowers", 3)
	require.NoError(t, err)

	require.Len(t, result.Records, 3)
	rec := result.Records[2]
	assert.True(t, rec.LoopBroken)
	assert.Equal(t, `Type "press flowers"`, rec.ActionText)
	assert.Equal(t, types.NewType("press flowers"), *rec.ParsedAction)
	assert.True(t, rec.ExecutionSuccess)
	assert.Equal(t, []string{"press flowers"}, h.desktop.Typed)
}

func TestExecuteGoal_FirstClickExecutesTwice(t *testing.T) {
	h := newHarness(t, "Click the search bar", "Type cats", "Click the first result", "GOAL_COMPLETE")

	result, err := h.run(t, "Search for cats", 10)
	require.NoError(t, err)
	assert.Equal(t, types.StateGoalComplete, result.State)
	assert.Equal(t, 3, h.desktop.ClickCount(), "two attempts for the first click, one for the second")
	assert.Equal(t, 3, h.grounder.CallCount())
	assert.Equal(t, 4, h.capturer.Calls, "attempts reuse the iteration frame")
}

func TestExecuteGoal_FirstClickCompensationDisabled(t *testing.T) {
	h := newHarness(t, "Click the search bar", "GOAL_COMPLETE")
	h.engine.Config.FirstClickCompensation = false

	_, err := h.run(t, "Search", 10)
	require.NoError(t, err)
	assert.Equal(t, 1, h.desktop.ClickCount())
}

func TestExecuteGoal_FinalizesCommandLogOnGroundingError(t *testing.T) {
	h := newHarness(t, "Click the search bar")
	h.grounder.Err = errors.New("inference server down")

	result, err := h.run(t, "Search", 1)
	require.NoError(t, err, "grounding failures are not fatal")
	assert.Equal(t, types.StateMaxIterationsReached, result.State)
	assert.False(t, result.Records[0].ExecutionSuccess)
	assert.Zero(t, h.desktop.MoveCount())

	entries, err := os.ReadDir(h.logsDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(filepath.Join(h.logsDir, "command_1", steplog.RecordFile))
	require.NoError(t, err)
	var record steplog.CommandLog
	require.NoError(t, json.Unmarshal(data, &record))
	assert.Equal(t, 2, record.Attempts)
	assert.Len(t, record.Errors, 2)
	assert.FileExists(t, filepath.Join(h.logsDir, "command_1", steplog.SummaryFile))
}

func TestExecuteGoal_StopsAtIterationBoundary(t *testing.T) {
	h := newHarness(t, "Type a")
	state := NewLoopState("Type forever", 30)
	h.planner.OnCall = func(call int) {
		if call == 2 {
			state.Stop.Stop()
		}
	}

	result, err := h.engine.ExecuteGoal(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, types.StateStoppedExternally, result.State)
	assert.Equal(t, 2, result.Iterations, "the in-flight iteration finishes before stopping")
}

func TestExecuteGoal_CancelledContextStops(t *testing.T) {
	h := newHarness(t, "Type a")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := h.engine.ExecuteGoal(ctx, NewLoopState("goal", 10))
	require.NoError(t, err)
	assert.Equal(t, types.StateStoppedExternally, result.State)
	assert.Zero(t, h.planner.CallCount())
}

func TestExecuteGoal_FatalErrors(t *testing.T) {
	t.Run("planner failure", func(t *testing.T) {
		h := newHarness(t)
		h.planner.Err = errors.New("quota exceeded")

		result, err := h.run(t, "goal", 10)
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrPlanningFailure))
		assert.Equal(t, types.StateFailed, result.State)
		assert.Equal(t, 1, result.Iterations)
		assert.Contains(t, result.Error, "quota exceeded")
		assert.Zero(t, h.desktop.ClickCount())
	})

	t.Run("capture failure", func(t *testing.T) {
		h := newHarness(t, "Type a")
		h.capturer.Err = errors.New("no display")

		result, err := h.run(t, "goal", 10)
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrCaptureFailure))
		assert.Equal(t, types.StateFailed, result.State)
		assert.Zero(t, h.planner.CallCount())
	})
}

func TestExecuteGoal_PlannerSeesRecentActions(t *testing.T) {
	h := newHarness(t, "Type a", "Type b", "Type c", "Type d", "GOAL_COMPLETE")

	_, err := h.run(t, "goal", 10)
	require.NoError(t, err)

	require.Len(t, h.planner.Requests, 5)
	assert.Empty(t, h.planner.Requests[0].RecentActions)
	assert.Equal(t, []string{"Type b", "Type c", "Type d"}, h.planner.Requests[4].RecentActions)
	assert.Equal(t, "goal", h.planner.Requests[4].Goal)
	assert.NotNil(t, h.planner.Requests[4].Frame)
}

func TestExecuteGoal_PersistsIterationFrames(t *testing.T) {
	h := newHarness(t, "Type a", "GOAL_COMPLETE")
	h.engine.ScreenshotsDir = t.TempDir()
	state := NewLoopState("goal", 10)

	result, err := h.engine.ExecuteGoal(context.Background(), state)
	require.NoError(t, err)

	runDir := filepath.Join(h.engine.ScreenshotsDir, state.RunID)
	assert.FileExists(t, filepath.Join(runDir, "iter_001_before_action.png"))
	assert.FileExists(t, filepath.Join(runDir, "iter_002_before_action.png"))
	assert.FileExists(t, filepath.Join(runDir, "run.json"))
	assert.Equal(t, filepath.Join(runDir, "iter_001_before_action.png"), result.Records[0].ScreenshotPath)
	assert.Equal(t, result.Records[0].ScreenshotPath, h.planner.Requests[0].FramePath)
}

func TestController(t *testing.T) {
	h := newHarness(t, "Type a")
	started := make(chan struct{})
	release := make(chan struct{})
	h.planner.OnCall = func(call int) {
		if call == 1 {
			close(started)
			<-release
		}
	}
	c := NewController(context.Background(), h.engine, 30)

	_, err := c.Start("   ")
	assert.ErrorIs(t, err, ErrEmptyGoal)
	assert.False(t, c.Stop(), "nothing to stop yet")

	st, err := c.Start("Type forever")
	require.NoError(t, err)
	assert.True(t, st.Running)
	assert.Equal(t, "Type forever", st.Goal)
	assert.NotEmpty(t, st.RunID)

	_, err = c.Start("Another goal")
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	// Stop only once the first iteration is in flight.
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("first iteration never reached the planner")
	}
	assert.True(t, c.Stop())
	close(release)

	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop")
	}

	final := c.Status()
	assert.False(t, final.Running)
	assert.Equal(t, types.StateStoppedExternally, final.State)
	assert.Equal(t, 1, final.Iteration)
	require.NotNil(t, c.LastResult())
	assert.Equal(t, st.RunID, c.LastResult().RunID)

	// A finished controller accepts a new run.
	h.planner.OnCall = nil
	h.planner.Responses = []string{"GOAL_COMPLETE"}
	_, err = c.Start("Next goal")
	require.NoError(t, err)
	<-c.Done()
	assert.Equal(t, types.StateGoalComplete, c.Status().State)
}

func TestRunSession(t *testing.T) {
	h := newHarness(t)
	in := strings.NewReader("Type hello\n\nClick the OK button\nquit\nType never\n")
	var out bytes.Buffer

	stats, err := RunSession(context.Background(), h.engine, in, &out)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Commands)
	assert.Equal(t, 2, stats.Succeeded)
	assert.Equal(t, []string{"hello"}, h.desktop.Typed)
	assert.Equal(t, 1, h.desktop.ClickCount(), "single commands never double click")
	assert.Equal(t, 1, h.capturer.Calls, "click commands capture a fresh frame")
	assert.Equal(t, 0, h.planner.CallCount())
}
