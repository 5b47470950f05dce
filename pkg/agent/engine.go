// Package agent runs the observe, plan, act loop that drives a desktop
// toward a natural-language goal.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arnavsurve/deskagent/pkg/actionrunner"
	"github.com/arnavsurve/deskagent/pkg/command"
	"github.com/arnavsurve/deskagent/pkg/steplog"
	"github.com/arnavsurve/deskagent/pkg/types"
)

type Config struct {
	// MaxIterations is the budget for runs whose LoopState sets none.
	MaxIterations int
	// ActionDelay is the pause after every action so the UI can settle.
	ActionDelay time.Duration
	// FirstClickDelay separates the two attempts of the first click.
	FirstClickDelay        time.Duration
	FirstClickCompensation bool
	PlannerTimeout         time.Duration
	PlannerHistory         int
	Action                 actionrunner.Settings
}

func DefaultConfig() Config {
	return Config{
		MaxIterations:          30,
		ActionDelay:            time.Second,
		FirstClickDelay:        time.Second,
		FirstClickCompensation: true,
		PlannerTimeout:         2 * time.Minute,
		PlannerHistory:         3,
		Action:                 actionrunner.DefaultSettings(),
	}
}

type Engine struct {
	Planner  types.Planner
	Grounder types.Grounder
	Capturer types.Capturer
	Desktop  types.Desktop
	Logger   types.Logger

	// Commands numbers and stores per-command logs.
	Commands *steplog.Store
	// ScreenshotsDir receives one subdirectory of iteration frames per run.
	// Empty disables frame persistence.
	ScreenshotsDir string

	Config   Config
	Parse    func(string) types.Action
	Fallback FallbackPolicy
	Sleep    func(ctx context.Context, d time.Duration) error

	// Updates, when set, receives a Status after every state change. The
	// loop blocks on the send, so the receiver must keep draining it.
	Updates chan<- Status
}

func NewEngine(logger types.Logger, cfg Config) *Engine {
	return &Engine{
		Logger:   logger,
		Config:   cfg,
		Parse:    command.Parse,
		Fallback: DefaultFallback(),
		Sleep:    actionrunner.Sleep,
	}
}

// ExecuteGoal runs the loop until the goal completes, the iteration budget
// is spent, the run is stopped, or a fatal error occurs. The returned error
// is the fatal error, if any; the result is always populated.
func (e *Engine) ExecuteGoal(ctx context.Context, state *LoopState) (*types.RunResult, error) {
	logger := e.Logger.With().Str("run_id", state.RunID).Logger()
	state.State = types.StateRunning
	if state.MaxIterations <= 0 {
		state.MaxIterations = e.Config.MaxIterations
	}
	if state.Stop == nil {
		state.Stop = NewStopToken()
	}
	if state.History == nil {
		state.History = NewActionHistory(DefaultHistoryCapacity)
	}

	var frames *steplog.FrameStore
	if e.ScreenshotsDir != "" {
		fs, err := steplog.NewFrameStore(e.ScreenshotsDir, state.RunID)
		if err != nil {
			logger.Warn().Err(err).Msg("Iteration screenshots will not be saved")
		} else {
			frames = fs
		}
	}

	logger.Info().Str("goal", state.Goal).Int("max_iterations", state.MaxIterations).Msg("Starting goal run")
	e.notify(ctx, state)

	for state.State == types.StateRunning {
		if state.Stop.Stopped() || ctx.Err() != nil {
			state.State = types.StateStoppedExternally
			break
		}
		if state.Iteration >= state.MaxIterations {
			state.State = types.StateMaxIterationsReached
			break
		}

		state.Iteration++
		iterLogger := logger.With().Int("iteration", state.Iteration).Logger()
		iterLogger.Info().Msgf("Iteration %d/%d", state.Iteration, state.MaxIterations)
		e.notify(ctx, state)

		done, err := e.iterate(ctx, state, frames, iterLogger)
		if err != nil {
			if ctx.Err() != nil || state.Stop.Stopped() {
				state.State = types.StateStoppedExternally
			} else {
				state.State = types.StateFailed
				state.Err = err
				iterLogger.Error().Err(err).Msg("Run failed")
			}
			break
		}
		if done {
			state.State = types.StateGoalComplete
			break
		}

		e.notify(ctx, state)
		if err := e.wait(ctx, e.Config.ActionDelay); err != nil {
			state.State = types.StateStoppedExternally
			break
		}
		if state.Iteration >= state.MaxIterations {
			state.State = types.StateMaxIterationsReached
		}
	}

	result := state.Result()
	switch state.State {
	case types.StateGoalComplete:
		logger.Info().Int("iterations", state.Iteration).Msg("Goal achieved")
	case types.StateMaxIterationsReached:
		logger.Warn().Int("iterations", state.Iteration).Msg("Reached maximum iterations without completing the goal")
	case types.StateStoppedExternally:
		logger.Warn().Int("iterations", state.Iteration).Msg("Run stopped")
	}
	if frames != nil {
		if err := frames.WriteRunSummary(result); err != nil {
			logger.Warn().Err(err).Msg("Failed to write run summary")
		}
	}
	e.notify(context.WithoutCancel(ctx), state)

	return result, state.Err
}

// iterate performs one pass. It reports true once the planner signals
// completion. A returned error is fatal to the run.
func (e *Engine) iterate(ctx context.Context, state *LoopState, frames *steplog.FrameStore, logger types.Logger) (bool, error) {
	frame, err := e.Capturer.Capture(ctx)
	if err != nil {
		return false, wrapAs(types.ErrCaptureFailure, err)
	}

	var framePath string
	if frames != nil {
		framePath, err = frames.Save(state.Iteration, frame)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to save iteration screenshot")
		}
	}

	response, err := e.plan(ctx, types.PlanRequest{
		Frame:         frame,
		FramePath:     framePath,
		Goal:          state.Goal,
		RecentActions: state.RecentActions(e.Config.PlannerHistory),
	})
	if err != nil {
		return false, wrapAs(types.ErrPlanningFailure, err)
	}
	logger.Info().Str("planner_action", response).Msg("Planner responded")

	record := types.IterationRecord{
		Index:             state.Iteration,
		ScreenshotPath:    framePath,
		PlannerActionText: response,
		ActionText:        response,
		Timestamp:         time.Now(),
	}

	if IsGoalComplete(response) {
		record.ExecutionSuccess = true
		state.Records = append(state.Records, record)
		return true, nil
	}

	var action types.Action
	state.History.Push(response)
	if state.History.IsLooping() {
		action = e.Fallback.Fallback(state.Goal)
		record.ActionText = ActionText(action)
		record.LoopBroken = true
		state.History.Clear()
		logger.Warn().
			Str("repeated_action", response).
			Str("fallback_action", record.ActionText).
			Msg("Loop detected, substituting fallback action")
	} else {
		action = e.Parse(record.ActionText)
	}
	record.ParsedAction = &action
	logger.Info().Str("action_type", string(action.Kind)).Str("payload", action.Payload()).Msg("Parsed action")

	attempts := 1
	if action.Kind == types.ActionClick {
		state.ClickAttempts++
		if state.ClickAttempts == 1 && e.Config.FirstClickCompensation {
			attempts = 2
		}
	}

	success, err := e.runAction(ctx, record.ActionText, action, frame, attempts, logger)
	record.ExecutionSuccess = success
	state.Records = append(state.Records, record)
	if err != nil && types.IsFatal(err) {
		return false, err
	}
	return false, nil
}

// runAction executes action attempts times against frame under one command
// log, which is finalized on every path. It reports whether any attempt
// succeeded. Non-fatal action errors are logged and swallowed.
func (e *Engine) runAction(ctx context.Context, text string, action types.Action, frame *types.ScreenFrame, attempts int, logger types.Logger) (success bool, err error) {
	var cmdLog *steplog.CommandLog
	if e.Commands != nil {
		cmdLog, err = e.Commands.Open(text)
		if err != nil {
			logger.Warn().Err(err).Msg("Command log unavailable")
			cmdLog = nil
		}
	}
	if cmdLog != nil {
		defer func() {
			if r := recover(); r != nil {
				cmdLog.AddError(fmt.Sprintf("panic during action execution: %v", r))
				finalizeLog(cmdLog, logger)
				panic(r)
			}
			finalizeLog(cmdLog, logger)
		}()
		cmdLog.SetParsedAction(action)
	}

	ec := actionrunner.ExecutionContext{
		Action:     action,
		Frame:      frame,
		Logger:     logger.With().Str("action_type", string(action.Kind)).Logger(),
		CommandLog: cmdLog,
		Desktop:    e.Desktop,
		Grounder:   e.Grounder,
		Capturer:   e.Capturer,
		Settings:   e.Config.Action,
		Sleep:      e.Sleep,
	}

	if attempts > 1 {
		logger.Info().Int("attempts", attempts).Msg("First click of the run, executing twice")
	}

	err = nil
	for i := 0; i < attempts; i++ {
		if i > 0 {
			if werr := e.wait(ctx, e.Config.FirstClickDelay); werr != nil {
				return success, werr
			}
		}
		result, runErr := actionrunner.Execute(ctx, ec)
		if runErr != nil {
			err = runErr
			if types.IsFatal(runErr) {
				return success, runErr
			}
			continue
		}
		if result.Success {
			success = true
		}
	}
	if err != nil && !success {
		logger.Warn().Err(err).Msg("Action execution failed, continuing")
	}
	return success, err
}

// ExecuteCommand parses and runs a single instruction without the planner,
// capturing a fresh frame for click targets.
func (e *Engine) ExecuteCommand(ctx context.Context, text string) (bool, error) {
	action := e.Parse(text)
	logger := e.Logger.With().Str("command", text).Logger()
	logger.Info().Str("action_type", string(action.Kind)).Msg("Executing command")
	return e.runAction(ctx, text, action, nil, 1, logger)
}

func (e *Engine) plan(ctx context.Context, req types.PlanRequest) (string, error) {
	if e.Config.PlannerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Config.PlannerTimeout)
		defer cancel()
	}
	return e.Planner.NextAction(ctx, req)
}

func (e *Engine) wait(ctx context.Context, d time.Duration) error {
	if e.Sleep != nil {
		return e.Sleep(ctx, d)
	}
	return actionrunner.Sleep(ctx, d)
}

func (e *Engine) notify(ctx context.Context, state *LoopState) {
	if e.Updates == nil {
		return
	}
	select {
	case e.Updates <- state.Status():
	case <-ctx.Done():
	}
}

func finalizeLog(cmdLog *steplog.CommandLog, logger types.Logger) {
	if err := cmdLog.Finalize(); err != nil {
		logger.Warn().Err(err).Msg("Failed to finalize command log")
		return
	}
	logger.Debug().Str("dir", cmdLog.Dir()).Msg("Command log saved")
}

func wrapAs(sentinel, err error) error {
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %v", sentinel, err)
}

// ParseGoal trims a goal and rejects empty ones.
func ParseGoal(goal string) (string, error) {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		return "", ErrEmptyGoal
	}
	return goal, nil
}
