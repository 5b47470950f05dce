package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/arnavsurve/deskagent/pkg/agent"
	"github.com/arnavsurve/deskagent/pkg/core"
	"github.com/arnavsurve/deskagent/pkg/types"
	"github.com/fatih/color"
)

type RunCmd struct {
	Goal          []string    `arg:"" help:"The goal to accomplish, in natural language."`
	MaxIterations int         `help:"Override agent.max_iterations for this run."`
	Common        CommonFlags `embed:""`
}

func (r *RunCmd) Run() error {
	s, err := bootstrap(r.Common, true)
	if err != nil {
		return err
	}
	defer s.Close()
	logger := s.Logger

	goal, err := core.ResolveGoal(strings.Join(r.Goal, " "), s.Vars)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to resolve goal placeholders")
		return fmt.Errorf("resolving goal: %w", err)
	}
	goal, err = agent.ParseGoal(goal)
	if err != nil {
		return err
	}

	maxIterations := s.Config.Agent.MaxIterations
	if r.MaxIterations > 0 {
		maxIterations = r.MaxIterations
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine, err := s.buildEngine(ctx, true)
	if err != nil {
		return err
	}

	state := agent.NewLoopState(goal, maxIterations)
	state.RunID = s.RunID
	stopOnInterrupt(ctx, cancel, state.Stop, logger)

	result, err := engine.ExecuteGoal(ctx, state)
	printResult(result)
	if err != nil {
		return fmt.Errorf("running goal: %w", err)
	}
	return nil
}

// stopOnInterrupt stops the run at the next iteration boundary on the first
// SIGINT or SIGTERM, and cancels in-flight work on the second.
func stopOnInterrupt(ctx context.Context, cancel context.CancelFunc, stop *agent.StopToken, logger types.Logger) {
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigs)
		select {
		case <-sigs:
			logger.Warn().Msg("Interrupt received, stopping after the current action. Interrupt again to abort.")
			stop.Stop()
		case <-ctx.Done():
			return
		}
		select {
		case <-sigs:
			logger.Warn().Msg("Aborting run")
			cancel()
		case <-ctx.Done():
		}
	}()
}

func printResult(result *types.RunResult) {
	if result == nil {
		return
	}
	stateColor := color.New(color.FgYellow, color.Bold)
	switch result.State {
	case types.StateGoalComplete:
		stateColor = color.New(color.FgGreen, color.Bold)
	case types.StateFailed:
		stateColor = color.New(color.FgRed, color.Bold)
	}

	fmt.Println()
	fmt.Printf("Run %s: %s after %d iteration(s)\n", result.RunID, stateColor.Sprint(result.State), result.Iterations)
	for _, rec := range result.Records {
		mark := color.RedString("✗")
		if rec.ExecutionSuccess {
			mark = color.GreenString("✓")
		}
		fmt.Printf("  %s %2d. %s\n", mark, rec.Index, rec.ActionText)
	}
	if result.Error != "" {
		fmt.Printf("Error: %s\n", result.Error)
	}
}
