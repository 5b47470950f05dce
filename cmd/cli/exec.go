package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/arnavsurve/deskagent/pkg/agent"
)

type ExecCmd struct {
	Command []string    `arg:"" optional:"" help:"A single instruction such as 'Click the search box'. Omit to read instructions from stdin."`
	Common  CommonFlags `embed:""`
}

func (e *ExecCmd) Run() error {
	s, err := bootstrap(e.Common, true)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := s.buildEngine(ctx, false)
	if err != nil {
		return err
	}

	text := strings.TrimSpace(strings.Join(e.Command, " "))
	if text == "" {
		s.Logger.Info().Msg("Interactive mode. Type 'quit' to exit.")
		stats, err := agent.RunSession(ctx, engine, os.Stdin, os.Stdout)
		s.Logger.Info().
			Int("commands", stats.Commands).
			Int("succeeded", stats.Succeeded).
			Msg("Session ended")
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("reading commands: %w", err)
		}
		return nil
	}

	ok, err := engine.ExecuteCommand(ctx, text)
	if err != nil {
		return fmt.Errorf("executing %q: %w", text, err)
	}
	if !ok {
		return fmt.Errorf("command %q did not succeed", text)
	}
	return nil
}
