package agent

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

var quitCommands = map[string]bool{"quit": true, "exit": true, "stop": true}

// SessionStats summarizes an interactive session.
type SessionStats struct {
	Commands  int
	Succeeded int
}

// RunSession reads one instruction per line from r and executes each
// directly, without consulting the planner, until EOF, a quit command or
// context cancellation. Prompts and per-command outcomes go to w.
func RunSession(ctx context.Context, e *Engine, r io.Reader, w io.Writer) (SessionStats, error) {
	var stats SessionStats
	scanner := bufio.NewScanner(r)

	for {
		fmt.Fprint(w, "command> ")
		if !scanner.Scan() {
			fmt.Fprintln(w)
			return stats, scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if quitCommands[strings.ToLower(line)] {
			return stats, nil
		}

		stats.Commands++
		ok, err := e.ExecuteCommand(ctx, line)
		switch {
		case ok:
			stats.Succeeded++
			fmt.Fprintln(w, "ok")
		case err != nil:
			fmt.Fprintf(w, "failed: %v\n", err)
		default:
			fmt.Fprintln(w, "failed")
		}
	}
}
