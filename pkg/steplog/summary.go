package steplog

import (
	"fmt"
	"strings"
	"time"
)

// summary renders the human-readable view of the log. Callers hold l.mu.
func (l *CommandLog) summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Command #%d\n", l.CommandNumber)
	fmt.Fprintf(&b, "Text: %s\n", l.CommandText)
	fmt.Fprintf(&b, "Time: %s\n", l.Timestamp.Format(time.RFC3339))
	b.WriteString(strings.Repeat("=", 50) + "\n\n")

	if l.ParsedAction != nil {
		fmt.Fprintf(&b, "Parsed action: %s\n", l.ParsedAction.Kind)
		if payload := l.ParsedAction.Payload(); payload != "" {
			fmt.Fprintf(&b, "Payload: %s\n", payload)
		}
		b.WriteString("\n")
	}

	if l.GroundingRequest != nil {
		fmt.Fprintf(&b, "Grounding instruction: %s\n", l.GroundingRequest.Instruction)
		fmt.Fprintf(&b, "Screenshot size: %s\n", l.GroundingRequest.ScreenshotSize)
	}
	if len(l.PredictedPoints) > 0 {
		b.WriteString("Predicted points:\n")
		for i, p := range l.PredictedPoints {
			fmt.Fprintf(&b, "  %d. (%.4f, %.4f) score=%.4f\n", i+1, p.X, p.Y, p.Score)
		}
		b.WriteString("\n")
	}

	if sp := l.SelectedPoint; sp != nil {
		fmt.Fprintf(&b, "Selected: normalized (%.4f, %.4f) -> pixel (%d, %d)\n",
			sp.Normalized.X, sp.Normalized.Y, sp.Pixel.X, sp.Pixel.Y)
		if sp.Actual != nil {
			fmt.Fprintf(&b, "Cursor after move: (%d, %d)\n", sp.Actual.X, sp.Actual.Y)
		}
		b.WriteString("\n")
	}

	if r := l.ExecutionResult; r != nil {
		status := "FAILED"
		if r.Success {
			status = "SUCCESS"
		}
		fmt.Fprintf(&b, "Result: %s (%s)\n", status, r.ActionType)
		if r.Details != "" {
			fmt.Fprintf(&b, "Details: %s\n", r.Details)
		}
	}
	if l.Attempts > 1 {
		fmt.Fprintf(&b, "Attempts: %d\n", l.Attempts)
	}

	if len(l.Warnings) > 0 {
		b.WriteString("\nWarnings:\n")
		for _, w := range l.Warnings {
			fmt.Fprintf(&b, "  - %s\n", w.Message)
		}
	}
	if len(l.Errors) > 0 {
		b.WriteString("\nErrors:\n")
		for _, e := range l.Errors {
			fmt.Fprintf(&b, "  - %s\n", e.Message)
		}
	}
	return b.String()
}
