package sinks

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/arnavsurve/deskagent/pkg/log"
	"github.com/arnavsurve/deskagent/pkg/types"
	"github.com/fatih/color"
)

type ConsoleSink struct {
	out io.Writer
}

func NewConsoleSink() *ConsoleSink {
	return &ConsoleSink{out: os.Stdout}
}

// NewConsoleSinkTo writes to w instead of stdout.
func NewConsoleSinkTo(w io.Writer) *ConsoleSink {
	return &ConsoleSink{out: w}
}

var levelColorMap = map[types.Level]*color.Color{
	types.DebugLevel: color.New(color.FgCyan),
	types.InfoLevel:  color.New(color.FgGreen),
	types.WarnLevel:  color.New(color.FgYellow),
	types.ErrorLevel: color.New(color.FgRed),
	types.FatalLevel: color.New(color.FgRed, color.Bold),
}

func (c *ConsoleSink) Write(event *log.LogEvent) error {
	msg := event.Message
	errorMsg := getStringField(event.Fields, "error")
	actionType := getStringField(event.Fields, "action_type")
	levelStr := strings.ToUpper(levelToString(event.Level))
	timestampStr := event.Timestamp.Format(time.RFC3339)

	levelFmt := color.New(color.FgWhite).SprintFunc()
	if lc, ok := levelColorMap[event.Level]; ok {
		levelFmt = lc.SprintFunc()
	}
	timestampFmt := color.New(color.FgWhite).SprintFunc()

	label := contextLabel(event.Fields)
	commonPrefix := fmt.Sprintf("[%s %s] %s: ",
		levelFmt(levelStr),
		timestampFmt(timestampStr),
		color.CyanString(label),
	)
	if actionType != "" {
		commonPrefix += fmt.Sprintf("[%s] ", color.BlueString(actionType))
	}

	var output string
	switch {
	case errorMsg != "" && msg != "":
		output = fmt.Sprintf("%s%s: %s", commonPrefix, msg, errorMsg)
	case errorMsg != "":
		output = commonPrefix + errorMsg
	default:
		output = commonPrefix + msg
	}
	_, err := fmt.Fprintln(c.out, output)
	return err
}

// contextLabel names where the line came from: the loop iteration, a
// single command, or the agent itself.
func contextLabel(fields map[string]any) string {
	if n, ok := fields["iteration"].(float64); ok {
		return fmt.Sprintf("iteration %d", int(n))
	}
	if cmd := getStringField(fields, "command"); cmd != "" {
		return "command"
	}
	return "agent"
}

// Helper to safely get string field from LogEvent.Fields
func getStringField(fields map[string]any, key string) string {
	if val, ok := fields[key]; ok {
		if strVal, isStr := val.(string); isStr {
			return strVal
		}
	}
	return ""
}

// Helper to convert types.Level to string
func levelToString(l types.Level) string {
	switch l {
	case types.DebugLevel:
		return "debug"
	case types.InfoLevel:
		return "info"
	case types.WarnLevel:
		return "warn"
	case types.ErrorLevel:
		return "error"
	case types.FatalLevel:
		return "fatal"
	default:
		return "unknown"
	}
}

func (c *ConsoleSink) Close() error {
	return nil // Console doesn't need closing
}
