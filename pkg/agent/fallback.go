package agent

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/arnavsurve/deskagent/pkg/types"
)

// FallbackPolicy produces the action executed in place of a looping one.
// The action is used as is; it does not go back through the parser.
type FallbackPolicy interface {
	Fallback(goal string) types.Action
}

type FallbackFunc func(goal string) types.Action

func (f FallbackFunc) Fallback(goal string) types.Action {
	return f(goal)
}

// TypeGoalFallback types the goal text. When the goal mentions one of
// ContextWords, the text after the first matching preposition is typed
// instead, so "find a youtube video about cats" types "cats".
type TypeGoalFallback struct {
	ContextWords []string
	Prepositions []string
}

func DefaultFallback() *TypeGoalFallback {
	return &TypeGoalFallback{
		ContextWords: []string{"youtube", "video"},
		Prepositions: []string{"on how to", "about", "on", "for"},
	}
}

func (f *TypeGoalFallback) Fallback(goal string) types.Action {
	return types.NewType(f.Payload(goal))
}

// Payload returns the literal text the fallback action types.
func (f *TypeGoalFallback) Payload(goal string) string {
	goal = strings.TrimSpace(goal)
	lower := strings.ToLower(goal)

	inContext := false
	for _, w := range f.ContextWords {
		if strings.Contains(lower, strings.ToLower(w)) {
			inContext = true
			break
		}
	}
	if !inContext {
		return goal
	}

	for _, prep := range f.Prepositions {
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(prep) + `\b`)
		loc := re.FindStringIndex(goal)
		if loc == nil {
			continue
		}
		if rest := strings.TrimSpace(goal[loc[1]:]); rest != "" {
			return rest
		}
	}
	return goal
}

// ActionText renders a as the instruction text stored in iteration records.
func ActionText(a types.Action) string {
	if a.Kind == types.ActionType {
		return TypeAction(a.Text)
	}
	return a.Payload()
}

// TypeAction renders a type instruction that parses back to exactly text,
// provided text does not contain both quote characters.
func TypeAction(text string) string {
	if strings.Contains(text, `"`) {
		return fmt.Sprintf("Type '%s'", text)
	}
	return fmt.Sprintf(`Type "%s"`, text)
}
