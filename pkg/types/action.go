package types

import "fmt"

type ActionKind string

const (
	ActionClick    ActionKind = "click"
	ActionType     ActionKind = "type"
	ActionShortcut ActionKind = "shortcut"
)

// Action is a single parsed instruction. Exactly one of Target, Text or Spec
// is meaningful, selected by Kind.
type Action struct {
	Kind   ActionKind `json:"type"`
	Target string     `json:"target,omitempty"`
	Text   string     `json:"text,omitempty"`
	Spec   string     `json:"command,omitempty"`
}

func NewClick(target string) Action {
	return Action{Kind: ActionClick, Target: target}
}

func NewType(text string) Action {
	return Action{Kind: ActionType, Text: text}
}

func NewShortcut(spec string) Action {
	return Action{Kind: ActionShortcut, Spec: spec}
}

// Payload returns the kind-specific argument of the action.
func (a Action) Payload() string {
	switch a.Kind {
	case ActionClick:
		return a.Target
	case ActionType:
		return a.Text
	case ActionShortcut:
		return a.Spec
	default:
		return ""
	}
}

func (a Action) String() string {
	return fmt.Sprintf("%s(%q)", a.Kind, a.Payload())
}
