// Package command turns free-text planner instructions into typed actions.
package command

import (
	"regexp"
	"strings"

	"github.com/arnavsurve/deskagent/pkg/types"
)

// Rule is one entry of the classification table. Rules are evaluated in
// order and the first whose keywords appear in the instruction wins.
type Rule struct {
	Name     string
	Keywords []string
	Build    func(instruction string, matched string) types.Action
}

var (
	quotedRe   = regexp.MustCompile(`"(.+?)"|'(.+?)'`)
	inClauseRe = regexp.MustCompile(`(?i)\s+in\s+`)
)

// Rules is the default classification table.
var Rules = []Rule{
	{
		Name:     "click",
		Keywords: []string{"click", "tap", "press", "select"},
		Build: func(instruction, _ string) types.Action {
			return types.NewClick(instruction)
		},
	},
	{
		Name:     "type",
		Keywords: []string{"type", "write", "enter"},
		Build:    buildType,
	},
	{
		Name:     "shortcut",
		Keywords: []string{"command", "ctrl"},
		Build: func(instruction, _ string) types.Action {
			return types.NewShortcut(instruction)
		},
	},
}

// Parse classifies instruction using the default rule table. It never fails:
// text that matches no rule becomes a click target.
func Parse(instruction string) types.Action {
	return ParseWith(Rules, instruction)
}

// ParseWith classifies instruction against rules. A keyword matches
// anywhere in the lowercased text, quoted spans and word fragments included,
// so "Type \"select all\"" is a click and "Retype it" is a type.
func ParseWith(rules []Rule, instruction string) types.Action {
	lower := strings.ToLower(instruction)
	for _, rule := range rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				return rule.Build(instruction, kw)
			}
		}
	}
	return types.NewClick(instruction)
}

func buildType(instruction, _ string) types.Action {
	if m := quotedRe.FindStringSubmatch(instruction); m != nil {
		if m[1] != "" {
			return types.NewType(m[1])
		}
		return types.NewType(m[2])
	}

	// Keyword priority order, not the order of appearance.
	for _, kw := range []string{"type", "write", "enter"} {
		idx := keywordIndex(instruction, kw)
		if idx < 0 {
			continue
		}
		rest := instruction[idx+len(kw):]
		if loc := inClauseRe.FindStringIndex(rest); loc != nil {
			rest = rest[:loc[0]]
		}
		if text := strings.TrimSpace(rest); text != "" {
			return types.NewType(text)
		}
		break
	}
	return types.NewType(instruction)
}

// keywordPatterns is filled once at init and only read afterwards.
var keywordPatterns = map[string]*regexp.Regexp{}

func init() {
	for _, rule := range Rules {
		for _, kw := range rule.Keywords {
			keywordPatterns[kw] = keywordPattern(kw)
		}
	}
}

func keywordPattern(kw string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + regexp.QuoteMeta(kw))
}

// keywordIndex returns the byte offset of the first occurrence of kw in s,
// ignoring case, or -1. Offsets index s itself, not a lowercased copy.
func keywordIndex(s, kw string) int {
	re, ok := keywordPatterns[kw]
	if !ok {
		re = keywordPattern(kw)
	}
	loc := re.FindStringIndex(s)
	if loc == nil {
		return -1
	}
	return loc[0]
}
