package planner

import (
	"fmt"
	"strings"
)

// CompletionMarker is the token the model must answer with once the goal
// is reached.
const CompletionMarker = "GOAL_COMPLETE"

const promptRules = `Look at the current screenshot and determine the NEXT SINGLE ACTION needed.

Rules:
1. Give ONLY ONE action at a time
2. Be specific about what to click or type AND include the general location (top/middle/bottom/left/right of screen)
3. Extract the exact search terms or text from the goal - DO NOT make up different text
4. Always click a field BEFORE typing into it
5. After clicking a search bar or text field, the NEXT action should be to type the text
6. Dismiss pop-ups, cookie banners or "Skip Ad" buttons that block progress
7. Once the goal is visibly achieved, respond with "GOAL_COMPLETE"

Examples:
- "Click on the Safari icon at the bottom of the screen"
- "Click on the search bar at the top of the screen"
- "Type 'how to use github'"
- "Press Enter"
- "Open a new tab with command+t"
- "Click on the first video result in the middle of the screen"
- "GOAL_COMPLETE"

IMPORTANT:
- When typing, use the EXACT terms from the goal
- Always specify the general location of UI elements (top/middle/bottom/left/right/center)
- Answer with the action only, no explanation

What is the next action?`

// BuildPrompt renders the instruction sent alongside the screenshot.
func BuildPrompt(goal string, recentActions []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are controlling a computer to achieve this goal: '%s'\n", goal)

	if len(recentActions) > 0 {
		b.WriteString("\nPrevious actions taken:\n")
		for _, a := range recentActions {
			fmt.Fprintf(&b, "- %s\n", a)
		}
		b.WriteString("\nDo NOT repeat the same action. Move to the NEXT step.\n")
	}

	b.WriteString("\n")
	b.WriteString(promptRules)
	return b.String()
}

// cleanResponse trims whitespace and a single pair of wrapping quotes or
// backticks that chat models like to add.
func cleanResponse(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' && strings.Count(s, `"`) == 2 {
		s = s[1 : len(s)-1]
	}
	return strings.TrimSpace(s)
}
