package prompt

import (
	_ "embed"
	"strings"
)

//go:embed template/planner.txt
var plannerRaw string

// Planner returns the plan-proposal system prompt. The embed is
// compile-time; trimming is cheap, so this is safe to call per request.
func Planner() string {
	return strings.TrimSpace(plannerRaw)
}
