package contract

import (
	"encoding/json"
	"strings"
)

// ToolSpec is the externally visible description of a registered tool,
// handed to plan proposers so they only reference real tools.
type ToolSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// ToolContext carries the tenant and acting-user scope for one run.
// It is constructed once at admission and threaded unchanged through
// every tool call in that run. It is ambient data, never a tool input.
type ToolContext struct {
	TenantID string `json:"tenant_id"`
	UserID   string `json:"user_id"`
}

// Identity is the result of resolving the ambient caller.
type Identity struct {
	TenantID string
	UserID   string
}

// PlanGoal is the caller-supplied goal plus its context bag. Immutable
// input to a planner invocation.
type PlanGoal struct {
	Text    string      `json:"text"`
	Context PlanContext `json:"context,omitempty"`
}

// PlanContext is a bag of optional caller-supplied fields. Planners must
// check presence explicitly; absent optional fields skip the dependent
// step, absent required fields end the plan early with guidance.
type PlanContext map[string]any

// String returns the value for key if present and a non-empty string.
func (c PlanContext) String(key string) (string, bool) {
	if c == nil {
		return "", false
	}
	raw, ok := c[key]
	if !ok {
		return "", false
	}
	s, ok := raw.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// StringOr returns the value for key, or fallback when absent.
func (c PlanContext) StringOr(key, fallback string) string {
	if v, ok := c.String(key); ok {
		return v
	}
	return fallback
}

// Int returns the value for key when it is a whole number. JSON decoding
// yields float64 for numbers, so both forms are accepted.
func (c PlanContext) Int(key string) (int, bool) {
	if c == nil {
		return 0, false
	}
	switch v := c[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v == float64(int(v)) {
			return int(v), true
		}
	}
	return 0, false
}
