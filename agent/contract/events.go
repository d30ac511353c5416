package contract

import "context"

// EventKind tags one entry in a run's audit trail.
type EventKind string

const (
	EventPlan       EventKind = "plan"
	EventToolCall   EventKind = "tool_call"
	EventToolResult EventKind = "tool_result"
	EventFinal      EventKind = "final"
	EventError      EventKind = "error"
)

// Event is the tagged union emitted by planners. Which fields are set
// depends on Kind: plan/final carry Text, tool_call carries Tool+Input,
// tool_result carries Tool+Output, error carries Message.
type Event struct {
	Kind    EventKind      `json:"kind"`
	Text    string         `json:"text,omitempty"`
	Tool    string         `json:"tool,omitempty"`
	Input   map[string]any `json:"input,omitempty"`
	Output  map[string]any `json:"output,omitempty"`
	Message string         `json:"message,omitempty"`
}

// EventSink receives one event per planner milestone. The sink is invoked
// synchronously and must complete before the planner takes its next step,
// so persistence observes events in true causal order.
type EventSink func(ctx context.Context, ev Event) error

func PlanEvent(text string) Event {
	return Event{Kind: EventPlan, Text: text}
}

func ToolCallEvent(tool string, input map[string]any) Event {
	return Event{Kind: EventToolCall, Tool: tool, Input: input}
}

func ToolResultEvent(tool string, output map[string]any) Event {
	return Event{Kind: EventToolResult, Tool: tool, Output: output}
}

func FinalEvent(text string) Event {
	return Event{Kind: EventFinal, Text: text}
}

func ErrorEvent(message string) Event {
	return Event{Kind: EventError, Message: message}
}
