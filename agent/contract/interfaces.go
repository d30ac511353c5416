package contract

import "context"

// Planner turns a goal plus context into an ordered sequence of tool
// invocations. Implementations must emit one plan event first, a
// tool_call/tool_result pair around every invocation, and exactly one
// terminal final event. Tool calls are strictly sequential within a run.
type Planner interface {
	Run(ctx context.Context, goal PlanGoal, tc ToolContext, emit EventSink) error
}

// Invoker is the single validated dispatch entry point planners call.
type Invoker interface {
	Invoke(ctx context.Context, name string, rawInput map[string]any, tc ToolContext) (map[string]any, error)
}

// IdentityResolver supplies the acting tenant and user for a request.
type IdentityResolver interface {
	Resolve(ctx context.Context) (Identity, error)
}

// RateGate is the admission check consulted before every run creation.
type RateGate interface {
	Allow(ctx context.Context, actorID string) (bool, error)
}
