package planner

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	contractx "github.com/fixwell/shop-agent/agent/contract"
)

// Step is one proposed tool invocation. String values of the form
// "$stepN.field" are replaced with field from step N's output before
// dispatch, which is how a proposer forwards earlier outputs into later
// inputs without seeing them.
type Step struct {
	Tool  string         `json:"tool"`
	Input map[string]any `json:"input,omitempty"`
}

// Decider proposes an ordered step list for a goal. The reasoner package
// implements it against an external reasoning provider; tests implement
// it inline. A Decider only decides — every side effect still flows
// through the validated registry.
type Decider interface {
	Propose(ctx context.Context, goal contractx.PlanGoal, tools []contractx.ToolSpec) ([]Step, error)
}

// Guided executes an externally proposed plan under the same event
// contract as the deterministic planners.
type Guided struct {
	Invoker contractx.Invoker
	Decider Decider
	Specs   []contractx.ToolSpec
}

func NewGuided(invoker contractx.Invoker, decider Decider, specs []contractx.ToolSpec) *Guided {
	return &Guided{Invoker: invoker, Decider: decider, Specs: specs}
}

func (p *Guided) Run(ctx context.Context, goal contractx.PlanGoal, tc contractx.ToolContext, emit contractx.EventSink) error {
	// The plan narration opens the trail before the proposal round-trips,
	// so a failed run still records what was being attempted.
	if err := emit(ctx, contractx.PlanEvent(fmt.Sprintf("requesting an externally guided plan for %q", goal.Text))); err != nil {
		return err
	}

	steps, err := p.Decider.Propose(ctx, goal, p.Specs)
	if err != nil {
		return fmt.Errorf("plan proposal: %w", err)
	}

	// Reject plans referencing unknown tools before any side effect runs.
	known := make(map[string]struct{}, len(p.Specs))
	for _, spec := range p.Specs {
		known[spec.Name] = struct{}{}
	}
	for i, step := range steps {
		if _, ok := known[step.Tool]; !ok {
			return fmt.Errorf("%w: proposed step %d references %q", contractx.ErrUnknownTool, i+1, step.Tool)
		}
	}

	if len(steps) == 0 {
		return emit(ctx, contractx.FinalEvent("the proposed plan has no steps; nothing to do"))
	}

	outputs := make([]map[string]any, 0, len(steps))
	for i, step := range steps {
		input, err := resolveStepInput(step.Input, outputs)
		if err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, step.Tool, err)
		}
		output, err := invokeStep(ctx, p.Invoker, step.Tool, input, tc, emit)
		if err != nil {
			return err
		}
		outputs = append(outputs, output)
	}

	return emit(ctx, contractx.FinalEvent(fmt.Sprintf("completed %d proposed steps", len(steps))))
}

// resolveStepInput substitutes "$stepN.field" references with the value
// of field in step N's output. References may only point backwards.
func resolveStepInput(input map[string]any, outputs []map[string]any) (map[string]any, error) {
	resolved := make(map[string]any, len(input))
	for key, value := range input {
		v, err := resolveValue(value, outputs)
		if err != nil {
			return nil, fmt.Errorf("input %q: %w", key, err)
		}
		resolved[key] = v
	}
	return resolved, nil
}

func resolveValue(value any, outputs []map[string]any) (any, error) {
	switch v := value.(type) {
	case string:
		return resolveReference(v, outputs)
	case []any:
		resolved := make([]any, len(v))
		for i, elem := range v {
			r, err := resolveValue(elem, outputs)
			if err != nil {
				return nil, err
			}
			resolved[i] = r
		}
		return resolved, nil
	case map[string]any:
		return resolveStepInput(v, outputs)
	default:
		return value, nil
	}
}

func resolveReference(s string, outputs []map[string]any) (any, error) {
	if !strings.HasPrefix(s, "$step") {
		return s, nil
	}

	rest := strings.TrimPrefix(s, "$step")
	dot := strings.IndexByte(rest, '.')
	if dot <= 0 {
		return nil, fmt.Errorf("malformed step reference %q", s)
	}

	n, err := strconv.Atoi(rest[:dot])
	if err != nil || n < 1 {
		return nil, fmt.Errorf("malformed step reference %q", s)
	}
	if n > len(outputs) {
		return nil, fmt.Errorf("reference %q points at a step that has not run", s)
	}

	field := rest[dot+1:]
	value, ok := outputs[n-1][field]
	if !ok {
		return nil, fmt.Errorf("step %d output has no field %q", n, field)
	}
	return value, nil
}
