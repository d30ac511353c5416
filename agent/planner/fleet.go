package planner

import (
	"context"
	"fmt"

	contractx "github.com/fixwell/shop-agent/agent/contract"
	toolx "github.com/fixwell/shop-agent/agent/tool"
)

// Fleet generates maintenance programs. It always lists the fleet first
// and creates a program only when the context names one; with no program
// name it terminates after the read.
type Fleet struct {
	Invoker contractx.Invoker
}

func NewFleet(invoker contractx.Invoker) *Fleet {
	return &Fleet{Invoker: invoker}
}

func (p *Fleet) Run(ctx context.Context, goal contractx.PlanGoal, tc contractx.ToolContext, emit contractx.EventSink) error {
	if err := emit(ctx, contractx.PlanEvent("fleet program: list fleet vehicles, then create the requested program")); err != nil {
		return err
	}

	listed, err := invokeStep(ctx, p.Invoker, toolx.ToolListFleetVehicles, map[string]any{}, tc, emit)
	if err != nil {
		return err
	}

	programName, ok := goal.Context.String(KeyProgramName)
	if !ok {
		return emit(ctx, contractx.FinalEvent(
			fmt.Sprintf("%v fleet vehicles on file; supply program_name to create a maintenance program", listed["count"])))
	}

	vehicleIDs := fleetVehicleIDs(listed)
	if len(vehicleIDs) == 0 {
		return emit(ctx, contractx.FinalEvent(
			"no fleet vehicles on file; register fleet vehicles before creating a program"))
	}

	input := map[string]any{
		"name":        programName,
		"vehicle_ids": vehicleIDs,
	}
	if days, ok := goal.Context.Int(KeyProgramDays); ok {
		input["interval_days"] = days
	}

	created, err := invokeStep(ctx, p.Invoker, toolx.ToolCreateFleetProgram, input, tc, emit)
	if err != nil {
		return err
	}

	return emit(ctx, contractx.FinalEvent(fmt.Sprintf(
		"created fleet program %s covering %v vehicles",
		outputString(created, "program_id"), created["vehicle_count"])))
}

func fleetVehicleIDs(listed map[string]any) []any {
	raw, _ := listed["vehicles"].([]any)
	ids := make([]any, 0, len(raw))
	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		if id, _ := m["vehicle_id"].(string); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
