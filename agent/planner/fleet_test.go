package planner

import (
	"context"
	"testing"

	contractx "github.com/fixwell/shop-agent/agent/contract"
	toolx "github.com/fixwell/shop-agent/agent/tool"
)

func fleetList(ids ...string) map[string]any {
	vehicles := make([]any, 0, len(ids))
	for _, id := range ids {
		vehicles = append(vehicles, map[string]any{"vehicle_id": id, "plate": "P-" + id})
	}
	return map[string]any{"count": len(ids), "vehicles": vehicles}
}

func TestFleetListsWithoutProgramName(t *testing.T) {
	t.Parallel()

	invoker := newFakeInvoker().on(toolx.ToolListFleetVehicles, fleetList("v-1", "v-2"))
	rec := &sinkRecorder{}

	goal := contractx.PlanGoal{Text: "what fleet vehicles do we have"}
	if err := NewFleet(invoker).Run(context.Background(), goal, testToolContext(), rec.sink); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertCalls(t, invoker.calls, toolx.ToolListFleetVehicles)
	assertKinds(t, rec.kinds(),
		contractx.EventPlan, contractx.EventToolCall, contractx.EventToolResult, contractx.EventFinal)
}

func TestFleetCreatesProgramOverListedVehicles(t *testing.T) {
	t.Parallel()

	invoker := newFakeInvoker().
		on(toolx.ToolListFleetVehicles, fleetList("v-1", "v-2")).
		on(toolx.ToolCreateFleetProgram, map[string]any{"program_id": "p-1", "vehicle_count": 2})
	rec := &sinkRecorder{}

	goal := contractx.PlanGoal{
		Text: "set up quarterly maintenance",
		Context: contractx.PlanContext{
			KeyProgramName: "quarterly service",
			KeyProgramDays: 90,
		},
	}
	if err := NewFleet(invoker).Run(context.Background(), goal, testToolContext(), rec.sink); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertCalls(t, invoker.calls, toolx.ToolListFleetVehicles, toolx.ToolCreateFleetProgram)
	input := invoker.inputs[1]
	if input["name"] != "quarterly service" || input["interval_days"] != 90 {
		t.Fatalf("unexpected program input: %v", input)
	}
	ids, _ := input["vehicle_ids"].([]any)
	if len(ids) != 2 {
		t.Fatalf("expected program over 2 vehicles, got %v", input["vehicle_ids"])
	}
}

func TestFleetRefusesProgramOverEmptyFleet(t *testing.T) {
	t.Parallel()

	invoker := newFakeInvoker().on(toolx.ToolListFleetVehicles, fleetList())
	rec := &sinkRecorder{}

	goal := contractx.PlanGoal{
		Text:    "set up maintenance",
		Context: contractx.PlanContext{KeyProgramName: "quarterly service"},
	}
	if err := NewFleet(invoker).Run(context.Background(), goal, testToolContext(), rec.sink); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertCalls(t, invoker.calls, toolx.ToolListFleetVehicles)
	last := rec.events[len(rec.events)-1]
	if last.Kind != contractx.EventFinal {
		t.Fatalf("expected final event, got %s", last.Kind)
	}
}
