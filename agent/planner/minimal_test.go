package planner

import (
	"context"
	"testing"

	contractx "github.com/fixwell/shop-agent/agent/contract"
	toolx "github.com/fixwell/shop-agent/agent/tool"
)

func TestMinimalOpensWorkOrder(t *testing.T) {
	t.Parallel()

	invoker := newFakeInvoker().
		on(toolx.ToolCreateWorkOrder, map[string]any{"work_order_id": "wo-1", "status": "open"})
	rec := &sinkRecorder{}

	goal := contractx.PlanGoal{
		Text: "open a work order",
		Context: contractx.PlanContext{
			KeyCustomerID: "c-1",
			KeyVehicleID:  "v-1",
		},
	}
	if err := NewMinimal(invoker).Run(context.Background(), goal, testToolContext(), rec.sink); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertCalls(t, invoker.calls, toolx.ToolCreateWorkOrder)
	assertKinds(t, rec.kinds(),
		contractx.EventPlan, contractx.EventToolCall, contractx.EventToolResult, contractx.EventFinal)
	if invoker.inputs[0]["customer_id"] != "c-1" || invoker.inputs[0]["vehicle_id"] != "v-1" {
		t.Fatalf("unexpected work order input: %v", invoker.inputs[0])
	}
}

func TestMinimalAddsLineWhenDescribed(t *testing.T) {
	t.Parallel()

	invoker := newFakeInvoker().
		on(toolx.ToolCreateWorkOrder, map[string]any{"work_order_id": "wo-1", "status": "open"}).
		on(toolx.ToolAddWorkOrderLine, map[string]any{"line_id": "l-1"})
	rec := &sinkRecorder{}

	goal := contractx.PlanGoal{
		Text: "open a work order for brake service",
		Context: contractx.PlanContext{
			KeyCustomerID: "c-1",
			KeyVehicleID:  "v-1",
			KeyLineDesc:   "brake pads",
			KeyLineAmount: 12500,
		},
	}
	if err := NewMinimal(invoker).Run(context.Background(), goal, testToolContext(), rec.sink); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertCalls(t, invoker.calls, toolx.ToolCreateWorkOrder, toolx.ToolAddWorkOrderLine)
	if invoker.inputs[1]["work_order_id"] != "wo-1" {
		t.Fatalf("line not attached to created order: %v", invoker.inputs[1])
	}
	if invoker.inputs[1]["amount_cents"] != 12500 {
		t.Fatalf("unexpected amount: %v", invoker.inputs[1])
	}
}

func TestMinimalRefusesWithoutResolvedReferences(t *testing.T) {
	t.Parallel()

	invoker := newFakeInvoker()
	rec := &sinkRecorder{}

	goal := contractx.PlanGoal{
		Text:    "open a work order",
		Context: contractx.PlanContext{KeyCustomerID: "c-1"}, // vehicle missing
	}
	if err := NewMinimal(invoker).Run(context.Background(), goal, testToolContext(), rec.sink); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(invoker.calls) != 0 {
		t.Fatalf("expected zero tool calls, got %v", invoker.calls)
	}
	assertKinds(t, rec.kinds(), contractx.EventPlan, contractx.EventFinal)
	if rec.events[1].Text == "" {
		t.Fatal("final event must carry guidance text")
	}
}
