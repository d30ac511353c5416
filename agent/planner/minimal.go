package planner

import (
	"context"
	"fmt"

	contractx "github.com/fixwell/shop-agent/agent/contract"
	toolx "github.com/fixwell/shop-agent/agent/tool"
)

// Minimal opens a work order only when the caller pre-resolved both the
// customer and the vehicle. It never guesses: missing references end the
// plan with guidance instead of a tool call.
type Minimal struct {
	Invoker contractx.Invoker
}

func NewMinimal(invoker contractx.Invoker) *Minimal {
	return &Minimal{Invoker: invoker}
}

func (p *Minimal) Run(ctx context.Context, goal contractx.PlanGoal, tc contractx.ToolContext, emit contractx.EventSink) error {
	if err := emit(ctx, contractx.PlanEvent("open a work order for a pre-resolved customer and vehicle")); err != nil {
		return err
	}

	customerID, haveCustomer := goal.Context.String(KeyCustomerID)
	vehicleID, haveVehicle := goal.Context.String(KeyVehicleID)
	if !haveCustomer || !haveVehicle {
		return emit(ctx, contractx.FinalEvent(
			"cannot open a work order: both customer_id and vehicle_id must be supplied in the context"))
	}

	output, err := invokeStep(ctx, p.Invoker, toolx.ToolCreateWorkOrder, map[string]any{
		"customer_id": customerID,
		"vehicle_id":  vehicleID,
	}, tc, emit)
	if err != nil {
		return err
	}

	if desc, ok := goal.Context.String(KeyLineDesc); ok {
		lineInput := map[string]any{
			"work_order_id": outputString(output, "work_order_id"),
			"description":   desc,
		}
		if amount, ok := goal.Context.Int(KeyLineAmount); ok {
			lineInput["amount_cents"] = amount
		}
		if _, err := invokeStep(ctx, p.Invoker, toolx.ToolAddWorkOrderLine, lineInput, tc, emit); err != nil {
			return err
		}
	}

	return emit(ctx, contractx.FinalEvent(
		fmt.Sprintf("opened work order %s", outputString(output, "work_order_id"))))
}
