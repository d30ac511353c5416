package planner

import (
	"context"
	"fmt"

	contractx "github.com/fixwell/shop-agent/agent/contract"
	toolx "github.com/fixwell/shop-agent/agent/tool"
)

// Resolving opens a work order like Minimal but resolves missing
// customer/vehicle references first: look up by email or plate, create
// when enough identifying data is present, and stop with guidance when
// neither works. Invoice generation and email delivery run only when the
// context asks for them.
type Resolving struct {
	Invoker contractx.Invoker
}

func NewResolving(invoker contractx.Invoker) *Resolving {
	return &Resolving{Invoker: invoker}
}

func (p *Resolving) Run(ctx context.Context, goal contractx.PlanGoal, tc contractx.ToolContext, emit contractx.EventSink) error {
	if err := emit(ctx, contractx.PlanEvent("open a work order, resolving customer and vehicle references first")); err != nil {
		return err
	}

	customerID, err := p.resolveCustomer(ctx, goal, tc, emit)
	if err != nil {
		return err
	}
	if customerID == "" {
		return emit(ctx, contractx.FinalEvent(
			"cannot resolve a customer: supply customer_id, a customer_email that matches, or a customer_name to create one"))
	}

	vehicleID, err := p.resolveVehicle(ctx, goal, tc, emit, customerID)
	if err != nil {
		return err
	}
	if vehicleID == "" {
		return emit(ctx, contractx.FinalEvent(
			"cannot resolve a vehicle: supply vehicle_id or a vehicle_plate (an unknown plate is created under the resolved customer)"))
	}

	woOutput, err := invokeStep(ctx, p.Invoker, toolx.ToolCreateWorkOrder, map[string]any{
		"customer_id": customerID,
		"vehicle_id":  vehicleID,
	}, tc, emit)
	if err != nil {
		return err
	}
	workOrderID := outputString(woOutput, "work_order_id")

	if desc, ok := goal.Context.String(KeyLineDesc); ok {
		lineInput := map[string]any{
			"work_order_id": workOrderID,
			"description":   desc,
		}
		if amount, ok := goal.Context.Int(KeyLineAmount); ok {
			lineInput["amount_cents"] = amount
		}
		if _, err := invokeStep(ctx, p.Invoker, toolx.ToolAddWorkOrderLine, lineInput, tc, emit); err != nil {
			return err
		}
	}

	if recipient, ok := goal.Context.String(KeyEmailInvoiceTo); ok {
		if _, err := invokeStep(ctx, p.Invoker, toolx.ToolGenerateInvoice, map[string]any{
			"work_order_id": workOrderID,
		}, tc, emit); err != nil {
			return err
		}
		if _, err := invokeStep(ctx, p.Invoker, toolx.ToolEmailInvoice, map[string]any{
			"work_order_id": workOrderID,
			"to":            recipient,
		}, tc, emit); err != nil {
			return err
		}
	}

	return emit(ctx, contractx.FinalEvent(fmt.Sprintf("opened work order %s", workOrderID)))
}

// resolveCustomer returns the customer id, or "" when neither lookup nor
// creation is possible with the given context. An empty return with a
// nil error means the plan should end with guidance.
func (p *Resolving) resolveCustomer(
	ctx context.Context,
	goal contractx.PlanGoal,
	tc contractx.ToolContext,
	emit contractx.EventSink,
) (string, error) {
	if id, ok := goal.Context.String(KeyCustomerID); ok {
		return id, nil
	}

	email, haveEmail := goal.Context.String(KeyCustomerEmail)
	if haveEmail {
		output, err := invokeStep(ctx, p.Invoker, toolx.ToolFindCustomer, map[string]any{
			"email": email,
		}, tc, emit)
		if err != nil {
			return "", err
		}
		if outputBool(output, "found") {
			return outputString(output, "customer_id"), nil
		}
	}

	name, haveName := goal.Context.String(KeyCustomerName)
	if !haveName {
		return "", nil
	}

	input := map[string]any{"name": name}
	if haveEmail {
		input["email"] = email
	}
	output, err := invokeStep(ctx, p.Invoker, toolx.ToolCreateCustomer, input, tc, emit)
	if err != nil {
		return "", err
	}
	return outputString(output, "customer_id"), nil
}

func (p *Resolving) resolveVehicle(
	ctx context.Context,
	goal contractx.PlanGoal,
	tc contractx.ToolContext,
	emit contractx.EventSink,
	customerID string,
) (string, error) {
	if id, ok := goal.Context.String(KeyVehicleID); ok {
		return id, nil
	}

	plate, havePlate := goal.Context.String(KeyVehiclePlate)
	if !havePlate {
		return "", nil
	}

	output, err := invokeStep(ctx, p.Invoker, toolx.ToolFindVehicle, map[string]any{
		"plate": plate,
	}, tc, emit)
	if err != nil {
		return "", err
	}
	if outputBool(output, "found") {
		return outputString(output, "vehicle_id"), nil
	}

	created, err := invokeStep(ctx, p.Invoker, toolx.ToolCreateVehicle, map[string]any{
		"customer_id": customerID,
		"plate":       plate,
	}, tc, emit)
	if err != nil {
		return "", err
	}
	return outputString(created, "vehicle_id"), nil
}
