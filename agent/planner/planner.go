// Package planner holds the policies that turn a goal plus context into
// an ordered sequence of validated tool invocations. Every planner obeys
// the same event contract: one plan event, a tool_call/tool_result pair
// around each invocation, one terminal final event. Tool calls never run
// in parallel within a run; later inputs may depend on earlier outputs.
package planner

import (
	"context"

	contractx "github.com/fixwell/shop-agent/agent/contract"
)

// Context keys shared by the shop planners. Absent optional keys skip
// the dependent step; absent required keys end the plan with guidance.
const (
	KeyCustomerID     = "customer_id"
	KeyVehicleID      = "vehicle_id"
	KeyCustomerName   = "customer_name"
	KeyCustomerEmail  = "customer_email"
	KeyVehiclePlate   = "vehicle_plate"
	KeyLineDesc       = "line_description"
	KeyLineAmount     = "line_amount_cents"
	KeyEmailInvoiceTo = "email_invoice_to"
	KeyWorkOrderID    = "work_order_id"
	KeyProgramName    = "program_name"
	KeyProgramDays    = "program_interval_days"
)

// invokeStep emits the tool_call event, dispatches through the registry,
// and emits the tool_result event. The sink must complete before control
// returns, which keeps the persisted trail in causal order.
func invokeStep(
	ctx context.Context,
	invoker contractx.Invoker,
	name string,
	input map[string]any,
	tc contractx.ToolContext,
	emit contractx.EventSink,
) (map[string]any, error) {
	if err := emit(ctx, contractx.ToolCallEvent(name, input)); err != nil {
		return nil, err
	}
	output, err := invoker.Invoke(ctx, name, input, tc)
	if err != nil {
		return nil, err
	}
	if err := emit(ctx, contractx.ToolResultEvent(name, output)); err != nil {
		return nil, err
	}
	return output, nil
}

func outputString(output map[string]any, key string) string {
	if output == nil {
		return ""
	}
	s, _ := output[key].(string)
	return s
}

func outputBool(output map[string]any, key string) bool {
	if output == nil {
		return false
	}
	b, _ := output[key].(bool)
	return b
}
