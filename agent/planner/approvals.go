package planner

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/fixwell/shop-agent/agent/contract"
	toolx "github.com/fixwell/shop-agent/agent/tool"
)

type approvalAction string

const (
	actionList    approvalAction = "list"
	actionApprove approvalAction = "approve"
	actionReject  approvalAction = "reject"
)

// Approvals works the approval queue. It parses a small constrained
// vocabulary out of the goal text, always reads the pending list first,
// and mutates only when a single target approval was resolved — the
// "list, don't guess" policy.
type Approvals struct {
	Invoker contractx.Invoker
}

func NewApprovals(invoker contractx.Invoker) *Approvals {
	return &Approvals{Invoker: invoker}
}

func (p *Approvals) Run(ctx context.Context, goal contractx.PlanGoal, tc contractx.ToolContext, emit contractx.EventSink) error {
	action := parseApprovalAction(goal.Text)
	if err := emit(ctx, contractx.PlanEvent(fmt.Sprintf("approval workflow: %s pending approvals", action))); err != nil {
		return err
	}

	listed, err := invokeStep(ctx, p.Invoker, toolx.ToolListApprovals, map[string]any{}, tc, emit)
	if err != nil {
		return err
	}

	if action == actionList {
		return emit(ctx, contractx.FinalEvent(fmt.Sprintf("%v pending approvals", listed["count"])))
	}

	targetID := p.resolveTarget(goal, listed)
	if targetID == "" {
		return emit(ctx, contractx.FinalEvent(
			"no unambiguous approval target: supply work_order_id, or retry when exactly one approval is pending"))
	}

	decision := "approve"
	if action == actionReject {
		decision = "reject"
	}
	decided, err := invokeStep(ctx, p.Invoker, toolx.ToolDecideApproval, map[string]any{
		"approval_id": targetID,
		"decision":    decision,
	}, tc, emit)
	if err != nil {
		return err
	}

	return emit(ctx, contractx.FinalEvent(
		fmt.Sprintf("approval %s is now %s", targetID, outputString(decided, "status"))))
}

// resolveTarget picks the approval to decide: the one matching the
// context's work_order_id, or the only pending approval when exactly
// one exists. Anything else is ambiguous and resolves to "".
func (p *Approvals) resolveTarget(goal contractx.PlanGoal, listed map[string]any) string {
	approvals, _ := listed["approvals"].([]any)

	if workOrderID, ok := goal.Context.String(KeyWorkOrderID); ok {
		for _, raw := range approvals {
			entry, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			if s, _ := entry["work_order_id"].(string); s == workOrderID {
				id, _ := entry["approval_id"].(string)
				return id
			}
		}
		return ""
	}

	if len(approvals) == 1 {
		entry, ok := approvals[0].(map[string]any)
		if !ok {
			return ""
		}
		id, _ := entry["approval_id"].(string)
		return id
	}
	return ""
}

func parseApprovalAction(goalText string) approvalAction {
	text := strings.ToLower(goalText)
	switch {
	case strings.Contains(text, "reject") || strings.Contains(text, "decline"):
		return actionReject
	case strings.Contains(text, "approve") || strings.Contains(text, "accept"):
		return actionApprove
	default:
		return actionList
	}
}
