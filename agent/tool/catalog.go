package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	contractx "github.com/fixwell/shop-agent/agent/contract"
	shopx "github.com/fixwell/shop-agent/agent/shop"
)

// Tool names form a closed set: every constant below is registered by
// NewShopRegistry, so planners reference tools through these constants
// and an unknown name can only come from external input.
const (
	ToolFindCustomer       = "find_customer"
	ToolCreateCustomer     = "create_customer"
	ToolFindVehicle        = "find_vehicle"
	ToolCreateVehicle      = "create_vehicle"
	ToolCreateWorkOrder    = "create_work_order"
	ToolAddWorkOrderLine   = "add_work_order_line"
	ToolGenerateInvoice    = "generate_invoice_html"
	ToolEmailInvoice       = "email_invoice"
	ToolListApprovals      = "list_approvals"
	ToolDecideApproval     = "decide_approval"
	ToolListFleetVehicles  = "list_fleet_vehicles"
	ToolCreateFleetProgram = "create_fleet_program"
)

// NewShopRegistry builds the registry with every shop tool bound to the
// given domain stores.
func NewShopRegistry(stores shopx.Stores) (*Registry, error) {
	r := NewRegistry()
	for _, def := range Catalog(stores) {
		if err := r.Register(def); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Catalog returns every shop tool definition. Each tool performs one
// coherent unit of work; multi-step business processes are composed by
// planners, never baked into a tool body.
func Catalog(stores shopx.Stores) []Definition {
	return []Definition{
		findCustomerTool(stores),
		createCustomerTool(stores),
		findVehicleTool(stores),
		createVehicleTool(stores),
		createWorkOrderTool(stores),
		addWorkOrderLineTool(stores),
		generateInvoiceTool(stores),
		emailInvoiceTool(stores),
		listApprovalsTool(stores),
		decideApprovalTool(stores),
		listFleetVehiclesTool(stores),
		createFleetProgramTool(stores),
	}
}

// intArg reads a numeric input field. Values arrive as float64 when the
// input came over the wire and as int when a planner built it in-process.
func intArg(input map[string]any, key string) (int64, bool) {
	switch v := input[key].(type) {
	case float64:
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	default:
		return 0, false
	}
}

func findCustomerTool(stores shopx.Stores) Definition {
	return Definition{
		Name:        ToolFindCustomer,
		Description: "Look up an existing customer by email. Returns found=false when no match exists.",
		InputSchema: `{
			"type": "object",
			"properties": {
				"email": {"type": "string", "minLength": 1}
			},
			"required": ["email"],
			"additionalProperties": false
		}`,
		OutputSchema: `{
			"type": "object",
			"properties": {
				"found": {"type": "boolean"},
				"customer_id": {"type": "string"},
				"name": {"type": "string"}
			},
			"required": ["found"],
			"additionalProperties": false
		}`,
		Execute: func(ctx context.Context, input map[string]any, tc contractx.ToolContext) (map[string]any, error) {
			email, _ := input["email"].(string)
			customer, err := stores.Customers.FindByEmail(ctx, tc.TenantID, email)
			if err != nil {
				if errors.Is(err, shopx.ErrNotFound) {
					return map[string]any{"found": false}, nil
				}
				return nil, err
			}
			return map[string]any{
				"found":       true,
				"customer_id": customer.ID,
				"name":        customer.Name,
			}, nil
		},
	}
}

func createCustomerTool(stores shopx.Stores) Definition {
	return Definition{
		Name:        ToolCreateCustomer,
		Description: "Create a new customer record in the caller's tenant.",
		InputSchema: `{
			"type": "object",
			"properties": {
				"name": {"type": "string", "minLength": 1},
				"email": {"type": "string"},
				"phone": {"type": "string"}
			},
			"required": ["name"],
			"additionalProperties": false
		}`,
		OutputSchema: `{
			"type": "object",
			"properties": {
				"customer_id": {"type": "string"}
			},
			"required": ["customer_id"],
			"additionalProperties": false
		}`,
		Execute: func(ctx context.Context, input map[string]any, tc contractx.ToolContext) (map[string]any, error) {
			name, _ := input["name"].(string)
			email, _ := input["email"].(string)
			phone, _ := input["phone"].(string)

			customer := &shopx.Customer{
				ID:       uuid.NewString(),
				TenantID: tc.TenantID,
				Name:     strings.TrimSpace(name),
				Email:    strings.TrimSpace(email),
				Phone:    strings.TrimSpace(phone),
			}
			if err := stores.Customers.Create(ctx, customer); err != nil {
				return nil, err
			}
			return map[string]any{"customer_id": customer.ID}, nil
		},
	}
}

func findVehicleTool(stores shopx.Stores) Definition {
	return Definition{
		Name:        ToolFindVehicle,
		Description: "Look up an existing vehicle by plate. Returns found=false when no match exists.",
		InputSchema: `{
			"type": "object",
			"properties": {
				"plate": {"type": "string", "minLength": 1}
			},
			"required": ["plate"],
			"additionalProperties": false
		}`,
		OutputSchema: `{
			"type": "object",
			"properties": {
				"found": {"type": "boolean"},
				"vehicle_id": {"type": "string"},
				"customer_id": {"type": "string"}
			},
			"required": ["found"],
			"additionalProperties": false
		}`,
		Execute: func(ctx context.Context, input map[string]any, tc contractx.ToolContext) (map[string]any, error) {
			plate, _ := input["plate"].(string)
			vehicle, err := stores.Vehicles.FindByPlate(ctx, tc.TenantID, plate)
			if err != nil {
				if errors.Is(err, shopx.ErrNotFound) {
					return map[string]any{"found": false}, nil
				}
				return nil, err
			}
			return map[string]any{
				"found":       true,
				"vehicle_id":  vehicle.ID,
				"customer_id": vehicle.CustomerID,
			}, nil
		},
	}
}

func createVehicleTool(stores shopx.Stores) Definition {
	return Definition{
		Name:        ToolCreateVehicle,
		Description: "Create a vehicle attached to an existing customer.",
		InputSchema: `{
			"type": "object",
			"properties": {
				"customer_id": {"type": "string", "minLength": 1},
				"plate": {"type": "string"},
				"make": {"type": "string"},
				"model": {"type": "string"},
				"year": {"type": "integer"}
			},
			"required": ["customer_id"],
			"additionalProperties": false
		}`,
		OutputSchema: `{
			"type": "object",
			"properties": {
				"vehicle_id": {"type": "string"}
			},
			"required": ["vehicle_id"],
			"additionalProperties": false
		}`,
		Execute: func(ctx context.Context, input map[string]any, tc contractx.ToolContext) (map[string]any, error) {
			customerID, _ := input["customer_id"].(string)
			if _, err := stores.Customers.Get(ctx, tc.TenantID, customerID); err != nil {
				if errors.Is(err, shopx.ErrNotFound) {
					return nil, fmt.Errorf("customer %s not found", customerID)
				}
				return nil, err
			}

			vehicle := &shopx.Vehicle{
				ID:         uuid.NewString(),
				TenantID:   tc.TenantID,
				CustomerID: customerID,
			}
			vehicle.Plate, _ = input["plate"].(string)
			vehicle.Make, _ = input["make"].(string)
			vehicle.Model, _ = input["model"].(string)
			if year, ok := intArg(input, "year"); ok {
				vehicle.Year = int(year)
			}

			if err := stores.Vehicles.Create(ctx, vehicle); err != nil {
				return nil, err
			}
			return map[string]any{"vehicle_id": vehicle.ID}, nil
		},
	}
}

func createWorkOrderTool(stores shopx.Stores) Definition {
	return Definition{
		Name:        ToolCreateWorkOrder,
		Description: "Open a work order for an existing customer and vehicle.",
		InputSchema: `{
			"type": "object",
			"properties": {
				"customer_id": {"type": "string", "minLength": 1},
				"vehicle_id": {"type": "string", "minLength": 1}
			},
			"required": ["customer_id", "vehicle_id"],
			"additionalProperties": false
		}`,
		OutputSchema: `{
			"type": "object",
			"properties": {
				"work_order_id": {"type": "string"},
				"status": {"type": "string"}
			},
			"required": ["work_order_id", "status"],
			"additionalProperties": false
		}`,
		Execute: func(ctx context.Context, input map[string]any, tc contractx.ToolContext) (map[string]any, error) {
			customerID, _ := input["customer_id"].(string)
			vehicleID, _ := input["vehicle_id"].(string)

			if _, err := stores.Customers.Get(ctx, tc.TenantID, customerID); err != nil {
				if errors.Is(err, shopx.ErrNotFound) {
					return nil, fmt.Errorf("customer %s not found", customerID)
				}
				return nil, err
			}
			vehicle, err := stores.Vehicles.Get(ctx, tc.TenantID, vehicleID)
			if err != nil {
				if errors.Is(err, shopx.ErrNotFound) {
					return nil, fmt.Errorf("vehicle %s not found", vehicleID)
				}
				return nil, err
			}
			if vehicle.CustomerID != customerID {
				return nil, fmt.Errorf("vehicle %s does not belong to customer %s", vehicleID, customerID)
			}

			wo := &shopx.WorkOrder{
				ID:         uuid.NewString(),
				TenantID:   tc.TenantID,
				CustomerID: customerID,
				VehicleID:  vehicleID,
				Status:     shopx.WorkOrderOpen,
				CreatedBy:  tc.UserID,
			}
			if err := stores.WorkOrders.Create(ctx, wo); err != nil {
				return nil, err
			}
			return map[string]any{
				"work_order_id": wo.ID,
				"status":        string(wo.Status),
			}, nil
		},
	}
}

func addWorkOrderLineTool(stores shopx.Stores) Definition {
	return Definition{
		Name:        ToolAddWorkOrderLine,
		Description: "Add one line item to an existing work order.",
		InputSchema: `{
			"type": "object",
			"properties": {
				"work_order_id": {"type": "string", "minLength": 1},
				"description": {"type": "string", "minLength": 1},
				"amount_cents": {"type": "integer", "minimum": 0}
			},
			"required": ["work_order_id", "description"],
			"additionalProperties": false
		}`,
		OutputSchema: `{
			"type": "object",
			"properties": {
				"line_id": {"type": "string"}
			},
			"required": ["line_id"],
			"additionalProperties": false
		}`,
		Execute: func(ctx context.Context, input map[string]any, tc contractx.ToolContext) (map[string]any, error) {
			workOrderID, _ := input["work_order_id"].(string)
			if _, err := stores.WorkOrders.Get(ctx, tc.TenantID, workOrderID); err != nil {
				if errors.Is(err, shopx.ErrNotFound) {
					return nil, fmt.Errorf("work order %s not found", workOrderID)
				}
				return nil, err
			}

			line := &shopx.WorkOrderLine{
				ID:          uuid.NewString(),
				WorkOrderID: workOrderID,
			}
			line.Description, _ = input["description"].(string)
			if amount, ok := intArg(input, "amount_cents"); ok {
				line.AmountCents = amount
			}

			if err := stores.WorkOrders.AddLine(ctx, line); err != nil {
				return nil, err
			}
			return map[string]any{"line_id": line.ID}, nil
		},
	}
}

func generateInvoiceTool(stores shopx.Stores) Definition {
	return Definition{
		Name:        ToolGenerateInvoice,
		Description: "Render the invoice HTML document for a work order.",
		InputSchema: `{
			"type": "object",
			"properties": {
				"work_order_id": {"type": "string", "minLength": 1}
			},
			"required": ["work_order_id"],
			"additionalProperties": false
		}`,
		OutputSchema: `{
			"type": "object",
			"properties": {
				"html": {"type": "string", "minLength": 1},
				"total_cents": {"type": "integer"}
			},
			"required": ["html", "total_cents"],
			"additionalProperties": false
		}`,
		Execute: func(ctx context.Context, input map[string]any, tc contractx.ToolContext) (map[string]any, error) {
			workOrderID, _ := input["work_order_id"].(string)
			wo, err := stores.WorkOrders.Get(ctx, tc.TenantID, workOrderID)
			if err != nil {
				if errors.Is(err, shopx.ErrNotFound) {
					return nil, fmt.Errorf("work order %s not found", workOrderID)
				}
				return nil, err
			}

			customer, err := stores.Customers.Get(ctx, tc.TenantID, wo.CustomerID)
			if err != nil && !errors.Is(err, shopx.ErrNotFound) {
				return nil, err
			}

			lines, err := stores.WorkOrders.Lines(ctx, wo.ID)
			if err != nil {
				return nil, err
			}

			html, err := shopx.RenderInvoiceHTML(wo, customer, lines)
			if err != nil {
				return nil, err
			}

			var total int64
			for _, line := range lines {
				total += line.AmountCents
			}
			return map[string]any{
				"html":        html,
				"total_cents": total,
			}, nil
		},
	}
}

func emailInvoiceTool(stores shopx.Stores) Definition {
	return Definition{
		Name:        ToolEmailInvoice,
		Description: "Email the invoice for a work order to one recipient.",
		InputSchema: `{
			"type": "object",
			"properties": {
				"work_order_id": {"type": "string", "minLength": 1},
				"to": {"type": "string", "minLength": 3}
			},
			"required": ["work_order_id", "to"],
			"additionalProperties": false
		}`,
		OutputSchema: `{
			"type": "object",
			"properties": {
				"message_id": {"type": "string"}
			},
			"required": ["message_id"],
			"additionalProperties": false
		}`,
		Execute: func(ctx context.Context, input map[string]any, tc contractx.ToolContext) (map[string]any, error) {
			if stores.Mailer == nil {
				return nil, fmt.Errorf("mail delivery is not configured")
			}

			workOrderID, _ := input["work_order_id"].(string)
			to, _ := input["to"].(string)

			wo, err := stores.WorkOrders.Get(ctx, tc.TenantID, workOrderID)
			if err != nil {
				if errors.Is(err, shopx.ErrNotFound) {
					return nil, fmt.Errorf("work order %s not found", workOrderID)
				}
				return nil, err
			}

			customer, err := stores.Customers.Get(ctx, tc.TenantID, wo.CustomerID)
			if err != nil && !errors.Is(err, shopx.ErrNotFound) {
				return nil, err
			}
			lines, err := stores.WorkOrders.Lines(ctx, wo.ID)
			if err != nil {
				return nil, err
			}
			html, err := shopx.RenderInvoiceHTML(wo, customer, lines)
			if err != nil {
				return nil, err
			}

			messageID, err := stores.Mailer.Send(ctx, to, fmt.Sprintf("Invoice for work order %s", wo.ID), html)
			if err != nil {
				return nil, fmt.Errorf("send invoice email: %w", err)
			}
			return map[string]any{"message_id": messageID}, nil
		},
	}
}

func listApprovalsTool(stores shopx.Stores) Definition {
	return Definition{
		Name:        ToolListApprovals,
		Description: "List pending work-order approvals in the caller's tenant.",
		InputSchema: `{
			"type": "object",
			"properties": {},
			"additionalProperties": false
		}`,
		OutputSchema: `{
			"type": "object",
			"properties": {
				"count": {"type": "integer"},
				"approvals": {
					"type": "array",
					"items": {
						"type": "object",
						"properties": {
							"approval_id": {"type": "string"},
							"work_order_id": {"type": "string"},
							"status": {"type": "string"}
						},
						"required": ["approval_id", "work_order_id", "status"]
					}
				}
			},
			"required": ["count", "approvals"],
			"additionalProperties": false
		}`,
		Execute: func(ctx context.Context, input map[string]any, tc contractx.ToolContext) (map[string]any, error) {
			pending, err := stores.Approvals.ListPending(ctx, tc.TenantID)
			if err != nil {
				return nil, err
			}

			approvals := make([]any, 0, len(pending))
			for _, a := range pending {
				approvals = append(approvals, map[string]any{
					"approval_id":   a.ID,
					"work_order_id": a.WorkOrderID,
					"status":        string(a.Status),
				})
			}
			return map[string]any{
				"count":     len(pending),
				"approvals": approvals,
			}, nil
		},
	}
}

func decideApprovalTool(stores shopx.Stores) Definition {
	return Definition{
		Name:        ToolDecideApproval,
		Description: "Approve or reject one pending work-order approval.",
		InputSchema: `{
			"type": "object",
			"properties": {
				"approval_id": {"type": "string", "minLength": 1},
				"decision": {"type": "string", "enum": ["approve", "reject"]}
			},
			"required": ["approval_id", "decision"],
			"additionalProperties": false
		}`,
		OutputSchema: `{
			"type": "object",
			"properties": {
				"approval_id": {"type": "string"},
				"status": {"type": "string"}
			},
			"required": ["approval_id", "status"],
			"additionalProperties": false
		}`,
		Execute: func(ctx context.Context, input map[string]any, tc contractx.ToolContext) (map[string]any, error) {
			approvalID, _ := input["approval_id"].(string)
			decision, _ := input["decision"].(string)

			status := shopx.ApprovalApproved
			if decision == "reject" {
				status = shopx.ApprovalRejected
			}

			decided, err := stores.Approvals.Decide(ctx, tc.TenantID, approvalID, status, tc.UserID)
			if err != nil {
				if errors.Is(err, shopx.ErrNotFound) {
					return nil, fmt.Errorf("approval %s not found", approvalID)
				}
				return nil, err
			}
			return map[string]any{
				"approval_id": decided.ID,
				"status":      string(decided.Status),
			}, nil
		},
	}
}

func listFleetVehiclesTool(stores shopx.Stores) Definition {
	return Definition{
		Name:        ToolListFleetVehicles,
		Description: "List fleet vehicles in the caller's tenant.",
		InputSchema: `{
			"type": "object",
			"properties": {},
			"additionalProperties": false
		}`,
		OutputSchema: `{
			"type": "object",
			"properties": {
				"count": {"type": "integer"},
				"vehicles": {
					"type": "array",
					"items": {
						"type": "object",
						"properties": {
							"vehicle_id": {"type": "string"},
							"plate": {"type": "string"}
						},
						"required": ["vehicle_id"]
					}
				}
			},
			"required": ["count", "vehicles"],
			"additionalProperties": false
		}`,
		Execute: func(ctx context.Context, input map[string]any, tc contractx.ToolContext) (map[string]any, error) {
			fleet, err := stores.Vehicles.ListFleet(ctx, tc.TenantID)
			if err != nil {
				return nil, err
			}

			vehicles := make([]any, 0, len(fleet))
			for _, v := range fleet {
				vehicles = append(vehicles, map[string]any{
					"vehicle_id": v.ID,
					"plate":      v.Plate,
				})
			}
			return map[string]any{
				"count":    len(fleet),
				"vehicles": vehicles,
			}, nil
		},
	}
}

func createFleetProgramTool(stores shopx.Stores) Definition {
	return Definition{
		Name:        ToolCreateFleetProgram,
		Description: "Create a recurring maintenance program over fleet vehicles.",
		InputSchema: `{
			"type": "object",
			"properties": {
				"name": {"type": "string", "minLength": 1},
				"interval_days": {"type": "integer", "minimum": 1},
				"vehicle_ids": {
					"type": "array",
					"items": {"type": "string", "minLength": 1}
				}
			},
			"required": ["name"],
			"additionalProperties": false
		}`,
		OutputSchema: `{
			"type": "object",
			"properties": {
				"program_id": {"type": "string"},
				"vehicle_count": {"type": "integer"}
			},
			"required": ["program_id", "vehicle_count"],
			"additionalProperties": false
		}`,
		Execute: func(ctx context.Context, input map[string]any, tc contractx.ToolContext) (map[string]any, error) {
			name, _ := input["name"].(string)

			intervalDays := 90
			if v, ok := intArg(input, "interval_days"); ok {
				intervalDays = int(v)
			}

			var vehicleIDs []string
			if raw, ok := input["vehicle_ids"].([]any); ok {
				for _, id := range raw {
					s, ok := id.(string)
					if !ok {
						continue
					}
					if _, err := stores.Vehicles.Get(ctx, tc.TenantID, s); err != nil {
						if errors.Is(err, shopx.ErrNotFound) {
							return nil, fmt.Errorf("vehicle %s not found", s)
						}
						return nil, err
					}
					vehicleIDs = append(vehicleIDs, s)
				}
			}

			program := &shopx.FleetProgram{
				ID:           uuid.NewString(),
				TenantID:     tc.TenantID,
				Name:         strings.TrimSpace(name),
				IntervalDays: intervalDays,
				VehicleIDs:   vehicleIDs,
				CreatedBy:    tc.UserID,
			}
			if err := stores.Fleet.CreateProgram(ctx, program); err != nil {
				return nil, err
			}
			return map[string]any{
				"program_id":    program.ID,
				"vehicle_count": len(vehicleIDs),
			}, nil
		},
	}
}
