package shop

import (
	"time"

	"github.com/uptrace/bun"
)

type Customer struct {
	bun.BaseModel `bun:"table:customers"`

	ID        string    `bun:",pk" json:"id"`
	TenantID  string    `bun:",notnull" json:"tenant_id"`
	Name      string    `bun:",notnull" json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"created_at"`
}

type Vehicle struct {
	bun.BaseModel `bun:"table:vehicles"`

	ID         string    `bun:",pk" json:"id"`
	TenantID   string    `bun:",notnull" json:"tenant_id"`
	CustomerID string    `bun:",notnull" json:"customer_id"`
	Plate      string    `json:"plate,omitempty"`
	Make       string    `json:"make,omitempty"`
	Model      string    `json:"model,omitempty"`
	Year       int       `json:"year,omitempty"`
	Fleet      bool      `json:"fleet,omitempty"`
	CreatedAt  time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"created_at"`
}

type WorkOrderStatus string

const (
	WorkOrderOpen      WorkOrderStatus = "open"
	WorkOrderCompleted WorkOrderStatus = "completed"
)

type WorkOrder struct {
	bun.BaseModel `bun:"table:work_orders"`

	ID         string          `bun:",pk" json:"id"`
	TenantID   string          `bun:",notnull" json:"tenant_id"`
	CustomerID string          `bun:",notnull" json:"customer_id"`
	VehicleID  string          `bun:",notnull" json:"vehicle_id"`
	Status     WorkOrderStatus `bun:",notnull" json:"status"`
	CreatedBy  string          `json:"created_by,omitempty"`
	CreatedAt  time.Time       `bun:",nullzero,notnull,default:current_timestamp" json:"created_at"`
}

type WorkOrderLine struct {
	bun.BaseModel `bun:"table:work_order_lines"`

	ID          string    `bun:",pk" json:"id"`
	WorkOrderID string    `bun:",notnull" json:"work_order_id"`
	Description string    `bun:",notnull" json:"description"`
	AmountCents int64     `json:"amount_cents,omitempty"`
	CreatedAt   time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"created_at"`
}

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Approval tracks customer sign-off on a quoted work order.
type Approval struct {
	bun.BaseModel `bun:"table:approvals"`

	ID          string         `bun:",pk" json:"id"`
	TenantID    string         `bun:",notnull" json:"tenant_id"`
	WorkOrderID string         `bun:",notnull" json:"work_order_id"`
	Status      ApprovalStatus `bun:",notnull" json:"status"`
	RequestedBy string         `json:"requested_by,omitempty"`
	DecidedBy   string         `json:"decided_by,omitempty"`
	DecidedAt   time.Time      `bun:",nullzero" json:"decided_at,omitempty"`
	CreatedAt   time.Time      `bun:",nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// FleetProgram is a recurring maintenance program over a set of fleet
// vehicles.
type FleetProgram struct {
	bun.BaseModel `bun:"table:fleet_programs"`

	ID           string    `bun:",pk" json:"id"`
	TenantID     string    `bun:",notnull" json:"tenant_id"`
	Name         string    `bun:",notnull" json:"name"`
	IntervalDays int       `bun:",notnull" json:"interval_days"`
	VehicleIDs   []string  `bun:",array" json:"vehicle_ids,omitempty"`
	CreatedBy    string    `json:"created_by,omitempty"`
	CreatedAt    time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"created_at"`
}
