package shop

import (
	"context"
	"errors"
)

// ErrNotFound is returned by every store when the record does not exist
// inside the caller's tenant.
var ErrNotFound = errors.New("record not found")

type CustomerStore interface {
	Get(ctx context.Context, tenantID, id string) (*Customer, error)
	FindByEmail(ctx context.Context, tenantID, email string) (*Customer, error)
	Create(ctx context.Context, c *Customer) error
}

type VehicleStore interface {
	Get(ctx context.Context, tenantID, id string) (*Vehicle, error)
	FindByPlate(ctx context.Context, tenantID, plate string) (*Vehicle, error)
	Create(ctx context.Context, v *Vehicle) error
	ListFleet(ctx context.Context, tenantID string) ([]Vehicle, error)
}

type WorkOrderStore interface {
	Get(ctx context.Context, tenantID, id string) (*WorkOrder, error)
	Create(ctx context.Context, wo *WorkOrder) error
	AddLine(ctx context.Context, line *WorkOrderLine) error
	Lines(ctx context.Context, workOrderID string) ([]WorkOrderLine, error)
}

type ApprovalStore interface {
	Get(ctx context.Context, tenantID, id string) (*Approval, error)
	ListPending(ctx context.Context, tenantID string) ([]Approval, error)
	Decide(ctx context.Context, tenantID, id string, status ApprovalStatus, decidedBy string) (*Approval, error)
}

type FleetStore interface {
	CreateProgram(ctx context.Context, p *FleetProgram) error
}

// Mailer delivers one HTML message and returns the provider message id.
// pkg/mailer implements it against an HTTP provider.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) (string, error)
}

// Stores bundles every domain collaborator the tool catalog needs.
type Stores struct {
	Customers  CustomerStore
	Vehicles   VehicleStore
	WorkOrders WorkOrderStore
	Approvals  ApprovalStore
	Fleet      FleetStore
	Mailer     Mailer
}
