package shop

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// NewBunStores returns the store bundle backed by Postgres through bun.
// One type per interface; they share the database handle.
func NewBunStores(db *bun.DB, mailer Mailer) Stores {
	return Stores{
		Customers:  &bunCustomers{db: db},
		Vehicles:   &bunVehicles{db: db},
		WorkOrders: &bunWorkOrders{db: db},
		Approvals:  &bunApprovals{db: db},
		Fleet:      &bunFleet{db: db},
		Mailer:     mailer,
	}
}

// EnsureSchema creates the domain tables when missing.
func EnsureSchema(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*Customer)(nil),
		(*Vehicle)(nil),
		(*WorkOrder)(nil),
		(*WorkOrderLine)(nil),
		(*Approval)(nil),
		(*FleetProgram)(nil),
	}
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}
	return nil
}

type bunCustomers struct{ db *bun.DB }

func (s *bunCustomers) Get(ctx context.Context, tenantID, id string) (*Customer, error) {
	c := new(Customer)
	err := s.db.NewSelect().Model(c).
		Where("tenant_id = ?", tenantID).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return c, nil
}

func (s *bunCustomers) FindByEmail(ctx context.Context, tenantID, email string) (*Customer, error) {
	c := new(Customer)
	err := s.db.NewSelect().Model(c).
		Where("tenant_id = ?", tenantID).
		Where("lower(email) = lower(?)", email).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return c, nil
}

func (s *bunCustomers) Create(ctx context.Context, c *Customer) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.NewInsert().Model(c).Exec(ctx)
	return err
}

type bunVehicles struct{ db *bun.DB }

func (s *bunVehicles) Get(ctx context.Context, tenantID, id string) (*Vehicle, error) {
	v := new(Vehicle)
	err := s.db.NewSelect().Model(v).
		Where("tenant_id = ?", tenantID).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return v, nil
}

func (s *bunVehicles) FindByPlate(ctx context.Context, tenantID, plate string) (*Vehicle, error) {
	v := new(Vehicle)
	err := s.db.NewSelect().Model(v).
		Where("tenant_id = ?", tenantID).
		Where("lower(plate) = lower(?)", plate).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return v, nil
}

func (s *bunVehicles) Create(ctx context.Context, v *Vehicle) error {
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.NewInsert().Model(v).Exec(ctx)
	return err
}

func (s *bunVehicles) ListFleet(ctx context.Context, tenantID string) ([]Vehicle, error) {
	var vehicles []Vehicle
	err := s.db.NewSelect().Model(&vehicles).
		Where("tenant_id = ?", tenantID).
		Where("fleet = TRUE").
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return vehicles, nil
}

type bunWorkOrders struct{ db *bun.DB }

func (s *bunWorkOrders) Get(ctx context.Context, tenantID, id string) (*WorkOrder, error) {
	wo := new(WorkOrder)
	err := s.db.NewSelect().Model(wo).
		Where("tenant_id = ?", tenantID).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return wo, nil
}

func (s *bunWorkOrders) Create(ctx context.Context, wo *WorkOrder) error {
	if wo.CreatedAt.IsZero() {
		wo.CreatedAt = time.Now().UTC()
	}
	if wo.Status == "" {
		wo.Status = WorkOrderOpen
	}
	_, err := s.db.NewInsert().Model(wo).Exec(ctx)
	return err
}

func (s *bunWorkOrders) AddLine(ctx context.Context, line *WorkOrderLine) error {
	if line.CreatedAt.IsZero() {
		line.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.NewInsert().Model(line).Exec(ctx)
	return err
}

func (s *bunWorkOrders) Lines(ctx context.Context, workOrderID string) ([]WorkOrderLine, error) {
	var lines []WorkOrderLine
	err := s.db.NewSelect().Model(&lines).
		Where("work_order_id = ?", workOrderID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return lines, nil
}

type bunApprovals struct{ db *bun.DB }

func (s *bunApprovals) Get(ctx context.Context, tenantID, id string) (*Approval, error) {
	a := new(Approval)
	err := s.db.NewSelect().Model(a).
		Where("tenant_id = ?", tenantID).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return a, nil
}

func (s *bunApprovals) ListPending(ctx context.Context, tenantID string) ([]Approval, error) {
	var approvals []Approval
	err := s.db.NewSelect().Model(&approvals).
		Where("tenant_id = ?", tenantID).
		Where("status = ?", ApprovalPending).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return approvals, nil
}

func (s *bunApprovals) Decide(ctx context.Context, tenantID, id string, status ApprovalStatus, decidedBy string) (*Approval, error) {
	a, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if a.Status != ApprovalPending {
		return nil, fmt.Errorf("approval %s already decided: %s", id, a.Status)
	}

	a.Status = status
	a.DecidedBy = decidedBy
	a.DecidedAt = time.Now().UTC()

	res, err := s.db.NewUpdate().Model(a).
		Column("status", "decided_by", "decided_at").
		Where("tenant_id = ?", tenantID).
		Where("id = ?", id).
		Where("status = ?", ApprovalPending).
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, fmt.Errorf("approval %s already decided", id)
	}
	return a, nil
}

type bunFleet struct{ db *bun.DB }

func (s *bunFleet) CreateProgram(ctx context.Context, p *FleetProgram) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.NewInsert().Model(p).Exec(ctx)
	return err
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
