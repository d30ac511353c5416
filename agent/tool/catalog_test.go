package tool

import (
	"context"
	"errors"
	"strings"
	"testing"

	contractx "github.com/fixwell/shop-agent/agent/contract"
	shopx "github.com/fixwell/shop-agent/agent/shop"
)

type memStores struct {
	customers map[string]*shopx.Customer
	vehicles  map[string]*shopx.Vehicle
	orders    map[string]*shopx.WorkOrder
	lines     map[string][]shopx.WorkOrderLine
	approvals map[string]*shopx.Approval
	programs  map[string]*shopx.FleetProgram

	sentTo      []string
	sentSubject []string
}

func newMemStores() *memStores {
	return &memStores{
		customers: make(map[string]*shopx.Customer),
		vehicles:  make(map[string]*shopx.Vehicle),
		orders:    make(map[string]*shopx.WorkOrder),
		lines:     make(map[string][]shopx.WorkOrderLine),
		approvals: make(map[string]*shopx.Approval),
		programs:  make(map[string]*shopx.FleetProgram),
	}
}

func (m *memStores) stores() shopx.Stores {
	return shopx.Stores{
		Customers:  m,
		Vehicles:   &memVehicles{m},
		WorkOrders: &memOrders{m},
		Approvals:  &memApprovals{m},
		Fleet:      &memFleet{m},
		Mailer:     m,
	}
}

func (m *memStores) Get(ctx context.Context, tenantID, id string) (*shopx.Customer, error) {
	c, ok := m.customers[id]
	if !ok || c.TenantID != tenantID {
		return nil, shopx.ErrNotFound
	}
	return c, nil
}

func (m *memStores) FindByEmail(ctx context.Context, tenantID, email string) (*shopx.Customer, error) {
	for _, c := range m.customers {
		if c.TenantID == tenantID && c.Email == email {
			return c, nil
		}
	}
	return nil, shopx.ErrNotFound
}

func (m *memStores) Create(ctx context.Context, c *shopx.Customer) error {
	m.customers[c.ID] = c
	return nil
}

type memVehicles struct{ *memStores }

func (m *memStores) vehicleGet(tenantID, id string) (*shopx.Vehicle, error) {
	v, ok := m.vehicles[id]
	if !ok || v.TenantID != tenantID {
		return nil, shopx.ErrNotFound
	}
	return v, nil
}

func (m *memVehicles) Get(ctx context.Context, tenantID, id string) (*shopx.Vehicle, error) {
	return m.vehicleGet(tenantID, id)
}

func (m *memVehicles) FindByPlate(ctx context.Context, tenantID, plate string) (*shopx.Vehicle, error) {
	for _, v := range m.vehicles {
		if v.TenantID == tenantID && v.Plate == plate {
			return v, nil
		}
	}
	return nil, shopx.ErrNotFound
}

func (m *memVehicles) Create(ctx context.Context, v *shopx.Vehicle) error {
	m.vehicles[v.ID] = v
	return nil
}

func (m *memVehicles) ListFleet(ctx context.Context, tenantID string) ([]shopx.Vehicle, error) {
	var out []shopx.Vehicle
	for _, v := range m.vehicles {
		if v.TenantID == tenantID && v.Fleet {
			out = append(out, *v)
		}
	}
	return out, nil
}

type memOrders struct{ *memStores }

func (m *memOrders) Get(ctx context.Context, tenantID, id string) (*shopx.WorkOrder, error) {
	wo, ok := m.orders[id]
	if !ok || wo.TenantID != tenantID {
		return nil, shopx.ErrNotFound
	}
	return wo, nil
}

func (m *memOrders) Create(ctx context.Context, wo *shopx.WorkOrder) error {
	m.orders[wo.ID] = wo
	return nil
}

func (m *memOrders) AddLine(ctx context.Context, line *shopx.WorkOrderLine) error {
	m.lines[line.WorkOrderID] = append(m.lines[line.WorkOrderID], *line)
	return nil
}

func (m *memOrders) Lines(ctx context.Context, workOrderID string) ([]shopx.WorkOrderLine, error) {
	return m.lines[workOrderID], nil
}

type memApprovals struct{ *memStores }

func (m *memApprovals) Get(ctx context.Context, tenantID, id string) (*shopx.Approval, error) {
	a, ok := m.approvals[id]
	if !ok || a.TenantID != tenantID {
		return nil, shopx.ErrNotFound
	}
	return a, nil
}

func (m *memApprovals) ListPending(ctx context.Context, tenantID string) ([]shopx.Approval, error) {
	var out []shopx.Approval
	for _, a := range m.approvals {
		if a.TenantID == tenantID && a.Status == shopx.ApprovalPending {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memApprovals) Decide(ctx context.Context, tenantID, id string, status shopx.ApprovalStatus, decidedBy string) (*shopx.Approval, error) {
	a, ok := m.approvals[id]
	if !ok || a.TenantID != tenantID || a.Status != shopx.ApprovalPending {
		return nil, shopx.ErrNotFound
	}
	a.Status = status
	a.DecidedBy = decidedBy
	return a, nil
}

type memFleet struct{ *memStores }

func (m *memFleet) CreateProgram(ctx context.Context, p *shopx.FleetProgram) error {
	m.programs[p.ID] = p
	return nil
}

func (m *memStores) Send(ctx context.Context, to, subject, html string) (string, error) {
	m.sentTo = append(m.sentTo, to)
	m.sentSubject = append(m.sentSubject, subject)
	return "msg-1", nil
}

func newTestRegistry(t *testing.T) (*Registry, *memStores) {
	t.Helper()

	mem := newMemStores()
	r, err := NewShopRegistry(mem.stores())
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return r, mem
}

func testToolContext() contractx.ToolContext {
	return contractx.ToolContext{TenantID: "tenant-a", UserID: "user-1"}
}

func TestCatalogRegistersAllTools(t *testing.T) {
	t.Parallel()

	r, _ := newTestRegistry(t)
	specs := r.Specs()
	if len(specs) != 12 {
		t.Fatalf("expected 12 tools, got %d", len(specs))
	}
}

func TestFindCustomerNotFound(t *testing.T) {
	t.Parallel()

	r, _ := newTestRegistry(t)
	out, err := r.Invoke(context.Background(), ToolFindCustomer, map[string]any{"email": "nobody@example.com"}, testToolContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["found"] != false {
		t.Fatalf("expected found=false, got %v", out)
	}
}

func TestCreateThenFindCustomer(t *testing.T) {
	t.Parallel()

	r, _ := newTestRegistry(t)
	tc := testToolContext()

	created, err := r.Invoke(context.Background(), ToolCreateCustomer, map[string]any{
		"name":  "Dana Fleet",
		"email": "dana@example.com",
	}, tc)
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}

	found, err := r.Invoke(context.Background(), ToolFindCustomer, map[string]any{"email": "dana@example.com"}, tc)
	if err != nil {
		t.Fatalf("find customer: %v", err)
	}
	if found["found"] != true {
		t.Fatalf("expected found=true, got %v", found)
	}
	if found["customer_id"] != created["customer_id"] {
		t.Fatalf("customer ids differ: %v vs %v", found["customer_id"], created["customer_id"])
	}
}

func TestCustomerLookupIsTenantScoped(t *testing.T) {
	t.Parallel()

	r, _ := newTestRegistry(t)

	if _, err := r.Invoke(context.Background(), ToolCreateCustomer, map[string]any{
		"name":  "Tenant A Customer",
		"email": "shared@example.com",
	}, contractx.ToolContext{TenantID: "tenant-a", UserID: "u"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	out, err := r.Invoke(context.Background(), ToolFindCustomer, map[string]any{"email": "shared@example.com"},
		contractx.ToolContext{TenantID: "tenant-b", UserID: "u"})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if out["found"] != false {
		t.Fatal("customer leaked across tenants")
	}
}

func TestCreateWorkOrderRejectsMismatchedVehicle(t *testing.T) {
	t.Parallel()

	r, mem := newTestRegistry(t)
	tc := testToolContext()

	mem.customers["c1"] = &shopx.Customer{ID: "c1", TenantID: tc.TenantID, Name: "A"}
	mem.customers["c2"] = &shopx.Customer{ID: "c2", TenantID: tc.TenantID, Name: "B"}
	mem.vehicles["v1"] = &shopx.Vehicle{ID: "v1", TenantID: tc.TenantID, CustomerID: "c2"}

	_, err := r.Invoke(context.Background(), ToolCreateWorkOrder, map[string]any{
		"customer_id": "c1",
		"vehicle_id":  "v1",
	}, tc)
	if !errors.Is(err, contractx.ErrToolExecution) {
		t.Fatalf("expected ErrToolExecution, got %v", err)
	}
	if !strings.Contains(err.Error(), "does not belong") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestWorkOrderLifecycleWithInvoice(t *testing.T) {
	t.Parallel()

	r, mem := newTestRegistry(t)
	tc := testToolContext()

	mem.customers["c1"] = &shopx.Customer{ID: "c1", TenantID: tc.TenantID, Name: "Dana", Email: "dana@example.com"}
	mem.vehicles["v1"] = &shopx.Vehicle{ID: "v1", TenantID: tc.TenantID, CustomerID: "c1", Plate: "ABC-123"}

	wo, err := r.Invoke(context.Background(), ToolCreateWorkOrder, map[string]any{
		"customer_id": "c1",
		"vehicle_id":  "v1",
	}, tc)
	if err != nil {
		t.Fatalf("create work order: %v", err)
	}
	workOrderID, _ := wo["work_order_id"].(string)
	if workOrderID == "" {
		t.Fatal("missing work_order_id")
	}
	if wo["status"] != "open" {
		t.Fatalf("expected open status, got %v", wo["status"])
	}

	if _, err := r.Invoke(context.Background(), ToolAddWorkOrderLine, map[string]any{
		"work_order_id": workOrderID,
		"description":   "brake pads",
		"amount_cents":  12500,
	}, tc); err != nil {
		t.Fatalf("add line: %v", err)
	}
	if _, err := r.Invoke(context.Background(), ToolAddWorkOrderLine, map[string]any{
		"work_order_id": workOrderID,
		"description":   "labor",
		"amount_cents":  9000,
	}, tc); err != nil {
		t.Fatalf("add line: %v", err)
	}

	invoice, err := r.Invoke(context.Background(), ToolGenerateInvoice, map[string]any{
		"work_order_id": workOrderID,
	}, tc)
	if err != nil {
		t.Fatalf("generate invoice: %v", err)
	}
	html, _ := invoice["html"].(string)
	if !strings.Contains(html, "brake pads") {
		t.Fatalf("invoice html missing line item: %s", html)
	}
	if total, _ := invoice["total_cents"].(int64); total != 21500 {
		t.Fatalf("expected total 21500, got %v", invoice["total_cents"])
	}

	sent, err := r.Invoke(context.Background(), ToolEmailInvoice, map[string]any{
		"work_order_id": workOrderID,
		"to":            "dana@example.com",
	}, tc)
	if err != nil {
		t.Fatalf("email invoice: %v", err)
	}
	if sent["message_id"] != "msg-1" {
		t.Fatalf("unexpected message id: %v", sent["message_id"])
	}
	if len(mem.sentTo) != 1 || mem.sentTo[0] != "dana@example.com" {
		t.Fatalf("unexpected recipients: %v", mem.sentTo)
	}
}

func TestDecideApproval(t *testing.T) {
	t.Parallel()

	r, mem := newTestRegistry(t)
	tc := testToolContext()

	mem.approvals["a1"] = &shopx.Approval{ID: "a1", TenantID: tc.TenantID, WorkOrderID: "wo1", Status: shopx.ApprovalPending}

	listed, err := r.Invoke(context.Background(), ToolListApprovals, map[string]any{}, tc)
	if err != nil {
		t.Fatalf("list approvals: %v", err)
	}
	if count, _ := listed["count"].(int); count != 1 {
		t.Fatalf("expected 1 pending approval, got %v", listed["count"])
	}

	decided, err := r.Invoke(context.Background(), ToolDecideApproval, map[string]any{
		"approval_id": "a1",
		"decision":    "reject",
	}, tc)
	if err != nil {
		t.Fatalf("decide approval: %v", err)
	}
	if decided["status"] != "rejected" {
		t.Fatalf("expected rejected, got %v", decided["status"])
	}

	// Already decided; a second decision must fail.
	_, err = r.Invoke(context.Background(), ToolDecideApproval, map[string]any{
		"approval_id": "a1",
		"decision":    "approve",
	}, tc)
	if !errors.Is(err, contractx.ErrToolExecution) {
		t.Fatalf("expected ErrToolExecution on re-decide, got %v", err)
	}
}

func TestCreateFleetProgramValidatesVehicles(t *testing.T) {
	t.Parallel()

	r, mem := newTestRegistry(t)
	tc := testToolContext()

	mem.vehicles["v1"] = &shopx.Vehicle{ID: "v1", TenantID: tc.TenantID, CustomerID: "c1", Fleet: true}

	out, err := r.Invoke(context.Background(), ToolCreateFleetProgram, map[string]any{
		"name":          "quarterly service",
		"interval_days": 90,
		"vehicle_ids":   []any{"v1"},
	}, tc)
	if err != nil {
		t.Fatalf("create program: %v", err)
	}
	if count, _ := out["vehicle_count"].(int); count != 1 {
		t.Fatalf("expected vehicle_count=1, got %v", out["vehicle_count"])
	}

	_, err = r.Invoke(context.Background(), ToolCreateFleetProgram, map[string]any{
		"name":        "bad program",
		"vehicle_ids": []any{"missing"},
	}, tc)
	if !errors.Is(err, contractx.ErrToolExecution) {
		t.Fatalf("expected ErrToolExecution for unknown vehicle, got %v", err)
	}
}
