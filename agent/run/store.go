package run

import (
	"context"
	"errors"
)

var (
	ErrRunNotFound = errors.New("run not found")
)

// Store is the persistence contract used by the Manager.
type Store interface {
	// CreateRun inserts the run. When the run carries an idempotency key
	// that another run of the same tenant and user already holds, the
	// insert is a no-op and CreateRun returns the existing run with
	// created=false.
	CreateRun(ctx context.Context, r *Run) (existing *Run, created bool, err error)
	// FindRun is tenant-scoped: a run id from another tenant resolves to
	// ErrRunNotFound, never to the record.
	FindRun(ctx context.Context, tenantID, runID string) (*Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status Status) error
	AppendEvent(ctx context.Context, ev *Event) error
	ListEvents(ctx context.Context, runID string) ([]Event, error)
}
