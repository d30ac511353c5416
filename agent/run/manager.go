// Package run owns the run lifecycle: admission, idempotent creation,
// event persistence, and terminal status handling. Planners execute
// inside a run but never touch run state themselves.
package run

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	contractx "github.com/fixwell/shop-agent/agent/contract"
)

// StartRequest describes one run submission.
type StartRequest struct {
	Planner        string
	Goal           contractx.PlanGoal
	IdempotencyKey string
}

// StartResult reports the run a submission mapped onto. AlreadyExisted
// is true when an idempotency key collapsed this submission onto an
// earlier run, in which case nothing was executed.
type StartResult struct {
	RunID          string
	Status         Status
	AlreadyExisted bool
}

// Manager drives runs end to end.
type Manager struct {
	store          Store
	resolver       contractx.IdentityResolver
	gate           contractx.RateGate
	planners       map[string]contractx.Planner
	defaultPlanner string
}

func NewManager(store Store, resolver contractx.IdentityResolver, gate contractx.RateGate, planners map[string]contractx.Planner, defaultPlanner string) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: run store is required", contractx.ErrValidation)
	}
	if resolver == nil {
		return nil, fmt.Errorf("%w: identity resolver is required", contractx.ErrValidation)
	}
	if len(planners) == 0 {
		return nil, fmt.Errorf("%w: at least one planner is required", contractx.ErrValidation)
	}
	if _, ok := planners[defaultPlanner]; !ok {
		return nil, fmt.Errorf("%w: default planner %q is not registered", contractx.ErrValidation, defaultPlanner)
	}
	return &Manager{
		store:          store,
		resolver:       resolver,
		gate:           gate,
		planners:       planners,
		defaultPlanner: defaultPlanner,
	}, nil
}

// StartRun admits and executes one run synchronously. Admission order is
// fixed: identity, rate gate, idempotency. A submission that collides on
// its idempotency key returns the earlier run untouched.
func (m *Manager) StartRun(ctx context.Context, req StartRequest) (*StartResult, error) {
	identity, err := m.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	if m.gate != nil {
		allowed, err := m.gate.Allow(ctx, identity.TenantID+":"+identity.UserID)
		if err != nil {
			return nil, fmt.Errorf("rate gate: %w", err)
		}
		if !allowed {
			return nil, fmt.Errorf("%w: tenant=%s user=%s", contractx.ErrRateLimited, identity.TenantID, identity.UserID)
		}
	}

	plannerName, planner, err := m.selectPlanner(req.Planner)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(req.Goal.Text) == "" {
		return nil, fmt.Errorf("%w: goal text is required", contractx.ErrValidation)
	}

	r := &Run{
		ID:       uuid.NewString(),
		TenantID: identity.TenantID,
		UserID:   identity.UserID,
		Planner:  plannerName,
		Goal:     req.Goal.Text,
		Status:   StatusRunning,
	}
	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		r.IdempotencyKey = &key
	}

	stored, created, err := m.store.CreateRun(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	if !created {
		log.Debug().
			Str("run_id", stored.ID).
			Str("tenant_id", identity.TenantID).
			Msg("idempotent replay, returning existing run")
		return &StartResult{RunID: stored.ID, Status: stored.Status, AlreadyExisted: true}, nil
	}

	log.Info().
		Str("run_id", stored.ID).
		Str("planner", plannerName).
		Str("tenant_id", identity.TenantID).
		Msg("run started")

	sink := m.persistingSink(stored.ID)
	tc := contractx.ToolContext{TenantID: identity.TenantID, UserID: identity.UserID}

	if runErr := planner.Run(ctx, req.Goal, tc, sink); runErr != nil {
		// The manager owns error events: planners only return errors, so
		// a failed run carries exactly one.
		if sinkErr := sink(ctx, contractx.ErrorEvent(runErr.Error())); sinkErr != nil {
			log.Error().Err(sinkErr).Str("run_id", stored.ID).Msg("persist error event")
		}
		if stErr := m.store.UpdateRunStatus(ctx, stored.ID, StatusFailed); stErr != nil {
			log.Error().Err(stErr).Str("run_id", stored.ID).Msg("mark run failed")
		}
		log.Warn().Err(runErr).Str("run_id", stored.ID).Msg("run failed")
		return &StartResult{RunID: stored.ID, Status: StatusFailed}, runErr
	}

	if err := m.store.UpdateRunStatus(ctx, stored.ID, StatusSucceeded); err != nil {
		return nil, fmt.Errorf("mark run succeeded: %w", err)
	}

	log.Info().Str("run_id", stored.ID).Msg("run succeeded")
	return &StartResult{RunID: stored.ID, Status: StatusSucceeded}, nil
}

// Events returns a run's audit trail in sequence order. The trail is
// tenant confidential: the caller's identity is resolved and a run
// belonging to another tenant reads as not found.
func (m *Manager) Events(ctx context.Context, runID string) ([]Event, error) {
	identity, err := m.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := m.store.FindRun(ctx, identity.TenantID, runID); err != nil {
		return nil, err
	}
	return m.store.ListEvents(ctx, runID)
}

func (m *Manager) selectPlanner(name string) (string, contractx.Planner, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		trimmed = m.defaultPlanner
	}
	planner, ok := m.planners[trimmed]
	if !ok {
		return "", nil, fmt.Errorf("%w: unknown planner %q", contractx.ErrValidation, trimmed)
	}
	return trimmed, planner, nil
}

// persistingSink numbers and stores events as the planner emits them.
// Sequence numbers are assigned here so they stay dense regardless of
// which planner is running.
func (m *Manager) persistingSink(runID string) contractx.EventSink {
	seq := 0
	return func(ctx context.Context, ev contractx.Event) error {
		seq++
		record := &Event{
			ID:      uuid.NewString(),
			RunID:   runID,
			Seq:     seq,
			Kind:    string(ev.Kind),
			Text:    ev.Text,
			Tool:    ev.Tool,
			Input:   ev.Input,
			Output:  ev.Output,
			Message: ev.Message,
		}
		if err := m.store.AppendEvent(ctx, record); err != nil {
			return fmt.Errorf("persist event seq=%d: %w", seq, err)
		}
		return nil
	}
}
