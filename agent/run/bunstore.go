package run

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// BunStore persists runs and events in Postgres via bun.
type BunStore struct {
	db *bun.DB
}

func NewBunStore(db *bun.DB) *BunStore {
	return &BunStore{db: db}
}

// EnsureSchema creates the run tables and the idempotency index.
func EnsureSchema(ctx context.Context, db *bun.DB) error {
	models := []any{(*Run)(nil), (*Event)(nil)}
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}

	if _, err := db.NewCreateIndex().
		Model((*Run)(nil)).
		Index("runs_idempotency_key_idx").
		IfNotExists().
		Unique().
		Column("tenant_id", "user_id", "idempotency_key").
		Where("idempotency_key IS NOT NULL").
		Exec(ctx); err != nil {
		return fmt.Errorf("create idempotency index: %w", err)
	}

	if _, err := db.NewCreateIndex().
		Model((*Event)(nil)).
		Index("run_events_run_seq_idx").
		IfNotExists().
		Unique().
		Column("run_id", "seq").
		Exec(ctx); err != nil {
		return fmt.Errorf("create event index: %w", err)
	}

	return nil
}

func (s *BunStore) CreateRun(ctx context.Context, r *Run) (*Run, bool, error) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	q := s.db.NewInsert().Model(r)
	if r.IdempotencyKey != nil {
		q = q.On("CONFLICT (tenant_id, user_id, idempotency_key) WHERE idempotency_key IS NOT NULL DO NOTHING")
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("insert run: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("insert run: %w", err)
	}
	if affected > 0 {
		return r, true, nil
	}

	// Lost the insert race or an earlier submission already holds the
	// key; surface that run instead.
	existing, err := s.findByKey(ctx, r.TenantID, r.UserID, *r.IdempotencyKey)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (s *BunStore) findByKey(ctx context.Context, tenantID, userID, key string) (*Run, error) {
	r := new(Run)
	err := s.db.NewSelect().
		Model(r).
		Where("tenant_id = ?", tenantID).
		Where("user_id = ?", userID).
		Where("idempotency_key = ?", key).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("find run by idempotency key: %w", mapNotFound(err))
	}
	return r, nil
}

func (s *BunStore) FindRun(ctx context.Context, tenantID, runID string) (*Run, error) {
	r := new(Run)
	err := s.db.NewSelect().
		Model(r).
		Where("tenant_id = ?", tenantID).
		Where("id = ?", runID).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("find run: %w", mapNotFound(err))
	}
	return r, nil
}

// UpdateRunStatus moves a running run to its terminal status. A run that
// already reached a terminal status is left untouched.
func (s *BunStore) UpdateRunStatus(ctx context.Context, runID string, status Status) error {
	now := time.Now().UTC()
	res, err := s.db.NewUpdate().
		Model((*Run)(nil)).
		Set("status = ?", status).
		Set("finished_at = ?", &now).
		Where("id = ?", runID).
		Where("status = ?", StatusRunning).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update run status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update run status: %w", err)
	}
	if affected > 0 {
		return nil
	}

	exists, err := s.db.NewSelect().
		Model((*Run)(nil)).
		Where("id = ?", runID).
		Exists(ctx)
	if err != nil {
		return fmt.Errorf("update run status: %w", err)
	}
	if !exists {
		return ErrRunNotFound
	}
	return nil
}

func (s *BunStore) AppendEvent(ctx context.Context, ev *Event) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	if _, err := s.db.NewInsert().Model(ev).Exec(ctx); err != nil {
		return fmt.Errorf("append run event: %w", err)
	}
	return nil
}

func (s *BunStore) ListEvents(ctx context.Context, runID string) ([]Event, error) {
	var events []Event
	err := s.db.NewSelect().
		Model(&events).
		Where("run_id = ?", runID).
		Order("seq ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list run events: %w", err)
	}
	return events, nil
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrRunNotFound
	}
	return err
}
