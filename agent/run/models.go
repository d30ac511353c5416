package run

import (
	"time"

	"github.com/uptrace/bun"
)

type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Run is one lifecycle record. The partial unique index on
// (tenant_id, user_id, idempotency_key) is what makes retried
// submissions collapse onto a single run.
type Run struct {
	bun.BaseModel `bun:"table:runs"`

	ID             string     `bun:"id,pk"`
	TenantID       string     `bun:"tenant_id,notnull"`
	UserID         string     `bun:"user_id,notnull"`
	Planner        string     `bun:"planner,notnull"`
	Goal           string     `bun:"goal,notnull"`
	Status         Status     `bun:"status,notnull"`
	IdempotencyKey *string    `bun:"idempotency_key"`
	CreatedAt      time.Time  `bun:"created_at,notnull"`
	FinishedAt     *time.Time `bun:"finished_at"`
}

// Event is one audit record. Seq starts at 1 and is dense per run.
type Event struct {
	bun.BaseModel `bun:"table:run_events"`

	ID        string         `bun:"id,pk"`
	RunID     string         `bun:"run_id,notnull"`
	Seq       int            `bun:"seq,notnull"`
	Kind      string         `bun:"kind,notnull"`
	Text      string         `bun:"text"`
	Tool      string         `bun:"tool"`
	Input     map[string]any `bun:"input,type:jsonb"`
	Output    map[string]any `bun:"output,type:jsonb"`
	Message   string         `bun:"message"`
	CreatedAt time.Time      `bun:"created_at,notnull"`
}
