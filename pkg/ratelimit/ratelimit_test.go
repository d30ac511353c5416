package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestGate(t *testing.T, rpm, burst int, now func() time.Time) *Gate {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewFromClient(client, rpm, burst, WithClock(now))
}

func TestAllowWithinBurst(t *testing.T) {
	t.Parallel()

	g := newTestGate(t, 60, 3, nil)

	for i := 0; i < 3; i++ {
		allowed, err := g.Allow(context.Background(), "tenant-1/user-1")
		if err != nil {
			t.Fatalf("Allow() error = %v", err)
		}
		if !allowed {
			t.Fatalf("call %d must be admitted within burst", i+1)
		}
	}
}

func TestDeniesWhenExhausted(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	g := newTestGate(t, 60, 2, func() time.Time { return base })

	for i := 0; i < 2; i++ {
		if allowed, err := g.Allow(context.Background(), "actor"); err != nil || !allowed {
			t.Fatalf("setup call %d: allowed=%v err=%v", i+1, allowed, err)
		}
	}

	allowed, err := g.Allow(context.Background(), "actor")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if allowed {
		t.Fatal("expected denial with exhausted bucket")
	}
}

func TestRefillsOverTime(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	g := newTestGate(t, 60, 1, func() time.Time { return now })

	if allowed, _ := g.Allow(context.Background(), "actor"); !allowed {
		t.Fatal("first call must pass")
	}
	if allowed, _ := g.Allow(context.Background(), "actor"); allowed {
		t.Fatal("second immediate call must be denied")
	}

	now = now.Add(2 * time.Second)
	allowed, err := g.Allow(context.Background(), "actor")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !allowed {
		t.Fatal("expected admission after refill window")
	}
}

func TestActorsAreIsolated(t *testing.T) {
	t.Parallel()

	g := newTestGate(t, 60, 1, nil)

	if allowed, _ := g.Allow(context.Background(), "actor-a"); !allowed {
		t.Fatal("actor-a first call must pass")
	}
	if allowed, _ := g.Allow(context.Background(), "actor-b"); !allowed {
		t.Fatal("actor-b must not share actor-a's bucket")
	}
}
