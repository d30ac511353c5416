package planner

import (
	"context"
	"fmt"
	"testing"

	contractx "github.com/fixwell/shop-agent/agent/contract"
)

// fakeInvoker returns canned outputs per tool name and records every
// dispatch in order.
type fakeInvoker struct {
	outputs map[string]map[string]any
	errs    map[string]error

	calls  []string
	inputs []map[string]any
}

func newFakeInvoker() *fakeInvoker {
	return &fakeInvoker{
		outputs: make(map[string]map[string]any),
		errs:    make(map[string]error),
	}
}

func (f *fakeInvoker) on(tool string, output map[string]any) *fakeInvoker {
	f.outputs[tool] = output
	return f
}

func (f *fakeInvoker) failOn(tool string, err error) *fakeInvoker {
	f.errs[tool] = err
	return f
}

func (f *fakeInvoker) Invoke(_ context.Context, name string, rawInput map[string]any, _ contractx.ToolContext) (map[string]any, error) {
	f.calls = append(f.calls, name)
	f.inputs = append(f.inputs, rawInput)
	if err, ok := f.errs[name]; ok {
		return nil, err
	}
	output, ok := f.outputs[name]
	if !ok {
		return nil, fmt.Errorf("unexpected tool %q", name)
	}
	return output, nil
}

type sinkRecorder struct {
	events []contractx.Event
}

func (s *sinkRecorder) sink(_ context.Context, ev contractx.Event) error {
	s.events = append(s.events, ev)
	return nil
}

func (s *sinkRecorder) kinds() []contractx.EventKind {
	out := make([]contractx.EventKind, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev.Kind)
	}
	return out
}

func assertKinds(t *testing.T, got []contractx.EventKind, want ...contractx.EventKind) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d events %v, got %d events %v", len(want), want, len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d: expected %s, got %s (full: %v)", i, want[i], got[i], got)
		}
	}
}

func assertCalls(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected calls %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("call %d: expected %s, got %s (full: %v)", i, want[i], got[i], got)
		}
	}
}

func testToolContext() contractx.ToolContext {
	return contractx.ToolContext{TenantID: "tenant-a", UserID: "user-1"}
}
