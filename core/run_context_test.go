package core

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/oron-mozes/creo-sub000/logging"
)

func newTestRunContext(ctx context.Context, emit chan<- Event) *RunContext {
	req := PipelineRequest{UserID: "u1", SessionID: "s1", Input: "compacted", Message: "hi"}
	return NewRunContext(ctx, req, "run-1", AgentInfo{Name: "coordinator", Type: "coordinator"}, 5, emit, logging.NoOpLogger{})
}

func TestRunContext_EmitEventStampsFields(t *testing.T) {
	emit := make(chan Event, 1)
	rc := newTestRunContext(context.Background(), emit)

	if err := rc.EmitEvent(Event{ID: "e1"}); err != nil {
		t.Fatal(err)
	}
	ev := <-emit
	if ev.InvocationID != "run-1" || ev.Author != "coordinator" {
		t.Errorf("expected run id and author stamped, got %+v", ev)
	}
}

func TestRunContext_EmitEventCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rc := newTestRunContext(ctx, make(chan Event))
	cancel()

	if err := rc.EmitEvent(NewMessageEvent("x", "y")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRunContext_NewChildContext(t *testing.T) {
	parentEmit := make(chan Event, 1)
	rc := newTestRunContext(context.Background(), parentEmit)

	childEmit := make(chan Event, 1)
	child := rc.NewChildContext(childEmit, AgentInfo{Name: "presenter"}, "")
	if child.Input != "compacted" {
		t.Errorf("empty input should inherit parent input, got %q", child.Input)
	}
	if child.Budget != rc.Budget {
		t.Error("child should share the model call budget")
	}

	if err := child.EmitEvent(NewMessageEvent("", "hello")); err != nil {
		t.Fatal(err)
	}
	select {
	case ev := <-childEmit:
		if ev.Author != "presenter" || ev.Branch == nil || *ev.Branch != "presenter" {
			t.Errorf("unexpected child event: %+v", ev)
		}
	default:
		t.Fatal("child event should go to the child channel")
	}
	if len(parentEmit) != 0 {
		t.Error("parent channel should not receive child output")
	}

	override := rc.NewChildContext(childEmit, AgentInfo{Name: "w"}, "notes")
	if override.Input != "notes" {
		t.Errorf("expected input override, got %q", override.Input)
	}
}

func TestCallBudget(t *testing.T) {
	b := NewCallBudget(3)
	if err := b.Charge("coordinator"); err != nil {
		t.Fatal(err)
	}
	if err := b.Charge("onboarding"); err != nil {
		t.Fatal(err)
	}
	if err := b.Charge("onboarding"); err != nil {
		t.Fatal(err)
	}
	if !b.Spent() {
		t.Error("budget should be spent after 3 calls")
	}
	if err := b.Charge("presenter"); !errors.Is(err, ErrModelCallLimit) {
		t.Fatalf("expected ErrModelCallLimit, got %v", err)
	}
	if b.Count() != 3 {
		t.Errorf("rejected call must not be recorded, count %d", b.Count())
	}
	got := b.Breakdown()
	if len(got) != 2 || got[0] != "coordinator=1" || got[1] != "onboarding=2" {
		t.Errorf("unexpected breakdown %v", got)
	}

	unlimited := NewCallBudget(0)
	for i := 0; i < 50; i++ {
		if err := unlimited.Charge("w"); err != nil {
			t.Fatal(err)
		}
	}
	if unlimited.Spent() {
		t.Error("zero max should be unlimited")
	}
}

type capturedLog struct {
	msg  string
	args []any
}

type captureLogger struct{ logs []capturedLog }

func (c *captureLogger) record(msg string, args ...any) {
	c.logs = append(c.logs, capturedLog{msg: msg, args: args})
}

func (c *captureLogger) Debug(msg string, args ...any) { c.record(msg, args...) }
func (c *captureLogger) Info(msg string, args ...any)  { c.record(msg, args...) }
func (c *captureLogger) Warn(msg string, args ...any)  { c.record(msg, args...) }
func (c *captureLogger) Error(msg string, args ...any) { c.record(msg, args...) }

func TestRunContext_LogsCarryRunAttributes(t *testing.T) {
	logger := &captureLogger{}
	req := PipelineRequest{UserID: "u1", SessionID: "s1"}
	rc := NewRunContext(context.Background(), req, "run-9", AgentInfo{Name: "coordinator"}, 0, make(chan Event, 1), logger)

	rc.LogInfo("agent.run.start", "agent", "coordinator")
	child := rc.NewChildContext(make(chan Event, 1), AgentInfo{Name: "presenter"}, "")
	child.LogWarn("agent.child.failed")

	if len(logger.logs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(logger.logs))
	}
	want := []any{"session_id", "s1", "run", "run-9", "agent", "coordinator"}
	if !reflect.DeepEqual(logger.logs[0].args, want) {
		t.Errorf("unexpected args %v", logger.logs[0].args)
	}
	if !reflect.DeepEqual(logger.logs[1].args, []any{"session_id", "s1", "run", "run-9"}) {
		t.Errorf("child should share base attributes, got %v", logger.logs[1].args)
	}
}
