package core

import (
	"errors"
	"testing"
)

func TestEvent_ConstructorsAndMethods(t *testing.T) {
	e := NewEvent("inv-123", "authorA")
	if e.Author != "authorA" || e.InvocationID != "inv-123" || e.ID == "" || e.Timestamp.IsZero() {
		t.Fatalf("NewEvent did not initialize fields correctly: %+v", e)
	}

	msg := NewMessageEvent("agent1", "hello world")
	if msg.Content == nil || msg.Content.Role != RoleAssistant || msg.Text() != "hello world" {
		t.Fatalf("NewMessageEvent malformed: %+v", msg)
	}

	fCall := NewFunctionCallEvent("agent2", "do_stuff", `{"a":1}`)
	calls := fCall.GetFunctionCalls()
	if len(calls) != 1 || calls[0].Name != "do_stuff" || calls[0].Arguments != `{"a":1}` {
		t.Fatalf("GetFunctionCalls extraction failed: %+v", calls)
	}

	fRespErr := NewFunctionResponseEvent("agent2", "call-2", "do_stuff", nil, errors.New("boom"))
	resps := fRespErr.GetFunctionResponses()
	if len(resps) != 1 || resps[0].Error != "boom" {
		t.Fatalf("expected error message in function response: %+v", resps)
	}
}

func TestEvent_PartialAndFinal(t *testing.T) {
	p := NewPartialEvent("presenter", "Gre")
	if !p.IsPartial() || p.IsFinal() {
		t.Fatalf("partial event misclassified: partial=%v final=%v", p.IsPartial(), p.IsFinal())
	}

	f := NewFinalEvent("coordinator", "done")
	if f.IsPartial() || !f.IsFinal() {
		t.Fatalf("final event misclassified: partial=%v final=%v", f.IsPartial(), f.IsFinal())
	}

	// A fragment flagged complete is still a fragment.
	complete := true
	p.TurnComplete = &complete
	if p.IsFinal() {
		t.Error("partial event must never count as final")
	}

	plain := NewMessageEvent("worker", "text")
	if plain.IsFinal() {
		t.Error("message without TurnComplete should not be final")
	}
}

func TestEvent_IsFinalResponseLogic(t *testing.T) {
	if !NewEvent("inv", "a").IsFinalResponse() {
		t.Error("basic event should be a final response")
	}
	if NewPartialEvent("a", "x").IsFinalResponse() {
		t.Error("partial event should not be a final response")
	}
	if NewFunctionCallEvent("a", "f", "").IsFinalResponse() {
		t.Error("function call event should not be a final response")
	}
	skip := NewFunctionResponseEvent("a", "1", "f", "ok", nil)
	b := true
	skip.Actions.SkipSummarization = &b
	if !skip.IsFinalResponse() {
		t.Error("skip summarization should force a final response")
	}
}

func TestEvent_TextAndParts(t *testing.T) {
	e := NewEvent("", "w")
	if e.Text() != "" || e.PartCount() != 0 {
		t.Fatalf("empty event should have no text or parts")
	}
	e.Content = &Content{Role: RoleAssistant, Parts: []Part{
		TextPart{Text: "a"},
		DataPart{Data: map[string]any{"k": 1}},
		TextPart{Text: "b"},
	}}
	if e.Text() != "ab" {
		t.Errorf("expected concatenated text 'ab', got %q", e.Text())
	}
	if e.PartCount() != 3 {
		t.Errorf("expected 3 parts, got %d", e.PartCount())
	}
}

func TestEvent_Overloaded(t *testing.T) {
	e := NewErrorEvent("worker", ErrorCodeOverloaded, "529")
	if !e.IsOverloaded() {
		t.Error("expected overloaded error event")
	}
	if NewErrorEvent("worker", "other", "x").IsOverloaded() {
		t.Error("non-overload code should not be overloaded")
	}
}

func TestEventActions_MergeAndEmpty(t *testing.T) {
	var a EventActions
	if !a.Empty() {
		t.Fatal("zero actions should be empty")
	}

	stage := StageCampaignBrief
	status := "collecting"
	a.Merge(EventActions{StageTransition: &stage, ScratchDelta: map[string]any{"x": 1}})
	a.Merge(EventActions{WorkerStatus: &status, ScratchDelta: map[string]any{"y": 2}})

	if a.Empty() {
		t.Fatal("merged actions should not be empty")
	}
	if *a.StageTransition != StageCampaignBrief || *a.WorkerStatus != "collecting" {
		t.Errorf("unexpected merge result: %+v", a)
	}
	if len(a.ScratchDelta) != 2 {
		t.Errorf("scratch deltas should accumulate, got %v", a.ScratchDelta)
	}
}
