package core

import (
	"errors"
	"sync"
	"testing"
)

func TestSessionMemory_AppendAndTurns(t *testing.T) {
	m := NewSessionMemory("s1", "u1")

	first := m.AppendMessage(RoleUser, "hi", "")
	if first.ID == "" {
		t.Fatal("expected generated id")
	}
	m.AppendMessage(RoleAssistant, "hello", "fixed-id")

	turns := m.Turns()
	if len(turns) != 2 || turns[1].ID != "fixed-id" {
		t.Fatalf("unexpected turns: %+v", turns)
	}

	turns[0].Text = "changed"
	if m.Turns()[0].Text != "hi" {
		t.Error("Turns should return a copy")
	}

	if got, ok := m.FindTurn("fixed-id"); !ok || got.Text != "hello" {
		t.Errorf("FindTurn returned %+v, %v", got, ok)
	}
}

func TestSessionMemory_StageValidation(t *testing.T) {
	m := NewSessionMemory("s1", "u1")

	if _, ok := m.Stage(); ok {
		t.Fatal("new session should have no stage")
	}

	prev, err := m.SetStage(StageOnboarding)
	if err != nil || prev != StageNone {
		t.Fatalf("SetStage: prev=%q err=%v", prev, err)
	}

	if _, err := m.SetStage(WorkflowStage("bogus")); !errors.Is(err, ErrInvalidStage) {
		t.Fatalf("expected ErrInvalidStage, got %v", err)
	}
	if s, _ := m.Stage(); s != StageOnboarding {
		t.Errorf("rejected stage must not mutate state, got %q", s)
	}

	// Re-entering an earlier stage is allowed.
	if _, err := m.SetStage(StageOutreachMessage); err != nil {
		t.Fatal(err)
	}
	if prev, err := m.SetStage(StageCampaignBrief); err != nil || prev != StageOutreachMessage {
		t.Errorf("re-entry failed: prev=%q err=%v", prev, err)
	}
}

func TestSessionMemory_ProfileCopies(t *testing.T) {
	m := NewSessionMemory("s1", "u1")
	if m.BusinessProfile() != nil || m.HasBusinessProfile() {
		t.Fatal("profile should start absent")
	}

	in := map[string]any{"name": "Bean There", "tags": []any{"coffee"}}
	m.SetBusinessProfile(in)
	in["name"] = "mutated"

	got := m.BusinessProfile()
	if got["name"] != "Bean There" {
		t.Errorf("profile should be copied on write, got %v", got["name"])
	}
	got["tags"].([]any)[0] = "tea"
	if m.BusinessProfile()["tags"].([]any)[0] != "coffee" {
		t.Error("profile should be deep-copied on read")
	}
}

func TestSessionMemory_ScratchIsolation(t *testing.T) {
	m := NewSessionMemory("s1", "u1")

	a := m.WorkerScratch("worker_a")
	a.Set("secret", 42)

	if _, ok := m.WorkerScratch("worker_b").Get("secret"); ok {
		t.Fatal("worker_b must not see worker_a's scratch")
	}
	if v, ok := m.WorkerScratch("worker_a").Get("secret"); !ok || v != 42 {
		t.Fatalf("worker_a should read its own value, got %v %v", v, ok)
	}
	if m.WorkerScratch("worker_a") != a {
		t.Error("same worker name should return the same scratch")
	}

	a.Append("log", "one")
	a.Append("log", "two")
	if l, _ := a.Get("log"); len(l.([]any)) != 2 {
		t.Errorf("expected 2 log entries, got %v", l)
	}
}

func TestSessionMemory_TakeFlagOnce(t *testing.T) {
	m := NewSessionMemory("s1", "u1")
	if m.TakeFlag(MetaAuthRequiredTriggered) {
		t.Fatal("flag should start cleared")
	}
	m.SetFlag(MetaAuthRequiredTriggered)
	if !m.TakeFlag(MetaAuthRequiredTriggered) {
		t.Fatal("expected raised flag")
	}
	if m.TakeFlag(MetaAuthRequiredTriggered) {
		t.Error("flag should be cleared after first take")
	}
}

func TestSessionMemory_SnapshotAndSummary(t *testing.T) {
	m := NewSessionMemory("s1", "u1")
	m.AppendMessage(RoleUser, "I run a coffee shop", "")
	m.AppendMessage(RoleAssistant, "Great, tell me more", "")
	m.SetWorkerStatus("onboarding", "awaiting_details")
	m.SetProfileHint(ProfileHint{DisplayName: "Dana"})

	snap := m.Snapshot()
	m.AppendMessage(RoleUser, "later", "")
	m.SetWorkerStatus("onboarding", "")

	if len(snap.Turns) != 2 || snap.WorkerStatuses["onboarding"] != "awaiting_details" {
		t.Fatalf("snapshot should not observe later writes: %+v", snap)
	}
	if snap.ProfileHint == nil || snap.ProfileHint.DisplayName != "Dana" {
		t.Errorf("snapshot missing hint: %+v", snap.ProfileHint)
	}

	sum := m.Summary()
	if sum.TurnCount != 3 || sum.LastUser != "later" || sum.LastAssistant != "Great, tell me more" || sum.HasProfile {
		t.Errorf("unexpected summary: %+v", sum)
	}
}

func TestSessionMemory_ConcurrentMutation(t *testing.T) {
	m := NewSessionMemory("s1", "u1")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			m.AppendMessage(RoleUser, "x", "")
			m.WorkerScratch("w").Append("log", 1)
		}()
		go func() {
			defer wg.Done()
			_ = m.Snapshot()
			_ = m.Summary()
		}()
	}
	wg.Wait()

	if m.TurnCount() != 50 {
		t.Errorf("expected 50 turns, got %d", m.TurnCount())
	}
}
