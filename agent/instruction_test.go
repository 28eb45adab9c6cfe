package agent

import (
	"errors"
	"testing"

	"github.com/oron-mozes/creo-sub000/core"
)

type mockProvider struct {
	text string
	err  error
}

func (m mockProvider) Instruction(*core.RunContext) (string, error) { return m.text, m.err }

func TestInstruction_Static(t *testing.T) {
	rc, _ := newRunContext(t, core.MemorySnapshot{}, "hello")

	inst := NewInstructionFromText("static instruction")
	if !inst.IsStatic() {
		t.Fatalf("expected static instruction")
	}
	got, err := inst.Resolve(rc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "static instruction" {
		t.Fatalf("expected 'static instruction', got %q", got)
	}
}

func TestInstruction_Template(t *testing.T) {
	snap := core.MemorySnapshot{
		Stage:       core.StageCampaignBrief,
		ProfileHint: &core.ProfileHint{DisplayName: "Dana"},
	}
	rc, _ := newRunContext(t, snap, "hello")

	inst := NewInstructionFromText(`stage={{.stage}} name={{default "friend" .display_name}} profile={{.has_profile}}`)
	got, err := inst.Resolve(rc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "stage=campaign_brief name=Dana profile=false"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}

	rc.Snapshot = core.MemorySnapshot{}
	got, err = inst.Resolve(rc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "stage=none name=friend profile=false"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestInstruction_NewInstructionFromFunc(t *testing.T) {
	rc, _ := newRunContext(t, core.MemorySnapshot{}, "hello")

	inst := NewInstructionFromFunc(func(rc *core.RunContext) (string, error) { return "dynamic for " + rc.UserID, nil })
	if inst.IsStatic() {
		t.Fatalf("expected dynamic instruction")
	}
	got, err := inst.Resolve(rc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "dynamic for u1" {
		t.Fatalf("expected 'dynamic for u1', got %q", got)
	}
}

func TestInstruction_ErrorPropagation(t *testing.T) {
	rc, _ := newRunContext(t, core.MemorySnapshot{}, "hello")

	expectedErr := errors.New("boom")
	inst := NewInstructionFromProvider(mockProvider{err: expectedErr})
	_, err := inst.Resolve(rc)
	if !errors.Is(err, expectedErr) {
		t.Fatalf("expected error %v, got %v", expectedErr, err)
	}
}
