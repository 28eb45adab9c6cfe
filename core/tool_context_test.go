package core

import (
	"context"
	"errors"
	"testing"
)

func TestToolContext_RecordsActions(t *testing.T) {
	rc := newTestRunContext(context.Background(), make(chan Event, 1))
	tc := NewToolContext(rc, "fc-1")

	if tc.FunctionCallID() != "fc-1" || tc.SessionID() != "s1" || tc.UserID() != "u1" || tc.AgentName() != "coordinator" {
		t.Fatalf("unexpected identifiers")
	}

	if err := tc.SetStage(StageCreatorFinder); err != nil {
		t.Fatal(err)
	}
	if err := tc.SetStage(WorkflowStage("nope")); !errors.Is(err, ErrInvalidStage) {
		t.Fatalf("expected ErrInvalidStage, got %v", err)
	}

	profile := map[string]any{"name": "Bean There"}
	tc.SaveBusinessProfile(profile)
	profile["name"] = "changed"

	tc.SetScratch("step", 2)
	tc.SetWorkerStatus("awaiting_budget")
	tc.RequireAuthentication()

	a := tc.Actions()
	if a.StageTransition == nil || *a.StageTransition != StageCreatorFinder {
		t.Errorf("stage not recorded: %+v", a.StageTransition)
	}
	if a.BusinessProfile["name"] != "Bean There" {
		t.Errorf("profile should be copied, got %v", a.BusinessProfile)
	}
	if a.ScratchDelta["step"] != 2 || *a.WorkerStatus != "awaiting_budget" || !*a.AuthRequired {
		t.Errorf("unexpected actions: %+v", a)
	}
}
